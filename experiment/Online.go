package experiment

import (
	"fmt"

	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/experiment/checkpointer"
	"github.com/samuelfneumann/neuraltx/experiment/tracker"
	"github.com/samuelfneumann/neuraltx/transmitter"
)

// Online is an Experiment that trains a transmitter online. Each
// iteration, a batch of random bit-vectors is transmitted over a
// channel, the receiver decides the received symbols, and the
// transmitter takes a single update step on the decided bits.
type Online struct {
	tx        *transmitter.Transmitter
	channel   Channel
	receiver  Receiver
	bits      *constellation.Generator
	batchSize int

	maxIterations int
	iteration     int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
	reporters     []Reporter
}

// NewOnline creates and returns a new online experiment which trains
// tx for iterations iterations on batches of batchSize random
// bit-vectors drawn with seed. Trackers determine what data is
// saved, checkpointers save tx, and reporters report on tx.
func NewOnline(tx *transmitter.Transmitter, ch Channel, rx Receiver,
	batchSize, iterations int, seed uint64, t []tracker.Tracker,
	c []checkpointer.Checkpointer, r []Reporter) (*Online, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("newOnline: batch size must be positive "+
			"\n\thave(%v)", batchSize)
	}
	if iterations < 0 {
		return nil, fmt.Errorf("newOnline: iterations must be "+
			"non-negative \n\thave(%v)", iterations)
	}

	bits, err := constellation.NewGenerator(tx.BitCount(), seed)
	if err != nil {
		return nil, fmt.Errorf("newOnline: %w", err)
	}

	return &Online{
		tx:            tx,
		channel:       ch,
		receiver:      rx,
		bits:          bits,
		batchSize:     batchSize,
		maxIterations: iterations,
		trackers:      t,
		checkpointers: c,
		reporters:     r,
	}, nil
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Iteration returns the number of iterations run so far
func (o *Online) Iteration() int {
	return o.iteration
}

// Done returns whether all iterations have been run
func (o *Online) Done() bool {
	return o.iteration >= o.maxIterations
}

// Step runs a single iteration of the experiment
func (o *Online) Step() error {
	if o.Done() {
		return fmt.Errorf("step: all %v iterations have been run",
			o.maxIterations)
	}

	bits := o.bits.Next(o.batchSize)
	symbols, exp, err := o.tx.Transmit(bits, true)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	received, err := o.channel.Carry(symbols)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	observed, err := o.receiver.Receive(received)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	meanReward, err := o.tx.Update(exp, observed)
	if err != nil {
		return fmt.Errorf("step: iteration %v: %w", o.iteration, err)
	}

	for _, t := range o.trackers {
		if err := t.Track(o.iteration, meanReward); err != nil {
			return fmt.Errorf("step: %w", err)
		}
	}
	for _, c := range o.checkpointers {
		if err := c.Checkpoint(o.iteration); err != nil {
			return fmt.Errorf("step: could not checkpoint: %w", err)
		}
	}
	for _, r := range o.reporters {
		if err := r.Report(o.iteration); err != nil {
			return fmt.Errorf("step: %w", err)
		}
	}

	o.iteration++
	return nil
}

// Run runs the remaining iterations of the experiment, stopping at
// the first error
func (o *Online) Run() error {
	for !o.Done() {
		if err := o.Step(); err != nil {
			return fmt.Errorf("run: %w", err)
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}
