// Package transmitter implements a learned modulator: a transmitter
// which maps bit-vectors to (re, im) symbols using a Gaussian policy
// and learns its modulation scheme online with single-step REINFORCE.
//
// The prescribed protocol is
//
//	symbols, exp, err := t.Transmit(bits, true)
//	observed := channelAndReceiver(symbols)
//	meanReward, err := t.Update(exp, observed)
//
// where the advantage of each sample is the negative of its penalty,
// by default the L1 distance between the transmitted and observed bits
// plus a weighted transmit power.
package transmitter

import (
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/network"
	"github.com/samuelfneumann/neuraltx/policy"
	"github.com/samuelfneumann/neuraltx/reward"
	"github.com/samuelfneumann/neuraltx/solver"
	"github.com/samuelfneumann/neuraltx/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Transmitter is a learned modulator. All methods are safe for
// concurrent use; operations are serialized.
//
// A separate computational graph is compiled for each distinct batch
// size used, and the current parameters are loaded into the graph
// before each use. A single optimizer is shared by all graphs.
type Transmitter struct {
	mu sync.Mutex

	bitCount int
	minStd   float64
	arch     network.Architecture
	params   *policy.Parameters

	forward  map[int]*policy.Gaussian
	learners map[int]*policy.Gaussian
	solver   *solver.Solver
	penalty  reward.Penalty
	eps      distuv.Normal

	preamble *mat.Dense
	truth    constellation.Table
}

// New returns a new Transmitter. All randomness of the Transmitter is
// derived from c.Seed.
func New(c Config) (*Transmitter, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	c, err := c.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	arch := c.architecture()
	params, err := policy.NewParameters(
		arch,
		network.LayerInit{Weights: c.HiddenInit, Bias: c.HiddenBias},
		network.LayerInit{Weights: c.HeadInit, Bias: c.HeadBias},
		c.InitialLogStd,
	)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if err := params.Validate(c.MinStd); err != nil {
		return nil, &Error{Op: "new", Err: err}
	}

	var preamble *mat.Dense
	if c.Preamble != nil {
		preamble = mat.DenseCopyOf(c.Preamble)
	}

	return &Transmitter{
		bitCount: c.BitCount,
		minStd:   c.MinStd,
		arch:     arch,
		params:   params,
		forward:  make(map[int]*policy.Gaussian),
		learners: make(map[int]*policy.Gaussian),
		solver:   c.Solver,
		penalty:  c.Penalty,
		eps: distuv.Normal{
			Mu:    0,
			Sigma: 1,
			Src:   rand.NewSource(c.Seed + 3),
		},
		preamble: preamble,
		truth:    c.GroundTruth,
	}, nil
}

// BitCount returns the number of bits modulated into each symbol
func (t *Transmitter) BitCount() int {
	return t.bitCount
}

// Preamble returns a copy of the preamble of the Transmitter, or nil
// if it has none
func (t *Transmitter) Preamble() *mat.Dense {
	if t.preamble == nil {
		return nil
	}
	return mat.DenseCopyOf(t.preamble)
}

// GroundTruth returns the reference constellation of the Transmitter
func (t *Transmitter) GroundTruth() constellation.Table {
	return t.truth
}

// Parameters returns a copy of the current policy parameters
func (t *Transmitter) Parameters() *policy.Parameters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.Clone()
}

// StdDev returns the current standard deviations of the real and
// imaginary parts of transmitted symbols
func (t *Transmitter) StdDev() [2]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.params.StdDev()
}

// Transmit modulates each row of bits, which must hold values in
// {-1, +1}, into a (re, im) symbol sampled from the policy. The
// symbols are returned one per row, in the order of the inputs.
//
// If save is true, an Experience holding copies of bits and the
// sampled symbols is returned for use with Update. Otherwise the
// returned Experience is nil.
func (t *Transmitter) Transmit(bits mat.Matrix, save bool) (*mat.Dense,
	*Experience, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inputs, err := t.inputs(bits)
	if err != nil {
		return nil, nil, &Error{Op: "transmit", Err: err}
	}
	rows, _ := bits.Dims()

	means, std, err := t.means(rows, inputs)
	if err != nil {
		return nil, nil, &Error{Op: "transmit", Err: err}
	}

	symbols := mat.NewDense(rows, 2, policy.Sample(means, std, t.eps))
	if !save {
		return symbols, nil, nil
	}

	exp := &Experience{
		owner:   t,
		inputs:  mat.NewDense(rows, t.bitCount, inputs),
		actions: mat.DenseCopyOf(symbols),
	}
	return symbols, exp, nil
}

// Evaluate returns the deterministic (mean) symbol of each row of bits
// without sampling. Evaluate does not change the Transmitter.
func (t *Transmitter) Evaluate(bits mat.Matrix) (*mat.Dense, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inputs, err := t.inputs(bits)
	if err != nil {
		return nil, &Error{Op: "evaluate", Err: err}
	}
	rows, _ := bits.Dims()

	means, _, err := t.means(rows, inputs)
	if err != nil {
		return nil, &Error{Op: "evaluate", Err: err}
	}
	return mat.NewDense(rows, 2, means), nil
}

// Update takes a single policy gradient step using the inputs and
// symbols recorded in exp and the bits observed by the receiver for
// each of those symbols. The mean reward (negative penalty) of the
// batch is returned.
//
// observed must be N x BitCount(), one row per recorded symbol, since
// the penalty compares each observation against the input bits. It is
// not required to be the N x 2 received symbols; the two shapes only
// coincide when BitCount() is 2, where a receiver may pass the
// received symbols through unchanged.
//
// If Update returns an error, the policy parameters are unchanged.
func (t *Transmitter) Update(exp *Experience, observed mat.Matrix) (float64,
	error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if exp.Len() == 0 {
		return 0, &Error{Op: "update", Err: ErrUninitialized}
	}
	if exp.owner != t {
		return 0, &Error{
			Op:  "update",
			Err: fmt.Errorf("%w: experience recorded by another transmitter",
				ErrUninitialized),
		}
	}
	if observed == nil {
		return 0, &Error{
			Op:  "update",
			Err: fmt.Errorf("%w: no observed bits", ErrShapeMismatch),
		}
	}

	rows := exp.Len()
	if r, c := observed.Dims(); r != rows || c != t.bitCount {
		return 0, &Error{
			Op: "update",
			Err: fmt.Errorf("%w: observed bits must be %v x %v \n\thave(%v "+
				"x %v)", ErrShapeMismatch, rows, t.bitCount, r, c),
		}
	}

	adv, err := reward.Advantages(t.penalty, exp.inputs, exp.actions,
		observed)
	if err != nil {
		return 0, &Error{Op: "update", Err: err}
	}
	if !floatutils.AllFinite(adv...) {
		return 0, &Error{
			Op:  "update",
			Err: fmt.Errorf("%w: non-finite advantages", ErrNumericalDegeneracy),
		}
	}

	learner, err := t.policy(t.learners, rows, policy.NewGaussianLearner)
	if err != nil {
		return 0, &Error{Op: "update", Err: err}
	}

	_, err = learner.Step(exp.inputs.RawMatrix().Data,
		exp.actions.RawMatrix().Data, adv, t.solver)
	if err != nil {
		return 0, &Error{Op: "update", Err: err}
	}

	// Only commit finite parameters
	params, err := learner.Parameters()
	if err != nil {
		return 0, &Error{Op: "update", Err: err}
	}
	if err := params.Validate(t.minStd); err != nil {
		return 0, &Error{Op: "update", Err: err}
	}
	t.params = params

	return stat.Mean(adv, nil), nil
}

// Save saves the policy parameters of the Transmitter to a file
func (t *Transmitter) Save(filename string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(t.params); err != nil {
		return fmt.Errorf("save: could not encode parameters: %w", err)
	}
	return nil
}

// Load loads policy parameters saved with Save into the Transmitter.
// The parameters must describe a network of the same architecture.
func (t *Transmitter) Load(filename string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open file: %w", err)
	}
	defer file.Close()

	var params policy.Parameters
	if err := gob.NewDecoder(file).Decode(&params); err != nil {
		return fmt.Errorf("load: could not decode parameters: %w", err)
	}
	if params.Net == nil {
		return fmt.Errorf("load: %w: no network weights", ErrShapeMismatch)
	}

	if err := t.params.Net.Compatible(params.Net); err != nil {
		return &Error{
			Op:  "load",
			Err: fmt.Errorf("%w: %v", ErrShapeMismatch, err),
		}
	}
	if err := params.Validate(t.minStd); err != nil {
		return &Error{Op: "load", Err: err}
	}

	t.params = &params
	return nil
}

// Close releases the resources held by all compiled graphs
func (t *Transmitter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for _, cache := range []map[int]*policy.Gaussian{t.forward, t.learners} {
		for n, pol := range cache {
			if err := pol.Close(); err != nil {
				errs = append(errs, err)
			}
			delete(cache, n)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close: could not close %v VMs: %w", len(errs),
			errs[0])
	}
	return nil
}

// inputs validates a batch of bits and returns its data in row major
// order
func (t *Transmitter) inputs(bits mat.Matrix) ([]float64, error) {
	if bits == nil {
		return nil, fmt.Errorf("%w: no input bits", ErrShapeMismatch)
	}
	rows, cols := bits.Dims()
	if cols != t.bitCount || rows < 1 {
		return nil, fmt.Errorf("%w: bits must have at least one row and %v "+
			"columns \n\thave(%v x %v)", ErrShapeMismatch, t.bitCount, rows,
			cols)
	}

	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			b := bits.At(i, j)
			if b != 1 && b != -1 {
				return nil, fmt.Errorf("%w: have(%v) at (%v, %v)",
					ErrInvalidBits, b, i, j)
			}
			data = append(data, b)
		}
	}
	return data, nil
}

// means returns the means and standard deviations of the policy for
// a batch of rows inputs
func (t *Transmitter) means(rows int, inputs []float64) ([]float64,
	[2]float64, error) {
	pol, err := t.policy(t.forward, rows, policy.NewGaussian)
	if err != nil {
		return nil, [2]float64{}, err
	}
	return pol.Means(inputs)
}

// policy returns the cached policy of batch size rows, creating it
// with newPolicy if needed, with the current parameters loaded
func (t *Transmitter) policy(cache map[int]*policy.Gaussian, rows int,
	newPolicy func(network.Architecture, int) (*policy.Gaussian,
		error)) (*policy.Gaussian, error) {
	pol, ok := cache[rows]
	if !ok {
		var err error
		pol, err = newPolicy(t.arch, rows)
		if err != nil {
			return nil, err
		}
		cache[rows] = pol
	}

	if err := pol.Load(t.params); err != nil {
		return nil, err
	}
	return pol, nil
}

// Report returns the evaluated symbol of every bit-vector, labelled,
// together with symbols transmitted for the preamble. The transmitted
// symbols are nil if the Transmitter has no preamble.
func (t *Transmitter) Report() ([]constellation.Point, *mat.Dense, error) {
	bits, err := constellation.AllBitVectors(t.bitCount)
	if err != nil {
		return nil, nil, fmt.Errorf("report: %w", err)
	}
	means, err := t.Evaluate(bits)
	if err != nil {
		return nil, nil, fmt.Errorf("report: %w", err)
	}

	labels := constellation.Labels(bits)
	points := make([]constellation.Point, len(labels))
	for i, label := range labels {
		points[i] = constellation.Point{
			Label: label,
			Re:    means.At(i, 0),
			Im:    means.At(i, 1),
		}
	}

	if t.preamble == nil {
		return points, nil, nil
	}
	symbols, _, err := t.Transmit(t.preamble, false)
	if err != nil {
		return nil, nil, fmt.Errorf("report: %w", err)
	}
	return points, symbols, nil
}
