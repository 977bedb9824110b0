// Package experiment implements functionality for running an experiment
// in which a transmitter learns a modulation scheme online
package experiment

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/experiment/checkpointer"
	"github.com/samuelfneumann/neuraltx/experiment/tracker"
	"github.com/samuelfneumann/neuraltx/transmitter"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments send the mean reward of each iteration to Trackers,
// which cache the data in RAM to be later saved to disk. The Save()
// function will then take all cached data and save it to disk. This
// is usually performed after an experiment has been run. The Run()
// method will run all iterations until the iteration limit is reached
// or an error occurs. The Step() function will run a single iteration.
type Experiment interface {
	Run() error
	Step() error

	// Save all tracked data to disk
	Save() error

	// Adds a new tracker.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t tracker.Tracker)
}

type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// Config represents a configuration of an experiment.
type Config struct {
	Type
	Iterations int
	BatchSize  int
	Seed       uint64

	Transmitter transmitter.Config

	// Receiver decides what the transmitter observes of its symbols
	Receiver ReceiverType

	// Data is saved to RewardFile every RewardEvery iterations if
	// RewardFile is non-empty
	RewardFile  string
	RewardEvery int

	// Diagrams are rendered every DiagramEvery iterations if
	// DiagramPattern is non-empty, e.g. "figures/%04d.png"
	DiagramPattern string
	DiagramEvery   int

	// Checkpoints are saved every CheckpointEvery iterations if
	// CheckpointPattern is non-empty, e.g. "checkpoints/%04d.bin"
	CheckpointPattern string
	CheckpointEvery   int
}

// DefaultConfig returns the default configuration of an online
// experiment of a 2-bit transmitter referenced against QPSK
func DefaultConfig() Config {
	return Config{
		Type:        OnlineExp,
		Iterations:  2000,
		BatchSize:   256,
		Seed:        1,
		Transmitter: transmitter.DefaultConfig(2),
		Receiver:    NearestReceiver,
		RewardEvery: 10,
	}
}

// LoadConfig loads a Config from a JSON file. Fields absent from the
// file take their values from DefaultConfig.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}

	c := DefaultConfig()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not unmarshal "+
			"config: %w", err)
	}

	// The ground truth cannot be given in JSON
	c.Transmitter.GroundTruth, err = constellation.Reference(
		c.Transmitter.BitCount)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}
	return c, nil
}

// CreateExp creates the experiment described by the Config. The
// trained transmitter is returned with the experiment.
func (c Config) CreateExp() (Experiment, *transmitter.Transmitter, error) {
	if c.Type != OnlineExp {
		return nil, nil, fmt.Errorf("createExp: no such experiment type %v",
			c.Type)
	}

	tc := c.Transmitter
	tc.Seed = c.Seed
	rx, err := NewReceiver(c.Receiver, tc.BitCount, tc.GroundTruth)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: %w", err)
	}
	tx, err := transmitter.New(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: %w", err)
	}

	var trackers []tracker.Tracker
	if c.RewardFile != "" {
		every := c.RewardEvery
		if every < 1 {
			every = 1
		}
		r, err := tracker.NewReward(c.RewardFile, every)
		if err != nil {
			return nil, nil, fmt.Errorf("createExp: %w", err)
		}
		trackers = append(trackers, r)
	}

	var checkpointers []checkpointer.Checkpointer
	if c.CheckpointPattern != "" {
		check, err := checkpointer.NewNStep(c.CheckpointEvery, tx,
			checkpointer.FilenamePattern(0, c.CheckpointPattern))
		if err != nil {
			return nil, nil, fmt.Errorf("createExp: %w", err)
		}
		checkpointers = append(checkpointers, check)
	}

	var reporters []Reporter
	if c.DiagramPattern != "" {
		r, err := NewDiagramReporter(c.DiagramEvery, tx,
			constellation.NewDiagram(c.DiagramPattern))
		if err != nil {
			return nil, nil, fmt.Errorf("createExp: %w", err)
		}
		reporters = append(reporters, r)
	}

	exp, err := NewOnline(tx, Identity{}, rx, c.BatchSize, c.Iterations,
		c.Seed, trackers, checkpointers, reporters)
	if err != nil {
		return nil, nil, fmt.Errorf("createExp: %w", err)
	}
	return exp, tx, nil
}
