package transmitter

import (
	"fmt"

	"github.com/samuelfneumann/neuraltx/constellation"
	"github.com/samuelfneumann/neuraltx/initwfn"
	"github.com/samuelfneumann/neuraltx/network"
	"github.com/samuelfneumann/neuraltx/reward"
	"github.com/samuelfneumann/neuraltx/solver"
	"gonum.org/v1/gonum/mat"
)

// Config describes a Transmitter.
//
// Zero-valued optional fields are filled in by New: Solver defaults to
// Adam with step size StepSize, the initializers default to
// column-normalized weights (scale 1.0 for hidden layers and 0.2 for
// the heads) with hidden biases 0.1 and head biases 0.0, Penalty
// defaults to a Lasso penalty with power weight LambdaPower, and
// Preamble defaults to PreambleLength random bit-vectors.
type Config struct {
	BitCount    int
	HiddenSizes []int
	Activations []*network.Activation

	StepSize      float64
	LambdaPower   float64
	InitialLogStd float64
	MinStd        float64

	Solver      *solver.Solver
	HiddenInit  *initwfn.InitWFn
	HiddenBias  *initwfn.InitWFn
	HeadInit    *initwfn.InitWFn
	HeadBias    *initwfn.InitWFn
	PreambleLen int

	// Seeds the weight initializers, action sampling, and preamble
	Seed uint64

	Preamble    *mat.Dense          `json:"-"`
	GroundTruth constellation.Table `json:"-"`
	Penalty     reward.Penalty      `json:"-"`
}

// DefaultConfig returns the default configuration of a Transmitter of
// bitCount bits, referenced against constellation.Reference(bitCount).
func DefaultConfig(bitCount int) Config {
	c := Config{
		BitCount:      bitCount,
		HiddenSizes:   []int{32, 20},
		StepSize:      1e-2,
		LambdaPower:   0.1,
		InitialLogStd: -2,
		MinStd:        1e-6,
		PreambleLen:   1000,
	}
	if truth, err := constellation.Reference(bitCount); err == nil {
		c.GroundTruth = truth
	}
	return c
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	if c.BitCount < 1 {
		return fmt.Errorf("validate: bit count must be positive "+
			"\n\thave(%v)", c.BitCount)
	}
	if c.StepSize <= 0 && c.Solver == nil {
		return fmt.Errorf("validate: step size must be positive "+
			"\n\thave(%v)", c.StepSize)
	}
	if c.LambdaPower < 0 {
		return fmt.Errorf("validate: power penalty must be non-negative "+
			"\n\thave(%v)", c.LambdaPower)
	}
	if c.MinStd < 0 {
		return fmt.Errorf("validate: minimum standard deviation must be "+
			"non-negative \n\thave(%v)", c.MinStd)
	}
	if c.Preamble != nil {
		if _, cols := c.Preamble.Dims(); cols != c.BitCount {
			return fmt.Errorf("validate: preamble must have %v columns "+
				"\n\thave(%v)", c.BitCount, cols)
		}
	} else if c.PreambleLen < 0 {
		return fmt.Errorf("validate: preamble length must be "+
			"non-negative \n\thave(%v)", c.PreambleLen)
	}
	if err := c.GroundTruth.Validate(c.BitCount); err != nil {
		return fmt.Errorf("validate: ground truth: %w", err)
	}
	return c.architecture().Validate()
}

// architecture returns the architecture of the policy network
func (c Config) architecture() network.Architecture {
	return network.Architecture{
		Features:    c.BitCount,
		HiddenSizes: c.HiddenSizes,
		Activations: c.Activations,
		Heads:       2,
	}
}

// withDefaults returns a copy of c with all optional fields set
func (c Config) withDefaults() (Config, error) {
	var err error
	if c.Solver == nil {
		// The surrogate objective is already averaged over the batch
		c.Solver, err = solver.NewDefaultAdam(c.StepSize, 1)
	} else {
		c.Solver, err = c.Solver.Fresh()
	}
	if err != nil {
		return c, err
	}

	c.HiddenInit, err = freshOr(c.HiddenInit, func() (*initwfn.InitWFn,
		error) {
		return initwfn.NewNormC(1.0, c.Seed)
	})
	if err != nil {
		return c, err
	}
	c.HiddenBias, err = freshOr(c.HiddenBias, func() (*initwfn.InitWFn,
		error) {
		return initwfn.NewConstant(0.1)
	})
	if err != nil {
		return c, err
	}
	c.HeadInit, err = freshOr(c.HeadInit, func() (*initwfn.InitWFn, error) {
		return initwfn.NewNormC(0.2, c.Seed+1)
	})
	if err != nil {
		return c, err
	}
	c.HeadBias, err = freshOr(c.HeadBias, initwfn.NewZeroes)
	if err != nil {
		return c, err
	}

	if c.Penalty == nil {
		if c.Penalty, err = reward.NewLasso(c.LambdaPower); err != nil {
			return c, err
		}
	}

	if c.Preamble == nil && c.PreambleLen > 0 {
		c.Preamble, err = constellation.NewPreamble(c.PreambleLen,
			c.BitCount, c.Seed+2)
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

// freshOr returns a fresh copy of init, or the result of def if init is
// nil
func freshOr(init *initwfn.InitWFn,
	def func() (*initwfn.InitWFn, error)) (*initwfn.InitWFn, error) {
	if init == nil {
		return def()
	}
	return init.Fresh()
}
