// Package policy implements a Gaussian policy over 2-D symbol
// coordinates parameterized by a tree MLP with two heads, one for the
// mean of the real part and one for the mean of the imaginary part.
// The standard deviations of both parts are global, learned in log
// space and shared by every input.
package policy

import (
	"errors"
	"fmt"
	"math"

	"github.com/samuelfneumann/neuraltx/network"
	"github.com/samuelfneumann/neuraltx/utils/floatutils"
)

// ErrNumericalDegeneracy is reported when a policy computation produces
// non-finite values or a collapsed standard deviation.
var ErrNumericalDegeneracy = errors.New("numerical degeneracy")

// ErrGraph is reported when constructing or running the computational
// graph of a policy fails inside Gorgonia.
var ErrGraph = errors.New("computational graph failure")

// Parameters holds everything a Gaussian policy learns: the weights of
// the mean network and the log standard deviations of the real and
// imaginary parts.
type Parameters struct {
	Net    *network.Weights
	LogStd [2]float64
}

// NewParameters allocates and initializes policy parameters.
func NewParameters(arch network.Architecture, root,
	leaf network.LayerInit, initialLogStd float64) (*Parameters, error) {
	w, err := arch.NewWeights(root, leaf)
	if err != nil {
		return nil, fmt.Errorf("newParameters: %w", err)
	}
	return &Parameters{
		Net:    w,
		LogStd: [2]float64{initialLogStd, initialLogStd},
	}, nil
}

// Clone returns a deep copy of the parameters
func (p *Parameters) Clone() *Parameters {
	return &Parameters{Net: p.Net.Clone(), LogStd: p.LogStd}
}

// StdDev returns the standard deviations of the real and imaginary
// parts.
func (p *Parameters) StdDev() [2]float64 {
	return [2]float64{math.Exp(p.LogStd[0]), math.Exp(p.LogStd[1])}
}

// Validate returns an error wrapping ErrNumericalDegeneracy if any
// parameter is non-finite or a standard deviation is below minStd.
func (p *Parameters) Validate(minStd float64) error {
	if !p.Net.Finite() {
		return fmt.Errorf("validate: %w: non-finite network weights",
			ErrNumericalDegeneracy)
	}
	if !floatutils.AllFinite(p.LogStd[:]...) {
		return fmt.Errorf("validate: %w: non-finite log standard "+
			"deviation %v", ErrNumericalDegeneracy, p.LogStd)
	}
	if std := p.StdDev(); floatutils.Min(std[:]...) < minStd {
		return fmt.Errorf("validate: %w: standard deviation %v below %v",
			ErrNumericalDegeneracy, std, minStd)
	}
	return nil
}

// MaxAbsDiff returns the largest absolute difference between any two
// corresponding parameters of p and other.
func (p *Parameters) MaxAbsDiff(other *Parameters) (float64, error) {
	max, err := p.Net.MaxAbsDiff(other.Net)
	if err != nil {
		return 0, err
	}
	for i := range p.LogStd {
		max = math.Max(max, math.Abs(p.LogStd[i]-other.LogStd[i]))
	}
	return max, nil
}
