package network

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/neuraltx/initwfn"
	"github.com/samuelfneumann/neuraltx/utils/floatutils"
	"gonum.org/v1/gonum/floats"
)

// Weights holds the values of every learnable node of a network,
// independent of any computational graph. Values[i] is stored in row
// major order and has shape Shapes[i].
type Weights struct {
	Shapes [][]int
	Values [][]float64
}

// LayerInit determines how the weights and biases of a group of layers
// are initialized.
type LayerInit struct {
	Weights *initwfn.InitWFn
	Bias    *initwfn.InitWFn
}

// Len returns the number of weight tensors
func (w *Weights) Len() int {
	return len(w.Values)
}

// Clone returns a deep copy of the weights
func (w *Weights) Clone() *Weights {
	shapes := make([][]int, len(w.Shapes))
	values := make([][]float64, len(w.Values))
	for i := range w.Values {
		shapes[i] = append([]int(nil), w.Shapes[i]...)
		values[i] = append([]float64(nil), w.Values[i]...)
	}
	return &Weights{Shapes: shapes, Values: values}
}

// Compatible returns an error if other does not have the same layout
// as w.
func (w *Weights) Compatible(other *Weights) error {
	if other == nil {
		return fmt.Errorf("compatible: nil weights")
	}
	if len(w.Shapes) != len(other.Shapes) {
		return fmt.Errorf("compatible: wrong number of weight tensors "+
			"\n\twant(%v) \n\thave(%v)", len(w.Shapes), len(other.Shapes))
	}
	if len(other.Values) != len(other.Shapes) {
		return fmt.Errorf("compatible: %v value tensors for %v shapes",
			len(other.Values), len(other.Shapes))
	}
	for i := range w.Shapes {
		if !sameShape(w.Shapes[i], other.Shapes[i]) {
			return fmt.Errorf("compatible: tensor %v has wrong shape "+
				"\n\twant(%v) \n\thave(%v)", i, w.Shapes[i], other.Shapes[i])
		}
		if len(other.Values[i]) != size(other.Shapes[i]) {
			return fmt.Errorf("compatible: tensor %v has %v values for "+
				"shape %v", i, len(other.Values[i]), other.Shapes[i])
		}
	}
	return nil
}

// Finite returns whether all weights are finite
func (w *Weights) Finite() bool {
	for _, v := range w.Values {
		if !floatutils.AllFinite(v...) {
			return false
		}
	}
	return true
}

// MaxAbsDiff returns the largest absolute element-wise difference
// between w and other, which must be compatible.
func (w *Weights) MaxAbsDiff(other *Weights) (float64, error) {
	if err := w.Compatible(other); err != nil {
		return 0, fmt.Errorf("maxAbsDiff: %w", err)
	}
	if err := other.Compatible(w); err != nil {
		return 0, fmt.Errorf("maxAbsDiff: %w", err)
	}
	var max float64
	for i := range w.Values {
		if d := floats.Distance(w.Values[i], other.Values[i], math.Inf(1)); d > max {
			max = d
		}
	}
	return max, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
