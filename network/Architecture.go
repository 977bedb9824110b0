package network

import (
	"fmt"
)

// Architecture describes a tree MLP: a root stack of fully connected
// hidden layers followed by Heads parallel linear output layers that
// each predict a single value per sample.
//
//	Input ─→ Hidden layers ─┬─→ Head 1 ─→ Output
//	                        ├─→ ...
//	                        ╰─→ Head N ─→ Output
//
// If Activations is empty, every hidden layer uses a ReLU.
type Architecture struct {
	Features    int
	HiddenSizes []int
	Activations []*Activation `json:",omitempty"`
	Heads       int
}

// Validate checks that the architecture describes a constructable
// network.
func (a Architecture) Validate() error {
	if a.Features < 1 {
		return fmt.Errorf("validate: network must have at least one "+
			"input feature \n\thave(%v)", a.Features)
	}
	if a.Heads < 1 {
		return fmt.Errorf("validate: network must have at least one "+
			"output head \n\thave(%v)", a.Heads)
	}
	for i, size := range a.HiddenSizes {
		if size < 1 {
			return fmt.Errorf("validate: hidden layer %v must have at "+
				"least one unit \n\thave(%v)", i, size)
		}
	}
	if len(a.Activations) != 0 && len(a.Activations) != len(a.HiddenSizes) {
		msg := "validate: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return fmt.Errorf(msg, len(a.HiddenSizes), len(a.Activations))
	}
	for i, act := range a.Activations {
		if act == nil {
			return fmt.Errorf("validate: nil activation for layer %v", i)
		}
	}
	return nil
}

// activation returns the activation of hidden layer i
func (a Architecture) activation(i int) *Activation {
	if len(a.Activations) == 0 {
		return ReLU()
	}
	return a.Activations[i]
}

// Shapes returns the shapes of all learnable tensors in the order
// weights, bias for each hidden layer followed by weights, bias for
// each head.
func (a Architecture) Shapes() [][]int {
	shapes := make([][]int, 0, 2*(len(a.HiddenSizes)+a.Heads))

	in := a.Features
	for _, out := range a.HiddenSizes {
		shapes = append(shapes, []int{in, out}, []int{1, out})
		in = out
	}
	for i := 0; i < a.Heads; i++ {
		shapes = append(shapes, []int{in, 1}, []int{1, 1})
	}
	return shapes
}

// NewWeights allocates the weights of a network with this architecture.
// Hidden layers are initialized with root and the output heads with
// leaf.
func (a Architecture) NewWeights(root, leaf LayerInit) (*Weights, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("newWeights: %w", err)
	}

	shapes := a.Shapes()
	values := make([][]float64, len(shapes))
	numRoot := 2 * len(a.HiddenSizes)

	for i, shape := range shapes {
		init := root
		if i >= numRoot {
			init = leaf
		}

		layerInit := init.Weights
		if i%2 == 1 {
			layerInit = init.Bias
		}

		w, err := layerInit.Float64s(shape...)
		if err != nil {
			return nil, fmt.Errorf("newWeights: tensor %v: %w", i, err)
		}
		if len(w) != size(shape) {
			return nil, fmt.Errorf("newWeights: tensor %v: initializer "+
				"returned %v values for shape %v", i, len(w), shape)
		}
		values[i] = w
	}

	return &Weights{Shapes: shapes, Values: values}, nil
}
