package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TreeMLP implements a multi-layered perceptron with a root network of
// hidden layers whose output is fed to a number of linear leaf layers
// (heads), each predicting one value per sample. See Architecture for
// a diagram.
//
// The prediction of head i is an N x 1 matrix, where N is the batch
// size.
type TreeMLP struct {
	input     *G.Node
	root      []*fcLayer
	leaves    []*fcLayer
	arch      Architecture
	batchSize int

	// Store learnables so that they don't need to be computed each time
	// a gradient step is taken
	learnables G.Nodes

	predVal    []G.Value // Values predicted by each head
	prediction []*G.Node // Nodes holding the predictions
}

// NewTreeMLP adds a TreeMLP with the argument architecture to the
// graph g. The network takes batch samples as input. All learnables
// are initialized to zero; use Load to set their values.
func NewTreeMLP(g *G.ExprGraph, batch int, arch Architecture) (*TreeMLP,
	error) {
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("newTreeMLP: %w", err)
	}
	if batch < 1 {
		return nil, fmt.Errorf("newTreeMLP: batch size must be positive "+
			"\n\thave(%v)", batch)
	}

	// Set up the input node
	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, arch.Features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	shapes := arch.Shapes()
	newLayer := func(i int, name string, act *Activation) *fcLayer {
		weights := G.NewMatrix(g, tensor.Float64, G.WithShape(shapes[i]...),
			G.WithName(name+"W"), G.WithInit(G.Zeroes()))
		bias := G.NewMatrix(g, tensor.Float64, G.WithShape(shapes[i+1]...),
			G.WithName(name+"B"), G.WithInit(G.Zeroes()))
		return &fcLayer{weights: weights, bias: bias, act: act}
	}

	root := make([]*fcLayer, len(arch.HiddenSizes))
	for i := range root {
		root[i] = newLayer(2*i, fmt.Sprintf("Root%d", i), arch.activation(i))
	}

	leaves := make([]*fcLayer, arch.Heads)
	for i := range leaves {
		leaves[i] = newLayer(2*(len(root)+i), fmt.Sprintf("Leaf%d", i),
			Identity())
	}

	net := &TreeMLP{
		input:     input,
		root:      root,
		leaves:    leaves,
		arch:      arch,
		batchSize: batch,
	}

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newTreeMLP: could not compute forward "+
			"pass: %w", err)
	}
	return net, nil
}

// fwd adds the forward pass of the TreeMLP to its graph
func (t *TreeMLP) fwd() error {
	pred := t.input
	var err error
	for i, l := range t.root {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"root layer %v: %w", i, err)
		}
	}

	t.prediction = make([]*G.Node, len(t.leaves))
	for i, l := range t.leaves {
		if t.prediction[i], err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"head %v: %w", i, err)
		}
	}

	t.predVal = make([]G.Value, len(t.prediction))
	for i, p := range t.prediction {
		G.Read(p, &t.predVal[i])
	}
	return nil
}

// BatchSize returns the batch size for inputs to the network
func (t *TreeMLP) BatchSize() int {
	return t.batchSize
}

// SetInput sets the value of the input node before running the forward
// pass. Inputs should be given in row major order.
func (t *TreeMLP) SetInput(input []float64) error {
	if len(input) != t.arch.Features*t.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", t.arch.Features*t.batchSize, len(input))
	}

	inputTensor := tensor.New(
		tensor.WithBacking(append([]float64(nil), input...)),
		tensor.WithShape(t.input.Shape()...),
	)
	return G.Let(t.input, inputTensor)
}

// Load copies the argument weights into the learnable nodes of the
// network.
func (t *TreeMLP) Load(w *Weights) error {
	expected := Weights{Shapes: t.arch.Shapes()}
	if err := expected.Compatible(w); err != nil {
		return fmt.Errorf("load: %w", err)
	}

	for i, node := range t.Learnables() {
		data, err := Backing(node)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		copy(data, w.Values[i])
	}
	return nil
}

// Weights returns a copy of the current values of the network's
// learnable nodes.
func (t *TreeMLP) Weights() (*Weights, error) {
	shapes := t.arch.Shapes()
	values := make([][]float64, len(shapes))

	for i, node := range t.Learnables() {
		data, err := Backing(node)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		values[i] = append([]float64(nil), data...)
	}
	return &Weights{Shapes: shapes, Values: values}, nil
}

// Output returns the values predicted by each head after the graph
// has been run.
func (t *TreeMLP) Output() []G.Value {
	return t.predVal
}

// Prediction returns the nodes of the computational graph that store
// the output of each head.
func (t *TreeMLP) Prediction() []*G.Node {
	return t.prediction
}

// Learnables returns the learnable nodes of the network in the order
// given by Architecture.Shapes.
func (t *TreeMLP) Learnables() G.Nodes {
	// Lazy instantiation of learnables
	if t.learnables == nil {
		learnables := make(G.Nodes, 0, 2*(len(t.root)+len(t.leaves)))
		for _, l := range t.root {
			learnables = append(learnables, l.learnables()...)
		}
		for _, l := range t.leaves {
			learnables = append(learnables, l.learnables()...)
		}
		t.learnables = learnables
	}
	return t.learnables
}

// Backing returns the backing slice of the float64 tensor bound to a
// node. Writing to the returned slice changes the value of the node.
func Backing(node *G.Node) ([]float64, error) {
	value := node.Value()
	if value == nil {
		return nil, fmt.Errorf("backing: node %v has no value", node.Name())
	}

	dense, ok := value.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("backing: node %v holds %T, not a dense "+
			"tensor", node.Name(), value)
	}

	data, ok := dense.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("backing: node %v holds %T, not []float64",
			node.Name(), dense.Data())
	}
	return data, nil
}
