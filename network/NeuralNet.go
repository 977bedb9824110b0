// Package network implements the neural network function approximators
// used by policies. Networks are built on Gorgonia expression graphs for
// a fixed batch size, while their weights live in a graph-independent
// Weights container so that the same parameters can be loaded into
// graphs of different batch sizes.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass has been added to a
// computational graph.
type NeuralNet interface {
	BatchSize() int
	SetInput([]float64) error

	// Load copies weights into the learnable nodes of the network and
	// Weights copies them back out.
	Load(*Weights) error
	Weights() (*Weights, error)

	Learnables() G.Nodes
	Output() []G.Value
	Prediction() []*G.Node
}
