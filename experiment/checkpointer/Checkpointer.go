// Package checkpointer implements functionality for saving the state
// of objects during an experiment
package checkpointer

// Serializable is an object that can be saved/serialized to a file
type Serializable interface {
	Save(filename string) error
}

// Checkpointer checkpoints/saves serializable objects based on the
// iteration of an experiment
type Checkpointer interface {
	Checkpoint(iteration int) error
}
