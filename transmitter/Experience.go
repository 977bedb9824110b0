package transmitter

import "gonum.org/v1/gonum/mat"

// Experience records the inputs and sampled actions of a single call
// to Transmit, to be used by a later call to Update. An Experience is
// immutable and may be used for any number of updates.
type Experience struct {
	owner   *Transmitter
	inputs  *mat.Dense // N x bitCount
	actions *mat.Dense // N x 2, (re, im) per row
}

// Len returns the number of samples in the Experience
func (e *Experience) Len() int {
	if e == nil || e.inputs == nil {
		return 0
	}
	r, _ := e.inputs.Dims()
	return r
}

// Inputs returns a copy of the recorded input bits
func (e *Experience) Inputs() *mat.Dense {
	return mat.DenseCopyOf(e.inputs)
}

// Actions returns a copy of the recorded (re, im) actions
func (e *Experience) Actions() *mat.Dense {
	return mat.DenseCopyOf(e.actions)
}
