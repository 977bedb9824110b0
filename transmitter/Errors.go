package transmitter

import (
	"errors"

	"github.com/samuelfneumann/neuraltx/policy"
	"github.com/samuelfneumann/neuraltx/reward"
)

// Error implements errors reported by a Transmitter
type Error struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrShapeMismatch reports inputs of the wrong number of columns, or
	// observed bits which do not match the shape of an Experience
	ErrShapeMismatch = reward.ErrShapeMismatch

	// ErrUninitialized reports an update without a usable Experience
	ErrUninitialized = errors.New("no experience recorded")

	// ErrNumericalDegeneracy reports non-finite values or a collapsed
	// standard deviation
	ErrNumericalDegeneracy = policy.ErrNumericalDegeneracy

	// ErrGraph reports a failure inside the policy's computational graph
	ErrGraph = policy.ErrGraph

	// ErrInvalidBits reports input bits outside {-1, +1}
	ErrInvalidBits = errors.New("bits must be -1 or +1")
)

// IsShapeMismatch returns whether err reports a shape mismatch
func IsShapeMismatch(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}

// IsUninitialized returns whether err reports a missing Experience
func IsUninitialized(err error) bool {
	return errors.Is(err, ErrUninitialized)
}

// IsNumericalDegeneracy returns whether err reports a numerical
// degeneracy
func IsNumericalDegeneracy(err error) bool {
	return errors.Is(err, ErrNumericalDegeneracy)
}

// IsInvalidBits returns whether err reports invalid input bits
func IsInvalidBits(err error) bool {
	return errors.Is(err, ErrInvalidBits)
}
