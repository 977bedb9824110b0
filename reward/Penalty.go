// Package reward implements per-sample penalties of transmitted
// symbols. The advantage of a sample used to update a transmitter is
// the negative of its penalty.
package reward

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is reported when the inputs, actions, or observed
// bits of a batch do not agree in shape.
var ErrShapeMismatch = errors.New("shape mismatch")

// Penalty computes a non-negative penalty for each sample of a batch.
//
// inputs holds one bit-vector in {-1, +1} per row, actions holds the
// (re, im) symbol transmitted for each row, and observed holds the
// bits recovered by the receiver for each row.
type Penalty interface {
	Penalty(inputs, actions, observed mat.Matrix) ([]float64, error)
}

// Lasso penalizes bit errors with the L1 distance between the input
// and observed bits, and penalizes transmit power with LambdaP times
// the squared magnitude of the symbol:
//
//	‖b - observed‖₁ + LambdaP * (re² + im²)
type Lasso struct {
	LambdaP float64
}

// NewLasso returns a new Lasso penalty
func NewLasso(lambdaP float64) (Lasso, error) {
	if lambdaP < 0 {
		return Lasso{}, fmt.Errorf("newLasso: power penalty must be "+
			"non-negative \n\thave(%v)", lambdaP)
	}
	return Lasso{LambdaP: lambdaP}, nil
}

// Penalty implements the Penalty interface
func (l Lasso) Penalty(inputs, actions, observed mat.Matrix) ([]float64,
	error) {
	rows, cols := inputs.Dims()
	if r, c := actions.Dims(); r != rows || c != 2 {
		return nil, fmt.Errorf("penalty: %w: actions must be %v x 2 "+
			"\n\thave(%v x %v)", ErrShapeMismatch, rows, r, c)
	}
	if r, c := observed.Dims(); r != rows || c != cols {
		return nil, fmt.Errorf("penalty: %w: observed bits must be %v x "+
			"%v \n\thave(%v x %v)", ErrShapeMismatch, rows, cols, r, c)
	}

	penalty := make([]float64, rows)
	for i := range penalty {
		var bitErr float64
		for j := 0; j < cols; j++ {
			bitErr += math.Abs(inputs.At(i, j) - observed.At(i, j))
		}

		re, im := actions.At(i, 0), actions.At(i, 1)
		penalty[i] = bitErr + l.LambdaP*(re*re+im*im)
	}
	return penalty, nil
}

// Advantages returns the negated penalties of a batch
func Advantages(p Penalty, inputs, actions, observed mat.Matrix) ([]float64,
	error) {
	penalty, err := p.Penalty(inputs, actions, observed)
	if err != nil {
		return nil, fmt.Errorf("advantages: %w", err)
	}
	rows, _ := inputs.Dims()
	if len(penalty) != rows {
		return nil, fmt.Errorf("advantages: %w: penalty returned %v "+
			"values for %v samples", ErrShapeMismatch, len(penalty), rows)
	}

	adv := make([]float64, len(penalty))
	for i, p := range penalty {
		adv[i] = -p
	}
	return adv, nil
}
