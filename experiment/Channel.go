package experiment

import (
	"fmt"
	"math/cmplx"

	"github.com/samuelfneumann/neuraltx/constellation"
	"gonum.org/v1/gonum/mat"
)

// Channel carries transmitted (re, im) symbols, one per row, to a
// receiver
type Channel interface {
	Carry(symbols mat.Matrix) (*mat.Dense, error)
}

// Identity is a Channel which delivers symbols unchanged
type Identity struct{}

// Carry implements the Channel interface
func (Identity) Carry(symbols mat.Matrix) (*mat.Dense, error) {
	if _, c := symbols.Dims(); c != 2 {
		return nil, fmt.Errorf("carry: symbols must have 2 columns "+
			"\n\thave(%v)", c)
	}
	return mat.DenseCopyOf(symbols), nil
}

// Receiver recovers the bits of received (re, im) symbols, one
// bit-vector per row
type Receiver interface {
	Receive(symbols mat.Matrix) (*mat.Dense, error)
}

// ReceiverType describes the receivers an experiment can use
type ReceiverType string

// Available receiver types
const (
	// NearestReceiver decides bits against the ground truth
	// constellation
	NearestReceiver ReceiverType = "nearest"

	// IdentityReceiver observes the received symbols themselves. It is
	// only available for 2-bit transmitters.
	IdentityReceiver ReceiverType = "identity"
)

// NewReceiver returns the Receiver of type rx for a transmitter of
// bitCount bits. The ground truth constellation table is only used by
// the nearest receiver. An empty type selects the nearest receiver.
func NewReceiver(rx ReceiverType, bitCount int,
	table constellation.Table) (Receiver, error) {
	switch rx {
	case NearestReceiver, "":
		if table == nil {
			return nil, fmt.Errorf("newReceiver: a ground truth " +
				"constellation is required for the nearest receiver")
		}
		return NewNearest(table)

	case IdentityReceiver:
		if bitCount != 2 {
			return nil, fmt.Errorf("newReceiver: identity receiver "+
				"requires 2 bits per symbol \n\thave(%v)", bitCount)
		}
		return Passthrough{}, nil
	}
	return nil, fmt.Errorf("newReceiver: no such receiver type %q", rx)
}

// Passthrough is a Receiver which observes the received (re, im)
// symbols unchanged
type Passthrough struct{}

// Receive implements the Receiver interface
func (Passthrough) Receive(symbols mat.Matrix) (*mat.Dense, error) {
	if _, c := symbols.Dims(); c != 2 {
		return nil, fmt.Errorf("receive: symbols must have 2 columns "+
			"\n\thave(%v)", c)
	}
	return mat.DenseCopyOf(symbols), nil
}

// Nearest is a Receiver that decides each symbol as the bits of the
// nearest symbol of a fixed reference constellation
type Nearest struct {
	bits    [][]float64
	symbols []complex128
}

// NewNearest returns a Receiver deciding symbols against table
func NewNearest(table constellation.Table) (*Nearest, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("newNearest: empty constellation")
	}
	if err := table.Validate(table.BitCount()); err != nil {
		return nil, fmt.Errorf("newNearest: %w", err)
	}

	n := &Nearest{}
	for _, label := range table.Labels() {
		bits, err := constellation.FromLabel(label)
		if err != nil {
			return nil, fmt.Errorf("newNearest: %w", err)
		}
		n.bits = append(n.bits, bits)
		n.symbols = append(n.symbols, table[label])
	}
	return n, nil
}

// Receive implements the Receiver interface
func (n *Nearest) Receive(symbols mat.Matrix) (*mat.Dense, error) {
	rows, cols := symbols.Dims()
	if cols != 2 {
		return nil, fmt.Errorf("receive: symbols must have 2 columns "+
			"\n\thave(%v)", cols)
	}

	bits := mat.NewDense(rows, len(n.bits[0]), nil)
	for i := 0; i < rows; i++ {
		s := complex(symbols.At(i, 0), symbols.At(i, 1))

		best, bestDist := 0, cmplx.Abs(s-n.symbols[0])
		for j := 1; j < len(n.symbols); j++ {
			if dist := cmplx.Abs(s - n.symbols[j]); dist < bestDist {
				best, bestDist = j, dist
			}
		}
		bits.SetRow(i, n.bits[best])
	}
	return bits, nil
}
