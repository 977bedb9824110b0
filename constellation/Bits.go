// Package constellation implements reference data for learned
// modulation schemes: enumeration and generation of bit-vectors,
// ground-truth constellation tables, and rendering of constellation
// diagrams.
//
// Bits are represented throughout as -1 and +1 and displayed as the
// labels 0 and 1 respectively.
package constellation

import (
	"fmt"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// AllBitVectors returns a 2^bitCount x bitCount matrix holding every
// bit-vector of length bitCount, in lexicographic order with -1 < +1
// and the first column most significant.
func AllBitVectors(bitCount int) (*mat.Dense, error) {
	if bitCount < 1 || bitCount > 16 {
		return nil, fmt.Errorf("allBitVectors: bit count must be in "+
			"[1, 16] \n\thave(%v)", bitCount)
	}

	rows := 1 << bitCount
	bits := mat.NewDense(rows, bitCount, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < bitCount; j++ {
			if i&(1<<(bitCount-1-j)) != 0 {
				bits.Set(i, j, 1)
			} else {
				bits.Set(i, j, -1)
			}
		}
	}
	return bits, nil
}

// Label returns the label of a bit-vector, e.g. [-1 1 1] -> "011"
func Label(bits []float64) string {
	var label strings.Builder
	for _, b := range bits {
		if b > 0 {
			label.WriteByte('1')
		} else {
			label.WriteByte('0')
		}
	}
	return label.String()
}

// FromLabel returns the bit-vector of a label, e.g. "011" -> [-1 1 1]
func FromLabel(label string) ([]float64, error) {
	bits := make([]float64, len(label))
	for i, c := range label {
		switch c {
		case '0':
			bits[i] = -1
		case '1':
			bits[i] = 1
		default:
			return nil, fmt.Errorf("fromLabel: invalid character %q in "+
				"label %q", c, label)
		}
	}
	return bits, nil
}

// Labels returns the label of each row of bits
func Labels(bits mat.Matrix) []string {
	rows, cols := bits.Dims()
	labels := make([]string, rows)
	row := make([]float64, cols)
	for i := range labels {
		mat.Row(row, i, bits)
		labels[i] = Label(row)
	}
	return labels
}

// Generator generates batches of uniformly random bit-vectors
type Generator struct {
	bitCount int
	dist     distuv.Bernoulli
}

// NewGenerator returns a new Generator of bit-vectors of length
// bitCount, seeded with seed.
func NewGenerator(bitCount int, seed uint64) (*Generator, error) {
	if bitCount < 1 {
		return nil, fmt.Errorf("newGenerator: bit count must be positive "+
			"\n\thave(%v)", bitCount)
	}
	return &Generator{
		bitCount: bitCount,
		dist:     distuv.Bernoulli{P: 0.5, Src: rand.NewSource(seed)},
	}, nil
}

// BitCount returns the length of generated bit-vectors
func (g *Generator) BitCount() int {
	return g.bitCount
}

// Next returns a rows x BitCount() matrix of random bit-vectors
func (g *Generator) Next(rows int) *mat.Dense {
	data := make([]float64, rows*g.bitCount)
	for i := range data {
		data[i] = 2*g.dist.Rand() - 1
	}
	return mat.NewDense(rows, g.bitCount, data)
}

// NewPreamble returns a fixed, reproducible batch of rows random
// bit-vectors of length bitCount. Equal seeds produce equal preambles.
func NewPreamble(rows, bitCount int, seed uint64) (*mat.Dense, error) {
	if rows < 1 {
		return nil, fmt.Errorf("newPreamble: preamble must have at least "+
			"one row \n\thave(%v)", rows)
	}
	gen, err := NewGenerator(bitCount, seed)
	if err != nil {
		return nil, fmt.Errorf("newPreamble: %w", err)
	}
	return gen.Next(rows), nil
}
