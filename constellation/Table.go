package constellation

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

// Table maps bit-vector labels to the symbol they are modulated to
type Table map[string]complex128

// QPSK returns the Gray-coded QPSK constellation with unit average
// power: bit 0 maps to +1/√2 and bit 1 to -1/√2 on each axis.
func QPSK() Table {
	a := 1 / math.Sqrt2
	return Table{
		"00": complex(a, a),
		"01": complex(a, -a),
		"10": complex(-a, a),
		"11": complex(-a, -a),
	}
}

// BitCount returns the length of the bit-vectors in the table, or 0
// if the table is empty.
func (t Table) BitCount() int {
	for label := range t {
		return len(label)
	}
	return 0
}

// Validate checks that every label of the table is a valid label of
// a bit-vector of length bitCount
func (t Table) Validate(bitCount int) error {
	for label := range t {
		if len(label) != bitCount {
			return fmt.Errorf("validate: label %q does not have %v bits",
				label, bitCount)
		}
		if _, err := FromLabel(label); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	return nil
}

// Labels returns the labels of the table in sorted order
func (t Table) Labels() []string {
	labels := make([]string, 0, len(t))
	for label := range t {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// AveragePower returns the mean squared magnitude of the symbols
func (t Table) AveragePower() float64 {
	if len(t) == 0 {
		return 0
	}
	var power float64
	for _, s := range t {
		power += real(s)*real(s) + imag(s)*imag(s)
	}
	return power / float64(len(t))
}

// PSK returns a Gray-coded phase shift keying constellation of
// 2^bitCount unit-power symbols, rotated so that no symbol lies on an
// axis.
func PSK(bitCount int) (Table, error) {
	if bitCount < 1 || bitCount > 16 {
		return nil, fmt.Errorf("psk: bit count must be in [1, 16] "+
			"\n\thave(%v)", bitCount)
	}

	m := 1 << bitCount
	t := make(Table, m)
	for k := 0; k < m; k++ {
		gray := k ^ (k >> 1)
		label := fmt.Sprintf("%0*b", bitCount, gray)

		angle := 2*math.Pi*float64(k)/float64(m) + math.Pi/float64(m)
		t[label] = cmplx.Rect(1, angle)
	}
	return t, nil
}

// Reference returns the reference constellation of bitCount bits: QPSK
// for 2 bits and Gray-coded PSK otherwise.
func Reference(bitCount int) (Table, error) {
	if bitCount == 2 {
		return QPSK(), nil
	}
	return PSK(bitCount)
}
