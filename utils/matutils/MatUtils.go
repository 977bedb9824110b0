// Package matutils implements utility function for working with mat.Matrix
// structs
package matutils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// MinSeparation returns the smallest Euclidean distance between any
// two rows of a matrix, or +Inf if it has fewer than two rows
func MinSeparation(points mat.Matrix) float64 {
	r, c := points.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(make([]float64, c), i, points)
	}

	min := math.Inf(1)
	for i := 0; i < r; i++ {
		for j := i + 1; j < r; j++ {
			min = math.Min(min, floats.Distance(rows[i], rows[j], 2))
		}
	}
	return min
}

// MeanPower returns the mean squared Euclidean norm of the rows of a
// matrix
func MeanPower(points mat.Matrix) float64 {
	r, c := points.Dims()
	power := make([]float64, r)
	row := make([]float64, c)
	for i := range power {
		mat.Row(row, i, points)
		power[i] = floats.Dot(row, row)
	}
	return stat.Mean(power, nil)
}
