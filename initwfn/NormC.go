package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NormCConfig implements a configuration of the column-normalized
// Gaussian initializer. Weights are first drawn from N(0, 1), then each
// column of the weight matrix is rescaled so that its Euclidean norm
// equals Scale. Small scales keep the outputs of a layer close to zero
// at the start of training.
//
// The initializer draws from its own source seeded with Seed, so that
// two initializers created from equal configs produce equal weights.
type NormCConfig struct {
	Scale float64
	Seed  uint64
}

// NewNormC returns a new column-normalized weight initializer
func NewNormC(scale float64, seed uint64) (*InitWFn, error) {
	if scale < 0 {
		return nil, fmt.Errorf("newNormC: scale must be non-negative "+
			"\n\thave(%v)", scale)
	}
	return newInitWFn(NormCConfig{Scale: scale, Seed: seed})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (n NormCConfig) Type() Type {
	return NormC
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (n NormCConfig) Create() G.InitWFn {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(n.Seed)}
	scale := n.Scale

	return func(dt tensor.Dtype, s ...int) interface{} {
		if dt != tensor.Float64 {
			panic(fmt.Sprintf("normC: dtype %v not supported", dt))
		}

		rows, cols := 1, 1
		switch len(s) {
		case 0:
		case 1:
			rows = s[0]
		default:
			rows = s[0]
			cols = tensor.Shape(s[1:]).TotalSize()
		}

		weights := make([]float64, rows*cols)
		for i := range weights {
			weights[i] = normal.Rand()
		}

		for j := 0; j < cols; j++ {
			var sumSq float64
			for i := 0; i < rows; i++ {
				w := weights[i*cols+j]
				sumSq += w * w
			}
			norm := math.Sqrt(sumSq)
			if norm == 0 {
				continue
			}
			for i := 0; i < rows; i++ {
				weights[i*cols+j] *= scale / norm
			}
		}

		return weights
	}
}
