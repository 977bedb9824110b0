package network

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/samuelfneumann/neuraltx/initwfn"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

func testArch() Architecture {
	return Architecture{
		Features:    2,
		HiddenSizes: []int{3, 4},
		Heads:       2,
	}
}

func testInit(t *testing.T) (LayerInit, LayerInit) {
	rootW, err := initwfn.NewNormC(1.0, 1)
	if err != nil {
		t.Fatal(err)
	}
	rootB, _ := initwfn.NewConstant(0.1)
	leafW, _ := initwfn.NewNormC(0.2, 2)
	leafB, _ := initwfn.NewZeroes()

	return LayerInit{Weights: rootW, Bias: rootB},
		LayerInit{Weights: leafW, Bias: leafB}
}

func TestArchitectureShapes(t *testing.T) {
	want := [][]int{{2, 3}, {1, 3}, {3, 4}, {1, 4}, {4, 1}, {1, 1}, {4, 1},
		{1, 1}}
	have := testArch().Shapes()

	if len(have) != len(want) {
		t.Fatalf("wrong number of shapes \n\twant(%v) \n\thave(%v)", want,
			have)
	}
	for i := range want {
		if !sameShape(want[i], have[i]) {
			t.Errorf("shape %v \n\twant(%v) \n\thave(%v)", i, want[i], have[i])
		}
	}
}

func TestArchitectureValidate(t *testing.T) {
	bad := []Architecture{
		{Features: 0, Heads: 2},
		{Features: 2, Heads: 0},
		{Features: 2, Heads: 2, HiddenSizes: []int{3, 0}},
		{Features: 2, Heads: 2, HiddenSizes: []int{3},
			Activations: []*Activation{ReLU(), ReLU()}},
	}
	for i, arch := range bad {
		if err := arch.Validate(); err == nil {
			t.Errorf("architecture %v: expected validation error", i)
		}
	}
}

func TestNewWeightsInit(t *testing.T) {
	root, leaf := testInit(t)
	w, err := testArch().NewWeights(root, leaf)
	if err != nil {
		t.Fatal(err)
	}

	// Hidden biases are constant 0.1, head biases zero
	for _, v := range w.Values[1] {
		if v != 0.1 {
			t.Errorf("hidden bias \n\twant(0.1) \n\thave(%v)", v)
		}
	}
	if w.Values[5][0] != 0 || w.Values[7][0] != 0 {
		t.Errorf("head biases should be zero \n\thave(%v, %v)",
			w.Values[5][0], w.Values[7][0])
	}

	// Head weight columns have norm 0.2
	for _, i := range []int{4, 6} {
		var sumSq float64
		for _, v := range w.Values[i] {
			sumSq += v * v
		}
		if math.Abs(math.Sqrt(sumSq)-0.2) > 1e-12 {
			t.Errorf("head weight norm \n\twant(0.2) \n\thave(%v)",
				math.Sqrt(sumSq))
		}
	}
}

// forward computes the TreeMLP forward pass with gonum.
func forward(w *Weights, x *mat.Dense, hidden int) []*mat.Dense {
	rows, _ := x.Dims()
	h := mat.DenseCopyOf(x)

	for l := 0; l < hidden; l++ {
		wShape, b := w.Shapes[2*l], w.Values[2*l+1]
		W := mat.NewDense(wShape[0], wShape[1], w.Values[2*l])
		next := mat.NewDense(rows, wShape[1], nil)
		next.Mul(h, W)
		next.Apply(func(i, j int, v float64) float64 {
			return math.Max(0, v+b[j])
		}, next)
		h = next
	}

	var out []*mat.Dense
	for i := 2 * hidden; i < w.Len(); i += 2 {
		W := mat.NewDense(w.Shapes[i][0], 1, w.Values[i])
		o := mat.NewDense(rows, 1, nil)
		o.Mul(h, W)
		b := w.Values[i+1][0]
		o.Apply(func(_, _ int, v float64) float64 { return v + b }, o)
		out = append(out, o)
	}
	return out
}

func TestTreeMLPForward(t *testing.T) {
	const batch = 4
	arch := testArch()
	root, leaf := testInit(t)
	w, err := arch.NewWeights(root, leaf)
	if err != nil {
		t.Fatal(err)
	}

	g := G.NewGraph()
	net, err := NewTreeMLP(g, batch, arch)
	if err != nil {
		t.Fatal(err)
	}
	if err := net.Load(w); err != nil {
		t.Fatal(err)
	}

	input := []float64{-1, -1, -1, 1, 1, -1, 1, 1}
	if err := net.SetInput(input); err != nil {
		t.Fatal(err)
	}

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}

	want := forward(w, mat.NewDense(batch, 2, input), len(arch.HiddenSizes))
	for head, value := range net.Output() {
		have := value.Data().([]float64)
		for i := 0; i < batch; i++ {
			if math.Abs(have[i]-want[head].At(i, 0)) > 1e-12 {
				t.Errorf("head %v sample %v \n\twant(%v) \n\thave(%v)", head,
					i, want[head].At(i, 0), have[i])
			}
		}
	}
}

func TestTreeMLPLoadWeights(t *testing.T) {
	arch := testArch()
	root, leaf := testInit(t)
	w, _ := arch.NewWeights(root, leaf)

	net, err := NewTreeMLP(G.NewGraph(), 1, arch)
	if err != nil {
		t.Fatal(err)
	}
	if len(net.Learnables()) != len(arch.Shapes()) {
		t.Fatalf("wrong number of learnables \n\twant(%v) \n\thave(%v)",
			len(arch.Shapes()), len(net.Learnables()))
	}
	if err := net.Load(w); err != nil {
		t.Fatal(err)
	}

	loaded, err := net.Weights()
	if err != nil {
		t.Fatal(err)
	}
	if diff, err := w.MaxAbsDiff(loaded); err != nil || diff != 0 {
		t.Errorf("loaded weights differ by %v (%v)", diff, err)
	}

	// Loaded values must be copies
	loaded.Values[0][0] += 1
	again, _ := net.Weights()
	if again.Values[0][0] == loaded.Values[0][0] {
		t.Error("weights returned by the network alias its nodes")
	}

	wrong, _ := Architecture{Features: 3, Heads: 2}.NewWeights(root, leaf)
	if err := net.Load(wrong); err == nil {
		t.Error("expected an error loading incompatible weights")
	}
}

func TestWeightsCompatibleTruncated(t *testing.T) {
	arch := testArch()
	root, leaf := testInit(t)
	w, _ := arch.NewWeights(root, leaf)

	truncated := w.Clone()
	truncated.Values = truncated.Values[:len(truncated.Values)-2]
	if err := w.Compatible(truncated); err == nil {
		t.Error("expected an error for weights missing value tensors")
	}
	if _, err := w.MaxAbsDiff(truncated); err == nil {
		t.Error("expected an error comparing against truncated weights")
	}
	if _, err := truncated.MaxAbsDiff(w); err == nil {
		t.Error("expected an error comparing truncated weights")
	}

	net, err := NewTreeMLP(G.NewGraph(), 1, arch)
	if err != nil {
		t.Fatal(err)
	}
	if err := net.Load(truncated); err == nil {
		t.Error("expected an error loading truncated weights")
	}
}

func TestSetInputLength(t *testing.T) {
	net, err := NewTreeMLP(G.NewGraph(), 2, testArch())
	if err != nil {
		t.Fatal(err)
	}
	if err := net.SetInput([]float64{1, 1, 1}); err == nil {
		t.Error("expected an error for a wrong input length")
	}
}

func TestActivationJSON(t *testing.T) {
	acts := []*Activation{ReLU(), TanH(), Identity()}
	data, err := json.Marshal(acts)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["relu","tanh","identity"]` {
		t.Errorf("marshalled activations \n\thave(%s)", data)
	}

	var decoded []*Activation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	for i := range acts {
		if decoded[i].String() != acts[i].String() {
			t.Errorf("activation %v \n\twant(%v) \n\thave(%v)", i, acts[i],
				decoded[i])
		}
	}

	var bad Activation
	if err := json.Unmarshal([]byte(`"sigmoid"`), &bad); err == nil {
		t.Error("expected an error for an unknown activation")
	}
}
