package policy

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/neuraltx/initwfn"
	"github.com/samuelfneumann/neuraltx/network"
	"github.com/samuelfneumann/neuraltx/solver"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var testInputs = []float64{
	-1, -1,
	-1, 1,
	1, -1,
}

func testArch() network.Architecture {
	return network.Architecture{
		Features:    2,
		HiddenSizes: []int{4},
		Heads:       2,
	}
}

func testParameters(t *testing.T) *Parameters {
	rootW, err := initwfn.NewNormC(1.0, 3)
	if err != nil {
		t.Fatal(err)
	}
	rootB, _ := initwfn.NewConstant(0.1)
	leafW, _ := initwfn.NewNormC(0.2, 4)
	leafB, _ := initwfn.NewZeroes()

	p, err := NewParameters(testArch(),
		network.LayerInit{Weights: rootW, Bias: rootB},
		network.LayerInit{Weights: leafW, Bias: leafB}, -0.5)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func testLearner(t *testing.T, p *Parameters) *Gaussian {
	pol, err := NewGaussianLearner(testArch(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := pol.Load(p); err != nil {
		t.Fatal(err)
	}
	return pol
}

// logPdfOf returns the row major batch x 2 log probabilities of
// actions taken in states inputs under the learner pol
func logPdfOf(t *testing.T, pol *Gaussian, inputs, actions []float64) []float64 {
	t.Helper()
	if err := pol.setZeroAdvantages(); err != nil {
		t.Fatal(err)
	}
	defer pol.vm.Reset()
	if err := pol.run(inputs, actions); err != nil {
		t.Fatal(err)
	}
	return interleave(pol.logPdfVal[0].Data().([]float64),
		pol.logPdfVal[1].Data().([]float64))
}

func TestNewGaussianHeads(t *testing.T) {
	arch := testArch()
	arch.Heads = 3
	if _, err := NewGaussian(arch, 1); err == nil {
		t.Error("expected error for a 3-headed network")
	}
}

func TestMeansDeterministic(t *testing.T) {
	p := testParameters(t)
	pol, err := NewGaussian(testArch(), 3)
	if err != nil {
		t.Fatal(err)
	}
	defer pol.Close()
	if err := pol.Load(p); err != nil {
		t.Fatal(err)
	}

	first, std, err := pol.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := pol.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 6 {
		t.Fatalf("wrong number of means \n\twant(6) \n\thave(%v)", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("mean %v not deterministic \n\tfirst(%v) \n\tsecond(%v)",
				i, first[i], second[i])
		}
	}

	wantStd := math.Exp(-0.5)
	for i := range std {
		if math.Abs(std[i]-wantStd) > 1e-12 {
			t.Errorf("std %v \n\twant(%v) \n\thave(%v)", i, wantStd, std[i])
		}
	}
}

func TestLearnerMatchesForward(t *testing.T) {
	p := testParameters(t)
	learner := testLearner(t, p)
	defer learner.Close()

	forward, err := NewGaussian(testArch(), 3)
	if err != nil {
		t.Fatal(err)
	}
	defer forward.Close()
	if err := forward.Load(p); err != nil {
		t.Fatal(err)
	}

	want, _, err := forward.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}
	have, _, err := learner.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if math.Abs(want[i]-have[i]) > 1e-12 {
			t.Errorf("mean %v \n\twant(%v) \n\thave(%v)", i, want[i], have[i])
		}
	}
}

func TestLogPdfOf(t *testing.T) {
	p := testParameters(t)
	pol := testLearner(t, p)
	defer pol.Close()

	means, std, err := pol.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}
	actions := []float64{0.3, -0.2, 1.5, 0.0, -0.7, 0.9}

	logPdf := logPdfOf(t, pol, testInputs, actions)
	for i := range actions {
		want := distuv.Normal{Mu: means[i], Sigma: std[i%2]}.LogProb(actions[i])
		if math.Abs(logPdf[i]-want) > 1e-9 {
			t.Errorf("log pdf %v \n\twant(%v) \n\thave(%v)", i, want,
				logPdf[i])
		}
	}
}

func TestStepIncreasesWeightedLogPdf(t *testing.T) {
	p := testParameters(t)
	pol := testLearner(t, p)
	defer pol.Close()

	s, err := solver.NewVanilla(1e-3, 1, -1)
	if err != nil {
		t.Fatal(err)
	}

	actions := []float64{0.3, -0.2, 1.5, 0.0, -0.7, 0.9}
	advantages := []float64{1, 1, 1}

	before := logPdfOf(t, pol, testInputs, actions)

	if _, err := pol.Step(testInputs, actions, advantages, s); err != nil {
		t.Fatal(err)
	}

	after := logPdfOf(t, pol, testInputs, actions)

	var sumBefore, sumAfter float64
	for i := range before {
		sumBefore += before[i]
		sumAfter += after[i]
	}
	if sumAfter <= sumBefore {
		t.Errorf("log probability of positively weighted actions did not "+
			"increase \n\tbefore(%v) \n\tafter(%v)", sumBefore, sumAfter)
	}

	updated, err := pol.Parameters()
	if err != nil {
		t.Fatal(err)
	}
	diff, err := updated.MaxAbsDiff(p)
	if err != nil {
		t.Fatal(err)
	}
	if diff == 0 {
		t.Error("parameters unchanged after step")
	}
}

func TestStepZeroAdvantage(t *testing.T) {
	p := testParameters(t)
	pol := testLearner(t, p)
	defer pol.Close()

	s, err := solver.NewVanilla(1e-2, 1, -1)
	if err != nil {
		t.Fatal(err)
	}

	actions := []float64{0.3, -0.2, 1.5, 0.0, -0.7, 0.9}
	loss, err := pol.Step(testInputs, actions, []float64{0, 0, 0}, s)
	if err != nil {
		t.Fatal(err)
	}
	if loss != 0 {
		t.Errorf("loss with zero advantages \n\twant(0) \n\thave(%v)", loss)
	}

	updated, err := pol.Parameters()
	if err != nil {
		t.Fatal(err)
	}
	if diff, _ := updated.MaxAbsDiff(p); diff != 0 {
		t.Errorf("parameters changed with zero advantages by %v", diff)
	}
}

func TestStepShapes(t *testing.T) {
	pol := testLearner(t, testParameters(t))
	defer pol.Close()
	s, _ := solver.NewVanilla(1e-2, 1, -1)

	if _, err := pol.Step(testInputs, []float64{0, 0}, []float64{1, 1, 1},
		s); err == nil {
		t.Error("expected error for wrong number of actions")
	}
	if _, err := pol.Step(testInputs, make([]float64, 6), []float64{1},
		s); err == nil {
		t.Error("expected error for wrong number of advantages")
	}
}

func TestValidate(t *testing.T) {
	p := testParameters(t)
	if err := p.Validate(1e-6); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	small := p.Clone()
	small.LogStd[1] = -20
	if err := small.Validate(1e-6); !errors.Is(err, ErrNumericalDegeneracy) {
		t.Errorf("expected numerical degeneracy, have %v", err)
	}

	nan := p.Clone()
	nan.Net.Values[0][0] = math.NaN()
	if err := nan.Validate(1e-6); !errors.Is(err, ErrNumericalDegeneracy) {
		t.Errorf("expected numerical degeneracy, have %v", err)
	}
	if math.IsNaN(p.Net.Values[0][0]) {
		t.Error("clone aliases the original weights")
	}
}

func TestSample(t *testing.T) {
	means := []float64{1, -2}
	std := [2]float64{0.5, 0.1}
	eps := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(1)}

	const n = 20000
	var sum [2]float64
	for i := 0; i < n; i++ {
		a := Sample(means, std, eps)
		sum[0] += a[0]
		sum[1] += a[1]
	}
	for i := range sum {
		mean := sum[i] / n
		if math.Abs(mean-means[i]) > 5*std[i]/math.Sqrt(n) {
			t.Errorf("sample mean %v \n\twant(%v) \n\thave(%v)", i, means[i],
				mean)
		}
	}
}

func TestRecoverGraph(t *testing.T) {
	failing := func() (err error) {
		defer recoverGraph("failing", &err)
		var shape []int
		_ = shape[1]
		return nil
	}
	err := failing()
	if !errors.Is(err, ErrGraph) {
		t.Errorf("expected a graph error, have %v", err)
	}

	succeeding := func() (err error) {
		defer recoverGraph("succeeding", &err)
		return nil
	}
	if err := succeeding(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLearnerStepsWithAdam(t *testing.T) {
	p := testParameters(t)
	s, err := solver.NewDefaultAdam(1e-2, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Learners of different batch sizes share a single solver
	for _, batch := range []int{1, 3, 1} {
		pol, err := NewGaussianLearner(testArch(), batch)
		if err != nil {
			t.Fatalf("batch %v: %v", batch, err)
		}
		if err := pol.Load(p); err != nil {
			t.Fatal(err)
		}

		inputs := testInputs[:2*batch]
		actions := make([]float64, 2*batch)
		advantages := make([]float64, batch)
		for i := range actions {
			actions[i] = 0.5 - float64(i)*0.1
		}
		for i := range advantages {
			advantages[i] = 1
		}

		loss, err := pol.Step(inputs, actions, advantages, s)
		if err != nil {
			t.Fatalf("batch %v: %v", batch, err)
		}
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			t.Errorf("batch %v: non-finite loss %v", batch, loss)
		}

		for _, node := range pol.learnables {
			grad, err := node.Grad()
			if err != nil {
				t.Fatal(err)
			}
			if len(grad.Data().([]float64)) != node.Shape().TotalSize() {
				t.Errorf("gradient of %v has %v values for shape %v",
					node.Name(), len(grad.Data().([]float64)), node.Shape())
			}
		}

		updated, err := pol.Parameters()
		if err != nil {
			t.Fatal(err)
		}
		if diff, _ := updated.MaxAbsDiff(p); diff == 0 {
			t.Errorf("batch %v: parameters unchanged after step", batch)
		}
		if err := updated.Validate(1e-6); err != nil {
			t.Errorf("batch %v: %v", batch, err)
		}
		p = updated
		pol.Close()
	}
}

func TestStepWidensStd(t *testing.T) {
	p := testParameters(t)
	pol := testLearner(t, p)
	defer pol.Close()

	means, std, err := pol.Means(testInputs)
	if err != nil {
		t.Fatal(err)
	}

	// Rewarded actions far outside one standard deviation of the mean
	// should increase the standard deviation
	actions := make([]float64, len(means))
	for i := range means {
		actions[i] = means[i] + 3*std[i%2]
	}

	s, _ := solver.NewVanilla(1e-2, 1, -1)
	if _, err := pol.Step(testInputs, actions, []float64{1, 1, 1},
		s); err != nil {
		t.Fatal(err)
	}

	updated, err := pol.Parameters()
	if err != nil {
		t.Fatal(err)
	}
	for k := range updated.LogStd {
		if updated.LogStd[k] <= p.LogStd[k] {
			t.Errorf("log std %v did not increase \n\tbefore(%v) "+
				"\n\tafter(%v)", k, p.LogStd[k], updated.LogStd[k])
		}
	}
}
