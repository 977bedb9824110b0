package policy

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/neuraltx/network"
	"github.com/samuelfneumann/neuraltx/utils/floatutils"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Names of the real and imaginary heads
var heads = [2]string{"Re", "Im"}

// Gaussian implements a Gaussian policy over (re, im) symbol
// coordinates, added to its own computational graph for a fixed batch
// size.
//
// A Gaussian created with NewGaussian only computes the means and
// standard deviations of the policy for a batch of inputs. A Gaussian
// created with NewGaussianLearner additionally computes the log
// probability of (externally inputted) actions, the REINFORCE
// surrogate objective
//
//	-mean(advantage * (log π(re | b) + log π(im | b)))
//
// and its gradient with respect to all learnables. Because actions are
// inputs to the graph, the gradient is never computed through the
// action sampling process.
//
// Each head keeps its own N x 1 nodes; the real and imaginary parts
// are only interleaved outside of the graph.
type Gaussian struct {
	net    network.NeuralNet
	logStd [2]*G.Node // 1 x 1 each
	std    [2]*G.Node // 1 x 1 each

	// Only used by learners
	actions    [2]*G.Node // batch x 1 each
	advantages *G.Node    // batch x 1
	logPdf     [2]*G.Node // batch x 1 each
	loss       *G.Node

	vm         G.VM
	learnables G.Nodes
	model      []G.ValueGrad

	stdVal    [2]G.Value
	logPdfVal [2]G.Value
	lossVal   G.Value
}

// NewGaussian returns a Gaussian policy that can compute the means and
// standard deviations of batch inputs at a time. The network
// architecture must have exactly two heads.
func NewGaussian(arch network.Architecture, batch int) (*Gaussian, error) {
	return newGaussian(arch, batch, false)
}

// NewGaussianLearner returns a Gaussian policy that can additionally
// compute and follow the REINFORCE policy gradient for batch
// samples at a time.
func NewGaussianLearner(arch network.Architecture, batch int) (*Gaussian,
	error) {
	return newGaussian(arch, batch, true)
}

func newGaussian(arch network.Architecture, batch int,
	learner bool) (pol *Gaussian, err error) {
	defer recoverGraph("newGaussian", &err)

	if arch.Heads != 2 {
		return nil, fmt.Errorf("newGaussian: gaussian policy requires 2 "+
			"heads \n\thave(%v)", arch.Heads)
	}

	g := G.NewGraph()
	net, err := network.NewTreeMLP(g, batch, arch)
	if err != nil {
		return nil, fmt.Errorf("newGaussian: %w", err)
	}

	pol = &Gaussian{net: net}
	learnables := append(G.Nodes{}, net.Learnables()...)
	for k, name := range heads {
		pol.logStd[k] = G.NewMatrix(g, tensor.Float64, G.WithShape(1, 1),
			G.WithName("logStd"+name), G.WithInit(G.Zeroes()))
		if pol.std[k], err = G.Exp(pol.logStd[k]); err != nil {
			return nil, fmt.Errorf("newGaussian: %w", err)
		}
		G.Read(pol.std[k], &pol.stdVal[k])
		learnables = append(learnables, pol.logStd[k])
	}
	pol.learnables = learnables

	if !learner {
		pol.vm = G.NewTapeMachine(g)
		return pol, nil
	}

	// Repeats each log standard deviation once per sample
	ones := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("ones"), G.WithInit(G.Ones()))

	pred := net.Prediction()
	for k, name := range heads {
		pol.actions[k] = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
			G.WithName("InputActions"+name), G.WithInit(G.Zeroes()))

		logStd, err := G.Mul(ones, pol.logStd[k])
		if err != nil {
			return nil, fmt.Errorf("newGaussian: %w", err)
		}
		pol.logPdf[k], err = logPdf(pred[k], logStd, pol.actions[k])
		if err != nil {
			return nil, fmt.Errorf("newGaussian: could not construct log "+
				"pdf of head %v: %w", name, err)
		}
		G.Read(pol.logPdf[k], &pol.logPdfVal[k])
	}

	pol.advantages = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, 1),
		G.WithName("Advantages"), G.WithInit(G.Zeroes()))

	// Weight the summed log probability of each sample by its advantage
	joint, err := G.Add(pol.logPdf[0], pol.logPdf[1])
	if err != nil {
		return nil, fmt.Errorf("newGaussian: %w", err)
	}
	weighted, err := G.HadamardProd(joint, pol.advantages)
	if err != nil {
		return nil, fmt.Errorf("newGaussian: %w", err)
	}
	loss, err := G.Sum(weighted)
	if err != nil {
		return nil, fmt.Errorf("newGaussian: %w", err)
	}
	pol.loss, err = G.Mul(loss, G.NewConstant(-1.0/float64(batch)))
	if err != nil {
		return nil, fmt.Errorf("newGaussian: %w", err)
	}
	G.Read(pol.loss, &pol.lossVal)

	if _, err := G.Grad(pol.loss, learnables...); err != nil {
		return nil, fmt.Errorf("newGaussian: could not compute policy "+
			"gradient: %w", err)
	}
	pol.vm = G.NewTapeMachine(g, G.BindDualValues(learnables...))

	return pol, nil
}

// logPdf adds nodes to the computational graph of mean/logStd/actions
// for computing the log probability of actions under a Gaussian with
// mean mean and standard deviation exp(logStd). All three nodes must
// have the same shape.
func logPdf(mean, logStd, actions *G.Node) (*G.Node, error) {
	std, err := G.Exp(logStd)
	if err != nil {
		return nil, err
	}

	diff, err := G.Sub(actions, mean)
	if err != nil {
		return nil, err
	}
	z, err := G.HadamardDiv(diff, std)
	if err != nil {
		return nil, err
	}
	exponent, err := G.Square(z)
	if err != nil {
		return nil, err
	}
	exponent, err = G.HadamardProd(G.NewConstant(-0.5), exponent)
	if err != nil {
		return nil, err
	}

	// log(σ√(2π)) = log σ + log(2π)/2
	norm, err := G.Add(logStd, G.NewConstant(0.5*math.Log(2*math.Pi)))
	if err != nil {
		return nil, err
	}
	return G.Sub(exponent, norm)
}

// BatchSize returns the number of samples the policy processes at once
func (g *Gaussian) BatchSize() int {
	return g.net.BatchSize()
}

// IsLearner returns whether the policy can compute gradients
func (g *Gaussian) IsLearner() bool {
	return g.loss != nil
}

// Load sets the parameters of the policy
func (g *Gaussian) Load(p *Parameters) error {
	if err := g.net.Load(p.Net); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	for k, node := range g.logStd {
		data, err := network.Backing(node)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		data[0] = p.LogStd[k]
	}
	return nil
}

// Parameters returns a copy of the current parameters of the policy
func (g *Gaussian) Parameters() (*Parameters, error) {
	w, err := g.net.Weights()
	if err != nil {
		return nil, fmt.Errorf("parameters: %w", err)
	}

	p := &Parameters{Net: w}
	for k, node := range g.logStd {
		data, err := network.Backing(node)
		if err != nil {
			return nil, fmt.Errorf("parameters: %w", err)
		}
		p.LogStd[k] = data[0]
	}
	return p, nil
}

// Means returns the means of the policy in each of the argument input
// states, given in row major order, as a row major batch x 2 slice.
// The standard deviations of the real and imaginary parts are also
// returned.
func (g *Gaussian) Means(inputs []float64) (means []float64, std [2]float64,
	err error) {
	defer recoverGraph("means", &err)

	if err := g.net.SetInput(inputs); err != nil {
		return nil, std, fmt.Errorf("means: %w", err)
	}
	if g.IsLearner() {
		if err := g.setZeroAdvantages(); err != nil {
			return nil, std, fmt.Errorf("means: %w", err)
		}
	}

	defer g.vm.Reset()
	if err := g.vm.RunAll(); err != nil {
		return nil, std, fmt.Errorf("means: could not run policy VM: %w",
			err)
	}

	out := g.net.Output()
	means = interleave(out[0].Data().([]float64), out[1].Data().([]float64))
	for k := range std {
		if std[k], err = scalar(g.stdVal[k]); err != nil {
			return nil, std, fmt.Errorf("means: %w", err)
		}
	}

	if !floatutils.AllFinite(means...) || !floatutils.AllFinite(std[:]...) {
		return nil, std, fmt.Errorf("means: %w: non-finite policy output",
			ErrNumericalDegeneracy)
	}
	return means, std, nil
}

// Step takes a single gradient step on the surrogate objective using
// solver s. The advantages weight the log probability of taking
// actions, given in row major batch x 2 order, in states inputs.
//
// If the log probabilities, the objective, or any gradient are
// non-finite, no step is taken and an error wrapping
// ErrNumericalDegeneracy is returned. The solver may leave the
// parameters of the policy non-finite; callers should validate the
// result with Parameters().Validate().
func (g *Gaussian) Step(inputs, actions, advantages []float64,
	s G.Solver) (loss float64, err error) {
	defer recoverGraph("step", &err)

	if !g.IsLearner() {
		return 0, fmt.Errorf("step: policy was not created as a learner")
	}
	if len(advantages) != g.BatchSize() {
		return 0, fmt.Errorf("step: invalid number of advantages "+
			"\n\twant(%v) \n\thave(%v)", g.BatchSize(), len(advantages))
	}

	advTensor := tensor.New(
		tensor.WithBacking(append([]float64(nil), advantages...)),
		tensor.WithShape(g.advantages.Shape()...),
	)
	if err := G.Let(g.advantages, advTensor); err != nil {
		return 0, fmt.Errorf("step: could not set advantages: %w", err)
	}

	defer g.vm.Reset()
	if err := g.run(inputs, actions); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	if loss, err = scalar(g.lossVal); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if !floatutils.AllFinite(loss) {
		return 0, fmt.Errorf("step: %w: non-finite surrogate objective",
			ErrNumericalDegeneracy)
	}
	for _, v := range g.logPdfVal {
		if !floatutils.AllFinite(v.Data().([]float64)...) {
			return 0, fmt.Errorf("step: %w: non-finite log probabilities",
				ErrNumericalDegeneracy)
		}
	}

	for _, node := range g.learnables {
		grad, err := node.Grad()
		if err != nil {
			return 0, fmt.Errorf("step: could not get gradient of %v: %w",
				node.Name(), err)
		}
		if !floatutils.AllFinite(grad.Data().([]float64)...) {
			return 0, fmt.Errorf("step: %w: non-finite gradient for %v",
				ErrNumericalDegeneracy, node.Name())
		}
	}

	if err := s.Step(g.Model()); err != nil {
		return 0, fmt.Errorf("step: could not step solver: %w", err)
	}
	return loss, nil
}

// Model returns the learnable nodes with their gradients.
func (g *Gaussian) Model() []G.ValueGrad {
	if g.model == nil {
		g.model = make([]G.ValueGrad, len(g.learnables))
		for i, learnable := range g.learnables {
			g.model[i] = learnable
		}
	}
	return g.model
}

// Close releases the resources of the policy's VM
func (g *Gaussian) Close() error {
	return g.vm.Close()
}

// run sets the inputs and actions of a learner and runs its VM. The
// caller must reset the VM, even if run fails.
func (g *Gaussian) run(inputs, actions []float64) error {
	if err := g.net.SetInput(inputs); err != nil {
		return err
	}
	if len(actions) != 2*g.BatchSize() {
		return fmt.Errorf("invalid number of actions \n\twant(%v) "+
			"\n\thave(%v)", 2*g.BatchSize(), len(actions))
	}

	for k, part := range deinterleave(actions) {
		partTensor := tensor.New(
			tensor.WithBacking(part),
			tensor.WithShape(g.actions[k].Shape()...),
		)
		if err := G.Let(g.actions[k], partTensor); err != nil {
			return fmt.Errorf("could not set %v actions: %w", heads[k], err)
		}
	}

	if err := g.vm.RunAll(); err != nil {
		return fmt.Errorf("could not run policy VM: %w", err)
	}
	return nil
}

func (g *Gaussian) setZeroAdvantages() error {
	zeros := tensor.New(
		tensor.WithBacking(make([]float64, g.BatchSize())),
		tensor.WithShape(g.advantages.Shape()...),
	)
	return G.Let(g.advantages, zeros)
}

// recoverGraph converts a panic raised by Gorgonia into an error
// wrapping ErrGraph, stored in err. It must be deferred.
func recoverGraph(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%v: %w: %v", op, ErrGraph, r)
	}
}

// scalar extracts a float64 from a scalar Gorgonia value
func scalar(v G.Value) (float64, error) {
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, fmt.Errorf("value %v is not a float64 scalar", v)
}

// interleave returns the row major batch x 2 slice with columns re
// and im
func interleave(re, im []float64) []float64 {
	out := make([]float64, 0, 2*len(re))
	for i := range re {
		out = append(out, re[i], im[i])
	}
	return out
}

// deinterleave splits a row major batch x 2 slice into its columns
func deinterleave(x []float64) [2][]float64 {
	var cols [2][]float64
	for k := range cols {
		cols[k] = make([]float64, 0, len(x)/2)
	}
	for i, v := range x {
		cols[i%2] = append(cols[i%2], v)
	}
	return cols
}

// Sample draws one action per row of means, given as a row major
// batch x 2 slice, as μ + σ * ɛ with ɛ ~ N(0, 1) drawn from eps.
func Sample(means []float64, std [2]float64, eps distuv.Rander) []float64 {
	actions := make([]float64, len(means))
	for i, mu := range means {
		actions[i] = mu + std[i%2]*eps.Rand()
	}
	return actions
}
