package nn

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// NeuronKind selects the compute path of a Neuron.
type NeuronKind int

const (
	KindFeedForward NeuronKind = iota // tanh(Σ wᵢxᵢ + b)
	KindRecurrent                     // forget → candidate → output gates
)

func (k NeuronKind) String() string {
	switch k {
	case KindFeedForward:
		return "feedforward"
	case KindRecurrent:
		return "recurrent"
	default:
		return fmt.Sprintf("NeuronKind(%d)", int(k))
	}
}

func (k NeuronKind) valid() bool {
	return k == KindFeedForward || k == KindRecurrent
}

// ParseNeuronKind maps a config name onto a NeuronKind.
func ParseNeuronKind(s string) (NeuronKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feedforward", "feed_forward", "dense", "base":
		return KindFeedForward, nil
	case "recurrent", "lstm":
		return KindRecurrent, nil
	}
	return 0, invalidArgf("unknown neuron kind %q", s)
}

// Neuron is a single unit of a Layer. Parameters are fixed after
// construction; Output (and the recurrent state) change once per forward pass.
type Neuron struct {
	kind    NeuronKind
	weights []float64
	bias    float64
	output  float64
	fanout  int

	// inputs is the wired input vector, owned by the neuron (snapshot copy)
	inputs []float64

	// cell is nil for feed-forward neurons
	cell *recurrentCell
}

// NewNeuron creates a neuron with numInputs weights and a fan-out of 1.
func NewNeuron(rng *Rand, kind NeuronKind, numInputs int) (*Neuron, error) {
	return NewNeuronWithFanout(rng, kind, numInputs, 1)
}

// NewNeuronWithFanout creates a neuron feeding fanout downstream consumers.
// Weights and bias are drawn uniformly from [-1, 1].
func NewNeuronWithFanout(rng *Rand, kind NeuronKind, numInputs, fanout int) (*Neuron, error) {
	if numInputs <= 0 {
		return nil, invalidArgf("neuron needs at least one input, got %d", numInputs)
	}
	if fanout <= 0 {
		return nil, invalidArgf("neuron needs at least one output, got %d", fanout)
	}
	if !kind.valid() {
		return nil, invalidArgf("unsupported neuron kind %s", kind)
	}
	if rng == nil {
		return nil, invalidArgf("neuron requires a random context")
	}

	n := &Neuron{
		kind:    kind,
		weights: rng.UniformVector(numInputs),
		bias:    rng.Uniform(),
		fanout:  fanout,
		inputs:  make([]float64, numInputs),
	}
	if kind == KindRecurrent {
		n.cell = newRecurrentCell(rng, numInputs)
	}
	return n, nil
}

// Clone returns a fully independent copy of the neuron.
func (n *Neuron) Clone() *Neuron {
	c := &Neuron{
		kind:    n.kind,
		weights: append([]float64(nil), n.weights...),
		bias:    n.bias,
		output:  n.output,
		fanout:  n.fanout,
		inputs:  append([]float64(nil), n.inputs...),
	}
	if n.cell != nil {
		c.cell = n.cell.clone()
	}
	return c
}

// Compute runs the feed-forward path. It returns the pre-activation weighted
// sum and caches tanh of it, readable through Output.
func (n *Neuron) Compute(inputs []float64) (float64, error) {
	if n.kind != KindFeedForward {
		return 0, logicErrorf("feed-forward compute called on a %s neuron", n.kind)
	}
	if len(inputs) != len(n.weights) {
		return 0, invalidArgf("input length %d does not match weight length %d", len(inputs), len(n.weights))
	}
	sum := floats.Dot(inputs, n.weights) + n.bias
	n.output = Activate(sum)
	return sum, nil
}

// Fire dispatches on the neuron kind and returns the activated output.
// stm and ltm are the pooled states handed to recurrent neurons; feed-forward
// neurons ignore them.
func (n *Neuron) Fire(inputs []float64, stm, ltm float64) (float64, error) {
	switch n.kind {
	case KindFeedForward:
		if _, err := n.Compute(inputs); err != nil {
			return 0, err
		}
		return n.output, nil
	case KindRecurrent:
		return n.ComputeRecurrent(inputs, stm, ltm)
	default:
		return 0, logicErrorf("unsupported neuron kind %s", n.kind)
	}
}

// absorb caches the activation of a weighted sum computed elsewhere.
func (n *Neuron) absorb(sum float64) {
	n.output = Activate(sum)
}

// resize changes the input width, redrawing every width-dependent parameter.
// The bias is kept. Only the first wiring of a layer resizes.
func (n *Neuron) resize(numInputs int, rng *Rand) {
	n.weights = rng.UniformVector(numInputs)
	n.inputs = make([]float64, numInputs)
	if n.kind == KindRecurrent {
		cell := newRecurrentCell(rng, numInputs)
		cell.longTerm, cell.shortTerm = n.cell.longTerm, n.cell.shortTerm
		n.cell = cell
	}
}

func (n *Neuron) setInputs(values []float64) {
	copy(n.inputs, values)
}

// Kind returns the neuron kind.
func (n *Neuron) Kind() NeuronKind { return n.kind }

// NumInputs returns the number of input slots.
func (n *Neuron) NumInputs() int { return len(n.weights) }

// Weights returns a copy of the weight vector.
func (n *Neuron) Weights() []float64 { return append([]float64(nil), n.weights...) }

// Weight returns a single weight.
func (n *Neuron) Weight(i int) float64 { return n.weights[i] }

// Bias returns the bias.
func (n *Neuron) Bias() float64 { return n.bias }

// SetBias overrides the bias.
func (n *Neuron) SetBias(bias float64) { n.bias = bias }

// Output returns the last activated output (0 before the first compute).
func (n *Neuron) Output() float64 { return n.output }

// Fanout returns the number of downstream consumers.
func (n *Neuron) Fanout() int { return n.fanout }

// Inputs returns a copy of the wired input vector.
func (n *Neuron) Inputs() []float64 { return append([]float64(nil), n.inputs...) }

// SetWeights overrides the weight vector. The width cannot change.
func (n *Neuron) SetWeights(weights []float64) error {
	if len(weights) != len(n.weights) {
		return invalidArgf("weight length %d does not match input width %d", len(weights), len(n.weights))
	}
	copy(n.weights, weights)
	return nil
}
