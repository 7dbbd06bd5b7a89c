package nn

import (
	"fmt"

	"github.com/pkg/errors"
)

// NoPrevious marks a layer without a predecessor.
const NoPrevious = -1

// Sample matrix rows produced by a layer and consumed by a recurrent layer.
const (
	SampleOutputs   = 0
	SampleShortTerm = 1
	SampleLongTerm  = 2
	sampleRows      = 3
)

// LayerState tracks where a layer is in the forward pass.
type LayerState int

const (
	StateUninitialized LayerState = iota // no inputs connected yet
	StateWired                           // inputs connected to the predecessor
	StateComputed                        // outputs populated
)

func (s LayerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateWired:
		return "wired"
	case StateComputed:
		return "computed"
	default:
		return fmt.Sprintf("LayerState(%d)", int(s))
	}
}

// Layer is an ordered set of neurons of one kind. It is created through
// Network.AddLayer and refers to its predecessor by arena index.
type Layer struct {
	net     *Network
	index   int
	prev    int
	kind    NeuronKind
	isInput bool
	state   LayerState

	nodes   []*Neuron
	outputs []float64

	// layerWeights is one scalar per node, drawn independently of the
	// nodes' own parameters
	layerWeights []float64

	// staging holds [outputs, STMs, LTMs] after Broadcast; recurrent only
	staging [][]float64

	// pooled states from the last sample load
	seedSTM float64
	seedLTM float64
}

func newLayer(net *Network, index, size int, kind NeuronKind, isInput bool, prev int) (*Layer, error) {
	if size <= 0 {
		return nil, invalidArgf("layer size must be positive, got %d", size)
	}
	if !kind.valid() {
		return nil, invalidArgf("unsupported layer kind %s", kind)
	}

	var prevLayer *Layer
	if prev != NoPrevious {
		if prev < 0 || prev >= len(net.layers) {
			return nil, logicErrorf("previous layer %d does not exist", prev)
		}
		prevLayer = net.layers[prev]
	}
	if !isInput && prevLayer == nil {
		return nil, logicErrorf("non-input %s layer requires a previous layer", kind)
	}

	l := &Layer{
		net:     net,
		index:   index,
		prev:    prev,
		kind:    kind,
		isInput: isInput,
		nodes:   make([]*Neuron, size),
		outputs: make([]float64, size),
	}
	for i := range l.nodes {
		node, err := NewNeuron(net.rng, kind, 1)
		if err != nil {
			return nil, err
		}
		l.nodes[i] = node
	}
	l.layerWeights = net.rng.UniformVector(size)

	if kind == KindRecurrent {
		l.staging = make([][]float64, sampleRows)
		for i := range l.staging {
			l.staging[i] = make([]float64, size)
		}
	}

	if isInput {
		return l, nil
	}
	switch kind {
	case KindFeedForward:
		if err := l.wireFeedForward(prevLayer); err != nil {
			return nil, errors.Wrapf(err, "wire layer %d from layer %d", index, prev)
		}
	case KindRecurrent:
		if err := l.LoadRecurrentSamples(prevLayer.samples()); err != nil {
			return nil, errors.Wrapf(err, "wire layer %d from layer %d", index, prev)
		}
	}
	return l, nil
}

// wireFeedForward copies the predecessor's current outputs into every node.
// Later changes upstream need Rewire.
func (l *Layer) wireFeedForward(prev *Layer) error {
	return l.connect(prev.outputs)
}

// connect copies values into every node. The first wiring fixes the input
// width; afterwards a different width is rejected and the parameters are kept.
func (l *Layer) connect(values []float64) error {
	width := len(values)
	if l.state != StateUninitialized {
		if w := l.nodes[0].NumInputs(); w != width {
			return invalidArgf("layer %d is wired to %d inputs, got %d", l.index, w, width)
		}
	}
	for _, node := range l.nodes {
		if node.NumInputs() != width {
			node.resize(width, l.net.rng)
		}
		node.setInputs(values)
	}
	l.state = StateWired
	return nil
}

// samples returns the matrix this layer hands to a recurrent successor.
// Feed-forward layers carry no memory, so their state rows are zero.
func (l *Layer) samples() [][]float64 {
	if l.kind == KindRecurrent {
		return cloneMatrix(l.staging)
	}
	return [][]float64{
		append([]float64(nil), l.outputs...),
		make([]float64, len(l.outputs)),
		make([]float64, len(l.outputs)),
	}
}

// LoadRecurrentSamples seeds the layer from a 3-row sample matrix:
// row 0 becomes every node's input vector, rows 1 and 2 are averaged into the
// short-term and long-term state of every node. Empty state rows average to 0.
func (l *Layer) LoadRecurrentSamples(matrix [][]float64) error {
	if l.kind != KindRecurrent {
		return logicErrorf("sample loading on a %s layer", l.kind)
	}
	if len(matrix) != sampleRows {
		return invalidArgf("sample matrix needs %d rows, got %d", sampleRows, len(matrix))
	}
	if len(matrix[SampleOutputs]) == 0 {
		return invalidArgf("sample matrix has no output samples")
	}

	stm := mean(matrix[SampleShortTerm])
	ltm := mean(matrix[SampleLongTerm])

	// TODO: route a per-node slice of row 0 once the successor fan-out is
	// known; every node currently sees the same vector.
	if err := l.connect(matrix[SampleOutputs]); err != nil {
		return err
	}
	for _, node := range l.nodes {
		node.seed(stm, ltm)
	}
	l.seedSTM, l.seedLTM = stm, ltm
	return nil
}

// SetInputs stages external input on the input layer. Feed-forward nodes
// receive a copy of values; recurrent nodes load [values, STMs, LTMs] built
// from their own state, so memory carries over between calls.
func (l *Layer) SetInputs(values []float64) error {
	if !l.isInput {
		return logicErrorf("layer %d is not an input layer", l.index)
	}
	if len(values) == 0 {
		return invalidArgf("input vector is empty")
	}
	if l.kind == KindFeedForward {
		return l.connect(values)
	}

	stm := make([]float64, len(l.nodes))
	ltm := make([]float64, len(l.nodes))
	for i, node := range l.nodes {
		stm[i] = node.ShortTermState()
		ltm[i] = node.LongTermState()
	}
	return l.LoadRecurrentSamples([][]float64{values, stm, ltm})
}

// Rewire refreshes the inputs from the predecessor's current outputs (or
// samples for recurrent layers). The predecessor itself never changes.
func (l *Layer) Rewire() error {
	prev := l.Previous()
	if prev == nil {
		return logicErrorf("layer %d has no previous layer to wire from", l.index)
	}
	if l.kind == KindFeedForward {
		return l.wireFeedForward(prev)
	}
	return l.LoadRecurrentSamples(prev.samples())
}

// Compute runs every node on its wired inputs and collects the outputs.
func (l *Layer) Compute() error {
	if l.state == StateUninitialized {
		return logicErrorf("layer %d computed before its inputs were wired", l.index)
	}

	if l.kind == KindFeedForward && l.net.accel != nil {
		if err := l.computeAccelerated(); err != nil {
			return err
		}
		l.state = StateComputed
		return nil
	}

	for i, node := range l.nodes {
		out, err := node.Fire(node.inputs, l.seedSTM, l.seedLTM)
		if err != nil {
			return errors.Wrapf(err, "layer %d node %d", l.index, i)
		}
		l.outputs[i] = out
	}
	l.state = StateComputed
	return nil
}

func (l *Layer) computeAccelerated() error {
	inputs := make([][]float64, len(l.nodes))
	weights := make([][]float64, len(l.nodes))
	biases := make([]float64, len(l.nodes))
	for i, node := range l.nodes {
		inputs[i] = node.inputs
		weights[i] = node.weights
		biases[i] = node.bias
	}

	sums, err := l.net.accel.WeightedSums(inputs, weights, biases)
	if err != nil {
		return errors.Wrapf(err, "layer %d accelerated compute", l.index)
	}
	if len(sums) != len(l.nodes) {
		return errors.Errorf("layer %d: accelerator returned %d sums for %d nodes", l.index, len(sums), len(l.nodes))
	}
	for i, node := range l.nodes {
		node.absorb(sums[i])
		l.outputs[i] = node.output
	}
	return nil
}

// Broadcast pools the recurrent state of every node into the staging buffer
// as [outputs, STMs, LTMs] for the next recurrent layer.
func (l *Layer) Broadcast() error {
	if l.kind != KindRecurrent {
		return logicErrorf("state broadcast on a %s layer", l.kind)
	}
	for i, node := range l.nodes {
		l.staging[SampleOutputs][i] = l.outputs[i]
		l.staging[SampleShortTerm][i] = node.ShortTermState()
		l.staging[SampleLongTerm][i] = node.LongTermState()
	}
	return nil
}

// Index returns the layer's position in the network arena.
func (l *Layer) Index() int { return l.index }

// PreviousIndex returns the arena index of the predecessor or NoPrevious.
func (l *Layer) PreviousIndex() int { return l.prev }

// Previous returns the predecessor, nil for a layer without one.
func (l *Layer) Previous() *Layer {
	if l.prev == NoPrevious {
		return nil
	}
	return l.net.layers[l.prev]
}

// Kind returns the neuron kind shared by every node.
func (l *Layer) Kind() NeuronKind { return l.kind }

// Size returns the number of nodes.
func (l *Layer) Size() int { return len(l.nodes) }

// IsInput reports whether the layer receives external input.
func (l *Layer) IsInput() bool { return l.isInput }

// State returns where the layer is in the forward pass.
func (l *Layer) State() LayerState { return l.state }

// Nodes returns the layer's neurons. The slice is a copy; the neurons are not.
func (l *Layer) Nodes() []*Neuron {
	return append([]*Neuron(nil), l.nodes...)
}

// Node returns neuron i, or nil when i is out of range.
func (l *Layer) Node(i int) *Neuron {
	if i < 0 || i >= len(l.nodes) {
		return nil
	}
	return l.nodes[i]
}

// Outputs returns a copy of the last computed outputs.
func (l *Layer) Outputs() []float64 { return append([]float64(nil), l.outputs...) }

// LayerWeights returns a copy of the per-node layer scalars.
func (l *Layer) LayerWeights() []float64 { return append([]float64(nil), l.layerWeights...) }

// StagingBuffer returns a copy of the staged sample matrix, nil for
// feed-forward layers.
func (l *Layer) StagingBuffer() [][]float64 { return cloneMatrix(l.staging) }

// PooledState returns the averaged short-term and long-term state from the
// last sample load.
func (l *Layer) PooledState() (stm, ltm float64) { return l.seedSTM, l.seedLTM }
