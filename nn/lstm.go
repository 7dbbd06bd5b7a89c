package nn

// recurrentCell is the payload carried only by recurrent neurons.
//
// Gate parameter layouts for n inputs:
//
//	forget     [w1₀ w2₀ w1₁ w2₁ … b]              len 2n+1
//	candidate  [w1₀ w2₀ w3₀ w4₀ … b1 b2]          len 4n+2
//	output     [w1₀ w2₀ w1₁ w2₁ … b]              len 2n+1
//
// w1/w3 multiply the input, w2/w4 multiply the short-term state.
type recurrentCell struct {
	longTerm  float64
	shortTerm float64

	forget     []float64
	candidate  []float64
	outputGate []float64
}

func newRecurrentCell(rng *Rand, numInputs int) *recurrentCell {
	return &recurrentCell{
		forget:     rng.UniformVector(2*numInputs + 1),
		candidate:  rng.UniformVector(4*numInputs + 2),
		outputGate: rng.UniformVector(2*numInputs + 1),
	}
}

func (c *recurrentCell) clone() *recurrentCell {
	return &recurrentCell{
		longTerm:   c.longTerm,
		shortTerm:  c.shortTerm,
		forget:     append([]float64(nil), c.forget...),
		candidate:  append([]float64(nil), c.candidate...),
		outputGate: append([]float64(nil), c.outputGate...),
	}
}

// forgetStep decays long-term memory: LTM *= σ(Σ(w1·xᵢ + w2·STM + b)).
func (c *recurrentCell) forgetStep(x []float64) {
	c.longTerm *= Sigmoid(pairedSum(c.forget, x, c.shortTerm))
}

// candidateStep writes to long-term memory: LTM += σ(A) · tanh(B).
func (c *recurrentCell) candidateStep(x []float64) {
	m := len(c.candidate)
	b1, b2 := c.candidate[m-2], c.candidate[m-1]

	var selector, value float64
	for i, xi := range x {
		w := c.candidate[4*i : 4*i+4]
		selector += w[0]*xi + w[1]*c.shortTerm
		value += w[2]*xi + w[3]*c.shortTerm
	}
	c.longTerm += Sigmoid(selector+b1) * Activate(value+b2)
}

// outputStep emits tanh(LTM) · σ(Σ(w1·xᵢ + w2·STM + b)) and stores it as the
// next short-term state.
func (c *recurrentCell) outputStep(x []float64) float64 {
	result := Activate(c.longTerm) * Sigmoid(pairedSum(c.outputGate, x, c.shortTerm))
	c.shortTerm = result
	return result
}

// pairedSum accumulates w1·xᵢ + w2·stm + b over every input, with the bias
// in the trailing slot added once per input.
func pairedSum(params, x []float64, stm float64) float64 {
	b := params[len(params)-1]
	sum := 0.0
	for i, xi := range x {
		sum += params[2*i]*xi + params[2*i+1]*stm + b
	}
	return sum
}

// ComputeRecurrent runs the gated update. stm and ltm are the pooled states
// supplied by the previous layer; they overwrite the neuron's own state before
// the gates run. Gates run forget → candidate → output, each reading the state
// left by the one before.
func (n *Neuron) ComputeRecurrent(inputs []float64, stm, ltm float64) (float64, error) {
	if n.kind != KindRecurrent {
		return 0, logicErrorf("gate compute called on a %s neuron", n.kind)
	}
	if len(inputs) != len(n.weights) {
		return 0, invalidArgf("input length %d does not match input width %d", len(inputs), len(n.weights))
	}

	c := n.cell
	c.shortTerm = stm
	c.longTerm = ltm

	c.forgetStep(inputs)
	c.candidateStep(inputs)
	n.output = c.outputStep(inputs)
	return n.output, nil
}

// seed sets the recurrent state directly, bypassing the gates.
func (n *Neuron) seed(stm, ltm float64) {
	n.cell.shortTerm = stm
	n.cell.longTerm = ltm
}

// LongTermState returns the long-term memory (0 for feed-forward neurons).
func (n *Neuron) LongTermState() float64 {
	if n.cell == nil {
		return 0
	}
	return n.cell.longTerm
}

// ShortTermState returns the short-term memory (0 for feed-forward neurons).
func (n *Neuron) ShortTermState() float64 {
	if n.cell == nil {
		return 0
	}
	return n.cell.shortTerm
}

// ForgetParams returns a copy of the forget gate parameters, nil for
// feed-forward neurons.
func (n *Neuron) ForgetParams() []float64 {
	if n.cell == nil {
		return nil
	}
	return append([]float64(nil), n.cell.forget...)
}

// CandidateParams returns a copy of the candidate gate parameters.
func (n *Neuron) CandidateParams() []float64 {
	if n.cell == nil {
		return nil
	}
	return append([]float64(nil), n.cell.candidate...)
}

// OutputGateParams returns a copy of the output gate parameters.
func (n *Neuron) OutputGateParams() []float64 {
	if n.cell == nil {
		return nil
	}
	return append([]float64(nil), n.cell.outputGate...)
}

// SetGateParams overrides all three gate vectors. Lengths must match the
// layouts for the current input width.
func (n *Neuron) SetGateParams(forget, candidate, output []float64) error {
	if n.cell == nil {
		return logicErrorf("gate parameters set on a %s neuron", n.kind)
	}
	w := len(n.weights)
	if len(forget) != 2*w+1 {
		return invalidArgf("forget gate needs %d parameters, got %d", 2*w+1, len(forget))
	}
	if len(candidate) != 4*w+2 {
		return invalidArgf("candidate gate needs %d parameters, got %d", 4*w+2, len(candidate))
	}
	if len(output) != 2*w+1 {
		return invalidArgf("output gate needs %d parameters, got %d", 2*w+1, len(output))
	}
	copy(n.cell.forget, forget)
	copy(n.cell.candidate, candidate)
	copy(n.cell.outputGate, output)
	return nil
}
