package nn

import (
	"errors"
	"math"
	"testing"
)

func intPtr(i int) *int { return &i }

func testConfig(seed int64) NetworkConfig {
	return NetworkConfig{
		Seed: seed,
		Layers: []LayerDefinition{
			{Kind: "feedforward", Size: 3},
			{Kind: "recurrent", Size: 2},
			{Kind: "feedforward", Size: 1},
		},
	}
}

// TestNetworkForward verifies the pass visits every layer and returns the last outputs
func TestNetworkForward(t *testing.T) {
	net, err := BuildNetwork(testConfig(41))
	if err != nil {
		t.Fatalf("BuildNetwork failed: %v", err)
	}

	out, err := net.Forward([]float64{0.1, 0.2, 0.3, 0.4})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected 1 output, got %d", len(out))
	}
	if out[0] < -1 || out[0] > 1 {
		t.Errorf("Output out of [-1, 1]: %f", out[0])
	}
	for i, l := range net.Layers() {
		if l.State() != StateComputed {
			t.Errorf("Layer %d: expected %s, got %s", i, StateComputed, l.State())
		}
	}
	if net.Steps() != 1 {
		t.Errorf("Expected 1 step, got %d", net.Steps())
	}
	if net.Layer(1).Node(0).NumInputs() != 3 {
		t.Errorf("Recurrent layer should be wired to 3 inputs, got %d", net.Layer(1).Node(0).NumInputs())
	}
}

// TestNetworkForwardMatchesManual recomputes a two-layer pass by hand
func TestNetworkForwardMatchesManual(t *testing.T) {
	net := NewNetwork(NewRand(42))
	if _, err := net.AddLayer(2, KindFeedForward, true, NoPrevious); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}
	if _, err := net.AddLayer(1, KindFeedForward, false, 0); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	input := []float64{0.5, -0.3, 0.7}
	out, err := net.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	hidden := make([]float64, 2)
	for i, node := range net.Layer(0).Nodes() {
		sum := node.Bias()
		for j, x := range input {
			sum += x * node.Weight(j)
		}
		hidden[i] = math.Tanh(sum)
	}
	last := net.Layer(1).Node(0)
	sum := last.Bias()
	for j, x := range hidden {
		sum += x * last.Weight(j)
	}
	if math.Abs(out[0]-math.Tanh(sum)) > 1e-9 {
		t.Errorf("Expected %f, got %f", math.Tanh(sum), out[0])
	}
}

// TestNetworkDeterministic verifies equal seeds give equal networks and outputs
func TestNetworkDeterministic(t *testing.T) {
	input := []float64{0.3, -0.1, 0.8, 0.05}

	run := func(seed int64) []float64 {
		net, err := BuildNetwork(testConfig(seed))
		if err != nil {
			t.Fatalf("BuildNetwork failed: %v", err)
		}
		var out []float64
		for i := 0; i < 3; i++ {
			if out, err = net.Forward(input); err != nil {
				t.Fatalf("Forward failed: %v", err)
			}
		}
		return out
	}

	a, b := run(7), run(7)
	if a[0] != b[0] {
		t.Errorf("Same seed gave different outputs: %f vs %f", a[0], b[0])
	}
	if c := run(8); c[0] == a[0] {
		t.Errorf("Different seeds gave identical outputs: %f", c[0])
	}
}

// TestNetworkRecurrentMemory verifies recurrent state carries across passes
func TestNetworkRecurrentMemory(t *testing.T) {
	net := NewNetwork(NewRand(43))
	if _, err := net.AddLayer(2, KindRecurrent, true, NoPrevious); err != nil {
		t.Fatalf("AddLayer failed: %v", err)
	}

	input := []float64{0.4, 0.9}
	first, err := net.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	second, err := net.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if first[0] == second[0] && first[1] == second[1] {
		t.Error("Repeated input should be affected by carried memory")
	}

	stm, _ := net.Layer(0).PooledState()
	wantSTM := (first[0] + first[1]) / 2
	if math.Abs(stm-wantSTM) > 1e-9 {
		t.Errorf("Second pass should pool the first pass STM %f, got %f", wantSTM, stm)
	}
}

// TestNetworkForwardErrors verifies failure classification
func TestNetworkForwardErrors(t *testing.T) {
	empty := NewNetwork(NewRand(44))
	if _, err := empty.Forward([]float64{1}); !errors.Is(err, ErrLogic) {
		t.Errorf("Empty network: expected ErrLogic, got %v", err)
	}
	if empty.Output() != nil {
		t.Error("Empty network should have no output")
	}

	net, _ := BuildNetwork(testConfig(45))
	if _, err := net.Forward(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Empty input: expected ErrInvalidArgument, got %v", err)
	}

	// A second input layer is rejected during the pass
	second := NewNetwork(NewRand(46))
	second.AddLayer(2, KindFeedForward, true, NoPrevious)
	second.AddLayer(2, KindFeedForward, true, 0)
	if _, err := second.Forward([]float64{1, 2}); !errors.Is(err, ErrLogic) {
		t.Errorf("Second input layer: expected ErrLogic, got %v", err)
	}
}

type cpuAccelerator struct {
	calls int
	fail  error
}

func (a *cpuAccelerator) WeightedSums(inputs, weights [][]float64, biases []float64) ([]float64, error) {
	a.calls++
	if a.fail != nil {
		return nil, a.fail
	}
	sums := make([]float64, len(biases))
	for i := range biases {
		sums[i] = biases[i]
		for j := range inputs[i] {
			sums[i] += inputs[i][j] * weights[i][j]
		}
	}
	return sums, nil
}

// TestNetworkAccelerator verifies feed-forward layers use the accelerator
func TestNetworkAccelerator(t *testing.T) {
	input := []float64{0.2, -0.4, 0.6, 0.1}

	plain, _ := BuildNetwork(testConfig(47))
	want, err := plain.Forward(input)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	accel := &cpuAccelerator{}
	accelerated, _ := BuildNetwork(testConfig(47), WithAccelerator(accel))
	got, err := accelerated.Forward(input)
	if err != nil {
		t.Fatalf("Accelerated forward failed: %v", err)
	}
	if accel.calls != 2 {
		t.Errorf("Expected 2 accelerated layers, got %d", accel.calls)
	}
	if math.Abs(got[0]-want[0]) > 1e-12 {
		t.Errorf("Accelerated output %f differs from CPU %f", got[0], want[0])
	}

	boom := errors.New("device lost")
	failing, _ := BuildNetwork(testConfig(47), WithAccelerator(&cpuAccelerator{fail: boom}))
	if _, err := failing.Forward(input); !errors.Is(err, boom) {
		t.Errorf("Expected accelerator error, got %v", err)
	}
}

// TestExtractBlueprint verifies parameter counting per layer kind
func TestExtractBlueprint(t *testing.T) {
	net, _ := BuildNetwork(NetworkConfig{ID: "bp", Seed: 48, Layers: testConfig(0).Layers})
	if _, err := net.Forward([]float64{0.1, 0.2, 0.3, 0.4}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	bp := ExtractBlueprint(net)
	if bp.ID != "bp" || bp.Seed != 48 {
		t.Errorf("Unexpected identity %q / %d", bp.ID, bp.Seed)
	}
	if bp.TotalLayers != 3 {
		t.Fatalf("Expected 3 layers, got %d", bp.TotalLayers)
	}

	// ff 3x4: 3*5 + 3, recurrent 2x3: 2*4 + 2 + 2*28, ff 1x2: 1*3 + 1
	want := []int{18, 66, 4}
	for i, w := range want {
		if bp.Layers[i].Parameters != w {
			t.Errorf("Layer %d: expected %d parameters, got %d", i, w, bp.Layers[i].Parameters)
		}
	}
	if bp.TotalParams != 88 {
		t.Errorf("Expected 88 parameters, got %d", bp.TotalParams)
	}
	if !bp.Layers[0].Input || bp.Layers[1].Input {
		t.Error("Only layer 0 should be marked as input")
	}
	if bp.Layers[2].Previous != 1 || bp.Layers[2].Kind != "feedforward" {
		t.Errorf("Unexpected layer 2 telemetry: %+v", bp.Layers[2])
	}
}

// TestNetworkInputWidthFixed verifies the first input fixes the width and
// later mismatches fail without touching parameters or the random stream
func TestNetworkInputWidthFixed(t *testing.T) {
	net := NewNetwork(NewRand(49))
	net.AddLayer(2, KindFeedForward, true, NoPrevious)
	net.AddLayer(1, KindFeedForward, false, 0)
	twin := NewNetwork(NewRand(49))
	twin.AddLayer(2, KindFeedForward, true, NoPrevious)
	twin.AddLayer(1, KindFeedForward, false, 0)

	input := []float64{0.1, 0.2}
	if _, err := net.Forward(input); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if _, err := twin.Forward(input); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	before := net.Layer(0).Node(0).Weights()

	if _, err := net.Forward([]float64{0.1, 0.2, 0.3}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Wider input: expected ErrInvalidArgument, got %v", err)
	}
	after := net.Layer(0).Node(0).Weights()
	if len(after) != len(before) {
		t.Fatalf("Weights resized from %d to %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Errorf("Weight %d changed: %f -> %f", i, before[i], after[i])
		}
	}

	got, err := net.Forward(input)
	if err != nil {
		t.Fatalf("Forward after rejected input failed: %v", err)
	}
	want, _ := twin.Forward(input)
	if got[0] != want[0] {
		t.Errorf("Rejected input changed the network: %f vs %f", got[0], want[0])
	}
}
