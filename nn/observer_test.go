package nn

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// TestObserverEvents verifies one event per layer per pass
func TestObserverEvents(t *testing.T) {
	var events []LayerEvent
	obs := ObserverFunc(func(e LayerEvent) { events = append(events, e) })

	net, _ := BuildNetwork(NetworkConfig{ID: "obs", Seed: 51, Layers: testConfig(0).Layers}, WithObserver(obs))
	for i := 0; i < 2; i++ {
		if _, err := net.Forward([]float64{0.1, 0.5, -0.2}); err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
	}

	if len(events) != 6 {
		t.Fatalf("Expected 6 events, got %d", len(events))
	}
	for i, e := range events {
		if e.NetworkID != "obs" {
			t.Errorf("Event %d: unexpected network %q", i, e.NetworkID)
		}
		if e.LayerIdx != i%3 {
			t.Errorf("Event %d: expected layer %d, got %d", i, i%3, e.LayerIdx)
		}
		if e.Step != uint64(i/3+1) {
			t.Errorf("Event %d: expected step %d, got %d", i, i/3+1, e.Step)
		}
		if e.Stats.TotalNeurons != len(e.Output) {
			t.Errorf("Event %d: stats cover %d neurons, output has %d", i, e.Stats.TotalNeurons, len(e.Output))
		}
	}
	if events[1].Kind != KindRecurrent {
		t.Errorf("Expected recurrent kind for layer 1, got %s", events[1].Kind)
	}
}

// TestComputeLayerStats verifies the summary values
func TestComputeLayerStats(t *testing.T) {
	stats := computeLayerStats([]float64{-0.5, 0.25, 0.75, 0}, 0)
	if stats.AvgActivation != 0.125 {
		t.Errorf("Expected avg 0.125, got %f", stats.AvgActivation)
	}
	if stats.MaxActivation != 0.75 || stats.MinActivation != -0.5 {
		t.Errorf("Unexpected range [%f, %f]", stats.MinActivation, stats.MaxActivation)
	}
	if stats.ActiveNeurons != 2 || stats.TotalNeurons != 4 {
		t.Errorf("Expected 2/4 active, got %d/%d", stats.ActiveNeurons, stats.TotalNeurons)
	}
	if empty := computeLayerStats(nil, 0); empty.TotalNeurons != 0 {
		t.Error("Empty output should give zero stats")
	}
}

// TestLogObserver verifies events are written to the logger
func TestLogObserver(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	net, _ := BuildNetwork(testConfig(52),
		WithLogger(logger),
		WithObserver(&LogObserver{Logger: logger, Verbose: true}),
	)

	// Three "layer added" debug entries from the build
	if n := len(hook.AllEntries()); n != 3 {
		t.Fatalf("Expected 3 build entries, got %d", n)
	}
	hook.Reset()

	if _, err := net.Forward([]float64{0.3, 0.3}); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	var forward int
	for _, e := range hook.AllEntries() {
		if e.Message != "forward" {
			continue
		}
		forward++
		if e.Level != logrus.InfoLevel {
			t.Errorf("Expected info level, got %s", e.Level)
		}
		if _, ok := e.Data["output"]; !ok {
			t.Error("Verbose observer should log the output vector")
		}
	}
	if forward != 3 {
		t.Errorf("Expected 3 forward entries, got %d", forward)
	}
	if last := hook.LastEntry(); last == nil || last.Message != "forward pass complete" {
		t.Errorf("Expected final pass entry, got %v", last)
	}
}
