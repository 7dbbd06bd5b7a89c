package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openfluke/tonenet/nn"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags([]string{"-samples", "3", "-style", "jazz", "-seed", "5", "-blueprint"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if o.samples != 3 || o.style != "jazz" || o.seed != 5 || !o.blueprint {
		t.Errorf("Unexpected options: %+v", o)
	}
	if _, err := parseFlags([]string{"-samples", "-1"}); err == nil {
		t.Error("Expected error for negative samples")
	}
}

func TestRunDefaultNetwork(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	var out bytes.Buffer

	o := options{seed: 11, samples: 4, style: "mixed", blueprint: true}
	if err := run(o, logger, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	scored := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "scored" {
			scored++
			v, ok := e.Data["output"].(float64)
			if !ok || v < -1 || v > 1 {
				t.Errorf("Unexpected output field %v", e.Data["output"])
			}
		}
	}
	if scored != 4 {
		t.Errorf("Expected 4 scored entries, got %d", scored)
	}
	last := hook.LastEntry()
	if last == nil || last.Message != "dataset scored" {
		t.Fatalf("Expected summary entry last, got %v", last)
	}
	if _, ok := last.Data["correlation"]; !ok {
		t.Error("Summary should include correlation")
	}

	var bp nn.Blueprint
	if err := json.Unmarshal(out.Bytes(), &bp); err != nil {
		t.Fatalf("Blueprint is not JSON: %v\n%s", err, out.String())
	}
	if bp.ID != "tonenet-default" || bp.Seed != 11 || bp.TotalLayers != 3 {
		t.Errorf("Unexpected blueprint header: %+v", bp)
	}
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.json")
	cfg := `{"id":"file","layers":[{"kind":"recurrent","size":4},{"kind":"feedforward","size":2}]}`
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	logger, _ := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var out bytes.Buffer
	o := options{configPath: path, seed: 3, samples: 2, style: "classical", trace: true, blueprint: true}
	if err := run(o, logger, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out.String(), `"id": "file"`) {
		t.Errorf("Blueprint should come from the config file:\n%s", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	if err := run(options{samples: 1, style: "baroque"}, logger, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown style")
	}
	if err := run(options{configPath: "/nonexistent/net.json", samples: 1}, logger, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for missing config")
	}
}

func TestRunExampleConfig(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	var out bytes.Buffer
	o := options{configPath: filepath.Join("..", "..", "examples", "tonenet.json"), samples: 3, blueprint: true}
	if err := run(o, logger, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var bp nn.Blueprint
	if err := json.Unmarshal(out.Bytes(), &bp); err != nil {
		t.Fatalf("Blueprint is not JSON: %v", err)
	}
	if bp.Seed != 42 || bp.TotalLayers != 5 {
		t.Errorf("Unexpected blueprint header: %+v", bp)
	}
	if bp.Layers[3].Previous != 1 || bp.Layers[3].InputWidth != 8 {
		t.Errorf("Layer 3 should skip back to layer 1: %+v", bp.Layers[3])
	}
}
