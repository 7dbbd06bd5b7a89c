package nn

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// NetworkConfig describes a network to build. Layer 0 is the input layer.
type NetworkConfig struct {
	ID     string            `json:"id,omitempty"`
	Seed   int64             `json:"seed,omitempty"` // 0 seeds from time
	Layers []LayerDefinition `json:"layers"`
}

// LayerDefinition defines a single layer.
type LayerDefinition struct {
	Kind string `json:"kind"`
	Size int    `json:"size"`

	// Previous is the arena index of the predecessor. Omitted means the
	// layer directly before.
	Previous *int `json:"previous,omitempty"`
}

// Validate checks sizes, kinds and predecessor indices.
func (c NetworkConfig) Validate() error {
	if len(c.Layers) == 0 {
		return invalidArgf("network config has no layers")
	}
	for i, def := range c.Layers {
		if def.Size <= 0 {
			return invalidArgf("layer %d: size must be positive, got %d", i, def.Size)
		}
		if _, err := ParseNeuronKind(def.Kind); err != nil {
			return errors.Wrapf(err, "layer %d", i)
		}
		if def.Previous != nil && i > 0 {
			if p := *def.Previous; p < 0 || p >= i {
				return invalidArgf("layer %d: previous %d must be an earlier layer", i, p)
			}
		}
	}
	return nil
}

func (d LayerDefinition) previous(i int) int {
	if i == 0 {
		return NoPrevious
	}
	if d.Previous != nil {
		return *d.Previous
	}
	return i - 1
}

// ParseConfig decodes and validates a JSON network config.
func ParseConfig(data []byte) (NetworkConfig, error) {
	var cfg NetworkConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return NetworkConfig{}, errors.Wrap(err, "decode network config")
	}
	if err := cfg.Validate(); err != nil {
		return NetworkConfig{}, err
	}
	return cfg, nil
}

// LoadConfig reads a JSON network config from disk.
func LoadConfig(path string) (NetworkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return NetworkConfig{}, errors.Wrapf(err, "read network config %s", path)
	}
	return ParseConfig(data)
}

// BuildNetwork constructs the network described by cfg with a Rand seeded
// from cfg.Seed.
func BuildNetwork(cfg NetworkConfig, opts ...Option) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts = append([]Option{WithID(cfg.ID)}, opts...)
	n := NewNetwork(NewRand(cfg.Seed), opts...)
	for i, def := range cfg.Layers {
		kind, _ := ParseNeuronKind(def.Kind)
		if _, err := n.AddLayer(def.Size, kind, i == 0, def.previous(i)); err != nil {
			return nil, errors.Wrapf(err, "build layer %d", i)
		}
	}
	return n, nil
}
