package nn

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Accelerator computes the weighted sums Σ inputs[i][j]*weights[i][j] + biases[i]
// for every node of a feed-forward layer. Implementations must treat the
// slices as read-only.
type Accelerator interface {
	WeightedSums(inputs [][]float64, weights [][]float64, biases []float64) ([]float64, error)
}

// Network owns an arena of layers and the random context used to build them.
// Layers are visited strictly in arena order, which is also dependency order
// since a predecessor must exist before its successor is added.
type Network struct {
	id       string
	rng      *Rand
	layers   []*Layer
	logger   logrus.FieldLogger
	observer LayerObserver
	accel    Accelerator
	step     uint64
}

// Option configures a Network.
type Option func(*Network)

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(n *Network) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithObserver attaches an observer notified after every layer compute.
func WithObserver(o LayerObserver) Option {
	return func(n *Network) { n.observer = o }
}

// WithAccelerator offloads feed-forward weighted sums.
func WithAccelerator(a Accelerator) Option {
	return func(n *Network) { n.accel = a }
}

// WithID overrides the generated network ID.
func WithID(id string) Option {
	return func(n *Network) {
		if id != "" {
			n.id = id
		}
	}
}

// NewNetwork creates an empty network. A nil rng is replaced by a
// time-seeded one.
func NewNetwork(rng *Rand, opts ...Option) *Network {
	if rng == nil {
		rng = NewRand(0)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	n := &Network{
		id:     uuid.NewString(),
		rng:    rng,
		logger: logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddLayer constructs a layer at the end of the arena. prev is the arena
// index of the predecessor or NoPrevious; only input layers may omit it.
func (n *Network) AddLayer(size int, kind NeuronKind, isInput bool, prev int) (*Layer, error) {
	l, err := newLayer(n, len(n.layers), size, kind, isInput, prev)
	if err != nil {
		return nil, err
	}
	n.layers = append(n.layers, l)

	n.logger.WithFields(logrus.Fields{
		"network":  n.id,
		"layer":    l.index,
		"kind":     kind.String(),
		"size":     size,
		"input":    isInput,
		"previous": prev,
	}).Debug("layer added")
	return l, nil
}

// Forward stages input on layer 0 and computes every layer in order.
// Later layers are rewired from their predecessor before computing and
// recurrent layers broadcast their state afterwards. It returns a copy of the
// last layer's outputs.
func (n *Network) Forward(input []float64) ([]float64, error) {
	if len(n.layers) == 0 {
		return nil, logicErrorf("network %s has no layers", n.id)
	}
	if !n.layers[0].isInput {
		return nil, logicErrorf("layer 0 is not an input layer")
	}
	if err := n.layers[0].SetInputs(input); err != nil {
		return nil, errors.Wrap(err, "stage input")
	}

	n.step++
	for i, l := range n.layers {
		if i > 0 {
			if l.isInput {
				return nil, logicErrorf("layer %d is a second input layer", i)
			}
			if err := l.Rewire(); err != nil {
				return nil, errors.Wrapf(err, "rewire layer %d", i)
			}
		}
		if err := l.Compute(); err != nil {
			return nil, err
		}
		if l.kind == KindRecurrent {
			if err := l.Broadcast(); err != nil {
				return nil, err
			}
		}
		n.notify(l)
	}

	n.logger.WithFields(logrus.Fields{
		"network": n.id,
		"step":    n.step,
	}).Debug("forward pass complete")
	return n.Output(), nil
}

// Output returns a copy of the last layer's outputs.
func (n *Network) Output() []float64 {
	if len(n.layers) == 0 {
		return nil
	}
	return n.layers[len(n.layers)-1].Outputs()
}

// Layers returns the arena. The slice is a copy.
func (n *Network) Layers() []*Layer { return append([]*Layer(nil), n.layers...) }

// Layer returns layer i, or nil when out of range.
func (n *Network) Layer(i int) *Layer {
	if i < 0 || i >= len(n.layers) {
		return nil
	}
	return n.layers[i]
}

// NumLayers returns the arena length.
func (n *Network) NumLayers() int { return len(n.layers) }

// ID returns the network identifier.
func (n *Network) ID() string { return n.id }

// Seed returns the seed of the network's random context.
func (n *Network) Seed() int64 { return n.rng.Seed() }

// Steps returns the number of forward passes run so far.
func (n *Network) Steps() uint64 { return n.step }
