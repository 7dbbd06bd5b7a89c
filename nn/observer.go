package nn

import (
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// LayerObserver receives an event after every layer compute in Network.Forward.
type LayerObserver interface {
	OnForward(event LayerEvent)
}

// ObserverFunc adapts a function to LayerObserver.
type ObserverFunc func(event LayerEvent)

func (f ObserverFunc) OnForward(event LayerEvent) { f(event) }

// LayerEvent describes one layer compute.
type LayerEvent struct {
	NetworkID string     `json:"network_id"`
	LayerIdx  int        `json:"layer_idx"`
	Kind      NeuronKind `json:"kind"`
	Stats     LayerStats `json:"stats"`
	Output    []float64  `json:"output,omitempty"`
	Step      uint64     `json:"step"`
}

// LayerStats summarises an output vector.
type LayerStats struct {
	AvgActivation float64 `json:"avg_activation"`
	MaxActivation float64 `json:"max_activation"`
	MinActivation float64 `json:"min_activation"`
	ActiveNeurons int     `json:"active_neurons"`
	TotalNeurons  int     `json:"total_neurons"`
}

// computeLayerStats counts a neuron as active when its output exceeds threshold.
func computeLayerStats(data []float64, threshold float64) LayerStats {
	if len(data) == 0 {
		return LayerStats{}
	}

	active := 0
	for _, v := range data {
		if v > threshold {
			active++
		}
	}
	return LayerStats{
		AvgActivation: floats.Sum(data) / float64(len(data)),
		MaxActivation: floats.Max(data),
		MinActivation: floats.Min(data),
		ActiveNeurons: active,
		TotalNeurons:  len(data),
	}
}

func (n *Network) notify(l *Layer) {
	if n.observer == nil {
		return
	}
	output := l.Outputs()
	n.observer.OnForward(LayerEvent{
		NetworkID: n.id,
		LayerIdx:  l.index,
		Kind:      l.kind,
		Stats:     computeLayerStats(output, 0),
		Output:    output,
		Step:      n.step,
	})
}

// LogObserver writes layer events to a logrus logger.
type LogObserver struct {
	Logger  logrus.FieldLogger
	Verbose bool // include the full output vector (can be large!)
}

func (o *LogObserver) OnForward(event LayerEvent) {
	logger := o.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	entry := logger.WithFields(logrus.Fields{
		"network": event.NetworkID,
		"step":    event.Step,
		"layer":   event.LayerIdx,
		"kind":    event.Kind.String(),
		"avg":     event.Stats.AvgActivation,
		"max":     event.Stats.MaxActivation,
		"active":  event.Stats.ActiveNeurons,
		"total":   event.Stats.TotalNeurons,
	})
	if o.Verbose && len(event.Output) <= 20 {
		entry = entry.WithField("output", event.Output)
	}
	entry.Info("forward")
}
