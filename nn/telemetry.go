package nn

// Blueprint is the structural summary of a built network.
type Blueprint struct {
	ID          string           `json:"id"`
	Seed        int64            `json:"seed"`
	TotalLayers int              `json:"total_layers"`
	TotalParams int              `json:"total_parameters"`
	Layers      []LayerTelemetry `json:"layers"`
}

// LayerTelemetry contains metadata about a specific layer.
type LayerTelemetry struct {
	Index      int    `json:"index"`
	Previous   int    `json:"previous"`
	Kind       string `json:"kind"`
	Input      bool   `json:"input,omitempty"`
	Size       int    `json:"size"`
	InputWidth int    `json:"input_width"`
	Parameters int    `json:"parameters"`
	State      string `json:"state"`
}

// ExtractBlueprint walks the arena and counts parameters per layer.
func ExtractBlueprint(n *Network) Blueprint {
	bp := Blueprint{
		ID:          n.id,
		Seed:        n.Seed(),
		TotalLayers: len(n.layers),
		Layers:      make([]LayerTelemetry, 0, len(n.layers)),
	}
	for _, l := range n.layers {
		tel := extractLayerTelemetry(l)
		bp.Layers = append(bp.Layers, tel)
		bp.TotalParams += tel.Parameters
	}
	return bp
}

func extractLayerTelemetry(l *Layer) LayerTelemetry {
	width := 0
	if len(l.nodes) > 0 {
		width = l.nodes[0].NumInputs()
	}
	size := len(l.nodes)

	// Weights + biases + layer scalars
	params := size*(width+1) + size
	if l.kind == KindRecurrent {
		// forget (2n+1) + candidate (4n+2) + output (2n+1)
		params += size * (8*width + 4)
	}

	return LayerTelemetry{
		Index:      l.index,
		Previous:   l.prev,
		Kind:       l.kind.String(),
		Input:      l.isInput,
		Size:       size,
		InputWidth: width,
		Parameters: params,
		State:      l.state.String(),
	}
}
