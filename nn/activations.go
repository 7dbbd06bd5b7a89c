package nn

import (
	"math"
)

// Activate is the neuron transfer function shared by both kinds: tanh(x).
func Activate(x float64) float64 {
	return math.Tanh(x)
}

// Sigmoid is the logistic gate function 1 / (1 + e^-x) used by the
// recurrent gates.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
