// Package nn provides the forward signal path of a small neural network built
// from two neuron kinds: a feed-forward unit and a recurrent unit with
// long-term/short-term state (an LSTM-style cell).
//
// A Network owns an ordered arena of Layers. Every Layer holds Neurons of one
// kind and wires their input vectors from its predecessor:
//   - FeedForward layers copy the predecessor's output vector into each node
//   - Recurrent layers load the predecessor's 3-row sample matrix
//     (outputs, short-term samples, long-term samples) and seed every node's
//     state with the pooled averages
//
// Feed-forward neurons compute tanh(Σ wᵢxᵢ + b). Recurrent neurons run three
// gates in fixed order: forget → candidate → output.
//
// Example usage:
//
//	rng := nn.NewRand(42)
//	network := nn.NewNetwork(rng)
//	in, _ := network.AddLayer(10, nn.KindFeedForward, true, nn.NoPrevious)
//	mem, _ := network.AddLayer(8, nn.KindRecurrent, false, in.Index())
//	network.AddLayer(1, nn.KindFeedForward, false, mem.Index())
//
//	output, err := network.Forward(input)
//
// Parameter initialisation draws from the Rand passed to NewNetwork, so two
// networks built from the same seed are identical.
package nn
