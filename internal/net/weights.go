package net

import "github.com/pkg/errors"

// NumberWeights returns the length of the flattened parameter vector.
func (n *Network) NumberWeights() int {
	return n.numberWeights
}

// checkCounter verifies the running counter still matches the topology. A
// mismatch is an internal invariant violation, not a caller mistake.
func (n *Network) checkCounter() error {
	count := 0
	for l := range n.layers {
		for p := range n.layers[l] {
			count += n.layers[l][p].parameterCount()
		}
	}
	if count != n.numberWeights {
		return errors.Wrapf(ErrParameterMismatch,
			"invariant violated: topology holds %d parameters but counter is %d", count, n.numberWeights)
	}
	return nil
}

// flattenWith walks the nodes layer-major, position-major. This is the single
// canonical ordering for weights and deltas.
func (n *Network) flattenWith(walk func(nd *Node, cursor int) int) error {
	if err := n.checkCounter(); err != nil {
		return err
	}
	cursor := 0
	for l := range n.layers {
		for p := range n.layers[l] {
			cursor += walk(&n.layers[l][p], cursor)
		}
	}
	return nil
}

// Weights returns the flattened parameters: for each node in layer order, the
// bias (hidden nodes only) followed by the weights of its outgoing edges.
func (n *Network) Weights() ([]float64, error) {
	out := make([]float64, n.numberWeights)
	err := n.flattenWith(func(nd *Node, cursor int) int {
		return nd.flattenParameters(n, cursor, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetWeights writes a vector produced in Weights order back into the network.
func (n *Network) SetWeights(weights []float64) error {
	if len(weights) != n.numberWeights {
		return errors.Wrapf(ErrParameterMismatch, "got %d weights, network has %d", len(weights), n.numberWeights)
	}
	return n.flattenWith(func(nd *Node, cursor int) int {
		return nd.unflattenParameters(n, cursor, weights)
	})
}

// Deltas returns the gradient of the last backward pass in Weights order.
func (n *Network) Deltas() ([]float64, error) {
	out := make([]float64, n.numberWeights)
	err := n.flattenWith(func(nd *Node, cursor int) int {
		return nd.flattenDeltas(n, cursor, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
