package net

import (
	"fmt"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/activations"
)

// Role is the position of a node's layer in the network.
type Role int

const (
	// Input nodes take their pre-activation from the instance.
	Input Role = iota
	// Hidden nodes carry a trainable bias.
	Hidden
	// Output nodes feed the loss.
	Output
)

func (r Role) String() string {
	switch r {
	case Input:
		return "input"
	case Hidden:
		return "hidden"
	case Output:
		return "output"
	}
	return "unknown"
}

// Node is a unit of the network. Its edges live in the owning Network and are
// referenced by index, incoming and outgoing in creation order.
type Node struct {
	ID         NodeID
	Role       Role
	Activation activations.Kind

	// Bias is only part of the flattened parameters for Hidden nodes.
	Bias         float64
	BiasGradient float64

	// Scratch values of the last forward/backward pass.
	PreActivation  float64
	PostActivation float64
	Delta          float64
	Derivative     float64

	in  []int
	out []int
}

// FanIn returns the number of incoming edges.
func (nd *Node) FanIn() int { return len(nd.in) }

// FanOut returns the number of outgoing edges.
func (nd *Node) FanOut() int { return len(nd.out) }

// reset clears the scratch values and the gradients of the incoming edges.
// Pre-activations accumulate, so this must run before every forward pass.
func (nd *Node) reset(n *Network) {
	nd.PreActivation = 0
	nd.PostActivation = 0
	nd.Delta = 0
	nd.BiasGradient = 0
	nd.Derivative = 0
	for _, ei := range nd.in {
		n.edges[ei].WeightGradient = 0
	}
}

// propagateForward computes the pre-activation from the incoming edges (input
// nodes keep the value set by the caller) and applies the activation.
func (nd *Node) propagateForward(n *Network) error {
	if nd.Role != Input {
		if nd.Role == Hidden {
			nd.PreActivation += nd.Bias
		}
		for _, ei := range nd.in {
			e := &n.edges[ei]
			nd.PreActivation += e.Weight * n.node(e.Src).PostActivation
		}
	}

	post, deriv, err := nd.Activation.Apply(nd.PreActivation)
	if err != nil {
		return fmt.Errorf("%w: node %v: %w", ErrUnsupported, nd.ID, err)
	}
	nd.PostActivation = post
	nd.Derivative = deriv
	return nil
}

// propagateBackward turns the accumulated delta into gradients for the bias
// and every incoming edge, pushing deltas further back.
func (nd *Node) propagateBackward(n *Network) {
	pushBack := nd.Delta * nd.Derivative
	nd.BiasGradient += pushBack
	for _, ei := range nd.in {
		n.edges[ei].propagateBackward(n, pushBack)
	}
}

// visitParameters calls fn with the value and gradient of every parameter this
// node contributes to the flattened vector: the bias for Hidden nodes, then
// the weight of each outgoing edge in creation order. It returns the count.
func (nd *Node) visitParameters(n *Network, fn func(value, grad *float64)) int {
	count := 0
	if nd.Role == Hidden {
		fn(&nd.Bias, &nd.BiasGradient)
		count++
	}
	for _, ei := range nd.out {
		e := &n.edges[ei]
		fn(&e.Weight, &e.WeightGradient)
		count++
	}
	return count
}

// parameterCount returns how many entries visitParameters would produce.
func (nd *Node) parameterCount() int {
	count := len(nd.out)
	if nd.Role == Hidden {
		count++
	}
	return count
}

// flattenParameters writes this node's parameters into out starting at cursor.
func (nd *Node) flattenParameters(n *Network, cursor int, out []float64) int {
	return nd.visitParameters(n, func(value, _ *float64) {
		out[cursor] = *value
		cursor++
	})
}

// unflattenParameters reads this node's parameters from in starting at cursor.
func (nd *Node) unflattenParameters(n *Network, cursor int, in []float64) int {
	return nd.visitParameters(n, func(value, _ *float64) {
		*value = in[cursor]
		cursor++
	})
}

// flattenDeltas writes this node's parameter gradients into out starting at cursor.
func (nd *Node) flattenDeltas(n *Network, cursor int, out []float64) int {
	return nd.visitParameters(n, func(_, grad *float64) {
		out[cursor] = *grad
		cursor++
	})
}
