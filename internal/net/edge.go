package net

import (
	"math"

	"github.com/pkg/errors"
)

// NodeID addresses a node by layer and position within the layer.
type NodeID struct {
	Layer    int
	Position int
}

// Edge is a directed weighted connection. Src.Layer is always lower than Dst.Layer.
type Edge struct {
	Src            NodeID
	Dst            NodeID
	Weight         float64
	WeightGradient float64
}

// Equal reports whether both edges connect the same endpoints.
func (e Edge) Equal(other Edge) bool {
	return e.Src == other.Src && e.Dst == other.Dst
}

// SetWeight sets the weight, rejecting NaN and infinities.
func (e *Edge) SetWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return errors.Wrapf(ErrNonFinite, "edge %v -> %v: %v", e.Src, e.Dst, w)
	}
	e.Weight = w
	return nil
}

// GetWeight returns the weight.
func (e *Edge) GetWeight() float64 {
	return e.Weight
}

// propagateBackward records dLoss/dWeight and pushes the delta into the
// source node. The source may feed several edges, so its delta accumulates.
func (e *Edge) propagateBackward(n *Network, delta float64) {
	src := n.node(e.Src)
	e.WeightGradient = delta * src.PostActivation
	src.Delta += e.Weight * delta
}
