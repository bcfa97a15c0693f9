// Package net implements a layered feedforward network as an arena of nodes
// and edges, with exact backpropagation and finite-difference checks.
//
// A Network is not safe for concurrent use. Use Clone to evaluate in parallel.
package net

import (
	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/activations"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/loss"
)

// edgeKey identifies an edge by its endpoints.
type edgeKey struct {
	src NodeID
	dst NodeID
}

// Network owns its layers of nodes and a flat arena of edges.
type Network struct {
	layers    [][]Node
	edges     []Edge
	edgeIndex map[edgeKey]int
	loss      loss.Kind

	// numberWeights counts one per edge plus one per hidden node.
	numberWeights int

	// Pre-allocated output buffers reused by every forward pass
	outputs     []float64
	outputDelta []float64
}

// New creates a network with an input layer, the given hidden layers and an
// output layer. Input nodes are linear, hidden nodes tanh and output nodes
// sigmoid. No edges exist until ConnectFully or ConnectNodes is called.
func New(inputSize int, hiddenSizes []int, outputSize int, lossKind loss.Kind) (*Network, error) {
	if inputSize < 1 {
		return nil, errors.Wrapf(ErrConstruction, "input layer size %d", inputSize)
	}
	if outputSize < 1 {
		return nil, errors.Wrapf(ErrConstruction, "output layer size %d", outputSize)
	}
	for i, size := range hiddenSizes {
		if size < 1 {
			return nil, errors.Wrapf(ErrConstruction, "hidden layer %d size %d", i+1, size)
		}
	}
	if !lossKind.Valid() {
		return nil, errors.Wrapf(ErrUnsupported, "loss kind %d", int(lossKind))
	}

	sizes := make([]int, 0, len(hiddenSizes)+2)
	sizes = append(sizes, inputSize)
	sizes = append(sizes, hiddenSizes...)
	sizes = append(sizes, outputSize)

	n := &Network{
		layers:      make([][]Node, len(sizes)),
		edgeIndex:   make(map[edgeKey]int),
		loss:        lossKind,
		outputs:     make([]float64, outputSize),
		outputDelta: make([]float64, outputSize),
	}

	last := len(sizes) - 1
	for l, size := range sizes {
		role, act := Hidden, activations.Tanh
		switch l {
		case 0:
			role, act = Input, activations.Linear
		case last:
			role, act = Output, activations.Sigmoid
		}

		n.layers[l] = make([]Node, size)
		for p := range n.layers[l] {
			n.layers[l][p] = Node{
				ID:         NodeID{Layer: l, Position: p},
				Role:       role,
				Activation: act,
			}
			if role == Hidden {
				n.numberWeights++
			}
		}
	}

	return n, nil
}

// ConnectFully adds an edge from every node of each layer to every node of
// the next layer. Edges that already exist are kept as they are.
//
// The error return is reserved for connection rules that can fail; fully
// connecting a network built by New always succeeds and returns nil.
func (n *Network) ConnectFully() error {
	for l := 0; l+1 < len(n.layers); l++ {
		for i := range n.layers[l] {
			for j := range n.layers[l+1] {
				key := edgeKey{src: NodeID{l, i}, dst: NodeID{l + 1, j}}
				if _, ok := n.edgeIndex[key]; ok {
					continue
				}
				n.addEdge(key)
			}
		}
	}
	return nil
}

// ConnectNodes adds a single edge between two nodes. The source layer must be
// strictly lower than the destination layer; skipping layers is allowed.
// On error the network is left unchanged.
func (n *Network) ConnectNodes(inputLayer, inputPosition, outputLayer, outputPosition int) error {
	if inputLayer >= outputLayer {
		return errors.Wrapf(ErrTopology, "edge from layer %d to layer %d does not point forward", inputLayer, outputLayer)
	}
	src := NodeID{Layer: inputLayer, Position: inputPosition}
	dst := NodeID{Layer: outputLayer, Position: outputPosition}
	if !n.contains(src) {
		return errors.Wrapf(ErrTopology, "source node %v does not exist", src)
	}
	if !n.contains(dst) {
		return errors.Wrapf(ErrTopology, "destination node %v does not exist", dst)
	}

	key := edgeKey{src: src, dst: dst}
	if _, ok := n.edgeIndex[key]; ok {
		return errors.Wrapf(ErrTopology, "nodes %v and %v are already connected", src, dst)
	}
	n.addEdge(key)
	return nil
}

func (n *Network) addEdge(key edgeKey) {
	idx := len(n.edges)
	n.edges = append(n.edges, Edge{Src: key.src, Dst: key.dst})
	n.edgeIndex[key] = idx

	src := n.node(key.src)
	src.out = append(src.out, idx)
	dst := n.node(key.dst)
	dst.in = append(dst.in, idx)

	n.numberWeights++
}

// SetLayerActivation changes the activation of every node in a hidden or
// output layer. The input layer is always linear.
func (n *Network) SetLayerActivation(layer int, kind activations.Kind) error {
	if layer <= 0 || layer >= len(n.layers) {
		return errors.Wrapf(ErrConstruction, "layer %d cannot change activation", layer)
	}
	if !kind.Valid() {
		return errors.Wrapf(ErrUnsupported, "activation kind %d", int(kind))
	}
	for p := range n.layers[layer] {
		n.layers[layer][p].Activation = kind
	}
	return nil
}

func (n *Network) contains(id NodeID) bool {
	return id.Layer >= 0 && id.Layer < len(n.layers) &&
		id.Position >= 0 && id.Position < len(n.layers[id.Layer])
}

func (n *Network) node(id NodeID) *Node {
	return &n.layers[id.Layer][id.Position]
}

// Node returns the node at the given layer and position, or nil if there is none.
func (n *Network) Node(layer, position int) *Node {
	id := NodeID{Layer: layer, Position: position}
	if !n.contains(id) {
		return nil
	}
	return n.node(id)
}

// NumLayers returns the number of layers including input and output.
func (n *Network) NumLayers() int { return len(n.layers) }

// LayerSize returns the number of nodes in layer l.
func (n *Network) LayerSize(l int) int { return len(n.layers[l]) }

// InputSize returns the size of the input layer.
func (n *Network) InputSize() int { return len(n.layers[0]) }

// OutputSize returns the size of the output layer.
func (n *Network) OutputSize() int { return len(n.layers[len(n.layers)-1]) }

// Edges returns the edges in creation order. The slice is owned by the network.
func (n *Network) Edges() []Edge { return n.edges }

// NumEdges returns the number of edges.
func (n *Network) NumEdges() int { return len(n.edges) }

// Loss returns the configured loss kind.
func (n *Network) Loss() loss.Kind { return n.loss }

// Clone returns a deep copy sharing no state with n.
func (n *Network) Clone() *Network {
	c := &Network{
		layers:        make([][]Node, len(n.layers)),
		edges:         append([]Edge(nil), n.edges...),
		edgeIndex:     make(map[edgeKey]int, len(n.edgeIndex)),
		loss:          n.loss,
		numberWeights: n.numberWeights,
		outputs:       make([]float64, len(n.outputs)),
		outputDelta:   make([]float64, len(n.outputDelta)),
	}
	for l, layer := range n.layers {
		c.layers[l] = make([]Node, len(layer))
		for p, nd := range layer {
			nd.in = append([]int(nil), nd.in...)
			nd.out = append([]int(nil), nd.out...)
			c.layers[l][p] = nd
		}
	}
	for k, v := range n.edgeIndex {
		c.edgeIndex[k] = v
	}
	return c
}
