package net

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// InitializeRandomly sets every hidden and output bias to bias and draws each
// incoming edge weight from N(0, 1) scaled by 1/sqrt(fan-in). A nil src uses
// the global random source.
func (n *Network) InitializeRandomly(bias float64, src rand.Source) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	for l := 1; l < len(n.layers); l++ {
		for p := range n.layers[l] {
			nd := &n.layers[l][p]
			nd.Bias = bias

			scale := 1.0
			if fanIn := len(nd.in); fanIn > 0 {
				scale = 1 / math.Sqrt(float64(fanIn))
			}
			for _, ei := range nd.in {
				n.edges[ei].Weight = normal.Rand() * scale
			}
		}
	}
}
