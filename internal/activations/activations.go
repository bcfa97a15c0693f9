// Package activations provides the node activation functions.
package activations

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned for an activation kind outside the closed set.
var ErrUnsupported = errors.New("unsupported activation")

// Kind selects the activation function of a node.
type Kind int

const (
	// Linear passes the pre-activation through unchanged.
	Linear Kind = iota
	// Sigmoid squashes into (0, 1).
	Sigmoid
	// Tanh squashes into (-1, 1).
	Tanh
)

// sigmoid computes the logistic function
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Apply computes post = f(pre) and the derivative f' expressed in terms of post.
func (k Kind) Apply(pre float64) (post, deriv float64, err error) {
	switch k {
	case Linear:
		return pre, 1, nil
	case Sigmoid:
		post = sigmoid(pre)
		return post, post * (1 - post), nil
	case Tanh:
		post = math.Tanh(pre)
		return post, 1 - post*post, nil
	}
	return 0, 0, errors.Wrapf(ErrUnsupported, "kind %d", int(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= Linear && k <= Tanh
}

func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Sigmoid:
		return "sigmoid"
	case Tanh:
		return "tanh"
	}
	return "unknown"
}

// Parse returns the kind named by s (case-insensitive).
func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear":
		return Linear, nil
	case "sigmoid":
		return Sigmoid, nil
	case "tanh":
		return Tanh, nil
	}
	return 0, errors.Wrapf(ErrUnsupported, "%q", s)
}
