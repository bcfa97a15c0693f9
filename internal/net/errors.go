package net

import "github.com/pkg/errors"

// Errors reported by network construction and evaluation. Callers match them
// with errors.Is; the returned errors carry additional context.
var (
	// ErrConstruction reports inconsistent layer sizes.
	ErrConstruction = errors.New("invalid network construction")
	// ErrTopology reports an edge that would break the layer ordering, an
	// out-of-range endpoint, or a duplicate edge.
	ErrTopology = errors.New("invalid topology")
	// ErrParameterMismatch reports a weight vector of the wrong length, or a
	// parameter counter that disagrees with the topology.
	ErrParameterMismatch = errors.New("parameter count mismatch")
	// ErrInputSize reports an instance whose input vector does not match the input layer.
	ErrInputSize = errors.New("input size mismatch")
	// ErrUnsupported reports an unknown activation or loss kind.
	ErrUnsupported = errors.New("unsupported configuration")
	// ErrNonFinite reports a NaN or infinite weight.
	ErrNonFinite = errors.New("non-finite weight")
)
