// Package loss provides the output-layer loss functions.
package loss

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrUnsupported is returned for a loss kind outside the closed set.
	ErrUnsupported = errors.New("unsupported loss")
	// ErrLabelSize is returned when expected outputs do not match the output layer.
	ErrLabelSize = errors.New("expected outputs size mismatch")
	// ErrClassIndex is returned when a class label is not a valid output index.
	ErrClassIndex = errors.New("invalid class index")
)

// Kind selects how output activations are scored against expected outputs.
type Kind int

const (
	// None scores the plain sum of outputs; every delta is 1.
	None Kind = iota
	// L1 is the sum of absolute errors.
	L1
	// L2 is the Euclidean norm of the error vector.
	L2
	// SVM is the multiclass hinge loss with margin 1.
	SVM
	// Softmax is softmax followed by cross entropy.
	Softmax
)

// Evaluate scores the output activations y against expected and writes
// dLoss/dy into delta, which must have the same length as y.
//
// For SVM and Softmax expected[0] holds the integer class index.
func (k Kind) Evaluate(y, expected, delta []float64) (float64, error) {
	if len(delta) != len(y) {
		return 0, errors.Wrapf(ErrLabelSize, "delta has %d entries for %d outputs", len(delta), len(y))
	}

	switch k {
	case None:
		for i := range delta {
			delta[i] = 1
		}
		return floats.Sum(y), nil

	case L1:
		if len(expected) != len(y) {
			return 0, errors.Wrapf(ErrLabelSize, "got %d, want %d", len(expected), len(y))
		}
		var sum float64
		for i := range y {
			e := expected[i] - y[i]
			sum += math.Abs(e)
			if e > 0 {
				delta[i] = -1
			} else {
				delta[i] = 1
			}
		}
		return sum, nil

	case L2:
		if len(expected) != len(y) {
			return 0, errors.Wrapf(ErrLabelSize, "got %d, want %d", len(expected), len(y))
		}
		// delta holds the raw errors until the norm is known
		floats.SubTo(delta, expected, y)
		norm := floats.Norm(delta, 2)
		if norm == 0 {
			for i := range delta {
				delta[i] = 0
			}
			return 0, nil
		}
		floats.Scale(-1/norm, delta)
		return norm, nil

	case SVM:
		c, err := ClassIndex(expected, len(y))
		if err != nil {
			return 0, err
		}
		var sum, count float64
		for i := range y {
			if i == c {
				continue
			}
			hinge := y[i] - y[c] + 1
			if hinge > 0 {
				sum += hinge
				delta[i] = 1
				count++
			} else {
				delta[i] = 0
			}
		}
		delta[c] = -count
		return sum, nil

	case Softmax:
		c, err := ClassIndex(expected, len(y))
		if err != nil {
			return 0, err
		}
		// shift by the max for numerical stability
		maxVal := floats.Max(y)
		var sum float64
		for i := range y {
			delta[i] = math.Exp(y[i] - maxVal)
			sum += delta[i]
		}
		floats.Scale(1/sum, delta)
		l := -math.Log(delta[c])
		delta[c]--
		return l, nil
	}

	return 0, errors.Wrapf(ErrUnsupported, "kind %d", int(k))
}

// ClassIndex reads the class label stored in expected[0] and checks it
// addresses one of n outputs.
func ClassIndex(expected []float64, n int) (int, error) {
	if len(expected) == 0 {
		return 0, errors.Wrap(ErrClassIndex, "no class label")
	}
	v := expected[0]
	c := int(v)
	if float64(c) != v || c < 0 || c >= n {
		return 0, errors.Wrapf(ErrClassIndex, "label %v for %d outputs", v, n)
	}
	return c, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= None && k <= Softmax
}

// IsClassification reports whether expected outputs hold a class index.
func (k Kind) IsClassification() bool {
	return k == SVM || k == Softmax
}

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case L1:
		return "l1"
	case L2:
		return "l2"
	case SVM:
		return "svm"
	case Softmax:
		return "softmax"
	}
	return "unknown"
}

// Parse returns the kind named by s (case-insensitive).
func Parse(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return None, nil
	case "l1", "l1_norm":
		return L1, nil
	case "l2", "l2_norm":
		return L2, nil
	case "svm":
		return SVM, nil
	case "softmax":
		return Softmax, nil
	}
	return 0, errors.Wrapf(ErrUnsupported, "%q", s)
}
