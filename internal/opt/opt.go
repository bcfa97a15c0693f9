// Package opt provides weight update rules for flat parameter vectors.
package opt

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrUnknown is returned by New for an optimizer name it does not know.
var ErrUnknown = errors.New("unknown optimizer")

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Step returns updated parameters and leaves params untouched.
	Step(params, gradients []float64) []float64

	// StepInPlace updates params in place.
	StepInPlace(params, gradients []float64)

	GetLR() float64
	SetLR(lr float64)
}

// Config holds the hyperparameters of every optimizer. Each one reads only
// the fields it needs.
type Config struct {
	LearningRate float64
	Mu           float64
	DecayRate    float64
	Eps          float64
	Beta1        float64
	Beta2        float64
}

// DefaultConfig returns commonly used hyperparameters.
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.001,
		Mu:           0.9,
		DecayRate:    0.99,
		Eps:          1e-8,
		Beta1:        0.9,
		Beta2:        0.999,
	}
}

// New returns the optimizer called name: "sgd", "nesterov", "rmsprop" or "adam".
func New(name string, cfg Config) (Optimizer, error) {
	switch strings.ToLower(name) {
	case "sgd":
		return &SGD{LearningRate: cfg.LearningRate}, nil
	case "nesterov":
		return &Nesterov{LearningRate: cfg.LearningRate, Mu: cfg.Mu}, nil
	case "rmsprop":
		return &RMSProp{LearningRate: cfg.LearningRate, DecayRate: cfg.DecayRate, Eps: cfg.Eps}, nil
	case "adam":
		return &Adam{LearningRate: cfg.LearningRate, Beta1: cfg.Beta1, Beta2: cfg.Beta2, Eps: cfg.Eps}, nil
	}
	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}

// step copies params and updates the copy.
func step(o Optimizer, params, gradients []float64) []float64 {
	result := append([]float64(nil), params...)
	o.StepInPlace(result, gradients)
	return result
}

// resize returns s with length n, zeroed if the length changed.
func resize(s []float64, n int) []float64 {
	if len(s) == n {
		return s
	}
	return make([]float64, n)
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LearningRate float64
}

// Step computes params - lr * gradients.
func (s *SGD) Step(params, gradients []float64) []float64 {
	return step(s, params, gradients)
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(params, gradients []float64) {
	floats.AddScaled(params, -s.LearningRate, gradients)
}

func (s *SGD) GetLR() float64  { return s.LearningRate }
func (s *SGD) SetLR(lr float64) { s.LearningRate = lr }

// Nesterov is momentum with the Nesterov look-ahead correction:
//
//	v = mu*v - lr*g
//	w += -mu*v_prev + (1+mu)*v
type Nesterov struct {
	LearningRate float64
	Mu           float64

	velocity []float64
}

func (n *Nesterov) Step(params, gradients []float64) []float64 {
	return step(n, params, gradients)
}

func (n *Nesterov) StepInPlace(params, gradients []float64) {
	n.velocity = resize(n.velocity, len(params))
	for j := range params {
		prev := n.velocity[j]
		n.velocity[j] = n.Mu*n.velocity[j] - n.LearningRate*gradients[j]
		params[j] += -n.Mu*prev + (1+n.Mu)*n.velocity[j]
	}
}

func (n *Nesterov) GetLR() float64  { return n.LearningRate }
func (n *Nesterov) SetLR(lr float64) { n.LearningRate = lr }

// RMSProp scales each step by a running average of squared gradients.
type RMSProp struct {
	LearningRate float64
	DecayRate    float64
	Eps          float64

	cache []float64
}

func (r *RMSProp) Step(params, gradients []float64) []float64 {
	return step(r, params, gradients)
}

func (r *RMSProp) StepInPlace(params, gradients []float64) {
	r.cache = resize(r.cache, len(params))
	for j, g := range gradients {
		r.cache[j] = r.DecayRate*r.cache[j] + (1-r.DecayRate)*g*g
		params[j] -= r.LearningRate / (math.Sqrt(r.cache[j]) + r.Eps) * g
	}
}

func (r *RMSProp) GetLR() float64  { return r.LearningRate }
func (r *RMSProp) SetLR(lr float64) { r.LearningRate = lr }

// Adam optimizer for faster convergence. Moments are not bias corrected and
// eps sits inside the square root: w -= lr * m / sqrt(v + eps).
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Eps          float64

	m []float64
	v []float64
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Eps:          1e-8,
	}
}

func (a *Adam) Step(params, gradients []float64) []float64 {
	return step(a, params, gradients)
}

func (a *Adam) StepInPlace(params, gradients []float64) {
	a.m = resize(a.m, len(params))
	a.v = resize(a.v, len(params))
	for j, g := range gradients {
		a.m[j] = a.Beta1*a.m[j] + (1-a.Beta1)*g
		a.v[j] = a.Beta2*a.v[j] + (1-a.Beta2)*g*g
		params[j] -= a.LearningRate * a.m[j] / math.Sqrt(a.v[j]+a.Eps)
	}
}

func (a *Adam) GetLR() float64  { return a.LearningRate }
func (a *Adam) SetLR(lr float64) { a.LearningRate = lr }
