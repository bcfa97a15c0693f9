package net

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
)

// DefaultStep is the finite-difference step used when none is given.
const DefaultStep = 1e-7

// NumericGradient approximates dLoss/dWeights for one instance with central
// differences, (loss(w+h) - loss(w-h)) / 2h per parameter. It needs two
// forward passes per weight and is meant for verification only. The weights
// are restored before returning.
func (n *Network) NumericGradient(instance data.Instance, h float64) ([]float64, error) {
	return n.numericGradient(func() (float64, error) {
		return n.Forward(instance)
	}, h)
}

// NumericBatchGradient approximates the summed gradient over instances.
func (n *Network) NumericBatchGradient(instances []data.Instance, h float64) ([]float64, error) {
	return n.numericGradient(func() (float64, error) {
		return n.ForwardAll(instances)
	}, h)
}

func (n *Network) numericGradient(lossFn func() (float64, error), h float64) ([]float64, error) {
	if h <= 0 {
		h = DefaultStep
	}
	saved, err := n.Weights()
	if err != nil {
		return nil, err
	}

	var evalErr error
	objective := func(w []float64) float64 {
		if evalErr != nil {
			return 0
		}
		if err := n.SetWeights(w); err != nil {
			evalErr = err
			return 0
		}
		l, err := lossFn()
		if err != nil {
			evalErr = err
		}
		return l
	}

	grad := make([]float64, len(saved))
	// Sequential evaluation: the objective mutates the network.
	fd.Gradient(grad, objective, saved, &fd.Settings{
		Formula: fd.Central,
		Step:    h,
	})

	if err := n.SetWeights(saved); err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, errors.Wrap(evalErr, "numeric gradient")
	}
	return grad, nil
}

// RelativeError compares two gradients as ||a-b||_1 / max(||a||_1, ||b||_1).
// Two zero vectors have relative error 0.
func RelativeError(a, b []float64) float64 {
	denom := math.Max(floats.Norm(a, 1), floats.Norm(b, 1))
	if denom == 0 {
		return 0
	}
	return floats.Distance(a, b, 1) / denom
}

// GradientCheck compares the backpropagated gradient over instances with the
// numeric one and returns their relative error. Values above about 1e-5
// indicate a broken backward pass.
func (n *Network) GradientCheck(instances []data.Instance, h float64) (float64, error) {
	analytic, err := n.BatchGradient(instances)
	if err != nil {
		return 0, err
	}
	numeric, err := n.NumericBatchGradient(instances, h)
	if err != nil {
		return 0, err
	}
	return RelativeError(analytic, numeric), nil
}
