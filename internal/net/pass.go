package net

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
)

// Forward evaluates the network on one instance, seeds the output deltas from
// the loss and returns the loss.
func (n *Network) Forward(instance data.Instance) (float64, error) {
	for l := range n.layers {
		for p := range n.layers[l] {
			n.layers[l][p].reset(n)
		}
	}

	inputs := n.layers[0]
	if len(instance.Inputs) != len(inputs) {
		return 0, errors.Wrapf(ErrInputSize, "got %d inputs, input layer has %d", len(instance.Inputs), len(inputs))
	}
	for i, v := range instance.Inputs {
		inputs[i].PreActivation = v
	}

	// Every edge points to a later layer, so layer order is a topological order.
	for l := range n.layers {
		for p := range n.layers[l] {
			if err := n.layers[l][p].propagateForward(n); err != nil {
				return 0, err
			}
		}
	}

	outputs := n.layers[len(n.layers)-1]
	for i := range outputs {
		n.outputs[i] = outputs[i].PostActivation
	}
	l, err := n.loss.Evaluate(n.outputs, instance.ExpectedOutputs, n.outputDelta)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}
	for i := range outputs {
		outputs[i].Delta = n.outputDelta[i]
	}
	return l, nil
}

// ForwardAll evaluates every instance and returns the sum of the losses.
func (n *Network) ForwardAll(instances []data.Instance) (float64, error) {
	var total float64
	for i, inst := range instances {
		l, err := n.Forward(inst)
		if err != nil {
			return 0, errors.Wrapf(err, "instance %d", i)
		}
		total += l
	}
	return total, nil
}

// Backward propagates the output deltas seeded by the last Forward back to
// every bias and edge weight. It must follow a Forward on the same instance.
func (n *Network) Backward() {
	for l := len(n.layers) - 1; l >= 0; l-- {
		for p := range n.layers[l] {
			n.layers[l][p].propagateBackward(n)
		}
	}
}

// Gradient returns dLoss/dWeights for one instance in Weights order.
func (n *Network) Gradient(instance data.Instance) ([]float64, error) {
	if _, err := n.Forward(instance); err != nil {
		return nil, err
	}
	n.Backward()
	return n.Deltas()
}

// BatchGradient returns the sum (not the mean) of the per-instance gradients.
func (n *Network) BatchGradient(instances []data.Instance) ([]float64, error) {
	sum := make([]float64, n.numberWeights)
	for i, inst := range instances {
		g, err := n.Gradient(inst)
		if err != nil {
			return nil, errors.Wrapf(err, "instance %d", i)
		}
		floats.Add(sum, g)
	}
	return sum, nil
}

// Outputs returns a copy of the output activations of the last Forward.
func (n *Network) Outputs() []float64 {
	return append([]float64(nil), n.outputs...)
}

// Predict returns the index of the largest output activation for the instance.
// Ties go to the lowest index.
func (n *Network) Predict(instance data.Instance) (int, error) {
	if _, err := n.Forward(instance); err != nil {
		return 0, err
	}
	return floats.MaxIdx(n.outputs), nil
}

// Accuracy returns the fraction of instances whose predicted class equals the
// class index stored in ExpectedOutputs[0].
func (n *Network) Accuracy(instances []data.Instance) (float64, error) {
	if len(instances) == 0 {
		return 0, nil
	}
	correct := 0
	for i, inst := range instances {
		predicted, err := n.Predict(inst)
		if err != nil {
			return 0, errors.Wrapf(err, "instance %d", i)
		}
		if len(inst.ExpectedOutputs) > 0 && int(inst.ExpectedOutputs[0]) == predicted {
			correct++
		}
	}
	return float64(correct) / float64(len(instances)), nil
}
