package net

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/loss"
)

const maxRelativeError = 1e-5

var classInstances = []data.Instance{
	{ExpectedOutputs: []float64{0}, Inputs: []float64{0.5, -1.2, 0.3}},
	{ExpectedOutputs: []float64{2}, Inputs: []float64{-0.7, 0.4, 1.1}},
	{ExpectedOutputs: []float64{1}, Inputs: []float64{1.5, 0.2, -0.4}},
}

var regressionInstances = []data.Instance{
	{ExpectedOutputs: []float64{0.2, 0.9, 0.4}, Inputs: []float64{0.5, -1.2, 0.3}},
	{ExpectedOutputs: []float64{0.8, 0.1, 0.6}, Inputs: []float64{-0.7, 0.4, 1.1}},
	{ExpectedOutputs: []float64{0.3, 0.5, 0.95}, Inputs: []float64{1.5, 0.2, -0.4}},
}

type topology struct {
	name   string
	hidden []int
	skips  [][4]int
}

// buildChecked creates a 3-input 3-output network with the given topology.
func buildChecked(t *testing.T, top topology, kind loss.Kind, seed uint64) *Network {
	t.Helper()
	n := newConnected(t, 3, top.hidden, 3, kind)
	for _, s := range top.skips {
		require.NoError(t, n.ConnectNodes(s[0], s[1], s[2], s[3]))
	}
	n.InitializeRandomly(0.1, rand.NewPCG(seed, 99))
	return n
}

// TestGradientCheck tests backpropagation against central differences for every loss.
func TestGradientCheck(t *testing.T) {
	topologies := []topology{
		{name: "3-4-3", hidden: []int{4}},
		{name: "3-4-2-3", hidden: []int{4, 2}},
		{name: "3-4-2-3 skip", hidden: []int{4, 2}, skips: [][4]int{{0, 2, 3, 1}, {1, 0, 3, 2}}},
		{name: "3-3 no hidden", hidden: nil},
	}
	kinds := []struct {
		kind      loss.Kind
		instances []data.Instance
	}{
		{loss.None, regressionInstances},
		{loss.L1, regressionInstances},
		{loss.L2, regressionInstances},
		{loss.SVM, classInstances},
		{loss.Softmax, classInstances},
	}

	for _, top := range topologies {
		for _, k := range kinds {
			t.Run(top.name+"/"+k.kind.String(), func(t *testing.T) {
				for seed := uint64(1); seed <= 3; seed++ {
					n := buildChecked(t, top, k.kind, seed)
					relErr, err := n.GradientCheck(k.instances, DefaultStep)
					require.NoError(t, err)
					assert.LessOrEqual(t, relErr, maxRelativeError, "seed %d", seed)
				}
			})
		}
	}
}

// TestGradientCheckXOR tests the XOR shapes with single-output losses.
func TestGradientCheckXOR(t *testing.T) {
	tests := []struct {
		name   string
		hidden []int
		skips  [][4]int
	}{
		{"2-3-1", []int{3}, nil},
		{"2-3-4-1", []int{3, 4}, nil},
		{"2-3-4-1 skip", []int{3, 4}, [][4]int{{0, 0, 2, 1}, {0, 1, 3, 0}, {1, 2, 3, 0}}},
		{"2-3-2-4-1", []int{3, 2, 4}, nil},
	}

	for _, tt := range tests {
		for _, kind := range []loss.Kind{loss.None, loss.L2} {
			t.Run(tt.name+"/"+kind.String(), func(t *testing.T) {
				n := newConnected(t, 2, tt.hidden, 1, kind)
				for _, s := range tt.skips {
					require.NoError(t, n.ConnectNodes(s[0], s[1], s[2], s[3]))
				}
				n.InitializeRandomly(0.1, rand.NewPCG(42, 7))

				relErr, err := n.GradientCheck(xorInstances, DefaultStep)
				require.NoError(t, err)
				assert.LessOrEqual(t, relErr, maxRelativeError)
			})
		}
	}
}

// TestSingleInstanceGradient tests one-instance gradients component by component.
func TestSingleInstanceGradient(t *testing.T) {
	n := buildChecked(t, topology{hidden: []int{4, 2}, skips: [][4]int{{0, 2, 3, 1}}}, loss.Softmax, 5)

	for _, inst := range classInstances {
		analytic, err := n.Gradient(inst)
		require.NoError(t, err)
		numeric, err := n.NumericGradient(inst, DefaultStep)
		require.NoError(t, err)
		require.Len(t, numeric, n.NumberWeights())
		assert.InDeltaSlice(t, numeric, analytic, 1e-6)
	}
}

// TestNumericGradientRestoresWeights tests that probing leaves the weights untouched.
func TestNumericGradientRestoresWeights(t *testing.T) {
	n := buildChecked(t, topology{hidden: []int{4}}, loss.L2, 3)
	before, err := n.Weights()
	require.NoError(t, err)

	_, err = n.NumericGradient(regressionInstances[0], 0)
	require.NoError(t, err)

	after, err := n.Weights()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

// TestNumericGradientError tests that a failing forward pass is reported.
func TestNumericGradientError(t *testing.T) {
	n := buildChecked(t, topology{hidden: []int{4}}, loss.L2, 3)
	before, _ := n.Weights()

	_, err := n.NumericGradient(data.Instance{ExpectedOutputs: []float64{0, 0, 0}, Inputs: []float64{1}}, DefaultStep)
	assert.ErrorIs(t, err, ErrInputSize)

	after, _ := n.Weights()
	assert.Equal(t, before, after)
}

// TestBatchGradientIsSum tests that the batch gradient sums per-instance gradients.
func TestBatchGradientIsSum(t *testing.T) {
	n := buildChecked(t, topology{hidden: []int{4}}, loss.SVM, 8)

	want := make([]float64, n.NumberWeights())
	for _, inst := range classInstances {
		g, err := n.Gradient(inst)
		require.NoError(t, err)
		for i := range g {
			want[i] += g[i]
		}
	}
	got, err := n.BatchGradient(classInstances)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)
}

// TestRelativeError tests the normalised L1 distance.
func TestRelativeError(t *testing.T) {
	assert.Equal(t, 0.0, RelativeError([]float64{0, 0}, []float64{0, 0}))
	assert.Equal(t, 0.0, RelativeError([]float64{1, -2}, []float64{1, -2}))
	assert.InDelta(t, 0.5, RelativeError([]float64{1, 1}, []float64{1, 0}), 1e-15)
	assert.InDelta(t, 1.0, RelativeError([]float64{0, 0}, []float64{3, -1}), 1e-15)
}

// TestParallelBatchGradient tests that splitting the batch gives the sequential result.
func TestParallelBatchGradient(t *testing.T) {
	n := buildChecked(t, topology{hidden: []int{4, 2}, skips: [][4]int{{1, 0, 3, 2}}}, loss.Softmax, 2)

	instances := make([]data.Instance, 0, 30)
	for i := 0; i < 10; i++ {
		instances = append(instances, classInstances...)
	}
	want, err := n.BatchGradient(instances)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 2, 3, 7, 64} {
		got, err := n.ParallelBatchGradient(instances, workers)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-12, "workers=%d", workers)
	}

	bad := append([]data.Instance{{ExpectedOutputs: []float64{9}, Inputs: []float64{0, 0, 0}}}, instances...)
	_, err = n.ParallelBatchGradient(bad, 4)
	assert.ErrorIs(t, err, loss.ErrClassIndex)
}
