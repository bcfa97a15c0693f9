package train

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/loss"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/opt"
)

func xorDataSet(t *testing.T) *data.DataSet {
	t.Helper()
	ds, err := data.New("xor", []data.Instance{
		data.NewInstance([]float64{0}, []float64{0, 0}),
		data.NewInstance([]float64{1}, []float64{1, 0}),
		data.NewInstance([]float64{1}, []float64{0, 1}),
		data.NewInstance([]float64{0}, []float64{1, 1}),
	})
	require.NoError(t, err)
	return ds
}

func xorNetwork(t *testing.T) *net.Network {
	t.Helper()
	n, err := net.New(2, []int{4}, 2, loss.Softmax)
	require.NoError(t, err)
	require.NoError(t, n.ConnectFully())
	return n
}

// recorder counts callback invocations.
type recorder struct {
	BaseCallback
	begins, ends   int
	epochs         []Metrics
	batchesStarted int
	batchesEnded   int
	initial        Metrics
}

func (r *recorder) OnTrainBegin(initial Metrics, n *net.Network) { r.begins++; r.initial = initial }
func (r *recorder) OnTrainEnd(n *net.Network)                    { r.ends++ }
func (r *recorder) OnEpochEnd(m Metrics, n *net.Network)         { r.epochs = append(r.epochs, m) }
func (r *recorder) OnBatchBegin(batch int, n *net.Network)       { r.batchesStarted++ }
func (r *recorder) OnBatchEnd(batch int, n *net.Network)         { r.batchesEnded++ }

// TestParseDescent tests descent names.
func TestParseDescent(t *testing.T) {
	for _, d := range []Descent{Stochastic, Minibatch, Batch} {
		got, err := ParseDescent(strings.ToUpper(d.String()))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
	_, err := ParseDescent("annealing")
	assert.ErrorIs(t, err, ErrConfig)
}

// TestConfigValidate tests rejected configurations.
func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"Zero batch", func(c *Config) { c.Descent = Minibatch; c.BatchSize = 0 }},
		{"Negative epochs", func(c *Config) { c.Epochs = -1 }},
		{"Unknown descent", func(c *Config) { c.Descent = Descent(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfig)
		})
	}

	// batch size is ignored outside minibatch
	cfg := DefaultConfig()
	cfg.BatchSize = 0
	assert.NoError(t, cfg.Validate())

	_, err := New(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrConfig)
}

// TestRunReducesLoss tests that every descent type lowers the loss.
func TestRunReducesLoss(t *testing.T) {
	for _, d := range []Descent{Stochastic, Minibatch, Batch} {
		t.Run(d.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Descent = d
			cfg.BatchSize = 3
			cfg.Epochs = 30

			tr, err := New(cfg, &opt.SGD{LearningRate: 0.01})
			require.NoError(t, err)

			res, err := tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
			require.NoError(t, err)
			assert.Equal(t, 30, res.Epochs)
			assert.Less(t, res.Final.Loss, res.Initial.Loss)
			assert.LessOrEqual(t, res.Final.BestLoss, res.Final.Loss)
		})
	}
}

// TestRunLearnsAND tests that Adam separates the AND data set.
func TestRunLearnsAND(t *testing.T) {
	ds, err := data.New("and", []data.Instance{
		data.NewInstance([]float64{0}, []float64{0, 0}),
		data.NewInstance([]float64{0}, []float64{1, 0}),
		data.NewInstance([]float64{0}, []float64{0, 1}),
		data.NewInstance([]float64{1}, []float64{1, 1}),
	})
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Descent = Batch
	cfg.Epochs = 500

	tr, err := New(cfg, opt.NewAdam(0.05))
	require.NoError(t, err)

	res, err := tr.Run(context.Background(), xorNetwork(t), ds)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Final.Accuracy)
	assert.Less(t, res.Final.Loss, res.Initial.Loss)
}

// TestCallbackOrder tests how often each callback hook fires.
func TestCallbackOrder(t *testing.T) {
	tests := []struct {
		descent Descent
		batches int
	}{
		{Stochastic, 4},
		{Minibatch, 2},
		{Batch, 1},
	}

	for _, tt := range tests {
		t.Run(tt.descent.String(), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Descent = tt.descent
			cfg.BatchSize = 3
			cfg.Epochs = 5

			rec := &recorder{}
			tr, err := New(cfg, &opt.SGD{LearningRate: 0.01}, rec)
			require.NoError(t, err)
			_, err = tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
			require.NoError(t, err)

			assert.Equal(t, 1, rec.begins)
			assert.Equal(t, 1, rec.ends)
			assert.Equal(t, 0, rec.initial.Epoch)
			require.Len(t, rec.epochs, 5)
			for i, m := range rec.epochs {
				assert.Equal(t, i+1, m.Epoch)
			}
			assert.Equal(t, 5*tt.batches, rec.batchesStarted)
			assert.Equal(t, rec.batchesStarted, rec.batchesEnded)
		})
	}
}

// TestRunDeterministic tests that the seed fixes the whole run.
func TestRunDeterministic(t *testing.T) {
	run := func(workers int) []float64 {
		cfg := DefaultConfig()
		cfg.Descent = Minibatch
		cfg.BatchSize = 2
		cfg.Epochs = 10
		cfg.Seed = 77
		cfg.Workers = workers

		tr, err := New(cfg, &opt.Nesterov{LearningRate: 0.05, Mu: 0.9})
		require.NoError(t, err)
		n := xorNetwork(t)
		_, err = tr.Run(context.Background(), n, xorDataSet(t))
		require.NoError(t, err)
		w, err := n.Weights()
		require.NoError(t, err)
		return w
	}

	first := run(1)
	assert.Equal(t, first, run(1))
	assert.InDeltaSlice(t, first, run(2), 1e-9)
}

// TestEarlyStopping tests that a stalled loss ends the run.
func TestEarlyStopping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 50

	// nothing beats the first epoch by this much
	stop := NewEarlyStopping(1, 1e9)
	tr, err := New(cfg, &opt.SGD{LearningRate: 0.01}, stop)
	require.NoError(t, err)

	res, err := tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
	require.NoError(t, err)
	assert.True(t, res.Stopped)
	assert.Equal(t, 2, res.Epochs)
}

// TestEarlyStoppingDisabled tests that a non-positive patience never stops.
func TestEarlyStoppingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 5

	for _, patience := range []int{0, -1} {
		stop := NewEarlyStopping(patience, 1e9)
		tr, err := New(cfg, &opt.SGD{LearningRate: 0.01}, stop)
		require.NoError(t, err)

		res, err := tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
		require.NoError(t, err)
		assert.False(t, res.Stopped, "patience %d", patience)
		assert.False(t, stop.ShouldStop(), "patience %d", patience)
		assert.Equal(t, 5, res.Epochs, "patience %d", patience)
	}
}

// TestRunCancelled tests that a cancelled context stops before any update.
func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	tr, err := New(DefaultConfig(), &opt.SGD{LearningRate: 0.01}, rec)
	require.NoError(t, err)

	res, err := tr.Run(ctx, xorNetwork(t), xorDataSet(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Epochs)
	assert.Equal(t, 0, rec.batchesEnded)
	assert.Equal(t, 1, rec.ends)
}

// TestRunDataSetMismatch tests rejection of a data set with the wrong width.
func TestRunDataSetMismatch(t *testing.T) {
	n, err := net.New(3, []int{2}, 2, loss.Softmax)
	require.NoError(t, err)
	require.NoError(t, n.ConnectFully())

	tr, err := New(DefaultConfig(), &opt.SGD{LearningRate: 0.01})
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), n, xorDataSet(t))
	assert.ErrorIs(t, err, ErrDataSet)
}

// TestSchedulerCallback tests that the scheduler steps once per epoch.
func TestSchedulerCallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 3

	sgd := &opt.SGD{LearningRate: 0.08}
	tr, err := New(cfg, sgd, NewSchedulerCallback(opt.NewExponentialLR(sgd, 0.5)))
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.01, sgd.GetLR(), 1e-12)
}

// TestBestWeights tests that the best snapshot is restored.
func TestBestWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 20

	best := NewBestWeights(true)
	tr, err := New(cfg, &opt.SGD{LearningRate: 0.05}, best)
	require.NoError(t, err)

	n := xorNetwork(t)
	ds := xorDataSet(t)
	res, err := tr.Run(context.Background(), n, ds)
	require.NoError(t, err)

	require.NotNil(t, best.Weights())
	assert.InDelta(t, res.Final.BestLoss, best.Loss(), 1e-12)

	w, err := n.Weights()
	require.NoError(t, err)
	assert.Equal(t, best.Weights(), w)

	total, err := n.ForwardAll(ds.Instances())
	require.NoError(t, err)
	assert.InDelta(t, best.Loss(), total/float64(ds.Len()), 1e-12)
}

// TestLogger tests the progress line format.
func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	lg := Logger{Interval: 2, Out: log.New(&buf, "", 0)}

	cfg := DefaultConfig()
	cfg.Epochs = 4
	tr, err := New(cfg, &opt.SGD{LearningRate: 0.01}, lg)
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Len(t, strings.Fields(lines[0]), 3)
}

// TestCSVLogger tests the CSV file contents.
func TestCSVLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	cfg := DefaultConfig()
	cfg.Epochs = 3

	tr, err := New(cfg, &opt.SGD{LearningRate: 0.01}, NewCSVLogger(path, false))
	require.NoError(t, err)
	_, err = tr.Run(context.Background(), xorNetwork(t), xorDataSet(t))
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 5)
	assert.Equal(t, []string{"epoch", "loss", "best_loss", "accuracy", "time_seconds"}, records[0])
	assert.Equal(t, "0", records[1][0])
	assert.Equal(t, "3", records[4][0])
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

// TestCSVLoggerWriteErrors tests that failed header and record writes are logged.
func TestCSVLoggerWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	c := NewCSVLogger("", false)
	c.writer = csv.NewWriter(failingWriter{})

	c.writeRecord("header", []string{"epoch", "loss"})
	assert.Contains(t, buf.String(), "csv logger: failed to write header")
	assert.Contains(t, buf.String(), io.ErrClosedPipe.Error())

	buf.Reset()
	c.OnEpochEnd(Metrics{Epoch: 1}, nil)
	assert.Contains(t, buf.String(), "csv logger: failed to write record")
}
