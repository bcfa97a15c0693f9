// Package train runs gradient descent over a data set using the network's
// public contract: weights and gradients as flat vectors.
package train

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/pkg/errors"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/opt"
)

var (
	// ErrConfig is returned for an invalid training configuration.
	ErrConfig = errors.New("invalid training configuration")
	// ErrDataSet is returned when the data set does not fit the network.
	ErrDataSet = errors.New("data set does not fit network")
)

// Descent selects how many instances contribute to each weight update.
type Descent int

const (
	// Stochastic updates after every instance.
	Stochastic Descent = iota
	// Minibatch updates after every BatchSize instances.
	Minibatch
	// Batch updates once per epoch with the whole data set.
	Batch
)

func (d Descent) String() string {
	switch d {
	case Stochastic:
		return "stochastic"
	case Minibatch:
		return "minibatch"
	case Batch:
		return "batch"
	}
	return "unknown"
}

// ParseDescent converts "stochastic", "minibatch" or "batch" to a Descent.
func ParseDescent(s string) (Descent, error) {
	switch strings.ToLower(s) {
	case "stochastic":
		return Stochastic, nil
	case "minibatch":
		return Minibatch, nil
	case "batch":
		return Batch, nil
	}
	return 0, errors.Wrapf(ErrConfig, "unknown descent type %q", s)
}

// Config controls a training run.
type Config struct {
	Descent   Descent
	BatchSize int // minibatch only
	Epochs    int
	Bias      float64 // initial bias of hidden and output nodes
	Seed      uint64
	Workers   int // > 1 splits batch gradients across network clones
}

// DefaultConfig returns a stochastic configuration.
func DefaultConfig() Config {
	return Config{
		Descent:   Stochastic,
		BatchSize: 32,
		Epochs:    100,
		Bias:      0.1,
		Seed:      1,
		Workers:   1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Descent {
	case Stochastic, Batch:
	case Minibatch:
		if c.BatchSize < 1 {
			return errors.Wrapf(ErrConfig, "batch size %d", c.BatchSize)
		}
	default:
		return errors.Wrapf(ErrConfig, "descent %d", int(c.Descent))
	}
	if c.Epochs < 0 {
		return errors.Wrapf(ErrConfig, "epochs %d", c.Epochs)
	}
	if math.IsNaN(c.Bias) || math.IsInf(c.Bias, 0) {
		return errors.Wrapf(ErrConfig, "bias %v", c.Bias)
	}
	return nil
}

// Result reports a finished run.
type Result struct {
	Initial Metrics
	Final   Metrics
	Epochs  int // epochs actually run
	Stopped bool
}

// Trainer runs gradient descent with one optimizer. Optimizer state is
// carried across calls to Run.
type Trainer struct {
	cfg       Config
	opt       opt.Optimizer
	callbacks []Callback
	rng       *rand.Rand
}

// New creates a trainer.
func New(cfg Config, o opt.Optimizer, callbacks ...Callback) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, errors.Wrap(ErrConfig, "nil optimizer")
	}
	return &Trainer{
		cfg:       cfg,
		opt:       o,
		callbacks: callbacks,
		rng:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Run initialises n randomly and trains it on ds for the configured number
// of epochs. The data set is shuffled in place for stochastic and minibatch
// descent. Cancelling ctx stops the run between updates.
func (t *Trainer) Run(ctx context.Context, n *net.Network, ds *data.DataSet) (Result, error) {
	var res Result
	if ds.Len() == 0 {
		return res, errors.Wrap(ErrDataSet, "no instances")
	}
	if ds.NumberInputs() != n.InputSize() {
		return res, errors.Wrapf(ErrDataSet, "%d inputs for an input layer of %d", ds.NumberInputs(), n.InputSize())
	}

	n.InitializeRandomly(t.cfg.Bias, t.rng)

	initial, err := t.evaluate(n, ds, 0, math.Inf(1))
	if err != nil {
		return res, err
	}
	res.Initial, res.Final = initial, initial
	for _, cb := range t.callbacks {
		cb.OnTrainBegin(initial, n)
	}
	defer func() {
		for _, cb := range t.callbacks {
			cb.OnTrainEnd(n)
		}
	}()

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		for _, cb := range t.callbacks {
			cb.OnEpochBegin(epoch, n)
		}
		if err := t.epoch(ctx, n, ds); err != nil {
			return res, errors.Wrapf(err, "epoch %d", epoch)
		}

		m, err := t.evaluate(n, ds, epoch, res.Final.BestLoss)
		if err != nil {
			return res, errors.Wrapf(err, "epoch %d", epoch)
		}
		res.Final = m
		res.Epochs = epoch
		for _, cb := range t.callbacks {
			cb.OnEpochEnd(m, n)
		}
		if t.stopRequested() {
			res.Stopped = true
			break
		}
	}
	return res, nil
}

func (t *Trainer) epoch(ctx context.Context, n *net.Network, ds *data.DataSet) error {
	switch t.cfg.Descent {
	case Stochastic:
		ds.Shuffle(t.rng)
		for i := 0; i < ds.Len(); i++ {
			if err := t.update(ctx, n, i, ds.Slice(i, 1)); err != nil {
				return err
			}
		}
	case Minibatch:
		ds.Shuffle(t.rng)
		for pos, batch := 0, 0; pos < ds.Len(); pos, batch = pos+t.cfg.BatchSize, batch+1 {
			if err := t.update(ctx, n, batch, ds.Slice(pos, t.cfg.BatchSize)); err != nil {
				return err
			}
		}
	case Batch:
		return t.update(ctx, n, 0, ds.Instances())
	}
	return nil
}

// update applies one optimizer step using the summed gradient of instances.
func (t *Trainer) update(ctx context.Context, n *net.Network, batch int, instances []data.Instance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, cb := range t.callbacks {
		cb.OnBatchBegin(batch, n)
	}

	var gradient []float64
	var err error
	if t.cfg.Workers > 1 {
		gradient, err = n.ParallelBatchGradient(instances, t.cfg.Workers)
	} else {
		gradient, err = n.BatchGradient(instances)
	}
	if err != nil {
		return err
	}
	weights, err := n.Weights()
	if err != nil {
		return err
	}
	t.opt.StepInPlace(weights, gradient)
	if err := n.SetWeights(weights); err != nil {
		return err
	}

	for _, cb := range t.callbacks {
		cb.OnBatchEnd(batch, n)
	}
	return nil
}

func (t *Trainer) evaluate(n *net.Network, ds *data.DataSet, epoch int, best float64) (Metrics, error) {
	total, err := n.ForwardAll(ds.Instances())
	if err != nil {
		return Metrics{}, err
	}
	acc, err := n.Accuracy(ds.Instances())
	if err != nil {
		return Metrics{}, err
	}
	loss := total / float64(ds.Len())
	return Metrics{
		Epoch:    epoch,
		Loss:     loss,
		BestLoss: math.Min(best, loss),
		Accuracy: acc,
	}, nil
}

func (t *Trainer) stopRequested() bool {
	for _, cb := range t.callbacks {
		if s, ok := cb.(Stopper); ok && s.ShouldStop() {
			return true
		}
	}
	return false
}
