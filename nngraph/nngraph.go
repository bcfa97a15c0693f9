// Package nngraph is the public entry point for building and training
// layered feedforward networks with arbitrary forward edges.
package nngraph

import (
	"math/rand/v2"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/activations"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/loss"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/opt"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/train"
)

// Re-export common types and functions for easier access
type (
	Network    = net.Network
	Node       = net.Node
	Edge       = net.Edge
	NodeID     = net.NodeID
	Role       = net.Role
	Instance   = data.Instance
	DataSet    = data.DataSet
	Activation = activations.Kind
	LossKind   = loss.Kind
	Optimizer  = opt.Optimizer
	Scheduler  = opt.Scheduler
)

// Roles
const (
	Input  = net.Input
	Hidden = net.Hidden
	Output = net.Output
)

// Activations
const (
	Linear  = activations.Linear
	Sigmoid = activations.Sigmoid
	Tanh    = activations.Tanh
)

// Losses
const (
	None    = loss.None
	L1      = loss.L1
	L2      = loss.L2
	SVM     = loss.SVM
	Softmax = loss.Softmax
)

// Errors
var (
	ErrConstruction      = net.ErrConstruction
	ErrTopology          = net.ErrTopology
	ErrParameterMismatch = net.ErrParameterMismatch
	ErrInputSize         = net.ErrInputSize
	ErrUnsupported       = net.ErrUnsupported
	ErrNonFinite         = net.ErrNonFinite
)

// DefaultStep is the finite-difference step of NumericGradient.
const DefaultStep = net.DefaultStep

// New creates an unconnected network.
func New(inputSize int, hiddenSizes []int, outputSize int, lossKind LossKind) (*Network, error) {
	return net.New(inputSize, hiddenSizes, outputSize, lossKind)
}

// NewFullyConnected creates a network and connects adjacent layers fully.
func NewFullyConnected(inputSize int, hiddenSizes []int, outputSize int, lossKind LossKind) (*Network, error) {
	n, err := net.New(inputSize, hiddenSizes, outputSize, lossKind)
	if err != nil {
		return nil, err
	}
	if err := n.ConnectFully(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewInstance copies the given vectors into an Instance.
func NewInstance(expectedOutputs, inputs []float64) Instance {
	return data.NewInstance(expectedOutputs, inputs)
}

// Seeded returns a deterministic random source for InitializeRandomly.
func Seeded(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed)
}

// RelativeError compares two gradients by normalised L1 distance.
func RelativeError(a, b []float64) float64 {
	return net.RelativeError(a, b)
}

// Data sets
func LoadDataSet(name, filename string) (*DataSet, error) {
	return data.Load(name, filename)
}

func NewDataSet(name string, instances []Instance) (*DataSet, error) {
	return data.New(name, instances)
}

func ParseActivation(s string) (Activation, error) { return activations.Parse(s) }
func ParseLoss(s string) (LossKind, error)         { return loss.Parse(s) }

// Optimizers
type OptimizerConfig = opt.Config

func NewOptimizer(name string, cfg OptimizerConfig) (Optimizer, error) {
	return opt.New(name, cfg)
}

func SGD(lr float64) Optimizer {
	return &opt.SGD{LearningRate: lr}
}

func Nesterov(lr, mu float64) Optimizer {
	return &opt.Nesterov{LearningRate: lr, Mu: mu}
}

func Adam(lr float64) Optimizer {
	return opt.NewAdam(lr)
}

func StepLR(optimizer Optimizer, stepSize int, gamma float64) Scheduler {
	return opt.NewStepLR(optimizer, stepSize, gamma)
}

func ReduceLROnPlateau(optimizer Optimizer, factor float64, patience int, threshold, minLR float64) *opt.ReduceLROnPlateau {
	return opt.NewReduceLROnPlateau(optimizer, factor, patience, threshold, minLR)
}

// Training
type (
	Descent     = train.Descent
	TrainConfig = train.Config
	Trainer     = train.Trainer
	Result      = train.Result
	Metrics     = train.Metrics
	Callback    = train.Callback
)

const (
	Stochastic = train.Stochastic
	Minibatch  = train.Minibatch
	Batch      = train.Batch
)

func NewTrainer(cfg TrainConfig, o Optimizer, callbacks ...Callback) (*Trainer, error) {
	return train.New(cfg, o, callbacks...)
}

// Callbacks
func Logger(interval int) Callback {
	return train.Logger{Interval: interval}
}

func EarlyStopping(patience int, threshold float64) *train.EarlyStopping {
	return train.NewEarlyStopping(patience, threshold)
}

func SchedulerCallback(scheduler Scheduler) Callback {
	return train.NewSchedulerCallback(scheduler)
}

func CSVLogger(filename string, append bool) Callback {
	return train.NewCSVLogger(filename, append)
}
