// Command ffnet trains a fully connected feedforward network on a text data
// set with stochastic, minibatch or batch gradient descent.
//
// Data set lines have the form "out1,out2:in1,in2,..." and '#' starts a comment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/data"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/loss"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/opt"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/train"
)

func main() {
	var (
		dataPath  = flag.String("data", "", "path to the data set file (required)")
		normalize = flag.Bool("normalize", false, "standardise every input feature")
		descent   = flag.String("descent", "stochastic", "gradient descent type: stochastic, minibatch or batch")
		batchSize = flag.Int("batch", 32, "minibatch size")
		lossName  = flag.String("loss", "softmax", "loss function: none, l1, l2, svm or softmax")
		epochs    = flag.Int("epochs", 100, "number of epochs")
		bias      = flag.Float64("bias", 0.1, "initial bias")
		hidden    = flag.String("hidden", "8", "comma separated hidden layer sizes")
		optName   = flag.String("optimizer", "nesterov", "weight update rule: sgd, nesterov, rmsprop or adam")
		lr        = flag.Float64("lr", 0.01, "learning rate")
		mu        = flag.Float64("mu", 0.9, "nesterov momentum")
		decayRate = flag.Float64("decay", 0.99, "rmsprop decay rate")
		eps       = flag.Float64("eps", 1e-8, "rmsprop and adam epsilon")
		beta1     = flag.Float64("beta1", 0.9, "adam first moment decay")
		beta2     = flag.Float64("beta2", 0.999, "adam second moment decay")
		seed      = flag.Uint64("seed", 1, "random seed")
		workers   = flag.Int("workers", 1, "goroutines per batch gradient")
		patience  = flag.Int("patience", 0, "stop after this many epochs without improvement (0 disables)")
		csvPath   = flag.String("csv", "", "write per-epoch metrics to this CSV file")
		gradCheck = flag.Bool("gradcheck", false, "verify backpropagation on the first instances before training")
		verbose   = flag.Int("v", 1, "verbosity: 0 prints only the result, 1 adds setup and progress, 2 adds data set statistics")
		logEvery  = flag.Int("log-every", 1, "log progress every this many epochs at verbosity 1 and above")
	)
	flag.Parse()

	if *dataPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	l := logger{level: *verbose, out: log.Default()}

	hiddenSizes, err := parseSizes(*hidden)
	if err != nil {
		log.Fatalf("hidden layer sizes: %v", err)
	}
	lossKind, err := loss.Parse(*lossName)
	if err != nil {
		log.Fatal(err)
	}
	d, err := train.ParseDescent(*descent)
	if err != nil {
		log.Fatal(err)
	}
	optimizer, err := opt.New(*optName, opt.Config{
		LearningRate: *lr,
		Mu:           *mu,
		DecayRate:    *decayRate,
		Eps:          *eps,
		Beta1:        *beta1,
		Beta2:        *beta2,
	})
	if err != nil {
		log.Fatal(err)
	}

	ds, err := data.Load(*dataPath, *dataPath)
	if err != nil {
		log.Fatal(err)
	}
	l.printf(1, "loaded %s: %d instances, %d inputs, %d outputs, %d classes",
		ds.Name(), ds.Len(), ds.NumberInputs(), ds.NumberOutputs(), ds.NumberClasses())

	if *normalize {
		means, stds := ds.InputMeans(), ds.InputStandardDeviations()
		l.printf(2, "data set means: %v", means)
		l.printf(2, "data set standard deviations: %v", stds)
		if err := ds.Normalize(means, stds); err != nil {
			log.Fatal(err)
		}
	}

	outputSize := ds.NumberOutputs()
	if lossKind.IsClassification() {
		outputSize = ds.NumberClasses()
	}

	n, err := net.New(ds.NumberInputs(), hiddenSizes, outputSize, lossKind)
	if err != nil {
		log.Fatal(err)
	}
	if err := n.ConnectFully(); err != nil {
		log.Fatalf("connecting the network: %v", err)
	}
	l.printf(1, "network %d-%s-%d with %d weights, %s loss",
		ds.NumberInputs(), *hidden, outputSize, n.NumberWeights(), lossKind)

	cfg := train.Config{
		Descent:   d,
		BatchSize: *batchSize,
		Epochs:    *epochs,
		Bias:      *bias,
		Seed:      *seed,
		Workers:   *workers,
	}

	callbacks := l.callbacks(*logEvery)
	if *patience > 0 {
		callbacks = append(callbacks, train.NewEarlyStopping(*patience, 0))
	}
	if *csvPath != "" {
		callbacks = append(callbacks, train.NewCSVLogger(*csvPath, false))
	}

	trainer, err := train.New(cfg, optimizer, callbacks...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *gradCheck {
		checkGradient(n, ds, *bias, *seed)
	}

	if d == train.Minibatch {
		l.printf(1, "starting %s(%d) gradient descent, %s, lr: %g, mu: %g", d, *batchSize, *optName, *lr, *mu)
	} else {
		l.printf(1, "starting %s gradient descent, %s, lr: %g, mu: %g", d, *optName, *lr, *mu)
	}

	res, err := trainer.Run(ctx, n, ds)
	if err != nil {
		log.Fatalf("gradient descent failed: %v", err)
	}
	l.printf(0, "finished after %d epochs: best loss %f, loss %f, accuracy %.2f%%",
		res.Epochs, res.Final.BestLoss, res.Final.Loss, res.Final.Accuracy*100)
}

// checkGradient compares backpropagation with central differences on a
// randomly initialised copy of n.
func checkGradient(n *net.Network, ds *data.DataSet, bias float64, seed uint64) {
	c := n.Clone()
	c.InitializeRandomly(bias, rand.NewPCG(seed, seed))
	relErr, err := c.GradientCheck(ds.Slice(0, 10), net.DefaultStep)
	if err != nil {
		log.Fatalf("gradient check: %v", err)
	}
	status := "passed"
	if relErr > 1e-5 {
		status = "FAILED"
	}
	log.Printf("gradient check %s: relative error %g", status, relErr)
}

// logger gates log lines by verbosity level.
type logger struct {
	level int
	out   *log.Logger
}

// printf logs when the verbosity is at least level.
func (l logger) printf(level int, format string, args ...any) {
	if l.level >= level {
		l.out.Printf(format, args...)
	}
}

// callbacks returns the progress logger for the verbosity, if any.
func (l logger) callbacks(every int) []train.Callback {
	if l.level < 1 || every <= 0 {
		return nil
	}
	return []train.Callback{train.Logger{Interval: every, Out: l.out}}
}

func parseSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if v < 1 {
			return nil, fmt.Errorf("layer size %d must be positive", v)
		}
		sizes = append(sizes, v)
	}
	return sizes, nil
}
