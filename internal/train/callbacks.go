package train

import (
	"log"
	"math"

	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/net"
	"github.com/FlavioCFOliveira/GoNeuronGraph/internal/opt"
)

// Metrics summarises the network over the whole data set. Epoch 0 is the
// evaluation right after initialisation.
type Metrics struct {
	Epoch    int
	Loss     float64 // mean loss per instance
	BestLoss float64
	Accuracy float64
}

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(initial Metrics, n *net.Network)
	OnTrainEnd(n *net.Network)
	OnEpochBegin(epoch int, n *net.Network)
	OnEpochEnd(m Metrics, n *net.Network)
	OnBatchBegin(batch int, n *net.Network)
	OnBatchEnd(batch int, n *net.Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	ShouldStop() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(initial Metrics, n *net.Network) {}
func (c BaseCallback) OnTrainEnd(n *net.Network)                    {}
func (c BaseCallback) OnEpochBegin(epoch int, n *net.Network)       {}
func (c BaseCallback) OnEpochEnd(m Metrics, n *net.Network)         {}
func (c BaseCallback) OnBatchBegin(batch int, n *net.Network)       {}
func (c BaseCallback) OnBatchEnd(batch int, n *net.Network)         {}

// SchedulerCallback is a callback that wraps a learning rate scheduler.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(m Metrics, n *net.Network) {
	c.scheduler.Step()
	c.scheduler.StepWithLoss(m.Loss)
}

// EarlyStopping stops training when the loss has stopped improving for
// Patience epochs. A Patience of zero or less disables it.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnEpochEnd(m Metrics, n *net.Network) {
	if c.Patience <= 0 {
		return
	}
	if m.Loss < c.bestLoss-c.Threshold {
		c.bestLoss = m.Loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if c.numBadEpochs >= c.Patience {
		log.Printf("early stopping at epoch %d: loss %.6f did not improve for %d epochs", m.Epoch, m.Loss, c.Patience)
		c.Stopped = true
	}
}

func (c *EarlyStopping) ShouldStop() bool { return c.Stopped }

// BestWeights keeps a copy of the weights with the lowest loss seen so far.
// With Restore set, they are written back when training ends.
type BestWeights struct {
	BaseCallback
	Restore bool

	bestLoss float64
	weights  []float64
}

func NewBestWeights(restore bool) *BestWeights {
	return &BestWeights{
		Restore:  restore,
		bestLoss: math.Inf(1),
	}
}

func (c *BestWeights) OnTrainBegin(initial Metrics, n *net.Network) {
	c.OnEpochEnd(initial, n)
}

func (c *BestWeights) OnEpochEnd(m Metrics, n *net.Network) {
	if m.Loss >= c.bestLoss {
		return
	}
	w, err := n.Weights()
	if err != nil {
		log.Printf("best weights: %v", err)
		return
	}
	c.bestLoss = m.Loss
	c.weights = w
}

func (c *BestWeights) OnTrainEnd(n *net.Network) {
	if !c.Restore || c.weights == nil {
		return
	}
	if err := n.SetWeights(c.weights); err != nil {
		log.Printf("best weights: restore: %v", err)
	}
}

// Loss returns the lowest loss seen.
func (c *BestWeights) Loss() float64 { return c.bestLoss }

// Weights returns the snapshot, or nil before the first epoch.
func (c *BestWeights) Weights() []float64 { return c.weights }

// Logger logs training progress as "best current accuracy%" lines.
type Logger struct {
	BaseCallback
	Interval int
	Out      *log.Logger // log.Default() when nil
}

func (c Logger) logger() *log.Logger {
	if c.Out != nil {
		return c.Out
	}
	return log.Default()
}

func (c Logger) OnTrainBegin(initial Metrics, n *net.Network) {
	c.logger().Printf("  %f %f %f", initial.BestLoss, initial.Loss, initial.Accuracy*100)
}

func (c Logger) OnEpochEnd(m Metrics, n *net.Network) {
	if c.Interval > 0 && m.Epoch%c.Interval == 0 {
		c.logger().Printf("  %f %f %f", m.BestLoss, m.Loss, m.Accuracy*100)
	}
}
