// Package train implements mini-batch gradient descent over an nn.Network.
//
// Each mini-batch is a contiguous slice of the training set. Gradients of all
// its examples are summed, divided by the batch size and applied in a single
// update, so one batch moves the weights by the mean gradient.
package train

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/mlp/internal/dataset"
	"github.com/born-ml/mlp/internal/nn"
	"github.com/born-ml/mlp/internal/parallel"
)

// ErrNoBatches is returned when the training set is smaller than one batch.
var ErrNoBatches = errors.New("training set holds no full batch")

// Report summarizes a training run.
type Report struct {
	Epochs       int       // Epochs started; the last is partial when StoppedEarly
	Batches      int       // Updates applied
	EpochCosts   []float64 // Mean batch cost of every epoch, in order
	FinalCost    float64   // Mean cost of the last batch
	StoppedEarly bool      // Whether EarlyStopCost ended the run
}

// Evaluation is the result of Evaluate.
type Evaluation struct {
	Cost     float64 // Mean cost per example
	Accuracy float64 // Fraction of examples classified correctly
}

// Option configures a Trainer.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Epoch costs are logged at Debug and the run
// summary at Info. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Trainer drives a network through epochs of mini-batches.
//
// Example:
//
//	trainer, err := train.New(net, train.Config{
//	    Epochs:       100,
//	    BatchSize:    4,
//	    LearningRate: 0.5,
//	})
//	report, err := trainer.Train(dataset.XOR())
type Trainer struct {
	net    *nn.Network
	cfg    Config
	logger *slog.Logger

	grads []*nn.Gradients

	// One replica and accumulator per worker when more than one runs.
	replicas []*nn.Network
	partial  [][]*nn.Gradients
	par      parallel.Config
}

// New creates a trainer for net.
func New(net *nn.Network, cfg Config, opts ...Option) (*Trainer, error) {
	if net == nil {
		return nil, errors.Wrap(ErrConfig, "nil network")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(o)
	}

	t := &Trainer{
		net:    net,
		cfg:    cfg,
		logger: o.logger,
		grads:  net.NewGradients(),
	}
	if par := cfg.parallelConfig(); par.Enabled {
		t.replicas = make([]*nn.Network, par.NumWorkers)
		t.partial = make([][]*nn.Gradients, par.NumWorkers)
		for w := range t.replicas {
			t.replicas[w] = net.Replica()
			t.partial[w] = net.NewGradients()
		}
		t.par = par
	}
	return t, nil
}

// Config returns the trainer settings.
func (t *Trainer) Config() Config { return t.cfg }

// Train runs cfg.Epochs passes over examples and updates the network in place.
//
// Examples are split into contiguous batches of cfg.BatchSize; a shorter
// remainder is dropped. Training stops after the first batch whose mean cost
// is below cfg.EarlyStopCost, once that batch's update has been applied.
func (t *Trainer) Train(examples []dataset.Example) (Report, error) {
	var report Report
	if err := dataset.Validate(examples, t.net.InputSize(), t.net.OutputSize()); err != nil {
		return report, err
	}
	batches := dataset.Batches(examples, t.cfg.BatchSize)
	if len(batches) == 0 {
		return report, errors.Wrapf(ErrNoBatches, "%d examples, batch size %d", len(examples), t.cfg.BatchSize)
	}

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		report.Epochs++
		var epochCost float64
		var n int
		for _, batch := range batches {
			cost, err := t.step(batch)
			if err != nil {
				return report, errors.Wrapf(err, "epoch %d, batch %d", epoch, n)
			}
			report.Batches++
			report.FinalCost = cost
			epochCost += cost
			n++

			if t.cfg.EarlyStopCost > 0 && cost < t.cfg.EarlyStopCost {
				report.StoppedEarly = true
				break
			}
		}
		report.EpochCosts = append(report.EpochCosts, epochCost/float64(n))
		t.logger.Debug("epoch finished", "epoch", epoch, "cost", epochCost/float64(n), "batches", n)

		if report.StoppedEarly {
			break
		}
	}

	t.logger.Info("training finished",
		"epochs", report.Epochs,
		"batches", report.Batches,
		"final_cost", report.FinalCost,
		"stopped_early", report.StoppedEarly,
	)
	return report, nil
}

// step accumulates the gradients of one batch, applies their mean and returns
// the batch's mean cost measured before the update.
func (t *Trainer) step(batch []dataset.Example) (float64, error) {
	for _, g := range t.grads {
		g.Zero()
	}

	var cost float64
	var err error
	if t.replicas == nil {
		cost, err = accumulate(t.net, batch, t.grads)
	} else {
		cost, err = t.accumulateParallel(batch)
	}
	if err != nil {
		return 0, err
	}

	scale := 1 / float64(len(batch))
	if err := t.net.Step(t.grads, t.cfg.LearningRate, scale); err != nil {
		return 0, err
	}
	return cost * scale, nil
}

// accumulateParallel splits batch into contiguous chunks, one per replica, and
// sums the per-worker gradients in worker order.
func (t *Trainer) accumulateParallel(batch []dataset.Example) (float64, error) {
	costs := make([]float64, len(t.replicas))
	errs := make([]error, len(t.replicas))
	for _, partial := range t.partial {
		for _, g := range partial {
			g.Zero()
		}
	}

	parallel.Run(len(batch), func(w int, c parallel.Chunk) {
		costs[w], errs[w] = accumulate(t.replicas[w], batch[c.Start:c.End], t.partial[w])
	}, t.par)

	var cost float64
	for w := range t.replicas {
		if errs[w] != nil {
			return 0, errs[w]
		}
		// Workers beyond the chunk count saw no examples and hold zeros.
		for i, g := range t.grads {
			g.Add(t.partial[w][i])
		}
		cost += costs[w]
	}
	return cost, nil
}

// accumulate runs forward and backward for every example on net, adding the
// gradients into grads, and returns the summed cost.
func accumulate(net *nn.Network, examples []dataset.Example, grads []*nn.Gradients) (float64, error) {
	var total float64
	for i, ex := range examples {
		out, err := net.Forward(ex.Features)
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		cost, err := net.Cost(out, ex.Target)
		if err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
		total += cost
		if err := net.Accumulate(ex.Target, grads); err != nil {
			return 0, errors.Wrapf(err, "example %d", i)
		}
	}
	return total, nil
}

// Evaluate returns the mean cost and accuracy of the network on examples
// without changing its parameters.
//
// Multi-output predictions are correct when the largest output matches the
// largest target. A single output is thresholded at 0.5.
func (t *Trainer) Evaluate(examples []dataset.Example) (Evaluation, error) {
	return Evaluate(t.net, examples)
}

// Evaluate is Trainer.Evaluate for a network without a trainer.
func Evaluate(net *nn.Network, examples []dataset.Example) (Evaluation, error) {
	var eval Evaluation
	if len(examples) == 0 {
		return eval, errors.New("no examples to evaluate")
	}
	if err := dataset.Validate(examples, net.InputSize(), net.OutputSize()); err != nil {
		return eval, err
	}

	var correct int
	for i, ex := range examples {
		out, err := net.Forward(ex.Features)
		if err != nil {
			return eval, errors.Wrapf(err, "example %d", i)
		}
		cost, err := net.Cost(out, ex.Target)
		if err != nil {
			return eval, errors.Wrapf(err, "example %d", i)
		}
		eval.Cost += cost
		if classify(out) == classify(ex.Target) {
			correct++
		}
	}
	eval.Cost /= float64(len(examples))
	eval.Accuracy = float64(correct) / float64(len(examples))
	return eval, nil
}

func classify(v []float64) int {
	if len(v) == 1 {
		if v[0] >= 0.5 {
			return 1
		}
		return 0
	}
	return dataset.ArgMax(v)
}
