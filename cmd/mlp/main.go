// Package main provides the mlp command: train and evaluate dense networks.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/mlp/internal/dataset"
	"github.com/born-ml/mlp/internal/nn"
	"github.com/born-ml/mlp/internal/train"
)

const version = "v0.1.0"

const usage = `mlp - dense feedforward networks with manual backpropagation

Usage:
  mlp <command> [flags]

Commands:
  version    Show version
  xor        Train a small network on XOR and print its predictions
  train      Train a network on a dataset and save a checkpoint
  eval       Evaluate a checkpoint on a dataset

Run "mlp <command> -h" for command flags.
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mlp: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "mlp %s\n", version)
		return nil
	case "xor":
		return runXOR(args[1:], stdout, stderr)
	case "train":
		return runTrain(args[1:], stdout, stderr)
	case "eval":
		return runEval(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		return errors.Errorf("unknown command %q", args[0])
	}
}

// newLogger writes text logs to w; verbose enables Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// trainFlags registers the hyperparameter flags shared by xor and train.
// Only flags given on the command line override cfg.
type trainFlags struct {
	fs        *flag.FlagSet
	epochs    int
	batch     int
	lr        float64
	earlyStop float64
	workers   int
}

func addTrainFlags(fs *flag.FlagSet, defaults train.Config) *trainFlags {
	f := &trainFlags{fs: fs}
	fs.IntVar(&f.epochs, "epochs", defaults.Epochs, "passes over the training set")
	fs.IntVar(&f.batch, "batch", defaults.BatchSize, "examples per update")
	fs.Float64Var(&f.lr, "lr", defaults.LearningRate, "learning rate")
	fs.Float64Var(&f.earlyStop, "early-stop", defaults.EarlyStopCost, "stop once a batch's mean cost is below this (0 disables)")
	fs.IntVar(&f.workers, "workers", defaults.Workers, "parallel gradient workers per batch (-1 = one per CPU)")
	return f
}

func (f *trainFlags) apply(cfg *train.Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "epochs":
			cfg.Epochs = f.epochs
		case "batch":
			cfg.BatchSize = f.batch
		case "lr":
			cfg.LearningRate = f.lr
		case "early-stop":
			cfg.EarlyStopCost = f.earlyStop
		case "workers":
			cfg.Workers = f.workers
		}
	})
}

func runXOR(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaults := train.Config{Epochs: 5000, BatchSize: 1, LearningRate: 0.5, Workers: 1}
	tf := addTrainFlags(fs, defaults)
	hidden := fs.Int("hidden", 4, "hidden layer width")
	seed := fs.Int64("seed", 42, "random seed")
	save := fs.String("save", "", "write the trained network to this checkpoint")
	verbose := fs.Bool("v", false, "log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaults
	tf.apply(&cfg)

	net, err := nn.NewNetwork(nn.Config{
		Sizes:       []int{2, *hidden, 1},
		Activations: []nn.Activation{nn.Sigmoid, nn.Sigmoid},
	}, rand.New(rand.NewSource(*seed)))
	if err != nil {
		return err
	}
	trainer, err := train.New(net, cfg, train.WithLogger(newLogger(stderr, *verbose)))
	if err != nil {
		return err
	}

	examples := dataset.XOR()
	if _, err := trainer.Train(examples); err != nil {
		return err
	}
	for _, ex := range examples {
		out, err := net.Forward(ex.Features)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%v -> %.4f (want %v)\n", ex.Features, out[0], ex.Target[0])
	}

	if *save != "" {
		return net.Save(*save, map[string]string{"dataset": "xor"})
	}
	return nil
}

func runTrain(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(stderr)
	tf := addTrainFlags(fs, train.DefaultConfig())
	configPath := fs.String("config", "", "YAML file with trainer settings")
	data := fs.String("data", "", "MNIST IDX directory (train split), labelled CSV file, or \"xor\"")
	maxSamples := fs.Int("max", 0, "load at most this many examples (0 = all)")
	classes := fs.Int("classes", 10, "number of label classes for CSV data")
	sizes := fs.String("sizes", "784,128,10", "comma-separated layer widths, input first")
	acts := fs.String("activations", "relu,softmax", "comma-separated activation per layer")
	lossName := fs.String("loss", "cross_entropy", "loss: mse or cross_entropy")
	initName := fs.String("init", "xavier", "weight init: xavier, normal or uniform")
	clip := fs.Float64("clip", nn.DefaultClipBound, "per-update clip bound (negative disables)")
	seed := fs.Int64("seed", 1, "random seed for weights and shuffling")
	shuffle := fs.Bool("shuffle", false, "shuffle the examples once before training")
	out := fs.String("out", "model.mlpw", "checkpoint path")
	verbose := fs.Bool("v", false, "log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := train.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = train.LoadConfig(*configPath); err != nil {
			return err
		}
	}
	tf.apply(&cfg)

	netCfg, err := parseNetwork(*sizes, *acts, *lossName, *initName, *clip)
	if err != nil {
		return err
	}
	examples, err := loadExamples(*data, *classes, *maxSamples, true)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	net, err := nn.NewNetwork(netCfg, rng)
	if err != nil {
		return err
	}
	if *shuffle {
		dataset.Shuffle(examples, rng)
	}

	logger := newLogger(stderr, *verbose)
	logger.Info("training", "examples", len(examples), "sizes", net.Sizes(), "epochs", cfg.Epochs,
		"batch_size", cfg.BatchSize, "learning_rate", cfg.LearningRate, "workers", cfg.Workers)

	trainer, err := train.New(net, cfg, train.WithLogger(logger))
	if err != nil {
		return err
	}
	report, err := trainer.Train(examples)
	if err != nil {
		return err
	}
	eval, err := trainer.Evaluate(examples)
	if err != nil {
		return err
	}

	meta := map[string]string{
		"dataset":  *data,
		"epochs":   strconv.Itoa(report.Epochs),
		"batches":  strconv.Itoa(report.Batches),
		"cost":     strconv.FormatFloat(eval.Cost, 'g', -1, 64),
		"accuracy": strconv.FormatFloat(eval.Accuracy, 'f', 4, 64),
	}
	if err := net.Save(*out, meta); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "trained %d epochs (%d batches): cost %.6f, accuracy %.2f%%, saved %s\n",
		report.Epochs, report.Batches, eval.Cost, eval.Accuracy*100, *out)
	return nil
}

func runEval(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	model := fs.String("model", "model.mlpw", "checkpoint path")
	data := fs.String("data", "", "MNIST IDX directory (test split), labelled CSV file, or \"xor\"")
	maxSamples := fs.Int("max", 0, "load at most this many examples (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	net, header, err := nn.Load(*model)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", *model)
	}
	examples, err := loadExamples(*data, net.OutputSize(), *maxSamples, false)
	if err != nil {
		return err
	}
	eval, err := train.Evaluate(net, examples)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "model %s (%v): %d examples, cost %.6f, accuracy %.2f%%\n",
		header.ID, header.Sizes, len(examples), eval.Cost, eval.Accuracy*100)
	return nil
}

// loadExamples picks a loader from the shape of path: "xor", a directory of
// MNIST IDX files, or a CSV file. trainSplit selects the IDX file pair.
func loadExamples(path string, classes, maxSamples int, trainSplit bool) ([]dataset.Example, error) {
	if path == "" {
		return nil, errors.New("missing -data")
	}
	if path == "xor" {
		return dataset.XOR(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open dataset")
	}
	if info.IsDir() {
		return dataset.LoadMNIST(path, trainSplit, maxSamples)
	}
	return dataset.LoadCSV(path, classes, maxSamples)
}

func parseNetwork(sizes, acts, lossName, initName string, clip float64) (nn.Config, error) {
	var cfg nn.Config
	for _, s := range strings.Split(sizes, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid layer size %q", s)
		}
		cfg.Sizes = append(cfg.Sizes, n)
	}
	for _, name := range strings.Split(acts, ",") {
		a, err := nn.ParseActivation(name)
		if err != nil {
			return cfg, err
		}
		cfg.Activations = append(cfg.Activations, a)
	}

	var err error
	if cfg.Loss, err = nn.ParseLoss(lossName); err != nil {
		return cfg, err
	}
	if cfg.Init, err = nn.ParseInit(initName); err != nil {
		return cfg, err
	}
	cfg.ClipBound = clip
	return cfg, cfg.Validate()
}
