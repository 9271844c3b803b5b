// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train provides mini-batch gradient descent and dataset loaders for
// networks built with package nn.
//
// # Basic Usage
//
//	net, _ := nn.NewNetwork(nn.Config{
//	    Sizes:       []int{2, 8, 1},
//	    Activations: []nn.Activation{nn.Sigmoid, nn.Sigmoid},
//	}, rand.New(rand.NewSource(42)))
//
//	trainer, _ := train.New(net, train.Config{
//	    Epochs:       5000,
//	    BatchSize:    1,
//	    LearningRate: 0.5,
//	}, train.WithLogger(slog.Default()))
//
//	report, err := trainer.Train(train.XOR())
//
// Each batch is a contiguous slice of the examples; the remainder shorter than
// BatchSize is dropped. The gradients of a batch are averaged and applied once.
//
// # Datasets
//
//	examples, err := train.LoadMNIST("data/mnist", true, 0)
//	examples, err := train.LoadCSV("mnist_train.csv", 10, 0)
//
// # Configuration
//
// LoadConfig reads hyperparameters from YAML:
//
//	epochs: 30
//	batch_size: 10
//	learning_rate: 0.5
//	early_stop_cost: 0.001
//	workers: 4
package train
