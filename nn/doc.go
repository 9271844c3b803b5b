// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides dense feedforward networks trained by manual
// backpropagation.
//
// # Overview
//
// This package contains:
//   - Layers: Dense (fully connected, y = act(W·x + b))
//   - Activations: Identity, ReLU, Sigmoid, Softmax
//   - Loss functions: MeanSquared, CrossEntropy
//   - Initialization: XavierUniform, StandardNormal, Uniform
//   - Network: an ordered stack of Dense layers, with Save and Load
//
// # Basic Usage
//
//	import (
//	    "math/rand"
//
//	    "github.com/born-ml/mlp/nn"
//	)
//
//	func main() {
//	    rng := rand.New(rand.NewSource(42))
//
//	    // Build a 784-128-10 classifier
//	    net, err := nn.NewNetwork(nn.Config{
//	        Sizes:       []int{784, 128, 10},
//	        Activations: []nn.Activation{nn.ReLU, nn.Softmax},
//	        Loss:        nn.CrossEntropy,
//	    }, rng)
//
//	    // Forward pass
//	    output, err := net.Forward(pixels)
//
//	    // Backward pass: one SGD step towards target
//	    err = net.Backward(target, 0.01)
//	}
//
// # Layers
//
// Dense caches its input, pre-activation and output on every Forward. Backward
// reads that cache, computes the gradient for the previous layer from the
// weights as they were before the call, then updates the weights in place.
// Every individual update is clipped to ±DefaultClipBound unless configured
// otherwise.
//
//	layer, err := nn.NewDense(inFeatures, outFeatures, nn.Sigmoid, nn.XavierUniform, rng)
//
// # Activations
//
// The Softmax derivative is the elementwise approximation y·(1−y). To train a
// classifier with the exact gradient, pair a Softmax output layer with the
// CrossEntropy loss; the error signal then bypasses the activation derivative.
//
// # Loss Functions
//
//	nn.MeanSquared   // mean((o−t)²), error signal o−t
//	nn.CrossEntropy  // −Σ t·ln(o)
//
// # Mini-batches
//
// Accumulate and Step split Backward in two so gradients of several examples
// can be summed before one update:
//
//	grads := net.NewGradients()
//	for _, ex := range batch {
//	    net.Forward(ex.Features)
//	    net.Accumulate(ex.Target, grads)
//	}
//	net.Step(grads, lr, 1/float64(len(batch)))
//
// The train package drives this loop over epochs.
//
// # Checkpoints
//
//	err := net.Save("model.mlpw", map[string]string{"dataset": "mnist"})
//	net, header, err := nn.Load("model.mlpw")
package nn
