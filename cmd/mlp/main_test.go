package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "mlp "+version+"\n", stdout.String())
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Commands:")

	assert.Error(t, run([]string{"serve"}, &stdout, &stderr))
}

func TestRun_XORSaveAndEval(t *testing.T) {
	model := filepath.Join(t.TempDir(), "xor.mlpw")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"xor", "-epochs", "10", "-save", model}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "[1 0] ->")
	assert.Contains(t, stderr.String(), "training finished")

	stdout.Reset()
	require.NoError(t, run([]string{"eval", "-model", model, "-data", "xor"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "4 examples")
	assert.Contains(t, stdout.String(), "[2 4 1]")
}

func TestRun_TrainCSVWithConfig(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "digits.csv")
	require.NoError(t, os.WriteFile(data, []byte("label,p0,p1\n0,255,0\n1,0,255\n0,200,10\n1,5,220\n"), 0o600))
	cfg := filepath.Join(dir, "train.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("epochs: 3\nbatch_size: 2\nlearning_rate: 0.2\nworkers: 2\n"), 0o600))
	model := filepath.Join(dir, "model.mlpw")

	var stdout, stderr bytes.Buffer
	err := run([]string{
		"train",
		"-config", cfg,
		"-data", data,
		"-classes", "2",
		"-sizes", "2,3,2",
		"-activations", "sigmoid,softmax",
		"-epochs", "4",
		"-out", model,
		"-shuffle",
	}, &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "trained 4 epochs (8 batches)")
	assert.FileExists(t, model)

	stdout.Reset()
	require.NoError(t, run([]string{"eval", "-model", model, "-data", data}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "4 examples")
}

func TestRun_TrainErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run([]string{"train", "-data", "xor", "-sizes", "2,x,1"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "invalid layer size")

	err = run([]string{"train", "-data", "xor", "-sizes", "2,1", "-activations", "swish"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "unknown activation")

	err = run([]string{"train", "-sizes", "2,1", "-activations", "sigmoid"}, &stdout, &stderr)
	assert.ErrorContains(t, err, "missing -data")

	err = run([]string{"eval", "-model", filepath.Join(t.TempDir(), "none.mlpw"), "-data", "xor"}, &stdout, &stderr)
	assert.Error(t, err)
}

func TestParseNetwork(t *testing.T) {
	cfg, err := parseNetwork("4, 3, 2", "relu,softmax", "cross_entropy", "normal", -1)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2}, cfg.Sizes)
	assert.Len(t, cfg.Activations, 2)
	assert.Equal(t, -1.0, cfg.ClipBound)

	_, err = parseNetwork("4,2", "relu,softmax", "mse", "xavier", 2)
	assert.Error(t, err)
}
