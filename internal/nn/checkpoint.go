package nn

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mlp/internal/serialization"
)

// StateDict returns every layer's parameters keyed by layer index, e.g.
// "0.weight", "0.bias", "1.weight".
func (n *Network) StateDict() map[string]serialization.Tensor {
	stateDict := make(map[string]serialization.Tensor)
	for i, l := range n.layers {
		for name, t := range l.StateDict() {
			stateDict[fmt.Sprintf("%d.%s", i, name)] = t
		}
	}
	return stateDict
}

// LoadStateDict loads parameters produced by StateDict into the existing layers.
func (n *Network) LoadStateDict(stateDict map[string]serialization.Tensor) error {
	perLayer := make([]map[string]serialization.Tensor, len(n.layers))
	for i := range perLayer {
		perLayer[i] = make(map[string]serialization.Tensor)
	}
	for key, t := range stateDict {
		idx, name, ok := strings.Cut(key, ".")
		if !ok {
			return errors.Errorf("unexpected parameter name %q", key)
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(n.layers) {
			return errors.Errorf("parameter %q does not belong to any of %d layers", key, len(n.layers))
		}
		perLayer[i][name] = t
	}
	for i, l := range n.layers {
		if err := l.LoadStateDict(perLayer[i]); err != nil {
			return errors.Wrapf(err, "failed to load layer %d", i)
		}
	}
	return nil
}

// header describes the architecture for a checkpoint.
func (n *Network) header(metadata map[string]string) serialization.Header {
	acts := n.Activations()
	names := make([]string, len(acts))
	for i, a := range acts {
		names[i] = a.String()
	}
	return serialization.Header{
		Sizes:       n.Sizes(),
		Activations: names,
		Loss:        n.loss.String(),
		ClipBound:   n.layers[0].ClipBound(),
		Metadata:    metadata,
	}
}

// WriteTo writes the architecture and parameters to w.
func (n *Network) WriteTo(w io.Writer, metadata map[string]string) error {
	return serialization.Write(w, n.header(metadata), n.StateDict())
}

// Save writes the network to a checkpoint file at path.
//
// metadata is stored verbatim in the header (e.g. dataset name, epochs).
func (n *Network) Save(path string, metadata map[string]string) error {
	return serialization.WriteFile(path, n.header(metadata), n.StateDict())
}

// ReadFrom rebuilds a network from a checkpoint stream.
func ReadFrom(r io.Reader) (*Network, serialization.Header, error) {
	header, tensors, err := serialization.Read(r)
	if err != nil {
		return nil, header, err
	}
	net, err := fromCheckpoint(header, tensors)
	return net, header, err
}

// Load rebuilds a network from a checkpoint file written by Save.
func Load(path string) (*Network, serialization.Header, error) {
	header, tensors, err := serialization.ReadFile(path)
	if err != nil {
		return nil, header, err
	}
	net, err := fromCheckpoint(header, tensors)
	return net, header, err
}

func fromCheckpoint(header serialization.Header, tensors map[string]serialization.Tensor) (*Network, error) {
	cfg := Config{
		Sizes:       header.Sizes,
		Activations: make([]Activation, len(header.Activations)),
		ClipBound:   header.ClipBound,
	}
	for i, name := range header.Activations {
		act, err := ParseActivation(name)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		cfg.Activations[i] = act
	}
	loss, err := ParseLoss(header.Loss)
	if err != nil {
		return nil, err
	}
	cfg.Loss = loss
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layers := make([]*Dense, len(cfg.Activations))
	for i, act := range cfg.Activations {
		layers[i] = newDense(cfg.Sizes[i], cfg.Sizes[i+1], act, mat.NewDense(cfg.Sizes[i+1], cfg.Sizes[i], nil))
		layers[i].SetClipBound(header.ClipBound)
	}
	net := &Network{layers: layers, loss: loss}
	if err := net.LoadStateDict(tensors); err != nil {
		return nil, err
	}
	return net, nil
}
