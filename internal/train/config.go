package train

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/mlp/internal/parallel"
)

// ErrConfig is returned for invalid trainer settings.
var ErrConfig = errors.New("invalid trainer config")

// AllCPUs as Config.Workers runs one worker per CPU.
const AllCPUs = -1

// Config holds the trainer hyperparameters.
type Config struct {
	Epochs       int     `yaml:"epochs"`        // Passes over the data (≥ 1)
	BatchSize    int     `yaml:"batch_size"`    // Examples per update (≥ 1)
	LearningRate float64 `yaml:"learning_rate"` // Step size (> 0)

	// EarlyStopCost stops training once a batch's mean cost falls below it.
	// 0 disables early stopping.
	EarlyStopCost float64 `yaml:"early_stop_cost"`

	// Workers splits each batch across that many network replicas.
	// 0 or 1 runs on the calling goroutine, AllCPUs uses one per CPU.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the settings used when a field is not specified.
func DefaultConfig() Config {
	return Config{
		Epochs:       10,
		BatchSize:    32,
		LearningRate: 0.1,
		Workers:      1,
	}
}

// Validate checks the settings.
func (c Config) Validate() error {
	switch {
	case c.Epochs < 1:
		return errors.Wrapf(ErrConfig, "epochs must be at least 1, got %d", c.Epochs)
	case c.BatchSize < 1:
		return errors.Wrapf(ErrConfig, "batch size must be at least 1, got %d", c.BatchSize)
	case !(c.LearningRate > 0):
		return errors.Wrapf(ErrConfig, "learning rate must be positive, got %v", c.LearningRate)
	case c.EarlyStopCost < 0:
		return errors.Wrapf(ErrConfig, "early stop cost must not be negative, got %v", c.EarlyStopCost)
	case c.Workers < AllCPUs:
		return errors.Wrapf(ErrConfig, "workers must be at least %d, got %d", AllCPUs, c.Workers)
	}
	return nil
}

// parallelConfig maps Workers onto the fan-out settings.
func (c Config) parallelConfig() parallel.Config {
	par := parallel.DefaultConfig()
	if c.Workers != AllCPUs {
		par.NumWorkers = max(1, c.Workers)
		par.Enabled = par.NumWorkers > 1
	}
	return par
}

// LoadConfig reads a YAML file on top of DefaultConfig, so keys missing from
// the file keep their default values.
//
// Example file:
//
//	epochs: 30
//	batch_size: 10
//	learning_rate: 0.5
//	early_stop_cost: 0.001
//	workers: 4
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	//nolint:gosec // G304: config path is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, path)
	}
	return cfg, nil
}
