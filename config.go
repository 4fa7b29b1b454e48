package bgan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/unixpickle/bgan/datasets"
	"gopkg.in/yaml.v3"
)

// Config captures every knob of a training run.
type Config struct {
	DatasetName string `yaml:"dataset_name"`
	RunName     string `yaml:"run_name"`
	DataPath    string `yaml:"data_path"`
	ResultsDir  string `yaml:"results_dir"`

	BatchSize  int     `yaml:"batch_size"`
	LatentDim  int     `yaml:"latent_dim"`
	GenLR      float64 `yaml:"g_lr"`
	DiscLR     float64 `yaml:"d_lr"`
	Activation string  `yaml:"activation"`

	SpectralNorm bool `yaml:"use_spectral_norm"`

	LogEvery        int `yaml:"log_every"`
	SampleEvery     int `yaml:"sample_every"`
	CheckpointEvery int `yaml:"checkpoint_every"`
	NumSample       int `yaml:"n_sample"`
	MCSamples       int `yaml:"n_mc_samples"`
	Epochs          int `yaml:"epochs"`
	NumWorkers      int `yaml:"num_workers"`

	Device string `yaml:"device"`
	Seed   int64  `yaml:"seed"`
	OnNaN  string `yaml:"on_nan"`

	// Resume is the path of a checkpoint to continue from.
	Resume string `yaml:"resume"`
}

// DefaultConfig returns the default configuration.
// Activation is left empty so that the dataset's default
// is used.
func DefaultConfig() *Config {
	return &Config{
		DatasetName:     "disc_mnist",
		DataPath:        "data",
		ResultsDir:      "results",
		BatchSize:       64,
		LatentDim:       64,
		GenLR:           1e-4,
		DiscLR:          1e-4,
		LogEvery:        100,
		SampleEvery:     100,
		CheckpointEvery: 1,
		NumSample:       16,
		MCSamples:       20,
		Epochs:          100,
		OnNaN:           string(AbortOnNaN),
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// Validate checks every field, so that a bad value fails
// before any data is loaded or network built.
func (c *Config) Validate() error {
	if _, err := datasets.Lookup(c.DatasetName); err != nil {
		return &ConfigError{Field: "dataset_name", Value: c.DatasetName, Msg: err.Error()}
	}
	if c.Activation != "" {
		if _, err := ParseActivation(c.Activation); err != nil {
			return err
		}
	}
	if c.Device != "" && c.Device != "cpu" {
		return &ConfigError{Field: "device", Value: c.Device, Msg: "only cpu is supported"}
	}
	switch NumericPolicy(c.OnNaN) {
	case AbortOnNaN, SkipOnNaN:
	default:
		return &ConfigError{Field: "on_nan", Value: c.OnNaN, Msg: "options: abort, skip"}
	}
	for _, x := range []struct {
		field string
		value int
		min   int
	}{
		{"batch_size", c.BatchSize, 1},
		{"latent_dim", c.LatentDim, 1},
		{"n_mc_samples", c.MCSamples, 1},
		{"epochs", c.Epochs, 0},
		{"n_sample", c.NumSample, 0},
		{"num_workers", c.NumWorkers, 0},
		{"log_every", c.LogEvery, 0},
		{"sample_every", c.SampleEvery, 0},
		{"checkpoint_every", c.CheckpointEvery, 0},
	} {
		if x.value < x.min {
			return &ConfigError{Field: x.field, Value: fmt.Sprint(x.value),
				Msg: fmt.Sprintf("must be >= %d", x.min)}
		}
	}
	for _, x := range []struct {
		field string
		value float64
	}{
		{"g_lr", c.GenLR},
		{"d_lr", c.DiscLR},
	} {
		if !(x.value > 0) || !finite(x.value) {
			return &ConfigError{Field: x.field, Value: fmt.Sprint(x.value), Msg: "must be > 0"}
		}
	}
	return nil
}

// ResultDirs are the output directories of a run.
type ResultDirs struct {
	Root        string
	Samples     string
	Checkpoints string
}

// CreateResultDirs creates
// <results_dir>/<run_name or dataset_name>/{samples,checkpoints}.
func (c *Config) CreateResultDirs() (ResultDirs, error) {
	name := c.RunName
	if name == "" {
		name = c.DatasetName
	}
	root := filepath.Join(c.ResultsDir, name)
	res := ResultDirs{
		Root:        root,
		Samples:     filepath.Join(root, "samples"),
		Checkpoints: filepath.Join(root, "checkpoints"),
	}
	for _, dir := range []string{res.Samples, res.Checkpoints} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return res, errors.Wrap(err, "create result directory")
		}
	}
	return res, nil
}
