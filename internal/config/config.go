package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for an experiment run.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`

	HiddenUnits     int     `yaml:"hidden_units"`
	WeightSparsity  float64 `yaml:"weight_sparsity"`
	PercentOn       float64 `yaml:"percent_on"`
	BoostStrength   float64 `yaml:"boost_strength"`
	BoostFactor     float64 `yaml:"boost_strength_factor"`
	DutyCyclePeriod int     `yaml:"duty_cycle_period"`

	NoiseLevels []float64 `yaml:"noise_levels"`

	Seed        int64 `yaml:"seed"`
	NumWorkers  int   `yaml:"num_workers"`
	LogEvery    int   `yaml:"log_every"`
	MetricsPort int   `yaml:"metrics_port"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDir     string
	Epochs      int
	BatchSize   int
	Seed        int64
	NumWorkers  int
	LogEvery    int
	MetricsPort int
}

// Load reads and validates a Config from YAML.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.MetricsPort > 0 {
		c.MetricsPort = o.MetricsPort
	}
}

// Validate verifies the config is runnable, filling defaults where a knob
// has a conventional value.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0, 1) (got %g)", c.Momentum)
	}
	if c.HiddenUnits <= 0 {
		return fmt.Errorf("hidden_units must be > 0 (got %d)", c.HiddenUnits)
	}
	if c.WeightSparsity < 0 || c.WeightSparsity >= 1 {
		return fmt.Errorf("weight_sparsity must be in [0, 1) (got %g)", c.WeightSparsity)
	}
	if c.PercentOn <= 0 || c.PercentOn > 1 {
		return fmt.Errorf("percent_on must be in (0, 1] (got %g)", c.PercentOn)
	}
	if c.BoostStrength < 0 {
		return fmt.Errorf("boost_strength must be >= 0 (got %g)", c.BoostStrength)
	}
	if c.BoostFactor <= 0 || c.BoostFactor > 1 {
		return fmt.Errorf("boost_strength_factor must be in (0, 1] (got %g)", c.BoostFactor)
	}
	if c.DutyCyclePeriod <= 0 {
		c.DutyCyclePeriod = 1000
	}
	for _, level := range c.NoiseLevels {
		if level < 0 || level > 1 {
			return fmt.Errorf("noise level must be in [0, 1] (got %g)", level)
		}
	}
	if len(c.NoiseLevels) == 0 {
		for level := 0.0; level <= 0.5001; level += 0.05 {
			c.NoiseLevels = append(c.NoiseLevels, level)
		}
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 100
	}
	return nil
}
