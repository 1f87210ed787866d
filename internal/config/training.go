package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TrainingConfig holds model and training-loop hyperparameters.
type TrainingConfig struct {
	Hidden      []int   `yaml:"hidden"`
	DropoutRate float64 `yaml:"dropout_rate"`
	BNMomentum  float64 `yaml:"bn_momentum"`
	BNEpsilon   float64 `yaml:"bn_epsilon"`

	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	LearningRate    float64 `yaml:"learning_rate"`
	ValidationSplit float64 `yaml:"validation_split"`

	EarlyStoppingPatience int     `yaml:"early_stopping_patience"`
	ReduceLRPatience      int     `yaml:"reduce_lr_patience"`
	ReduceLRFactor        float64 `yaml:"reduce_lr_factor"`
	MinLearningRate       float64 `yaml:"min_learning_rate"`

	TestSize  float64 `yaml:"test_size"`
	Seed      int64   `yaml:"seed"`
	Threshold float64 `yaml:"threshold"`
}

// DefaultTrainingConfig returns the production hyperparameters.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Hidden:      []int{64, 32},
		DropoutRate: 0.1,
		BNMomentum:  0.99,
		BNEpsilon:   1e-3,

		Epochs:          150,
		BatchSize:       64,
		LearningRate:    0.001,
		ValidationSplit: 0.2,

		EarlyStoppingPatience: 15,
		ReduceLRPatience:      5,
		ReduceLRFactor:        0.2,
		MinLearningRate:       1e-5,

		TestSize:  0.2,
		Seed:      42,
		Threshold: 0.5,
	}
}

// LoadTrainingConfig reads a YAML file over the defaults. An empty path
// returns the defaults.
func LoadTrainingConfig(path string) (TrainingConfig, error) {
	cfg := DefaultTrainingConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return TrainingConfig{}, fmt.Errorf("read training config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TrainingConfig{}, fmt.Errorf("parse training config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return TrainingConfig{}, fmt.Errorf("training config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the training loop cannot run with.
func (c TrainingConfig) Validate() error {
	switch {
	case len(c.Hidden) == 0:
		return errors.New("hidden: at least one layer required")
	case c.Epochs <= 0:
		return errors.New("epochs must be positive")
	case c.BatchSize <= 0:
		return errors.New("batch_size must be positive")
	case c.LearningRate <= 0:
		return errors.New("learning_rate must be positive")
	case c.ValidationSplit < 0 || c.ValidationSplit >= 1:
		return errors.New("validation_split must be in [0, 1)")
	case c.TestSize <= 0 || c.TestSize >= 1:
		return errors.New("test_size must be in (0, 1)")
	case c.DropoutRate < 0 || c.DropoutRate >= 1:
		return errors.New("dropout_rate must be in [0, 1)")
	case c.BNMomentum < 0 || c.BNMomentum >= 1:
		return errors.New("bn_momentum must be in [0, 1)")
	case c.BNEpsilon <= 0:
		return errors.New("bn_epsilon must be positive")
	case c.ReduceLRFactor <= 0 || c.ReduceLRFactor >= 1:
		return errors.New("reduce_lr_factor must be in (0, 1)")
	case c.Threshold <= 0 || c.Threshold >= 1:
		return errors.New("threshold must be in (0, 1)")
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden[%d] must be positive", i)
		}
	}
	return nil
}
