package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds training configuration
type Config struct {
	HiddenUnits   int       `yaml:"hidden_units"`
	BatchSize     int       `yaml:"batch_size"`
	LearningRates []float64 `yaml:"learning_rates"`
	// Epochs is the epoch count of every stage of the schedule.
	Epochs     int    `yaml:"epochs"`
	OutputRoot string `yaml:"output_root"`
	// Overwrite is accepted and recorded but does not change what a run does.
	Overwrite bool    `yaml:"overwrite"`
	Seed      int64   `yaml:"seed"`
	LRPRule   string  `yaml:"lrp_rule"`
	LRPParam  float64 `yaml:"lrp_param"`
}

// Overrides captures CLI supplied values. Zero values and nil pointers leave
// the config alone; the pointer fields allow setting an explicit zero.
type Overrides struct {
	HiddenUnits   int
	BatchSize     int
	LearningRates []float64
	Epochs        int
	OutputRoot    string
	Overwrite     *bool
	Seed          *int64
	LRPRule       string
	LRPParam      *float64
}

// DefaultConfig returns the stock three-layer setup.
func DefaultConfig() *Config {
	return &Config{
		HiddenUnits:   512,
		BatchSize:     5,
		LearningRates: []float64{5e-3, 1e-3, 5e-4},
		Epochs:        10,
		OutputRoot:    "./tmp",
		Seed:          42,
		LRPRule:       "epsilon",
		LRPParam:      1e-5,
	}
}

// LoadConfig reads a YAML file over the defaults. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.HiddenUnits > 0 {
		c.HiddenUnits = o.HiddenUnits
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if len(o.LearningRates) > 0 {
		c.LearningRates = append([]float64(nil), o.LearningRates...)
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.OutputRoot != "" {
		c.OutputRoot = o.OutputRoot
	}
	if o.Overwrite != nil {
		c.Overwrite = *o.Overwrite
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.LRPRule != "" {
		c.LRPRule = o.LRPRule
	}
	if o.LRPParam != nil {
		c.LRPParam = *o.LRPParam
	}
}

// ParseSchedule parses a whitespace or comma separated list of learning rates.
func ParseSchedule(s string) ([]float64, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("learning rate %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

// ValidateConfig validates training configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return errors.New("config is nil")
	}
	if config.HiddenUnits <= 0 {
		return fmt.Errorf("hidden units must be positive (got %d)", config.HiddenUnits)
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive (got %d)", config.BatchSize)
	}
	if len(config.LearningRates) == 0 {
		return errors.New("learning rate schedule is empty")
	}
	for i, lr := range config.LearningRates {
		if lr <= 0 {
			return fmt.Errorf("learning rate %d must be positive (got %g)", i, lr)
		}
	}
	if config.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive (got %d)", config.Epochs)
	}
	if config.OutputRoot == "" {
		return errors.New("output root must be set")
	}
	if config.LRPParam < 0 {
		return fmt.Errorf("lrp parameter must be >= 0 (got %g)", config.LRPParam)
	}
	return nil
}
