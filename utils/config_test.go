package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, 512, cfg.HiddenUnits)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, []float64{5e-3, 1e-3, 5e-4}, cfg.LearningRates)
	assert.False(t, cfg.Overwrite)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
hidden_units: 64
learning_rates: [0.01, 0.001]
overwrite: true
lrp_rule: alphabeta
lrp_param: 2
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.HiddenUnits)
	assert.Equal(t, []float64{0.01, 0.001}, cfg.LearningRates)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, "alphabeta", cfg.LRPRule)
	assert.Equal(t, 2.0, cfg.LRPParam)
	// untouched keys keep their defaults
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "hiden_units: 3\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	overwrite := true
	seed := int64(7)
	cfg.ApplyOverrides(Overrides{
		HiddenUnits:   16,
		LearningRates: []float64{0.1},
		OutputRoot:    "/tmp/out",
		Overwrite:     &overwrite,
		Seed:          &seed,
	})
	assert.Equal(t, 16, cfg.HiddenUnits)
	assert.Equal(t, []float64{0.1}, cfg.LearningRates)
	assert.Equal(t, "/tmp/out", cfg.OutputRoot)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, "epsilon", cfg.LRPRule)
}

func TestParseSchedule(t *testing.T) {
	got, err := ParseSchedule("5e-3, 1e-3 5e-4")
	require.NoError(t, err)
	assert.Equal(t, []float64{5e-3, 1e-3, 5e-4}, got)

	_, err = ParseSchedule("0.1,fast")
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"hidden":   func(c *Config) { c.HiddenUnits = 0 },
		"batch":    func(c *Config) { c.BatchSize = -1 },
		"schedule": func(c *Config) { c.LearningRates = nil },
		"lr":       func(c *Config) { c.LearningRates = []float64{0.1, 0} },
		"epochs":   func(c *Config) { c.Epochs = 0 },
		"root":     func(c *Config) { c.OutputRoot = "" },
		"param":    func(c *Config) { c.LRPParam = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
	assert.Error(t, ValidateConfig(nil))
}

func TestApplyOverridesExplicitZero(t *testing.T) {
	cfg := DefaultConfig()
	seed, eps := int64(0), 0.0
	cfg.ApplyOverrides(Overrides{Seed: &seed, LRPParam: &eps})
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, 0.0, cfg.LRPParam)
	require.NoError(t, ValidateConfig(cfg))

	cfg = DefaultConfig()
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, DefaultConfig(), cfg)
}
