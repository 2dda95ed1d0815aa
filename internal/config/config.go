package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/newtonsolve/internal/newton"
	"github.com/san-kum/newtonsolve/internal/systems"
)

const (
	DefaultSystem      = "circles"
	DefaultFieldWidth  = 60
	DefaultFieldHeight = 24
	DefaultFieldMargin = 0.25
)

type Config struct {
	System  string        `yaml:"system"`
	Initial []float64     `yaml:"initial,omitempty"`
	Solver  newton.Config `yaml:"solver"`
	Field   FieldConfig   `yaml:"field"`
}

// FieldConfig controls the residual map drawn by the field command.
type FieldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Margin pads the window around the trace, as a fraction of its extent.
	Margin float64 `yaml:"margin"`
	// Axes are the two variable indices plotted horizontally and vertically.
	Axes [2]int `yaml:"axes"`
}

func DefaultConfig() *Config {
	return &Config{
		System: DefaultSystem,
		Solver: newton.DefaultConfig(),
		Field: FieldConfig{
			Width:  DefaultFieldWidth,
			Height: DefaultFieldHeight,
			Margin: DefaultFieldMargin,
			Axes:   [2]int{0, 1},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.System == "" {
		return fmt.Errorf("%w: system name is empty", newton.ErrInvalidConfig)
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		return fmt.Errorf("%w: field size must be positive, got %dx%d", newton.ErrInvalidConfig, c.Field.Width, c.Field.Height)
	}
	if c.Field.Margin < 0 {
		return fmt.Errorf("%w: field margin must not be negative, got %g", newton.ErrInvalidConfig, c.Field.Margin)
	}
	return nil
}

// SolverConfig returns the iteration bounds.
func (c *Config) SolverConfig() newton.Config {
	return c.Solver
}

// InitialPoint returns the configured start for def, falling back to the
// system's own initial point.
func (c *Config) InitialPoint(def systems.Definition) ([]float64, error) {
	if len(c.Initial) == 0 {
		return def.Start(), nil
	}
	if len(c.Initial) != def.VarCount {
		return nil, fmt.Errorf("%w: %s takes %d variables, initial point has %d",
			newton.ErrDimensionMismatch, def.Name, def.VarCount, len(c.Initial))
	}
	x := make([]float64, len(c.Initial))
	copy(x, c.Initial)
	return x, nil
}
