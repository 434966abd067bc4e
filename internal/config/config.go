package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/lumasim/internal/dynamo"
	"github.com/san-kum/lumasim/internal/experiment"
	"github.com/san-kum/lumasim/internal/scenario"
)

const (
	DefaultDt         = 1.0
	DefaultSteps      = 1200
	DefaultKp         = 1.0
	DefaultTauP       = 5.0
	DefaultTheta      = 0.5
	DefaultKc         = 2.0
	DefaultTauI       = 5.0
	DefaultTauD       = 0.1
	DefaultSetpoint   = 0.5
	DefaultLightLevel = 0.4
)

// Config is the on-disk form of one run. Signals are described as segments
// and rendered onto the grid by Experiment.
type Config struct {
	Name         string                  `yaml:"name"`
	Dt           float64                 `yaml:"dt"`
	Steps        int                     `yaml:"steps"`
	InitialState float64                 `yaml:"initial_state"`
	Integrator   string                  `yaml:"integrator"`
	Substeps     int                     `yaml:"substeps,omitempty"`
	Tolerance    float64                 `yaml:"tolerance,omitempty"`
	Controller   string                  `yaml:"controller"`
	ManualOutput float64                 `yaml:"manual_output,omitempty"`
	Plant        dynamo.PlantParams      `yaml:"plant"`
	PID          dynamo.ControllerParams `yaml:"pid"`
	Setpoint     []scenario.Segment      `yaml:"setpoint"`
	Disturbance  []scenario.Segment      `yaml:"disturbance"`
}

// DefaultConfig is the screen brightness step test: the set point goes to
// 0.5 at t=50 and back at t=1000, with ambient light of 0.4 on [300, 900).
func DefaultConfig() *Config {
	return &Config{
		Name:       "step",
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		Integrator: "rk4",
		Controller: "pid",
		Plant: dynamo.PlantParams{
			Gain:         DefaultKp,
			TimeConstant: DefaultTauP,
			DeadTime:     DefaultTheta,
		},
		PID: dynamo.ControllerParams{
			Gain:           DefaultKc,
			IntegralTime:   DefaultTauI,
			DerivativeTime: DefaultTauD,
			OutputLow:      0,
			OutputHigh:     1,
		},
		Setpoint: []scenario.Segment{
			{Kind: scenario.Step, Start: 50, End: 1000, Value: DefaultSetpoint},
		},
		Disturbance: []scenario.Segment{
			{Kind: scenario.Step, Start: 300, End: 900, Value: DefaultLightLevel},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so a file only names what it changes.
// A file that lists signal segments replaces the default segments entirely.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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

func (c *Config) Grid() dynamo.Grid {
	return dynamo.Grid{Dt: c.Dt, Steps: c.Steps}
}

// Duration is the simulated span in seconds.
func (c *Config) Duration() float64 {
	return float64(c.Steps) * c.Dt
}

// DisableIntegral turns the controller into PD by setting an infinite
// integral time.
func (c *Config) DisableIntegral() {
	c.PID.IntegralTime = math.Inf(1)
}

// Experiment renders the signals and returns a runnable configuration.
func (c *Config) Experiment() (experiment.Config, error) {
	grid := c.Grid()
	if err := grid.Validate(); err != nil {
		return experiment.Config{}, err
	}
	sp, err := scenario.Build(grid, c.Setpoint)
	if err != nil {
		return experiment.Config{}, fmt.Errorf("setpoint: %w", err)
	}
	dist, err := scenario.Build(grid, c.Disturbance)
	if err != nil {
		return experiment.Config{}, fmt.Errorf("disturbance: %w", err)
	}

	return experiment.Config{
		Name:         c.Name,
		Integrator:   c.Integrator,
		Substeps:     c.Substeps,
		Tolerance:    c.Tolerance,
		Controller:   c.Controller,
		ManualOutput: c.ManualOutput,
		Plant:        c.Plant,
		PID:          c.PID,
		Scenario: dynamo.Scenario{
			Grid:        grid,
			Setpoint:    sp,
			Disturbance: dist,
			Initial:     c.InitialState,
		},
	}.Defaults(), nil
}

// Clone returns a deep copy safe to modify.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Setpoint = append([]scenario.Segment(nil), c.Setpoint...)
	cp.Disturbance = append([]scenario.Segment(nil), c.Disturbance...)
	return &cp
}
