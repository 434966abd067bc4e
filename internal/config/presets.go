package config

import (
	"sort"

	"github.com/san-kum/lumasim/internal/scenario"
)

var Presets = map[string]*Config{
	"step": DefaultConfig(),
	"ramp": func() *Config {
		c := DefaultConfig()
		c.Name = "ramp"
		c.Disturbance = []scenario.Segment{
			{Kind: scenario.Ramp, Start: 300, End: 600, From: 0, To: 0.4},
			{Kind: scenario.Step, Start: 600, End: 900, Value: 0.4},
		}
		return c
	}(),
	"open-loop": func() *Config {
		c := DefaultConfig()
		c.Name = "open-loop"
		c.Controller = "manual"
		c.ManualOutput = 0.5
		c.Steps = 100
		c.Setpoint = nil
		c.Disturbance = nil
		return c
	}(),
	"pd": func() *Config {
		c := DefaultConfig()
		c.Name = "pd"
		c.DisableIntegral()
		return c
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
