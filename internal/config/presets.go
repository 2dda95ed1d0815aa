package config

import "sort"

var Presets = map[string]map[string]*Config{
	"circles": {
		"default": preset("circles", 4, 1),
		"far":     preset("circles", 10, 3),
		"short":   withMaxIter(preset("circles", 4, 1), 2),
	},
	"rosenbrock": {
		"classic": preset("rosenbrock", -1.2, 1),
		"near":    preset("rosenbrock", 0.8, 0.6),
	},
	"three-circles": {
		"near":   preset("three-circles", 1.3, 2.4),
		"offset": preset("three-circles", 2, 3),
	},
	"sphere-plane": {
		"tilted": preset("sphere-plane", 1, 1, 2),
		"skewed": preset("sphere-plane", 2, 1, 0.5),
	},
	"unit-circle": {
		"outside": preset("unit-circle", 3, 0.5),
	},
	"trig": {
		"unit": preset("trig", 1, 1),
	},
	"arctan": {
		"damped": preset("arctan", 2),
		"far":    preset("arctan", 10),
	},
	"parabola": {
		"origin": preset("parabola", 0.001),
	},
	"constant": {
		"flat": preset("constant", 1, 2),
	},
}

func preset(system string, x ...float64) *Config {
	cfg := DefaultConfig()
	cfg.System = system
	cfg.Initial = x
	return cfg
}

func withMaxIter(cfg *Config, n int) *Config {
	cfg.Solver.MaxIter = n
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(system, name string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[name]
	if !ok {
		return nil
	}
	out := *cfg
	out.Initial = append([]float64(nil), cfg.Initial...)
	return &out
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
