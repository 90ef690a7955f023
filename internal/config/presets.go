package config

import "sort"

var Presets = map[string]*Config{
	// The reference validation setup.
	"default": nil,
	// Fast smoke sweep for interactive use.
	"quick": {
		N: 32, Coupling: 0.5, FreqSpread: 0.35, NoiseStd: 0.3, Dt: 0.1,
		Codec: "fourier", Bandwidth: 4, Bandwidths: []int{1, 4, 16},
		Gain: 1.0, Trials: 3, BurnIn: 100, Measure: 200,
		Seed: 42, DriverSeed: 42, ResponderSeed: 137, Control: false,
	},
	// More trials and longer windows for tighter statistics.
	"highres": {
		N: 64, Coupling: 0.5, FreqSpread: 0.35, NoiseStd: 0.3, Dt: 0.1,
		Codec: "fourier", Bandwidth: 4, Bandwidths: []int{1, 2, 4, 8, 16, 32},
		Gain: 1.0, Trials: 20, BurnIn: 1000, Measure: 1000,
		Seed: 42, DriverSeed: 42, ResponderSeed: 137, Control: true,
	},
	// Uncoupled responder only: the null result on its own.
	"control": {
		N: 64, Coupling: 0.5, FreqSpread: 0.35, NoiseStd: 0.3, Dt: 0.1,
		Codec: "fourier", Bandwidth: 4, Bandwidths: []int{1, 8, 32},
		Gain: 0.0, Trials: 10, BurnIn: 500, Measure: 500,
		Seed: 42, DriverSeed: 42, ResponderSeed: 137, Control: false,
	},
	// Random-projection channel: bandwidth limitation without spatial
	// structure, the whitening-not-collapse contrast.
	"whitening": {
		N: 64, Coupling: 0.5, FreqSpread: 0.35, NoiseStd: 0.3, Dt: 0.1,
		Codec: "random", Bandwidth: 4, Bandwidths: []int{1, 2, 4, 8, 16, 32},
		Gain: 1.0, Trials: 10, BurnIn: 500, Measure: 500,
		Seed: 42, DriverSeed: 42, ResponderSeed: 137, Control: false,
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	if cfg == nil {
		return DefaultConfig()
	}
	clone := *cfg
	clone.Bandwidths = append([]int(nil), cfg.Bandwidths...)
	return &clone
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
