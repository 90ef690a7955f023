package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/todd866/oscillab/internal/codec"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Mode() != codec.ModeFourier {
		t.Errorf("expected fourier default, got %s", cfg.Mode())
	}
	if cfg.Bandwidth != DefaultBandwidth {
		t.Errorf("expected bandwidth %d, got %d", DefaultBandwidth, cfg.Bandwidth)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too few oscillators", func(c *Config) { c.N = 2 }},
		{"negative coupling", func(c *Config) { c.Coupling = -1 }},
		{"negative spread", func(c *Config) { c.FreqSpread = -1 }},
		{"negative noise", func(c *Config) { c.NoiseStd = -1 }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative gain", func(c *Config) { c.Gain = -1 }},
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"zero measure", func(c *Config) { c.Measure = 0 }},
		{"negative burn-in", func(c *Config) { c.BurnIn = -1 }},
		{"unknown codec", func(c *Config) { c.Codec = "bogus" }},
		{"descending bandwidths", func(c *Config) { c.Bandwidths = []int{8, 4} }},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestValidateClampsBandwidths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.N = 16
	cfg.Bandwidth = 99
	cfg.Bandwidths = []int{1, 4, 8}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Bandwidth != 8 {
		t.Errorf("expected single bandwidth clamped to 8, got %d", cfg.Bandwidth)
	}

	// Clamping can collapse the tail of the sweep list into duplicates,
	// which the ascending check then rejects.
	cfg = DefaultConfig()
	cfg.N = 16
	cfg.Bandwidths = []int{4, 8, 16, 32}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error after clamping collapses duplicates")
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.N = 32
	cfg.Codec = "random"
	cfg.Bandwidths = []int{1, 4, 16}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.N != 32 || loaded.Codec != "random" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if len(loaded.Bandwidths) != 3 || loaded.Bandwidths[2] != 16 {
		t.Errorf("round trip lost bandwidth list: %v", loaded.Bandwidths)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("n: 128\ngain: 2.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.N != 128 || cfg.Gain != 2.0 {
		t.Errorf("explicit fields not applied: %+v", cfg)
	}
	if cfg.Trials != DefaultTrials || cfg.Codec != "fourier" {
		t.Errorf("omitted fields lost their defaults: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("n: [not a number"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestListPresetsSorted(t *testing.T) {
	// The presets command prints this list; its order must not depend on
	// map iteration.
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d names, got %d", len(Presets), len(names))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("preset names not sorted: %v", names)
	}
}

func TestPresets(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q returned nil", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}

	if GetPreset("nope") != nil {
		t.Error("unknown preset should return nil")
	}

	// Presets hand out clones; mutating one must not poison the table.
	a := GetPreset("quick")
	a.Bandwidths[0] = 99
	a.N = 5
	b := GetPreset("quick")
	if b.Bandwidths[0] == 99 || b.N == 5 {
		t.Error("preset mutation leaked into the shared table")
	}

	if GetPreset("control").Gain != 0 {
		t.Error("control preset should have zero gain")
	}
	if GetPreset("whitening").Codec != "random" {
		t.Error("whitening preset should use the random codec")
	}
}
