package config

import (
	"fmt"
	"os"

	"github.com/todd866/oscillab/internal/codec"
	"gopkg.in/yaml.v3"
)

const (
	DefaultN        = 64
	DefaultCoupling = 0.5
	// DefaultFreqSpread is calibrated together with the feedback gain:
	// wide enough that the driver keeps roughly ten effective modes,
	// narrow enough that a full-bandwidth responder can phase-lock.
	DefaultFreqSpread = 0.35
	DefaultNoiseStd   = 0.3
	DefaultDt         = 0.1
	DefaultGain       = 1.0
	DefaultBandwidth  = 4
	DefaultTrials     = 10
	DefaultBurnIn     = 500
	DefaultMeasure    = 500
	DefaultSeed       = 42
)

// Config is the external configuration surface for runs and sweeps.
// Validate is the boundary where bandwidth clamping and fail-fast
// checks happen; past here, out-of-range values are programmer errors.
type Config struct {
	N          int     `yaml:"n"`
	Coupling   float64 `yaml:"coupling"`
	FreqSpread float64 `yaml:"freq_spread"`
	NoiseStd   float64 `yaml:"noise_std"`
	Dt         float64 `yaml:"dt"`

	Codec     string `yaml:"codec"`
	Bandwidth int    `yaml:"bandwidth"`
	// Bandwidths is the sweep list; ascending order is required so the
	// monotonicity diagnostics are meaningful.
	Bandwidths []int   `yaml:"bandwidths"`
	Gain       float64 `yaml:"gain"`

	Trials  int `yaml:"trials"`
	BurnIn  int `yaml:"burn_in"`
	Measure int `yaml:"measure"`

	Seed          int64 `yaml:"seed"`
	DriverSeed    int64 `yaml:"driver_seed"`
	ResponderSeed int64 `yaml:"responder_seed"`

	Control bool `yaml:"control"`
	Workers int  `yaml:"workers"`
}

func DefaultConfig() *Config {
	return &Config{
		N:             DefaultN,
		Coupling:      DefaultCoupling,
		FreqSpread:    DefaultFreqSpread,
		NoiseStd:      DefaultNoiseStd,
		Dt:            DefaultDt,
		Codec:         string(codec.ModeFourier),
		Bandwidth:     DefaultBandwidth,
		Bandwidths:    []int{1, 2, 4, 8, 16, 32},
		Gain:          DefaultGain,
		Trials:        DefaultTrials,
		BurnIn:        DefaultBurnIn,
		Measure:       DefaultMeasure,
		Seed:          DefaultSeed,
		DriverSeed:    42,
		ResponderSeed: 137,
		Control:       true,
	}
}

// Load reads a YAML config, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// Validate fails fast on impossible values and clamps the bandwidth
// fields into [1, n/2]. This is the only place clamping is allowed.
func (c *Config) Validate() error {
	if c.N < 3 {
		return fmt.Errorf("n must be at least 3, got %d", c.N)
	}
	if c.Coupling < 0 {
		return fmt.Errorf("coupling must be non-negative, got %f", c.Coupling)
	}
	if c.FreqSpread < 0 {
		return fmt.Errorf("freq_spread must be non-negative, got %f", c.FreqSpread)
	}
	if c.NoiseStd < 0 {
		return fmt.Errorf("noise_std must be non-negative, got %f", c.NoiseStd)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Gain < 0 {
		return fmt.Errorf("gain must be non-negative, got %f", c.Gain)
	}
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Trials)
	}
	if c.Measure < 1 {
		return fmt.Errorf("measure must be at least 1, got %d", c.Measure)
	}
	if c.BurnIn < 0 {
		return fmt.Errorf("burn_in must be non-negative, got %d", c.BurnIn)
	}
	if _, err := codec.ParseMode(c.Codec); err != nil {
		return err
	}

	c.Bandwidth = codec.ClampBandwidth(c.Bandwidth, c.N)
	for i, k := range c.Bandwidths {
		c.Bandwidths[i] = codec.ClampBandwidth(k, c.N)
	}
	for i := 1; i < len(c.Bandwidths); i++ {
		if c.Bandwidths[i] <= c.Bandwidths[i-1] {
			return fmt.Errorf("bandwidths must be strictly ascending, got %v", c.Bandwidths)
		}
	}
	return nil
}

// Mode returns the parsed codec mode. Call Validate first.
func (c *Config) Mode() codec.Mode {
	return codec.Mode(c.Codec)
}
