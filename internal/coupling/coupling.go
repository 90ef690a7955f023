package coupling

import (
	"fmt"
	"math"

	"github.com/todd866/oscillab/internal/codec"
)

// Config describes the channel between a driver and a responder: how
// the driver's field is compressed and how strongly the responder is
// pulled toward the reconstruction.
type Config struct {
	Mode      codec.Mode
	Bandwidth int
	Gain      float64
}

// Link feeds a responder ring a forcing term derived from a driver
// ring's codec-limited state. Causality is one-directional: a link only
// ever reads the driver.
type Link struct {
	cfg Config
	cdc *codec.Codec
}

// NewLink validates the channel configuration and binds it to a codec.
func NewLink(cfg Config, cdc *codec.Codec) (*Link, error) {
	if cfg.Mode != codec.ModeFourier && cfg.Mode != codec.ModeRandom {
		return nil, fmt.Errorf("unknown codec mode: %q", cfg.Mode)
	}
	if cfg.Bandwidth < 1 {
		return nil, fmt.Errorf("bandwidth must be at least 1, got %d", cfg.Bandwidth)
	}
	if cfg.Gain < 0 {
		return nil, fmt.Errorf("gain must be non-negative, got %f", cfg.Gain)
	}
	if cdc == nil {
		return nil, fmt.Errorf("link requires a codec")
	}
	return &Link{cfg: cfg, cdc: cdc}, nil
}

func (l *Link) Config() Config { return l.cfg }

// SetGain adjusts the feedback gain without rebuilding the link.
func (l *Link) SetGain(gain float64) error {
	if gain < 0 {
		return fmt.Errorf("gain must be non-negative, got %f", gain)
	}
	l.cfg.Gain = gain
	return nil
}

// SetBandwidth adjusts the channel bandwidth for fields of n samples,
// clamping into [1, n/2]. This is a configuration boundary, so clamping
// is the contract here.
func (l *Link) SetBandwidth(k, n int) {
	l.cfg.Bandwidth = codec.ClampBandwidth(k, n)
}

// SetMode switches the codec mode.
func (l *Link) SetMode(m codec.Mode) error {
	if m != codec.ModeFourier && m != codec.ModeRandom {
		return fmt.Errorf("unknown codec mode: %q", m)
	}
	l.cfg.Mode = m
	return nil
}

// Target returns the responder's target field: the driver's field after
// an encode/decode round trip through the bandwidth-limited channel.
func (l *Link) Target(driverField []float64) ([]float64, error) {
	n := len(driverField)
	switch l.cfg.Mode {
	case codec.ModeRandom:
		coeffs, err := l.cdc.EncodeRandom(driverField, l.cfg.Bandwidth)
		if err != nil {
			return nil, err
		}
		return l.cdc.DecodeRandom(coeffs, n)
	default:
		coeffs, err := l.cdc.EncodeFourier(driverField, l.cfg.Bandwidth)
		if err != nil {
			return nil, err
		}
		return l.cdc.DecodeFourier(coeffs, n)
	}
}

// Forcing computes the per-node feedback gain*sin(target - responder).
// It is a soft phase-locking term: the responder's own coupling and
// noise still apply on top of it.
func (l *Link) Forcing(driverField, responderField []float64) ([]float64, error) {
	if len(driverField) != len(responderField) {
		return nil, fmt.Errorf("driver field length %d does not match responder length %d",
			len(driverField), len(responderField))
	}

	target, err := l.Target(driverField)
	if err != nil {
		return nil, err
	}

	forcing := make([]float64, len(target))
	for i := range forcing {
		forcing[i] = l.cfg.Gain * math.Sin(target[i]-responderField[i])
	}
	return forcing, nil
}
