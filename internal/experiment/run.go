// Package experiment orchestrates driver/responder runs and
// multi-trial, multi-bandwidth sweeps, and renders their reports.
package experiment

import (
	"context"
	"fmt"

	"github.com/todd866/oscillab/internal/codec"
	"github.com/todd866/oscillab/internal/coupling"
	"github.com/todd866/oscillab/internal/lattice"
	"github.com/todd866/oscillab/internal/metrics"
)

// PairConfig describes a single driver/responder run.
type PairConfig struct {
	N          int
	Coupling   float64
	FreqSpread float64
	NoiseStd   float64
	Dt         float64

	Mode      codec.Mode
	Bandwidth int
	Gain      float64

	DriverSeed    int64
	ResponderSeed int64
	CodecSeed     int64

	BurnIn  int
	Measure int

	// KeepHistory records per-step metric traces for plotting. Sweeps
	// leave it off.
	KeepHistory bool
}

func (c PairConfig) Validate() error {
	if c.N < 3 {
		return fmt.Errorf("n must be at least 3, got %d", c.N)
	}
	if c.Coupling < 0 {
		return fmt.Errorf("coupling must be non-negative, got %f", c.Coupling)
	}
	if c.NoiseStd < 0 {
		return fmt.Errorf("noise std must be non-negative, got %f", c.NoiseStd)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", c.Dt)
	}
	if c.Bandwidth < 1 || c.Bandwidth > codec.MaxBandwidth(c.N) {
		return fmt.Errorf("bandwidth %d out of range [1, %d]", c.Bandwidth, codec.MaxBandwidth(c.N))
	}
	if c.Gain < 0 {
		return fmt.Errorf("gain must be non-negative, got %f", c.Gain)
	}
	if c.Measure < 1 {
		return fmt.Errorf("measurement steps must be at least 1, got %d", c.Measure)
	}
	if c.BurnIn < 0 {
		return fmt.Errorf("burn-in steps must be non-negative, got %d", c.BurnIn)
	}
	return nil
}

// PairResult holds time-averaged statistics from one run, plus optional
// per-step traces and the final phase fields.
type PairResult struct {
	DriverComplexity    float64
	ResponderComplexity float64
	Coherence           float64
	Mismatch            float64

	DriverHistory    []float64
	ResponderHistory []float64
	MismatchHistory  []float64

	DriverField    []float64
	ResponderField []float64

	Steps int
}

// RunPair runs one driver/responder pair: burn-in steps are discarded,
// then measurement steps accumulate time-averaged metrics. The driver
// always evolves freely; the responder receives the link forcing.
func RunPair(ctx context.Context, cfg PairConfig) (*PairResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver, err := lattice.New(cfg.N, cfg.Coupling, cfg.FreqSpread, cfg.NoiseStd, cfg.Dt, cfg.DriverSeed)
	if err != nil {
		return nil, err
	}
	responder, err := lattice.New(cfg.N, cfg.Coupling, cfg.FreqSpread, cfg.NoiseStd, cfg.Dt, cfg.ResponderSeed)
	if err != nil {
		return nil, err
	}

	link, err := coupling.NewLink(coupling.Config{
		Mode:      cfg.Mode,
		Bandwidth: cfg.Bandwidth,
		Gain:      cfg.Gain,
	}, codec.New(cfg.CodecSeed))
	if err != nil {
		return nil, err
	}

	step := func() error {
		forcing, err := link.Forcing(driver.Phases(), responder.Phases())
		if err != nil {
			return err
		}
		if err := driver.Step(nil); err != nil {
			return err
		}
		return responder.Step(forcing)
	}

	for i := 0; i < cfg.BurnIn; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := step(); err != nil {
			return nil, err
		}
	}

	driverCx := metrics.NewAverage("driver_complexity")
	responderCx := metrics.NewAverage("responder_complexity")
	coherence := metrics.NewAverage("coherence")
	mismatch := metrics.NewAverage("mismatch")

	result := &PairResult{}
	if cfg.KeepHistory {
		result.DriverHistory = make([]float64, 0, cfg.Measure)
		result.ResponderHistory = make([]float64, 0, cfg.Measure)
		result.MismatchHistory = make([]float64, 0, cfg.Measure)
	}

	for i := 0; i < cfg.Measure; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := step(); err != nil {
			return nil, err
		}

		dc := metrics.SpectralComplexity(driver.Phases())
		rc := metrics.SpectralComplexity(responder.Phases())
		co := metrics.CrossCoherence(driver.Phases(), responder.Phases())
		mm := metrics.PhaseMismatch(driver.Phases(), responder.Phases())

		driverCx.Observe(dc)
		responderCx.Observe(rc)
		coherence.Observe(co)
		mismatch.Observe(mm)

		if cfg.KeepHistory {
			result.DriverHistory = append(result.DriverHistory, dc)
			result.ResponderHistory = append(result.ResponderHistory, rc)
			result.MismatchHistory = append(result.MismatchHistory, mm)
		}
		result.Steps++
	}

	result.DriverComplexity = driverCx.Value()
	result.ResponderComplexity = responderCx.Value()
	result.Coherence = coherence.Value()
	result.Mismatch = mismatch.Value()
	result.DriverField = driver.Field()
	result.ResponderField = responder.Field()
	return result, nil
}
