package experiment

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/todd866/oscillab/internal/codec"
	"gonum.org/v1/gonum/stat"
)

// SweepConfig describes a multi-trial, multi-bandwidth sweep.
type SweepConfig struct {
	N          int
	Coupling   float64
	FreqSpread float64
	NoiseStd   float64
	Dt         float64

	Mode       codec.Mode
	Bandwidths []int
	Gain       float64

	Trials  int
	BurnIn  int
	Measure int

	BaseSeed int64

	// Workers bounds the number of concurrent trial units; 0 means one
	// per CPU. Seeding is per (BaseSeed, k, trial), so results do not
	// depend on worker count or scheduling order.
	Workers int

	// WithControl runs a gain=0 companion sweep on the same seeds, so a
	// validation sweep always carries its null result.
	WithControl bool
}

func (c SweepConfig) Validate() error {
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
	if c.Gain < 0 {
		return fmt.Errorf("gain must be non-negative, got %f", c.Gain)
	}
	if len(c.Bandwidths) == 0 {
		return fmt.Errorf("sweep needs at least one bandwidth")
	}
	for _, k := range c.Bandwidths {
		if k < 1 || k > codec.MaxBandwidth(c.N) {
			return fmt.Errorf("bandwidth %d out of range [1, %d]", k, codec.MaxBandwidth(c.N))
		}
	}
	if c.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Trials)
	}
	if c.Measure < 1 {
		return fmt.Errorf("measurement steps must be at least 1, got %d", c.Measure)
	}
	if c.BurnIn < 0 {
		return fmt.Errorf("burn-in steps must be non-negative, got %d", c.BurnIn)
	}
	return nil
}

// BandwidthStats aggregates independent trials at one bandwidth value.
type BandwidthStats struct {
	Bandwidth int

	DriverComplexity    float64
	DriverComplexityStd float64

	ResponderComplexity    float64
	ResponderComplexityStd float64

	Coherence float64

	Mismatch    float64
	MismatchStd float64

	Trials int
}

// Check is one automated pass/fail diagnostic attached to a sweep.
type Check struct {
	Name   string
	Pass   bool
	Detail string
}

// SweepResult holds the aggregated rows, the gain=0 control rows when
// requested, and the diagnostics computed from both.
type SweepResult struct {
	Config      SweepConfig
	Rows        []BandwidthStats
	ControlRows []BandwidthStats
	Checks      []Check
	Elapsed     time.Duration
}

// Passed reports whether every diagnostic check passed.
func (r *SweepResult) Passed() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

type trialOutcome struct {
	driverCx    float64
	responderCx float64
	coherence   float64
	mismatch    float64
}

type trialJob struct {
	id      int
	kIndex  int
	trial   int
	control bool
}

// RunSweep runs Trials independent trials per bandwidth, averages them,
// and computes the diagnostics. Trial units fan out over a worker pool;
// each unit seeds its own lattices and codec from (BaseSeed, k, trial),
// so the aggregate is independent of concurrency. Cancellation is
// coarse: pending units stop between trials.
func RunSweep(ctx context.Context, cfg SweepConfig) (*SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	units := len(cfg.Bandwidths) * cfg.Trials
	if cfg.WithControl {
		units *= 2
	}
	jobs := make(chan trialJob, units)

	outcomes := make([][]trialOutcome, len(cfg.Bandwidths))
	controls := make([][]trialOutcome, len(cfg.Bandwidths))
	for i := range cfg.Bandwidths {
		outcomes[i] = make([]trialOutcome, cfg.Trials)
		controls[i] = make([]trialOutcome, cfg.Trials)
	}
	errs := make([]error, units)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > units {
		workers = units
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				out, err := runTrialUnit(ctx, cfg, job)
				if err != nil {
					errs[job.id] = err
					continue
				}
				if job.control {
					controls[job.kIndex][job.trial] = out
				} else {
					outcomes[job.kIndex][job.trial] = out
				}
			}
		}()
	}

	next := 0
	for i := range cfg.Bandwidths {
		for trial := 0; trial < cfg.Trials; trial++ {
			jobs <- trialJob{id: next, kIndex: i, trial: trial}
			next++
			if cfg.WithControl {
				jobs <- trialJob{id: next, kIndex: i, trial: trial, control: true}
				next++
			}
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := &SweepResult{
		Config: cfg,
		Rows:   aggregate(cfg.Bandwidths, outcomes),
	}
	if cfg.WithControl {
		result.ControlRows = aggregate(cfg.Bandwidths, controls)
	}
	result.Checks = diagnose(result)
	result.Elapsed = time.Since(start)
	return result, nil
}

func runTrialUnit(ctx context.Context, cfg SweepConfig, job trialJob) (trialOutcome, error) {
	k := cfg.Bandwidths[job.kIndex]
	seed := trialSeed(cfg.BaseSeed, k, job.trial)

	gain := cfg.Gain
	if job.control {
		gain = 0
	}

	res, err := RunPair(ctx, PairConfig{
		N:             cfg.N,
		Coupling:      cfg.Coupling,
		FreqSpread:    cfg.FreqSpread,
		NoiseStd:      cfg.NoiseStd,
		Dt:            cfg.Dt,
		Mode:          cfg.Mode,
		Bandwidth:     k,
		Gain:          gain,
		DriverSeed:    deriveSeed(seed, 1),
		ResponderSeed: deriveSeed(seed, 2),
		CodecSeed:     deriveSeed(seed, 3),
		BurnIn:        cfg.BurnIn,
		Measure:       cfg.Measure,
	})
	if err != nil {
		return trialOutcome{}, fmt.Errorf("k=%d trial=%d: %w", k, job.trial, err)
	}

	return trialOutcome{
		driverCx:    res.DriverComplexity,
		responderCx: res.ResponderComplexity,
		coherence:   res.Coherence,
		mismatch:    res.Mismatch,
	}, nil
}

func aggregate(bandwidths []int, outcomes [][]trialOutcome) []BandwidthStats {
	rows := make([]BandwidthStats, len(bandwidths))
	for i, k := range bandwidths {
		trials := outcomes[i]
		driver := make([]float64, len(trials))
		responder := make([]float64, len(trials))
		coherence := make([]float64, len(trials))
		mismatch := make([]float64, len(trials))
		for j, out := range trials {
			driver[j] = out.driverCx
			responder[j] = out.responderCx
			coherence[j] = out.coherence
			mismatch[j] = out.mismatch
		}

		rows[i] = BandwidthStats{
			Bandwidth:              k,
			DriverComplexity:       stat.Mean(driver, nil),
			ResponderComplexity:    stat.Mean(responder, nil),
			Coherence:              stat.Mean(coherence, nil),
			Mismatch:               stat.Mean(mismatch, nil),
			Trials:                 len(trials),
		}
		if len(trials) > 1 {
			rows[i].DriverComplexityStd = stat.StdDev(driver, nil)
			rows[i].ResponderComplexityStd = stat.StdDev(responder, nil)
			rows[i].MismatchStd = stat.StdDev(mismatch, nil)
		}
	}
	return rows
}

// trialSeed mixes the sweep seed with the trial coordinates, so every
// (k, trial) unit owns a decorrelated deterministic stream.
func trialSeed(base int64, k, trial int) int64 {
	return deriveSeed(deriveSeed(base, int64(k)), int64(trial))
}

func deriveSeed(parts ...int64) int64 {
	h := uint64(0x9e3779b97f4a7c15)
	for _, p := range parts {
		h ^= uint64(p) + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
		h *= 0xbf58476d1ce4e5b9
	}
	return int64(h >> 1)
}
