package lattice

import (
	"fmt"
	"math"
	"math/rand"
)

// BaseFrequency is the mean natural frequency of every ring. A zero-mean
// ensemble makes the difference-field metrics degenerate, so the mean is
// fixed away from zero.
const BaseFrequency = 1.0

// Ring is a fixed-size ring of coupled phase oscillators. Each node
// interacts only with its two circular neighbors. All randomness flows
// through the ring's own seeded source, so identical seeds and identical
// call sequences produce bit-identical trajectories.
type Ring struct {
	n        int
	phases   []float64
	freqs    []float64
	coupling float64
	noiseStd float64
	dt       float64
	seed     int64
	rng      *rand.Rand
	scratch  []float64
}

// New creates a ring of n oscillators. Phases are drawn uniformly over
// the circle and natural frequencies uniformly from a symmetric spread
// around BaseFrequency, both from the given seed.
func New(n int, coupling, freqSpread, noiseStd, dt float64, seed int64) (*Ring, error) {
	if n < 3 {
		return nil, fmt.Errorf("ring needs at least 3 oscillators, got %d", n)
	}
	if coupling < 0 {
		return nil, fmt.Errorf("coupling must be non-negative, got %f", coupling)
	}
	if freqSpread < 0 {
		return nil, fmt.Errorf("frequency spread must be non-negative, got %f", freqSpread)
	}
	if noiseStd < 0 {
		return nil, fmt.Errorf("noise std must be non-negative, got %f", noiseStd)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", dt)
	}

	rng := rand.New(rand.NewSource(seed))
	r := &Ring{
		n:        n,
		phases:   make([]float64, n),
		freqs:    make([]float64, n),
		coupling: coupling,
		noiseStd: noiseStd,
		dt:       dt,
		seed:     seed,
		rng:      rng,
		scratch:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		r.phases[i] = rng.Float64()*2*math.Pi - math.Pi
		r.freqs[i] = BaseFrequency + freqSpread*(rng.Float64()*2-1)
	}
	return r, nil
}

// Step advances every oscillator by one timestep. forcing may be nil; if
// supplied it must have length N and is added verbatim to each node's
// velocity. The update is atomic: on invalid input no phase changes.
func (r *Ring) Step(forcing []float64) error {
	if forcing != nil && len(forcing) != r.n {
		return fmt.Errorf("forcing length %d does not match ring size %d", len(forcing), r.n)
	}

	noiseAmp := r.noiseStd * math.Sqrt(r.dt)
	for i := 0; i < r.n; i++ {
		left := r.phases[(i+r.n-1)%r.n]
		right := r.phases[(i+1)%r.n]
		v := r.freqs[i] + r.coupling/2*(math.Sin(left-r.phases[i])+math.Sin(right-r.phases[i]))
		if forcing != nil {
			v += forcing[i]
		}
		if r.noiseStd > 0 {
			v += noiseAmp * r.rng.NormFloat64()
		}
		r.scratch[i] = v
	}
	for i := 0; i < r.n; i++ {
		r.phases[i] = Wrap(r.phases[i] + r.scratch[i]*r.dt)
	}
	return nil
}

// Wrap maps an angle into the canonical interval (-pi, pi].
func Wrap(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}
	for p <= -math.Pi {
		p += 2 * math.Pi
	}
	return p
}

// Phases returns the live phase field. Callers must treat it as
// read-only; use Field for an independent copy.
func (r *Ring) Phases() []float64 { return r.phases }

// Field returns a copy of the current phase field.
func (r *Ring) Field() []float64 {
	f := make([]float64, r.n)
	copy(f, r.phases)
	return f
}

// Frequencies returns the natural frequencies assigned at creation.
func (r *Ring) Frequencies() []float64 { return r.freqs }

func (r *Ring) N() int            { return r.n }
func (r *Ring) Dt() float64       { return r.dt }
func (r *Ring) Seed() int64       { return r.seed }
func (r *Ring) Coupling() float64 { return r.coupling }
func (r *Ring) NoiseStd() float64 { return r.noiseStd }

// SetCoupling adjusts the coupling strength without rebuilding the ring.
func (r *Ring) SetCoupling(k float64) error {
	if k < 0 {
		return fmt.Errorf("coupling must be non-negative, got %f", k)
	}
	r.coupling = k
	return nil
}

// SetNoiseStd adjusts the noise level without rebuilding the ring.
func (r *Ring) SetNoiseStd(std float64) error {
	if std < 0 {
		return fmt.Errorf("noise std must be non-negative, got %f", std)
	}
	r.noiseStd = std
	return nil
}

// Params reports the tunable parameters, in the same shape the live view
// uses for every adjustable component.
func (r *Ring) Params() map[string]float64 {
	return map[string]float64{
		"coupling": r.coupling,
		"noise":    r.noiseStd,
	}
}
