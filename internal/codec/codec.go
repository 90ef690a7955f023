package codec

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Mode selects how a phase field is compressed into a low-dimensional
// code.
type Mode string

const (
	// ModeFourier keeps the lowest spatial frequencies of the field.
	ModeFourier Mode = "fourier"
	// ModeRandom projects the field onto fixed random directions. It
	// deliberately destroys spatial structure and serves as the control
	// against the low-pass codec.
	ModeRandom Mode = "random"
)

// ParseMode validates a codec mode name from external configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFourier, ModeRandom:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown codec mode: %q", s)
	}
}

// MaxBandwidth is the largest usable bandwidth for a field of n samples.
func MaxBandwidth(n int) int { return n / 2 }

// ClampBandwidth pulls an externally supplied bandwidth into the valid
// range [1, n/2]. Only configuration boundaries may clamp; internal call
// sites with an out-of-range k are programmer errors and fail instead.
func ClampBandwidth(k, n int) int {
	if k < 1 {
		return 1
	}
	if max := MaxBandwidth(n); k > max {
		return max
	}
	return k
}

type projKey struct {
	n, k int
}

// Codec compresses phase fields into k coefficients and reconstructs
// approximate fields from them. Each instance owns its random-projection
// cache, keyed by (n, k) under the instance seed; matrices are built
// once and read-only afterwards, so a codec is safe for concurrent use.
type Codec struct {
	seed int64

	mu          sync.RWMutex
	projections map[projKey][][]float64
}

// New creates a codec whose random projections derive from seed.
func New(seed int64) *Codec {
	return &Codec{
		seed:        seed,
		projections: make(map[projKey][][]float64),
	}
}

func (c *Codec) Seed() int64 { return c.seed }

func checkBandwidth(k, n int) error {
	if k < 1 || k > MaxBandwidth(n) {
		return fmt.Errorf("bandwidth %d out of range [1, %d] for field of %d samples", k, MaxBandwidth(n), n)
	}
	return nil
}

// EncodeFourier returns the k lowest-frequency DFT coefficients of the
// phase field. The field is real, so its spectrum is conjugate
// symmetric and bins 0..k-1 carry everything the retained frequencies
// hold. At full bandwidth on an even-sized ring the Nyquist bin is real
// like DC and rides in the imaginary slot of the first coefficient, so
// the round trip is exact.
func (c *Codec) EncodeFourier(field []float64, k int) ([]complex128, error) {
	n := len(field)
	if err := checkBandwidth(k, n); err != nil {
		return nil, err
	}

	spectrum := fft.FFTReal(field)
	coeffs := make([]complex128, k)
	copy(coeffs, spectrum[:k])
	if n%2 == 0 && k == n/2 {
		coeffs[0] = complex(real(spectrum[0]), real(spectrum[n/2]))
	}
	return coeffs, nil
}

// DecodeFourier reconstructs a phase field of length n from retained
// coefficients, treating every unretained mode as zero. This is the
// least-squares-best reconstruction given those modes.
func (c *Codec) DecodeFourier(coeffs []complex128, n int) ([]float64, error) {
	k := len(coeffs)
	if err := checkBandwidth(k, n); err != nil {
		return nil, err
	}

	spectrum := make([]complex128, n)
	spectrum[0] = complex(real(coeffs[0]), 0)
	for i := 1; i < k; i++ {
		spectrum[i] = coeffs[i]
		spectrum[n-i] = cmplx.Conj(coeffs[i])
	}
	if n%2 == 0 && k == n/2 {
		spectrum[n/2] = complex(imag(coeffs[0]), 0)
	}
	z := fft.IFFT(spectrum)

	field := make([]float64, n)
	for j, v := range z {
		field[j] = wrap(real(v))
	}
	return field, nil
}

// EncodeRandom projects the phase field onto k fixed unit-norm random
// directions derived from the codec seed.
func (c *Codec) EncodeRandom(field []float64, k int) ([]float64, error) {
	n := len(field)
	if err := checkBandwidth(k, n); err != nil {
		return nil, err
	}

	proj := c.projection(n, k)
	coeffs := make([]float64, k)
	for i, row := range proj {
		coeffs[i] = floats.Dot(row, field)
	}
	return coeffs, nil
}

// DecodeRandom maps random-projection coefficients back to a field of
// length n through the transpose of the same projection.
func (c *Codec) DecodeRandom(coeffs []float64, n int) ([]float64, error) {
	k := len(coeffs)
	if err := checkBandwidth(k, n); err != nil {
		return nil, err
	}

	proj := c.projection(n, k)
	field := make([]float64, n)
	for i, row := range proj {
		floats.AddScaled(field, coeffs[i], row)
	}
	for j := range field {
		field[j] = wrap(field[j])
	}
	return field, nil
}

// projection returns the cached (n, k) matrix, building it on first use.
func (c *Codec) projection(n, k int) [][]float64 {
	key := projKey{n: n, k: k}

	c.mu.RLock()
	proj, ok := c.projections[key]
	c.mu.RUnlock()
	if ok {
		return proj
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if proj, ok := c.projections[key]; ok {
		return proj
	}

	rng := rand.New(rand.NewSource(mixSeed(c.seed, int64(n), int64(k))))
	proj = make([][]float64, k)
	for i := range proj {
		row := make([]float64, n)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		norm := floats.Norm(row, 2)
		if norm > 0 {
			floats.Scale(1/norm, row)
		}
		proj[i] = row
	}
	c.projections[key] = proj
	return proj
}

func wrap(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}
	for p <= -math.Pi {
		p += 2 * math.Pi
	}
	return p
}

// mixSeed folds the parts into a single deterministic seed.
func mixSeed(parts ...int64) int64 {
	h := uint64(0x9e3779b97f4a7c15)
	for _, p := range parts {
		h ^= uint64(p) + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
		h *= 0xbf58476d1ce4e5b9
	}
	return int64(h >> 1)
}
