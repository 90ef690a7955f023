// Package metrics provides the pure measurement functions shared by the
// experiment runner and the live view. Every consumer reads spectra,
// coherence and mismatch through this package so the conventions (DC
// handling, normalization, mode folding) cannot drift apart.
package metrics

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// powerFloor is the total spectral power below which the entropy
// normalization would divide by nothing; such a spectrum counts as a
// single effective mode.
const powerFloor = 1e-12

// PowerSpectrum returns the folded power of exp(i*phase) over modes
// 0..n/2 of the ring. Mode m >= 1 combines the +m and -m DFT bins; mode
// 0 is the DC bin, included so a fully synchronized field concentrates
// its power in a single entry instead of vanishing from the spectrum.
func PowerSpectrum(field []float64) []float64 {
	n := len(field)
	if n < 2 {
		return nil
	}

	z := make([]complex128, n)
	for j, p := range field {
		z[j] = cmplx.Exp(complex(0, p))
	}
	spectrum := fft.FFT(z)

	power := make([]float64, n/2+1)
	dc := cmplx.Abs(spectrum[0])
	power[0] = dc * dc
	for m := 1; m <= n/2; m++ {
		pos := cmplx.Abs(spectrum[m])
		power[m] = pos * pos
		if neg := n - m; neg != m {
			a := cmplx.Abs(spectrum[neg])
			power[m] += a * a
		}
	}
	return power
}

// SpectralComplexity returns the effective number of contributing
// spatial modes: exp of the Shannon entropy (in nats) of the normalized
// power spectrum. A fully synchronized field scores 1 (all power in
// DC); a field with power spread evenly over every mode approaches
// n/2 + 1.
func SpectralComplexity(field []float64) float64 {
	power := PowerSpectrum(field)
	if len(power) == 0 {
		return 1
	}

	total := 0.0
	for _, p := range power {
		total += p
	}
	if total < powerFloor {
		return 1
	}

	entropy := 0.0
	for _, p := range power {
		if p <= 0 {
			continue
		}
		q := p / total
		entropy -= q * math.Log(q)
	}
	return math.Exp(entropy)
}

// CrossCoherence returns the order parameter of the difference field:
// the magnitude of the mean unit vector of (a_i - b_i). 1 means the two
// fields differ by at most a constant offset; 0 means their differences
// are spread over the whole circle.
func CrossCoherence(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var sumRe, sumIm float64
	for i := range a {
		d := a[i] - b[i]
		sumRe += math.Cos(d)
		sumIm += math.Sin(d)
	}
	n := float64(len(a))
	return math.Hypot(sumRe/n, sumIm/n)
}

// PhaseMismatch returns the mean of |sin((a_i - b_i)/2)|, a smooth
// circular distance in [0, 1] with no wraparound discontinuity.
func PhaseMismatch(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += math.Abs(math.Sin((a[i] - b[i]) / 2))
	}
	return sum / float64(len(a))
}
