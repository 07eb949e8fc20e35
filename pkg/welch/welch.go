// Package welch estimates one-sided power spectral densities with Welch's
// averaged, Hann-windowed periodogram method.
package welch

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Spectrum is a one-sided power spectral density estimate.
// Frequencies and Power always have the same length.
type Spectrum struct {
	Frequencies []float64 // Hz, ascending
	Power       []float64 // units^2/Hz
}

// Empty reports whether the spectrum carries no estimate.
func (s Spectrum) Empty() bool { return len(s.Frequencies) == 0 }

// Len returns the number of bins.
func (s Spectrum) Len() int { return len(s.Frequencies) }

// SegmentLength picks an even segment length no longer than maxSegment
// for a window of windowSize samples.
func SegmentLength(windowSize, maxSegment int) int {
	return min(maxSegment, (windowSize/2)*2)
}

// Estimate computes the Welch PSD of x sampled at fs using Hann-windowed
// segments of segmentLen samples overlapping by the given fraction.
//
// It returns an empty Spectrum when x is shorter than one segment or the
// parameters leave no forward step. Identical inputs yield bit-identical output.
func Estimate(x []float64, fs float64, segmentLen int, overlap float64) Spectrum {
	var e Estimator
	return e.Estimate(x, fs, segmentLen, overlap)
}

// Estimator is Estimate with the window and FFT plan kept between calls
// of the same segment length. The zero value is ready to use; it is not
// safe for concurrent use.
type Estimator struct {
	n      int
	window []float64
	u      float64 // sum of squared window coefficients
	fft    *fourier.FFT

	seg    []float64
	coeffs []complex128
	re, im []float64
	power  []float64
}

// Estimate behaves like the package-level Estimate.
func (e *Estimator) Estimate(x []float64, fs float64, segmentLen int, overlap float64) Spectrum {
	acc, ok := e.average(x, fs, segmentLen, overlap)
	if !ok {
		return Spectrum{}
	}

	// One-sided correction: DC and (for even lengths) Nyquist are not folded.
	acc[0] /= 2
	if segmentLen%2 == 0 {
		acc[len(acc)-1] /= 2
	}

	freqs := make([]float64, len(acc))
	for k := range freqs {
		freqs[k] = float64(k) * fs / float64(segmentLen)
	}

	return Spectrum{Frequencies: freqs, Power: acc}
}

// average returns the segment-averaged one-sided periodogram before the
// DC/Nyquist correction.
func (e *Estimator) average(x []float64, fs float64, segmentLen int, overlap float64) ([]float64, bool) {
	if segmentLen <= 0 || !(fs > 0) {
		return nil, false
	}
	step := int(math.Floor(float64(segmentLen) * (1 - overlap)))
	if len(x) < segmentLen || step <= 0 {
		return nil, false
	}

	e.plan(segmentLen)

	bins := segmentLen/2 + 1
	acc := make([]float64, bins)
	norm := fs * e.u

	count := 0
	for start := 0; start+segmentLen <= len(x); start += step {
		chunk := x[start : start+segmentLen]

		var sum float64
		for _, v := range chunk {
			sum += v
		}
		mean := sum / float64(segmentLen)
		for i, v := range chunk {
			e.seg[i] = v - mean
		}
		vecmath.MulBlockInPlace(e.seg, e.window)

		e.coeffs = e.fft.Coefficients(e.coeffs, e.seg)
		for k, c := range e.coeffs {
			e.re[k] = real(c)
			e.im[k] = imag(c)
		}
		vecmath.Power(e.power, e.re, e.im)
		for k := range e.power {
			e.power[k] = e.power[k] / norm * 2.0
		}
		vecmath.AddBlockInPlace(acc, e.power)
		count++
	}

	if count == 0 {
		return nil, false
	}

	for k := range acc {
		acc[k] /= float64(count)
	}
	return acc, true
}

func (e *Estimator) plan(n int) {
	if e.n == n && e.fft != nil {
		return
	}

	e.n = n
	e.window = hann(n)
	e.u = 0
	for _, w := range e.window {
		e.u += w * w
	}
	e.fft = fourier.NewFFT(n)

	bins := n/2 + 1
	e.seg = make([]float64, n)
	e.coeffs = make([]complex128, bins)
	e.re = make([]float64, bins)
	e.im = make([]float64, bins)
	e.power = make([]float64, bins)
}

// hann returns the symmetric Hann window of length n.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	if n == 1 {
		return w
	}
	return window.Hann(w)
}
