// Package sma is a fixed-length simple moving average over 12-bit ADC codes.
package sma

// Taps is the filter length.
const Taps = 64

// Filter averages the last Taps pushed values. The zero value is ready to use.
type Filter struct {
	buf    [Taps]uint16
	sum    uint32
	i      int
	filled int
}

// Push adds v and returns the mean of the values seen so far, up to Taps of them.
func (f *Filter) Push(v uint16) uint16 {
	if f.filled == Taps {
		f.sum -= uint32(f.buf[f.i])
	} else {
		f.filled++
	}

	f.buf[f.i] = v
	f.sum += uint32(v)
	f.i = (f.i + 1) % Taps

	return uint16(f.sum / uint32(f.filled))
}

// Reset clears the filter.
func (f *Filter) Reset() {
	*f = Filter{}
}
