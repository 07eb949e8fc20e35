package sma

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Fill(t *testing.T) {
	var f Filter
	assert.Equal(t, uint16(10), f.Push(10))
	assert.Equal(t, uint16(15), f.Push(20))
	assert.Equal(t, uint16(20), f.Push(30))
}

func TestFilter_Window(t *testing.T) {
	var f Filter
	for range Taps {
		f.Push(4095)
	}
	// Full-scale input must not overflow the running sum
	assert.Equal(t, uint16(4095), f.Push(4095))

	// Half the window replaced by zeros
	var out uint16
	for range Taps / 2 {
		out = f.Push(0)
	}
	assert.Equal(t, uint16(2047), out)

	for range Taps {
		out = f.Push(100)
	}
	assert.Equal(t, uint16(100), out)
}

func TestFilter_Reset(t *testing.T) {
	var f Filter
	f.Push(1000)
	f.Reset()
	assert.Equal(t, uint16(7), f.Push(7))
}
