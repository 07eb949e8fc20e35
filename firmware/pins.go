//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_RATE_HZ     = 750                       // ADC conversions per second
	SAMPLE_INTERVAL_US = 1_000_000 / SAMPLE_RATE_HZ // 1333 us between conversions

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Hall sensor output on GPIO28 / ADC2
	PIN_HALL = machine.ADC2

	// Serial configuration
	// Format "unix_micros,millivolts\n", e.g. "1234567890123456,1650\n" = ~22 bytes
	// 750 lines/sec * 22 bytes = 16,500 bytes/sec, which needs at least 165,000 baud
	// on a UART. USB CDC ignores the rate; 115200 is kept for the host default.
	UART_BAUD_RATE = 115200
)
