//go:build tinygo

//go:generate tinygo flash -target=pico

package main

import (
	"machine"
	"time"

	"github.com/itohio/gohall/firmware/sma"
)

var (
	adcHall machine.ADC
	filter  sma.Filter
)

func main() {
	machine.InitADC()

	PIN_HALL.Configure(machine.PinConfig{Mode: machine.PinInput})
	adcHall = machine.ADC{Pin: PIN_HALL}
	adcHall.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	machine.Serial.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	// Greeting; the host discards lines it cannot parse
	println("hall sensor ready")

	interval := time.Duration(SAMPLE_INTERVAL_US) * time.Microsecond
	next := time.Now()
	for {
		next = next.Add(interval)

		// machine.ADC.Get scales to 16 bits; keep the 12-bit code
		code := adcHall.Get() >> 4
		avg := filter.Push(code)
		mv := uint32(avg) * ADC_REFERENCE_MV / (1 << ADC_RESOLUTION)

		print(time.Now().UnixMicro())
		print(",")
		print(mv)
		print("\n")

		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		} else {
			// Fell behind; resynchronize instead of bursting
			next = time.Now()
		}
	}
}
