// Package rpi drives a ledbar from the Raspberry Pi J8 header.  Lines are J8
// (physical) pin numbers, mapped to BCM GPIOs here.
package rpi

import (
	"errors"
	"fmt"
	"time"

	"github.com/merliot/ledbar"
	"github.com/warthog618/gpio"
	"github.com/warthog618/gpio/spi/adc0832"
)

var errNotConfigured = errors.New("line not configured")

// Open maps the GPIO registers.  Call before configuring any line.
func Open() error {
	return gpio.Open()
}

// Close unmaps the GPIO registers
func Close() error {
	return gpio.Close()
}

// GPIO implements ledbar.GPIO on the header pins
type GPIO struct {
	activeLow bool
	pins      map[ledbar.Line]*gpio.Pin
}

// NewGPIO returns the header GPIO.  With activeLow a segment is lit by
// driving its line low.
func NewGPIO(activeLow bool) *GPIO {
	return &GPIO{
		activeLow: activeLow,
		pins:      make(map[ledbar.Line]*gpio.Pin),
	}
}

func physical(level ledbar.Level, activeLow bool) gpio.Level {
	if bool(level) != activeLow {
		return gpio.High
	}
	return gpio.Low
}

func (g *GPIO) Configure(line ledbar.Line, dir ledbar.Direction, initial ledbar.Level) error {
	bcm, err := BCM(int(line))
	if err != nil {
		return err
	}
	pin := gpio.NewPin(uint8(bcm))
	switch dir {
	case ledbar.Output:
		// latch the level first so the line never glitches on
		pin.Write(physical(initial, g.activeLow))
		pin.Output()
	default:
		pin.Input()
	}
	g.pins[line] = pin
	return nil
}

func (g *GPIO) Write(line ledbar.Line, level ledbar.Level) error {
	pin, ok := g.pins[line]
	if !ok {
		return fmt.Errorf("J8 pin %d: %w", line, errNotConfigured)
	}
	pin.Write(physical(level, g.activeLow))
	return nil
}

// Release returns the line to an input
func (g *GPIO) Release(line ledbar.Line) error {
	pin, ok := g.pins[line]
	if !ok {
		return fmt.Errorf("J8 pin %d: %w", line, errNotConfigured)
	}
	pin.Input()
	delete(g.pins, line)
	return nil
}

// ADC implements ledbar.ADC with an ADC0832.  DI and DO are tied to the
// data line.
type ADC struct {
	Tclk    time.Duration
	Tset    time.Duration
	Channel int
	adc     *adc0832.ADC0832
}

func NewADC() *ADC {
	return &ADC{
		Tclk: 2500 * time.Nanosecond,
		Tset: 2500 * time.Nanosecond,
	}
}

func (a *ADC) Configure(clk, data, cs ledbar.Line) error {
	var bcm [3]int
	for i, line := range []ledbar.Line{clk, data, cs} {
		n, err := BCM(int(line))
		if err != nil {
			return err
		}
		bcm[i] = n
	}
	tset := a.Tset
	if tset < a.Tclk {
		tset = a.Tclk
	}
	a.adc = adc0832.New(a.Tclk, tset, uint8(bcm[0]), uint8(bcm[2]), uint8(bcm[1]), uint8(bcm[1]))
	return nil
}

func (a *ADC) Read() (uint8, error) {
	if a.adc == nil {
		return 0, fmt.Errorf("adc0832: %w", errNotConfigured)
	}
	return a.adc.Read(a.Channel), nil
}

func (a *ADC) Close() {
	if a.adc != nil {
		a.adc.Close()
		a.adc = nil
	}
}
