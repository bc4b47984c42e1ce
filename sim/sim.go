// Package sim simulates the ledbar hardware so the Thing can run on any
// machine.
package sim

import (
	"fmt"
	"sync"

	"github.com/merliot/ledbar"
)

// ADC sweeps a triangle wave 0..255..0, moving Step counts per read
type ADC struct {
	mu    sync.Mutex
	Step  int
	value int
	dir   int
}

func NewADC(step int) *ADC {
	if step < 1 {
		step = 1
	}
	return &ADC{Step: step, dir: 1}
}

func (a *ADC) Configure(clk, data, cs ledbar.Line) error {
	return nil
}

func (a *ADC) Read() (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.value
	a.value += a.dir * a.Step
	switch {
	case a.value >= 255:
		a.value, a.dir = 255, -1
	case a.value <= 0:
		a.value, a.dir = 0, 1
	}
	return uint8(v), nil
}

// GPIO records the level of each line
type GPIO struct {
	mu      sync.Mutex
	levels  map[ledbar.Line]ledbar.Level
	outputs map[ledbar.Line]bool
}

func NewGPIO() *GPIO {
	return &GPIO{
		levels:  make(map[ledbar.Line]ledbar.Level),
		outputs: make(map[ledbar.Line]bool),
	}
}

func (g *GPIO) Configure(line ledbar.Line, dir ledbar.Direction, initial ledbar.Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outputs[line] = dir == ledbar.Output
	g.levels[line] = initial
	return nil
}

func (g *GPIO) Write(line ledbar.Line, level ledbar.Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.outputs[line] {
		return fmt.Errorf("line %d is not an output", line)
	}
	g.levels[line] = level
	return nil
}

func (g *GPIO) Release(line ledbar.Line) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.outputs, line)
	g.levels[line] = ledbar.Off
	return nil
}

// Bar returns the segments as currently driven on lines
func (g *GPIO) Bar(lines []ledbar.Line) ledbar.Segments {
	g.mu.Lock()
	defer g.mu.Unlock()
	var s ledbar.Segments
	for i, line := range lines {
		if i < len(s) {
			s[i] = bool(g.levels[line])
		}
	}
	return s
}

// Released reports whether no line is left driven as an output
func (g *GPIO) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.outputs) == 0
}
