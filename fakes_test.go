package ledbar

import (
	"errors"
	"sync"
)

var errFake = errors.New("fake hardware failure")

type fakeGPIO struct {
	mu           sync.Mutex
	levels       map[Line]Level
	configured   map[Line]bool
	released     map[Line]bool
	writes       int
	failConfig   Line
	failWrite    Line
	writesBefore int // writes allowed before failWrite triggers
}

func newFakeGPIO() *fakeGPIO {
	return &fakeGPIO{
		levels:     make(map[Line]Level),
		configured: make(map[Line]bool),
		released:   make(map[Line]bool),
		failConfig: -1,
		failWrite:  -1,
	}
}

func (g *fakeGPIO) Configure(line Line, dir Direction, initial Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if line == g.failConfig {
		return errFake
	}
	g.configured[line] = dir == Output
	g.levels[line] = initial
	delete(g.released, line)
	return nil
}

func (g *fakeGPIO) Write(line Line, level Level) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if line == g.failWrite {
		if g.writesBefore == 0 {
			return errFake
		}
		g.writesBefore--
	}
	g.levels[line] = level
	g.writes++
	return nil
}

func (g *fakeGPIO) Release(line Line) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released[line] = true
	g.configured[line] = false
	return nil
}

func (g *fakeGPIO) Writes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes
}

func (g *fakeGPIO) Segments(lines []Line) Segments {
	g.mu.Lock()
	defer g.mu.Unlock()
	var s Segments
	for i, line := range lines {
		s[i] = bool(g.levels[line])
	}
	return s
}

func (g *fakeGPIO) Released(line Line) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released[line]
}

// fakeADC returns readings in order, then repeats the last one (or value if
// readings is empty).
type fakeADC struct {
	mu         sync.Mutex
	readings   []uint8
	value      uint8
	reads      int
	pins       ADCPins
	failRead   bool
	failConfig bool
	step       uint8 // added to value after each read
}

func (a *fakeADC) Configure(clk, data, cs Line) error {
	if a.failConfig {
		return errFake
	}
	a.pins = ADCPins{clk, data, cs}
	return nil
}

func (a *fakeADC) Read() (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reads++
	if a.failRead {
		return 0, errFake
	}
	if len(a.readings) > 0 {
		a.value = a.readings[0]
		a.readings = a.readings[1:]
	}
	v := a.value
	a.value += a.step
	return v, nil
}

func (a *fakeADC) Set(value uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value = value
}

func (a *fakeADC) Reads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reads
}

var testLines = []Line{11, 13, 15, 29, 31, 33, 35, 37, 12, 16}

var testPins = ADCPins{Clk: 19, Data: 26, Cs: 24}
