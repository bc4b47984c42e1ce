package ledbar

// Line identifies a physical GPIO line.  How the number maps to hardware is
// up to the GPIO and ADC collaborators.
type Line int

// Level is a logical output level.  The physical voltage for On is fixed by
// the wiring; the reference board is active-low.
type Level bool

const (
	Off Level = false
	On  Level = true
)

func (l Level) String() string {
	if l {
		return "on"
	}
	return "off"
}

type Direction int

const (
	Input Direction = iota
	Output
)

// GPIO drives the segment lines
type GPIO interface {
	// Configure line with direction, driving initial if line is an output
	Configure(line Line, dir Direction, initial Level) error
	Write(line Line, level Level) error
	// Release returns line to its default, non-driven state
	Release(line Line) error
}

// ADC reads the potentiometer
type ADC interface {
	Configure(clk, data, cs Line) error
	// Read returns the current 8-bit reading
	Read() (uint8, error)
}
