package ledbar

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"
)

// ADCPins are the lines the ADC is wired to
type ADCPins struct {
	Clk  Line
	Data Line
	Cs   Line
}

// Render is one rendered change of the bar
type Render struct {
	Value    uint8
	Level    int
	Segments Segments
}

// Sampler reads the ADC and renders the reading on the segment lines.  It
// owns the last rendered reading; only the goroutine calling Sample may touch
// it.
type Sampler struct {
	adc   ADC
	gpio  GPIO
	lines []Line
	prev  int
	log   *slog.Logger
}

// prev before the first sample; never a valid reading
const unread = -1

// NewSampler panics unless lines holds exactly NumSegments lines
func NewSampler(adc ADC, gpio GPIO, lines []Line, log *slog.Logger) *Sampler {
	if len(lines) != NumSegments {
		panic(fmt.Sprintf("sampler: need %d lines, got %d", NumSegments, len(lines)))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		adc:   adc,
		gpio:  gpio,
		lines: append([]Line(nil), lines...),
		prev:  unread,
		log:   log,
	}
}

// Init configures the ADC and every segment line as an output driven Off.
// On failure the lines configured so far are released.
func (s *Sampler) Init(pins ADCPins) error {
	if err := s.adc.Configure(pins.Clk, pins.Data, pins.Cs); err != nil {
		return fmt.Errorf("%w: adc: %w", ErrInit, err)
	}
	for i, line := range s.lines {
		if err := s.gpio.Configure(line, Output, Off); err != nil {
			err = fmt.Errorf("%w: line %d: %w", ErrInit, line, err)
			for _, done := range s.lines[:i] {
				err = multierr.Append(err, s.gpio.Release(done))
			}
			return err
		}
	}
	s.prev = unread
	return nil
}

// Sample reads the ADC once.  If the reading differs from the last rendered
// one the bar is rendered and the Render returned; otherwise Sample does no
// I/O beyond the read and returns nil.
func (s *Sampler) Sample() (*Render, error) {
	value, err := s.adc.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSampleRead, err)
	}
	if int(value) == s.prev {
		return nil, nil
	}
	s.prev = int(value)

	level := MapLevel(value)
	s.log.Info("render", "value", value, "map", level)

	r := &Render{Value: value, Level: level, Segments: SegmentsFor(level)}
	if err := s.write(r.Segments); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Sampler) write(segs Segments) error {
	for i, line := range s.lines {
		if err := s.gpio.Write(line, Level(segs[i])); err != nil {
			return fmt.Errorf("%w: line %d: %w", ErrOutputWrite, line, err)
		}
	}
	return nil
}

// Shutdown turns every segment off and releases every line.  Every line is
// attempted; the errors are combined.
func (s *Sampler) Shutdown() error {
	var err error
	for _, line := range s.lines {
		err = multierr.Append(err, s.gpio.Write(line, Off))
		err = multierr.Append(err, s.gpio.Release(line))
	}
	s.prev = unread
	return err
}
