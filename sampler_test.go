package ledbar

import (
	"bytes"
	"log/slog"
	"testing"

	qt "github.com/frankban/quicktest"
)

func newTestSampler(c *qt.C, adc *fakeADC, gpio *fakeGPIO) (*Sampler, *bytes.Buffer) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	s := NewSampler(adc, gpio, testLines, log)
	c.Assert(s.Init(testPins), qt.IsNil)
	return s, &buf
}

func TestSamplerInit(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{}, newFakeGPIO()
	newTestSampler(c, adc, gpio)
	c.Assert(adc.pins, qt.Equals, testPins)
	c.Assert(gpio.Segments(testLines), qt.Equals, Segments{})
	for _, line := range testLines {
		c.Assert(gpio.configured[line], qt.IsTrue)
	}
	c.Assert(adc.Reads(), qt.Equals, 0)
}

func TestSamplerInitFailure(t *testing.T) {
	c := qt.New(t)
	gpio := newFakeGPIO()
	gpio.failConfig = testLines[3]
	s := NewSampler(&fakeADC{}, gpio, testLines, nil)
	err := s.Init(testPins)
	c.Assert(err, qt.ErrorIs, ErrInit)
	c.Assert(err, qt.ErrorIs, errFake)
	for _, line := range testLines[:3] {
		c.Assert(gpio.Released(line), qt.IsTrue)
	}
	c.Assert(gpio.Released(testLines[4]), qt.IsFalse)

	s = NewSampler(&fakeADC{failConfig: true}, newFakeGPIO(), testLines, nil)
	c.Assert(s.Init(testPins), qt.ErrorIs, ErrInit)
}

func TestSamplerWrongLineCount(t *testing.T) {
	c := qt.New(t)
	c.Assert(func() { NewSampler(&fakeADC{}, newFakeGPIO(), testLines[:9], nil) },
		qt.PanicMatches, `sampler: need 10 lines, got 9`)
}

func TestSamplerIdempotent(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{readings: []uint8{42, 42}}, newFakeGPIO()
	s, buf := newTestSampler(c, adc, gpio)

	r, err := s.Sample()
	c.Assert(err, qt.IsNil)
	c.Assert(r, qt.DeepEquals, &Render{Value: 42, Level: 2, Segments: SegmentsFor(2)})
	c.Assert(gpio.Writes(), qt.Equals, NumSegments)
	logged := buf.Len()

	r, err = s.Sample()
	c.Assert(err, qt.IsNil)
	c.Assert(r, qt.IsNil)
	c.Assert(gpio.Writes(), qt.Equals, NumSegments)
	c.Assert(buf.Len(), qt.Equals, logged)
}

func TestSamplerChangeDetection(t *testing.T) {
	c := qt.New(t)
	readings := []uint8{10, 10, 50, 50, 200}
	adc, gpio := &fakeADC{readings: readings}, newFakeGPIO()
	s, _ := newTestSampler(c, adc, gpio)

	var rendered []int
	for i := range readings {
		r, err := s.Sample()
		c.Assert(err, qt.IsNil)
		if r != nil {
			rendered = append(rendered, i)
			c.Assert(gpio.Segments(testLines), qt.Equals, SegmentsFor(MapLevel(readings[i])))
		}
	}
	c.Assert(rendered, qt.DeepEquals, []int{0, 2, 4})
	c.Assert(gpio.Writes(), qt.Equals, 3*NumSegments)
}

func TestSamplerFirstReadingZero(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{}, newFakeGPIO()
	s, _ := newTestSampler(c, adc, gpio)
	r, err := s.Sample()
	c.Assert(err, qt.IsNil)
	c.Assert(r, qt.Not(qt.IsNil))
	c.Assert(r.Level, qt.Equals, 0)
	c.Assert(gpio.Writes(), qt.Equals, NumSegments)
}

func TestSamplerDiagnostic(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{readings: []uint8{128}}, newFakeGPIO()
	s, buf := newTestSampler(c, adc, gpio)
	_, err := s.Sample()
	c.Assert(err, qt.IsNil)
	c.Assert(buf.String(), qt.Contains, "msg=render value=128 map=5")
}

func TestSamplerReadFailure(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{failRead: true}, newFakeGPIO()
	s, _ := newTestSampler(c, adc, gpio)
	r, err := s.Sample()
	c.Assert(r, qt.IsNil)
	c.Assert(err, qt.ErrorIs, ErrSampleRead)
	c.Assert(gpio.Writes(), qt.Equals, 0)
}

func TestSamplerWriteFailure(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{readings: []uint8{255}}, newFakeGPIO()
	gpio.failWrite = testLines[5]
	s, _ := newTestSampler(c, adc, gpio)
	r, err := s.Sample()
	c.Assert(r, qt.IsNil)
	c.Assert(err, qt.ErrorIs, ErrOutputWrite)
	c.Assert(err, qt.ErrorMatches, `output write failed: line 33: fake hardware failure`)
}

func TestSamplerShutdown(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{readings: []uint8{255}}, newFakeGPIO()
	s, _ := newTestSampler(c, adc, gpio)
	_, err := s.Sample()
	c.Assert(err, qt.IsNil)
	c.Assert(gpio.Segments(testLines).Lit(), qt.Equals, 10)

	c.Assert(s.Shutdown(), qt.IsNil)
	c.Assert(gpio.Segments(testLines), qt.Equals, Segments{})
	for _, line := range testLines {
		c.Assert(gpio.Released(line), qt.IsTrue)
	}
}

func TestSamplerShutdownContinuesOnError(t *testing.T) {
	c := qt.New(t)
	adc, gpio := &fakeADC{}, newFakeGPIO()
	s, _ := newTestSampler(c, adc, gpio)
	gpio.failWrite = testLines[0]
	err := s.Shutdown()
	c.Assert(err, qt.ErrorIs, errFake)
	for _, line := range testLines {
		c.Assert(gpio.Released(line), qt.IsTrue)
	}
}
