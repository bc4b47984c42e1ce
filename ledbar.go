// Package ledbar renders a potentiometer reading as a bar on a 10-segment
// LED array.
//
// A Ledbar samples an ADC on a fixed period.  When the reading changes it is
// mapped to a segment count and the segment lines are driven so that a
// contiguous prefix of the bar is lit.  Cancelling the context passed to Run
// turns the bar off and releases every line.
package ledbar

import (
	"context"
	"log/slog"
	"time"

	"github.com/merliot/ledbar/dean"
	"go.uber.org/multierr"
)

const Model = "ledbar"

type Ledbar struct {
	dean.Thing
	dean.ThingMsg
	Value    int
	Level    int
	Segments Segments
	Period   time.Duration `json:"-"`
	adcPins  ADCPins
	sampler  *Sampler
	injector *dean.Injector
	log      *slog.Logger
}

// New makes a ledbar from cfg, sampling adc and driving gpio
func New(cfg Config, adc ADC, gpio GPIO, log *slog.Logger) *Ledbar {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("thing", cfg.Id)
	return &Ledbar{
		Thing:   dean.NewThing(cfg.Id, Model, cfg.Name),
		Period:  cfg.Period,
		adcPins: cfg.ADCPins,
		sampler: NewSampler(adc, gpio, cfg.Pins, log),
		log:     log,
	}
}

func (l *Ledbar) getState(msg *dean.Msg) {
	l.Lock()
	l.Path = "state"
	msg.Marshal(l)
	l.Unlock()
	msg.Reply()
}

// update rebroadcasts the Ledbar's own renders.  Updates sent in by peers
// are dropped.
func (l *Ledbar) update(msg *dean.Msg) {
	l.Lock()
	own := l.injector != nil && msg.Src() == dean.Socketer(l.injector)
	l.Unlock()
	if !own {
		l.log.Debug("Dropping update", "src", msg.Src())
		return
	}
	msg.Broadcast()
}

func (l *Ledbar) Subscribers() dean.Subscribers {
	return dean.Subscribers{
		"get/state": l.getState,
		"attached":  l.getState,
		"update":    l.update,
	}
}

// Run initializes the hardware and samples every Period until ctx is done,
// then turns the bar off and releases the lines.  A hardware failure stops
// the loop, releases the lines and is returned.
func (l *Ledbar) Run(ctx context.Context, i *dean.Injector) error {
	l.Lock()
	l.injector = i
	err := l.sampler.Init(l.adcPins)
	l.Unlock()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(l.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("Exiting...")
			if err := l.shutdown(); err != nil {
				l.log.Error("Shutdown", "err", err)
			}
			return nil
		case <-ticker.C:
			if err := l.sample(i); err != nil {
				return multierr.Append(err, l.shutdown())
			}
		}
	}
}

func (l *Ledbar) sample(i *dean.Injector) error {
	var msg dean.Msg

	l.Lock()
	r, err := l.sampler.Sample()
	if r != nil {
		l.Value = int(r.Value)
		l.Level = r.Level
		l.Segments = r.Segments
		l.Path = "update"
		msg.Marshal(l)
	}
	l.Unlock()

	if err != nil {
		return err
	}
	if r != nil && i != nil {
		i.Inject(&msg)
	}
	return nil
}

func (l *Ledbar) shutdown() error {
	l.Lock()
	defer l.Unlock()
	l.Value, l.Level, l.Segments = 0, 0, Segments{}
	return l.sampler.Shutdown()
}
