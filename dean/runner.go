package dean

import (
	"context"
	"log/slog"
)

// Runner runs a Thinger on a private bus, with no network
type Runner struct {
	thinger  Thinger
	bus      *Bus
	injector *Injector
}

func NewRunner(thinger Thinger) *Runner {
	var r Runner

	r.thinger = thinger

	r.bus = NewBus("runner bus", nil, nil)
	r.bus.Handle("", dispatch(thinger))
	r.injector = NewInjector("runner injector", r.bus)

	return &r
}

// Run the thinger until ctx is done or the thinger fails
func (r *Runner) Run(ctx context.Context) error {
	return r.thinger.Run(ctx, r.injector)
}

// dispatch routes a msg to the thinger's subscriber for the msg Path
func dispatch(thinger Thinger) func(*Msg) {
	return func(msg *Msg) {
		path := msg.Path()
		if handler, ok := thinger.Subscribers()[path]; ok {
			handler(msg)
			return
		}
		slog.Debug("No subscriber", "thing", thinger.Id(), "path", path)
	}
}
