// Command ledbar runs the ledbar Thing on simulated hardware.  The ADC sweeps
// up and down; watch the render log, the state page or the websocket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/merliot/ledbar"
	"github.com/merliot/ledbar/dean"
	"github.com/merliot/ledbar/sim"
)

func main() {
	cfg, err := ledbar.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledbar: %s\n", err)
		os.Exit(1)
	}

	log := dean.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	gpio := sim.NewGPIO()
	bar := ledbar.New(cfg, sim.NewADC(1), gpio, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = ledbar.NewServer(bar, cfg).Run(ctx)
	stop()

	log.Info("Bar", "segments", gpio.Bar(cfg.Pins).String(), "released", gpio.Released())
	if err != nil {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}
}
