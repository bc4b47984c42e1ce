// Command ledbar-rpi shows a potentiometer, read through an ADC0832, on a
// 10-segment LED bar wired to the Raspberry Pi J8 header.  Settings come from
// LEDBAR_* environment variables.  Ctrl-C turns the bar off and exits.
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
	"github.com/merliot/ledbar/rpi"
)

func main() {
	cfg, err := ledbar.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledbar-rpi: %s\n", err)
		os.Exit(1)
	}

	log := dean.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	if err := rpi.Open(); err != nil {
		log.Error("Opening GPIO", "err", err)
		os.Exit(1)
	}

	adc := rpi.NewADC()
	bar := ledbar.New(cfg, adc, rpi.NewGPIO(cfg.ActiveLow), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = ledbar.NewServer(bar, cfg).Run(ctx)
	stop()

	adc.Close()
	if cerr := rpi.Close(); cerr != nil {
		log.Error("Closing GPIO", "err", cerr)
	}
	if err != nil {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}
}
