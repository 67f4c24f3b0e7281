package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// Logger builds the stderr logger. The --log-level flag wins over fallback.
func (g *Globals) Logger(fallback string) (*log.Logger, error) {
	name := g.LogLevel
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = "info"
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	}), nil
}

// signalContext is cancelled on interrupt or SIGTERM.
func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Received signal, shutting down gracefully", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// seedOrNow returns the given seed, or one from the clock.
func seedOrNow(seed *int64, logger *log.Logger) int64 {
	if seed != nil {
		logger.Info("Using deterministic seed", "seed", *seed)
		return *seed
	}
	s := time.Now().UnixNano()
	logger.Info("Using random seed", "seed", s)
	return s
}
