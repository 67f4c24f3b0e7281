package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/fairpoker/internal/server"
	"github.com/lox/fairpoker/internal/simulator"
)

// ServeCmd runs the configured tables with bots and publishes every event
// on the WebSocket feed.
type ServeCmd struct {
	Config string        `short:"c" default:"fairpoker.hcl" help:"Path to HCL configuration file"`
	Addr   string        `short:"a" help:"Feed address to bind to (overrides config)"`
	Hands  int           `default:"0" help:"Hands per table, 0 runs until interrupted"`
	Pace   time.Duration `default:"250ms" help:"Pause between actions so observers can follow"`
	Seed   *int64        `help:"Deterministic RNG seed (optional)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Addr, err)
		}
		cfg.Server.Address = host
		if cfg.Server.Port, err = strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid port in %q: %w", c.Addr, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := g.Logger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	simCfg, err := simulatorConfig(cfg)
	if err != nil {
		return err
	}
	feed := server.NewServer(cfg.ListenAddress(), logger)
	simCfg.Hands = c.Hands
	simCfg.Pace = c.Pace
	simCfg.Seed = seedOrNow(c.Seed, logger)
	simCfg.Store = st
	simCfg.Observers = append(simCfg.Observers, feed)
	if cfg.History.Dir != "" {
		recorder, err := historyRecorder(cfg.History.Dir, logger)
		if err != nil {
			return err
		}
		simCfg.Observers = append(simCfg.Observers, recorder)
	}
	simCfg.Logger = logger
	sim := simulator.New(simCfg)

	logger.Info("Starting fairpoker server",
		"addr", cfg.ListenAddress(),
		"tables", len(cfg.Tables),
		"bots", len(cfg.Bots),
		"store", cfg.Store.Driver,
		"board", cfg.Dealer.Board,
		"block_interval", simCfg.BlockInterval)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := feed.Start(); err != nil {
			return fmt.Errorf("event feed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return feed.Stop()
	})
	eg.Go(func() error {
		defer cancel()
		results, err := sim.Run(gctx)
		if results != nil {
			logger.Info("Tables closed",
				"hands", results.Hands,
				"showdowns", results.Showdowns,
				"voided", results.Voided,
				"duration", results.Duration.Round(time.Millisecond))
		}
		if err != nil && gctx.Err() != nil && c.Hands > 0 {
			// Interrupted before the requested hands were played.
			return nil
		}
		return err
	})
	return eg.Wait()
}
