package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coder/quartz"

	"github.com/lox/fairpoker/internal/dealer"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/server"
	"github.com/lox/fairpoker/internal/simulator"
	"github.com/lox/fairpoker/internal/store"
)

// SimulateCmd plays hands on demand-mined blocks and prints a summary.
type SimulateCmd struct {
	Hands        int     `short:"n" default:"1000" help:"Hands to play per table"`
	Tables       int     `short:"t" default:"1" help:"Number of mixed 6-max tables"`
	Config       string  `short:"c" help:"Take tables and bots from an HCL config instead"`
	Seed         *int64  `help:"Deterministic RNG seed (optional)"`
	Board        string  `default:"per_participant" enum:"per_participant,shared" help:"Board derivation: per_participant or shared"`
	CrossCheck   bool    `help:"Reject board submissions that differ from the first"`
	LockDistance uint64  `default:"1" help:"Blocks between anchoring a session and capturing entropy"`
	RevealWindow uint64  `default:"64" help:"Blocks allowed for reveals after betting closes"`
	StallRate    float64 `default:"0" help:"Chance a showdown has one player withhold their reveal"`
	DB           string  `help:"SQLite database to record games in (default: memory)"`
	HandHistory  string  `help:"Write a PHH file per hand into this directory"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	logger, err := g.Logger("warn")
	if err != nil {
		return err
	}
	if c.Hands <= 0 {
		return fmt.Errorf("hands must be positive")
	}
	if c.StallRate < 0 || c.StallRate > 1 {
		return fmt.Errorf("stall rate must be between 0 and 1")
	}

	board, err := fairdeck.ParseDerivation(c.Board)
	if err != nil {
		return err
	}
	cfg := simulator.Config{
		Hands:     c.Hands,
		Seed:      seedOrNow(c.Seed, logger),
		StallRate: c.StallRate,
		Dealer: dealer.Config{
			MinParticipants: dealer.DefaultConfig().MinParticipants,
			LockDistance:    c.LockDistance,
			Board:           board,
			CrossCheckBoard: c.CrossCheck,
		},
		Engine: game.Config{Escrow: game.DefaultConfig().Escrow, RevealWindow: c.RevealWindow},
		Clock:  quartz.NewReal(),
		Logger: logger,
	}

	if c.Config != "" {
		fileCfg, err := server.LoadConfig(c.Config)
		if err != nil {
			return err
		}
		if err := fileCfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg.Tables = tablesFromConfig(fileCfg)
	} else {
		for i := 0; i < max(c.Tables, 1); i++ {
			cfg.Tables = append(cfg.Tables, simulator.DefaultTable(fmt.Sprintf("table%d", i+1)))
		}
	}

	if c.HandHistory != "" {
		recorder, err := historyRecorder(c.HandHistory, logger)
		if err != nil {
			return err
		}
		cfg.Observers = append(cfg.Observers, recorder)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	if c.DB != "" {
		db, err := store.OpenSQLite(ctx, c.DB)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		cfg.Store = db
	}

	results, err := simulator.New(cfg).Run(ctx)
	if results != nil {
		simulator.PrintSummary(os.Stdout, results)
	}
	if err != nil && ctx.Err() == context.Canceled {
		return nil
	}
	return err
}
