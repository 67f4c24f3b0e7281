// Package simulator plays bot tables end to end through the game engine,
// the commit-reveal dealer, the chip ledger and a local chain.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/fairpoker/internal/chain"
	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/dealer"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/store"
)

// PlayerSpec seats one bot.
type PlayerSpec struct {
	Name     string
	Strategy string
	Bankroll chips.Amount
}

// TableSpec is one table and the bots playing at it.
type TableSpec struct {
	Name    string
	Params  game.GameParams
	Players []PlayerSpec
}

// Config holds configuration for running simulations.
type Config struct {
	// Hands per table. Zero plays until the context is cancelled.
	Hands  int
	Tables []TableSpec
	Seed   int64

	Dealer dealer.Config
	Engine game.Config

	// StallRate is the chance that a showdown has one player withhold
	// their reveal, forcing the hand to be voided after the reveal window.
	StallRate float64

	// BlockInterval mines blocks on a timer. Zero mines on demand, which
	// runs as fast as the engine allows.
	BlockInterval time.Duration
	Retention     uint64

	// Pace pauses between actions so observers can follow along.
	Pace time.Duration
	// Timeout bounds a single hand.
	Timeout time.Duration

	// Store defaults to an in-memory store.
	Store     store.Store
	Observers []game.EventSubscriber
	Clock     quartz.Clock
	Logger    *log.Logger
}

// DefaultTable is a 6-max 1/2 table of mixed bots.
func DefaultTable(name string) TableSpec {
	strategies := []string{"call", "random", "maniac", "tight", "fold", "call"}
	spec := TableSpec{
		Name:   name,
		Params: game.GameParams{MaxPlayers: len(strategies), SmallBlind: 1, BigBlind: 2, BuyIn: 200},
	}
	for i, s := range strategies {
		spec.Players = append(spec.Players, PlayerSpec{
			Name:     fmt.Sprintf("%s-%d", s, i),
			Strategy: s,
			Bankroll: 100_000,
		})
	}
	return spec
}

// Simulator runs poker hand simulations.
type Simulator struct {
	config Config
	clock  quartz.Clock
	logger *log.Logger

	chain  *chain.LocalChain
	ledger *chips.Ledger
	dealer *dealer.Dealer
	engine *game.GameEngine
}

// New wires a chain, ledger, dealer and engine for the configured tables.
func New(config Config) *Simulator {
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Dealer == (dealer.Config{}) {
		config.Dealer = dealer.DefaultConfig()
	}
	if config.Engine == (game.Config{}) {
		config.Engine = game.DefaultConfig()
	}
	if config.Retention == 0 {
		config.Retention = chain.DefaultRetention
	}
	if config.Store == nil {
		config.Store = store.NewMemory()
	}

	logger := config.Logger
	c := chain.NewLocalChain(config.Clock, logger,
		chain.WithRetention(config.Retention),
		chain.WithSalt(protocol.Keccak256(protocol.Uint256(uint64(config.Seed)))))
	ledger := chips.NewLedger(logger)
	d := dealer.New(c, config.Store, logger, config.Dealer)

	bus := game.NewEventBus()
	for _, o := range config.Observers {
		bus.Subscribe(o)
	}
	engine := game.NewGameEngine(d, ledger.Account(config.Engine.Escrow), c, config.Store, logger,
		game.WithConfig(config.Engine),
		game.WithEventBus(bus),
		game.WithClock(config.Clock))

	return &Simulator{
		config: config,
		clock:  config.Clock,
		logger: logger.WithPrefix("simulator"),
		chain:  c,
		ledger: ledger,
		dealer: d,
		engine: engine,
	}
}

// Engine exposes the engine the tables play on.
func (s *Simulator) Engine() *game.GameEngine { return s.engine }

// Ledger exposes the chip ledger.
func (s *Simulator) Ledger() *chips.Ledger { return s.ledger }

// Chain exposes the local chain.
func (s *Simulator) Chain() *chain.LocalChain { return s.chain }

// Run plays every table concurrently and returns the combined results.
func (s *Simulator) Run(ctx context.Context) (*Results, error) {
	if len(s.config.Tables) == 0 {
		return nil, fmt.Errorf("no tables configured")
	}
	start := s.clock.Now()

	tables := make([]*table, len(s.config.Tables))
	for i, spec := range s.config.Tables {
		t, err := s.openTable(ctx, i, spec)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", spec.Name, err)
		}
		tables[i] = t
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.config.BlockInterval > 0 {
		producer := s.chain.Start(gctx, s.config.BlockInterval)
		defer func() { _ = producer.Wait() }()
	}
	for _, t := range tables {
		g.Go(func() error {
			if err := t.run(gctx); err != nil {
				return fmt.Errorf("table %s: %w", t.spec.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()

	results := newResults()
	for _, t := range tables {
		results.merge(t.results)
	}
	results.Duration = s.clock.Since(start)

	// Cancellation is how an open-ended run stops.
	if err != nil && !(s.config.Hands == 0 && errors.Is(err, context.Canceled)) {
		return results, err
	}
	return results, nil
}

// advance moves the chain forward: one block on demand, or a pause while
// the block producer catches up.
func (s *Simulator) advance(ctx context.Context) error {
	if s.config.BlockInterval == 0 {
		s.chain.Mine()
		return ctx.Err()
	}
	return s.sleep(ctx, s.config.BlockInterval/4)
}

// waitPast blocks until the chain head is beyond block n.
func (s *Simulator) waitPast(ctx context.Context, n uint64) error {
	for s.chain.Head().Number <= n {
		if s.config.BlockInterval == 0 {
			s.chain.MineN(int(n - s.chain.Head().Number + 1))
			continue
		}
		if err := s.sleep(ctx, s.config.BlockInterval/4); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := s.clock.NewTimer(d, "simulator", "sleep")
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
