package main

import (
	"context"
	"fmt"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/server"
	"github.com/lox/fairpoker/internal/simulator"
	"github.com/lox/fairpoker/internal/store"
)

// tablesFromConfig seats each configured bot at its tables.
func tablesFromConfig(cfg *server.Config) []simulator.TableSpec {
	specs := make([]simulator.TableSpec, 0, len(cfg.Tables))
	for _, table := range cfg.Tables {
		spec := simulator.TableSpec{Name: table.Name, Params: table.Params()}
		for _, bot := range cfg.BotsForTable(table.Name) {
			spec.Players = append(spec.Players, simulator.PlayerSpec{
				Name:     bot.Name,
				Strategy: bot.Strategy,
				Bankroll: chips.Amount(bot.Bankroll),
			})
		}
		specs = append(specs, spec)
	}
	return specs
}

// simulatorConfig maps the engine, dealer and chain blocks.
func simulatorConfig(cfg *server.Config) (simulator.Config, error) {
	dealerCfg, err := cfg.DealerConfig()
	if err != nil {
		return simulator.Config{}, err
	}
	interval, err := cfg.BlockInterval()
	if err != nil {
		return simulator.Config{}, err
	}
	return simulator.Config{
		Tables:        tablesFromConfig(cfg),
		Dealer:        dealerCfg,
		Engine:        cfg.EngineConfig(),
		BlockInterval: interval,
		Retention:     cfg.Chain.Retention,
	}, nil
}

func openStore(ctx context.Context, cfg *server.StoreSettings) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewMemory(), nil
	case "sqlite":
		return store.OpenSQLite(ctx, cfg.Path)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
