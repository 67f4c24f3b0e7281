package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fairpoker.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8080", cfg.ListenAddress())
	assert.Equal(t, "memory", cfg.Store.Driver)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, uint64(200), cfg.Tables[0].BuyIn)
	assert.Len(t, cfg.BotsForTable("main"), 3)
	assert.Equal(t, "per_participant", cfg.Dealer.Board)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  port      = 9090
  log_level = "debug"
}

engine {
  escrow        = "house"
  reveal_window = 12
}

dealer {
  lock_distance     = 3
  board             = "shared"
  cross_check_board = true
}

chain {
  block_interval = "250ms"
  retention      = 64
}

store {
  driver = "sqlite"
}

hand_history {
  dir = "hands"
}

table "high" {
  max_players = 2
  small_blind = 50
  big_blind   = 100
  buy_in      = 5000
}

table "low" {
  small_blind = 1
  big_blind   = 2
  auto_deal   = true
}

bot "alice" {
  strategy = "maniac"
  tables   = ["low"]
}

bot "bob" {}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:9090", cfg.ListenAddress())
	assert.Equal(t, "fairpoker.db", cfg.Store.Path)
	assert.Equal(t, "hands", cfg.History.Dir)

	interval, err := cfg.BlockInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, interval)

	dc, err := cfg.DealerConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), dc.LockDistance)
	assert.Equal(t, fairdeck.Shared, dc.Board)
	assert.True(t, dc.CrossCheckBoard)

	ec := cfg.EngineConfig()
	assert.Equal(t, protocol.Address("house"), ec.Escrow)
	assert.Equal(t, uint64(12), ec.RevealWindow)

	high, ok := cfg.Table("high")
	require.True(t, ok)
	params := high.Params()
	assert.Equal(t, 2, params.MaxPlayers)
	assert.Equal(t, chips.Amount(5000), params.BuyIn)
	assert.False(t, params.AutoDeal)

	low, ok := cfg.Table("low")
	require.True(t, ok)
	assert.Equal(t, 6, low.MaxPlayers)
	assert.Equal(t, uint64(200), low.BuyIn)
	assert.True(t, low.AutoDeal)

	_, ok = cfg.Table("missing")
	assert.False(t, ok)

	require.Len(t, cfg.BotsForTable("low"), 2)
	high2 := cfg.BotsForTable("high")
	require.Len(t, high2, 1)
	assert.Equal(t, "bob", high2[0].Name)
	assert.Equal(t, "call", high2[0].Strategy)
	assert.Equal(t, uint64(100000), high2[0].Bankroll)
}

func TestLoadConfigParseError(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `table "x" {`))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, `table "x" { small_blind = "lots" big_blind = 2 }`))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"log level", func(c *Config) { c.Server.LogLevel = "loud" }, "log_level"},
		{"board", func(c *Config) { c.Dealer.Board = "sideways" }, "dealer"},
		{"interval", func(c *Config) { c.Chain.BlockInterval = "soon" }, "block_interval"},
		{"negative interval", func(c *Config) { c.Chain.BlockInterval = "-1s" }, "block_interval"},
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }, "unknown driver"},
		{"no tables", func(c *Config) { c.Tables = nil; c.Bots = nil }, "at least one table"},
		{"duplicate table", func(c *Config) { c.Tables = append(c.Tables, c.Tables[0]) }, "defined twice"},
		{"zero blind", func(c *Config) { c.Tables[0].SmallBlind = 0 }, "small blind"},
		{"blind ratio", func(c *Config) { c.Tables[0].BigBlind = 3 }, "twice"},
		{"too few seats", func(c *Config) { c.Tables[0].MaxPlayers = 1 }, "max players"},
		{"short buy-in", func(c *Config) { c.Tables[0].BuyIn = 1 }, "buy-in"},
		{"strategy", func(c *Config) { c.Bots[0].Strategy = "psychic" }, "invalid strategy"},
		{"bot table", func(c *Config) { c.Bots[0].Tables = []string{"nowhere"} }, "unknown table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
