package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/dealer"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/protocol"
)

// Config is the complete fairpoker configuration file.
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Engine  *EngineSettings  `hcl:"engine,block"`
	Dealer  *DealerSettings  `hcl:"dealer,block"`
	Chain   *ChainSettings   `hcl:"chain,block"`
	Store   *StoreSettings   `hcl:"store,block"`
	History *HistorySettings `hcl:"hand_history,block"`
	Tables  []TableConfig    `hcl:"table,block"`
	Bots    []BotConfig      `hcl:"bot,block"`
}

// ServerSettings configures the event feed listener.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

type EngineSettings struct {
	Escrow       string `hcl:"escrow,optional"`
	RevealWindow uint64 `hcl:"reveal_window,optional"`
}

type DealerSettings struct {
	LockDistance    uint64 `hcl:"lock_distance,optional"`
	Board           string `hcl:"board,optional"`
	CrossCheckBoard bool   `hcl:"cross_check_board,optional"`
}

// ChainSettings configures the local block source.
type ChainSettings struct {
	BlockInterval string `hcl:"block_interval,optional"`
	Retention     uint64 `hcl:"retention,optional"`
}

// StoreSettings picks where games and sessions are kept. Driver is
// "memory" or "sqlite".
type StoreSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// HistorySettings names the directory PHH files are written to. Empty
// disables hand histories.
type HistorySettings struct {
	Dir string `hcl:"dir,optional"`
}

// TableConfig defines a table to open at startup.
type TableConfig struct {
	Name       string `hcl:"name,label"`
	MaxPlayers int    `hcl:"max_players,optional"`
	SmallBlind uint64 `hcl:"small_blind"`
	BigBlind   uint64 `hcl:"big_blind"`
	BuyIn      uint64 `hcl:"buy_in,optional"`
	AutoDeal   bool   `hcl:"auto_deal,optional"`
}

// BotConfig seats a simulated player.
type BotConfig struct {
	Name     string   `hcl:"name,label"`
	Strategy string   `hcl:"strategy,optional"`
	Tables   []string `hcl:"tables,optional"`
	Bankroll uint64   `hcl:"bankroll,optional"`
}

// Strategies lists the bot strategies a config may name.
var Strategies = []string{"call", "fold", "random", "maniac", "tight"}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	c := &Config{
		Tables: []TableConfig{{Name: "main", MaxPlayers: 6, SmallBlind: 1, BigBlind: 2, AutoDeal: true}},
		Bots: []BotConfig{
			{Name: "alice", Strategy: "call"},
			{Name: "bob", Strategy: "random"},
			{Name: "carol", Strategy: "maniac"},
		},
	}
	c.applyDefaults()
	return c
}

// LoadConfig reads an HCL config file. A missing file yields DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	if diags := gohcl.DecodeBody(file.Body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Engine == nil {
		c.Engine = &EngineSettings{}
	}
	if c.Dealer == nil {
		c.Dealer = &DealerSettings{}
	}
	if c.Chain == nil {
		c.Chain = &ChainSettings{}
	}
	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.History == nil {
		c.History = &HistorySettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	engine := game.DefaultConfig()
	if c.Engine.Escrow == "" {
		c.Engine.Escrow = string(engine.Escrow)
	}
	if c.Engine.RevealWindow == 0 {
		c.Engine.RevealWindow = engine.RevealWindow
	}

	d := dealer.DefaultConfig()
	if c.Dealer.LockDistance == 0 {
		c.Dealer.LockDistance = d.LockDistance
	}
	if c.Dealer.Board == "" {
		c.Dealer.Board = d.Board.String()
	}

	if c.Chain.BlockInterval == "" {
		c.Chain.BlockInterval = "2s"
	}
	if c.Chain.Retention == 0 {
		c.Chain.Retention = 256
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "fairpoker.db"
	}

	for i := range c.Tables {
		if c.Tables[i].MaxPlayers == 0 {
			c.Tables[i].MaxPlayers = 6
		}
		if c.Tables[i].BuyIn == 0 {
			c.Tables[i].BuyIn = c.Tables[i].BigBlind * 100
		}
	}

	for i := range c.Bots {
		if c.Bots[i].Strategy == "" {
			c.Bots[i].Strategy = "call"
		}
		if c.Bots[i].Bankroll == 0 {
			c.Bots[i].Bankroll = 100000
		}
		if len(c.Bots[i].Tables) == 0 {
			for _, table := range c.Tables {
				c.Bots[i].Tables = append(c.Bots[i].Tables, table.Name)
			}
		}
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return fmt.Errorf("server: log_level: %w", err)
	}
	if _, err := fairdeck.ParseDerivation(c.Dealer.Board); err != nil {
		return fmt.Errorf("dealer: %w", err)
	}
	if _, err := c.BlockInterval(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	names := make(map[string]bool)
	for _, table := range c.Tables {
		if names[table.Name] {
			return fmt.Errorf("table %s: defined twice", table.Name)
		}
		names[table.Name] = true
		if table.SmallBlind == 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind != 2*table.SmallBlind {
			return fmt.Errorf("table %s: %w", table.Name, protocol.ErrInvalidBlinds)
		}
		if table.MaxPlayers < 2 || table.MaxPlayers > 10 {
			return fmt.Errorf("table %s: max players must be between 2 and 10", table.Name)
		}
		if table.BuyIn < table.BigBlind {
			return fmt.Errorf("table %s: buy-in must cover the big blind", table.Name)
		}
	}

	for _, bot := range c.Bots {
		if !validStrategy(bot.Strategy) {
			return fmt.Errorf("bot %s: invalid strategy %s", bot.Name, bot.Strategy)
		}
		for _, table := range bot.Tables {
			if !names[table] {
				return fmt.Errorf("bot %s: unknown table %s", bot.Name, table)
			}
		}
	}
	return nil
}

func validStrategy(s string) bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}
	return false
}

// ListenAddress returns host:port for the event feed.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// BlockInterval parses the chain block interval.
func (c *Config) BlockInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Chain.BlockInterval)
	if err != nil {
		return 0, fmt.Errorf("chain: block_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("chain: block_interval must be positive")
	}
	return d, nil
}

// DealerConfig converts the dealer block.
func (c *Config) DealerConfig() (dealer.Config, error) {
	board, err := fairdeck.ParseDerivation(c.Dealer.Board)
	if err != nil {
		return dealer.Config{}, err
	}
	cfg := dealer.DefaultConfig()
	cfg.LockDistance = c.Dealer.LockDistance
	cfg.Board = board
	cfg.CrossCheckBoard = c.Dealer.CrossCheckBoard
	return cfg, nil
}

// EngineConfig converts the engine block.
func (c *Config) EngineConfig() game.Config {
	return game.Config{
		Escrow:       protocol.Address(c.Engine.Escrow),
		RevealWindow: c.Engine.RevealWindow,
	}
}

// Table returns a table by name.
func (c *Config) Table(name string) (TableConfig, bool) {
	for _, table := range c.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return TableConfig{}, false
}

// BotsForTable returns the bots configured to sit at a table.
func (c *Config) BotsForTable(name string) []BotConfig {
	var bots []BotConfig
	for _, bot := range c.Bots {
		for _, table := range bot.Tables {
			if table == name {
				bots = append(bots, bot)
				break
			}
		}
	}
	return bots
}

// Params converts a table block into engine parameters.
func (t TableConfig) Params() game.GameParams {
	return game.GameParams{
		MaxPlayers: t.MaxPlayers,
		SmallBlind: chips.Amount(t.SmallBlind),
		BigBlind:   chips.Amount(t.BigBlind),
		BuyIn:      chips.Amount(t.BuyIn),
		AutoDeal:   t.AutoDeal,
	}
}
