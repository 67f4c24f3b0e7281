package main

import (
	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	LogLevel string `short:"l" help:"Log level: debug, info, warn or error"`
	NoColor  bool   `help:"Disable colour output"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run bot tables and publish their events"`
	Simulate SimulateCmd      `cmd:"" help:"Play bot tables as fast as possible and report results"`
	Watch    WatchCmd         `cmd:"" help:"Watch a running server's event feed"`
	History  HistoryCmd       `cmd:"" help:"Print PHH hand history files"`
	Keygen   KeygenCmd        `cmd:"" help:"Generate a player key file"`
	Deck     DeckCmd          `cmd:"" help:"Show the cards a secret is dealt from an entropy hash"`
	Verify   VerifyCmd        `cmd:"" help:"Check a secret opens a public key"`
	Eval     EvalCmd          `cmd:"" help:"Rank a poker hand"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("fairpoker"),
		kong.Description("Provably fair Texas Hold'em with commit-reveal dealing"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	if cli.NoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
