package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/fairpoker/internal/server"
	"github.com/lox/fairpoker/internal/tui"
)

// WatchCmd follows a server's event feed in the terminal.
type WatchCmd struct {
	Server string `short:"s" default:"localhost:8080" help:"Server address or URL"`
	Game   uint64 `short:"g" help:"Only show one game"`
}

func (c *WatchCmd) Run(g *Globals) error {
	// Anything louder than errors would draw over the TUI.
	logger, err := g.Logger("error")
	if err != nil {
		return err
	}
	feedURL, err := server.FeedURL(c.Server, c.Game)
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(logger, c.Game), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := server.Subscribe(ctx, feedURL, func(env server.Envelope) {
			p.Send(tui.EnvelopeMsg(env))
		})
		p.Send(tui.FeedDoneMsg{Err: err})
	}()

	_, err = p.Run()
	return err
}
