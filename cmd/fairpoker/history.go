package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sanity-io/litter"

	"github.com/lox/fairpoker/internal/phh"
	"github.com/lox/fairpoker/internal/tui"
)

func historyRecorder(dir string, logger *log.Logger) (*phh.Recorder, error) {
	write, err := phh.DirWriter(dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Writing hand histories", "dir", dir)
	return phh.NewRecorder(write, logger), nil
}

// HistoryCmd prints PHH hand history files.
type HistoryCmd struct {
	Files []string `arg:"" name:"file" help:"PHH files to print" type:"existingfile"`
	Dump  bool     `help:"Dump the decoded structure instead of rendering it"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	for i, path := range c.Files {
		hand, err := phh.DecodeFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i > 0 {
			fmt.Println()
		}
		if c.Dump {
			fmt.Println(litter.Sdump(hand))
			continue
		}
		if err := printHistory(os.Stdout, hand); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func printHistory(w io.Writer, h *phh.HandHistory) error {
	fmt.Fprintf(w, "%s %s hand %s\n", tui.HeaderStyle.Render(" "+h.Table+" "), h.Time, h.HandID)
	for i, name := range h.Players {
		line := fmt.Sprintf("p%d %-12s", i+1, name)
		if i < len(h.StartingStacks) {
			line += fmt.Sprintf(" %6d", h.StartingStacks[i])
		}
		if i < len(h.FinishingStacks) {
			line += fmt.Sprintf(" -> %d", h.FinishingStacks[i])
		}
		if i < len(h.Winnings) && h.Winnings[i] > 0 {
			line += " " + tui.SuccessStyle.Render(fmt.Sprintf("wins %d", h.Winnings[i]))
		}
		fmt.Fprintln(w, line)
	}
	for _, action := range h.Actions {
		fmt.Fprintln(w, "  "+renderAction(action))
	}
	if reason, voided := h.Voided(); voided {
		fmt.Fprintln(w, tui.ErrorStyle.Render("voided: "+reason))
	}
	return nil
}

// renderAction colours the cards in a dealing or showing action.
func renderAction(action string) string {
	fields := strings.Fields(action)
	if len(fields) < 3 {
		return action
	}
	last := fields[len(fields)-1]
	if fields[0] != "d" && fields[1] != "sm" {
		return tui.ActionsStyle.Render(action)
	}
	cards, err := phh.ParseCards(last)
	if err != nil || len(cards) == 0 {
		return action
	}
	return strings.Join(fields[:len(fields)-1], " ") + " " + tui.FormatCards(cards)
}
