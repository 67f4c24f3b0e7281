package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/keyfile"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/tui"
	"github.com/lox/fairpoker/poker"
)

// DeckCmd shows what a secret is dealt for an entropy hash, so anyone can
// check a revealed hand.
type DeckCmd struct {
	Entropy string `arg:"" help:"Entropy block hash (hex)"`
	Secret  string `help:"Secret (hex)" xor:"secret" required:""`
	Key     string `short:"k" help:"Read the secret from a key file" xor:"secret" required:""`
	Board   string `default:"per_participant" enum:"per_participant,shared" help:"Board derivation: per_participant or shared"`
	Full    bool   `help:"Also print the whole shuffled deck"`
}

func (c *DeckCmd) Run(g *Globals) error {
	entropy, err := protocol.ParseHash(c.Entropy)
	if err != nil {
		return fmt.Errorf("entropy: %w", err)
	}
	secret, err := c.secret()
	if err != nil {
		return err
	}
	mode, err := fairdeck.ParseDerivation(c.Board)
	if err != nil {
		return err
	}
	return printHand(os.Stdout, mode, entropy, secret, c.Full)
}

func (c *DeckCmd) secret() (protocol.Hash, error) {
	if c.Key != "" {
		key, err := keyfile.Load(c.Key)
		if err != nil {
			return protocol.Hash{}, err
		}
		return key.Secret, nil
	}
	secret, err := protocol.ParseHash(c.Secret)
	if err != nil {
		return protocol.Hash{}, fmt.Errorf("secret: %w", err)
	}
	return secret, nil
}

func printHand(w io.Writer, mode fairdeck.Derivation, entropy, secret protocol.Hash, full bool) error {
	hand := fairdeck.DeriveHand(mode, entropy, secret)
	rank, err := poker.EvaluateBestHand(hand.Cards())
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s\n", tui.HeaderStyle.Render(" public key "), protocol.Commit(secret))
	fmt.Fprintf(w, "hole:  %s\n", tui.FormatCards(hand.Hole))
	for _, street := range []fairdeck.Street{fairdeck.Flop, fairdeck.Turn, fairdeck.River} {
		fmt.Fprintf(w, "%-6s %s\n", street.String()+":", tui.FormatCards(hand.Street(street)))
	}
	fmt.Fprintf(w, "best:  %s\n", tui.HandInfoStyle.Render(rank.String()))

	if full {
		deck := fairdeck.Derive(entropy, secret)
		fmt.Fprintf(w, "deck:  %s\n", tui.FormatCards(deck.Cards(0, fairdeck.DeckSize)))
	}
	return nil
}

// EvalCmd ranks seven cards.
type EvalCmd struct {
	Cards []string `arg:"" help:"Seven cards, e.g. As Kd Qh Jc Ts 2d 3c"`
}

func (c *EvalCmd) Run(g *Globals) error {
	cards, err := poker.ParseCards(strings.Join(c.Cards, " "))
	if err != nil {
		return err
	}
	rank, err := poker.EvaluateBestHand(cards)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", tui.FormatCards(cards), tui.HandInfoStyle.Render(rank.String()))
	return nil
}
