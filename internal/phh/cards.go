package phh

import (
	"strings"

	"github.com/lox/fairpoker/poker"
)

// Unknown stands for two hole cards nobody has seen yet.
const Unknown = "????"

// Cards writes cards PHH style, concatenated with no separator ("AhKh").
func Cards(cards []poker.Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

// ParseCards reads a concatenated card run. Unknown cards are skipped.
func ParseCards(run string) ([]poker.Card, error) {
	run = strings.ReplaceAll(run, "??", "")
	if run == "" {
		return nil, nil
	}
	return poker.ParseCards(run)
}
