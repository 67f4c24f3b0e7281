package tui

import (
	"fmt"
	"strings"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

type seatView struct {
	Address protocol.Address
	Stack   chips.Amount
	Folded  bool
	Cards   []poker.Card
}

// tableView is what an observer can reconstruct of one game from its
// events alone.
type tableView struct {
	ID         uint64
	SmallBlind chips.Amount
	BigBlind   chips.Amount
	Hand       uint64
	State      string
	Pot        chips.Amount
	Seats      map[int]*seatView
}

func newTableView(id uint64) *tableView {
	return &tableView{ID: id, State: game.Waiting.String(), Seats: make(map[int]*seatView)}
}

func (t *tableView) name(addr protocol.Address) string {
	if addr.IsZero() {
		return "?"
	}
	return addr.String()
}

func (t *tableView) seatName(seat int) string {
	if s, ok := t.Seats[seat]; ok {
		return fmt.Sprintf("seat %d (%s)", seat, t.name(s.Address))
	}
	return fmt.Sprintf("seat %d", seat)
}

func (t *tableView) credit(awards []game.Award) {
	for _, a := range awards {
		if s, ok := t.Seats[a.Seat]; ok {
			s.Stack += a.Amount
		}
	}
}

// post takes a blind from a seat, short if the stack cannot cover it.
func (t *tableView) post(seat int, blind chips.Amount) chips.Amount {
	s, ok := t.Seats[seat]
	if !ok {
		return 0
	}
	paid := min(blind, s.Stack)
	s.Stack -= paid
	return paid
}

// apply folds an event into the view and returns the log text for it.
func (t *tableView) apply(ev game.GameEvent) string {
	switch e := ev.(type) {
	case game.GameCreatedEvent:
		t.SmallBlind, t.BigBlind = e.SmallBlind, e.BigBlind
		return HeaderStyle.Render(fmt.Sprintf(" Game %d ", t.ID)) +
			fmt.Sprintf(" %d seats, blinds %s/%s, buy-in %s", e.MaxPlayers, e.SmallBlind, e.BigBlind, e.BuyIn)

	case game.PlayerJoinedEvent:
		t.Seats[e.Seat] = &seatView{Address: e.Address, Stack: e.BuyIn}
		return fmt.Sprintf("%s joins seat %d with %s", t.name(e.Address), e.Seat, e.BuyIn)

	case game.PlayerLeftEvent:
		delete(t.Seats, e.Seat)
		return fmt.Sprintf("%s leaves seat %d with %s", t.name(e.Address), e.Seat, e.CashOut)

	case game.StackToppedUpEvent:
		if s, ok := t.Seats[e.Seat]; ok {
			s.Stack += e.Amount
		}
		return InfoStyle.Render(fmt.Sprintf("%s tops up %s", t.name(e.Address), e.Amount))

	case game.HandCreatedEvent:
		t.Hand = e.HandNumber
		t.State = game.PreFlop.String()
		for _, s := range t.Seats {
			s.Folded = false
			s.Cards = nil
		}
		t.Pot = t.post(e.SmallBlind, t.SmallBlind) + t.post(e.BigBlind, t.BigBlind)
		return HandInfoStyle.Render(fmt.Sprintf("*** Hand #%d ***", e.HandNumber)) +
			InfoStyle.Render(fmt.Sprintf(" button %s, entropy block %d", t.seatName(e.Button), e.EntropyBlock))

	case game.EntropyCapturedEvent:
		return InfoStyle.Render("entropy " + e.EntropyHash.Short())

	case game.ActionTakenEvent:
		if s, ok := t.Seats[e.Seat]; ok {
			if s.Stack >= e.Moved {
				s.Stack -= e.Moved
			}
			if e.Action == game.Fold.String() {
				s.Folded = true
			}
		}
		t.Pot = e.PotAfter
		t.State = e.State
		text := fmt.Sprintf("%s %s", t.name(e.Address), e.Action)
		if e.Amount > 0 {
			text += " " + e.Amount.String()
		}
		return ActionsStyle.Render(text) + InfoStyle.Render(fmt.Sprintf(" (pot %s)", e.PotAfter))

	case game.StreetAdvancedEvent:
		t.State = e.State
		t.Pot = e.Pot
		return HandInfoStyle.Render(fmt.Sprintf("*** %s ***", strings.ToUpper(e.State))) +
			InfoStyle.Render(fmt.Sprintf(" pot %s", e.Pot))

	case game.BoardSubmittedEvent:
		return fmt.Sprintf("%s sees %s: %s", t.name(e.Address), e.Street, FormatCards(e.Cards))

	case game.HandRevealedEvent:
		if s, ok := t.Seats[e.Seat]; ok {
			s.Cards = e.Cards
		}
		return fmt.Sprintf("%s shows [%s] %s", t.name(e.Address), FormatCards(e.Cards), e.Rank)

	case game.HandClosedEvent:
		t.credit(e.Awards)
		t.Pot = 0
		t.State = game.Waiting.String()
		lines := make([]string, 0, len(e.Awards)+1)
		for _, a := range e.Awards {
			lines = append(lines, SuccessStyle.Render(fmt.Sprintf("%s wins %s", t.seatName(a.Seat), a.Amount)))
		}
		summary := fmt.Sprintf("Hand #%d settled, pot %s", e.HandNumber, e.Pot)
		if e.Uncontested {
			summary += " uncontested"
		}
		return strings.Join(append(lines, InfoStyle.Render(summary)), "\n")

	case game.HandVoidedEvent:
		t.credit(e.Refunds)
		t.Pot = 0
		t.State = game.Waiting.String()
		return ErrorStyle.Render(fmt.Sprintf("Hand #%d voided: %s", e.HandNumber, e.Reason))
	}
	return ""
}

// sidebar renders the table's current state.
func (t *tableView) sidebar() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf(" Game %d ", t.ID)))
	b.WriteString("\n")
	if t.Hand > 0 {
		b.WriteString(fmt.Sprintf("Hand #%d %s\n", t.Hand, t.State))
	}
	b.WriteString(WarningStyle.Render(fmt.Sprintf("Pot: %s", t.Pot)))
	b.WriteString("\n\n")

	for seat := 0; seat < maxSeat(t.Seats); seat++ {
		s, ok := t.Seats[seat]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%d %-12s %6s", seat, t.name(s.Address), s.Stack)
		if s.Folded {
			line = FoldedStyle.Render(line)
		}
		b.WriteString(line)
		if len(s.Cards) > 0 {
			b.WriteString(" " + FormatCards(s.Cards))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func maxSeat(seats map[int]*seatView) int {
	n := 0
	for seat := range seats {
		n = max(n, seat+1)
	}
	return n
}
