package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/protocol"
)

// SettlementKind says how a hand is being closed out.
type SettlementKind string

const (
	SettleShowdown    SettlementKind = "showdown"
	SettleUncontested SettlementKind = "uncontested"
	SettleVoid        SettlementKind = "void"
)

// Payout is one ledger transfer owed out of escrow.
type Payout struct {
	Seat    int              `json:"seat"`
	Address protocol.Address `json:"address"`
	Amount  chips.Amount     `json:"amount"`
	Paid    bool             `json:"paid"`
}

// Settlement is a hand's payout run. It is stored with the game while
// transfers are outstanding, so a retry after a failed transfer pays only
// what is still owed.
type Settlement struct {
	Kind    SettlementKind `json:"kind"`
	Reason  string         `json:"reason,omitempty"`
	Pot     chips.Amount   `json:"pot"`
	Payouts []Payout       `json:"payouts"`
}

func (s *Settlement) paid() chips.Amount {
	var total chips.Amount
	for _, p := range s.Payouts {
		if p.Paid {
			total += p.Amount
		}
	}
	return total
}

func (s *Settlement) awards() []Award {
	out := make([]Award, len(s.Payouts))
	for i, p := range s.Payouts {
		out[i] = Award{Seat: p.Seat, Amount: p.Amount}
	}
	return out
}

// interruptedError is a failure after the ledger or dealer already acted.
// The working copy records how far the operation got and is stored anyway.
type interruptedError struct{ err error }

func (e *interruptedError) Error() string { return e.err.Error() }
func (e *interruptedError) Unwrap() error { return e.err }

func interrupted(err error) error { return &interruptedError{err: err} }

func isInterrupted(err error) bool {
	var ie *interruptedError
	return errors.As(err, &ie)
}

// beginSettlement records the payouts for the current hand and runs them.
func (e *GameEngine) beginSettlement(t *tx, kind SettlementKind, reason string, awards []Award) error {
	g := t.g
	s := &Settlement{Kind: kind, Reason: reason, Pot: g.Pot}
	var total chips.Amount
	for _, a := range awards {
		if a.Amount == 0 {
			continue
		}
		var err error
		if total, err = total.Add(a.Amount); err != nil {
			return err
		}
		s.Payouts = append(s.Payouts, Payout{Seat: a.Seat, Address: g.Seats[a.Seat].Address, Amount: a.Amount})
	}
	if total != g.Pot {
		return fmt.Errorf("payouts of %d do not match pot of %d in game %d", total, g.Pot, g.ID)
	}
	if _, err := g.PaidOut.Add(total); err != nil {
		return err
	}
	g.Settlement = s
	return e.finishSettlement(t)
}

// finishSettlement pays every outstanding payout, then closes the dealer
// session and the hand. Each transfer is marked as it lands.
func (e *GameEngine) finishSettlement(t *tx) error {
	g := t.g
	s := g.Settlement

	for i := range s.Payouts {
		p := &s.Payouts[i]
		if p.Paid {
			continue
		}
		if err := e.ledger.Transfer(t.ctx, p.Address, p.Amount); err != nil {
			e.logger.Warn("Payout failed", "game", g.ID, "hand", g.HandNumber, "seat", p.Seat, "amount", p.Amount, "error", err)
			return interrupted(fmt.Errorf("pay seat %d: %w", p.Seat, err))
		}
		p.Paid = true
		g.Pot -= p.Amount
		g.PaidOut += p.Amount
	}

	if s.Kind == SettleVoid {
		if err := e.dealer.Void(t.ctx, g.SessionID, s.Reason); err != nil {
			return interrupted(err)
		}
	} else if err := e.dealer.Finalize(t.ctx, g.SessionID); err != nil {
		return interrupted(err)
	}

	switch s.Kind {
	case SettleVoid:
		// Revealed secrets are public now and cannot be committed to again.
		for _, p := range g.Seats {
			if p != nil && p.Revealed {
				p.PublicKey = p.NextPublicKey
				p.NextPublicKey = protocol.ZeroHash
			}
		}
		t.emit(HandVoidedEvent{
			Header:     t.header(),
			HandNumber: g.HandNumber,
			SessionID:  g.SessionID,
			Reason:     s.Reason,
			Refunds:    s.awards(),
		})
		e.logger.Warn("Hand voided", "game", g.ID, "hand", g.HandNumber, "reason", s.Reason, "refunded", s.Pot)
	default:
		for _, p := range g.contenders() {
			if !p.NextPublicKey.IsZero() {
				p.PublicKey = p.NextPublicKey
				p.NextPublicKey = protocol.ZeroHash
			}
		}
		uncontested := s.Kind == SettleUncontested
		t.emit(HandClosedEvent{
			Header:      t.header(),
			HandNumber:  g.HandNumber,
			SessionID:   g.SessionID,
			Pot:         s.Pot,
			Awards:      s.awards(),
			Uncontested: uncontested,
		})
		e.logger.Info("Hand settled", "game", g.ID, "hand", g.HandNumber, "pot", s.Pot, "uncontested", uncontested, "awards", s.awards())
	}

	g.Settlement = nil
	g.endHand()
	if s.Kind != SettleVoid {
		e.autoDeal(t)
	}
	return nil
}

// SettleHand completes a settlement that stopped on a failed transfer or
// dealer call. Payouts already made are not repeated.
func (e *GameEngine) SettleHand(ctx context.Context, id uint64) error {
	return e.update(ctx, id, func(t *tx) error {
		if t.g.Settlement == nil {
			return fmt.Errorf("%w: no settlement pending in game %d", protocol.ErrIllegalAction, id)
		}
		return e.finishSettlement(t)
	})
}

func (g *Game) clone() (*Game, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out Game
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
