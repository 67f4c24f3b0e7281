package dealer

import (
	"slices"

	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/poker"
)

// Status tracks a hand session through commit, anchor and reveal.
type Status int

const (
	StatusOpen     Status = iota // accepting commitments
	StatusLocked                 // anchor block chosen, not yet mined
	StatusCaptured               // anchor hash recorded
	StatusClosed                 // hand settled
	StatusVoid                   // fairness could not be established
)

func (s Status) String() string {
	if s < StatusOpen || s > StatusVoid {
		return "unknown"
	}
	return [...]string{"open", "locked", "captured", "closed", "void"}[s]
}

// Participant is one committed player of a session.
type Participant struct {
	Address   protocol.Address                 `json:"address"`
	PublicKey protocol.Hash                    `json:"public_key"`
	Streets   map[fairdeck.Street][]poker.Card `json:"streets,omitempty"`
	Revealed  bool                             `json:"revealed"`
	Secret    protocol.Hash                    `json:"secret,omitzero"`
	Hand      *fairdeck.Hand                   `json:"hand,omitempty"`
}

// Session is the dealer's record of one hand.
type Session struct {
	ID           uint64           `json:"id"`
	Dealer       protocol.Address `json:"dealer"`
	MaxPlayers   int              `json:"max_players"`
	Participants []Participant    `json:"participants"`
	EntropyBlock uint64           `json:"entropy_block"`
	EntropyHash  protocol.Hash    `json:"entropy_hash"`
	Status       Status           `json:"status"`
	VoidReason   string           `json:"void_reason,omitempty"`
}

// Reveal is the outcome of a successful CloseHand.
type Reveal struct {
	Address protocol.Address `json:"address"`
	Hand    fairdeck.Hand    `json:"hand"`
}

// Cards returns the seven cards to evaluate.
func (r Reveal) Cards() []poker.Card { return r.Hand.Cards() }

func (s *Session) participant(addr protocol.Address) int {
	for i, p := range s.Participants {
		if p.Address == addr {
			return i
		}
	}
	return -1
}

// Participant returns the participant record for addr.
func (s Session) Participant(addr protocol.Address) (Participant, bool) {
	if i := s.participant(addr); i >= 0 {
		return s.Participants[i], true
	}
	return Participant{}, false
}

// AllRevealed reports whether every participant has opened their commitment.
func (s Session) AllRevealed() bool {
	for _, p := range s.Participants {
		if !p.Revealed {
			return false
		}
	}
	return len(s.Participants) > 0
}

func (s Session) clone() Session {
	out := s
	out.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		cp := p
		if p.Streets != nil {
			cp.Streets = make(map[fairdeck.Street][]poker.Card, len(p.Streets))
			for k, v := range p.Streets {
				cp.Streets[k] = slices.Clone(v)
			}
		}
		if p.Hand != nil {
			h := fairdeck.Hand{Hole: slices.Clone(p.Hand.Hole), Board: slices.Clone(p.Hand.Board)}
			cp.Hand = &h
		}
		out.Participants[i] = cp
	}
	return out
}
