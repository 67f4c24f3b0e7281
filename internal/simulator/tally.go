package simulator

import (
	"sync"

	"github.com/lox/fairpoker/internal/game"
)

// tally counts the events of one game.
type tally struct {
	game uint64

	mu          sync.Mutex
	events      map[game.EventType]int
	showdowns   int
	uncontested int
	voided      int
}

func newTally(gameID uint64) *tally {
	return &tally{game: gameID, events: make(map[game.EventType]int)}
}

func (t *tally) OnEvent(ev game.GameEvent) {
	if ev.Game() != t.game {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[ev.EventType()]++
	switch e := ev.(type) {
	case game.HandClosedEvent:
		if e.Uncontested {
			t.uncontested++
		} else {
			t.showdowns++
		}
	case game.HandVoidedEvent:
		t.voided++
	}
}

func (t *tally) into(r *Results) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.Showdowns += t.showdowns
	r.Uncontested += t.uncontested
	r.Voided += t.voided
	for typ, n := range t.events {
		r.Events[typ] += n
	}
}
