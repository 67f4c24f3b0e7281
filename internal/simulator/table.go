package simulator

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/sanity-io/litter"

	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/game"
	"github.com/lox/fairpoker/internal/keyfile"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/randutil"
)

// maxSteps bounds the engine calls a single hand may take.
const maxSteps = 1000

// bot is one seated simulated player.
type bot struct {
	spec     PlayerSpec
	addr     protocol.Address
	strategy Strategy
	rng      *rand.Rand
	key      *keyfile.Key
}

// secret returns the secret behind the public key the game holds for us.
func (b *bot) secret(publicKey protocol.Hash) (protocol.Hash, error) {
	if b.key.PublicKey != publicKey {
		return protocol.Hash{}, fmt.Errorf("%w: %s lost track of key %s", protocol.ErrInvalidKey, b.addr, publicKey.Short())
	}
	return b.key.Secret, nil
}

// nextPublicKey prepares the secret for the following hand.
func (b *bot) nextPublicKey() (protocol.Hash, error) {
	if b.key.Next == nil {
		next := randutil.Secret(b.rng)
		b.key.Next = &next
	}
	return b.key.PrepareNext()
}

// table drives one game.
type table struct {
	sim     *Simulator
	spec    TableSpec
	id      uint64
	rng     *rand.Rand
	bots    map[protocol.Address]*bot
	order   []*bot
	tally   *tally
	results *Results
	logger  *log.Logger
}

func (s *Simulator) openTable(ctx context.Context, index int, spec TableSpec) (*table, error) {
	id, err := s.engine.CreateGame(ctx, spec.Params)
	if err != nil {
		return nil, err
	}
	g, err := s.engine.Game(ctx, id)
	if err != nil {
		return nil, err
	}

	t := &table{
		sim:     s,
		spec:    spec,
		id:      id,
		rng:     randutil.Derive(s.config.Seed, uint64(index)<<32),
		bots:    make(map[protocol.Address]*bot),
		tally:   newTally(id),
		results: newResults(),
		logger:  s.logger.With("table", spec.Name, "game", id),
	}
	t.results.Tables = 1
	s.engine.EventBus().Subscribe(t.tally)

	if len(spec.Players) > g.MaxPlayers {
		return nil, fmt.Errorf("%d players for %d seats", len(spec.Players), g.MaxPlayers)
	}
	for seat, ps := range spec.Players {
		rng := randutil.Derive(s.config.Seed, uint64(index)<<32|uint64(seat+1))
		strategy, err := NewStrategy(ps.Strategy, rng)
		if err != nil {
			return nil, err
		}
		addr := protocol.Address(fmt.Sprintf("%s/%s", spec.Name, ps.Name))
		b := &bot{
			spec:     ps,
			addr:     addr,
			strategy: strategy,
			rng:      rng,
			key:      keyfile.New(addr, randutil.Secret(rng)),
		}

		if err := s.ledger.Mint(ctx, addr, ps.Bankroll); err != nil {
			return nil, err
		}
		if err := s.ledger.Approve(ctx, addr, s.engine.Escrow(), g.BuyIn); err != nil {
			return nil, err
		}
		if err := s.engine.JoinGame(ctx, id, addr, seat, b.key.PublicKey); err != nil {
			return nil, fmt.Errorf("seat %s: %w", ps.Name, err)
		}
		t.bots[addr] = b
		t.order = append(t.order, b)
	}
	return t, nil
}

func (t *table) run(ctx context.Context) error {
	defer t.tally.into(t.results)
	defer t.sim.engine.EventBus().Unsubscribe(t.tally)

	for hand := 0; t.sim.config.Hands == 0 || hand < t.sim.config.Hands; hand++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		played, err := t.playHand(ctx)
		if err != nil {
			return fmt.Errorf("hand %d: %w", hand+1, err)
		}
		if !played {
			t.logger.Info("Table broke", "hands", hand)
			break
		}
	}
	return nil
}

// worth is a bot's chips on and off the table.
func (t *table) worth(ctx context.Context, g *game.Game, b *bot) (chips.Amount, error) {
	bal, err := t.sim.ledger.BalanceOf(ctx, b.addr)
	if err != nil {
		return 0, err
	}
	if p := g.Player(b.addr); p != nil {
		bal += p.Stack
	}
	return bal, nil
}

// refill tops every short stack back up to the buy-in while the bankroll
// lasts.
func (t *table) refill(ctx context.Context, g *game.Game) error {
	for _, b := range t.order {
		p := g.Player(b.addr)
		if p == nil || p.Stack >= g.BigBlind {
			continue
		}
		need := g.BuyIn - p.Stack
		bal, err := t.sim.ledger.BalanceOf(ctx, b.addr)
		if err != nil {
			return err
		}
		if bal < need {
			continue
		}
		if err := t.sim.ledger.Approve(ctx, b.addr, t.sim.engine.Escrow(), need); err != nil {
			return err
		}
		if _, err := t.sim.engine.TopUp(ctx, t.id, b.addr); err != nil {
			return err
		}
	}
	return nil
}

// playHand deals and plays one hand to completion. It reports false when
// the table no longer has two funded players.
func (t *table) playHand(parent context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(parent, t.sim.config.Timeout)
	defer cancel()

	engine := t.sim.engine
	g, err := engine.Game(ctx, t.id)
	if err != nil {
		return false, err
	}
	if err := t.refill(ctx, g); err != nil {
		return false, err
	}
	if g, err = engine.Game(ctx, t.id); err != nil {
		return false, err
	}
	before := make(map[*bot]chips.Amount, len(t.order))
	for _, b := range t.order {
		if before[b], err = t.worth(ctx, g, b); err != nil {
			return false, err
		}
	}

	if err := engine.DealHand(ctx, t.id); err != nil {
		if errors.Is(err, protocol.ErrInvalidPlayerCount) {
			return false, nil
		}
		return false, err
	}
	g, err = engine.Game(ctx, t.id)
	if err != nil {
		return false, err
	}
	h := &handRun{table: t, number: g.HandNumber, submitted: make(map[protocol.Address]fairdeck.Street)}
	if err := h.play(ctx); err != nil {
		return false, err
	}

	if g, err = engine.Game(ctx, t.id); err != nil {
		return false, err
	}
	bb := float64(g.BigBlind)
	for _, b := range t.order {
		after, err := t.worth(ctx, g, b)
		if err != nil {
			return false, err
		}
		net := float64(after) - float64(before[b])
		t.results.strategy(b.spec.Strategy).Add(net / bb)
	}
	t.results.Hands++
	if err := g.ValidateConservation(); err != nil {
		t.logger.Error("Chips not conserved", "state", litter.Sdump(g))
		return false, err
	}
	return true, nil
}

// handRun is the state of one hand in progress.
type handRun struct {
	table   *table
	number  uint64
	entropy protocol.Hash
	// submitted is the latest street each player has sent cards for.
	submitted map[protocol.Address]fairdeck.Street
	stalled   bool
}

func (h *handRun) play(ctx context.Context) error {
	t := h.table
	engine := t.sim.engine
	for step := 0; step < maxSteps; step++ {
		g, err := engine.Game(ctx, t.id)
		if err != nil {
			return err
		}
		if g.HandNumber != h.number || !g.State.InHand() {
			return nil
		}

		switch {
		case g.State.Betting():
			err = h.act(ctx, g)
		case g.State == game.Showdown:
			err = h.showdown(ctx, g)
		}
		if errors.Is(err, protocol.ErrEntropyExpired) {
			t.logger.Warn("Entropy expired, voiding hand", "hand", h.number)
			return engine.VoidHand(ctx, t.id)
		}
		if err != nil {
			return err
		}
		if err := t.sim.sleep(ctx, t.sim.config.Pace); err != nil {
			return err
		}
	}
	return fmt.Errorf("hand %d did not finish in %d steps", h.number, maxSteps)
}

// capture waits for the entropy block and returns its hash.
func (h *handRun) capture(ctx context.Context) (protocol.Hash, error) {
	if !h.entropy.IsZero() {
		return h.entropy, nil
	}
	for {
		e, err := h.table.sim.engine.CaptureEntropy(ctx, h.table.id)
		switch {
		case err == nil:
			h.entropy = e
			return e, nil
		case errors.Is(err, protocol.ErrEntropyNotReady):
			if err := h.table.sim.advance(ctx); err != nil {
				return protocol.Hash{}, err
			}
		default:
			return protocol.Hash{}, err
		}
	}
}

// derive computes a player's cards locally, exactly as the dealer will
// when they reveal.
func (h *handRun) derive(ctx context.Context, b *bot, publicKey protocol.Hash) (fairdeck.Hand, error) {
	entropy, err := h.capture(ctx)
	if err != nil {
		return fairdeck.Hand{}, err
	}
	secret, err := b.secret(publicKey)
	if err != nil {
		return fairdeck.Hand{}, err
	}
	return fairdeck.DeriveHand(h.table.sim.config.Dealer.Board, entropy, secret), nil
}

func (h *handRun) act(ctx context.Context, g *game.Game) error {
	t := h.table
	p := g.ToAct()
	if p == nil {
		return fmt.Errorf("nobody to act during %s", g.State)
	}
	b := t.bots[p.Address]
	if b == nil {
		return fmt.Errorf("no bot for %s", p.Address)
	}
	hand, err := h.derive(ctx, b, p.PublicKey)
	if err != nil {
		return err
	}

	d := b.strategy.Decide(Situation{Game: g, Me: p, Hole: hand.Hole})
	err = t.sim.engine.PlayerAction(ctx, t.id, b.addr, d.Action, d.Amount)
	if errors.Is(err, protocol.ErrIllegalAction) {
		t.logger.Debug("Strategy chose an illegal action", "bot", b.spec.Name, "action", d.Action, "amount", d.Amount, "error", err)
		fallback := Situation{Game: g, Me: p}.checkOrFold()
		err = t.sim.engine.PlayerAction(ctx, t.id, b.addr, fallback.Action, 0)
	}
	if err != nil {
		return err
	}

	g, err = t.sim.engine.Game(ctx, t.id)
	if err != nil {
		return err
	}
	if g.HandNumber != h.number || !g.State.InHand() {
		return nil
	}
	return h.submitStreets(ctx, g)
}

// submitStreets has every contender send the board cards they derive for
// each street the hand has reached.
func (h *handRun) submitStreets(ctx context.Context, g *game.Game) error {
	reached := g.State
	if reached == game.Showdown {
		reached = game.River
	}
	street, ok := reached.Street()
	if !ok {
		return nil
	}
	for _, p := range g.Seats {
		if p == nil || !p.InHand || p.Folded {
			continue
		}
		b := h.table.bots[p.Address]
		last, sent := h.submitted[p.Address]
		for s := fairdeck.Flop; s <= street; s++ {
			if sent && s <= last {
				continue
			}
			hand, err := h.derive(ctx, b, p.PublicKey)
			if err != nil {
				return err
			}
			err = h.table.sim.engine.SubmitStreetCards(ctx, h.table.id, b.addr, s, hand.Street(s))
			switch {
			case errors.Is(err, protocol.ErrBoardMismatch):
				// Per-participant boards differ, so a cross-checking
				// dealer refuses all but the first submission.
				h.table.logger.Debug("Board submission rejected", "player", b.addr, "street", s, "error", err)
			case err != nil:
				return err
			}
			h.submitted[p.Address] = s
		}
	}
	return nil
}

func (h *handRun) showdown(ctx context.Context, g *game.Game) error {
	t := h.table
	if err := h.submitStreets(ctx, g); err != nil {
		return err
	}

	var pending []*game.Player
	for _, p := range g.Seats {
		if p != nil && p.InHand && !p.Folded && !p.Revealed {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return fmt.Errorf("showdown with nothing to reveal")
	}

	if !h.stalled && t.sim.config.StallRate > 0 && t.rng.Float64() < t.sim.config.StallRate {
		h.stalled = true
		t.logger.Info("Player stalling at showdown", "hand", h.number, "player", pending[0].Address)
	}
	if h.stalled {
		// The first pending player never reveals.
		for _, p := range pending[1:] {
			if err := h.reveal(ctx, p); err != nil {
				return err
			}
		}
		if err := t.sim.waitPast(ctx, g.ShowdownDeadline); err != nil {
			return err
		}
		return t.sim.engine.VoidHand(ctx, t.id)
	}

	for _, p := range pending {
		if err := h.reveal(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *handRun) reveal(ctx context.Context, p *game.Player) error {
	b := h.table.bots[p.Address]
	secret, err := b.secret(p.PublicKey)
	if err != nil {
		return err
	}
	next, err := b.nextPublicKey()
	if err != nil {
		return err
	}
	if err := h.table.sim.engine.RevealHand(ctx, h.table.id, b.addr, secret, next); err != nil {
		return err
	}
	// Revealing always rotates the key, whether the hand settles or is
	// voided.
	return b.key.Advance()
}
