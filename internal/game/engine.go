package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/fairpoker/internal/chain"
	"github.com/lox/fairpoker/internal/chips"
	"github.com/lox/fairpoker/internal/dealer"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/store"
	"github.com/lox/fairpoker/poker"
)

// ChipLedger custodies the wagered chips. The engine pulls buy-ins into its
// escrow account and pays pots out of it.
type ChipLedger interface {
	BalanceOf(ctx context.Context, addr protocol.Address) (chips.Amount, error)
	TransferFrom(ctx context.Context, owner, spender protocol.Address, amount chips.Amount) error
	Transfer(ctx context.Context, to protocol.Address, amount chips.Amount) error
}

// FairDealer is the commit-reveal capability the engine deals through.
type FairDealer interface {
	OpenSession(ctx context.Context, owner protocol.Address, maxPlayers int) (uint64, error)
	RegisterCommitment(ctx context.Context, id uint64, addr protocol.Address, publicKey protocol.Hash) error
	LockEntropy(ctx context.Context, id uint64) (uint64, error)
	CaptureEntropy(ctx context.Context, id uint64) (protocol.Hash, error)
	SubmitStreetCards(ctx context.Context, id uint64, addr protocol.Address, street fairdeck.Street, cards []poker.Card) error
	CloseHand(ctx context.Context, id uint64, addr protocol.Address, secret protocol.Hash) (dealer.Reveal, error)
	Finalize(ctx context.Context, id uint64) error
	Void(ctx context.Context, id uint64, reason string) error
	Session(ctx context.Context, id uint64) (dealer.Session, error)
}

// Config holds engine-wide settings.
type Config struct {
	// Escrow is the ledger account holding every table's chips.
	Escrow protocol.Address
	// RevealWindow is how many blocks past reaching showdown players have
	// to reveal before the hand can be voided.
	RevealWindow uint64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Escrow:       "fairpoker-escrow",
		RevealWindow: 64,
	}
}

// GameParams configures a new table.
type GameParams struct {
	MaxPlayers int
	SmallBlind chips.Amount
	BigBlind   chips.Amount
	// BuyIn defaults to 100 big blinds.
	BuyIn chips.Amount
	// AutoDeal deals when the last seat fills and after every settled hand.
	AutoDeal bool
}

// GameEngine runs games. Operations are serialized and all-or-nothing: each
// works on a fresh copy of the game record and persists it only on success.
// The exception is a settlement interrupted after the ledger already moved
// chips: the record is stored with its progress so SettleHand can finish it.
type GameEngine struct {
	mu     sync.Mutex
	cfg    Config
	dealer FairDealer
	ledger ChipLedger
	blocks chain.Source
	store  store.Store
	bus    EventBus
	clock  quartz.Clock
	logger *log.Logger
}

// Option configures a GameEngine.
type Option func(*GameEngine)

func WithConfig(cfg Config) Option     { return func(e *GameEngine) { e.cfg = cfg } }
func WithEventBus(bus EventBus) Option { return func(e *GameEngine) { e.bus = bus } }
func WithClock(c quartz.Clock) Option  { return func(e *GameEngine) { e.clock = c } }

// NewGameEngine wires an engine to its collaborators.
func NewGameEngine(d FairDealer, ledger ChipLedger, blocks chain.Source, st store.Store, logger *log.Logger, opts ...Option) *GameEngine {
	e := &GameEngine{
		cfg:    DefaultConfig(),
		dealer: d,
		ledger: ledger,
		blocks: blocks,
		store:  st,
		bus:    NewEventBus(),
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EventBus returns the bus events are published on.
func (e *GameEngine) EventBus() EventBus { return e.bus }

// Escrow returns the ledger account holding table chips.
func (e *GameEngine) Escrow() protocol.Address { return e.cfg.Escrow }

// tx is one operation in flight: the working copy of a game plus the
// events to publish once it is stored.
type tx struct {
	ctx    context.Context
	g      *Game
	at     time.Time
	events []GameEvent
}

func (t *tx) header() Header { return Header{GameID: t.g.ID, At: t.at} }

func (t *tx) emit(ev GameEvent) { t.events = append(t.events, ev) }

func (e *GameEngine) load(ctx context.Context, id uint64) (*Game, error) {
	var g Game
	if err := e.store.Get(ctx, store.KindGame, id, &g); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: game %d", protocol.ErrGameNotFound, id)
		}
		return nil, err
	}
	return &g, nil
}

// commit validates and stores the working copy, then publishes its events.
func (e *GameEngine) commit(t *tx) error {
	if err := t.g.ValidateConservation(); err != nil {
		e.logger.Error("Refusing to store game", "game", t.g.ID, "error", err)
		return err
	}
	if err := e.store.Put(t.ctx, store.KindGame, t.g.ID, t.g); err != nil {
		return err
	}
	for _, ev := range t.events {
		e.bus.Publish(ev)
	}
	return nil
}

func (e *GameEngine) update(ctx context.Context, id uint64, fn func(t *tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	t := &tx{ctx: ctx, g: g, at: e.clock.Now()}
	if err := fn(t); err != nil {
		if !isInterrupted(err) {
			return err
		}
		if cerr := e.commit(t); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return e.commit(t)
}

// Game returns a snapshot of a game.
func (e *GameEngine) Game(ctx context.Context, id uint64) (*Game, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.load(ctx, id)
}

// CreateGame opens an empty table.
func (e *GameEngine) CreateGame(ctx context.Context, params GameParams) (uint64, error) {
	if params.MaxPlayers < 2 {
		return 0, fmt.Errorf("%w: %d", protocol.ErrInvalidPlayerCount, params.MaxPlayers)
	}
	if params.SmallBlind == 0 || params.BigBlind != 2*params.SmallBlind {
		return 0, fmt.Errorf("%w: %d/%d", protocol.ErrInvalidBlinds, params.SmallBlind, params.BigBlind)
	}
	if params.BuyIn == 0 {
		buyIn, err := params.BigBlind.Mul(100)
		if err != nil {
			return 0, err
		}
		params.BuyIn = buyIn
	}
	if params.BuyIn < params.BigBlind {
		return 0, fmt.Errorf("%w: buy-in %d below big blind %d", protocol.ErrInvalidBlinds, params.BuyIn, params.BigBlind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id, err := e.store.Next(ctx, store.KindGame)
	if err != nil {
		return 0, err
	}
	g := &Game{
		ID:           id,
		MaxPlayers:   params.MaxPlayers,
		SmallBlind:   params.SmallBlind,
		BigBlind:     params.BigBlind,
		BuyIn:        params.BuyIn,
		AutoDeal:     params.AutoDeal,
		Seats:        make([]*Player, params.MaxPlayers),
		Button:       -1,
		SmallBlindAt: -1,
		BigBlindAt:   -1,
		ActionCursor: -1,
	}
	t := &tx{ctx: ctx, g: g, at: e.clock.Now()}
	t.emit(GameCreatedEvent{
		Header:     t.header(),
		MaxPlayers: g.MaxPlayers,
		SmallBlind: g.SmallBlind,
		BigBlind:   g.BigBlind,
		BuyIn:      g.BuyIn,
	})
	if err := e.commit(t); err != nil {
		return 0, err
	}
	e.logger.Info("Game created", "game", id, "max_players", g.MaxPlayers, "blinds", fmt.Sprintf("%d/%d", g.SmallBlind, g.BigBlind), "buy_in", g.BuyIn)
	return id, nil
}

// JoinGame seats addr, pulling the buy-in from their ledger allowance.
func (e *GameEngine) JoinGame(ctx context.Context, id uint64, addr protocol.Address, seat int, publicKey protocol.Hash) error {
	if publicKey.IsZero() {
		return fmt.Errorf("%w: empty public key", protocol.ErrInvalidKey)
	}
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		if seat < 0 || seat >= len(g.Seats) {
			return fmt.Errorf("%w: %d of %d", protocol.ErrInvalidSeat, seat, len(g.Seats))
		}
		if g.Seats[seat] != nil {
			return fmt.Errorf("%w: seat %d", protocol.ErrSeatTaken, seat)
		}
		if g.Player(addr) != nil {
			return fmt.Errorf("%w: %s in game %d", protocol.ErrDuplicateParticipant, addr, id)
		}
		buyIns, err := g.BuyIns.Add(g.BuyIn)
		if err != nil {
			return err
		}
		if err := e.ledger.TransferFrom(t.ctx, addr, e.cfg.Escrow, g.BuyIn); err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrInsufficientChips, err)
		}

		g.BuyIns = buyIns
		g.Seats[seat] = &Player{Seat: seat, Address: addr, PublicKey: publicKey, Stack: g.BuyIn}
		t.emit(PlayerJoinedEvent{Header: t.header(), Seat: seat, Address: addr, PublicKey: publicKey, BuyIn: g.BuyIn})
		e.logger.Info("Player joined", "game", id, "seat", seat, "address", addr)

		if g.Seated() == len(g.Seats) {
			e.autoDeal(t)
		}
		return nil
	})
}

// TopUp refills a player's stack to the table buy-in between hands. Pots
// are paid to ledger accounts rather than stacks, so this is how a seated
// player keeps playing.
func (e *GameEngine) TopUp(ctx context.Context, id uint64, addr protocol.Address) (chips.Amount, error) {
	var pulled chips.Amount
	err := e.update(ctx, id, func(t *tx) error {
		g := t.g
		p := g.Player(addr)
		if p == nil {
			return fmt.Errorf("%w: %s in game %d", protocol.ErrNotParticipant, addr, id)
		}
		if g.State.InHand() && p.InHand {
			return fmt.Errorf("%w: %s is in a hand", protocol.ErrIllegalAction, addr)
		}
		if p.Stack >= g.BuyIn {
			return nil
		}
		need := g.BuyIn - p.Stack
		buyIns, err := g.BuyIns.Add(need)
		if err != nil {
			return err
		}
		if err := e.ledger.TransferFrom(t.ctx, addr, e.cfg.Escrow, need); err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrInsufficientChips, err)
		}
		g.BuyIns = buyIns
		p.Stack = g.BuyIn
		pulled = need
		t.emit(StackToppedUpEvent{Header: t.header(), Seat: p.Seat, Address: addr, Amount: need})
		e.logger.Debug("Stack topped up", "game", id, "seat", p.Seat, "amount", need)
		return nil
	})
	return pulled, err
}

// LeaveGame cashes out a player who is not in a hand.
func (e *GameEngine) LeaveGame(ctx context.Context, id uint64, addr protocol.Address) error {
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		p := g.Player(addr)
		if p == nil {
			return fmt.Errorf("%w: %s in game %d", protocol.ErrNotParticipant, addr, id)
		}
		if g.State.InHand() && p.InHand {
			return fmt.Errorf("%w: %s is in a hand", protocol.ErrIllegalAction, addr)
		}
		paid, err := g.PaidOut.Add(p.Stack)
		if err != nil {
			return err
		}
		if p.Stack > 0 {
			if err := e.ledger.Transfer(t.ctx, addr, p.Stack); err != nil {
				return fmt.Errorf("cash out %s: %w", addr, err)
			}
		}
		g.PaidOut = paid
		g.Seats[p.Seat] = nil
		t.emit(PlayerLeftEvent{Header: t.header(), Seat: p.Seat, Address: addr, CashOut: p.Stack})
		e.logger.Info("Player left", "game", id, "seat", p.Seat, "address", addr, "cash_out", p.Stack)
		return nil
	})
}

// DealHand starts a hand with every seated player who has chips.
func (e *GameEngine) DealHand(ctx context.Context, id uint64) error {
	return e.update(ctx, id, e.deal)
}

func funded(p *Player) bool { return p != nil && p.Stack > 0 }

func (e *GameEngine) deal(t *tx) error {
	g := t.g
	if g.State != Waiting {
		return fmt.Errorf("%w: cannot deal during %s", protocol.ErrIllegalAction, g.State)
	}
	var players []*Player
	for _, p := range g.Seats {
		if funded(p) {
			players = append(players, p)
		}
	}
	if len(players) < 2 {
		return fmt.Errorf("%w: %d players with chips", protocol.ErrInvalidPlayerCount, len(players))
	}

	button := g.nextSeat(g.Button, funded)
	sb, bb := button, g.nextSeat(button, funded)
	if len(players) > 2 {
		sb = bb
		bb = g.nextSeat(sb, funded)
	}

	sessionID, err := e.dealer.OpenSession(t.ctx, g.Seats[button].Address, len(players))
	if err != nil {
		return err
	}
	keys := make([]protocol.Hash, len(players))
	addrs := make([]protocol.Address, len(players))
	for i, p := range players {
		if err := e.dealer.RegisterCommitment(t.ctx, sessionID, p.Address, p.PublicKey); err != nil {
			return err
		}
		addrs[i], keys[i] = p.Address, p.PublicKey
	}
	block, err := e.dealer.LockEntropy(t.ctx, sessionID)
	if err != nil {
		return err
	}

	for _, p := range g.Seats {
		if p != nil {
			p.resetHand()
			p.InHand = funded(p)
		}
	}
	g.Button, g.SmallBlindAt, g.BigBlindAt = button, sb, bb
	g.HandNumber++
	g.SessionID = sessionID
	g.EntropyHash = protocol.ZeroHash
	g.ShowdownDeadline = 0
	g.State = PreFlop

	sbp, bbp := g.Seats[sb], g.Seats[bb]
	if err := g.commit(sbp, min(g.SmallBlind, sbp.Stack)); err != nil {
		return err
	}
	if err := g.commit(bbp, min(g.BigBlind, bbp.Stack)); err != nil {
		return err
	}
	g.CurrentBet = g.BigBlind

	// Heads-up the button posts the small blind, so the seat after it is
	// the big blind and opens preflop.
	g.ActionCursor = g.nextSeat(button, (*Player).canAct)

	t.emit(HandCreatedEvent{
		Header:       t.header(),
		HandNumber:   g.HandNumber,
		SessionID:    sessionID,
		Button:       button,
		SmallBlind:   sb,
		BigBlind:     bb,
		EntropyBlock: block,
		Players:      addrs,
		PublicKeys:   keys,
	})
	e.logger.Info("Hand dealt", "game", g.ID, "hand", g.HandNumber, "session", sessionID, "button", button, "players", len(players), "entropy_block", block)
	return e.progress(t)
}

// ensureEntropy captures the session's anchor hash on first use.
func (e *GameEngine) ensureEntropy(t *tx) error {
	g := t.g
	if !g.EntropyHash.IsZero() {
		return nil
	}
	h, err := e.dealer.CaptureEntropy(t.ctx, g.SessionID)
	if err != nil {
		if errors.Is(err, protocol.ErrEntropyExpired) {
			e.logger.Warn("Entropy expired, hand must be voided", "game", g.ID, "hand", g.HandNumber)
		}
		return err
	}
	g.EntropyHash = h
	t.emit(EntropyCapturedEvent{Header: t.header(), SessionID: g.SessionID, EntropyHash: h})
	return nil
}

// CaptureEntropy records the current hand's anchor hash.
func (e *GameEngine) CaptureEntropy(ctx context.Context, id uint64) (protocol.Hash, error) {
	var h protocol.Hash
	err := e.update(ctx, id, func(t *tx) error {
		if !t.g.State.InHand() {
			return fmt.Errorf("%w: no hand in progress", protocol.ErrIllegalAction)
		}
		if err := e.ensureEntropy(t); err != nil {
			return err
		}
		h = t.g.EntropyHash
		return nil
	})
	return h, err
}

// PlayerAction applies a betting decision from the player on the cursor.
// For Raise, amount is the total bet the player raises to.
func (e *GameEngine) PlayerAction(ctx context.Context, id uint64, addr protocol.Address, action Action, amount chips.Amount) error {
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		if !g.State.Betting() || g.Settlement != nil {
			return fmt.Errorf("%w: no betting during %s", protocol.ErrIllegalAction, g.State)
		}
		p := g.ToAct()
		if p == nil || p.Address != addr {
			return fmt.Errorf("%w: %s", protocol.ErrOutOfTurn, addr)
		}
		if err := e.ensureEntropy(t); err != nil {
			return err
		}

		moved, err := g.applyAction(p, action, amount)
		if err != nil {
			return err
		}
		t.emit(ActionTakenEvent{
			Header:     t.header(),
			HandNumber: g.HandNumber,
			Seat:       p.Seat,
			Address:    addr,
			Action:     action.String(),
			Amount:     amount,
			Moved:      moved,
			PotAfter:   g.Pot,
			State:      g.State.String(),
		})
		e.logger.Debug("Action", "game", id, "seat", p.Seat, "action", action, "moved", moved, "pot", g.Pot)

		g.ActionCursor = g.nextSeat(g.ActionCursor, (*Player).canAct)
		return e.progress(t)
	})
}

// progress settles a fold-out, or closes finished betting rounds, running
// out streets nobody can bet on.
func (e *GameEngine) progress(t *tx) error {
	g := t.g
	if len(g.contenders()) == 1 {
		return e.awardUncontested(t)
	}
	if !g.roundComplete() {
		return nil
	}
	for g.State != Showdown && g.roundComplete() {
		g.advanceStreet()
		t.emit(StreetAdvancedEvent{Header: t.header(), HandNumber: g.HandNumber, State: g.State.String(), Pot: g.Pot})
		e.logger.Debug("Street advanced", "game", g.ID, "state", g.State, "pot", g.Pot)
	}
	if g.State == Showdown {
		head, err := e.blocks.BlockNumber(t.ctx)
		if err != nil {
			return fmt.Errorf("read block number: %w", err)
		}
		g.ShowdownDeadline = head + e.cfg.RevealWindow
	}
	return nil
}

func (e *GameEngine) awardUncontested(t *tx) error {
	winner := t.g.contenders()[0]
	return e.beginSettlement(t, SettleUncontested, "", []Award{{Seat: winner.Seat, Amount: t.g.Pot}})
}

// autoDeal deals the next hand when the table asks for it. A failed deal
// leaves the game as it was; the operation that triggered it still stands.
func (e *GameEngine) autoDeal(t *tx) {
	if !t.g.AutoDeal || t.g.State != Waiting {
		return
	}
	saved, err := t.g.clone()
	if err != nil {
		e.logger.Error("Not dealing next hand", "game", t.g.ID, "error", err)
		return
	}
	emitted := len(t.events)
	if err := e.deal(t); err != nil {
		*t.g = *saved
		t.events = t.events[:emitted]
		e.logger.Debug("Not dealing next hand", "game", t.g.ID, "reason", err)
	}
}

// reachedStreet is the latest street whose cards are public.
func reachedStreet(s State) (fairdeck.Street, bool) {
	if s == Showdown {
		return fairdeck.River, true
	}
	return s.Street()
}

// SubmitStreetCards relays a player's locally derived board cards for a
// street the hand has reached.
func (e *GameEngine) SubmitStreetCards(ctx context.Context, id uint64, addr protocol.Address, street fairdeck.Street, cards []poker.Card) error {
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		reached, ok := reachedStreet(g.State)
		if !ok || street > reached || g.Settlement != nil {
			return fmt.Errorf("%w: %s not reached during %s", protocol.ErrIllegalAction, street, g.State)
		}
		p := g.Player(addr)
		if !p.contending() {
			return fmt.Errorf("%w: %s is not contending", protocol.ErrNotParticipant, addr)
		}
		if err := e.ensureEntropy(t); err != nil {
			return err
		}
		if err := e.dealer.SubmitStreetCards(t.ctx, g.SessionID, addr, street, cards); err != nil {
			return err
		}
		t.emit(BoardSubmittedEvent{Header: t.header(), Address: addr, Street: street.String(), Cards: cards})
		return nil
	})
}

// RevealHand opens a contender's commitment at showdown and registers the
// key for their next hand. The pot is settled once every contender has
// revealed.
func (e *GameEngine) RevealHand(ctx context.Context, id uint64, addr protocol.Address, secret, nextPublicKey protocol.Hash) error {
	if nextPublicKey.IsZero() {
		return fmt.Errorf("%w: empty next public key", protocol.ErrInvalidKey)
	}
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		if g.State != Showdown {
			return fmt.Errorf("%w: cannot reveal during %s", protocol.ErrIllegalAction, g.State)
		}
		p := g.Player(addr)
		if !p.contending() {
			return fmt.Errorf("%w: %s is not contending", protocol.ErrNotParticipant, addr)
		}
		if p.Revealed {
			// A reveal whose payouts were cut short finishes them on retry.
			if g.Settlement != nil && protocol.VerifyCommitment(p.PublicKey, secret) {
				return e.finishSettlement(t)
			}
			return fmt.Errorf("%w: %s", protocol.ErrAlreadyRevealed, addr)
		}
		if g.Settlement != nil {
			return fmt.Errorf("%w: hand %d is settling", protocol.ErrIllegalAction, g.HandNumber)
		}
		if err := e.ensureEntropy(t); err != nil {
			return err
		}

		reveal, err := e.dealer.CloseHand(t.ctx, g.SessionID, addr, secret)
		if err != nil {
			return err
		}
		rank, err := poker.EvaluateBestHand(reveal.Cards())
		if err != nil {
			return err
		}
		p.Revealed = true
		p.Cards = reveal.Cards()
		p.Rank = &rank
		p.NextPublicKey = nextPublicKey
		t.emit(HandRevealedEvent{Header: t.header(), Seat: p.Seat, Address: addr, Cards: p.Cards, Rank: rank})
		e.logger.Info("Hand revealed", "game", id, "seat", p.Seat, "cards", poker.FormatCards(p.Cards), "rank", rank)

		for _, c := range g.contenders() {
			if !c.Revealed {
				return nil
			}
		}
		return e.settle(t)
	})
}

func (e *GameEngine) settle(t *tx) error {
	pots, err := t.g.CalculatePots()
	if err != nil {
		return err
	}
	awards, err := t.g.showdownAwards(pots)
	if err != nil {
		return err
	}
	e.logger.Debug("Pots calculated", "game", t.g.ID, "hand", t.g.HandNumber, "pots", len(pots))
	return e.beginSettlement(t, SettleShowdown, "", awards)
}

// VoidHand abandons a hand whose fairness cannot be established: its
// entropy expired, or the reveal window passed with contenders still
// unrevealed. Every contribution is refunded through the ledger. A hand
// whose settlement was interrupted is finished instead.
func (e *GameEngine) VoidHand(ctx context.Context, id uint64) error {
	return e.update(ctx, id, func(t *tx) error {
		g := t.g
		if !g.State.InHand() {
			return fmt.Errorf("%w: no hand in progress", protocol.ErrIllegalAction)
		}
		if g.Settlement != nil {
			return e.finishSettlement(t)
		}
		session, err := e.dealer.Session(t.ctx, g.SessionID)
		if err != nil {
			return err
		}

		var reason string
		switch {
		case session.Status == dealer.StatusVoid:
			reason = session.VoidReason
		case g.State == Showdown:
			head, err := e.blocks.BlockNumber(t.ctx)
			if err != nil {
				return fmt.Errorf("read block number: %w", err)
			}
			if head <= g.ShowdownDeadline {
				return fmt.Errorf("%w: reveal window open until block %d, head %d", protocol.ErrIllegalAction, g.ShowdownDeadline, head)
			}
			reason = "reveal timeout"
			if err := e.dealer.Void(t.ctx, g.SessionID, reason); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: hand %d can still complete", protocol.ErrIllegalAction, g.HandNumber)
		}

		var refunds []Award
		for _, seat := range g.actingOrder() {
			if p := g.Seats[seat]; p != nil && p.TotalCommitted > 0 {
				refunds = append(refunds, Award{Seat: seat, Amount: p.TotalCommitted})
			}
		}
		return e.beginSettlement(t, SettleVoid, reason, refunds)
	})
}
