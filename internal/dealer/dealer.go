// Package dealer runs the commit-reveal shuffle for individual hands.
//
// Each participant commits keccak256(secret) before a future block is chosen
// as the entropy anchor. Once that block is mined its hash is captured, and
// every participant's cards follow from keccak256(entropyHash ‖ secret). At
// showdown a participant opens the commitment and the dealer replays the
// derivation to produce their hand.
package dealer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/fairpoker/internal/chain"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/store"
	"github.com/lox/fairpoker/poker"
)

// Config tunes dealer behaviour.
type Config struct {
	// MinParticipants must be committed before entropy can be locked.
	MinParticipants int
	// LockDistance is how many blocks past the head the anchor is placed.
	LockDistance uint64
	// Board picks how community cards are derived.
	Board fairdeck.Derivation
	// CrossCheckBoard rejects street submissions that differ from another
	// participant's submission for the same street.
	CrossCheckBoard bool
}

// DefaultConfig reproduces the per-participant protocol with no board
// cross-check.
func DefaultConfig() Config {
	return Config{
		MinParticipants: 2,
		LockDistance:    1,
		Board:           fairdeck.PerParticipant,
	}
}

// Dealer implements the commit-reveal capability over a block hash source
// and a record store. All operations are serialized.
type Dealer struct {
	mu     sync.Mutex
	cfg    Config
	source chain.Source
	store  store.Store
	logger *log.Logger
}

// New creates a dealer.
func New(source chain.Source, st store.Store, logger *log.Logger, cfg Config) *Dealer {
	if cfg.MinParticipants < 2 {
		cfg.MinParticipants = 2
	}
	if cfg.LockDistance == 0 {
		cfg.LockDistance = 1
	}
	return &Dealer{
		cfg:    cfg,
		source: source,
		store:  st,
		logger: logger.WithPrefix("dealer"),
	}
}

// Config returns the active configuration.
func (d *Dealer) Config() Config { return d.cfg }

func (d *Dealer) load(ctx context.Context, id uint64) (Session, error) {
	var s Session
	if err := d.store.Get(ctx, store.KindSession, id, &s); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: session %d", protocol.ErrSessionNotFound, id)
		}
		return Session{}, err
	}
	return s, nil
}

func (d *Dealer) save(ctx context.Context, s Session) error {
	return d.store.Put(ctx, store.KindSession, s.ID, s)
}

// OpenSession creates a session that accepts up to maxPlayers commitments.
func (d *Dealer) OpenSession(ctx context.Context, dealer protocol.Address, maxPlayers int) (uint64, error) {
	if maxPlayers < d.cfg.MinParticipants {
		return 0, fmt.Errorf("%w: max players %d", protocol.ErrInvalidPlayerCount, maxPlayers)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, err := d.store.Next(ctx, store.KindSession)
	if err != nil {
		return 0, err
	}
	s := Session{ID: id, Dealer: dealer, MaxPlayers: maxPlayers, Status: StatusOpen}
	if err := d.save(ctx, s); err != nil {
		return 0, err
	}
	d.logger.Info("Session opened", "session", id, "dealer", dealer, "max_players", maxPlayers)
	return id, nil
}

// RegisterCommitment records addr's public key for the session.
func (d *Dealer) RegisterCommitment(ctx context.Context, id uint64, addr protocol.Address, publicKey protocol.Hash) error {
	if publicKey.IsZero() {
		return fmt.Errorf("%w: empty public key", protocol.ErrInvalidKey)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return err
	}
	if s.Status != StatusOpen {
		return fmt.Errorf("%w: session %d is %s", protocol.ErrSessionLocked, id, s.Status)
	}
	if s.participant(addr) >= 0 {
		return fmt.Errorf("%w: %s in session %d", protocol.ErrDuplicateParticipant, addr, id)
	}
	if len(s.Participants) >= s.MaxPlayers {
		return fmt.Errorf("%w: session %d", protocol.ErrSessionFull, id)
	}

	s.Participants = append(s.Participants, Participant{Address: addr, PublicKey: publicKey})
	if err := d.save(ctx, s); err != nil {
		return err
	}
	d.logger.Debug("Commitment registered", "session", id, "address", addr, "key", publicKey.Short())
	return nil
}

// LockEntropy fixes the anchor block strictly after the current head. No
// further commitments are accepted.
func (d *Dealer) LockEntropy(ctx context.Context, id uint64) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if s.Status != StatusOpen {
		return 0, fmt.Errorf("%w: session %d anchored at block %d", protocol.ErrEntropyLocked, id, s.EntropyBlock)
	}
	if len(s.Participants) < d.cfg.MinParticipants {
		return 0, fmt.Errorf("%w: %d of %d participants", protocol.ErrInvalidPlayerCount, len(s.Participants), d.cfg.MinParticipants)
	}

	head, err := d.source.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("read block number: %w", err)
	}
	s.EntropyBlock = head + d.cfg.LockDistance
	s.Status = StatusLocked
	if err := d.save(ctx, s); err != nil {
		return 0, err
	}
	d.logger.Info("Entropy locked", "session", id, "block", s.EntropyBlock, "head", head)
	return s.EntropyBlock, nil
}

// CaptureEntropy records the anchor block hash. It fails with
// ErrEntropyNotReady until the block exists. If the hash has already left
// the source's retention window the session is voided and ErrEntropyExpired
// is returned. Once captured the hash never changes.
func (d *Dealer) CaptureEntropy(ctx context.Context, id uint64) (protocol.Hash, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return protocol.Hash{}, err
	}
	switch s.Status {
	case StatusOpen:
		return protocol.Hash{}, fmt.Errorf("%w: session %d has no anchor yet", protocol.ErrEntropyNotReady, id)
	case StatusCaptured, StatusClosed:
		return s.EntropyHash, nil
	case StatusVoid:
		if s.EntropyHash.IsZero() {
			return protocol.Hash{}, fmt.Errorf("%w: session %d is void", protocol.ErrEntropyExpired, id)
		}
		return s.EntropyHash, nil
	}

	h, err := d.source.BlockHash(ctx, s.EntropyBlock)
	switch {
	case errors.Is(err, chain.ErrBlockNotMined):
		return protocol.Hash{}, fmt.Errorf("%w: block %d", protocol.ErrEntropyNotReady, s.EntropyBlock)
	case errors.Is(err, chain.ErrBlockPruned):
		s.Status = StatusVoid
		s.VoidReason = "entropy expired"
		if saveErr := d.save(ctx, s); saveErr != nil {
			return protocol.Hash{}, saveErr
		}
		d.logger.Warn("Entropy expired, session void", "session", id, "block", s.EntropyBlock)
		return protocol.Hash{}, fmt.Errorf("%w: block %d", protocol.ErrEntropyExpired, s.EntropyBlock)
	case err != nil:
		return protocol.Hash{}, fmt.Errorf("read block hash: %w", err)
	}

	s.EntropyHash = h
	s.Status = StatusCaptured
	if err := d.save(ctx, s); err != nil {
		return protocol.Hash{}, err
	}
	d.logger.Info("Entropy captured", "session", id, "block", s.EntropyBlock, "hash", h.Short())
	return h, nil
}

func requireCaptured(s Session) error {
	switch s.Status {
	case StatusCaptured:
		return nil
	case StatusOpen, StatusLocked:
		return fmt.Errorf("%w: session %d", protocol.ErrEntropyNotReady, s.ID)
	}
	return fmt.Errorf("%w: session %d is %s", protocol.ErrSessionClosed, s.ID, s.Status)
}

// SubmitStreetCards stores the cards addr derived for a street. Resubmitting
// the same cards is a no-op; different cards fail with ErrBoardMismatch.
func (d *Dealer) SubmitStreetCards(ctx context.Context, id uint64, addr protocol.Address, street fairdeck.Street, cards []poker.Card) error {
	if street < fairdeck.Flop || street > fairdeck.River {
		return fmt.Errorf("%w: unknown street %d", protocol.ErrInvalidCards, street)
	}
	if len(cards) != street.Size() {
		return fmt.Errorf("%w: %s needs %d cards, got %d", protocol.ErrInvalidCards, street, street.Size(), len(cards))
	}
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: %v", protocol.ErrInvalidCards, c)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return err
	}
	if err := requireCaptured(s); err != nil {
		return err
	}
	i := s.participant(addr)
	if i < 0 {
		return fmt.Errorf("%w: %s in session %d", protocol.ErrNotParticipant, addr, id)
	}
	p := &s.Participants[i]

	if prev, ok := p.Streets[street]; ok {
		if slices.Equal(prev, cards) {
			return nil
		}
		return fmt.Errorf("%w: %s already submitted %s for the %s", protocol.ErrBoardMismatch, addr, poker.FormatCards(prev), street)
	}
	if p.Hand != nil && !slices.Equal(p.Hand.Street(street), cards) {
		return fmt.Errorf("%w: %s revealed %s on the %s", protocol.ErrBoardMismatch, addr, poker.FormatCards(p.Hand.Street(street)), street)
	}
	if d.cfg.CrossCheckBoard {
		for _, other := range s.Participants {
			theirs, ok := other.Streets[street]
			if other.Address != addr && ok && !slices.Equal(theirs, cards) {
				return fmt.Errorf("%w: %s submitted %s for the %s", protocol.ErrBoardMismatch, other.Address, poker.FormatCards(theirs), street)
			}
		}
	}

	if p.Streets == nil {
		p.Streets = make(map[fairdeck.Street][]poker.Card)
	}
	p.Streets[street] = slices.Clone(cards)
	if err := d.save(ctx, s); err != nil {
		return err
	}
	d.logger.Debug("Street cards submitted", "session", id, "address", addr, "street", street, "cards", poker.FormatCards(cards))
	return nil
}

// CloseHand opens addr's commitment and derives their seven cards. It fails
// with ErrInvalidKey unless keccak256(secret) equals the registered key.
// Repeating a successful reveal with the same secret returns the stored
// reveal; any other repeat fails with ErrAlreadyRevealed.
func (d *Dealer) CloseHand(ctx context.Context, id uint64, addr protocol.Address, secret protocol.Hash) (Reveal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return Reveal{}, err
	}
	i := s.participant(addr)
	if i < 0 {
		return Reveal{}, fmt.Errorf("%w: %s in session %d", protocol.ErrNotParticipant, addr, id)
	}
	p := &s.Participants[i]
	if p.Revealed {
		if p.Secret != secret || p.Hand == nil {
			return Reveal{}, fmt.Errorf("%w: %s in session %d", protocol.ErrAlreadyRevealed, addr, id)
		}
		return Reveal{Address: addr, Hand: *p.Hand}, nil
	}
	if err := requireCaptured(s); err != nil {
		return Reveal{}, err
	}
	if !protocol.VerifyCommitment(p.PublicKey, secret) {
		return Reveal{}, fmt.Errorf("%w: secret does not open commitment of %s", protocol.ErrInvalidKey, addr)
	}

	hand := fairdeck.DeriveHand(d.cfg.Board, s.EntropyHash, secret)
	for street, submitted := range p.Streets {
		if !slices.Equal(submitted, hand.Street(street)) {
			return Reveal{}, fmt.Errorf("%w: %s submitted %s for the %s but derives %s", protocol.ErrBoardMismatch,
				addr, poker.FormatCards(submitted), street, poker.FormatCards(hand.Street(street)))
		}
	}

	p.Revealed = true
	p.Secret = secret
	p.Hand = &hand
	if err := d.save(ctx, s); err != nil {
		return Reveal{}, err
	}
	d.logger.Info("Hand revealed", "session", id, "address", addr, "hole", poker.FormatCards(hand.Hole), "board", poker.FormatCards(hand.Board))
	return Reveal{Address: addr, Hand: hand}, nil
}

// Finalize closes a captured session permanently. Finalizing a closed
// session again is a no-op.
func (d *Dealer) Finalize(ctx context.Context, id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return err
	}
	if s.Status == StatusClosed {
		return nil
	}
	if err := requireCaptured(s); err != nil {
		return err
	}
	s.Status = StatusClosed
	if err := d.save(ctx, s); err != nil {
		return err
	}
	d.logger.Info("Session closed", "session", id)
	return nil
}

// Void marks a session unfair. Voiding an already void session is a no-op.
func (d *Dealer) Void(ctx context.Context, id uint64, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, err := d.load(ctx, id)
	if err != nil {
		return err
	}
	switch s.Status {
	case StatusVoid:
		return nil
	case StatusClosed:
		return fmt.Errorf("%w: session %d", protocol.ErrSessionClosed, id)
	}
	s.Status = StatusVoid
	s.VoidReason = reason
	if err := d.save(ctx, s); err != nil {
		return err
	}
	d.logger.Warn("Session void", "session", id, "reason", reason)
	return nil
}

// Session returns a copy of the session record.
func (d *Dealer) Session(ctx context.Context, id uint64) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return s.clone(), nil
}
