package dealer

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/chain"
	"github.com/lox/fairpoker/internal/fairdeck"
	"github.com/lox/fairpoker/internal/protocol"
	"github.com/lox/fairpoker/internal/store"
)

type harness struct {
	dealer *Dealer
	chain  *chain.LocalChain
	store  *store.Memory
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	c := chain.NewLocalChain(quartz.NewMock(t), logger,
		chain.WithRetention(8), chain.WithSalt(protocol.Keccak256([]byte(t.Name()))))
	st := store.NewMemory()
	return &harness{dealer: New(c, st, logger, cfg), chain: c, store: st}
}

func secretFor(name string) protocol.Hash {
	return protocol.Keccak256([]byte("secret:" + name))
}

// openCaptured registers the named players, locks and captures entropy.
func (h *harness) openCaptured(t *testing.T, names ...string) uint64 {
	t.Helper()
	ctx := context.Background()
	id, err := h.dealer.OpenSession(ctx, protocol.Address(names[0]), len(names))
	require.NoError(t, err)
	for _, n := range names {
		require.NoError(t, h.dealer.RegisterCommitment(ctx, id, protocol.Address(n), protocol.Commit(secretFor(n))))
	}
	_, err = h.dealer.LockEntropy(ctx, id)
	require.NoError(t, err)
	h.chain.Mine()
	_, err = h.dealer.CaptureEntropy(ctx, id)
	require.NoError(t, err)
	return id
}

func TestRegisterCommitment(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	id, err := h.dealer.OpenSession(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	err = h.dealer.RegisterCommitment(ctx, id, "alice", protocol.ZeroHash)
	require.ErrorIs(t, err, protocol.ErrInvalidKey)

	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))
	err = h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice2")))
	require.ErrorIs(t, err, protocol.ErrDuplicateParticipant)

	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))
	err = h.dealer.RegisterCommitment(ctx, id, "carol", protocol.Commit(secretFor("carol")))
	require.ErrorIs(t, err, protocol.ErrSessionFull)

	err = h.dealer.RegisterCommitment(ctx, 99, "carol", protocol.Commit(secretFor("carol")))
	require.ErrorIs(t, err, protocol.ErrSessionNotFound)

	s, err := h.dealer.Session(ctx, id)
	require.NoError(t, err)
	require.Len(t, s.Participants, 2)
	assert.Equal(t, protocol.Address("alice"), s.Participants[0].Address)
}

func TestOpenSessionValidatesPlayerCount(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	_, err := h.dealer.OpenSession(context.Background(), "alice", 1)
	require.ErrorIs(t, err, protocol.ErrInvalidPlayerCount)
}

func TestLockEntropy(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	h.chain.MineN(5)

	id, err := h.dealer.OpenSession(ctx, "alice", 3)
	require.NoError(t, err)
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))

	_, err = h.dealer.LockEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrInvalidPlayerCount)

	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))
	block, err := h.dealer.LockEntropy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), block, "anchor is strictly after the head")

	_, err = h.dealer.LockEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrEntropyLocked)

	err = h.dealer.RegisterCommitment(ctx, id, "carol", protocol.Commit(secretFor("carol")))
	require.ErrorIs(t, err, protocol.ErrSessionLocked)
}

func TestCaptureEntropyBeforeAndAfterAnchor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	id, err := h.dealer.OpenSession(ctx, "alice", 2)
	require.NoError(t, err)
	_, err = h.dealer.CaptureEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrEntropyNotReady)

	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))
	block, err := h.dealer.LockEntropy(ctx, id)
	require.NoError(t, err)

	_, err = h.dealer.CaptureEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrEntropyNotReady)
	s, _ := h.dealer.Session(ctx, id)
	assert.Equal(t, StatusLocked, s.Status, "a premature capture changes nothing")

	h.chain.Mine()
	first, err := h.dealer.CaptureEntropy(ctx, id)
	require.NoError(t, err)
	want, err := h.chain.BlockHash(ctx, block)
	require.NoError(t, err)
	assert.Equal(t, want, first)

	// Later captures return the stored hash, even after the block is pruned.
	h.chain.MineN(20)
	again, err := h.dealer.CaptureEntropy(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestCaptureEntropyTooLateVoidsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	id, err := h.dealer.OpenSession(ctx, "alice", 2)
	require.NoError(t, err)
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))
	_, err = h.dealer.LockEntropy(ctx, id)
	require.NoError(t, err)

	h.chain.MineN(20)
	_, err = h.dealer.CaptureEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrEntropyExpired)

	s, err := h.dealer.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, s.Status)
	assert.True(t, s.EntropyHash.IsZero())

	_, err = h.dealer.CaptureEntropy(ctx, id)
	require.ErrorIs(t, err, protocol.ErrEntropyExpired)
	_, err = h.dealer.CloseHand(ctx, id, "alice", secretFor("alice"))
	require.ErrorIs(t, err, protocol.ErrSessionClosed)
	require.NoError(t, h.dealer.Void(ctx, id, "again"))
}

func TestCloseHandCommitmentIntegrity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	id := h.openCaptured(t, "alice", "bob")

	_, err := h.dealer.CloseHand(ctx, id, "alice", secretFor("bob"))
	require.ErrorIs(t, err, protocol.ErrInvalidKey)
	s, _ := h.dealer.Session(ctx, id)
	p, _ := s.Participant("alice")
	assert.False(t, p.Revealed, "a failed reveal leaves the participant unrevealed")

	reveal, err := h.dealer.CloseHand(ctx, id, "alice", secretFor("alice"))
	require.NoError(t, err)
	want := fairdeck.DeriveHand(fairdeck.PerParticipant, s.EntropyHash, secretFor("alice"))
	assert.Equal(t, want, reveal.Hand)
	assert.Len(t, reveal.Cards(), 7)

	again, err := h.dealer.CloseHand(ctx, id, "alice", secretFor("alice"))
	require.NoError(t, err, "repeating a reveal returns the stored one")
	assert.Equal(t, reveal, again)
	_, err = h.dealer.CloseHand(ctx, id, "alice", secretFor("bob"))
	require.ErrorIs(t, err, protocol.ErrAlreadyRevealed)

	_, err = h.dealer.CloseHand(ctx, id, "mallory", secretFor("mallory"))
	require.ErrorIs(t, err, protocol.ErrNotParticipant)

	_, err = h.dealer.CloseHand(ctx, 42, "alice", secretFor("alice"))
	require.ErrorIs(t, err, protocol.ErrSessionNotFound)

	s, _ = h.dealer.Session(ctx, id)
	assert.False(t, s.AllRevealed())
	_, err = h.dealer.CloseHand(ctx, id, "bob", secretFor("bob"))
	require.NoError(t, err)
	s, _ = h.dealer.Session(ctx, id)
	assert.True(t, s.AllRevealed())
}

// closeHand succeeds exactly when keccak256(secret) is the stored key.
func TestCloseHandAcceptsOnlyMatchingSecrets(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		h := newHarness(t, DefaultConfig())
		id := h.openCaptured(t, "alice", "bob")
		wrong := protocol.Keccak256([]byte(fmt.Sprintf("guess-%d", i)))
		_, err := h.dealer.CloseHand(ctx, id, "alice", wrong)
		require.ErrorIs(t, err, protocol.ErrInvalidKey)
		_, err = h.dealer.CloseHand(ctx, id, "alice", secretFor("alice"))
		require.NoError(t, err)
	}
}

func TestSubmitStreetCards(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())

	id, err := h.dealer.OpenSession(ctx, "alice", 2)
	require.NoError(t, err)
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))
	require.NoError(t, h.dealer.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))

	anyFlop := fairdeck.Derive(protocol.ZeroHash, secretFor("x")).Cards(2, 5)
	err = h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, anyFlop)
	require.ErrorIs(t, err, protocol.ErrEntropyNotReady)

	_, err = h.dealer.LockEntropy(ctx, id)
	require.NoError(t, err)
	h.chain.Mine()
	entropy, err := h.dealer.CaptureEntropy(ctx, id)
	require.NoError(t, err)

	alice := fairdeck.DeriveHand(fairdeck.PerParticipant, entropy, secretFor("alice"))
	bob := fairdeck.DeriveHand(fairdeck.PerParticipant, entropy, secretFor("bob"))

	err = h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, alice.Street(fairdeck.Turn))
	require.ErrorIs(t, err, protocol.ErrInvalidCards)

	require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, alice.Street(fairdeck.Flop)))
	require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, alice.Street(fairdeck.Flop)), "resubmission is a no-op")
	err = h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, bob.Street(fairdeck.Flop))
	require.ErrorIs(t, err, protocol.ErrBoardMismatch)

	// Without the cross-check, participants' boards are never compared.
	require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, "bob", fairdeck.Flop, bob.Street(fairdeck.Flop)))

	err = h.dealer.SubmitStreetCards(ctx, id, "mallory", fairdeck.Turn, alice.Street(fairdeck.Turn))
	require.ErrorIs(t, err, protocol.ErrNotParticipant)

	s, err := h.dealer.Session(ctx, id)
	require.NoError(t, err)
	p, _ := s.Participant("alice")
	assert.Equal(t, alice.Street(fairdeck.Flop), p.Streets[fairdeck.Flop])
}

func TestCloseHandRejectsDishonestSubmissions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	id := h.openCaptured(t, "alice", "bob")
	s, _ := h.dealer.Session(ctx, id)

	// Bob claims Alice's river, which his own secret does not produce.
	alice := fairdeck.DeriveHand(fairdeck.PerParticipant, s.EntropyHash, secretFor("alice"))
	bob := fairdeck.DeriveHand(fairdeck.PerParticipant, s.EntropyHash, secretFor("bob"))
	if assert.ObjectsAreEqual(alice.Street(fairdeck.River), bob.Street(fairdeck.River)) {
		t.Skip("derived rivers coincide for this seed")
	}
	require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, "bob", fairdeck.River, alice.Street(fairdeck.River)))

	_, err := h.dealer.CloseHand(ctx, id, "bob", secretFor("bob"))
	require.ErrorIs(t, err, protocol.ErrBoardMismatch)

	// After revealing, a submission must agree with the derived hand.
	_, err = h.dealer.CloseHand(ctx, id, "alice", secretFor("alice"))
	require.NoError(t, err)
	err = h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Turn, bob.Street(fairdeck.Turn))
	if !assert.ObjectsAreEqual(alice.Street(fairdeck.Turn), bob.Street(fairdeck.Turn)) {
		require.ErrorIs(t, err, protocol.ErrBoardMismatch)
	}
}

func TestCrossCheckBoard(t *testing.T) {
	ctx := context.Background()

	t.Run("per participant boards disagree", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CrossCheckBoard = true
		h := newHarness(t, cfg)
		id := h.openCaptured(t, "alice", "bob")
		s, _ := h.dealer.Session(ctx, id)

		alice := fairdeck.DeriveHand(cfg.Board, s.EntropyHash, secretFor("alice"))
		bob := fairdeck.DeriveHand(cfg.Board, s.EntropyHash, secretFor("bob"))
		require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, "alice", fairdeck.Flop, alice.Street(fairdeck.Flop)))

		err := h.dealer.SubmitStreetCards(ctx, id, "bob", fairdeck.Flop, bob.Street(fairdeck.Flop))
		if assert.ObjectsAreEqual(alice.Street(fairdeck.Flop), bob.Street(fairdeck.Flop)) {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, protocol.ErrBoardMismatch)
		}
	})

	t.Run("shared boards agree", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CrossCheckBoard = true
		cfg.Board = fairdeck.Shared
		h := newHarness(t, cfg)
		id := h.openCaptured(t, "alice", "bob", "carol")
		s, _ := h.dealer.Session(ctx, id)

		for _, name := range []string{"alice", "bob", "carol"} {
			hand := fairdeck.DeriveHand(cfg.Board, s.EntropyHash, secretFor(name))
			for _, street := range []fairdeck.Street{fairdeck.Flop, fairdeck.Turn, fairdeck.River} {
				require.NoError(t, h.dealer.SubmitStreetCards(ctx, id, protocol.Address(name), street, hand.Street(street)))
			}
		}
		for _, name := range []string{"alice", "bob", "carol"} {
			r, err := h.dealer.CloseHand(ctx, id, protocol.Address(name), secretFor(name))
			require.NoError(t, err)
			assert.Equal(t, fairdeck.SharedBoard(s.EntropyHash), r.Hand.Board)
		}
	})
}

func TestFinalizeAndVoid(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultConfig())
	id := h.openCaptured(t, "alice", "bob")

	require.NoError(t, h.dealer.Finalize(ctx, id))
	require.NoError(t, h.dealer.Finalize(ctx, id), "finalizing twice is a no-op")
	require.ErrorIs(t, h.dealer.Void(ctx, id, "late"), protocol.ErrSessionClosed)

	// Entropy of a closed session stays readable for audits.
	_, err := h.dealer.CaptureEntropy(ctx, id)
	require.NoError(t, err)

	other := h.openCaptured(t, "carol", "dave")
	require.NoError(t, h.dealer.Void(ctx, other, "reveal timeout"))
	s, _ := h.dealer.Session(ctx, other)
	assert.Equal(t, StatusVoid, s.Status)
	assert.Equal(t, "reveal timeout", s.VoidReason)
	require.ErrorIs(t, h.dealer.Finalize(ctx, other), protocol.ErrSessionClosed)
	hand := fairdeck.DeriveHand(fairdeck.PerParticipant, s.EntropyHash, secretFor("carol"))
	err = h.dealer.SubmitStreetCards(ctx, other, "carol", fairdeck.Turn, hand.Street(fairdeck.Turn))
	require.ErrorIs(t, err, protocol.ErrSessionClosed)
}

func TestSessionsPersistThroughSQLite(t *testing.T) {
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	st, err := store.OpenSQLite(ctx, t.TempDir()+"/dealer.db")
	require.NoError(t, err)
	defer st.Close()

	c := chain.NewLocalChain(quartz.NewMock(t), logger)
	d := New(c, st, logger, DefaultConfig())

	id, err := d.OpenSession(ctx, "alice", 2)
	require.NoError(t, err)
	require.NoError(t, d.RegisterCommitment(ctx, id, "alice", protocol.Commit(secretFor("alice"))))
	require.NoError(t, d.RegisterCommitment(ctx, id, "bob", protocol.Commit(secretFor("bob"))))
	_, err = d.LockEntropy(ctx, id)
	require.NoError(t, err)
	c.Mine()
	_, err = d.CaptureEntropy(ctx, id)
	require.NoError(t, err)
	_, err = d.CloseHand(ctx, id, "bob", secretFor("bob"))
	require.NoError(t, err)

	// A second dealer over the same store sees the same session.
	other := New(c, st, logger, DefaultConfig())
	s, err := other.Session(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, s.Status)
	p, _ := s.Participant("bob")
	assert.True(t, p.Revealed)
	require.NotNil(t, p.Hand)
	assert.Equal(t, secretFor("bob"), p.Secret)
}
