package chips

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/fairpoker/internal/protocol"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
)

// Ledger is an in-memory token ledger with ERC-20 style allowances.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[protocol.Address]Amount
	allowances map[protocol.Address]map[protocol.Address]Amount
	supply     Amount
	logger     *log.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger *log.Logger) *Ledger {
	return &Ledger{
		balances:   make(map[protocol.Address]Amount),
		allowances: make(map[protocol.Address]map[protocol.Address]Amount),
		logger:     logger.WithPrefix("ledger"),
	}
}

// Mint credits new chips to an account.
func (l *Ledger) Mint(ctx context.Context, to protocol.Address, amount Amount) error {
	if to.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, err := l.supply.Add(amount)
	if err != nil {
		return err
	}
	bal, err := l.balances[to].Add(amount)
	if err != nil {
		return err
	}
	l.supply = supply
	l.balances[to] = bal
	l.logger.Debug("Minted", "to", to, "amount", amount)
	return nil
}

// Approve sets how much spender may pull from owner.
func (l *Ledger) Approve(ctx context.Context, owner, spender protocol.Address, amount Amount) error {
	if owner.IsZero() || spender.IsZero() {
		return ErrZeroAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[protocol.Address]Amount)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the remaining amount spender may pull from owner.
func (l *Ledger) Allowance(ctx context.Context, owner, spender protocol.Address) (Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender], nil
}

// BalanceOf returns an account balance.
func (l *Ledger) BalanceOf(ctx context.Context, addr protocol.Address) (Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}

// TotalSupply returns all chips ever minted.
func (l *Ledger) TotalSupply() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// TransferFrom moves amount from owner to spender, consuming allowance that
// owner granted spender.
func (l *Ledger) TransferFrom(ctx context.Context, owner, spender protocol.Address, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowances[owner][spender]
	if allowed < amount {
		return fmt.Errorf("%w: %s allows %s to pull %d, need %d", ErrInsufficientAllowance, owner, spender, allowed, amount)
	}
	if err := l.moveLocked(owner, spender, amount); err != nil {
		return err
	}
	l.allowances[owner][spender] = allowed - amount
	return nil
}

// Transfer moves amount between two accounts.
func (l *Ledger) Transfer(ctx context.Context, from, to protocol.Address, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveLocked(from, to, amount)
}

func (l *Ledger) moveLocked(from, to protocol.Address, amount Amount) error {
	if from.IsZero() || to.IsZero() {
		return ErrZeroAddress
	}
	fromBal, err := l.balances[from].Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficientBalance, from, l.balances[from], amount)
	}
	l.balances[from] = fromBal
	// Cannot overflow: total supply bounds every balance.
	l.balances[to] += amount
	l.logger.Debug("Transferred", "from", from, "to", to, "amount", amount)
	return nil
}

// Account returns a view of the ledger acting as addr, the shape a game
// engine expects of its chip custodian.
func (l *Ledger) Account(addr protocol.Address) *Account {
	return &Account{ledger: l, addr: addr}
}

// Account is a ledger handle bound to one account: Transfer pays out of it
// and TransferFrom pulls into it.
type Account struct {
	ledger *Ledger
	addr   protocol.Address
}

// Address returns the bound account.
func (a *Account) Address() protocol.Address { return a.addr }

// BalanceOf returns any account's balance.
func (a *Account) BalanceOf(ctx context.Context, addr protocol.Address) (Amount, error) {
	return a.ledger.BalanceOf(ctx, addr)
}

// TransferFrom pulls amount from owner into spender under owner's allowance.
func (a *Account) TransferFrom(ctx context.Context, owner, spender protocol.Address, amount Amount) error {
	return a.ledger.TransferFrom(ctx, owner, spender, amount)
}

// Transfer pays amount from the bound account.
func (a *Account) Transfer(ctx context.Context, to protocol.Address, amount Amount) error {
	return a.ledger.Transfer(ctx, a.addr, to, amount)
}
