package bank

import (
	"errors"
	"sync"

	cmtlog "github.com/cometbft/cometbft/libs/log"
)

// CustodyAccount holds the pooled treasury funds. Member stakes and proposal
// payouts all move through it.
const CustodyAccount = "treasury-custody"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Transfer is the external value-transfer service backing the treasury.
// Deposit pulls funds from a caller into treasury custody; Withdraw pays
// funds out of custody. Either call can fail, and the failure must abort the
// enclosing governance operation.
type Transfer interface {
	Deposit(from string, amount uint64) error
	Withdraw(to string, amount uint64) error
}

// Ledger is an in-memory Transfer implementation keeping per-account
// balances. It backs the daemon in local mode and the test suite.
type Ledger struct {
	mtx    sync.RWMutex
	logger cmtlog.Logger

	balances map[string]uint64
}

func NewLedger(logger cmtlog.Logger) *Ledger {
	return &Ledger{
		logger:   logger.With("module", "bank"),
		balances: make(map[string]uint64),
	}
}

// Fund seeds an account balance. Used by genesis and tests only.
func (l *Ledger) Fund(account string, amount uint64) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.balances[account] += amount
}

func (l *Ledger) Balance(account string) uint64 {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.balances[account]
}

func (l *Ledger) Deposit(from string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[CustodyAccount] += amount
	l.logger.Debug("deposit", "from", from, "amount", amount, "custody", l.balances[CustodyAccount])
	return nil
}

func (l *Ledger) Withdraw(to string, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.balances[CustodyAccount] < amount {
		return ErrInsufficientBalance
	}
	l.balances[CustodyAccount] -= amount
	l.balances[to] += amount
	l.logger.Debug("withdraw", "to", to, "amount", amount, "custody", l.balances[CustodyAccount])
	return nil
}

var _ Transfer = (*Ledger)(nil)
