package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/methods"
)

// Engine owns the invoice and payout lifecycles. It validates against
// the method registry, debits and credits wallets through the
// directory's per-recipient guard, and keeps the authoritative record
// stores for both entity kinds.
type Engine struct {
	dir *directory.Directory
	reg *methods.Registry

	mu       sync.RWMutex
	invoices map[string]*domain.Invoice
	payouts  map[string]*domain.Payout

	nowFn func() time.Time
	idFn  func() string
}

// New constructs an Engine over the given directory and registry.
func New(dir *directory.Directory, reg *methods.Registry) *Engine {
	return &Engine{
		dir:      dir,
		reg:      reg,
		invoices: make(map[string]*domain.Invoice),
		payouts:  make(map[string]*domain.Payout),
		nowFn:    time.Now,
		idFn:     func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (e *Engine) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		e.nowFn = nowFn
	}
}

// WithIDGenerator overrides the id provider (used primarily in tests).
func (e *Engine) WithIDGenerator(idFn func() string) {
	if idFn != nil {
		e.idFn = idFn
	}
}

// Balance reports the ledger totals across all wallets. Because
// payouts debit the wallet at creation, withdrawable balances already
// exclude in-flight amounts: Available needs no further subtraction,
// Pending is the sum of processing payouts, Total is their sum.
type Balance struct {
	Available decimal.Decimal
	Pending   decimal.Decimal
	Total     decimal.Decimal
}

// GetBalance computes the aggregate available/pending/total view.
func (e *Engine) GetBalance() Balance {
	available := decimal.Zero
	for _, w := range e.dir.Wallets() {
		available = available.Add(w.WithdrawableAmount)
	}

	pending := decimal.Zero
	e.mu.RLock()
	for _, p := range e.payouts {
		if p.Status == domain.PayoutProcessing {
			pending = pending.Add(p.Amount)
		}
	}
	e.mu.RUnlock()

	return Balance{
		Available: available,
		Pending:   pending,
		Total:     available.Add(pending),
	}
}
