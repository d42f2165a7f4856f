package domain

import "github.com/shopspring/decimal"

// Wallet is the balance record attached to a recipient. Amounts carry
// two-decimal minor-unit precision and are never negative.
// Invariant: WithdrawableAmount <= Amount.
type Wallet struct {
	Amount             decimal.Decimal
	WithdrawableAmount decimal.Decimal
	CreditBalance      decimal.Decimal
}

// Validate reports whether the wallet satisfies its invariants.
func (w Wallet) Validate() error {
	if w.Amount.IsNegative() || w.WithdrawableAmount.IsNegative() || w.CreditBalance.IsNegative() {
		return ErrInvalidAmount
	}
	if w.WithdrawableAmount.GreaterThan(w.Amount) {
		return ErrInvalidAmount
	}
	return nil
}
