package engine

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/methods"
)

// CreatePayoutInput carries the caller-supplied payout fields.
type CreatePayoutInput struct {
	RecipientID   string
	Amount        decimal.Decimal
	Method        string
	Priority      domain.PayoutPriority
	Description   string
	ScheduledDate *time.Time
}

// PayoutFilter narrows ListPayouts. Zero-valued fields match all.
type PayoutFilter struct {
	Status      domain.PayoutStatus
	RecipientID string
	Method      string
	From        time.Time
	To          time.Time
}

// CreatePayout validates the request and, on success, debits the
// recipient's wallet and records the payout in processing state.
//
// Validation order (first failure wins, nothing is mutated on any
// failure): recipient exists, amount positive, method known, amount
// within method bounds, withdrawable balance sufficient. The debit
// happens at creation rather than completion so two racing requests
// cannot overcommit the same balance.
func (e *Engine) CreatePayout(in CreatePayoutInput) (domain.Payout, error) {
	if !e.dir.Exists(in.RecipientID) {
		return domain.Payout{}, fmt.Errorf("payout for %s: %w", in.RecipientID, domain.ErrUnknownRecipient)
	}
	if !in.Amount.IsPositive() {
		return domain.Payout{}, fmt.Errorf("payout amount %s: %w", in.Amount, domain.ErrInvalidAmount)
	}
	spec, err := e.reg.Lookup(in.Method)
	if err != nil {
		return domain.Payout{}, err
	}
	if err := e.reg.Validate(in.Method, in.Amount); err != nil {
		return domain.Payout{}, err
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityStandard
	}

	// The sufficiency check runs inside the wallet guard so a racing
	// payout against the same recipient cannot slip between check and
	// debit.
	err = e.dir.UpdateWallet(in.RecipientID, func(w domain.Wallet) (domain.Wallet, error) {
		if in.Amount.GreaterThan(w.WithdrawableAmount) {
			return w, fmt.Errorf("payout of %s exceeds withdrawable %s: %w",
				in.Amount, w.WithdrawableAmount, domain.ErrInsufficientFunds)
		}
		w.WithdrawableAmount = w.WithdrawableAmount.Sub(in.Amount)
		w.Amount = w.Amount.Sub(in.Amount)
		return w, nil
	})
	if err != nil {
		return domain.Payout{}, err
	}

	p := domain.Payout{
		ID:            e.idFn(),
		RecipientID:   in.RecipientID,
		Amount:        in.Amount,
		Fee:           methods.FeeFor(spec, in.Amount),
		Method:        in.Method,
		Status:        domain.PayoutProcessing,
		Priority:      priority,
		Description:   in.Description,
		ScheduledDate: in.ScheduledDate,
		CreatedAt:     e.nowFn().UTC(),
	}

	e.mu.Lock()
	e.payouts[p.ID] = &p
	e.mu.Unlock()

	return p, nil
}

// GetPayout returns a snapshot of the payout with the given id.
func (e *Engine) GetPayout(id string) (domain.Payout, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.payouts[id]
	if !ok {
		return domain.Payout{}, fmt.Errorf("payout %s: %w", id, domain.ErrNotFound)
	}
	return *p, nil
}

// TransitionPayout moves a payout to a new status.
// processing -> completed leaves the wallet alone (funds were debited
// at creation). processing -> failed credits the amount back to both
// the withdrawable and total balances. Anything else, including a
// repeat of an already-applied transition, fails and changes nothing.
func (e *Engine) TransitionPayout(id string, next domain.PayoutStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.payouts[id]
	if !ok {
		return fmt.Errorf("payout %s: %w", id, domain.ErrNotFound)
	}
	if !domain.CanTransitionPayout(p.Status, next) {
		return fmt.Errorf("payout %s %s -> %s: %w", id, p.Status, next, domain.ErrInvalidTransition)
	}

	if next == domain.PayoutFailed {
		err := e.dir.UpdateWallet(p.RecipientID, func(w domain.Wallet) (domain.Wallet, error) {
			w.WithdrawableAmount = w.WithdrawableAmount.Add(p.Amount)
			w.Amount = w.Amount.Add(p.Amount)
			return w, nil
		})
		if err != nil {
			return fmt.Errorf("refund payout %s: %w", id, err)
		}
	}

	now := e.nowFn().UTC()
	p.Status = next
	p.ResolvedAt = &now
	return nil
}

// CancelPayout cancels a scheduled payout. Cancellation is permitted
// only while the payout is processing and, when a scheduled date is
// set, strictly before that date. It is equivalent to a
// processing -> failed transition, so the refund applies.
func (e *Engine) CancelPayout(id string) error {
	e.mu.RLock()
	p, ok := e.payouts[id]
	if !ok {
		e.mu.RUnlock()
		return fmt.Errorf("payout %s: %w", id, domain.ErrNotFound)
	}
	scheduled := p.ScheduledDate
	e.mu.RUnlock()

	if scheduled != nil && !e.nowFn().Before(*scheduled) {
		return fmt.Errorf("payout %s past scheduled date: %w", id, domain.ErrInvalidTransition)
	}
	return e.TransitionPayout(id, domain.PayoutFailed)
}

// ListPayouts returns a lazy, restartable sequence of payouts matching
// the filter, ordered by creation time descending with ties broken by
// id. Each restart observes a fresh snapshot.
func (e *Engine) ListPayouts(filter PayoutFilter) iter.Seq[domain.Payout] {
	return func(yield func(domain.Payout) bool) {
		for _, p := range e.payoutSnapshot(filter) {
			if !yield(p) {
				return
			}
		}
	}
}

func (e *Engine) payoutSnapshot(filter PayoutFilter) []domain.Payout {
	e.mu.RLock()
	out := make([]domain.Payout, 0, len(e.payouts))
	for _, p := range e.payouts {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.RecipientID != "" && p.RecipientID != filter.RecipientID {
			continue
		}
		if filter.Method != "" && p.Method != filter.Method {
			continue
		}
		if !filter.From.IsZero() && p.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && p.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, *p)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
