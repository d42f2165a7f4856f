package engine

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
)

// CreateInvoiceInput carries the caller-supplied invoice fields.
type CreateInvoiceInput struct {
	RecipientID string
	Amount      decimal.Decimal
	Description string
	MethodHint  string
	DueDate     *time.Time
}

// InvoiceFilter narrows ListInvoices. Zero-valued fields match all.
type InvoiceFilter struct {
	Status      domain.InvoiceStatus
	RecipientID string
	From        time.Time
	To          time.Time
}

// CreateInvoice appends a pending invoice for the recipient. The
// wallet is not touched; funding is an external process.
func (e *Engine) CreateInvoice(in CreateInvoiceInput) (domain.Invoice, error) {
	if !e.dir.Exists(in.RecipientID) {
		return domain.Invoice{}, fmt.Errorf("invoice for %s: %w", in.RecipientID, domain.ErrUnknownRecipient)
	}
	if !in.Amount.IsPositive() {
		return domain.Invoice{}, fmt.Errorf("invoice amount %s: %w", in.Amount, domain.ErrInvalidAmount)
	}
	if in.MethodHint != "" {
		if _, err := e.reg.Lookup(in.MethodHint); err != nil {
			return domain.Invoice{}, err
		}
	}

	inv := domain.Invoice{
		ID:          e.idFn(),
		RecipientID: in.RecipientID,
		Amount:      in.Amount,
		Status:      domain.InvoicePending,
		Description: in.Description,
		MethodHint:  in.MethodHint,
		DueDate:     in.DueDate,
		CreatedAt:   e.nowFn().UTC(),
	}

	e.mu.Lock()
	e.invoices[inv.ID] = &inv
	e.mu.Unlock()

	return inv, nil
}

// GetInvoice returns a snapshot of the invoice with the given id.
func (e *Engine) GetInvoice(id string) (domain.Invoice, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inv, ok := e.invoices[id]
	if !ok {
		return domain.Invoice{}, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	return *inv, nil
}

// TransitionInvoice moves an invoice to a new status. Only
// pending -> completed and pending -> failed are legal; any other
// request leaves the invoice unchanged.
func (e *Engine) TransitionInvoice(id string, next domain.InvoiceStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	if !domain.CanTransitionInvoice(inv.Status, next) {
		return fmt.Errorf("invoice %s %s -> %s: %w", id, inv.Status, next, domain.ErrInvalidTransition)
	}

	now := e.nowFn().UTC()
	inv.Status = next
	inv.ResolvedAt = &now
	return nil
}

// ListInvoices returns a lazy, restartable sequence of invoices
// matching the filter, ordered by creation time descending with ties
// broken by id. Each restart observes a fresh snapshot.
func (e *Engine) ListInvoices(filter InvoiceFilter) iter.Seq[domain.Invoice] {
	return func(yield func(domain.Invoice) bool) {
		for _, inv := range e.invoiceSnapshot(filter) {
			if !yield(inv) {
				return
			}
		}
	}
}

func (e *Engine) invoiceSnapshot(filter InvoiceFilter) []domain.Invoice {
	e.mu.RLock()
	out := make([]domain.Invoice, 0, len(e.invoices))
	for _, inv := range e.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.RecipientID != "" && inv.RecipientID != filter.RecipientID {
			continue
		}
		if !filter.From.IsZero() && inv.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && inv.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, *inv)
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
