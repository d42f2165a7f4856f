package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/history"
	"github.com/dragonpay/backend/internal/methods"
)

// PayoutService is the external surface of the core. It composes the
// directory, registry, engine and history aggregator and mirrors
// terminal events into the archive without blocking callers.
type PayoutService struct {
	dir       *directory.Directory
	reg       *methods.Registry
	eng       *engine.Engine
	hist      *history.Aggregator
	publisher *Publisher

	nowFn func() time.Time
	idFn  func() string
}

// New wires a PayoutService. publisher may be nil when no archive is
// configured.
func New(dir *directory.Directory, reg *methods.Registry, eng *engine.Engine, publisher *Publisher) *PayoutService {
	return &PayoutService{
		dir:       dir,
		reg:       reg,
		eng:       eng,
		hist:      history.New(eng),
		publisher: publisher,
		nowFn:     time.Now,
		idFn:      func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *PayoutService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// CreateRecipient registers a new recipient in unverified state with
// an empty wallet.
func (s *PayoutService) CreateRecipient(ctx context.Context, in RecipientInput) (domain.Recipient, error) {
	firstName := sanitizeString(in.FirstName)
	lastName := sanitizeString(in.LastName)
	email := normalizeEmail(in.Email)
	if firstName == "" || lastName == "" || email == "" {
		return domain.Recipient{}, fmt.Errorf("first name, last name and email are required")
	}
	if in.DefaultMethod != "" {
		if _, err := s.reg.Lookup(in.DefaultMethod); err != nil {
			return domain.Recipient{}, err
		}
	}

	r := domain.Recipient{
		ID:            s.idFn(),
		FirstName:     firstName,
		LastName:      lastName,
		Email:         email,
		Phone:         domain.Phone{CountryCode: sanitizeString(in.Phone.CountryCode), Number: normalizePhone(in.Phone.Number)},
		DefaultMethod: in.DefaultMethod,
		Wallet: domain.Wallet{
			Amount:             decimal.Zero,
			WithdrawableAmount: decimal.Zero,
			CreditBalance:      decimal.Zero,
		},
		Status: domain.StatusUnverified,
		Compliance: domain.Compliance{
			TaxIDVerification: domain.VerificationUnsubmitted,
			OFACStatus:        domain.OFACPending,
		},
		Metadata:  in.Metadata,
		CreatedAt: s.nowFn().UTC(),
	}

	if err := s.dir.Add(r); err != nil {
		return domain.Recipient{}, err
	}
	return r, nil
}

// GetRecipient returns the recipient with the given id.
func (s *PayoutService) GetRecipient(ctx context.Context, id string) (domain.Recipient, error) {
	return s.dir.Find(id)
}

// SearchRecipients returns recipients matching the filters.
func (s *PayoutService) SearchRecipients(ctx context.Context, in SearchInput) []domain.Recipient {
	return s.dir.Search(directory.Query{
		Status: in.Status,
		Method: in.Method,
		Text:   in.Text,
		Sort:   directory.SortKey(in.Sort),
	})
}

// SetRecipientStatus records a compliance decision.
func (s *PayoutService) SetRecipientStatus(ctx context.Context, id string, status domain.RecipientStatus) error {
	return s.dir.SetStatus(id, status)
}

// CreditWallet funds a recipient's wallet (external funding process).
func (s *PayoutService) CreditWallet(ctx context.Context, id string, amount decimal.Decimal) error {
	return s.dir.Credit(id, amount)
}

// ListPayoutMethods returns the immutable method catalog.
func (s *PayoutService) ListPayoutMethods(ctx context.Context) []methods.Spec {
	return s.reg.List()
}

// CreateInvoice appends a pending invoice.
func (s *PayoutService) CreateInvoice(ctx context.Context, in InvoiceInput) (domain.Invoice, error) {
	inv, err := s.eng.CreateInvoice(engine.CreateInvoiceInput{
		RecipientID: in.RecipientID,
		Amount:      in.Amount,
		Description: sanitizeString(in.Description),
		MethodHint:  in.MethodHint,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return domain.Invoice{}, err
	}
	s.publishInvoice(inv)
	return inv, nil
}

// ListInvoices collects invoices matching the filter.
func (s *PayoutService) ListInvoices(ctx context.Context, filter engine.InvoiceFilter) []domain.Invoice {
	var out []domain.Invoice
	for inv := range s.eng.ListInvoices(filter) {
		out = append(out, inv)
	}
	return out
}

// TransitionInvoice applies a status transition to an invoice.
func (s *PayoutService) TransitionInvoice(ctx context.Context, id string, next domain.InvoiceStatus) error {
	if err := s.eng.TransitionInvoice(id, next); err != nil {
		return err
	}
	if inv, err := s.eng.GetInvoice(id); err == nil {
		s.publishInvoice(inv)
	}
	return nil
}

// CreatePayout validates and creates a payout, debiting the wallet.
func (s *PayoutService) CreatePayout(ctx context.Context, in PayoutInput) (domain.Payout, error) {
	p, err := s.eng.CreatePayout(engine.CreatePayoutInput{
		RecipientID:   in.RecipientID,
		Amount:        in.Amount,
		Method:        in.Method,
		Priority:      in.Priority,
		Description:   sanitizeString(in.Description),
		ScheduledDate: in.ScheduledDate,
	})
	if err != nil {
		return domain.Payout{}, err
	}
	s.publishPayout(p)
	return p, nil
}

// ListPayouts collects payouts matching the filter.
func (s *PayoutService) ListPayouts(ctx context.Context, filter engine.PayoutFilter) []domain.Payout {
	var out []domain.Payout
	for p := range s.eng.ListPayouts(filter) {
		out = append(out, p)
	}
	return out
}

// TransitionPayout applies a status transition to a payout; a failed
// transition refunds the wallet.
func (s *PayoutService) TransitionPayout(ctx context.Context, id string, next domain.PayoutStatus) error {
	if err := s.eng.TransitionPayout(id, next); err != nil {
		return err
	}
	if p, err := s.eng.GetPayout(id); err == nil {
		s.publishPayout(p)
	}
	return nil
}

// CancelPayout cancels a processing payout before its scheduled date.
func (s *PayoutService) CancelPayout(ctx context.Context, id string) error {
	if err := s.eng.CancelPayout(id); err != nil {
		return err
	}
	if p, err := s.eng.GetPayout(id); err == nil {
		s.publishPayout(p)
	}
	return nil
}

// GetBalance reports the aggregate available/pending/total balances.
func (s *PayoutService) GetBalance(ctx context.Context) engine.Balance {
	return s.eng.GetBalance()
}

// GetTransactionHistory merges invoices and payouts over the window
// and computes the summary totals.
func (s *PayoutService) GetTransactionHistory(ctx context.Context, f history.Filter) history.Result {
	return s.hist.Query(f)
}

// GetOverview computes the dashboard quick stats.
func (s *PayoutService) GetOverview(ctx context.Context) Overview {
	stats := s.dir.Stats()
	ov := Overview{
		TotalRecipients:  stats.TotalRecipients,
		VerifiedCount:    stats.VerifiedCount,
		TotalWalletValue: stats.TotalWalletValue,
		TotalPaidOut:     decimal.Zero,
	}

	startOfDay := s.nowFn().UTC().Truncate(24 * time.Hour)
	for p := range s.eng.ListPayouts(engine.PayoutFilter{}) {
		ov.TotalPayouts++
		switch p.Status {
		case domain.PayoutProcessing:
			ov.ProcessingCount++
		case domain.PayoutCompleted:
			ov.TotalPaidOut = ov.TotalPaidOut.Add(p.Amount)
			if p.ResolvedAt != nil && !p.ResolvedAt.Before(startOfDay) {
				ov.CompletedToday++
			}
		}
	}
	return ov
}

func (s *PayoutService) publishInvoice(inv domain.Invoice) {
	if s.publisher != nil {
		s.publisher.PublishInvoice(inv)
	}
}

func (s *PayoutService) publishPayout(p domain.Payout) {
	if s.publisher != nil {
		s.publisher.PublishPayout(p)
	}
}
