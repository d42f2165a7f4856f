package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
)

// RecipientInput carries the fields accepted when registering a
// recipient. New recipients always start unverified with an empty
// wallet; balances arrive through the funding process.
type RecipientInput struct {
	FirstName     string
	LastName      string
	Email         string
	Phone         domain.Phone
	DefaultMethod string
	Metadata      map[string]string
}

// InvoiceInput carries the fields accepted when creating an invoice.
type InvoiceInput struct {
	RecipientID string
	Amount      decimal.Decimal
	Description string
	MethodHint  string
	DueDate     *time.Time
}

// PayoutInput carries the fields accepted when creating a payout.
type PayoutInput struct {
	RecipientID   string
	Amount        decimal.Decimal
	Method        string
	Priority      domain.PayoutPriority
	Description   string
	ScheduledDate *time.Time
}

// SearchInput narrows a recipient search.
type SearchInput struct {
	Status domain.RecipientStatus
	Method string
	Text   string
	Sort   string
}

// Overview aggregates the dashboard-style quick stats.
type Overview struct {
	TotalRecipients  int
	VerifiedCount    int
	TotalWalletValue decimal.Decimal
	TotalPayouts     int
	ProcessingCount  int
	CompletedToday   int
	TotalPaidOut     decimal.Decimal
}
