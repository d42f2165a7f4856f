package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus tracks where a payout is in its lifecycle.
// processing is the initial state; completed and failed are terminal.
type PayoutStatus string

const (
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// PayoutPriority orders payouts for downstream processing.
type PayoutPriority string

const (
	PriorityStandard PayoutPriority = "standard"
	PriorityExpress  PayoutPriority = "express"
)

// Payout represents funds leaving a recipient's wallet through a payout
// method. The wallet is debited when the payout is created; a failed
// transition credits the amount back.
type Payout struct {
	ID            string
	RecipientID   string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Method        string
	Status        PayoutStatus
	Priority      PayoutPriority
	Description   string
	ScheduledDate *time.Time
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// CanTransitionPayout reports whether moving from to next is legal:
// only processing -> completed and processing -> failed are.
func CanTransitionPayout(from, next PayoutStatus) bool {
	return from == PayoutProcessing && (next == PayoutCompleted || next == PayoutFailed)
}
