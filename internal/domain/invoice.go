package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus tracks where an invoice is in its lifecycle.
// pending is the initial state; completed and failed are terminal.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoiceCompleted InvoiceStatus = "completed"
	InvoiceFailed    InvoiceStatus = "failed"
)

// Invoice represents money owed to a recipient. Invoices never touch
// the wallet; funding is an external process.
type Invoice struct {
	ID          string
	RecipientID string
	Amount      decimal.Decimal
	Status      InvoiceStatus
	Description string
	MethodHint  string
	DueDate     *time.Time
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}

// CanTransitionInvoice reports whether moving from to next is legal:
// only pending -> completed and pending -> failed are.
func CanTransitionInvoice(from, next InvoiceStatus) bool {
	return from == InvoicePending && (next == InvoiceCompleted || next == InvoiceFailed)
}
