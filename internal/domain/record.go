package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind distinguishes the source entity of a TransactionRecord.
type RecordKind string

const (
	KindInvoice RecordKind = "invoice"
	KindPayout  RecordKind = "payout"
)

// TransactionRecord is a derived, read-only view unifying invoice and
// payout events for display. Records are always recomputed from the
// source entities and never persisted independently.
type TransactionRecord struct {
	Kind        RecordKind
	ID          string
	RecipientID string
	Amount      decimal.Decimal
	Status      string
	Method      string
	Timestamp   time.Time
}

// HistorySummary aggregates completed flows over a record set.
// NetFlow = TotalIn - TotalOut.
type HistorySummary struct {
	TotalIn  decimal.Decimal
	TotalOut decimal.Decimal
	NetFlow  decimal.Decimal
}
