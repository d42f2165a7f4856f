package history

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/engine"
)

// Filter selects the window and optional narrowing for a history read.
// Zero-valued fields match all.
type Filter struct {
	From        time.Time
	To          time.Time
	Kind        domain.RecordKind
	Status      string
	Method      string
	RecipientID string
}

// Result carries the merged timeline plus its summary totals.
type Result struct {
	Records []domain.TransactionRecord
	Summary domain.HistorySummary
}

// Aggregator is the pure read-side over the engine's invoice and
// payout records. It performs no mutation and is safe to call while
// writers run: it only consumes the engine's snapshot sequences.
type Aggregator struct {
	eng *engine.Engine
}

// New returns an aggregator reading from the given engine.
func New(eng *engine.Engine) *Aggregator {
	return &Aggregator{eng: eng}
}

// Query merges invoices and payouts matching the filter into a single
// timeline ordered by timestamp descending (ties broken by id), and
// computes TotalIn (completed invoices), TotalOut (completed payouts)
// and NetFlow = TotalIn - TotalOut.
func (a *Aggregator) Query(f Filter) Result {
	var records []domain.TransactionRecord

	if f.Kind == "" || f.Kind == domain.KindInvoice {
		for inv := range a.eng.ListInvoices(engine.InvoiceFilter{
			Status:      domain.InvoiceStatus(f.Status),
			RecipientID: f.RecipientID,
			From:        f.From,
			To:          f.To,
		}) {
			if f.Method != "" && inv.MethodHint != f.Method {
				continue
			}
			records = append(records, domain.TransactionRecord{
				Kind:        domain.KindInvoice,
				ID:          inv.ID,
				RecipientID: inv.RecipientID,
				Amount:      inv.Amount,
				Status:      string(inv.Status),
				Method:      inv.MethodHint,
				Timestamp:   inv.CreatedAt,
			})
		}
	}

	if f.Kind == "" || f.Kind == domain.KindPayout {
		for p := range a.eng.ListPayouts(engine.PayoutFilter{
			Status:      domain.PayoutStatus(f.Status),
			RecipientID: f.RecipientID,
			Method:      f.Method,
			From:        f.From,
			To:          f.To,
		}) {
			records = append(records, domain.TransactionRecord{
				Kind:        domain.KindPayout,
				ID:          p.ID,
				RecipientID: p.RecipientID,
				Amount:      p.Amount,
				Status:      string(p.Status),
				Method:      p.Method,
				Timestamp:   p.CreatedAt,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID < records[j].ID
	})

	return Result{
		Records: records,
		Summary: summarize(records),
	}
}

func summarize(records []domain.TransactionRecord) domain.HistorySummary {
	totalIn := decimal.Zero
	totalOut := decimal.Zero
	for _, rec := range records {
		switch {
		case rec.Kind == domain.KindInvoice && rec.Status == string(domain.InvoiceCompleted):
			totalIn = totalIn.Add(rec.Amount)
		case rec.Kind == domain.KindPayout && rec.Status == string(domain.PayoutCompleted):
			totalOut = totalOut.Add(rec.Amount)
		}
	}
	return domain.HistorySummary{
		TotalIn:  totalIn,
		TotalOut: totalOut,
		NetFlow:  totalIn.Sub(totalOut),
	}
}
