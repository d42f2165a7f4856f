package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/dragonpay/backend/internal/domain"
)

const recordInvoiceCypher = `
MERGE (r:Recipient {recipientId: $recipientId})
MERGE (i:Invoice {invoiceId: $invoiceId})
SET i += $props
MERGE (r)-[:BILLED]->(i)
`

const recordPayoutCypher = `
MERGE (r:Recipient {recipientId: $recipientId})
MERGE (p:Payout {payoutId: $payoutId})
SET p += $props
MERGE (r)-[:PAID_VIA {method: $method}]->(p)
`

// Archiver mirrors invoice and payout events into the graph store.
// It is a write-only side channel: the engine's in-memory records stay
// authoritative, and a failed mirror write never affects the ledger.
type Archiver struct {
	client Client
}

// NewArchiver wraps the given client.
func NewArchiver(client Client) *Archiver {
	return &Archiver{client: client}
}

// RecordInvoice upserts the invoice node and its recipient edge.
func (a *Archiver) RecordInvoice(ctx context.Context, inv domain.Invoice) error {
	props := map[string]any{
		"amount":    inv.Amount.String(),
		"status":    string(inv.Status),
		"createdAt": inv.CreatedAt.UTC().Format(time.RFC3339),
	}
	if inv.MethodHint != "" {
		props["methodHint"] = inv.MethodHint
	}
	if inv.ResolvedAt != nil {
		props["resolvedAt"] = inv.ResolvedAt.UTC().Format(time.RFC3339)
	}

	err := a.client.ExecuteWrite(ctx, recordInvoiceCypher, map[string]any{
		"recipientId": inv.RecipientID,
		"invoiceId":   inv.ID,
		"props":       props,
	})
	if err != nil {
		return fmt.Errorf("archive invoice %s: %w", inv.ID, err)
	}
	return nil
}

// RecordPayout upserts the payout node and its recipient edge.
func (a *Archiver) RecordPayout(ctx context.Context, p domain.Payout) error {
	props := map[string]any{
		"amount":    p.Amount.String(),
		"fee":       p.Fee.String(),
		"status":    string(p.Status),
		"priority":  string(p.Priority),
		"createdAt": p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ResolvedAt != nil {
		props["resolvedAt"] = p.ResolvedAt.UTC().Format(time.RFC3339)
	}

	err := a.client.ExecuteWrite(ctx, recordPayoutCypher, map[string]any{
		"recipientId": p.RecipientID,
		"payoutId":    p.ID,
		"method":      p.Method,
		"props":       props,
	})
	if err != nil {
		return fmt.Errorf("archive payout %s: %w", p.ID, err)
	}
	return nil
}
