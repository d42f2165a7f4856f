package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
)

func TestRecordInvoiceWritesNodeAndEdge(t *testing.T) {
	client := NewMemoryClient()
	archiver := NewArchiver(client)

	resolved := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	inv := domain.Invoice{
		ID:          "INV-1",
		RecipientID: "RCP-1",
		Amount:      decimal.RequireFromString("80.00"),
		Status:      domain.InvoiceCompleted,
		MethodHint:  "ach",
		CreatedAt:   resolved.Add(-time.Hour),
		ResolvedAt:  &resolved,
	}

	if err := archiver.RecordInvoice(context.Background(), inv); err != nil {
		t.Fatalf("record invoice failed: %v", err)
	}

	calls := client.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Query, "BILLED") {
		t.Fatalf("expected BILLED edge in query: %s", calls[0].Query)
	}
	if calls[0].Params["invoiceId"] != "INV-1" {
		t.Fatalf("unexpected invoice id param: %v", calls[0].Params["invoiceId"])
	}

	props := calls[0].Params["props"].(map[string]any)
	if props["amount"] != "80" {
		t.Fatalf("expected amount 80, got %v", props["amount"])
	}
	if props["resolvedAt"] != resolved.Format(time.RFC3339) {
		t.Fatalf("unexpected resolvedAt: %v", props["resolvedAt"])
	}
}

func TestRecordPayoutWritesMethodEdge(t *testing.T) {
	client := NewMemoryClient()
	archiver := NewArchiver(client)

	p := domain.Payout{
		ID:          "PAY-1",
		RecipientID: "RCP-1",
		Amount:      decimal.RequireFromString("30.00"),
		Fee:         decimal.RequireFromString("0.25"),
		Method:      "ach",
		Status:      domain.PayoutProcessing,
		Priority:    domain.PriorityStandard,
		CreatedAt:   time.Now().UTC(),
	}

	if err := archiver.RecordPayout(context.Background(), p); err != nil {
		t.Fatalf("record payout failed: %v", err)
	}

	calls := client.WriteCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(calls))
	}
	if calls[0].Params["method"] != "ach" {
		t.Fatalf("expected method param, got %v", calls[0].Params["method"])
	}
}

func TestRecordPayoutPropagatesClientError(t *testing.T) {
	wantErr := errors.New("session expired")
	archiver := NewArchiver(NewMemoryClient().WithError(wantErr))

	err := archiver.RecordPayout(context.Background(), domain.Payout{ID: "PAY-1"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}
