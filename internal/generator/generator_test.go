package generator

import (
	"context"
	"testing"

	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/methods"
	"github.com/dragonpay/backend/internal/service"
)

func TestGenerateDeterministicWithSeed(t *testing.T) {
	cfg := Config{NumRecipients: 25, NumInvoices: 50, NumPayouts: 40, Seed: 7}

	first, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	second, err := New(cfg).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if len(first.Recipients) != 25 {
		t.Fatalf("expected 25 recipients, got %d", len(first.Recipients))
	}
	if len(first.Recipients) != len(second.Recipients) || len(first.Payouts) != len(second.Payouts) {
		t.Fatal("expected deterministic output for equal seeds")
	}
	for i := range first.Recipients {
		if first.Recipients[i].Email != second.Recipients[i].Email {
			t.Fatalf("recipient %d differs between runs", i)
		}
	}
}

func TestGenerateRespectsWalletInvariant(t *testing.T) {
	dataset, err := New(Config{NumRecipients: 100, NumInvoices: 10, NumPayouts: 10, Seed: 3}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for _, r := range dataset.Recipients {
		if err := r.Wallet.Validate(); err != nil {
			t.Fatalf("recipient %s wallet invalid: %v", r.ID, err)
		}
		if !domain.ValidRecipientStatus(r.Status) {
			t.Fatalf("recipient %s has unknown status %q", r.ID, r.Status)
		}
	}
}

func TestGeneratedDatasetLoadsCleanly(t *testing.T) {
	dataset, err := New(Config{NumRecipients: 50, NumInvoices: 100, NumPayouts: 80, Seed: 11}).Generate(context.Background())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	dir := directory.New()
	reg := methods.Default()
	svc := service.New(dir, reg, engine.New(dir, reg), nil)
	loader := service.NewBulkLoader(dir, svc, 4)

	ctx := context.Background()
	if err := loader.LoadRecipients(ctx, dataset.Recipients); err != nil {
		t.Fatalf("recipients failed to load: %v", err)
	}
	if err := loader.LoadInvoices(ctx, dataset.Invoices); err != nil {
		t.Fatalf("invoices failed to load: %v", err)
	}
	if err := loader.LoadPayouts(ctx, dataset.Payouts); err != nil {
		t.Fatalf("payouts failed to load: %v", err)
	}
}

func TestGenerateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{NumRecipients: 10, Seed: 1}).Generate(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
}
