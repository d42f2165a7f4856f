package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/archive"
	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/methods"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*PayoutService, *directory.Directory) {
	t.Helper()
	dir := directory.New()
	reg := methods.Default()
	return New(dir, reg, engine.New(dir, reg), nil), dir
}

func fundRecipient(t *testing.T, svc *PayoutService, balance string) domain.Recipient {
	t.Helper()
	r, err := svc.CreateRecipient(context.Background(), RecipientInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane.doe@example.com",
	})
	if err != nil {
		t.Fatalf("create recipient failed: %v", err)
	}
	if err := svc.CreditWallet(context.Background(), r.ID, decimal.RequireFromString(balance)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	return r
}

func TestCreateRecipientDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	r, err := svc.CreateRecipient(context.Background(), RecipientInput{
		FirstName: "  Jane  ",
		LastName:  "Doe ",
		Email:     " Jane.Doe@Example.COM ",
		Phone:     domain.Phone{CountryCode: "+1", Number: "(555) 123-4567"},
	})
	if err != nil {
		t.Fatalf("create recipient failed: %v", err)
	}

	if r.ID == "" {
		t.Fatal("expected generated id")
	}
	if r.FirstName != "Jane" || r.LastName != "Doe" {
		t.Fatalf("expected sanitized names, got %q %q", r.FirstName, r.LastName)
	}
	if r.Email != "jane.doe@example.com" {
		t.Fatalf("expected normalized email, got %q", r.Email)
	}
	if r.Phone.Number != "5551234567" {
		t.Fatalf("expected digits-only phone, got %q", r.Phone.Number)
	}
	if r.Status != domain.StatusUnverified {
		t.Fatalf("expected unverified, got %s", r.Status)
	}
	if !r.Wallet.Amount.IsZero() || !r.Wallet.WithdrawableAmount.IsZero() {
		t.Fatalf("expected empty wallet, got %+v", r.Wallet)
	}
	if r.Compliance.TaxIDVerification != domain.VerificationUnsubmitted {
		t.Fatalf("expected unsubmitted tax verification, got %s", r.Compliance.TaxIDVerification)
	}
	if r.Compliance.OFACStatus != domain.OFACPending {
		t.Fatalf("expected pending ofac status, got %s", r.Compliance.OFACStatus)
	}
	if !r.CreatedAt.Equal(now) {
		t.Fatalf("expected created at %s, got %s", now, r.CreatedAt)
	}
}

func TestCreateRecipientRequiresFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRecipient(context.Background(), RecipientInput{FirstName: "Jane"})
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
}

func TestCreateRecipientRejectsUnknownDefaultMethod(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateRecipient(context.Background(), RecipientInput{
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		DefaultMethod: "wire",
	})
	if !errors.Is(err, domain.ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestPayoutLifecycleThroughService(t *testing.T) {
	svc, _ := newTestService(t)
	r := fundRecipient(t, svc, "100.00")

	p, err := svc.CreatePayout(context.Background(), PayoutInput{
		RecipientID: r.ID,
		Amount:      decimal.RequireFromString("50.00"),
		Method:      "ach",
	})
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}

	if err := svc.TransitionPayout(context.Background(), p.ID, domain.PayoutCompleted); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	got, err := svc.GetRecipient(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get recipient failed: %v", err)
	}
	if want := decimal.RequireFromString("50.00"); !got.Wallet.WithdrawableAmount.Equal(want) {
		t.Fatalf("expected withdrawable %s, got %s", want, got.Wallet.WithdrawableAmount)
	}

	payouts := svc.ListPayouts(context.Background(), engine.PayoutFilter{Status: domain.PayoutCompleted})
	if len(payouts) != 1 || payouts[0].ID != p.ID {
		t.Fatalf("expected completed payout %s, got %+v", p.ID, payouts)
	}
}

func TestPublisherMirrorsEventsToArchive(t *testing.T) {
	dir := directory.New()
	reg := methods.Default()
	eng := engine.New(dir, reg)

	client := archive.NewMemoryClient()
	publisher := NewPublisher(archive.NewArchiver(client), discardLogger(), 16)
	svc := New(dir, reg, eng, publisher)

	r, err := svc.CreateRecipient(context.Background(), RecipientInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	})
	if err != nil {
		t.Fatalf("create recipient failed: %v", err)
	}
	if err := svc.CreditWallet(context.Background(), r.ID, decimal.RequireFromString("100.00")); err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	inv, err := svc.CreateInvoice(context.Background(), InvoiceInput{
		RecipientID: r.ID,
		Amount:      decimal.RequireFromString("20.00"),
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	if err := svc.TransitionInvoice(context.Background(), inv.ID, domain.InvoiceCompleted); err != nil {
		t.Fatalf("transition invoice failed: %v", err)
	}

	p, err := svc.CreatePayout(context.Background(), PayoutInput{
		RecipientID: r.ID,
		Amount:      decimal.RequireFromString("10.00"),
		Method:      "ach",
	})
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if err := svc.TransitionPayout(context.Background(), p.ID, domain.PayoutFailed); err != nil {
		t.Fatalf("transition payout failed: %v", err)
	}

	// Close drains the buffer and stops the worker.
	publisher.Close()

	calls := client.WriteCalls()
	if len(calls) != 4 {
		t.Fatalf("expected 4 archive writes, got %d", len(calls))
	}
	last := calls[len(calls)-1]
	if last.Params["payoutId"] != p.ID {
		t.Fatalf("expected last write for payout %s, got %v", p.ID, last.Params["payoutId"])
	}
	props, ok := last.Params["props"].(map[string]any)
	if !ok {
		t.Fatalf("expected props map, got %T", last.Params["props"])
	}
	if props["status"] != string(domain.PayoutFailed) {
		t.Fatalf("expected failed status in archive, got %v", props["status"])
	}
}

func TestPublisherSurvivesArchiveErrors(t *testing.T) {
	client := archive.NewMemoryClient().WithError(errors.New("archive down"))
	publisher := NewPublisher(archive.NewArchiver(client), discardLogger(), 4)

	publisher.PublishInvoice(domain.Invoice{ID: "INV-1", RecipientID: "RCP-1", Status: domain.InvoicePending})
	publisher.Close()

	if calls := client.WriteCalls(); len(calls) != 0 {
		t.Fatalf("expected no recorded writes, got %d", len(calls))
	}
}

func TestGetOverview(t *testing.T) {
	svc, _ := newTestService(t)
	r := fundRecipient(t, svc, "500.00")
	if err := svc.SetRecipientStatus(context.Background(), r.ID, domain.StatusVerified); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	p1, err := svc.CreatePayout(context.Background(), PayoutInput{
		RecipientID: r.ID,
		Amount:      decimal.RequireFromString("100.00"),
		Method:      "ach",
	})
	if err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if _, err := svc.CreatePayout(context.Background(), PayoutInput{
		RecipientID: r.ID,
		Amount:      decimal.RequireFromString("50.00"),
		Method:      "venmo",
	}); err != nil {
		t.Fatalf("create payout failed: %v", err)
	}
	if err := svc.TransitionPayout(context.Background(), p1.ID, domain.PayoutCompleted); err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	ov := svc.GetOverview(context.Background())
	if ov.TotalRecipients != 1 || ov.VerifiedCount != 1 {
		t.Fatalf("unexpected recipient counts: %+v", ov)
	}
	if ov.TotalPayouts != 2 || ov.ProcessingCount != 1 {
		t.Fatalf("unexpected payout counts: %+v", ov)
	}
	if want := decimal.RequireFromString("100.00"); !ov.TotalPaidOut.Equal(want) {
		t.Fatalf("expected paid out %s, got %s", want, ov.TotalPaidOut)
	}
	if ov.CompletedToday != 1 {
		t.Fatalf("expected 1 completed today, got %d", ov.CompletedToday)
	}
	// Wallet value reflects the post-debit balance.
	if want := decimal.RequireFromString("350.00"); !ov.TotalWalletValue.Equal(want) {
		t.Fatalf("expected wallet value %s, got %s", want, ov.TotalWalletValue)
	}
}

func TestBulkLoaderLoadsDataset(t *testing.T) {
	dir := directory.New()
	reg := methods.Default()
	svc := New(dir, reg, engine.New(dir, reg), nil)
	loader := NewBulkLoader(dir, svc, 4)

	const count = 50
	recipients := make([]domain.Recipient, count)
	for i := range recipients {
		amount := decimal.RequireFromString("100.00")
		recipients[i] = domain.Recipient{
			ID:        fmt.Sprintf("RCP-%03d", i),
			FirstName: "Jane",
			LastName:  "Doe",
			Email:     fmt.Sprintf("jane%d@example.com", i),
			Status:    domain.StatusVerified,
			Wallet: domain.Wallet{
				Amount:             amount,
				WithdrawableAmount: amount,
				CreditBalance:      decimal.Zero,
			},
		}
	}

	ctx := context.Background()
	if err := loader.LoadRecipients(ctx, recipients); err != nil {
		t.Fatalf("load recipients failed: %v", err)
	}

	payouts := make([]PayoutInput, count)
	for i := range payouts {
		payouts[i] = PayoutInput{
			RecipientID: fmt.Sprintf("RCP-%03d", i),
			Amount:      decimal.RequireFromString("25.00"),
			Method:      "ach",
		}
	}
	if err := loader.LoadPayouts(ctx, payouts); err != nil {
		t.Fatalf("load payouts failed: %v", err)
	}

	got := svc.ListPayouts(ctx, engine.PayoutFilter{})
	if len(got) != count {
		t.Fatalf("expected %d payouts, got %d", count, len(got))
	}
}

func TestBulkLoaderCollectsErrors(t *testing.T) {
	dir := directory.New()
	reg := methods.Default()
	svc := New(dir, reg, engine.New(dir, reg), nil)
	loader := NewBulkLoader(dir, svc, 2)

	payouts := []PayoutInput{
		{RecipientID: "missing-1", Amount: decimal.RequireFromString("10.00"), Method: "ach"},
		{RecipientID: "missing-2", Amount: decimal.RequireFromString("10.00"), Method: "ach"},
	}

	err := loader.LoadPayouts(context.Background(), payouts)
	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Fatalf("expected 2 collected errors, got %d", len(taskErr.Errors))
	}
}
