package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/archive"
	"github.com/dragonpay/backend/internal/directory"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/methods"
	"github.com/dragonpay/backend/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *service.PayoutService) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := directory.New()
	reg := methods.Default()
	svc := service.New(dir, reg, engine.New(dir, reg), nil)

	router := NewRouter(logger, RouterDependencies{
		API: NewAPIHandlers(logger, svc),
	})
	return router, svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func createRecipient(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/recipients", map[string]any{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode recipient: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated recipient id")
	}
	return created.ID
}

func creditRecipient(t *testing.T, router http.Handler, id, amount string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/recipients/"+id+"/credit", map[string]any{"amount": amount})
	if rec.Code != http.StatusOK {
		t.Fatalf("credit failed with %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleCreateRecipient(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/recipients", map[string]any{
		"first_name":            "Jane",
		"last_name":             "Doe",
		"email":                 "Jane@Example.com",
		"phone_number":          map[string]string{"country_code": "+1", "phone_number": "555-123-4567"},
		"default_payout_method": "ach",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var payload recipientResponse
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode recipient: %v", err)
	}
	if payload.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", payload.Email)
	}
	if payload.Status != "unverified" {
		t.Fatalf("expected unverified, got %q", payload.Status)
	}
	if payload.Wallet.Amount.String() != "0" {
		t.Fatalf("expected zero wallet, got %s", payload.Wallet.Amount)
	}
	if payload.Compliance.OFACStatus != "pending" {
		t.Fatalf("expected pending ofac status, got %q", payload.Compliance.OFACStatus)
	}
}

func TestHandleCreateRecipientMissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/recipients", map[string]any{"first_name": "Jane"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "bad_request" {
		t.Fatalf("expected bad_request error, got %+v", env.Error)
	}
}

func TestHandleGetRecipientNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/recipients/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "not_found" {
		t.Fatalf("expected not_found error, got %+v", env.Error)
	}
}

func TestHandleListPayoutMethods(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/payout-methods", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	var specs []methodResponse
	if err := json.Unmarshal(env.Data, &specs); err != nil {
		t.Fatalf("decode methods: %v", err)
	}
	if len(specs) != 5 {
		t.Fatalf("expected 5 methods, got %d", len(specs))
	}
	if specs[0].Name != "ach" {
		t.Fatalf("expected ach first, got %q", specs[0].Name)
	}
}

func TestHandleCreatePayoutInsufficientFunds(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createRecipient(t, router)
	creditRecipient(t, router, id, "100.00")

	rec := doJSON(t, router, http.MethodPost, "/payouts", map[string]any{
		"recipient_id": id,
		"amount":       "200.00",
		"method":       "ach",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "insufficient_funds" {
		t.Fatalf("expected insufficient_funds error, got %+v", env.Error)
	}
}

func TestHandlePayoutLifecycle(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createRecipient(t, router)
	creditRecipient(t, router, id, "100.00")

	rec := doJSON(t, router, http.MethodPost, "/payouts", map[string]any{
		"recipient_id": id,
		"amount":       "50.00",
		"method":       "paypal",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var payout payoutResponse
	if err := json.Unmarshal(env.Data, &payout); err != nil {
		t.Fatalf("decode payout: %v", err)
	}
	if payout.Status != "processing" {
		t.Fatalf("expected processing, got %q", payout.Status)
	}
	// paypal: 2% of 50.00 + 0.30 fixed.
	if !payout.Fee.Equal(decimal.RequireFromString("1.30")) {
		t.Fatalf("expected fee 1.30, got %s", payout.Fee)
	}

	rec = doJSON(t, router, http.MethodPost, "/payouts/"+payout.ID+"/transition", map[string]any{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Repeating the transition is a conflict.
	rec = doJSON(t, router, http.MethodPost, "/payouts/"+payout.ID+"/transition", map[string]any{"status": "completed"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	env = decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition error, got %+v", env.Error)
	}
}

func TestHandleGetBalance(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createRecipient(t, router)
	creditRecipient(t, router, id, "100.00")

	rec := doJSON(t, router, http.MethodPost, "/payouts", map[string]any{
		"recipient_id": id,
		"amount":       "40.00",
		"method":       "ach",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payout creation failed: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/balance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var balance balanceResponse
	if err := json.Unmarshal(env.Data, &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if !balance.Available.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected available 60.00, got %s", balance.Available)
	}
	if !balance.Pending.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected pending 40.00, got %s", balance.Pending)
	}
}

func TestHandleGetHistory(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createRecipient(t, router)
	creditRecipient(t, router, id, "100.00")

	rec := doJSON(t, router, http.MethodPost, "/invoices", map[string]any{
		"recipient_id": id,
		"amount":       "80.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invoice creation failed: %s", rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var invoice invoiceResponse
	if err := json.Unmarshal(env.Data, &invoice); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/invoices/"+invoice.ID+"/transition", map[string]any{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("invoice transition failed: %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	env = decodeEnvelope(t, rec)
	var payload historyResponse
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(payload.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(payload.Records))
	}
	if !payload.Summary.TotalIn.Equal(decimal.RequireFromString("80.00")) {
		t.Fatalf("expected total in 80.00, got %s", payload.Summary.TotalIn)
	}
}

func TestHandleSearchRecipients(t *testing.T) {
	router, svc := newTestRouter(t)
	id := createRecipient(t, router)

	if err := svc.SetRecipientStatus(context.Background(), id, "verified"); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/recipients?status=verified&search=jane", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var items []recipientResponse
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode recipients: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("expected recipient %s, got %+v", id, items)
	}

	rec = doJSON(t, router, http.MethodGet, "/recipients?status=disabled", nil)
	env = decodeEnvelope(t, rec)
	items = nil
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("decode recipients: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no disabled recipients, got %d", len(items))
	}
}

func TestHealthzDegradedOnArchiveFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := archive.NewMemoryClient().WithConnectivityError(errors.New("connection refused"))

	router := NewRouter(logger, RouterDependencies{
		Health: ArchiveHealthService{Client: client},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
