package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dragonpay/backend/internal/config"
	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/logging"
	"github.com/dragonpay/backend/internal/service"
)

var errMissingDataset = errors.New("dataset not found")

// seed loads a generated dataset into a running server over HTTP.
// Recipients are created first and their generated ids are remapped to
// the server-assigned ids before invoices and payouts are submitted.
func main() {
	var (
		baseURL    = flag.String("server", "http://localhost:8080", "Base URL of the running server")
		datasetDir = flag.String("dataset-dir", "./data", "Directory containing recipients.json, invoices.json and payouts.json")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "seed")

	var (
		recipients []domain.Recipient
		invoices   []service.InvoiceInput
		payouts    []service.PayoutInput
	)
	if err := loadDataset(*datasetDir, "recipients.json", &recipients); err != nil {
		logger.Error("failed to load recipients", "error", err)
		os.Exit(1)
	}
	if len(recipients) == 0 {
		logger.Error("recipients dataset empty", "dir", *datasetDir)
		os.Exit(1)
	}
	if err := loadDataset(*datasetDir, "invoices.json", &invoices); err != nil {
		logger.Error("failed to load invoices", "error", err)
		os.Exit(1)
	}
	if err := loadDataset(*datasetDir, "payouts.json", &payouts); err != nil {
		logger.Error("failed to load payouts", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := newSeedClient(*baseURL)
	start := time.Now()

	logger.Info("seeding recipients", "count", len(recipients))
	idMap, err := client.seedRecipients(ctx, recipients)
	if err != nil {
		logger.Error("recipient seeding failed", "error", err)
		os.Exit(1)
	}

	logger.Info("seeding invoices", "count", len(invoices))
	invoiceErrs := client.seedInvoices(ctx, invoices, idMap)

	logger.Info("seeding payouts", "count", len(payouts))
	payoutErrs := client.seedPayouts(ctx, payouts, idMap)

	logger.Info("seeding complete",
		"duration", time.Since(start).String(),
		"recipients", len(recipients),
		"invoices", len(invoices)-invoiceErrs,
		"payouts", len(payouts)-payoutErrs,
		"rejected_invoices", invoiceErrs,
		"rejected_payouts", payoutErrs,
	)
}

func loadDataset(dir, file string, target any) error {
	path := filepath.Join(dir, file)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errMissingDataset, path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type seedClient struct {
	baseURL string
	http    *http.Client
}

func newSeedClient(baseURL string) *seedClient {
	return &seedClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// seedRecipients creates each recipient, credits its wallet and applies
// its status, returning a map from generated id to server-assigned id.
func (c *seedClient) seedRecipients(ctx context.Context, recipients []domain.Recipient) (map[string]string, error) {
	idMap := make(map[string]string, len(recipients))

	for _, r := range recipients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var created struct {
			ID string `json:"id"`
		}
		payload := map[string]any{
			"first_name": r.FirstName,
			"last_name":  r.LastName,
			"email":      r.Email,
			"phone_number": map[string]string{
				"country_code": r.Phone.CountryCode,
				"phone_number": r.Phone.Number,
			},
			"default_payout_method": r.DefaultMethod,
		}
		if err := c.post(ctx, "/recipients", payload, &created); err != nil {
			return nil, fmt.Errorf("create recipient %s: %w", r.ID, err)
		}
		idMap[r.ID] = created.ID

		if r.Wallet.Amount.IsPositive() {
			credit := map[string]any{"amount": r.Wallet.Amount}
			if err := c.post(ctx, "/recipients/"+created.ID+"/credit", credit, nil); err != nil {
				return nil, fmt.Errorf("credit recipient %s: %w", r.ID, err)
			}
		}

		if r.Status != domain.StatusUnverified {
			status := map[string]any{"status": string(r.Status)}
			if err := c.post(ctx, "/recipients/"+created.ID+"/status", status, nil); err != nil {
				return nil, fmt.Errorf("set status for recipient %s: %w", r.ID, err)
			}
		}
	}

	return idMap, nil
}

func (c *seedClient) seedInvoices(ctx context.Context, invoices []service.InvoiceInput, idMap map[string]string) int {
	rejected := 0
	for _, inv := range invoices {
		if ctx.Err() != nil {
			return rejected
		}
		recipientID, ok := idMap[inv.RecipientID]
		if !ok {
			rejected++
			continue
		}
		payload := map[string]any{
			"recipient_id": recipientID,
			"amount":       inv.Amount,
			"description":  inv.Description,
			"method_hint":  inv.MethodHint,
		}
		if inv.DueDate != nil {
			payload["due_date"] = inv.DueDate.UTC().Format(time.RFC3339)
		}
		if err := c.post(ctx, "/invoices", payload, nil); err != nil {
			rejected++
		}
	}
	return rejected
}

func (c *seedClient) seedPayouts(ctx context.Context, payouts []service.PayoutInput, idMap map[string]string) int {
	rejected := 0
	for _, p := range payouts {
		if ctx.Err() != nil {
			return rejected
		}
		recipientID, ok := idMap[p.RecipientID]
		if !ok {
			rejected++
			continue
		}
		payload := map[string]any{
			"recipient_id": recipientID,
			"amount":       p.Amount,
			"method":       p.Method,
			"priority":     string(p.Priority),
			"description":  p.Description,
		}
		if p.ScheduledDate != nil {
			payload["scheduled_date"] = p.ScheduledDate.UTC().Format(time.RFC3339)
		}
		if err := c.post(ctx, "/payouts", payload, nil); err != nil {
			rejected++
		}
	}
	return rejected
}

func (c *seedClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return json.Unmarshal(env.Data, out)
}
