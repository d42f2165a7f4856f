package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
	"github.com/dragonpay/backend/internal/engine"
	"github.com/dragonpay/backend/internal/history"
	"github.com/dragonpay/backend/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.PayoutService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.PayoutService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	var payload recipientRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(payload.FirstName) == "" || strings.TrimSpace(payload.LastName) == "" || strings.TrimSpace(payload.Email) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "first_name, last_name and email are required")
		return
	}

	recipient, err := h.service.CreateRecipient(r.Context(), service.RecipientInput{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone: domain.Phone{
			CountryCode: payload.Phone.CountryCode,
			Number:      payload.Phone.Number,
		},
		DefaultMethod: payload.DefaultMethod,
		Metadata:      payload.Metadata,
	})
	if err != nil {
		h.respondError(w, err, "failed to create recipient")
		return
	}

	respondData(w, http.StatusCreated, toRecipientResponse(recipient))
}

func (h *APIHandlers) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	recipient, err := h.service.GetRecipient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err, "failed to fetch recipient")
		return
	}
	respondData(w, http.StatusOK, toRecipientResponse(recipient))
}

func (h *APIHandlers) handleSearchRecipients(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	recipients := h.service.SearchRecipients(r.Context(), service.SearchInput{
		Status: domain.RecipientStatus(query.Get("status")),
		Method: query.Get("method"),
		Text:   query.Get("search"),
		Sort:   query.Get("sort"),
	})

	items := make([]recipientResponse, 0, len(recipients))
	for _, rec := range recipients {
		items = append(items, toRecipientResponse(rec))
	}
	respondData(w, http.StatusOK, items)
}

func (h *APIHandlers) handleSetRecipientStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	err := h.service.SetRecipientStatus(r.Context(), chi.URLParam(r, "id"), domain.RecipientStatus(payload.Status))
	if err != nil {
		h.respondError(w, err, "failed to update recipient status")
		return
	}
	respondData(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandlers) handleCreditWallet(w http.ResponseWriter, r *http.Request) {
	var payload creditRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	err := h.service.CreditWallet(r.Context(), chi.URLParam(r, "id"), payload.Amount)
	if err != nil {
		h.respondError(w, err, "failed to credit wallet")
		return
	}
	respondData(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandlers) handleListPayoutMethods(w http.ResponseWriter, r *http.Request) {
	specs := h.service.ListPayoutMethods(r.Context())
	items := make([]methodResponse, 0, len(specs))
	for _, spec := range specs {
		items = append(items, methodResponse{
			Name:           spec.Name,
			DisplayName:    spec.DisplayName,
			FixedFee:       spec.FixedFee,
			PercentFee:     spec.PercentFee,
			MinAmount:      spec.MinAmount,
			MaxAmount:      spec.MaxAmount,
			ProcessingTime: spec.ProcessingTime,
			Currency:       spec.Currency,
		})
	}
	respondData(w, http.StatusOK, items)
}

func (h *APIHandlers) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var payload invoiceRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	dueDate, err := parseDatePtr(payload.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid due_date")
		return
	}

	invoice, err := h.service.CreateInvoice(r.Context(), service.InvoiceInput{
		RecipientID: payload.RecipientID,
		Amount:      payload.Amount,
		Description: payload.Description,
		MethodHint:  payload.MethodHint,
		DueDate:     dueDate,
	})
	if err != nil {
		h.respondError(w, err, "failed to create invoice")
		return
	}
	respondData(w, http.StatusCreated, toInvoiceResponse(invoice))
}

func (h *APIHandlers) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, to, err := parseWindow(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	invoices := h.service.ListInvoices(r.Context(), engine.InvoiceFilter{
		Status:      domain.InvoiceStatus(query.Get("status")),
		RecipientID: query.Get("recipient_id"),
		From:        from,
		To:          to,
	})

	items := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, toInvoiceResponse(inv))
	}
	respondData(w, http.StatusOK, items)
}

func (h *APIHandlers) handleTransitionInvoice(w http.ResponseWriter, r *http.Request) {
	var payload statusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	err := h.service.TransitionInvoice(r.Context(), chi.URLParam(r, "id"), domain.InvoiceStatus(payload.Status))
	if err != nil {
		h.respondError(w, err, "failed to transition invoice")
		return
	}
	respondData(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandlers) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var payload payoutRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	scheduled, err := parseDatePtr(payload.ScheduledDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid scheduled_date")
		return
	}

	payout, err := h.service.CreatePayout(r.Context(), service.PayoutInput{
		RecipientID:   payload.RecipientID,
		Amount:        payload.Amount,
		Method:        payload.Method,
		Priority:      domain.PayoutPriority(payload.Priority),
		Description:   payload.Description,
		ScheduledDate: scheduled,
	})
	if err != nil {
		h.respondError(w, err, "failed to create payout")
		return
	}
	respondData(w, http.StatusCreated, toPayoutResponse(payout))
}

func (h *APIHandlers) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, to, err := parseWindow(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	payouts := h.service.ListPayouts(r.Context(), engine.PayoutFilter{
		Status:      domain.PayoutStatus(query.Get("status")),
		RecipientID: query.Get("recipient_id"),
		Method:      query.Get("method"),
		From:        from,
		To:          to,
	})

	items := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		items = append(items, toPayoutResponse(p))
	}
	respondData(w, http.StatusOK, items)
}

func (h *APIHandlers) handleTransitionPayout(w http.ResponseWriter, r *http.Request) {
	var payload statusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	err := h.service.TransitionPayout(r.Context(), chi.URLParam(r, "id"), domain.PayoutStatus(payload.Status))
	if err != nil {
		h.respondError(w, err, "failed to transition payout")
		return
	}
	respondData(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandlers) handleCancelPayout(w http.ResponseWriter, r *http.Request) {
	err := h.service.CancelPayout(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err, "failed to cancel payout")
		return
	}
	respondData(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *APIHandlers) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	balance := h.service.GetBalance(r.Context())
	respondData(w, http.StatusOK, balanceResponse{
		Available: balance.Available,
		Pending:   balance.Pending,
		Total:     balance.Total,
	})
}

func (h *APIHandlers) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, to, err := parseWindow(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result := h.service.GetTransactionHistory(r.Context(), history.Filter{
		From:        from,
		To:          to,
		Kind:        domain.RecordKind(query.Get("kind")),
		Status:      query.Get("status"),
		Method:      query.Get("method"),
		RecipientID: query.Get("recipient_id"),
	})

	records := make([]recordResponse, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, recordResponse{
			Kind:        string(rec.Kind),
			ID:          rec.ID,
			RecipientID: rec.RecipientID,
			Amount:      rec.Amount,
			Status:      rec.Status,
			Method:      rec.Method,
			Timestamp:   formatTime(rec.Timestamp),
		})
	}

	respondData(w, http.StatusOK, historyResponse{
		Records: records,
		Summary: summaryResponse{
			TotalIn:  result.Summary.TotalIn,
			TotalOut: result.Summary.TotalOut,
			NetFlow:  result.Summary.NetFlow,
		},
	})
}

func (h *APIHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ov := h.service.GetOverview(r.Context())
	respondData(w, http.StatusOK, statsResponse{
		TotalRecipients:  ov.TotalRecipients,
		VerifiedCount:    ov.VerifiedCount,
		TotalWalletValue: ov.TotalWalletValue,
		TotalPayouts:     ov.TotalPayouts,
		ProcessingCount:  ov.ProcessingCount,
		CompletedToday:   ov.CompletedToday,
		TotalPaidOut:     ov.TotalPaidOut,
	})
}

func (h *APIHandlers) respondError(w http.ResponseWriter, err error, logMsg string) {
	status, code := mapError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(logMsg, "error", err)
		writeError(w, status, code, logMsg)
		return
	}
	writeError(w, status, code, err.Error())
}

// mapError translates a core error kind into an HTTP status and a
// stable machine-readable code.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownRecipient):
		return http.StatusNotFound, "unknown_recipient"
	case errors.Is(err, domain.ErrUnknownMethod):
		return http.StatusNotFound, "unknown_method"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "invalid_amount"
	case errors.Is(err, domain.ErrAmountBelowMinimum):
		return http.StatusUnprocessableEntity, "amount_below_minimum"
	case errors.Is(err, domain.ErrAmountAboveMaximum):
		return http.StatusUnprocessableEntity, "amount_above_maximum"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// --- Request & Response DTOs ---

type phoneRequest struct {
	CountryCode string `json:"country_code"`
	Number      string `json:"phone_number"`
}

type recipientRequest struct {
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Email         string            `json:"email"`
	Phone         phoneRequest      `json:"phone_number"`
	DefaultMethod string            `json:"default_payout_method"`
	Metadata      map[string]string `json:"metadata"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type invoiceRequest struct {
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	MethodHint  string          `json:"method_hint"`
	DueDate     string          `json:"due_date"`
}

type payoutRequest struct {
	RecipientID   string          `json:"recipient_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Priority      string          `json:"priority"`
	Description   string          `json:"description"`
	ScheduledDate string          `json:"scheduled_date"`
}

type walletResponse struct {
	Amount             decimal.Decimal `json:"amount"`
	WithdrawableAmount decimal.Decimal `json:"withdrawable_amount"`
	CreditBalance      decimal.Decimal `json:"credit_balance"`
}

type complianceResponse struct {
	TaxIDCollected       bool   `json:"tax_id_collected"`
	TaxIDVerification    string `json:"tax_id_verification"`
	AddressCollected     bool   `json:"address_collected"`
	DateOfBirthCollected bool   `json:"date_of_birth_collected"`
	IDVerified           bool   `json:"id_verified"`
	Flagged              bool   `json:"flagged"`
	OFAC                 bool   `json:"ofac"`
	OFACStatus           string `json:"ofac_status"`
}

type recipientResponse struct {
	ID            string             `json:"id"`
	FirstName     string             `json:"first_name"`
	LastName      string             `json:"last_name"`
	Email         string             `json:"email"`
	Phone         phoneRequest       `json:"phone_number"`
	DefaultMethod string             `json:"default_payout_method"`
	Wallet        walletResponse     `json:"wallet"`
	Status        string             `json:"status"`
	Compliance    complianceResponse `json:"compliance"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
	CreatedAt     string             `json:"created_date"`
}

type methodResponse struct {
	Name           string          `json:"name"`
	DisplayName    string          `json:"display_name"`
	FixedFee       decimal.Decimal `json:"fixed_fee"`
	PercentFee     decimal.Decimal `json:"percent_fee"`
	MinAmount      decimal.Decimal `json:"min_amount"`
	MaxAmount      decimal.Decimal `json:"max_amount"`
	ProcessingTime string          `json:"processing_time"`
	Currency       string          `json:"currency"`
}

type invoiceResponse struct {
	ID          string          `json:"id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	MethodHint  string          `json:"method_hint,omitempty"`
	DueDate     string          `json:"due_date,omitempty"`
	CreatedAt   string          `json:"created_date"`
	ResolvedAt  string          `json:"resolved_date,omitempty"`
}

type payoutResponse struct {
	ID            string          `json:"id"`
	RecipientID   string          `json:"recipient_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
	Priority      string          `json:"priority"`
	Description   string          `json:"description,omitempty"`
	ScheduledDate string          `json:"scheduled_date,omitempty"`
	CreatedAt     string          `json:"created_date"`
	ResolvedAt    string          `json:"resolved_date,omitempty"`
}

type balanceResponse struct {
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Total     decimal.Decimal `json:"total"`
}

type recordResponse struct {
	Kind        string          `json:"kind"`
	ID          string          `json:"id"`
	RecipientID string          `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Method      string          `json:"method,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

type summaryResponse struct {
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	NetFlow  decimal.Decimal `json:"net_flow"`
}

type historyResponse struct {
	Records []recordResponse `json:"records"`
	Summary summaryResponse  `json:"summary"`
}

type statsResponse struct {
	TotalRecipients  int             `json:"total_recipients"`
	VerifiedCount    int             `json:"verified_count"`
	TotalWalletValue decimal.Decimal `json:"total_wallet_value"`
	TotalPayouts     int             `json:"total_payouts"`
	ProcessingCount  int             `json:"processing_count"`
	CompletedToday   int             `json:"completed_today"`
	TotalPaidOut     decimal.Decimal `json:"total_paid_out"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// --- Conversions & helpers ---

func toRecipientResponse(r domain.Recipient) recipientResponse {
	return recipientResponse{
		ID:        r.ID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone: phoneRequest{
			CountryCode: r.Phone.CountryCode,
			Number:      r.Phone.Number,
		},
		DefaultMethod: r.DefaultMethod,
		Wallet: walletResponse{
			Amount:             r.Wallet.Amount,
			WithdrawableAmount: r.Wallet.WithdrawableAmount,
			CreditBalance:      r.Wallet.CreditBalance,
		},
		Status: string(r.Status),
		Compliance: complianceResponse{
			TaxIDCollected:       r.Compliance.TaxIDCollected,
			TaxIDVerification:    string(r.Compliance.TaxIDVerification),
			AddressCollected:     r.Compliance.AddressCollected,
			DateOfBirthCollected: r.Compliance.DateOfBirthCollected,
			IDVerified:           r.Compliance.IDVerified,
			Flagged:              r.Compliance.Flagged,
			OFAC:                 r.Compliance.OFAC,
			OFACStatus:           string(r.Compliance.OFACStatus),
		},
		Metadata:  r.Metadata,
		CreatedAt: formatTime(r.CreatedAt),
	}
}

func toInvoiceResponse(inv domain.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		RecipientID: inv.RecipientID,
		Amount:      inv.Amount,
		Status:      string(inv.Status),
		Description: inv.Description,
		MethodHint:  inv.MethodHint,
		DueDate:     formatTimePtr(inv.DueDate),
		CreatedAt:   formatTime(inv.CreatedAt),
		ResolvedAt:  formatTimePtr(inv.ResolvedAt),
	}
}

func toPayoutResponse(p domain.Payout) payoutResponse {
	return payoutResponse{
		ID:            p.ID,
		RecipientID:   p.RecipientID,
		Amount:        p.Amount,
		Fee:           p.Fee,
		Method:        p.Method,
		Status:        string(p.Status),
		Priority:      string(p.Priority),
		Description:   p.Description,
		ScheduledDate: formatTimePtr(p.ScheduledDate),
		CreatedAt:     formatTime(p.CreatedAt),
		ResolvedAt:    formatTimePtr(p.ResolvedAt),
	}
}

type envelope struct {
	Data  any           `json:"data,omitempty"`
	Error *errorPayload `json:"error,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, envelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, envelope{Error: &errorPayload{Code: code, Message: msg}})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseWindow(from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return start, end, errors.New("invalid from timestamp")
		}
		start = ts
	}
	if to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return start, end, errors.New("invalid to timestamp")
		}
		end = ts
	}
	return start, end, nil
}

func parseDatePtr(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts, nil
	}
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(ts *time.Time) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
