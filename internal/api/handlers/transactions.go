package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/smbcash/cashflow-dashboard/internal/api/middleware"
	"github.com/smbcash/cashflow-dashboard/internal/engine"
	"github.com/smbcash/cashflow-dashboard/internal/jobs"
	"github.com/smbcash/cashflow-dashboard/internal/model"
	"github.com/smbcash/cashflow-dashboard/internal/store"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	store           store.Store
	publisher       jobs.Publisher
	startingBalance decimal.Decimal
	log             zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(st store.Store, publisher jobs.Publisher, startingBalance decimal.Decimal, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store:           st,
		publisher:       publisher,
		startingBalance: startingBalance,
		log:             log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	from, ok := parseDateParam(w, query.Get("start_date"), "start_date")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, query.Get("end_date"), "end_date")
	if !ok {
		return
	}

	txType := query.Get("type")
	if txType != "" && txType != "income" && txType != "expense" {
		middleware.WriteError(w, http.StatusBadRequest, "type must be income or expense")
		return
	}

	filter := store.TransactionFilter{From: from, To: to, Type: txType}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	transactions, err := h.store.ListTransactions(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*model.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Amount.IsZero() {
		middleware.WriteError(w, http.StatusBadRequest, "amount must be non-zero")
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD")
			return
		}
		date = parsed.UTC()
	}

	now := time.Now().UTC()
	tx := &model.Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Source:      model.SourceManual,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.InsertTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	h.log.Info().Str("transaction_id", tx.ID).Str("amount", tx.Amount.String()).Msg("Transaction created")
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	tx, err := h.store.GetTransaction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
// Only manually entered transactions can be deleted; synced ones are owned
// by the provider and return 409.
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.DeleteTransaction(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, store.ErrSyncedImmutable):
		middleware.WriteError(w, http.StatusConflict, "Synced transactions cannot be deleted")
	case err != nil:
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Summary handles GET /api/transactions/summary
// It returns the dashboard KPI set; the runway is derived from a fresh
// 90-day forecast.
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	history, err := loadHistory(ctx, h.store, h.startingBalance)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load history")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	result, err := engine.Generate(history, 90, false)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate runway forecast")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, engine.Summarize(history, result.Points))
}

// EnqueueSync handles POST /api/transactions/sync
// The sync runs asynchronously; the response carries the job ID to poll.
func (h *TransactionsHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	job := &jobs.SyncTransactionsJob{TriggeredBy: jobs.TriggerManual}

	if err := h.publisher.PublishSyncTransactions(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}
