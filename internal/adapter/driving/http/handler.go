package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
	"github.com/ericfisherdev/tempmail/internal/domain/port/driven"
)


// Handler is the HTTP driving adapter that serves the persisted history API.
type Handler struct {
	records       driven.HistoryRecordStore
	subscriptions driven.SubscriptionStore
	secret        []byte
	logger        *slog.Logger
	now           func() time.Time
}

// NewHandler creates a Handler with all required dependencies. secret signs
// and verifies session tokens.
func NewHandler(
	records driven.HistoryRecordStore,
	subscriptions driven.SubscriptionStore,
	secret []byte,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		records:       records,
		subscriptions: subscriptions,
		secret:        secret,
		logger:        logger,
		now:           time.Now,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/user/email-history", requireSession(h.secret, logger, h.ListHistory))
	mux.HandleFunc("POST /api/user/email-history", requireSession(h.secret, logger, h.RecordHistory))
	mux.HandleFunc("GET /api/user/get-subscription-status", requireSession(h.secret, logger, h.SubscriptionStatus))
	mux.HandleFunc("GET /api/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// ListHistory returns the user's history, most-recent-first, deduplicated by
// address and capped at the cloud capacity.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	records, err := h.records.ListRecent(r.Context(), userID, model.CloudHistoryCapacity)
	if err != nil {
		h.logger.Error("failed to list email history", "user", userID, "error", err)
		writeFailure(w, http.StatusInternalServerError, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	items := make([]HistoryItem, 0, len(records))
	for _, rec := range records {
		items = append(items, toHistoryItem(rec))
	}

	writeSuccess(w, items)
}

// RecordHistory upserts an address as the user's newest history entry and
// trims older rows beyond the cloud capacity.
func (h *Handler) RecordHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	var req HistoryItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		writeFailure(w, http.StatusBadRequest, http.StatusBadRequest, "Email is required")
		return
	}

	var cred model.Credential
	if req.JWT != nil {
		cred = model.Credential(*req.JWT)
	}

	if err := h.records.Upsert(r.Context(), userID, model.Address(email), cred, model.CloudHistoryCapacity); err != nil {
		h.logger.Error("failed to save email history", "user", userID, "error", err)
		writeFailure(w, http.StatusInternalServerError, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeSuccess(w, nil)
}

// SubscriptionStatus returns the user's active subscription, or null data
// when there is none.
func (h *Handler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	sub, err := h.subscriptions.GetCurrent(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get subscription status", "user", userID, "error", err)
		writeFailure(w, http.StatusInternalServerError, -1, "get subscription status failed")
		return
	}

	if sub == nil || !sub.Active(h.now()) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 0, "data": nil})
		return
	}

	writeSuccess(w, toSubscriptionResponse(*sub))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
