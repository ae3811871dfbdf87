package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/tempmail/internal/domain/model"
)

// envelope is the {code, message, data} body every API response uses. Code 0
// means success.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":500,"message":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeSuccess writes a code 0 envelope carrying data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Code: 0, Message: "Success", Data: data})
}

// writeFailure writes an error envelope.
func writeFailure(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, envelope{Code: code, Message: message})
}

// HistoryItem is one entry of the email history list. JWT is null for
// credential-less entries.
type HistoryItem struct {
	Email string  `json:"email"`
	JWT   *string `json:"jwt"`
}

// SubscriptionResponse is the JSON representation of an active subscription.
type SubscriptionResponse struct {
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toHistoryItem converts a stored history record to its JSON representation.
func toHistoryItem(rec model.HistoryRecord) HistoryItem {
	item := HistoryItem{Email: rec.Address.String()}
	if !rec.Credential.IsZero() {
		jwt := rec.Credential.String()
		item.JWT = &jwt
	}
	return item
}

// toSubscriptionResponse converts a domain Subscription to its JSON representation.
func toSubscriptionResponse(sub model.Subscription) SubscriptionResponse {
	resp := SubscriptionResponse{
		Plan:   sub.Plan,
		Status: sub.Status,
	}
	if !sub.ExpiresAt.IsZero() {
		resp.ExpiresAt = sub.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}
