// Package notifier is the delivery sink for order confirmations. It accepts
// a notification request, records it, and answers synchronously; actual
// channel delivery (email, push) sits behind it in production.
package notifier

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

type notifyRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

type notifyResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Recipient == "" {
		h.writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}

	h.logger.Info("notification delivered", "recipient", req.Recipient, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, notifyResponse{Status: "delivered"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
