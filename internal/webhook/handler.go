package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/courseloop/order-intake/internal/domain"
	"github.com/courseloop/order-intake/internal/identity"
	"github.com/courseloop/order-intake/internal/messaging"
	"github.com/courseloop/order-intake/internal/orders"
	"github.com/courseloop/order-intake/internal/telemetry"
)

// SecretHeader carries the shared webhook secret.
const SecretHeader = "x-webhook-secret"

// OrderStore is the slice of the order repository the handler needs.
type OrderStore interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.Order, error)
	Insert(ctx context.Context, order *domain.Order) (orders.InsertOutcome, error)
}

// IdentityResolver maps payload fields to an account id and a match method.
type IdentityResolver interface {
	Resolve(ctx context.Context, in identity.Input) (string, string, error)
}

type Handler struct {
	store    OrderStore
	resolver IdentityResolver
	producer *messaging.Producer
	secret   string
	metrics  *telemetry.IntakeMetrics
	logger   *slog.Logger
}

// NewHandler builds the intake handler. An empty secret disables the header
// check; a nil producer disables event publishing.
func NewHandler(store OrderStore, resolver IdentityResolver, producer *messaging.Producer, secret string, metrics *telemetry.IntakeMetrics, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		resolver: resolver,
		producer: producer,
		secret:   secret,
		metrics:  metrics,
		logger:   logger,
	}
}

type receiveResponse struct {
	Success      bool   `json:"success"`
	OrderID      string `json:"order_id,omitempty"`
	MatchMethod  string `json:"match_method,omitempty"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// HandleReceive ingests one third-party order delivery. Deliveries are
// at-least-once, so both dedup paths, the pre-check read and the
// unique-constraint violation on insert, answer success with a
// deduplicated flag instead of an error.
func (h *Handler) HandleReceive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && r.Header.Get(SecretHeader) != h.secret {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := payload.CustomerEmail()
	if email == "" {
		h.writeError(w, http.StatusBadRequest, "Missing customer email")
		return
	}

	externalID := payload.ExternalOrderID()
	if externalID != "" {
		existing, err := h.store.FindByExternalID(r.Context(), externalID)
		if err != nil {
			h.logger.Error("dedup lookup failed", "error", err, "external_order_id", externalID)
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if existing != nil {
			h.logger.Info("duplicate delivery ignored", "order_id", existing.ID, "external_order_id", externalID)
			h.metrics.OrderDeduplicated(r.Context())
			h.writeJSON(w, http.StatusOK, receiveResponse{Success: true, OrderID: existing.ID, Deduplicated: true})
			return
		}
	}

	name := payload.ParseName()
	userID, method, err := h.resolver.Resolve(r.Context(), identity.Input{
		UserRef:   payload.UserRef(),
		Email:     email,
		FirstName: name.First,
		LastName:  name.Last,
		FullName:  name.Full,
	})
	if err != nil {
		h.logger.Error("identity resolution failed", "error", err, "email", email)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	order := &domain.Order{
		UserID:        userID,
		CustomerEmail: email,
		CustomerName:  payload.DisplayName(),
		Details:       body,
		Status:        domain.OrderStatusPending,
		ExternalID:    externalID,
		OrderDate:     time.Now().UTC(),
	}

	outcome, err := h.store.Insert(r.Context(), order)
	if err != nil {
		h.logger.Error("order insert failed", "error", err, "external_order_id", externalID)
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if outcome == orders.Duplicate {
		// Lost the race against a concurrent delivery of the same external
		// order. The constraint, not the pre-check, is the dedup guarantee.
		h.logger.Info("duplicate delivery caught by constraint", "external_order_id", externalID)
		h.metrics.OrderDeduplicated(r.Context())
		h.writeJSON(w, http.StatusOK, receiveResponse{Success: true, Deduplicated: true})
		return
	}

	h.metrics.OrderReceived(r.Context(), method)
	if userID == "" {
		h.metrics.OrderUnresolved(r.Context())
	}

	if h.producer != nil {
		event := domain.OrderReceivedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			CustomerEmail: order.CustomerEmail,
			CustomerName:  order.CustomerName,
			MatchMethod:   method,
			Timestamp:     order.OrderDate,
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order received event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order received", "order_id", order.ID, "match_method", method, "external_order_id", externalID)
	h.writeJSON(w, http.StatusOK, receiveResponse{Success: true, OrderID: order.ID, MatchMethod: method})
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
