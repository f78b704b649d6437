// Package worker consumes order.received events and fans out confirmation
// notifications. Unresolved orders are logged for the manual linking queue
// instead of notified; re-linking happens in the admin flow, not here.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/courseloop/order-intake/internal/domain"
)

type ConfirmationHandler struct {
	notifierURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewConfirmationHandler(notifierURL string, client *http.Client, logger *slog.Logger) *ConfirmationHandler {
	return &ConfirmationHandler{
		notifierURL: notifierURL,
		httpClient:  client,
		logger:      logger,
	}
}

func (h *ConfirmationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderReceivedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order received event: %w", err)
	}

	h.logger.Info("processing order received event", "order_id", event.OrderID, "match_method", event.MatchMethod)

	if event.UserID == "" {
		h.logger.Warn("order awaiting manual account link", "order_id", event.OrderID, "customer_email", event.CustomerEmail)
		return nil
	}

	if err := h.sendConfirmation(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation: %w", err)
	}

	h.logger.Info("confirmation sent", "order_id", event.OrderID, "user_id", event.UserID)
	return nil
}

func (h *ConfirmationHandler) sendConfirmation(ctx context.Context, event domain.OrderReceivedEvent) error {
	body := map[string]string{
		"recipient": event.CustomerEmail,
		"subject":   "Order received: " + event.OrderID,
		"body":      fmt.Sprintf("Thanks %s, your order %s is being processed.", event.CustomerName, event.OrderID),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.notifierURL+"/notifications", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notifier service returned status %d", resp.StatusCode)
	}

	return nil
}
