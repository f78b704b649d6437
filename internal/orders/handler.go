package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/courseloop/order-intake/internal/domain"
)

// Handler serves the read-only order views consumed by the dashboard. The
// JSON carries a display_status computed per read; the stored status never
// changes here.
type Handler struct {
	repo   *OrderRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(repo *OrderRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

type orderView struct {
	domain.Order
	DisplayStatus domain.OrderStatus `json:"display_status"`
}

func (h *Handler) view(order *domain.Order) orderView {
	return orderView{Order: *order, DisplayStatus: DisplayStatus(order, h.now().UTC())}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, h.view(order))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	views := make([]orderView, 0, len(list))
	for i := range list {
		views = append(views, h.view(&list[i]))
	}

	h.writeJSON(w, http.StatusOK, views)
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
