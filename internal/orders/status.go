package orders

import (
	"time"

	"github.com/courseloop/order-intake/internal/domain"
)

// completionWindow is how long a shipped order is shown as shipped before
// the display flips to completed.
const completionWindow = 7 * 24 * time.Hour

// DisplayStatus projects the user-visible status from the stored one. A
// shipped order reads as completed once the window has elapsed. The stored
// status is never rewritten; this is recomputed on every read.
func DisplayStatus(order *domain.Order, now time.Time) domain.OrderStatus {
	if order.Status != domain.OrderStatusShipped {
		return order.Status
	}
	if now.Sub(order.OrderDate) >= completionWindow {
		return domain.OrderStatusCompleted
	}
	return domain.OrderStatusShipped
}
