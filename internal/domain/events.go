package domain

import "time"

// OrderReceivedEvent is published after a first-time insert. Deduplicated
// deliveries never produce an event.
type OrderReceivedEvent struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id,omitempty"`
	CustomerEmail string    `json:"customer_email"`
	CustomerName  string    `json:"customer_name,omitempty"`
	MatchMethod   string    `json:"match_method"`
	Timestamp     time.Time `json:"timestamp"`
}
