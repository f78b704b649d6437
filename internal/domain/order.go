package domain

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Order is the persisted record for one inbound third-party order.
// UserID is empty when identity resolution failed; such orders are linked
// manually later. ExternalID is the sender-side dedup key and carries a
// unique constraint in the database.
type Order struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id,omitempty"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Details        json.RawMessage `json:"order_details,omitempty"`
	Status         OrderStatus     `json:"status"`
	ExternalID     string          `json:"external_order_id,omitempty"`
	OrderDate      time.Time       `json:"order_date"`
	TrackingNumber string          `json:"tracking_number,omitempty"`
}
