package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusAccepted       OrderStatus = "accepted"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusRejected       OrderStatus = "rejected"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusPreparing,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusRejected,
	OrderStatusCancelled,
}

// OrderStatuses returns every valid status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// OrderStatusNames returns every valid status value as a string, in
// lifecycle order.
func OrderStatusNames() []string {
	out := make([]string, len(orderStatuses))
	for i, st := range orderStatuses {
		out[i] = string(st)
	}
	return out
}

// ParseOrderStatus returns the status named by s and whether it exists.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Order is write-once except for Status, which only the state machine changes.
type Order struct {
	ID           uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber  string               `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	CustomerName string               `gorm:"type:varchar(200);not null" json:"customer_name"`
	Phone        string               `gorm:"type:varchar(32);not null" json:"phone"`
	Address      string               `gorm:"not null" json:"address"`
	Barangay     string               `gorm:"type:varchar(120);not null" json:"barangay"`
	Landmarks    *string              `json:"landmarks,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	CustomerID   *uuid.UUID           `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	TotalAmount  decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status       OrderStatus          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt    time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	Items        []OrderItem          `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	History      []OrderStatusHistory `gorm:"foreignKey:OrderID" json:"history,omitempty"`
}

// OrderItem snapshots price and name at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	VariantID   *uuid.UUID      `gorm:"type:uuid;index" json:"variant_id,omitempty"`
	ProductName string          `gorm:"type:varchar(200);not null" json:"product_name"`
	VariantName *string         `gorm:"type:varchar(120)" json:"variant_name,omitempty"`
	Quantity    int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// StockTarget returns which stock counter this item drew from.
func (i *OrderItem) StockTarget() StockTarget {
	if i.VariantID != nil {
		return VariantStock(*i.VariantID)
	}
	return ProductStock(i.ProductID)
}

// OrderStatusHistory is append-only. FromStatus is nil only on the
// initial entry.
type OrderStatusHistory struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus *OrderStatus `gorm:"type:varchar(20)" json:"from_status"`
	ToStatus   OrderStatus  `gorm:"type:varchar(20);not null" json:"to_status"`
	ActorID    *uuid.UUID   `gorm:"type:uuid" json:"actor_id,omitempty"`
	Note       *string      `json:"note,omitempty"`
	CreatedAt  time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

// CreateOrderInput is the validated checkout payload.
type CreateOrderInput struct {
	CustomerName string     `json:"customer_name" validate:"required,max=200"`
	Phone        string     `json:"phone" validate:"required,max=32"`
	Address      string     `json:"address" validate:"required"`
	Barangay     string     `json:"barangay" validate:"required,max=120"`
	Landmarks    *string    `json:"landmarks" validate:"omitempty,max=500"`
	Notes        *string    `json:"notes" validate:"omitempty,max=1000"`
	Items        []CartLine `json:"items"`
}

// UpdateStatusRequest is the admin payload for a status change. Status is
// checked by the state machine so a missing value gets the list of valid ones.
type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status     OrderStatus
	CustomerID *uuid.UUID
	Page       int
	Limit      int
}

// OrderTracking is the public view of an order, without contact fields.
type OrderTracking struct {
	OrderNumber string               `json:"order_number"`
	Status      OrderStatus          `json:"status"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	CreatedAt   time.Time            `json:"created_at"`
	Items       []OrderItem          `json:"items"`
	History     []OrderStatusHistory `json:"history"`
}

// OrderEvent is published after an order commit.
type OrderEvent struct {
	EventType   string          `json:"event_type"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	FromStatus  *OrderStatus    `json:"from_status,omitempty"`
	ToStatus    OrderStatus     `json:"to_status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ActorID     string          `json:"actor_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
)
