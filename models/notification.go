package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AttemptStatusPending = "pending"
	AttemptStatusSent    = "sent"
	AttemptStatusFailed  = "failed"
)

// NotificationAttempt is one logical outbound message and how its
// delivery went. Append-only apart from the status progression.
type NotificationAttempt struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID          *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Destination      string     `gorm:"type:varchar(255);not null" json:"destination"`
	Template         string     `gorm:"type:varchar(64);not null" json:"template"`
	Message          string     `gorm:"not null" json:"message"`
	Status           string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Provider         string     `gorm:"type:varchar(32)" json:"provider,omitempty"`
	ProviderResponse string     `json:"provider_response,omitempty"`
	Error            string     `json:"error,omitempty"`
	Attempts         int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the table name the storefront has always used.
func (NotificationAttempt) TableName() string { return "sms_logs" }

// NotificationFilter narrows attempt log queries.
type NotificationFilter struct {
	OrderID  *uuid.UUID
	Status   string
	Page     int
	PageSize int
}
