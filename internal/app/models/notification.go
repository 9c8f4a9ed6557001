package models

import "time"

// NotificationType sets how a notification is rendered
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification defines the 'notifications' table
type Notification struct {
	ID                   int64            `json:"id" db:"id"`
	RecipientID          int64            `json:"recipientId" db:"recipient_id"`
	Title                string           `json:"title" db:"title"`
	Message              string           `json:"message" db:"message"`
	Type                 NotificationType `json:"type" db:"notification_type" example:"info"`
	IsRead               bool             `json:"isRead" db:"is_read"`
	ReadAt               *time.Time       `json:"readAt,omitempty" db:"read_at"`
	RelatedApplicationID *int64           `json:"relatedApplicationId,omitempty" db:"related_application_id"`
	CreatedAt            time.Time        `json:"createdAt" db:"created_at"`
}
