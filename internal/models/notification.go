package models

import "time"

// NotificationType categorizes a user-facing notification.
type NotificationType string

const (
	NotificationPriceAlert      NotificationType = "price_alert"
	NotificationPortfolioChange NotificationType = "portfolio_change"
	NotificationSystemUpdate    NotificationType = "system_update"
	NotificationAchievement     NotificationType = "achievement"
)

// Notification is a user-facing notification entry.
// Notifications live in a bounded in-memory ring; the read flag is the
// only field mutated after creation.
type Notification struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"created_at"`
}
