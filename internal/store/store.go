// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"marketpulse/internal/models"
)

// NotificationStore defines the interface for the optional notification
// archive. The in-memory ring is authoritative for the UI; the archive
// only retains history beyond the ring bound.
type NotificationStore interface {
	SaveNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Clear(ctx context.Context) error

	// Lifecycle
	Close() error
}
