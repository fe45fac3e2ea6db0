// Package notify provides notification derivation and the bounded
// in-memory notification center.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketpulse/internal/hub"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
	"marketpulse/internal/store"
)

// feedBuffer bounds pending deltas toward the hub. The ring itself is
// authoritative; a dropped delta is recovered by the next cold pull.
const feedBuffer = 64

// Center holds the bounded ring of the most recent notifications,
// newest first. It doubles as the notifications channel's data source:
// it serves cold pulls and pushes a replacement delta on every change.
type Center struct {
	mu       sync.RWMutex
	capacity int
	items    []models.Notification

	feed    chan hub.Delta
	archive store.NotificationStore
	logger  zerolog.Logger
}

// NewCenter creates a notification center bounded to capacity entries.
// The archive is optional; pass nil to keep notifications in memory only.
func NewCenter(capacity int, archive store.NotificationStore, logger zerolog.Logger) *Center {
	if capacity <= 0 {
		capacity = 50
	}
	return &Center{
		capacity: capacity,
		feed:     make(chan hub.Delta, feedBuffer),
		archive:  archive,
		logger:   logging.WithComponent(logger, "notify"),
	}
}

// HubChannel returns the channel registration for the notifications
// domain: the center serves both the cold pull and the push feed.
func (c *Center) HubChannel() hub.Channel {
	return hub.Channel{
		ID:    hub.ChannelNotifications,
		Fetch: c.Fetch,
		Feed:  c,
	}
}

// Push appends a notification to the ring, evicting the oldest entry
// once the ring exceeds its capacity. Missing id and timestamp are
// filled in. Returns the stored notification.
func (c *Center) Push(n models.Notification) models.Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	c.mu.Lock()
	c.items = append([]models.Notification{n}, c.items...)
	if len(c.items) > c.capacity {
		c.items = c.items[:c.capacity]
	}
	snapshot := c.copyItemsLocked()
	c.mu.Unlock()

	if c.archive != nil {
		if err := c.archive.SaveNotification(context.Background(), n); err != nil {
			c.logger.Warn().Err(err).Str("notification_id", n.ID).Msg("Archive write failed")
		}
	}

	logging.LogNotification(c.logger, n.ID, string(n.Type), n.Title)
	c.emit(snapshot)
	return n
}

// Notifications returns the ring contents, newest first.
func (c *Center) Notifications() []models.Notification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyItemsLocked()
}

// UnreadCount returns the number of unread notifications.
func (c *Center) UnreadCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, n := range c.items {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkAsRead marks one notification as read. Unknown ids are a no-op.
func (c *Center) MarkAsRead(id string) {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if c.items[i].ID == id && !c.items[i].Read {
			c.items[i].Read = true
			changed = true
			break
		}
	}
	snapshot := c.copyItemsLocked()
	c.mu.Unlock()

	if !changed {
		return
	}
	if c.archive != nil {
		if err := c.archive.MarkRead(context.Background(), id); err != nil {
			c.logger.Warn().Err(err).Str("notification_id", id).Msg("Archive update failed")
		}
	}
	c.emit(snapshot)
}

// MarkAllAsRead marks every notification in the ring as read.
func (c *Center) MarkAllAsRead() {
	c.mu.Lock()
	changed := false
	for i := range c.items {
		if !c.items[i].Read {
			c.items[i].Read = true
			changed = true
		}
	}
	snapshot := c.copyItemsLocked()
	c.mu.Unlock()

	if !changed {
		return
	}
	if c.archive != nil {
		if err := c.archive.MarkAllRead(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("Archive update failed")
		}
	}
	c.emit(snapshot)
}

// ClearAll empties the ring and the archive.
func (c *Center) ClearAll() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()

	if c.archive != nil {
		if err := c.archive.Clear(context.Background()); err != nil {
			c.logger.Warn().Err(err).Msg("Archive clear failed")
		}
	}
	c.emit(nil)
}

// Fetch implements hub.FetchFunc for the notifications channel.
func (c *Center) Fetch(ctx context.Context) (hub.Payload, error) {
	return hub.NotificationList{Items: c.Notifications()}, nil
}

// Open implements hub.PushFeed. Every ring mutation arrives as a
// replacement delta.
func (c *Center) Open(ctx context.Context) (<-chan hub.Delta, error) {
	out := make(chan hub.Delta)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-c.feed:
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// emit queues a replacement delta toward the hub without blocking.
func (c *Center) emit(items []models.Notification) {
	select {
	case c.feed <- hub.NotificationDelta{Items: items}:
	default:
		// Feed not drained (hub not initialized yet or backlogged);
		// the next cold pull carries the current ring state.
	}
}

// copyItemsLocked returns a copy of the ring. Callers must hold c.mu.
func (c *Center) copyItemsLocked() []models.Notification {
	out := make([]models.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Ensure Center implements the push feed interface
var _ hub.PushFeed = (*Center)(nil)
