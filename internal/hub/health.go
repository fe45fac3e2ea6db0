package hub

import (
	"sync"
	"time"
)

// HealthStatus represents the freshness status of a channel.
type HealthStatus string

const (
	// HealthUnknown means no fetch has been attempted yet.
	HealthUnknown HealthStatus = "unknown"
	// HealthFresh means the last fetch attempt succeeded.
	HealthFresh HealthStatus = "fresh"
	// HealthStale means fetches are failing but a previous snapshot
	// is still being served.
	HealthStale HealthStatus = "stale"
	// HealthError means fetches are failing and no snapshot exists.
	HealthError HealthStatus = "error"
)

// ChannelHealth is the freshness/error state tracked per channel,
// independent of the data itself.
type ChannelHealth struct {
	Channel             ChannelID
	Status              HealthStatus
	LastSuccess         time.Time
	ConsecutiveFailures int
}

// healthTracker records fetch outcomes per channel.
type healthTracker struct {
	mu sync.RWMutex
	m  map[ChannelID]ChannelHealth
}

func newHealthTracker() *healthTracker {
	t := &healthTracker{m: make(map[ChannelID]ChannelHealth, len(AllChannels()))}
	for _, id := range AllChannels() {
		t.m[id] = ChannelHealth{Channel: id, Status: HealthUnknown}
	}
	return t
}

// recordSuccess marks a channel fresh and resets its failure count.
func (t *healthTracker) recordSuccess(id ChannelID) ChannelHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.m[id]
	h.Channel = id
	h.Status = HealthFresh
	h.LastSuccess = time.Now()
	h.ConsecutiveFailures = 0
	t.m[id] = h
	return h
}

// recordFailure increments the failure count. The channel goes stale
// when a previous snapshot still exists, error otherwise.
func (t *healthTracker) recordFailure(id ChannelID, hasSnapshot bool) ChannelHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.m[id]
	h.Channel = id
	h.ConsecutiveFailures++
	if hasSnapshot {
		h.Status = HealthStale
	} else {
		h.Status = HealthError
	}
	t.m[id] = h
	return h
}

// get returns the health of one channel.
func (t *healthTracker) get(id ChannelID) ChannelHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if h, ok := t.m[id]; ok {
		return h
	}
	return ChannelHealth{Channel: id, Status: HealthUnknown}
}

// failures returns the consecutive failure count for a channel.
func (t *healthTracker) failures(id ChannelID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.m[id].ConsecutiveFailures
}
