package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// subscriber is one registered handler on a channel.
type subscriber struct {
	id      string
	channel ChannelID
	handler Handler
}

// eventBus fans snapshot mutation events out to subscribers. Delivery
// is synchronous and in registration order; a panicking handler is
// recovered and logged without affecting later subscribers.
type eventBus struct {
	mu     sync.RWMutex
	subs   map[ChannelID][]*subscriber
	byID   map[string]ChannelID
	logger zerolog.Logger
}

func newEventBus(logger zerolog.Logger) *eventBus {
	return &eventBus{
		subs:   make(map[ChannelID][]*subscriber),
		byID:   make(map[string]ChannelID),
		logger: logger,
	}
}

// subscribe registers a handler and returns its subscription id.
func (b *eventBus) subscribe(id ChannelID, h Handler) string {
	sub := &subscriber{
		id:      uuid.NewString(),
		channel: id,
		handler: h,
	}

	b.mu.Lock()
	b.subs[id] = append(b.subs[id], sub)
	b.byID[sub.id] = id
	b.mu.Unlock()

	return sub.id
}

// unsubscribe removes a registration. Unknown ids are a no-op.
func (b *eventBus) unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channel, ok := b.byID[subID]
	if !ok {
		return
	}
	delete(b.byID, subID)

	subs := b.subs[channel]
	for i, sub := range subs {
		if sub.id == subID {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[channel]) == 0 {
		delete(b.subs, channel)
	}
}

// publish delivers an event to every subscriber of its channel, in
// registration order.
func (b *eventBus) publish(ev Event) {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs[ev.Channel]))
	copy(subs, b.subs[ev.Channel])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, ev)
	}
}

// deliver invokes one handler, isolating panics so a failing subscriber
// neither blocks later subscribers nor gets unregistered.
func (b *eventBus) deliver(sub *subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("channel", string(ev.Channel)).
				Str("subscription_id", sub.id).
				Interface("panic", r).
				Msg("Subscriber handler panicked")
		}
	}()
	sub.handler(ev)
}

// clear removes all registrations.
func (b *eventBus) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[ChannelID][]*subscriber)
	b.byID = make(map[string]ChannelID)
}

// count returns the number of subscribers on a channel.
func (b *eventBus) count(id ChannelID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[id])
}
