package hub

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := newEventBus(zerolog.Nop())

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		bus.subscribe(ChannelPrices, func(Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	bus.publish(Event{Channel: ChannelPrices})

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBusPanickingSubscriberIsolated(t *testing.T) {
	bus := newEventBus(zerolog.Nop())

	received := 0
	bus.subscribe(ChannelPrices, func(Event) { panic("boom") })
	bus.subscribe(ChannelPrices, func(Event) { received++ })

	bus.publish(Event{Channel: ChannelPrices})
	assert.Equal(t, 1, received)

	// The panicking subscriber stays registered and panics again.
	bus.publish(Event{Channel: ChannelPrices})
	assert.Equal(t, 2, received)
	assert.Equal(t, 2, bus.count(ChannelPrices))
}

func TestBusChannelScoping(t *testing.T) {
	bus := newEventBus(zerolog.Nop())

	priceEvents := 0
	defiEvents := 0
	bus.subscribe(ChannelPrices, func(Event) { priceEvents++ })
	bus.subscribe(ChannelDefi, func(Event) { defiEvents++ })

	bus.publish(Event{Channel: ChannelPrices})
	bus.publish(Event{Channel: ChannelPrices})
	bus.publish(Event{Channel: ChannelDefi})

	assert.Equal(t, 2, priceEvents)
	assert.Equal(t, 1, defiEvents)
}

func TestBusUnsubscribeIdempotent(t *testing.T) {
	bus := newEventBus(zerolog.Nop())

	received := 0
	subID := bus.subscribe(ChannelPrices, func(Event) { received++ })
	require.Equal(t, 1, bus.count(ChannelPrices))

	bus.unsubscribe(subID)
	bus.unsubscribe(subID)
	bus.unsubscribe("never-existed")

	bus.publish(Event{Channel: ChannelPrices})
	assert.Equal(t, 0, received)
	assert.Equal(t, 0, bus.count(ChannelPrices))
}

func TestBusClearRemovesEverything(t *testing.T) {
	bus := newEventBus(zerolog.Nop())

	received := 0
	bus.subscribe(ChannelPrices, func(Event) { received++ })
	bus.subscribe(ChannelDefi, func(Event) { received++ })

	bus.clear()

	bus.publish(Event{Channel: ChannelPrices})
	bus.publish(Event{Channel: ChannelDefi})
	assert.Equal(t, 0, received)
}
