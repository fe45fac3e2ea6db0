package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/models"
)

func staticFetch(payload Payload) FetchFunc {
	return func(ctx context.Context) (Payload, error) {
		return payload, nil
	}
}

func btcBook(price float64) PriceBook {
	return PriceBook{Prices: []models.PricePoint{{Symbol: "BTC", Price: price}}}
}

func TestNewRejectsUnknownAndDuplicateChannels(t *testing.T) {
	_, err := New([]Channel{{ID: ChannelID("bogus")}}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownChannel))

	_, err = New([]Channel{
		{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))},
		{ID: ChannelPrices, Fetch: staticFetch(btcBook(2))},
	}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfigInvalid))
}

func TestRefreshCoalescesConcurrentCalls(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (Payload, error) {
		calls.Add(1)
		<-release
		return btcBook(50000), nil
	}

	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	const callers = 10
	results := make(chan Snapshot, callers)
	var ready, wg sync.WaitGroup
	ready.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ready.Done()
			snap, err := h.Refresh(context.Background(), ChannelPrices)
			assert.NoError(t, err)
			results <- snap
		}()
	}

	// Let every caller attach to the in-flight fetch before releasing it.
	ready.Wait()
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), calls.Load())
	for snap := range results {
		assert.Equal(t, uint64(1), snap.Version)
	}
}

func TestRefreshUnknownChannel(t *testing.T) {
	h, err := New(nil, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownChannel))
}

func TestFetchFailureRetainsSnapshot(t *testing.T) {
	var fail atomic.Bool
	fetch := func(ctx context.Context) (Payload, error) {
		if fail.Load() {
			return nil, errors.New("upstream down")
		}
		return btcBook(50000), nil
	}

	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	snap, err := h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Version)
	assert.Equal(t, HealthFresh, h.Health(ChannelPrices).Status)

	fail.Store(true)
	for i := 0; i < 3; i++ {
		_, err := h.Refresh(context.Background(), ChannelPrices)
		require.Error(t, err)
	}

	// The last-known-good snapshot is still served untouched.
	kept := h.GetSnapshot(ChannelPrices)
	assert.Equal(t, uint64(1), kept.Version)
	assert.Equal(t, float64(50000), kept.Data.(PriceBook).Prices[0].Price)

	health := h.Health(ChannelPrices)
	assert.Equal(t, HealthStale, health.Status)
	assert.Equal(t, 3, health.ConsecutiveFailures)

	fail.Store(false)
	snap, err = h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, HealthFresh, h.Health(ChannelPrices).Status)
	assert.Equal(t, 0, h.Health(ChannelPrices).ConsecutiveFailures)
}

func TestChannelFailureIsolation(t *testing.T) {
	failing := func(ctx context.Context) (Payload, error) {
		return nil, errors.New("always down")
	}

	h, err := New([]Channel{
		{ID: ChannelPrices, Fetch: failing},
		{ID: ChannelDefi, Fetch: staticFetch(ProtocolSet{Protocols: []models.DefiProtocol{{ID: "aave"}}})},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.Error(t, err)
	_, err = h.Refresh(context.Background(), ChannelDefi)
	require.NoError(t, err)

	// Prices never succeeded and has no data to serve.
	assert.Equal(t, HealthError, h.Health(ChannelPrices).Status)
	assert.True(t, h.GetSnapshot(ChannelPrices).IsEmpty())

	// Defi is unaffected.
	assert.Equal(t, HealthFresh, h.Health(ChannelDefi).Status)
	assert.Equal(t, uint64(1), h.GetSnapshot(ChannelDefi).Version)
}

func TestPanickingFetchIsHardFailure(t *testing.T) {
	fetch := func(ctx context.Context) (Payload, error) {
		panic("broken fetcher")
	}

	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.Error(t, err)

	var hard *apperrors.HardFailure
	require.True(t, errors.As(err, &hard))
	assert.Equal(t, string(ChannelPrices), hard.Channel)

	// The hub survives and keeps serving.
	assert.True(t, h.GetSnapshot(ChannelPrices).IsEmpty())
	assert.Equal(t, HealthError, h.Health(ChannelPrices).Status)
}

func TestPanicAfterSuccessReportsErrorNotStale(t *testing.T) {
	var broken atomic.Bool
	fetch := func(ctx context.Context) (Payload, error) {
		if broken.Load() {
			panic("regression")
		}
		return btcBook(100), nil
	}

	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)

	broken.Store(true)
	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.Error(t, err)

	// Programming errors surface as error status, but the last-known-good
	// snapshot is still served.
	assert.Equal(t, HealthError, h.Health(ChannelPrices).Status)
	assert.Equal(t, uint64(1), h.GetSnapshot(ChannelPrices).Version)
}

func TestInitializeCoalesced(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context) (Payload, error) {
		calls.Add(1)
		return btcBook(1), nil
	}

	// Interval 0: no scheduler, so fetch count stays deterministic.
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	// A later call short-circuits on the finished initialization.
	require.NoError(t, h.Initialize(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), h.GetSnapshot(ChannelPrices).Version)
}

func TestInitializeSucceedsDespiteFailingChannel(t *testing.T) {
	h, err := New([]Channel{
		{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))},
		{ID: ChannelDefi, Fetch: func(ctx context.Context) (Payload, error) {
			return nil, errors.New("down")
		}},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	require.NoError(t, h.Initialize(context.Background()))
	assert.Equal(t, HealthFresh, h.Health(ChannelPrices).Status)
	assert.Equal(t, HealthError, h.Health(ChannelDefi).Status)
}

func TestSubscribeReceivesColdPullEvent(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(123))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	events := make(chan Event, 1)
	_, err = h.Subscribe(ChannelPrices, func(ev Event) { events <- ev })
	require.NoError(t, err)

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, ChannelPrices, ev.Channel)
		assert.Equal(t, uint64(1), ev.Snapshot.Version)
		assert.Equal(t, OriginColdPull, ev.Origin)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	var received atomic.Int32
	subID, err := h.Subscribe(ChannelPrices, func(Event) { received.Add(1) })
	require.NoError(t, err)

	h.Unsubscribe(subID)
	h.Unsubscribe(subID)

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)
	assert.Equal(t, int32(0), received.Load())
}

func TestApplyDeltaMergesAndPublishes(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(100))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.NoError(t, err)

	events := make(chan Event, 1)
	_, err = h.Subscribe(ChannelPrices, func(ev Event) { events <- ev })
	require.NoError(t, err)

	h.applyDelta(PriceDelta{Points: []models.PricePoint{
		{Symbol: "BTC", Price: 101},
		{Symbol: "ETH", Price: 4000},
	}})

	snap := h.GetSnapshot(ChannelPrices)
	assert.Equal(t, uint64(2), snap.Version)
	book := snap.Data.(PriceBook)
	require.Len(t, book.Prices, 2)
	assert.Equal(t, float64(101), book.Prices[0].Price)

	select {
	case ev := <-events:
		assert.Equal(t, OriginPush, ev.Origin)
		assert.Equal(t, uint64(2), ev.Snapshot.Version)
	case <-time.After(time.Second):
		t.Fatal("no push event delivered")
	}

	assert.Equal(t, uint64(1), h.Metrics().DeltasMerged)
}

func TestApplyDeltaIgnoresUnregisteredChannel(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	h.applyDelta(MoverDelta{Movers: []models.MarketMover{{Symbol: "X"}}})
	assert.True(t, h.GetSnapshot(ChannelMarketMovers).IsEmpty())
}

type scriptedFeed struct {
	deltas chan Delta
}

func (f *scriptedFeed) Open(ctx context.Context) (<-chan Delta, error) {
	out := make(chan Delta)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-f.deltas:
				if !ok {
					return
				}
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

func TestPushFeedEndToEnd(t *testing.T) {
	feed := &scriptedFeed{deltas: make(chan Delta)}

	h, err := New([]Channel{{
		ID:    ChannelPrices,
		Fetch: staticFetch(btcBook(100)),
		Feed:  feed,
	}}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, h.Initialize(context.Background()))

	events := make(chan Event, 1)
	_, err = h.Subscribe(ChannelPrices, func(ev Event) {
		if ev.Origin == OriginPush {
			events <- ev
		}
	})
	require.NoError(t, err)

	feed.deltas <- PriceDelta{Points: []models.PricePoint{{Symbol: "BTC", Price: 105}}}

	select {
	case ev := <-events:
		book := ev.Snapshot.Data.(PriceBook)
		assert.Equal(t, float64(105), book.Prices[0].Price)
		assert.Equal(t, uint64(2), ev.Snapshot.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("push delta never surfaced")
	}

	h.Shutdown()
}

func TestEventDeliveryVersionOrdered(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	// Each subscriber records the version sequence it observes while
	// several committers race on the same channel.
	type record struct {
		mu       sync.Mutex
		versions []uint64
	}
	const subscribers = 4
	records := make([]*record, subscribers)
	for i := range records {
		rec := &record{}
		records[i] = rec
		_, err := h.Subscribe(ChannelPrices, func(ev Event) {
			rec.mu.Lock()
			rec.versions = append(rec.versions, ev.Snapshot.Version)
			rec.mu.Unlock()
		})
		require.NoError(t, err)
	}

	const writers = 4
	const updates = 2000
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < updates; i++ {
				h.applyDelta(PriceDelta{Points: []models.PricePoint{
					{Symbol: "BTC", Price: float64(i + 1)},
				}})
			}
		}()
	}
	wg.Wait()

	for i, rec := range records {
		for j := 1; j < len(rec.versions); j++ {
			if rec.versions[j] <= rec.versions[j-1] {
				t.Fatalf("subscriber %d saw version %d after %d",
					i, rec.versions[j], rec.versions[j-1])
			}
		}
	}
}

func TestStaleCommitRejected(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	require.True(t, h.commit(Snapshot{Channel: ChannelPrices, Version: 2, Data: btcBook(2)}, OriginPush))

	// A slower write with an older version loses and changes nothing.
	require.False(t, h.commit(Snapshot{Channel: ChannelPrices, Version: 1, Data: btcBook(1)}, OriginColdPull))

	snap := h.GetSnapshot(ChannelPrices)
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, float64(2), snap.Data.(PriceBook).Prices[0].Price)
	assert.Equal(t, uint64(1), h.Metrics().StaleWritesRejected)
}

func TestShutdownDiscardsInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (Payload, error) {
		close(started)
		<-release
		return btcBook(1), nil
	}

	h, err := New([]Channel{{ID: ChannelPrices, Fetch: fetch}}, zerolog.Nop())
	require.NoError(t, err)

	var published atomic.Int32
	_, err = h.Subscribe(ChannelPrices, func(Event) { published.Add(1) })
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.Refresh(context.Background(), ChannelPrices)
	}()

	<-started
	h.Shutdown()
	close(release)
	<-done

	// The straggling fetch completed but its result was discarded
	// entirely: no snapshot, no event, no health transition.
	assert.True(t, h.GetSnapshot(ChannelPrices).IsEmpty())
	assert.Equal(t, int32(0), published.Load())
	assert.Equal(t, uint64(0), h.Metrics().EventsPublished)
	assert.Equal(t, HealthUnknown, h.Health(ChannelPrices).Status)
}

func TestShutdownIdempotent(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)

	h.Shutdown()
	h.Shutdown()

	_, err = h.Refresh(context.Background(), ChannelPrices)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrHubClosed))
}

func TestGetSnapshotBeforeFirstFetch(t *testing.T) {
	h, err := New([]Channel{{ID: ChannelPrices, Fetch: staticFetch(btcBook(1))}}, zerolog.Nop())
	require.NoError(t, err)
	defer h.Shutdown()

	snap := h.GetSnapshot(ChannelPrices)
	assert.True(t, snap.IsEmpty())
	assert.NotNil(t, snap.Data)
	assert.Equal(t, HealthUnknown, h.Health(ChannelPrices).Status)
}
