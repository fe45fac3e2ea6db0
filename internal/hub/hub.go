package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/logging"
)

// Hub is the single entry point consumers use to read snapshots,
// subscribe to updates, and trigger refreshes. It owns one scheduler
// and optional push listener per channel. Lifecycle is explicit: the
// application bootstrap constructs the hub, calls Initialize, and calls
// Shutdown on teardown.
type Hub struct {
	channels map[ChannelID]Channel
	order    []ChannelID

	store  *snapshotStore
	bus    *eventBus
	health *healthTracker
	logger zerolog.Logger

	// commitMu serializes store-and-publish per channel. The version CAS
	// alone decides which write wins, but without this lock a winning
	// writer could be preempted between storing version N and publishing
	// it while another committer stores and publishes N+1, delivering
	// events out of version order.
	commitMu map[ChannelID]*sync.Mutex

	flight singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// closeMu orders commits against Shutdown: once Shutdown holds the
	// write lock and flips closed, no further snapshot is stored and no
	// further event is published, even by a straggling fetch.
	closeMu sync.RWMutex
	closed  bool

	initMu      sync.Mutex
	initStarted bool
	initDone    chan struct{}
	initErr     error

	// Metrics
	fetches         atomic.Uint64
	fetchFailures   atomic.Uint64
	deltasMerged    atomic.Uint64
	eventsPublished atomic.Uint64
	staleWrites     atomic.Uint64
}

// Metrics contains hub counters.
type Metrics struct {
	Fetches             uint64
	FetchFailures       uint64
	DeltasMerged        uint64
	EventsPublished     uint64
	StaleWritesRejected uint64
	Subscribers         int
}

// New creates a hub managing the given channels. Channels with an
// unknown or duplicate ID are rejected.
func New(channels []Channel, logger zerolog.Logger) (*Hub, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		channels: make(map[ChannelID]Channel, len(channels)),
		store:    newSnapshotStore(),
		health:   newHealthTracker(),
		logger:   logging.WithComponent(logger, "hub"),
		commitMu: make(map[ChannelID]*sync.Mutex, len(AllChannels())),
		ctx:      ctx,
		cancel:   cancel,
		initDone: make(chan struct{}),
	}
	for _, id := range AllChannels() {
		h.commitMu[id] = &sync.Mutex{}
	}
	h.bus = newEventBus(h.logger)

	for _, c := range channels {
		if !c.ID.Valid() {
			cancel()
			return nil, apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", c.ID)
		}
		if _, dup := h.channels[c.ID]; dup {
			cancel()
			return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "duplicate channel %q", c.ID)
		}
		h.channels[c.ID] = c
		h.order = append(h.order, c.ID)
	}

	return h, nil
}

// Initialize starts the hub: it performs one synchronous first fetch
// per channel, then starts the schedulers and push listeners. It is
// idempotent and concurrency-safe; concurrent callers await the same
// single initialization attempt.
func (h *Hub) Initialize(ctx context.Context) error {
	h.initMu.Lock()
	if h.initStarted {
		done := h.initDone
		h.initMu.Unlock()
		select {
		case <-done:
			return h.initErr
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.initStarted = true
	h.initMu.Unlock()

	err := h.initialize(ctx)
	h.initErr = err
	close(h.initDone)
	return err
}

func (h *Hub) initialize(ctx context.Context) error {
	if h.isClosed() {
		return apperrors.ErrHubClosed
	}

	// First fetch of every channel, attempted concurrently. Failures
	// land in channel health; they do not fail initialization.
	var wg sync.WaitGroup
	for _, id := range h.order {
		c := h.channels[id]
		if c.Fetch == nil {
			continue
		}
		wg.Add(1)
		go func(c Channel) {
			defer wg.Done()
			if _, err := h.Refresh(ctx, c.ID); err != nil {
				h.logger.Warn().
					Str("channel", string(c.ID)).
					Err(err).
					Msg("Initial fetch failed")
			}
		}(c)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if h.isClosed() {
		return apperrors.ErrHubClosed
	}

	for _, id := range h.order {
		c := h.channels[id]
		if c.Fetch != nil && c.Interval > 0 {
			h.wg.Add(1)
			go h.runScheduler(c)
		}
		if c.Feed != nil {
			h.wg.Add(1)
			go h.runPushListener(c)
		}
	}

	h.logger.Info().Int("channels", len(h.channels)).Msg("Hub initialized")
	return nil
}

// GetSnapshot returns the current snapshot for a channel. It never
// fails and never blocks; before the first successful fetch it returns
// the empty sentinel (version 0).
func (h *Hub) GetSnapshot(id ChannelID) Snapshot {
	return h.store.Get(id)
}

// Subscribe registers a handler invoked on every future mutation of the
// channel and returns the subscription id.
func (h *Hub) Subscribe(id ChannelID, handler Handler) (string, error) {
	if !id.Valid() {
		return "", apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", id)
	}
	return h.bus.subscribe(id, handler), nil
}

// Unsubscribe removes a subscription. Removing an already-removed id
// is a no-op.
func (h *Hub) Unsubscribe(subID string) {
	h.bus.unsubscribe(subID)
}

// Refresh triggers a manual out-of-band cold pull. Concurrent calls for
// the same channel attach to the in-flight fetch instead of issuing a
// second one, and all callers receive the same resulting snapshot.
func (h *Hub) Refresh(ctx context.Context, id ChannelID) (Snapshot, error) {
	c, ok := h.channels[id]
	if !ok {
		return Snapshot{Channel: id}, apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", id)
	}
	if c.Fetch == nil {
		return h.store.Get(id), apperrors.Wrapf(apperrors.ErrNoFetchFunc, "channel %q", id)
	}
	if h.isClosed() {
		return h.store.Get(id), apperrors.ErrHubClosed
	}

	v, err, _ := h.flight.Do(string(id), func() (interface{}, error) {
		return h.fetchOnce(ctx, c)
	})
	snap, ok := v.(Snapshot)
	if !ok {
		snap = h.store.Get(id)
	}
	return snap, err
}

// fetchOnce executes a single cold pull and commits the result. On
// failure the previous snapshot is retained untouched and only channel
// health changes.
func (h *Hub) fetchOnce(ctx context.Context, c Channel) (Snapshot, error) {
	start := time.Now()
	h.fetches.Add(1)

	payload, err := h.safeFetch(ctx, c)
	if err != nil {
		h.fetchFailures.Add(1)
		prev := h.store.Get(c.ID)

		// A panicking fetcher is a programming error, not staleness:
		// the channel reports error status even while the previous
		// snapshot keeps being served.
		var hard *apperrors.HardFailure
		hasSnapshot := !prev.IsEmpty() && !errors.As(err, &hard)

		health := h.health.recordFailure(c.ID, hasSnapshot)
		logging.LogFetch(h.logger, string(c.ID), prev.Version, time.Since(start), err)
		logging.LogHealth(h.logger, string(c.ID), string(health.Status), health.ConsecutiveFailures)
		return prev, err
	}

	base := h.store.Get(c.ID)
	snap := Snapshot{
		Channel:   c.ID,
		Version:   base.Version + 1,
		UpdatedAt: time.Now(),
		Data:      payload,
	}
	if !h.commit(snap, OriginColdPull) {
		if h.isClosed() {
			// Shutdown raced the fetch; the result is discarded without
			// touching snapshot, events, or health.
			return h.store.Get(c.ID), nil
		}
		// A concurrent push merge won the version race; its value is
		// newer than this pull, so the pull still counts as a success.
		snap = h.store.Get(c.ID)
	}
	h.health.recordSuccess(c.ID)
	logging.LogFetch(h.logger, string(c.ID), snap.Version, time.Since(start), nil)
	return snap, nil
}

// safeFetch invokes the channel's fetch function, converting panics
// into HardFailure errors so a broken fetcher cannot take down the hub.
func (h *Hub) safeFetch(ctx context.Context, c Channel) (payload Payload, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload = nil
			err = apperrors.NewHardFailure(string(c.ID), r)
		}
	}()
	return c.Fetch(ctx)
}

// commit stores a snapshot and publishes its event. It returns false
// when the write is stale (version <= stored) or the hub has shut down;
// in both cases nothing is stored and no event is emitted. The channel's
// commit mutex keeps store and publish atomic with respect to other
// committers, so subscribers see versions in the order they were
// applied.
func (h *Hub) commit(snap Snapshot, origin UpdateOrigin) bool {
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()

	if h.closed {
		return false
	}

	mu, ok := h.commitMu[snap.Channel]
	if !ok {
		return false
	}
	mu.Lock()
	defer mu.Unlock()

	if !h.store.CompareAndStore(snap) {
		h.staleWrites.Add(1)
		return false
	}
	h.eventsPublished.Add(1)
	h.bus.publish(Event{Channel: snap.Channel, Snapshot: snap, Origin: origin})
	return true
}

func (h *Hub) isClosed() bool {
	h.closeMu.RLock()
	defer h.closeMu.RUnlock()
	return h.closed
}

// Health returns the freshness state of a channel.
func (h *Hub) Health(id ChannelID) ChannelHealth {
	return h.health.get(id)
}

// HealthAll returns the health of every managed channel in stable order.
func (h *Hub) HealthAll() []ChannelHealth {
	out := make([]ChannelHealth, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.health.get(id))
	}
	return out
}

// Metrics returns hub counters.
func (h *Hub) Metrics() Metrics {
	subs := 0
	for _, id := range AllChannels() {
		subs += h.bus.count(id)
	}
	return Metrics{
		Fetches:             h.fetches.Load(),
		FetchFailures:       h.fetchFailures.Load(),
		DeltasMerged:        h.deltasMerged.Load(),
		EventsPublished:     h.eventsPublished.Load(),
		StaleWritesRejected: h.staleWrites.Load(),
		Subscribers:         subs,
	}
}

// Shutdown stops all background work: timers are cancelled, push feeds
// closed, and subscriber registrations cleared. A fetch in flight may
// complete but its result is discarded; after Shutdown returns no
// snapshot changes and no events are emitted.
func (h *Hub) Shutdown() {
	h.cancel()

	h.closeMu.Lock()
	alreadyClosed := h.closed
	h.closed = true
	h.closeMu.Unlock()

	if alreadyClosed {
		return
	}

	h.wg.Wait()
	h.bus.clear()
	h.logger.Info().Msg("Hub shut down")
}
