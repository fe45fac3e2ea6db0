package hub

import (
	"time"

	"marketpulse/internal/logging"
	"marketpulse/pkg/utils"
)

// defaultReconnectBase bounds push reconnect backoff for channels
// without a cold-pull cadence of their own.
const defaultReconnectBase = 30 * time.Second

// runPushListener maintains one long-lived push subscription for a
// channel, merging incoming deltas into the snapshot between cold
// pulls. When the feed drops it reconnects with the scheduler's backoff
// policy; the cold-pull cadence continues uninterrupted as the
// freshness fallback, so correctness never depends on push delivery.
func (h *Hub) runPushListener(c Channel) {
	defer h.wg.Done()

	logger := logging.WithChannel(h.logger, string(c.ID))

	base := c.Interval
	if base <= 0 {
		base = defaultReconnectBase
	}

	attempt := 0
	for {
		if h.ctx.Err() != nil {
			return
		}

		deltas, err := c.Feed.Open(h.ctx)
		if err != nil {
			attempt++
			delay := utils.CalculateBackoff(attempt-1, base, 2*base, 2.0)
			logger.Warn().Err(err).Msg("Push feed open failed")
			logging.LogPushReconnect(logger, string(c.ID), attempt, delay)
			select {
			case <-h.ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		logger.Info().Msg("Push feed connected")

		for delta := range deltas {
			h.applyDelta(delta)
		}

		if h.ctx.Err() != nil {
			return
		}

		attempt++
		delay := utils.CalculateBackoff(attempt-1, base, 2*base, 2.0)
		logging.LogPushReconnect(logger, string(c.ID), attempt, delay)
		select {
		case <-h.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// applyDelta merges one push delta into the channel snapshot. Each
// successful merge bumps the version and publishes an event exactly as
// a cold-pull success would. A lost version race is re-merged against
// the newer snapshot rather than dropped.
func (h *Hub) applyDelta(d Delta) {
	id := d.Channel()
	if _, ok := h.channels[id]; !ok {
		return
	}

	for {
		if h.isClosed() {
			return
		}

		cur := h.store.Get(id)
		merged, err := mergeDelta(cur.Data, d)
		if err != nil {
			h.logger.Warn().
				Str("channel", string(id)).
				Err(err).
				Msg("Dropping unmergeable delta")
			return
		}

		snap := Snapshot{
			Channel:   id,
			Version:   cur.Version + 1,
			UpdatedAt: time.Now(),
			Data:      merged,
		}
		if h.commit(snap, OriginPush) {
			h.deltasMerged.Add(1)
			return
		}
	}
}
