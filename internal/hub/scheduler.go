package hub

import (
	"time"

	"marketpulse/pkg/utils"
)

// runScheduler drives periodic cold pulls for one channel. On failure
// the next attempt backs off exponentially, bounded below by the
// channel's nominal interval and above by twice that interval, so a
// failing channel never retries faster than its steady-state cadence
// and never goes quiet for much longer than it.
func (h *Hub) runScheduler(c Channel) {
	defer h.wg.Done()

	delay := c.Interval
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-timer.C:
		}

		_, err := h.Refresh(h.ctx, c.ID)
		if err != nil && h.ctx.Err() == nil {
			failures := h.health.failures(c.ID)
			delay = utils.CalculateBackoff(failures-1, c.Interval, 2*c.Interval, 2.0)
			h.logger.Debug().
				Str("channel", string(c.ID)).
				Int("consecutive_failures", failures).
				Dur("retry_in", delay).
				Msg("Scheduled fetch failed, backing off")
		} else {
			delay = c.Interval
		}

		timer.Reset(delay)
	}
}
