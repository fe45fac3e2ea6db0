package notify

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"marketpulse/internal/hub"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
	"marketpulse/pkg/utils"
)

// Derivator observes price-channel events and portfolio changes and
// synthesizes user-facing notifications.
//
// Each watched symbol carries a baseline price. An update only fires a
// notification when it moves at least threshold away from the baseline,
// and the baseline then re-pins to the new value. Sub-threshold drift
// never moves the baseline, so many small changes cannot accumulate
// into notification spam and a reported move is not re-reported on
// every tick.
type Derivator struct {
	center    *Center
	threshold float64
	watch     map[string]bool // empty = watch every symbol
	logger    zerolog.Logger

	mu        sync.Mutex
	baselines map[string]float64

	subID string
}

// NewDerivator creates a derivator feeding the given center. threshold
// is the fractional price move that triggers an alert (0.05 = 5%). An
// empty watchlist watches every symbol in the price snapshot.
func NewDerivator(center *Center, threshold float64, watchlist []string, logger zerolog.Logger) *Derivator {
	watch := make(map[string]bool, len(watchlist))
	for _, sym := range watchlist {
		watch[sym] = true
	}
	return &Derivator{
		center:    center,
		threshold: threshold,
		watch:     watch,
		logger:    logging.WithComponent(logger, "derivator"),
		baselines: make(map[string]float64),
	}
}

// Attach subscribes the derivator to the hub's price channel.
func (d *Derivator) Attach(h *hub.Hub) error {
	subID, err := h.Subscribe(hub.ChannelPrices, d.HandleEvent)
	if err != nil {
		return err
	}
	d.subID = subID
	return nil
}

// Detach removes the price-channel subscription.
func (d *Derivator) Detach(h *hub.Hub) {
	if d.subID != "" {
		h.Unsubscribe(d.subID)
		d.subID = ""
	}
}

// HandleEvent is the price-channel handler. Events from other channels
// are ignored.
func (d *Derivator) HandleEvent(ev hub.Event) {
	book, ok := ev.Snapshot.Data.(hub.PriceBook)
	if !ok {
		return
	}
	for _, p := range book.Prices {
		d.observe(p)
	}
}

// observe runs one price through the baseline state machine.
func (d *Derivator) observe(p models.PricePoint) {
	if len(d.watch) > 0 && !d.watch[p.Symbol] {
		return
	}
	if p.Price <= 0 {
		return
	}

	d.mu.Lock()
	baseline, ok := d.baselines[p.Symbol]
	if !ok {
		d.baselines[p.Symbol] = p.Price
		d.mu.Unlock()
		return
	}

	delta := math.Abs(p.Price-baseline) / baseline
	if delta < d.threshold {
		d.mu.Unlock()
		return
	}
	d.baselines[p.Symbol] = p.Price
	d.mu.Unlock()

	changePct := (p.Price - baseline) / baseline * 100
	d.center.Push(models.Notification{
		Type:    models.NotificationPriceAlert,
		Title:   fmt.Sprintf("%s price alert", p.Symbol),
		Message: fmt.Sprintf("%s moved %s to %s", p.Symbol, utils.FormatPercent(changePct), utils.FormatUSD(p.Price)),
		Data: map[string]interface{}{
			"symbol":         p.Symbol,
			"baseline":       baseline,
			"price":          p.Price,
			"change_percent": changePct,
		},
	})
}

// ObservePortfolio emits a notification for an explicit portfolio
// action. User actions always notify, regardless of magnitude.
func (d *Derivator) ObservePortfolio(change models.PortfolioChange) {
	var title, message string
	switch change.Type {
	case models.HoldingAdded:
		title = "Holding added"
		message = fmt.Sprintf("Added %.4f %s to portfolio", change.Holding.Quantity, change.Holding.Symbol)
	case models.HoldingRemoved:
		title = "Holding removed"
		message = fmt.Sprintf("Removed %s from portfolio", change.Holding.Symbol)
	default:
		title = "Holding updated"
		message = fmt.Sprintf("Updated %s to %.4f units", change.Holding.Symbol, change.Holding.Quantity)
	}

	d.center.Push(models.Notification{
		Type:    models.NotificationPortfolioChange,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"change_type": string(change.Type),
			"holding_id":  change.Holding.ID,
			"symbol":      change.Holding.Symbol,
		},
	})
}

// Baseline returns the current baseline for a symbol, if any.
func (d *Derivator) Baseline(symbol string) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.baselines[symbol]
	return v, ok
}
