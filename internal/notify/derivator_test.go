package notify

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpulse/internal/hub"
	"marketpulse/internal/models"
)

func feedPrices(d *Derivator, symbol string, prices ...float64) {
	for _, price := range prices {
		d.HandleEvent(hub.Event{
			Channel: hub.ChannelPrices,
			Snapshot: hub.Snapshot{
				Channel: hub.ChannelPrices,
				Version: 1,
				Data: hub.PriceBook{Prices: []models.PricePoint{
					{Symbol: symbol, Price: price},
				}},
			},
		})
	}
}

func TestDerivatorFiresOnceAcrossSubThresholdDrift(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	// Baseline pins at 100. The drift to 104.9 stays silent even though
	// consecutive steps sum past 5%; only 106 crosses the threshold.
	feedPrices(d, "BTC", 100, 101, 103, 104.9)
	assert.Empty(t, center.Notifications())

	feedPrices(d, "BTC", 106)
	items := center.Notifications()
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationPriceAlert, items[0].Type)

	baseline, ok := d.Baseline("BTC")
	require.True(t, ok)
	assert.Equal(t, float64(106), baseline)

	// Re-reports only relative to the new baseline.
	feedPrices(d, "BTC", 110)
	assert.Len(t, center.Notifications(), 1)

	feedPrices(d, "BTC", 112)
	assert.Len(t, center.Notifications(), 2)
}

func TestDerivatorFirstSightingPinsSilently(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	feedPrices(d, "ETH", 4000)
	assert.Empty(t, center.Notifications())

	baseline, ok := d.Baseline("ETH")
	require.True(t, ok)
	assert.Equal(t, float64(4000), baseline)
}

func TestDerivatorExactThresholdFires(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	feedPrices(d, "BTC", 100, 105)
	assert.Len(t, center.Notifications(), 1)
}

func TestDerivatorDownMovesFire(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	feedPrices(d, "BTC", 100, 94)
	items := center.Notifications()
	require.Len(t, items, 1)

	baseline, _ := d.Baseline("BTC")
	assert.Equal(t, float64(94), baseline)
}

func TestDerivatorWatchlistScoping(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, []string{"ETH"}, zerolog.Nop())

	feedPrices(d, "BTC", 100, 200)
	assert.Empty(t, center.Notifications())

	_, tracked := d.Baseline("BTC")
	assert.False(t, tracked)

	feedPrices(d, "ETH", 100, 200)
	assert.Len(t, center.Notifications(), 1)
}

func TestDerivatorIgnoresNonPricePayloads(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	d.HandleEvent(hub.Event{
		Channel:  hub.ChannelMarketMovers,
		Snapshot: hub.Snapshot{Data: hub.MoverBoard{}},
	})
	assert.Empty(t, center.Notifications())
}

func TestPortfolioChangesAlwaysNotify(t *testing.T) {
	center := NewCenter(50, nil, zerolog.Nop())
	d := NewDerivator(center, 0.05, nil, zerolog.Nop())

	d.ObservePortfolio(models.PortfolioChange{
		Type:    models.HoldingAdded,
		Holding: models.PortfolioHolding{ID: "h1", Symbol: "BTC", Quantity: 0.0001},
	})
	d.ObservePortfolio(models.PortfolioChange{
		Type:    models.HoldingUpdated,
		Holding: models.PortfolioHolding{ID: "h1", Symbol: "BTC", Quantity: 0.0002},
	})
	d.ObservePortfolio(models.PortfolioChange{
		Type:    models.HoldingRemoved,
		Holding: models.PortfolioHolding{ID: "h1", Symbol: "BTC"},
	})

	items := center.Notifications()
	require.Len(t, items, 3)
	for _, n := range items {
		assert.Equal(t, models.NotificationPortfolioChange, n.Type)
	}
}

// Property: a walk of strictly sub-threshold steps never produces a
// notification, no matter how far the cumulative drift wanders.
func TestProperty_SubThresholdStepsNeverNotify(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	stepsGen := gen.SliceOfN(20, gen.Float64Range(-0.049, 0.049))

	properties.Property("cumulative sub-threshold drift stays silent", prop.ForAll(
		func(steps []float64) bool {
			center := NewCenter(50, nil, zerolog.Nop())
			d := NewDerivator(center, 0.05, nil, zerolog.Nop())

			price := 100.0
			feedPrices(d, "BTC", price)
			for _, step := range steps {
				// Each step moves relative to the pinned baseline, not the
				// previous price, so it stays below the trigger.
				baseline, _ := d.Baseline("BTC")
				price = baseline * (1 + step)
				feedPrices(d, "BTC", price)
			}
			return len(center.Notifications()) == 0
		},
		stepsGen,
	))

	properties.TestingRun(t)
}
