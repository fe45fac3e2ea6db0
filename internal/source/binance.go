package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/hub"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
)

// defaultWatchlist is used when the config does not pin one.
var defaultWatchlist = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "DOT", "AVAX", "LINK",
}

// BinanceFeed streams live price ticks from the Binance mini-ticker
// stream and converts them into price deltas. It implements
// hub.PushFeed for the prices channel.
type BinanceFeed struct {
	// pairs maps the exchange pair (BTCUSDT) to the display symbol (BTC).
	pairs  map[string]string
	logger zerolog.Logger
}

// NewBinanceFeed creates a price push feed for the given watchlist
// symbols. An empty watchlist falls back to the default major assets.
func NewBinanceFeed(watchlist []string, logger zerolog.Logger) *BinanceFeed {
	if len(watchlist) == 0 {
		watchlist = defaultWatchlist
	}
	pairs := make(map[string]string, len(watchlist))
	for _, sym := range watchlist {
		sym = strings.ToUpper(sym)
		pairs[sym+"USDT"] = sym
	}
	return &BinanceFeed{
		pairs:  pairs,
		logger: logging.WithComponent(logger, "binance_feed"),
	}
}

// Open implements hub.PushFeed. The returned channel closes when the
// upstream stream dies or ctx is cancelled; the hub reconnects with
// backoff on closure.
func (f *BinanceFeed) Open(ctx context.Context) (<-chan hub.Delta, error) {
	out := make(chan hub.Delta, 16)

	handler := func(events binance.WsAllMiniMarketsStatEvent) {
		points := f.convert(events)
		if len(points) == 0 {
			return
		}
		// Drop when backlogged; the next tick carries fresh prices anyway.
		select {
		case out <- hub.PriceDelta{Points: points}:
		default:
		}
	}
	errHandler := func(err error) {
		f.logger.Warn().Err(err).Msg("Binance stream error")
	}

	doneC, stopC, err := binance.WsAllMiniMarketsStatServe(handler, errHandler)
	if err != nil {
		return nil, apperrors.NewPushError(string(hub.ChannelPrices), 0, err)
	}

	go func() {
		defer close(out)
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
		case <-doneC:
		}
	}()

	return out, nil
}

// convert filters the tick batch down to watched pairs.
func (f *BinanceFeed) convert(events binance.WsAllMiniMarketsStatEvent) []models.PricePoint {
	now := time.Now()
	var points []models.PricePoint
	for _, e := range events {
		symbol, ok := f.pairs[e.Symbol]
		if !ok {
			continue
		}

		last, err := strconv.ParseFloat(e.LastPrice, 64)
		if err != nil || last <= 0 {
			continue
		}
		open, _ := strconv.ParseFloat(e.OpenPrice, 64)
		volume, _ := strconv.ParseFloat(e.QuoteVolume, 64)

		var change float64
		if open > 0 {
			change = (last - open) / open * 100
		}

		points = append(points, models.PricePoint{
			Symbol:    symbol,
			Price:     last,
			Change24h: change,
			Volume24h: volume,
			UpdatedAt: now,
		})
	}
	return points
}

var _ hub.PushFeed = (*BinanceFeed)(nil)
