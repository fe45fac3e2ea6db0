package source

import (
	"context"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/hub"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
)

// moversMessage is the wire shape pushed by the movers feed: a full
// replacement board per message.
type moversMessage struct {
	Movers []struct {
		Symbol        string  `json:"symbol"`
		Name          string  `json:"name"`
		Price         float64 `json:"price"`
		ChangePercent float64 `json:"change_percent"`
	} `json:"movers"`
}

// MoversFeed subscribes to a websocket endpoint that pushes the market
// movers board. It implements hub.PushFeed for the market-movers
// channel; the feed is optional and enabled per config.
type MoversFeed struct {
	url    string
	logger zerolog.Logger
}

// NewMoversFeed creates a movers push feed for the given endpoint.
func NewMoversFeed(url string, logger zerolog.Logger) *MoversFeed {
	return &MoversFeed{
		url:    url,
		logger: logging.WithComponent(logger, "movers_feed"),
	}
}

// Open implements hub.PushFeed.
func (f *MoversFeed) Open(ctx context.Context) (<-chan hub.Delta, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, apperrors.NewPushError(string(hub.ChannelMarketMovers), 0, err)
	}

	out := make(chan hub.Delta, 16)

	// Cancellation unblocks the reader by closing the connection.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var msg moversMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					f.logger.Warn().Err(err).Msg("Movers feed read failed")
				}
				return
			}

			movers := make([]models.MarketMover, 0, len(msg.Movers))
			for _, m := range msg.Movers {
				direction := models.MoverGainer
				if m.ChangePercent < 0 {
					direction = models.MoverLoser
				}
				movers = append(movers, models.MarketMover{
					Symbol:        m.Symbol,
					Name:          m.Name,
					Price:         m.Price,
					ChangePercent: m.ChangePercent,
					Direction:     direction,
				})
			}

			select {
			case out <- hub.MoverDelta{Movers: movers}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

var _ hub.PushFeed = (*MoversFeed)(nil)
