package cli

import (
	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/hub"
	"marketpulse/internal/notify"
	"marketpulse/internal/source"
	"marketpulse/internal/store"
)

// buildCenter constructs the notification center, backed by the SQLite
// archive when enabled. The returned cleanup closes the archive.
func (app *App) buildCenter() (*notify.Center, func(), error) {
	var archive store.NotificationStore
	cleanup := func() {}

	if app.Config.Notifications.ArchiveEnabled {
		sqliteStore, err := store.NewSQLiteStore(app.Config.Notifications.ArchivePath)
		if err != nil {
			return nil, nil, apperrors.Wrap(err, "opening notification archive")
		}
		archive = sqliteStore
		cleanup = func() { sqliteStore.Close() }
	}

	center := notify.NewCenter(app.Config.Notifications.RingCapacity, archive, app.Logger)
	return center, cleanup, nil
}

// buildChannels wires the channel registrations for the given ids, or
// every channel when ids is empty. The notifications channel is only
// included when a center is provided.
func (app *App) buildChannels(center *notify.Center, ids ...hub.ChannelID) ([]hub.Channel, error) {
	src := source.NewHTTPSource(source.HTTPConfig{
		MarketAPIURL: app.Config.Sources.MarketAPIURL,
		DefiAPIURL:   app.Config.Sources.DefiAPIURL,
		SentimentURL: app.Config.Sources.SentimentURL,
		Timeout:      app.Config.Sources.RequestTimeout,
	}, app.Logger)

	intervals := app.Config.Channels

	prices := hub.Channel{
		ID:       hub.ChannelPrices,
		Fetch:    src.FetchPrices,
		Interval: intervals.PricesInterval,
	}
	if app.Config.Sources.BinanceStream {
		prices.Feed = source.NewBinanceFeed(intervals.Watchlist, app.Logger)
	}

	movers := hub.Channel{
		ID:       hub.ChannelMarketMovers,
		Fetch:    src.FetchMarketMovers,
		Interval: intervals.MarketMoversInterval,
	}
	if url := app.Config.Sources.MoversFeedURL; url != "" {
		movers.Feed = source.NewMoversFeed(url, app.Logger)
	}

	byID := map[hub.ChannelID]hub.Channel{
		hub.ChannelPrices: prices,
		hub.ChannelDefi: {
			ID:       hub.ChannelDefi,
			Fetch:    src.FetchDefiProtocols,
			Interval: intervals.DefiInterval,
		},
		hub.ChannelNFT: {
			ID:       hub.ChannelNFT,
			Fetch:    src.FetchNFTCollections,
			Interval: intervals.NFTInterval,
		},
		hub.ChannelGameFi: {
			ID:       hub.ChannelGameFi,
			Fetch:    src.FetchGameFi,
			Interval: intervals.GameFiInterval,
		},
		hub.ChannelDAO: {
			ID:       hub.ChannelDAO,
			Fetch:    src.FetchDAOs,
			Interval: intervals.DAOInterval,
		},
		hub.ChannelMarketMovers: movers,
		hub.ChannelFearGreed: {
			ID:       hub.ChannelFearGreed,
			Fetch:    src.FetchFearGreed,
			Interval: intervals.FearGreedInterval,
		},
	}
	if center != nil {
		byID[hub.ChannelNotifications] = center.HubChannel()
	}

	if len(ids) == 0 {
		ids = hub.AllChannels()
	}

	channels := make([]hub.Channel, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", id)
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// parseChannelArgs validates channel name arguments.
func parseChannelArgs(args []string) ([]hub.ChannelID, error) {
	ids := make([]hub.ChannelID, 0, len(args))
	for _, arg := range args {
		id := hub.ChannelID(arg)
		if !id.Valid() {
			return nil, apperrors.Wrapf(apperrors.ErrUnknownChannel, "channel %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
