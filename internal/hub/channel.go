// Package hub implements the real-time market data synchronization hub.
// It keeps a fixed set of market-data channels continuously fresh via
// periodic cold pulls and optional push feeds, and fans snapshot updates
// out to subscribers.
package hub

import (
	"context"
	"time"

	"marketpulse/internal/models"
)

// ChannelID identifies one data domain managed by the hub.
// The set is closed and known at compile time.
type ChannelID string

const (
	ChannelPrices        ChannelID = "prices"
	ChannelDefi          ChannelID = "defi"
	ChannelNFT           ChannelID = "nft"
	ChannelGameFi        ChannelID = "gamefi"
	ChannelDAO           ChannelID = "dao"
	ChannelMarketMovers  ChannelID = "market-movers"
	ChannelFearGreed     ChannelID = "fear-greed"
	ChannelNotifications ChannelID = "notifications"
)

// AllChannels returns the closed channel set in a stable order.
func AllChannels() []ChannelID {
	return []ChannelID{
		ChannelPrices,
		ChannelDefi,
		ChannelNFT,
		ChannelGameFi,
		ChannelDAO,
		ChannelMarketMovers,
		ChannelFearGreed,
		ChannelNotifications,
	}
}

// Valid reports whether the id belongs to the closed channel set.
func (c ChannelID) Valid() bool {
	switch c {
	case ChannelPrices, ChannelDefi, ChannelNFT, ChannelGameFi,
		ChannelDAO, ChannelMarketMovers, ChannelFearGreed, ChannelNotifications:
		return true
	}
	return false
}

// Payload is the typed snapshot value of one channel. Implementations
// form a closed set, one per channel.
type Payload interface {
	// Channel returns the channel this payload belongs to.
	Channel() ChannelID
}

// PriceBook is the prices channel payload: an ordered sequence of
// price records keyed by symbol.
type PriceBook struct {
	Prices []models.PricePoint
}

// ProtocolSet is the defi channel payload, keyed by protocol ID.
type ProtocolSet struct {
	Protocols []models.DefiProtocol
}

// CollectionSet is the nft channel payload, keyed by collection ID.
type CollectionSet struct {
	Collections []models.NFTCollection
}

// ProjectSet is the gamefi channel payload, keyed by project ID.
type ProjectSet struct {
	Projects []models.GameFiProject
}

// DAOSet is the dao channel payload, keyed by DAO ID.
type DAOSet struct {
	DAOs []models.DAOMetric
}

// MoverBoard is the market-movers channel payload. The board is
// replaced wholesale on every update.
type MoverBoard struct {
	Movers []models.MarketMover
}

// SentimentGauge is the fear-greed channel payload.
type SentimentGauge struct {
	Index models.FearGreedIndex
}

// NotificationList is the notifications channel payload: the current
// contents of the notification ring, newest first.
type NotificationList struct {
	Items []models.Notification
}

func (PriceBook) Channel() ChannelID        { return ChannelPrices }
func (ProtocolSet) Channel() ChannelID      { return ChannelDefi }
func (CollectionSet) Channel() ChannelID    { return ChannelNFT }
func (ProjectSet) Channel() ChannelID       { return ChannelGameFi }
func (DAOSet) Channel() ChannelID           { return ChannelDAO }
func (MoverBoard) Channel() ChannelID       { return ChannelMarketMovers }
func (SentimentGauge) Channel() ChannelID   { return ChannelFearGreed }
func (NotificationList) Channel() ChannelID { return ChannelNotifications }

// Delta is an incremental update delivered by a push feed between cold
// pulls. Like Payload, the set of implementations is closed.
type Delta interface {
	// Channel returns the channel this delta applies to.
	Channel() ChannelID
}

// PriceDelta upserts price records by symbol. Records absent from the
// delta are retained; Removals lists symbols to drop explicitly.
type PriceDelta struct {
	Points   []models.PricePoint
	Removals []string
}

// ProtocolDelta upserts protocol records by ID, with explicit removals.
type ProtocolDelta struct {
	Upserts  []models.DefiProtocol
	Removals []string
}

// MoverDelta replaces the market-movers board.
type MoverDelta struct {
	Movers []models.MarketMover
}

// NotificationDelta replaces the notification list. The ring is small
// and owned by a single producer, so replacement is the merge rule.
type NotificationDelta struct {
	Items []models.Notification
}

func (PriceDelta) Channel() ChannelID        { return ChannelPrices }
func (ProtocolDelta) Channel() ChannelID     { return ChannelDefi }
func (MoverDelta) Channel() ChannelID        { return ChannelMarketMovers }
func (NotificationDelta) Channel() ChannelID { return ChannelNotifications }

// FetchFunc performs a cold pull: a full re-fetch of a channel's
// current state from its source.
type FetchFunc func(ctx context.Context) (Payload, error)

// PushFeed is a long-lived subscription to a channel's change stream.
type PushFeed interface {
	// Open establishes the subscription. Deltas arrive on the returned
	// channel until the feed fails or ctx is cancelled; the channel is
	// closed when the feed exits.
	Open(ctx context.Context) (<-chan Delta, error)
}

// Channel describes one data domain registered with the hub.
type Channel struct {
	ID       ChannelID
	Fetch    FetchFunc
	Feed     PushFeed // optional
	Interval time.Duration
}

// UpdateOrigin records which path produced a snapshot mutation.
type UpdateOrigin string

const (
	// OriginColdPull marks a snapshot produced by a full re-fetch.
	// Cold pulls are the ground truth for channel state.
	OriginColdPull UpdateOrigin = "cold_pull"
	// OriginPush marks a snapshot produced by merging a push delta.
	// Push is a latency optimization, never the sole freshness source.
	OriginPush UpdateOrigin = "push"
)

// Snapshot is the versioned last-known-good value of a channel.
// Version 0 is the empty sentinel before the first successful fetch.
type Snapshot struct {
	Channel   ChannelID
	Version   uint64
	UpdatedAt time.Time
	Data      Payload
}

// IsEmpty reports whether the snapshot is the pre-first-fetch sentinel.
func (s Snapshot) IsEmpty() bool {
	return s.Version == 0
}

// Event is a typed snapshot mutation notification.
type Event struct {
	Channel  ChannelID
	Snapshot Snapshot
	Origin   UpdateOrigin
}

// Handler receives events for a subscribed channel.
type Handler func(Event)

// emptyPayload returns the zero-value payload for a channel.
func emptyPayload(id ChannelID) Payload {
	switch id {
	case ChannelPrices:
		return PriceBook{}
	case ChannelDefi:
		return ProtocolSet{}
	case ChannelNFT:
		return CollectionSet{}
	case ChannelGameFi:
		return ProjectSet{}
	case ChannelDAO:
		return DAOSet{}
	case ChannelMarketMovers:
		return MoverBoard{}
	case ChannelFearGreed:
		return SentimentGauge{}
	case ChannelNotifications:
		return NotificationList{}
	}
	return nil
}
