package hub

import (
	apperrors "marketpulse/internal/errors"

	"marketpulse/internal/models"
)

// mergeDelta applies a push delta to the current payload and returns
// the merged payload. For keyed collections an incoming record updates
// an existing key or appends a new one; records are only dropped via
// explicit removals. Board-style channels are replaced wholesale.
func mergeDelta(current Payload, d Delta) (Payload, error) {
	if current == nil {
		current = emptyPayload(d.Channel())
	}
	if current.Channel() != d.Channel() {
		return nil, apperrors.NewMergeError(string(d.Channel()),
			"delta channel does not match payload channel")
	}

	switch delta := d.(type) {
	case PriceDelta:
		book := current.(PriceBook)
		return PriceBook{Prices: upsertPrices(book.Prices, delta.Points, delta.Removals)}, nil

	case ProtocolDelta:
		set := current.(ProtocolSet)
		return ProtocolSet{Protocols: upsertProtocols(set.Protocols, delta.Upserts, delta.Removals)}, nil

	case MoverDelta:
		return MoverBoard{Movers: delta.Movers}, nil

	case NotificationDelta:
		return NotificationList{Items: delta.Items}, nil

	default:
		return nil, apperrors.NewMergeError(string(d.Channel()), "no merge rule for delta type")
	}
}

// upsertPrices merges incoming points into an ordered price book.
// Existing symbols are updated in place to preserve order; new symbols
// are appended.
func upsertPrices(current, incoming []models.PricePoint, removals []string) []models.PricePoint {
	index := make(map[string]int, len(current))
	merged := make([]models.PricePoint, len(current))
	copy(merged, current)
	for i, p := range merged {
		index[p.Symbol] = i
	}

	for _, p := range incoming {
		if i, ok := index[p.Symbol]; ok {
			merged[i] = overlayPricePoint(merged[i], p)
		} else {
			index[p.Symbol] = len(merged)
			merged = append(merged, p)
		}
	}

	if len(removals) == 0 {
		return merged
	}

	drop := make(map[string]bool, len(removals))
	for _, sym := range removals {
		drop[sym] = true
	}
	kept := merged[:0]
	for _, p := range merged {
		if !drop[p.Symbol] {
			kept = append(kept, p)
		}
	}
	return kept
}

// overlayPricePoint applies an incoming point on top of an existing
// record. Push feeds stream a subset of the fields a cold pull
// populates (a ticker carries no name or market cap), so zero-valued
// fields in the update carry the existing values forward instead of
// blanking them.
func overlayPricePoint(existing, incoming models.PricePoint) models.PricePoint {
	if incoming.Name == "" {
		incoming.Name = existing.Name
	}
	if incoming.MarketCap == 0 {
		incoming.MarketCap = existing.MarketCap
	}
	if incoming.Volume24h == 0 {
		incoming.Volume24h = existing.Volume24h
	}
	if incoming.UpdatedAt.IsZero() {
		incoming.UpdatedAt = existing.UpdatedAt
	}
	return incoming
}

// upsertProtocols merges incoming protocol records keyed by ID.
func upsertProtocols(current, incoming []models.DefiProtocol, removals []string) []models.DefiProtocol {
	index := make(map[string]int, len(current))
	merged := make([]models.DefiProtocol, len(current))
	copy(merged, current)
	for i, p := range merged {
		index[p.ID] = i
	}

	for _, p := range incoming {
		if i, ok := index[p.ID]; ok {
			merged[i] = p
		} else {
			index[p.ID] = len(merged)
			merged = append(merged, p)
		}
	}

	if len(removals) == 0 {
		return merged
	}

	drop := make(map[string]bool, len(removals))
	for _, id := range removals {
		drop[id] = true
	}
	kept := merged[:0]
	for _, p := range merged {
		if !drop[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept
}
