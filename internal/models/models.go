// Package models defines the domain types shared across the application.
package models

import "time"

// PricePoint is the spot market state of a single asset.
type PricePoint struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Change24h  float64   `json:"change_24h"` // percent
	Volume24h  float64   `json:"volume_24h"`
	MarketCap  float64   `json:"market_cap"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefiProtocol is a DeFi protocol record keyed by ID.
type DefiProtocol struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Chain     string  `json:"chain"`
	Category  string  `json:"category"`
	TVL       float64 `json:"tvl"`
	Change24h float64 `json:"change_24h"` // percent
	APY       float64 `json:"apy"`
}

// NFTCollection is an NFT collection record keyed by ID.
type NFTCollection struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FloorPrice float64 `json:"floor_price"` // in native units (ETH)
	Volume24h  float64 `json:"volume_24h"`
	Change24h  float64 `json:"change_24h"` // percent
	Owners     int     `json:"owners"`
	Supply     int     `json:"supply"`
}

// GameFiProject is a GameFi project record keyed by ID.
type GameFiProject struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	TokenPrice float64 `json:"token_price"`
	MarketCap  float64 `json:"market_cap"`
	Change24h  float64 `json:"change_24h"` // percent
}

// DAOMetric is a DAO governance-token record keyed by ID.
type DAOMetric struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	TokenPrice float64 `json:"token_price"`
	MarketCap  float64 `json:"market_cap"`
	Change24h  float64 `json:"change_24h"` // percent
}

// MoverDirection classifies a market mover.
type MoverDirection string

const (
	MoverGainer MoverDirection = "gainer"
	MoverLoser  MoverDirection = "loser"
)

// MarketMover is one entry of the top gainers/losers board.
type MarketMover struct {
	Symbol        string         `json:"symbol"`
	Name          string         `json:"name"`
	Price         float64        `json:"price"`
	ChangePercent float64        `json:"change_percent"`
	Direction     MoverDirection `json:"direction"`
}

// FearGreedIndex is the market sentiment gauge.
type FearGreedIndex struct {
	Value          int       `json:"value"` // 0-100
	Classification string    `json:"classification"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PortfolioHolding is one position in a user's portfolio.
type PortfolioHolding struct {
	ID       string  `json:"id"`
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgCost  float64 `json:"avg_cost"`
}

// PortfolioChangeType describes what happened to a holding.
type PortfolioChangeType string

const (
	HoldingAdded   PortfolioChangeType = "added"
	HoldingUpdated PortfolioChangeType = "updated"
	HoldingRemoved PortfolioChangeType = "removed"
)

// PortfolioChange is an explicit user action on a portfolio holding.
type PortfolioChange struct {
	Type    PortfolioChangeType `json:"type"`
	Holding PortfolioHolding    `json:"holding"`
}
