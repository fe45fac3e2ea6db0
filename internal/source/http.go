// Package source implements the external data sources feeding the hub:
// REST cold-pull clients and websocket push feeds.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	apperrors "marketpulse/internal/errors"
	"marketpulse/internal/hub"
	"marketpulse/internal/logging"
	"marketpulse/internal/models"
)

const (
	defaultPageSize = 50
	moverBoardSize  = 10
)

// HTTPConfig configures the REST source client.
type HTTPConfig struct {
	// MarketAPIURL is a CoinGecko-compatible base URL serving coin and
	// NFT market data.
	MarketAPIURL string
	// DefiAPIURL is a DefiLlama-compatible base URL serving protocol TVL.
	DefiAPIURL string
	// SentimentURL serves the fear & greed index (alternative.me format).
	SentimentURL string
	Timeout      time.Duration
}

// HTTPSource performs cold pulls against the REST endpoints. One fetch
// method per channel; each returns the channel's full payload.
type HTTPSource struct {
	client    *resty.Client
	market    string
	defi      string
	sentiment string
	logger    zerolog.Logger
}

// NewHTTPSource creates the REST source client.
func NewHTTPSource(cfg HTTPConfig, logger zerolog.Logger) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "marketpulse/1.0")

	return &HTTPSource{
		client:    client,
		market:    strings.TrimRight(cfg.MarketAPIURL, "/"),
		defi:      strings.TrimRight(cfg.DefiAPIURL, "/"),
		sentiment: strings.TrimRight(cfg.SentimentURL, "/"),
		logger:    logging.WithComponent(logger, "source"),
	}
}

// coinMarket is the CoinGecko /coins/markets row shape.
type coinMarket struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"`
	MarketCap     float64 `json:"market_cap"`
	TotalVolume   float64 `json:"total_volume"`
	PriceChange24 float64 `json:"price_change_percentage_24h"`
}

func (s *HTTPSource) coinMarkets(ctx context.Context, channel, category string) ([]coinMarket, error) {
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("vs_currency", "usd").
		SetQueryParam("order", "market_cap_desc").
		SetQueryParam("per_page", strconv.Itoa(defaultPageSize)).
		SetQueryParam("page", "1")
	if category != "" {
		req.SetQueryParam("category", category)
	}

	resp, err := req.Get(s.market + "/coins/markets")
	if err != nil {
		return nil, apperrors.NewFetchError(channel, s.market, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewFetchError(channel, s.market,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var rows []coinMarket
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, apperrors.NewFetchError(channel, s.market, err)
	}
	return rows, nil
}

// FetchPrices pulls the top coins by market cap.
func (s *HTTPSource) FetchPrices(ctx context.Context) (hub.Payload, error) {
	rows, err := s.coinMarkets(ctx, string(hub.ChannelPrices), "")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	points := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, models.PricePoint{
			Symbol:    strings.ToUpper(r.Symbol),
			Name:      r.Name,
			Price:     r.CurrentPrice,
			Change24h: r.PriceChange24,
			Volume24h: r.TotalVolume,
			MarketCap: r.MarketCap,
			UpdatedAt: now,
		})
	}
	return hub.PriceBook{Prices: points}, nil
}

// FetchDefiProtocols pulls the top protocols by TVL.
func (s *HTTPSource) FetchDefiProtocols(ctx context.Context) (hub.Payload, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.defi + "/protocols")
	if err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelDefi), s.defi, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewFetchError(string(hub.ChannelDefi), s.defi,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var rows []struct {
		Slug     string  `json:"slug"`
		Name     string  `json:"name"`
		Chain    string  `json:"chain"`
		Category string  `json:"category"`
		TVL      float64 `json:"tvl"`
		Change1d float64 `json:"change_1d"`
		APY      float64 `json:"apy"`
	}
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelDefi), s.defi, err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].TVL > rows[j].TVL })
	if len(rows) > defaultPageSize {
		rows = rows[:defaultPageSize]
	}

	protocols := make([]models.DefiProtocol, 0, len(rows))
	for _, r := range rows {
		protocols = append(protocols, models.DefiProtocol{
			ID:        r.Slug,
			Name:      r.Name,
			Chain:     r.Chain,
			Category:  r.Category,
			TVL:       r.TVL,
			Change24h: r.Change1d,
			APY:       r.APY,
		})
	}
	return hub.ProtocolSet{Protocols: protocols}, nil
}

// FetchNFTCollections pulls the top NFT collections.
func (s *HTTPSource) FetchNFTCollections(ctx context.Context) (hub.Payload, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("order", "h24_volume_native_desc").
		SetQueryParam("per_page", strconv.Itoa(defaultPageSize)).
		Get(s.market + "/nfts/markets")
	if err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelNFT), s.market, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewFetchError(string(hub.ChannelNFT), s.market,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	var rows []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		FloorPrice struct {
			Native float64 `json:"native_currency"`
		} `json:"floor_price"`
		Volume24h struct {
			Native float64 `json:"native_currency"`
		} `json:"volume_24h"`
		FloorChange24h float64 `json:"floor_price_24h_percentage_change"`
		UniqueOwners   int     `json:"number_of_unique_addresses"`
		TotalSupply    int     `json:"total_supply"`
	}
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelNFT), s.market, err)
	}

	collections := make([]models.NFTCollection, 0, len(rows))
	for _, r := range rows {
		collections = append(collections, models.NFTCollection{
			ID:         r.ID,
			Name:       r.Name,
			FloorPrice: r.FloorPrice.Native,
			Volume24h:  r.Volume24h.Native,
			Change24h:  r.FloorChange24h,
			Owners:     r.UniqueOwners,
			Supply:     r.TotalSupply,
		})
	}
	return hub.CollectionSet{Collections: collections}, nil
}

// FetchGameFi pulls gaming-category tokens.
func (s *HTTPSource) FetchGameFi(ctx context.Context) (hub.Payload, error) {
	rows, err := s.coinMarkets(ctx, string(hub.ChannelGameFi), "gaming")
	if err != nil {
		return nil, err
	}

	projects := make([]models.GameFiProject, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, models.GameFiProject{
			ID:         r.ID,
			Name:       r.Name,
			Symbol:     strings.ToUpper(r.Symbol),
			TokenPrice: r.CurrentPrice,
			MarketCap:  r.MarketCap,
			Change24h:  r.PriceChange24,
		})
	}
	return hub.ProjectSet{Projects: projects}, nil
}

// FetchDAOs pulls DAO governance tokens.
func (s *HTTPSource) FetchDAOs(ctx context.Context) (hub.Payload, error) {
	rows, err := s.coinMarkets(ctx, string(hub.ChannelDAO), "dao")
	if err != nil {
		return nil, err
	}

	daos := make([]models.DAOMetric, 0, len(rows))
	for _, r := range rows {
		daos = append(daos, models.DAOMetric{
			ID:         r.ID,
			Name:       r.Name,
			Symbol:     strings.ToUpper(r.Symbol),
			TokenPrice: r.CurrentPrice,
			MarketCap:  r.MarketCap,
			Change24h:  r.PriceChange24,
		})
	}
	return hub.DAOSet{DAOs: daos}, nil
}

// FetchMarketMovers derives the top gainers/losers board from the coin
// market listing. The board is ranked by absolute 24h change.
func (s *HTTPSource) FetchMarketMovers(ctx context.Context) (hub.Payload, error) {
	rows, err := s.coinMarkets(ctx, string(hub.ChannelMarketMovers), "")
	if err != nil {
		return nil, err
	}

	return hub.MoverBoard{Movers: rankMovers(rows, moverBoardSize)}, nil
}

// rankMovers builds a movers board from coin market rows: the top n
// gainers followed by the top n losers.
func rankMovers(rows []coinMarket, n int) []models.MarketMover {
	gainers := make([]coinMarket, 0, len(rows))
	losers := make([]coinMarket, 0, len(rows))
	for _, r := range rows {
		if r.PriceChange24 >= 0 {
			gainers = append(gainers, r)
		} else {
			losers = append(losers, r)
		}
	}
	sort.Slice(gainers, func(i, j int) bool { return gainers[i].PriceChange24 > gainers[j].PriceChange24 })
	sort.Slice(losers, func(i, j int) bool { return losers[i].PriceChange24 < losers[j].PriceChange24 })

	if len(gainers) > n {
		gainers = gainers[:n]
	}
	if len(losers) > n {
		losers = losers[:n]
	}

	movers := make([]models.MarketMover, 0, len(gainers)+len(losers))
	for _, g := range gainers {
		movers = append(movers, models.MarketMover{
			Symbol:        strings.ToUpper(g.Symbol),
			Name:          g.Name,
			Price:         g.CurrentPrice,
			ChangePercent: g.PriceChange24,
			Direction:     models.MoverGainer,
		})
	}
	for _, l := range losers {
		movers = append(movers, models.MarketMover{
			Symbol:        strings.ToUpper(l.Symbol),
			Name:          l.Name,
			Price:         l.CurrentPrice,
			ChangePercent: l.PriceChange24,
			Direction:     models.MoverLoser,
		})
	}
	return movers
}

// FetchFearGreed pulls the fear & greed index.
func (s *HTTPSource) FetchFearGreed(ctx context.Context) (hub.Payload, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.sentiment)
	if err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelFearGreed), s.sentiment, err)
	}
	if resp.IsError() {
		return nil, apperrors.NewFetchError(string(hub.ChannelFearGreed), s.sentiment,
			fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	// alternative.me encodes numbers as strings.
	var body struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelFearGreed), s.sentiment, err)
	}
	if len(body.Data) == 0 {
		return nil, apperrors.NewFetchError(string(hub.ChannelFearGreed), s.sentiment,
			apperrors.ErrDataNotFound)
	}

	value, err := strconv.Atoi(body.Data[0].Value)
	if err != nil {
		return nil, apperrors.NewFetchError(string(hub.ChannelFearGreed), s.sentiment, err)
	}

	updatedAt := time.Now()
	if ts, err := strconv.ParseInt(body.Data[0].Timestamp, 10, 64); err == nil {
		updatedAt = time.Unix(ts, 0)
	}

	return hub.SentimentGauge{Index: models.FearGreedIndex{
		Value:          value,
		Classification: body.Data[0].Classification,
		UpdatedAt:      updatedAt,
	}}, nil
}
