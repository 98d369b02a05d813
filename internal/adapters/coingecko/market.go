package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfoliotracker/internal/domain/market"
)

const (
	maxCoinsBatch     = 250
	maxContractsBatch = 100
	vsCurrency        = "usd"
)

type coinMarketResponse struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCapRank            int     `json:"market_cap_rank"`
}

type tokenPriceResponse map[string]struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
}

type marketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

// Listing is a coin as returned by the markets endpoint, ordered by market cap.
type Listing struct {
	ID            string
	Symbol        string
	Name          string
	MarketCapRank int
}

// MarketRepository implements market.Provider on top of the CoinGecko API.
type MarketRepository struct {
	client   *Client
	platform string
}

func NewMarketRepository(client *Client) *MarketRepository {
	return &MarketRepository{client: client, platform: "ethereum"}
}

func (r *MarketRepository) CoinsMarketData(ctx context.Context, ids []string) ([]market.CoinMarket, error) {
	if len(ids) == 0 {
		return []market.CoinMarket{}, nil
	}

	results := make([]market.CoinMarket, 0, len(ids))

	for i := 0; i < len(ids); i += maxCoinsBatch {
		end := i + maxCoinsBatch
		if end > len(ids) {
			end = len(ids)
		}

		query := url.Values{}
		query.Set("vs_currency", vsCurrency)
		query.Set("ids", strings.Join(ids[i:end], ","))
		query.Set("per_page", strconv.Itoa(maxCoinsBatch))

		var data []coinMarketResponse
		if err := r.client.Get(ctx, "coins/markets", query, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch coins market data: %w", err)
		}

		for _, c := range data {
			results = append(results, market.CoinMarket{
				ID:                       c.ID,
				Symbol:                   c.Symbol,
				CurrentPrice:             c.CurrentPrice,
				PriceChangePercentage24h: c.PriceChangePercentage24h,
			})
		}
	}

	return results, nil
}

func (r *MarketRepository) TokensMarketData(ctx context.Context, contracts []string) (market.TokenPrices, error) {
	results := make(market.TokenPrices, len(contracts))
	if len(contracts) == 0 {
		return results, nil
	}

	for i := 0; i < len(contracts); i += maxContractsBatch {
		end := i + maxContractsBatch
		if end > len(contracts) {
			end = len(contracts)
		}

		query := url.Values{}
		query.Set("contract_addresses", strings.Join(contracts[i:end], ","))
		query.Set("vs_currencies", vsCurrency)
		query.Set("include_24hr_change", "true")

		var data tokenPriceResponse
		if err := r.client.Get(ctx, "simple/token_price/"+r.platform, query, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch token prices: %w", err)
		}

		for contract, p := range data {
			results[strings.ToLower(contract)] = market.TokenPrice{USD: p.USD, USD24hChange: p.USD24hChange}
		}
	}

	return results, nil
}

func (r *MarketRepository) HistoricalPrices(ctx context.Context, coinID string, from, to time.Time) ([]market.PriceSample, error) {
	if coinID == "" {
		return []market.PriceSample{}, nil
	}

	query := url.Values{}
	query.Set("vs_currency", vsCurrency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))

	var data marketChartResponse
	endpoint := fmt.Sprintf("coins/%s/market_chart/range", url.PathEscape(coinID))
	if err := r.client.Get(ctx, endpoint, query, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", coinID, err)
	}

	samples := make([]market.PriceSample, 0, len(data.Prices))
	for _, p := range data.Prices {
		if len(p) < 2 {
			continue
		}
		samples = append(samples, market.PriceSample{TimestampMs: int64(p[0]), Price: p[1]})
	}
	return samples, nil
}

// TopCoins lists coins by market cap, perPage at a time, for the given number of pages.
func (r *MarketRepository) TopCoins(ctx context.Context, pages, perPage int) ([]Listing, error) {
	var listings []Listing
	for page := 1; page <= pages; page++ {
		query := url.Values{}
		query.Set("vs_currency", vsCurrency)
		query.Set("order", "market_cap_desc")
		query.Set("per_page", strconv.Itoa(perPage))
		query.Set("page", strconv.Itoa(page))
		query.Set("sparkline", "false")

		var data []coinMarketResponse
		if err := r.client.Get(ctx, "coins/markets", query, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch markets page %d: %w", page, err)
		}
		for _, c := range data {
			listings = append(listings, Listing{ID: c.ID, Symbol: c.Symbol, Name: c.Name, MarketCapRank: c.MarketCapRank})
		}
		if len(data) < perPage {
			break
		}
	}
	return listings, nil
}
