package coingecko

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"portfoliotracker/internal/domain/market"
	"portfoliotracker/internal/domain/portfolio"
)

var mockBasePrices = map[string]float64{
	"bitcoin":     60000,
	"ethereum":    3000,
	"solana":      150,
	"binancecoin": 550,
	"ripple":      0.5,
	"litecoin":    80,
	"dogecoin":    0.15,
}

// MockProvider serves deterministic market data derived from the identifier,
// for local development without an API key.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) CoinsMarketData(_ context.Context, ids []string) ([]market.CoinMarket, error) {
	out := make([]market.CoinMarket, 0, len(ids))
	for _, id := range ids {
		out = append(out, market.CoinMarket{
			ID:                       id,
			Symbol:                   strings.ToLower(id),
			CurrentPrice:             basePrice(id),
			PriceChangePercentage24h: change(id),
		})
	}
	return out, nil
}

func (p *MockProvider) TokensMarketData(_ context.Context, contracts []string) (market.TokenPrices, error) {
	out := make(market.TokenPrices, len(contracts))
	for _, c := range contracts {
		key := strings.ToLower(c)
		out[key] = market.TokenPrice{USD: basePrice(key), USD24hChange: change(key)}
	}
	return out, nil
}

// HistoricalPrices returns one sample per hour between from and to, drifting
// linearly towards the current price.
func (p *MockProvider) HistoricalPrices(_ context.Context, coinID string, from, to time.Time) ([]market.PriceSample, error) {
	current := basePrice(coinID)
	start := portfolio.Bucket(from.UnixMilli())
	end := to.UnixMilli()
	if end < start {
		return []market.PriceSample{}, nil
	}

	steps := (end - start) / portfolio.BucketWidthMs
	pct := change(coinID) / 100
	opening := current / (1 + pct)

	samples := make([]market.PriceSample, 0, steps+1)
	for i := int64(0); i <= steps; i++ {
		frac := 1.0
		if steps > 0 {
			frac = float64(i) / float64(steps)
		}
		samples = append(samples, market.PriceSample{
			TimestampMs: start + i*portfolio.BucketWidthMs,
			Price:       opening + (current-opening)*frac,
		})
	}
	return samples, nil
}

func hash(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}

func basePrice(id string) float64 {
	if p, ok := mockBasePrices[id]; ok {
		return p
	}
	return 1 + float64(hash(id)%10000)/100
}

// change is in [-5, 5).
func change(id string) float64 {
	return float64(int(hash(id)%1000)-500) / 100
}
