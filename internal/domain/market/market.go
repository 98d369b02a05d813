package market

import (
	"context"
	"strings"
	"time"
)

// CoinMarket is the current market record for a native coin.
type CoinMarket struct {
	ID                       string
	Symbol                   string
	CurrentPrice             float64
	PriceChangePercentage24h float64
}

// TokenPrice is the current USD price of a contract-based token.
type TokenPrice struct {
	USD          float64
	USD24hChange float64
}

// TokenPrices is keyed by lowercased contract address.
type TokenPrices map[string]TokenPrice

func (p TokenPrices) Lookup(contract string) (TokenPrice, bool) {
	v, ok := p[strings.ToLower(contract)]
	return v, ok
}

type PriceSample struct {
	TimestampMs int64
	Price       float64
}

// History maps coin id to its price samples.
type History map[string][]PriceSample

// Data is the current market data used by one aggregation pass.
type Data struct {
	Coins  []CoinMarket
	Tokens TokenPrices
}

type Provider interface {
	CoinsMarketData(ctx context.Context, ids []string) ([]CoinMarket, error)
	TokensMarketData(ctx context.Context, contracts []string) (TokenPrices, error)
	HistoricalPrices(ctx context.Context, coinID string, from, to time.Time) ([]PriceSample, error)
}
