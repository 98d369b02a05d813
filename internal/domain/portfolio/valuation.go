package portfolio

import (
	"math/big"
	"strings"

	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/market"

	"github.com/shopspring/decimal"
)

// Normalize converts a raw smallest-unit balance to a human-scale amount.
// The decimal shift is exact; precision is only lost in the final float conversion.
func Normalize(raw *big.Int, decimals int32) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -decimals).Float64()
	return f
}

// ResolvedAccount is an account paired with its registry currency.
type ResolvedAccount struct {
	Account  *account.Account
	Currency currency.Currency
}

// ResolveAccounts drops accounts whose currency is not in the registry.
func ResolveAccounts(accounts []*account.Account, registry *currency.Registry) []ResolvedAccount {
	resolved := make([]ResolvedAccount, 0, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		c, ok := registry.Resolve(a.CurrencyID)
		if !ok {
			continue
		}
		resolved = append(resolved, ResolvedAccount{Account: a, Currency: c})
	}
	return resolved
}

// Holding is one account valued against current market data.
type Holding struct {
	Account   *account.Account
	Currency  currency.Currency
	Amount    float64
	USDValue  float64
	Change24h float64
}

// PriceIndex gives constant-time lookups over a pass's market data.
type PriceIndex struct {
	coins  map[string]market.CoinMarket
	tokens map[string]market.TokenPrice
}

func NewPriceIndex(data market.Data) *PriceIndex {
	idx := &PriceIndex{
		coins:  make(map[string]market.CoinMarket, len(data.Coins)),
		tokens: make(map[string]market.TokenPrice, len(data.Tokens)),
	}
	for _, c := range data.Coins {
		// first record for an id wins
		if _, ok := idx.coins[c.ID]; !ok {
			idx.coins[c.ID] = c
		}
	}
	for contract, p := range data.Tokens {
		idx.tokens[strings.ToLower(contract)] = p
	}
	return idx
}

// Value normalizes the account balance and prices it. A missing price yields
// zero value and zero change.
func Value(ra ResolvedAccount, idx *PriceIndex) Holding {
	h := Holding{
		Account:  ra.Account,
		Currency: ra.Currency,
		Amount:   Normalize(ra.Account.Balance, ra.Currency.Info().Decimals),
	}

	switch c := ra.Currency.(type) {
	case currency.Token:
		if p, ok := idx.tokens[c.ContractKey()]; ok {
			h.USDValue = h.Amount * p.USD
			h.Change24h = p.USD24hChange
		}
	case currency.NativeCoin:
		if m, ok := idx.coins[c.ID]; ok {
			h.USDValue = h.Amount * m.CurrentPrice
			h.Change24h = m.PriceChangePercentage24h
		}
	}

	return h
}

func ValueAll(resolved []ResolvedAccount, data market.Data) []Holding {
	idx := NewPriceIndex(data)
	holdings := make([]Holding, 0, len(resolved))
	for _, ra := range resolved {
		holdings = append(holdings, Value(ra, idx))
	}
	return holdings
}
