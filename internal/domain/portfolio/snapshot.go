package portfolio

import (
	"strings"
	"time"

	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/market"
)

type Stats struct {
	TotalBalance     float64
	TotalProfit      float64
	ProfitPercentage float64
}

// Summarize derives the stats from the aggregated tokens and the first point of the series.
func Summarize(tokens []AggregatedToken, series []PriceDataPoint) Stats {
	var stats Stats
	for _, t := range tokens {
		stats.TotalBalance += t.USDValue
	}
	if len(series) == 0 {
		return stats
	}

	initial := series[0].Value
	stats.TotalProfit = stats.TotalBalance - initial
	if initial > 0 {
		stats.ProfitPercentage = 100 * stats.TotalProfit / initial
	}
	return stats
}

// Snapshot is the full derived state of one aggregation pass.
type Snapshot struct {
	Sequence    uint64
	GeneratedAt time.Time
	Wallets     []Wallet
	Tokens      []AggregatedToken
	Series      []PriceDataPoint
	Stats       Stats
}

// Query lists the identifiers one pass needs market data for.
type Query struct {
	CoinIDs   []string
	Contracts []string
}

func (q Query) Empty() bool {
	return len(q.CoinIDs) == 0 && len(q.Contracts) == 0
}

// BuildQuery collects distinct native coin ids and lowercased token contracts,
// in first-seen order.
func BuildQuery(resolved []ResolvedAccount) Query {
	q := Query{CoinIDs: make([]string, 0), Contracts: make([]string, 0)}
	seenCoins := make(map[string]bool)
	seenContracts := make(map[string]bool)

	for _, ra := range resolved {
		switch c := ra.Currency.(type) {
		case currency.NativeCoin:
			if !seenCoins[c.ID] {
				seenCoins[c.ID] = true
				q.CoinIDs = append(q.CoinIDs, c.ID)
			}
		case currency.Token:
			key := strings.ToLower(c.Contract)
			if !seenContracts[key] {
				seenContracts[key] = true
				q.Contracts = append(q.Contracts, key)
			}
		}
	}
	return q
}

// Aggregate runs the whole pipeline over one set of inputs. It is pure: the
// same inputs always produce the same snapshot, with Sequence and GeneratedAt
// left for the caller to stamp.
func Aggregate(
	accounts []*account.Account,
	registry *currency.Registry,
	data market.Data,
	history market.History,
) Snapshot {
	resolved := ResolveAccounts(accounts, registry)
	holdings := ValueAll(resolved, data)

	tokens := AggregateTokens(holdings)
	series := ReconstructSeries(NativeAmounts(holdings), history)

	return Snapshot{
		Wallets: GroupWallets(holdings, resolved),
		Tokens:  tokens,
		Series:  series,
		Stats:   Summarize(tokens, series),
	}
}
