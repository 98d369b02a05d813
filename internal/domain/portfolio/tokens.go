package portfolio

import (
	"sort"

	"portfoliotracker/internal/domain/currency"
)

// Contribution is one account's share of an aggregated token.
type Contribution struct {
	AccountName string
	Amount      float64
	USDValue    float64
}

type AggregatedToken struct {
	ID            string
	Name          string
	Ticker        string
	Color         string
	Kind          string
	Amount        float64
	USDValue      float64
	Change24h     float64
	Contributions []Contribution
}

// AggregateTokens merges holdings of the same currency id across wallets.
// Change24h is the USD-weighted average of the constituent changes; when the
// aggregate is worth nothing it falls back to the plain mean.
func AggregateTokens(holdings []Holding) []AggregatedToken {
	tokens := make([]AggregatedToken, 0)
	index := make(map[string]int)
	weighted := make([]float64, 0)
	plain := make([]float64, 0)

	for _, h := range holdings {
		meta := h.Currency.Info()
		i, ok := index[meta.ID]
		if !ok {
			tokens = append(tokens, AggregatedToken{
				ID:            meta.ID,
				Name:          meta.Name,
				Ticker:        meta.Ticker,
				Color:         meta.Color,
				Kind:          currency.Kind(h.Currency),
				Contributions: make([]Contribution, 0, 1),
			})
			weighted = append(weighted, 0)
			plain = append(plain, 0)
			i = len(tokens) - 1
			index[meta.ID] = i
		}

		t := &tokens[i]
		t.Amount += h.Amount
		t.USDValue += h.USDValue
		t.Contributions = append(t.Contributions, Contribution{
			AccountName: h.Account.Name,
			Amount:      h.Amount,
			USDValue:    h.USDValue,
		})
		weighted[i] += h.Change24h * h.USDValue
		plain[i] += h.Change24h
	}

	for i := range tokens {
		t := &tokens[i]
		switch {
		case t.USDValue != 0:
			t.Change24h = weighted[i] / t.USDValue
		case len(t.Contributions) > 0:
			t.Change24h = plain[i] / float64(len(t.Contributions))
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].USDValue > tokens[j].USDValue
	})

	return tokens
}
