package http

import (
	"fmt"
	"math/big"
	"strings"

	"portfoliotracker/internal/application/wallet"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/nft"
	"portfoliotracker/internal/domain/portfolio"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func ToHTTPCurrency(c currency.Currency) Currency {
	m := c.Info()
	out := Currency{
		ID:       m.ID,
		Kind:     currency.Kind(c),
		Name:     m.Name,
		Ticker:   m.Ticker,
		Decimals: m.Decimals,
		Color:    m.Color,
	}
	if t, ok := c.(currency.Token); ok {
		out.Contract = t.Contract
		out.ParentChainID = t.ParentChainID
	}
	return out
}

func ToHTTPCurrencies(cs []currency.Currency) []Currency {
	return lo.Map(cs, func(c currency.Currency, _ int) Currency { return ToHTTPCurrency(c) })
}

func ToHTTPAccount(a *account.Account) *Account {
	if a == nil {
		return nil
	}
	out := &Account{
		ID:              a.ID,
		ParentAccountID: a.ParentAccountID,
		Name:            a.Name,
		Address:         a.Address,
		CurrencyID:      a.CurrencyID,
		Balance:         "0",
		Source:          string(a.Source),
	}
	if a.Balance != nil {
		out.Balance = a.Balance.String()
	}
	if !a.LastSyncDate.IsZero() {
		t := a.LastSyncDate
		out.LastSyncDate = &t
	}
	return out
}

func ToHTTPAccounts(accounts []*account.Account) []*Account {
	return lo.Map(accounts, func(a *account.Account, _ int) *Account { return ToHTTPAccount(a) })
}

func ToHTTPCustomWallet(w *account.CustomWallet) *CustomWallet {
	if w == nil {
		return nil
	}
	return &CustomWallet{
		ID:        w.ID,
		Name:      w.Name,
		Amounts:   lo.MapValues(w.Amounts, func(d decimal.Decimal, _ string) float64 { return d.InexactFloat64() }),
		CreatedAt: w.CreatedAt,
	}
}

func ToHTTPCustomWallets(ws []*account.CustomWallet) []*CustomWallet {
	return lo.Map(ws, func(w *account.CustomWallet, _ int) *CustomWallet { return ToHTTPCustomWallet(w) })
}

// ToDomainAccount parses an imported account. An empty balance is left nil.
func ToDomainAccount(in AccountInput) (*account.Account, error) {
	a := &account.Account{
		ID:              strings.TrimSpace(in.ID),
		ParentAccountID: strings.TrimSpace(in.ParentAccountID),
		Name:            in.Name,
		Address:         strings.TrimSpace(in.Address),
		CurrencyID:      strings.TrimSpace(in.CurrencyID),
		Source:          account.SourceLedger,
	}
	if b := strings.TrimSpace(in.Balance); b != "" {
		v, ok := new(big.Int).SetString(b, 10)
		if !ok {
			return nil, fmt.Errorf("%w: balance %q is not an integer", account.ErrInvalidAccount, in.Balance)
		}
		a.Balance = v
	}
	if in.LastSyncDate != nil {
		a.LastSyncDate = in.LastSyncDate.UTC()
	}
	return a, nil
}

func ToDomainAccounts(in []AccountInput) ([]*account.Account, error) {
	out := make([]*account.Account, 0, len(in))
	for i, ai := range in {
		a, err := ToDomainAccount(ai)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func ToHTTPWallets(ws []portfolio.Wallet) []Wallet {
	return lo.Map(ws, func(w portfolio.Wallet, _ int) Wallet {
		return Wallet{
			ID:            w.ID,
			Name:          w.Name,
			TotalUSDValue: w.TotalUSDValue,
			Holdings: lo.Map(w.Holdings, func(h portfolio.WalletHolding, _ int) WalletHolding {
				return WalletHolding{
					AccountID:   h.AccountID,
					AccountName: h.AccountName,
					CurrencyID:  h.CurrencyID,
					Name:        h.Name,
					Ticker:      h.Ticker,
					Color:       h.Color,
					Amount:      h.Amount,
					USDValue:    h.USDValue,
					Change24h:   h.Change24h,
				}
			}),
		}
	})
}

func ToHTTPTokens(ts []portfolio.AggregatedToken) []Token {
	return lo.Map(ts, func(t portfolio.AggregatedToken, _ int) Token {
		return Token{
			ID:        t.ID,
			Name:      t.Name,
			Ticker:    t.Ticker,
			Color:     t.Color,
			Kind:      t.Kind,
			Amount:    t.Amount,
			USDValue:  t.USDValue,
			Change24h: t.Change24h,
			Contributions: lo.Map(t.Contributions, func(c portfolio.Contribution, _ int) Contribution {
				return Contribution{AccountName: c.AccountName, Amount: c.Amount, USDValue: c.USDValue}
			}),
		}
	})
}

func ToHTTPHistory(series []portfolio.PriceDataPoint) []PricePoint {
	return lo.Map(series, func(p portfolio.PriceDataPoint, _ int) PricePoint {
		return PricePoint{Time: p.Time.UTC(), Value: p.Value}
	})
}

func ToHTTPStats(s portfolio.Stats) Stats {
	return Stats{
		TotalBalance:     s.TotalBalance,
		TotalProfit:      s.TotalProfit,
		ProfitPercentage: s.ProfitPercentage,
	}
}

func ToHTTPSnapshot(s portfolio.Snapshot) Snapshot {
	return Snapshot{
		Sequence:    s.Sequence,
		GeneratedAt: s.GeneratedAt,
		Wallets:     ToHTTPWallets(s.Wallets),
		Tokens:      ToHTTPTokens(s.Tokens),
		History:     ToHTTPHistory(s.Series),
		Stats:       ToHTTPStats(s.Stats),
	}
}

func ToHTTPNfts(ns []nft.Nft) []Nft {
	return lo.Map(ns, func(n nft.Nft, _ int) Nft {
		return Nft{
			Identifier:    n.Identifier,
			Collection:    n.Collection,
			Contract:      n.Contract,
			TokenStandard: n.TokenStandard,
			Name:          n.Name,
			Description:   n.Description,
			ImageURL:      n.ImageURL,
			MetadataURL:   n.MetadataURL,
			OpenSeaURL:    n.OpenSeaURL,
			UpdatedAt:     n.UpdatedAt,
			IsDisabled:    n.IsDisabled,
			IsNSFW:        n.IsNSFW,
		}
	})
}

func ToHTTPSyncResult(r wallet.SyncResult) SyncResult {
	return SyncResult{Updated: r.Updated, Failed: r.Failed, Skipped: r.Skipped}
}
