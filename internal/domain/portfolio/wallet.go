package portfolio

import (
	"sort"

	"portfoliotracker/internal/domain/account"
)

// WalletHolding is a holding as shown inside its wallet.
type WalletHolding struct {
	AccountID   string
	AccountName string
	CurrencyID  string
	Name        string
	Ticker      string
	Color       string
	Amount      float64
	USDValue    float64
	Change24h   float64
}

type Wallet struct {
	ID            string
	Name          string
	TotalUSDValue float64
	Holdings      []WalletHolding
}

// walletRoot follows parent links to the top-level account. A parent that is
// not among the resolved accounts stops the walk at the current account.
func walletRoot(a *account.Account, byID map[string]*account.Account) *account.Account {
	root := a
	seen := map[string]bool{a.ID: true}
	for root.HasParent() {
		parent, ok := byID[root.ParentAccountID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		root = parent
	}
	return root
}

// GroupWallets rolls holdings up under their wallet root, keeping holdings in
// input order and sorting wallets by total USD value, highest first.
func GroupWallets(holdings []Holding, resolved []ResolvedAccount) []Wallet {
	byID := make(map[string]*account.Account, len(resolved))
	for _, ra := range resolved {
		byID[ra.Account.ID] = ra.Account
	}

	wallets := make([]Wallet, 0)
	index := make(map[string]int)

	for _, h := range holdings {
		root := walletRoot(h.Account, byID)

		i, ok := index[root.ID]
		if !ok {
			wallets = append(wallets, Wallet{ID: root.ID, Name: root.Name, Holdings: make([]WalletHolding, 0, 1)})
			i = len(wallets) - 1
			index[root.ID] = i
		}

		meta := h.Currency.Info()
		w := &wallets[i]
		w.TotalUSDValue += h.USDValue
		w.Holdings = append(w.Holdings, WalletHolding{
			AccountID:   h.Account.ID,
			AccountName: h.Account.Name,
			CurrencyID:  meta.ID,
			Name:        meta.Name,
			Ticker:      meta.Ticker,
			Color:       meta.Color,
			Amount:      h.Amount,
			USDValue:    h.USDValue,
			Change24h:   h.Change24h,
		})
	}

	sort.SliceStable(wallets, func(i, j int) bool {
		return wallets[i].TotalUSDValue > wallets[j].TotalUSDValue
	})

	return wallets
}
