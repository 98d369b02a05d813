package portfolio

import (
	"math"
	"math/big"
	"testing"

	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/market"
)

var (
	ethCoin = currency.NativeCoin{Meta: currency.Meta{ID: "ethereum", Name: "Ethereum", Ticker: "ETH", Decimals: 18, Color: "#627EEA"}}
	btcCoin = currency.NativeCoin{Meta: currency.Meta{ID: "bitcoin", Name: "Bitcoin", Ticker: "BTC", Decimals: 8, Color: "#F7931A"}}
	aaaTok  = currency.Token{
		Meta:          currency.Meta{ID: "ethereum/erc20/aaa", Name: "Triple A", Ticker: "AAA", Decimals: 6},
		Contract:      "0xAAA",
		ParentChainID: "ethereum",
	}
)

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func mustRegistry(t *testing.T, cs ...currency.Currency) *currency.Registry {
	t.Helper()
	r, err := currency.NewRegistry(cs)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals int32
		want     float64
	}{
		{name: "two ether", raw: new(big.Int).Mul(big.NewInt(2), pow10(18)), decimals: 18, want: 2},
		{name: "zero decimals", raw: big.NewInt(42), decimals: 0, want: 42},
		{name: "satoshis", raw: big.NewInt(12_345_678), decimals: 8, want: 0.12345678},
		{name: "zero balance", raw: big.NewInt(0), decimals: 18, want: 0},
		{name: "nil balance", raw: nil, decimals: 18, want: 0},
		{name: "huge balance", raw: pow10(40), decimals: 18, want: 1e22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, tt.decimals)
			if math.Abs(got-tt.want) > 1e-12*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	raws := []string{"1", "999999999999999999", "123456789012345678901234", "5000000"}
	for _, s := range raws {
		raw, _ := new(big.Int).SetString(s, 10)
		for _, d := range []int32{0, 6, 8, 18} {
			amount := Normalize(raw, d)
			back := new(big.Float).Mul(big.NewFloat(amount), new(big.Float).SetInt(pow10(int64(d))))
			want := new(big.Float).SetInt(raw)

			diff := new(big.Float).Sub(back, want)
			diff.Abs(diff)
			tolerance := new(big.Float).Mul(want, big.NewFloat(1e-15))
			if diff.Cmp(tolerance) > 0 && diff.Cmp(big.NewFloat(1e-9)) > 0 {
				t.Errorf("Normalize(%s, %d) round trip = %v, want %v", s, d, back, want)
			}
		}
	}
}

func TestValue(t *testing.T) {
	data := market.Data{
		Coins: []market.CoinMarket{
			{ID: "ethereum", CurrentPrice: 3000, PriceChangePercentage24h: -1.5},
		},
		Tokens: market.TokenPrices{
			"0xaaa": {USD: 1.5, USD24hChange: 2.0},
		},
	}
	idx := NewPriceIndex(data)

	tests := []struct {
		name       string
		ra         ResolvedAccount
		wantAmount float64
		wantValue  float64
		wantChange float64
	}{
		{
			name: "native coin priced by id",
			ra: ResolvedAccount{
				Account:  &account.Account{ID: "a", Balance: new(big.Int).Mul(big.NewInt(2), pow10(18))},
				Currency: ethCoin,
			},
			wantAmount: 2,
			wantValue:  6000,
			wantChange: -1.5,
		},
		{
			name: "token priced by lowercased contract",
			ra: ResolvedAccount{
				Account:  &account.Account{ID: "b", Balance: new(big.Int).Mul(big.NewInt(100), pow10(6))},
				Currency: aaaTok,
			},
			wantAmount: 100,
			wantValue:  150,
			wantChange: 2.0,
		},
		{
			name: "missing coin price falls back to zero",
			ra: ResolvedAccount{
				Account:  &account.Account{ID: "c", Balance: pow10(8)},
				Currency: btcCoin,
			},
			wantAmount: 1,
			wantValue:  0,
			wantChange: 0,
		},
		{
			name: "missing token price falls back to zero",
			ra: ResolvedAccount{
				Account: &account.Account{ID: "d", Balance: pow10(6)},
				Currency: currency.Token{
					Meta:     currency.Meta{ID: "other", Decimals: 6},
					Contract: "0xBBB",
				},
			},
			wantAmount: 1,
			wantValue:  0,
			wantChange: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Value(tt.ra, idx)
			if h.Amount != tt.wantAmount {
				t.Errorf("Value() Amount = %v, want %v", h.Amount, tt.wantAmount)
			}
			if h.USDValue != tt.wantValue {
				t.Errorf("Value() USDValue = %v, want %v", h.USDValue, tt.wantValue)
			}
			if h.Change24h != tt.wantChange {
				t.Errorf("Value() Change24h = %v, want %v", h.Change24h, tt.wantChange)
			}
		})
	}
}

func TestNewPriceIndex_FirstCoinRecordWins(t *testing.T) {
	idx := NewPriceIndex(market.Data{Coins: []market.CoinMarket{
		{ID: "ethereum", CurrentPrice: 3000},
		{ID: "ethereum", CurrentPrice: 1},
	}})

	h := Value(ResolvedAccount{Account: &account.Account{Balance: pow10(18)}, Currency: ethCoin}, idx)
	if h.USDValue != 3000 {
		t.Errorf("Value() USDValue = %v, want 3000", h.USDValue)
	}
}

func TestResolveAccounts(t *testing.T) {
	registry := mustRegistry(t, ethCoin)
	accounts := []*account.Account{
		{ID: "1", CurrencyID: "ethereum"},
		{ID: "2", CurrencyID: "dogecoin"},
		nil,
		{ID: "3", CurrencyID: "ethereum"},
	}

	resolved := ResolveAccounts(accounts, registry)
	if len(resolved) != 2 {
		t.Fatalf("ResolveAccounts() returned %d, want 2", len(resolved))
	}
	if resolved[0].Account.ID != "1" || resolved[1].Account.ID != "3" {
		t.Errorf("ResolveAccounts() kept ids %s,%s, want 1,3", resolved[0].Account.ID, resolved[1].Account.ID)
	}
}
