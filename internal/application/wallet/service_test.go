package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"portfoliotracker/internal/adapters/storage"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	eth = currency.NativeCoin{Meta: currency.Meta{ID: "ethereum", Decimals: 18}}
	btc = currency.NativeCoin{Meta: currency.Meta{ID: "bitcoin", Decimals: 8}}
	sol = currency.NativeCoin{Meta: currency.Meta{ID: "solana", Decimals: 9}}
)

type staticCurrencies []currency.Currency

func (s staticCurrencies) List(context.Context) ([]currency.Currency, error) {
	return s, nil
}

type countingNotifier struct {
	n int32
}

func (c *countingNotifier) Trigger() { atomic.AddInt32(&c.n, 1) }

func (c *countingNotifier) count() int { return int(atomic.LoadInt32(&c.n)) }

type fakeReader struct {
	coinID   string
	balances map[string]*big.Int
}

func (f fakeReader) Supports(c currency.Currency) bool { return c.Info().ID == f.coinID }

func (f fakeReader) Balance(_ context.Context, address string, _ currency.Currency) (*big.Int, error) {
	b, ok := f.balances[address]
	if !ok {
		return nil, errors.New("address not found")
	}
	return b, nil
}

func newTestService(readers ...account.BalanceReader) (*Service, *storage.MemoryRepository, *countingNotifier) {
	repo := storage.NewMemoryRepository()
	n := &countingNotifier{}
	svc := NewService(repo, staticCurrencies{eth, btc, sol}, readers, n, nil)
	return svc, repo, n
}

func TestService_AddExternalWallet(t *testing.T) {
	ctx := context.Background()
	svc, _, n := newTestService()

	a, err := svc.AddExternalWallet(ctx, " Savings ", "0xAbC", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "external-0xAbC", a.ID)
	assert.Equal(t, "Savings", a.Name)
	assert.Equal(t, account.SourceExternal, a.Source)
	assert.Equal(t, 1, n.count())

	tests := []struct {
		name     string
		walName  string
		address  string
		currency string
		wantErr  error
	}{
		{"duplicate address ignoring case", "Again", "0xabc", "ethereum", account.ErrAccountExists},
		{"unknown currency", "X", "0xdef", "dogecoin", ErrUnknownCurrency},
		{"missing name", "", "0xdef", "ethereum", account.ErrInvalidAccount},
		{"missing address", "X", " ", "ethereum", account.ErrInvalidAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddExternalWallet(ctx, tt.walName, tt.address, tt.currency)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddExternalWallet() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	assert.Equal(t, 1, n.count(), "rejected wallets must not trigger a pass")
}

func TestService_AddCustomWallet(t *testing.T) {
	ctx := context.Background()
	svc, repo, n := newTestService()

	w, err := svc.AddCustomWallet(ctx, "Paper", map[string]decimal.Decimal{
		"bitcoin":  decimal.RequireFromString("0.1"),
		"ethereum": decimal.Zero,
		"solana":   decimal.RequireFromString("-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin"}, w.CurrencyIDs())
	assert.Equal(t, 1, n.count())

	stored, err := repo.ListCustomWallets(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	_, err = svc.AddCustomWallet(ctx, "Bad", map[string]decimal.Decimal{"dogecoin": decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUnknownCurrency)

	_, err = svc.AddCustomWallet(ctx, "Empty", map[string]decimal.Decimal{"bitcoin": decimal.Zero})
	assert.ErrorIs(t, err, account.ErrInvalidWallet)
}

func TestService_ImportAccounts(t *testing.T) {
	ctx := context.Background()
	svc, repo, n := newTestService()

	_, err := svc.AddExternalWallet(ctx, "Ext", "0x1", "ethereum")
	require.NoError(t, err)

	err = svc.ImportAccounts(ctx, []*account.Account{
		{ID: "ledger-eth", Name: "Ledger ETH", CurrencyID: "ethereum", Balance: big.NewInt(10), Source: account.SourceExternal},
		{ID: "ledger-btc", Name: "Ledger BTC", CurrencyID: "bitcoin"},
	})
	require.NoError(t, err)

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, account.SourceLedger, accounts[1].Source, "imported accounts are always ledger-sourced")
	assert.Equal(t, int64(0), accounts[2].Balance.Int64())
	assert.False(t, accounts[2].LastSyncDate.IsZero())
	assert.Equal(t, 2, n.count())

	err = svc.ImportAccounts(ctx, []*account.Account{{ID: "x"}})
	assert.ErrorIs(t, err, account.ErrInvalidAccount)
	err = svc.ImportAccounts(ctx, []*account.Account{{ID: "x", CurrencyID: "bitcoin", Balance: big.NewInt(-1)}})
	assert.ErrorIs(t, err, account.ErrInvalidAccount)
}

func TestService_RenameAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, n := newTestService()

	a, err := svc.AddExternalWallet(ctx, "Old", "0x1", "ethereum")
	require.NoError(t, err)
	w, err := svc.AddCustomWallet(ctx, "Old paper", map[string]decimal.Decimal{"bitcoin": decimal.NewFromInt(1)})
	require.NoError(t, err)

	require.NoError(t, svc.RenameWallet(ctx, a.ID, "New"))
	require.NoError(t, svc.RenameWallet(ctx, w.ID, "New paper"))

	gotA, _ := repo.GetAccount(ctx, a.ID)
	assert.Equal(t, "New", gotA.Name)
	gotW, _ := repo.GetCustomWallet(ctx, w.ID)
	assert.Equal(t, "New paper", gotW.Name)

	assert.ErrorIs(t, svc.RenameWallet(ctx, "nope", "x"), account.ErrWalletNotFound)
	assert.ErrorIs(t, svc.RenameWallet(ctx, a.ID, "  "), account.ErrInvalidWallet)

	require.NoError(t, svc.DeleteWallet(ctx, a.ID))
	require.NoError(t, svc.DeleteWallet(ctx, w.ID))
	assert.ErrorIs(t, svc.DeleteWallet(ctx, a.ID), account.ErrWalletNotFound)

	accounts, _ := svc.ListAccounts(ctx)
	wallets, _ := svc.ListCustomWallets(ctx)
	assert.Empty(t, accounts)
	assert.Empty(t, wallets)

	// add, add, rename, rename, delete, delete
	assert.Equal(t, 6, n.count())
}

func TestService_SyncBalances(t *testing.T) {
	ctx := context.Background()
	reader := fakeReader{coinID: "ethereum", balances: map[string]*big.Int{"0xgood": big.NewInt(42)}}
	svc, repo, n := newTestService(reader)
	fixed := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, err := svc.AddExternalWallet(ctx, "Good", "0xgood", "ethereum")
	require.NoError(t, err)
	_, err = svc.AddExternalWallet(ctx, "Bad", "0xbad", "ethereum")
	require.NoError(t, err)
	_, err = svc.AddExternalWallet(ctx, "Sol", "So1", "solana")
	require.NoError(t, err)
	require.NoError(t, svc.ImportAccounts(ctx, []*account.Account{{ID: "l", CurrencyID: "ethereum", Address: "0xgood"}}))

	before := n.count()
	res, err := svc.SyncBalances(ctx)
	require.NoError(t, err)

	assert.Equal(t, SyncResult{Updated: 1, Failed: 1, Skipped: 1}, res)
	assert.Equal(t, before+1, n.count())

	good, _ := repo.GetAccount(ctx, account.ExternalAccountID("0xgood"))
	assert.Equal(t, int64(42), good.Balance.Int64())
	assert.Equal(t, fixed, good.LastSyncDate)

	ledger, _ := repo.GetAccount(ctx, "l")
	assert.Equal(t, int64(0), ledger.Balance.Int64(), "ledger accounts are not synced")
}
