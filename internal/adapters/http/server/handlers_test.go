package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	loggeradapter "portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/adapters/metrics"
	portfolioservice "portfoliotracker/internal/application/portfolio"
	"portfoliotracker/internal/application/wallet"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/nft"
	"portfoliotracker/internal/domain/portfolio"
	httpports "portfoliotracker/internal/ports/http"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePortfolio struct {
	snap       *portfolio.Snapshot
	refreshErr error
}

func (f *fakePortfolio) Snapshot() (portfolio.Snapshot, error) {
	if f.snap == nil {
		return portfolio.Snapshot{}, portfolioservice.ErrNoSnapshot
	}
	return *f.snap, nil
}

func (f *fakePortfolio) Refresh(context.Context) (portfolio.Snapshot, error) {
	if f.refreshErr != nil {
		return portfolio.Snapshot{}, f.refreshErr
	}
	next := portfolio.Snapshot{Sequence: 99}
	f.snap = &next
	return next, nil
}

type fakeWallets struct {
	accounts  []*account.Account
	imported  []*account.Account
	renamed   map[string]string
	externals []string
	err       error
}

func (f *fakeWallets) ListCurrencies(context.Context) ([]currency.Currency, error) {
	return []currency.Currency{currency.NativeCoin{Meta: currency.Meta{ID: "bitcoin", Decimals: 8}}}, f.err
}

func (f *fakeWallets) ListAccounts(context.Context) ([]*account.Account, error) {
	return f.accounts, f.err
}

func (f *fakeWallets) ListCustomWallets(context.Context) ([]*account.CustomWallet, error) {
	return nil, f.err
}

func (f *fakeWallets) AddExternalWallet(_ context.Context, name, address, currencyID string) (*account.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.externals = append(f.externals, address)
	return &account.Account{ID: account.ExternalAccountID(address), Name: name, Address: address, CurrencyID: currencyID, Source: account.SourceExternal}, nil
}

func (f *fakeWallets) AddCustomWallet(_ context.Context, name string, amounts map[string]decimal.Decimal) (*account.CustomWallet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &account.CustomWallet{ID: "custom-1", Name: name, Amounts: amounts}, nil
}

func (f *fakeWallets) ImportAccounts(_ context.Context, accounts []*account.Account) error {
	f.imported = accounts
	return f.err
}

func (f *fakeWallets) RenameWallet(_ context.Context, id, name string) error {
	if f.err != nil {
		return f.err
	}
	if f.renamed == nil {
		f.renamed = map[string]string{}
	}
	f.renamed[id] = name
	return nil
}

func (f *fakeWallets) DeleteWallet(context.Context, string) error {
	return f.err
}

func (f *fakeWallets) SyncBalances(context.Context) (wallet.SyncResult, error) {
	return wallet.SyncResult{Updated: 2, Skipped: 1}, f.err
}

type fakeNFTs struct {
	chain, address string
}

func (f *fakeNFTs) List(_ context.Context, chain, address string) []nft.Nft {
	f.chain, f.address = chain, address
	return []nft.Nft{{Identifier: "7", Name: "Ape"}}
}

type testEnv struct {
	portfolio *fakePortfolio
	wallets   *fakeWallets
	nfts      *fakeNFTs
	metrics   *metrics.Metrics
	handler   http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		portfolio: &fakePortfolio{},
		wallets:   &fakeWallets{},
		nfts:      &fakeNFTs{},
		metrics:   metrics.NewRegistry(),
	}
	h := NewHandlerAdapter(env.portfolio, env.wallets, env.nfts, loggeradapter.NewNopLogger(), "test")
	env.handler = NewServer(Config{}, h, env.metrics, loggeradapter.NewNopLogger()).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSnapshotEndpoints_UnavailableBeforeFirstPass(t *testing.T) {
	env := newTestEnv()

	for _, path := range []string{
		"/api/v1/portfolio",
		"/api/v1/portfolio/wallets",
		"/api/v1/portfolio/tokens",
		"/api/v1/portfolio/history",
		"/api/v1/portfolio/stats",
	} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, path, "")
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			resp := decode[httpports.ErrorResponse](t, rec)
			assert.Equal(t, "Service Unavailable", resp.Error)
		})
	}
}

func TestSnapshotEndpoints(t *testing.T) {
	env := newTestEnv()
	env.portfolio.snap = &portfolio.Snapshot{
		Sequence: 3,
		Wallets:  []portfolio.Wallet{{ID: "w1", Name: "Main", TotalUSDValue: 10}},
		Tokens:   []portfolio.AggregatedToken{{ID: "bitcoin", USDValue: 10}},
		Series:   []portfolio.PriceDataPoint{{Time: time.Unix(0, 0), Value: 8}},
		Stats:    portfolio.Stats{TotalBalance: 10, TotalProfit: 2, ProfitPercentage: 25},
	}

	rec := env.do(t, http.MethodGet, "/api/v1/portfolio", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[httpports.Snapshot](t, rec)
	assert.Equal(t, uint64(3), snap.Sequence)
	assert.Len(t, snap.Wallets, 1)

	stats := decode[httpports.Stats](t, env.do(t, http.MethodGet, "/api/v1/portfolio/stats", ""))
	assert.Equal(t, 25.0, stats.ProfitPercentage)

	history := decode[[]httpports.PricePoint](t, env.do(t, http.MethodGet, "/api/v1/portfolio/history", ""))
	require.Len(t, history, 1)
	assert.Equal(t, 8.0, history[0].Value)
}

func TestRefreshPortfolio(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/portfolio/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(99), decode[httpports.Snapshot](t, rec).Sequence)
}

func TestRefreshPortfolio_UncommittedPassReturnsLatest(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"superseded", fmt.Errorf("%w: seq=4", portfolioservice.ErrPassSuperseded)},
		{"out of time", fmt.Errorf("%w: context deadline exceeded", portfolioservice.ErrPassAborted)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.portfolio.snap = &portfolio.Snapshot{Sequence: 5}
			env.portfolio.refreshErr = tt.err

			rec := env.do(t, http.MethodPost, "/api/v1/portfolio/refresh", "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, uint64(5), decode[httpports.Snapshot](t, rec).Sequence)
		})
	}
}

func TestRefreshPortfolio_LoadFailure(t *testing.T) {
	env := newTestEnv()
	env.portfolio.refreshErr = fmt.Errorf("%w: disk gone", portfolioservice.ErrLoadInputs)

	rec := env.do(t, http.MethodPost, "/api/v1/portfolio/refresh", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAddExternalWallet(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/wallets/external",
		`{"name":"Hot","address":"0xabc","currency_id":"ethereum"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decode[httpports.Account](t, rec)
	assert.Equal(t, "external-0xabc", got.ID)
	assert.Equal(t, "0", got.Balance)

	rec = env.do(t, http.MethodPost, "/api/v1/wallets/external", `{"name":"Hot"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", fmt.Errorf("%w: address=0x1", account.ErrAccountExists), http.StatusConflict},
		{"unknown currency", fmt.Errorf("%w: doge", wallet.ErrUnknownCurrency), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: id=x", account.ErrWalletNotFound), http.StatusNotFound},
		{"storage", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv()
			env.wallets.err = tt.err

			rec := env.do(t, http.MethodPatch, "/api/v1/wallets/w1", `{"name":"New"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAddCustomWallet(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPost, "/api/v1/wallets/custom",
		`{"name":"Cold","amounts":{"bitcoin":0.25,"ethereum":"1.5"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decode[httpports.CustomWallet](t, rec)
	assert.Equal(t, 0.25, got.Amounts["bitcoin"])
	assert.Equal(t, 1.5, got.Amounts["ethereum"])
}

func TestImportAccounts(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPut, "/api/v1/accounts",
		`{"accounts":[{"id":"l1","currency_id":"ethereum","balance":"2000000000000000000"}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, env.wallets.imported, 1)
	assert.Equal(t, "2000000000000000000", env.wallets.imported[0].Balance.String())

	rec = env.do(t, http.MethodPut, "/api/v1/accounts", `{"accounts":[{"id":"l1","balance":"abc"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenameAndDeleteWallet(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodPatch, "/api/v1/wallets/custom-1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Renamed", env.wallets.renamed["custom-1"])

	rec = env.do(t, http.MethodDelete, "/api/v1/wallets/custom-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	env := newTestEnv()
	env.wallets.accounts = []*account.Account{{ID: "a1", CurrencyID: "bitcoin"}}

	accounts := decode[[]httpports.Account](t, env.do(t, http.MethodGet, "/api/v1/accounts", ""))
	require.Len(t, accounts, 1)
	assert.Equal(t, "a1", accounts[0].ID)

	currencies := decode[[]httpports.Currency](t, env.do(t, http.MethodGet, "/api/v1/currencies", ""))
	require.Len(t, currencies, 1)
	assert.Equal(t, "native", currencies[0].Kind)

	customs := decode[[]httpports.CustomWallet](t, env.do(t, http.MethodGet, "/api/v1/wallets/custom", ""))
	assert.Empty(t, customs)

	sync := decode[httpports.SyncResult](t, env.do(t, http.MethodPost, "/api/v1/wallets/sync", ""))
	assert.Equal(t, httpports.SyncResult{Updated: 2, Skipped: 1}, sync)
}

func TestGetNFTs(t *testing.T) {
	env := newTestEnv()

	nfts := decode[[]httpports.Nft](t, env.do(t, http.MethodGet, "/api/v1/nfts?chain=ethereum&address=0xabc", ""))
	require.Len(t, nfts, 1)
	assert.Equal(t, "Ape", nfts[0].Name)
	assert.Equal(t, "ethereum", env.nfts.chain)
	assert.Equal(t, "0xabc", env.nfts.address)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "warming up", health["portfolio"])

	rec = env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portfolio_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv()

	rec := env.do(t, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Portfolio Tracker API")
	assert.Contains(t, rec.Body.String(), "/portfolio/refresh")
}
