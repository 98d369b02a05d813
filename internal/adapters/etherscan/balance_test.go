package etherscan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ account.BalanceReader = (*BalanceReader)(nil)

const owner = "0x00000000000000000000000000000000000000A1"

var (
	eth  = currency.NativeCoin{Meta: currency.Meta{ID: "ethereum", Decimals: 18}}
	usdc = currency.Token{
		Meta:          currency.Meta{ID: "usd-coin", Decimals: 6},
		Contract:      "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		ParentChainID: "ethereum",
	}
)

type countingLimiter struct{ waits int }

func (l *countingLimiter) Allow(context.Context) error { return nil }
func (l *countingLimiter) Wait(context.Context) error  { l.waits++; return nil }

func TestBalanceReader_Balance(t *testing.T) {
	var queries []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		queries = append(queries, map[string]string{
			"action":          q.Get("action"),
			"address":         q.Get("address"),
			"contractaddress": q.Get("contractaddress"),
			"chainid":         q.Get("chainid"),
			"apikey":          q.Get("apikey"),
		})
		if q.Get("action") == "tokenbalance" {
			_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"2500000"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"1","message":"OK","result":"1000000000000000000"}`))
	}))
	defer srv.Close()

	limiter := &countingLimiter{}
	r := NewBalanceReader(NewClient(srv.Client(), srv.URL, "k", 1), limiter, "ethereum")

	native, err := r.Balance(context.Background(), owner, eth)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", native.String())

	token, err := r.Balance(context.Background(), owner, usdc)
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), token.Int64())

	require.Len(t, queries, 2)
	assert.Equal(t, "balance", queries[0]["action"])
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", queries[0]["address"])
	assert.Equal(t, "1", queries[0]["chainid"])
	assert.Equal(t, "k", queries[0]["apikey"])
	assert.Equal(t, "tokenbalance", queries[1]["action"])
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", queries[1]["contractaddress"])
	assert.Equal(t, 2, limiter.waits)
}

func TestBalanceReader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	}))
	defer srv.Close()

	r := NewBalanceReader(NewClient(srv.Client(), srv.URL, "bad", 1), nil, "ethereum")

	_, err := r.Balance(context.Background(), owner, eth)
	assert.ErrorContains(t, err, "Invalid API Key")

	_, err = r.Balance(context.Background(), "nope", eth)
	assert.Error(t, err)

	btc := currency.NativeCoin{Meta: currency.Meta{ID: "bitcoin"}}
	assert.False(t, r.Supports(btc))
	_, err = r.Balance(context.Background(), owner, btc)
	assert.Error(t, err)
}
