package currencies

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"portfoliotracker/internal/domain/currency"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ currency.Repository = (*Repository)(nil)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "currencies.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewRepository(t *testing.T) {
	path := writeFile(t, `[
		{"type":"native","id":"ethereum","name":"Ethereum","ticker":"ETH","decimals":18,"color":"#627EEA"},
		{"type":"token","id":"usd-coin","name":"USD Coin","ticker":"USDC","decimals":6,"contract":"0xA0b8","parentChainId":"ethereum"}
	]`)

	repo, err := NewRepository(path)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Count())

	list, err := repo.List(context.Background())
	require.NoError(t, err)

	require.IsType(t, currency.NativeCoin{}, list[0])
	assert.Equal(t, int32(18), list[0].Info().Decimals)

	tok, ok := list[1].(currency.Token)
	require.True(t, ok)
	assert.Equal(t, "0xA0b8", tok.Contract)
	assert.Equal(t, "ethereum", tok.ParentChainID)
}

func TestNewRepository_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		is   error
	}{
		{name: "malformed json", body: `{`},
		{name: "unknown type", body: `[{"type":"nft","id":"x"}]`, is: currency.ErrInvalidCurrency},
		{name: "duplicate id", body: `[{"type":"native","id":"x"},{"type":"native","id":"x"}]`, is: currency.ErrDuplicateCurrency},
		{name: "token without contract", body: `[{"type":"token","id":"x"}]`, is: currency.ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepository(writeFile(t, tt.body))
			require.Error(t, err)
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("NewRepository() error = %v, want %v", err, tt.is)
			}
		})
	}

	_, err := NewRepository(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRepository_ReloadKeepsOldSetOnError(t *testing.T) {
	path := writeFile(t, `[{"type":"native","id":"bitcoin","decimals":8}]`)
	repo, err := NewRepository(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	assert.Error(t, repo.Reload())
	assert.Equal(t, 1, repo.Count())
}

func TestFromDomain(t *testing.T) {
	tok := currency.Token{Meta: currency.Meta{ID: "dai", Decimals: 18}, Contract: "0x6B17", ParentChainID: "ethereum"}
	rec := FromDomain(tok)
	assert.Equal(t, TypeToken, rec.Type)

	back, err := rec.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, tok, back)
}

func TestStaticRegistryIsValid(t *testing.T) {
	repo, err := NewRepository(filepath.Join("..", "..", "..", "static", "currencies.json"))
	require.NoError(t, err)

	list, _ := repo.List(context.Background())
	reg, err := currency.NewRegistry(list)
	require.NoError(t, err)

	_, ok := reg.Resolve("ethereum")
	assert.True(t, ok)
}
