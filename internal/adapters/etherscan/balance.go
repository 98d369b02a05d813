package etherscan

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"portfoliotracker/internal/domain"
	"portfoliotracker/internal/domain/currency"

	"github.com/ethereum/go-ethereum/common"
)

// BalanceReader reads native and ERC-20 balances through the Etherscan
// account API. It serves as the EVM reader when no JSON-RPC endpoint is set.
type BalanceReader struct {
	client      *Client
	rateLimiter domain.RateLimiterService
	coinID      string
}

// NewBalanceReader reads balances for the chain whose native coin has the
// registry id coinID. rateLimiter may be nil.
func NewBalanceReader(client *Client, rateLimiter domain.RateLimiterService, coinID string) *BalanceReader {
	return &BalanceReader{client: client, rateLimiter: rateLimiter, coinID: coinID}
}

func (r *BalanceReader) Supports(c currency.Currency) bool {
	switch v := c.(type) {
	case currency.NativeCoin:
		return v.ID == r.coinID
	case currency.Token:
		return v.ParentChainID == r.coinID && common.IsHexAddress(v.Contract)
	default:
		return false
	}
}

func (r *BalanceReader) Balance(ctx context.Context, address string, c currency.Currency) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid EVM address %q", address)
	}
	if !r.Supports(c) {
		return nil, fmt.Errorf("currency %s is not on chain %s", c.Info().ID, r.coinID)
	}

	if r.rateLimiter != nil {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("address", strings.ToLower(address))
	params.Set("tag", "latest")

	if t, ok := c.(currency.Token); ok {
		params.Set("action", "tokenbalance")
		params.Set("contractaddress", strings.ToLower(t.Contract))
	} else {
		params.Set("action", "balance")
	}

	var result string
	if err := r.client.get(ctx, params, &result); err != nil {
		return nil, err
	}

	bal, ok := new(big.Int).SetString(result, 10)
	if !ok {
		return nil, fmt.Errorf("etherscan: unexpected balance %q", result)
	}
	return bal, nil
}
