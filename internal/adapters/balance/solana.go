package balance

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"portfoliotracker/internal/domain/currency"

	"github.com/ethereum/go-ethereum/rpc"
)

const DefaultSolanaRPCURL = "https://api.mainnet-beta.solana.com"

// SolanaReader reads SOL balances in lamports through the getBalance
// JSON-RPC method.
type SolanaReader struct {
	client      *rpc.Client
	coinID      string
	callTimeout time.Duration
}

type solanaBalance struct {
	Value uint64 `json:"value"`
}

// DialSolana prepares a JSON-RPC client for rpcURL. HTTP endpoints connect
// lazily, so no request is made here.
func DialSolana(ctx context.Context, rpcURL string, httpClient *http.Client, callTimeout time.Duration) (*SolanaReader, error) {
	if rpcURL == "" {
		rpcURL = DefaultSolanaRPCURL
	}
	var opts []rpc.ClientOption
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	client, err := rpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Solana RPC %s: %w", rpcURL, err)
	}
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &SolanaReader{client: client, coinID: "solana", callTimeout: callTimeout}, nil
}

func (r *SolanaReader) Supports(c currency.Currency) bool {
	n, ok := c.(currency.NativeCoin)
	return ok && n.ID == r.coinID
}

func (r *SolanaReader) Balance(ctx context.Context, address string, c currency.Currency) (*big.Int, error) {
	if !r.Supports(c) {
		return nil, fmt.Errorf("currency %s is not solana", c.Info().ID)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("solana: address is required")
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	var res solanaBalance
	if err := r.client.CallContext(ctx, &res, "getBalance", address); err != nil {
		return nil, fmt.Errorf("solana getBalance for %s: %w", address, err)
	}
	return new(big.Int).SetUint64(res.Value), nil
}

func (r *SolanaReader) Close() {
	r.client.Close()
}
