package balance

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"portfoliotracker/internal/domain/currency"
)

const DefaultBitcoinBaseURL = "https://blockchain.info"

// BitcoinReader reads address balances in satoshis from the blockchain.info
// query API.
type BitcoinReader struct {
	httpClient *http.Client
	baseURL    string
	coinID     string
}

func NewBitcoinReader(httpClient *http.Client, baseURL string) *BitcoinReader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBitcoinBaseURL
	}
	return &BitcoinReader{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/"), coinID: "bitcoin"}
}

func (r *BitcoinReader) Supports(c currency.Currency) bool {
	n, ok := c.(currency.NativeCoin)
	return ok && n.ID == r.coinID
}

func (r *BitcoinReader) Balance(ctx context.Context, address string, c currency.Currency) (*big.Int, error) {
	if !r.Supports(c) {
		return nil, fmt.Errorf("currency %s is not bitcoin", c.Info().ID)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("bitcoin: address is required")
	}

	u := fmt.Sprintf("%s/q/addressbalance/%s", r.baseURL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("bitcoin: build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitcoin: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return nil, fmt.Errorf("bitcoin: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitcoin: status %d, body: %s", resp.StatusCode, string(body))
	}

	sats, ok := new(big.Int).SetString(strings.TrimSpace(string(body)), 10)
	if !ok {
		return nil, fmt.Errorf("bitcoin: unexpected balance %q", string(body))
	}
	return sats, nil
}
