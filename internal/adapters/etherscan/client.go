package etherscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const DefaultBaseURL = "https://api.etherscan.io/v2/api"

// response is the envelope every Etherscan account endpoint returns.
type response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	chainID    int
}

// NewClient creates a client for one chain of the multichain v2 API;
// chainID is the numeric EVM chain id (1 for Ethereum mainnet).
func NewClient(httpClient *http.Client, baseURL, apiKey string, chainID int) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if chainID <= 0 {
		chainID = 1
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		chainID:    chainID,
	}
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	params.Set("apikey", c.apiKey)
	params.Set("chainid", strconv.Itoa(c.chainID))

	u := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("etherscan: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("etherscan: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("etherscan: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("etherscan: status %d, body: %s", resp.StatusCode, string(body))
	}

	var env response
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("etherscan: decode body: %w", err)
	}
	if env.Status != "1" {
		// errors carry the reason as a plain string in result
		var reason string
		_ = json.Unmarshal(env.Result, &reason)
		return fmt.Errorf("etherscan: %s: %s", env.Message, reason)
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("etherscan: decode result: %w", err)
	}
	return nil
}
