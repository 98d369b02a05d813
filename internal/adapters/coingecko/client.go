package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultBaseURL    = "https://api.coingecko.com/api/v3"
	DefaultProBaseURL = "https://pro-api.coingecko.com/api/v3"
)

// Plan selects how the API key is sent.
type Plan string

const (
	PlanDemo Plan = "demo"
	PlanPro  Plan = "pro"
)

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	plan    Plan
}

func NewClient(client *http.Client, baseURL string, apiKey string, plan Plan) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, plan: plan}
}

// Get performs a GET on endpoint with the given query and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" && c.plan != PlanPro {
		query.Set("x_cg_demo_api_key", c.apiKey)
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(endpoint, "/"))
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.plan == PlanPro {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("CoinGecko API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
