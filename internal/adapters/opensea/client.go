package opensea

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfoliotracker/internal/domain/nft"
)

const DefaultBaseURL = "https://api.opensea.io/api/v2"

type nftResponse struct {
	Identifier    string `json:"identifier"`
	Collection    string `json:"collection"`
	Contract      string `json:"contract"`
	TokenStandard string `json:"token_standard"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	MetadataURL   string `json:"metadata_url"`
	OpenSeaURL    string `json:"opensea_url"`
	UpdatedAt     string `json:"updated_at"`
	IsDisabled    bool   `json:"is_disabled"`
	IsNSFW        bool   `json:"is_nsfw"`
}

type listResponse struct {
	NFTs []nftResponse `json:"nfts"`
}

// Client implements nft.Provider against the OpenSea v2 API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

func (c *Client) ListNFTs(ctx context.Context, chain, address string) ([]nft.Nft, error) {
	if chain == "" || address == "" {
		return nil, fmt.Errorf("opensea: chain and address are required")
	}

	path := fmt.Sprintf("/chain/%s/account/%s/nfts", url.PathEscape(chain), url.PathEscape(address))

	var data listResponse
	if err := c.get(ctx, path, &data); err != nil {
		return nil, err
	}

	out := make([]nft.Nft, 0, len(data.NFTs))
	for _, n := range data.NFTs {
		out = append(out, toDomain(n))
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("opensea: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("opensea: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("opensea: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("opensea: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("opensea: decode body: %w", err)
	}

	return nil
}

func toDomain(n nftResponse) nft.Nft {
	out := nft.Nft{
		Identifier:    n.Identifier,
		Collection:    n.Collection,
		Contract:      n.Contract,
		TokenStandard: n.TokenStandard,
		Name:          n.Name,
		Description:   n.Description,
		ImageURL:      n.ImageURL,
		MetadataURL:   n.MetadataURL,
		OpenSeaURL:    n.OpenSeaURL,
		IsDisabled:    n.IsDisabled,
		IsNSFW:        n.IsNSFW,
	}
	// OpenSea sends naive timestamps without a zone
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, n.UpdatedAt); err == nil {
			out.UpdatedAt = t.UTC()
			break
		}
	}
	return out
}
