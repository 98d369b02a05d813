package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"portfoliotracker/internal/adapters/coingecko"
	"portfoliotracker/internal/adapters/currencies"
	"portfoliotracker/internal/adapters/httpclient"
	"portfoliotracker/internal/domain/currency"

	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
)

const ethereumChainID = "ethereum"

// nativeDecimals lists chains whose base coin can be balanced and priced by id.
// Top coins outside this table and the Ethereum token list are skipped.
var nativeDecimals = map[string]int32{
	"bitcoin":       8,
	"ethereum":      18,
	"solana":        9,
	"binancecoin":   18,
	"matic-network": 18,
	"ripple":        6,
	"litecoin":      8,
	"dogecoin":      8,
	"cardano":       6,
	"tron":          6,
	"avalanche-2":   18,
	"polkadot":      10,
}

// EthereumToken represents a token from /token_lists/ethereum/all.json endpoint
type EthereumToken struct {
	ChainID  int    `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
}

type TokenListResponse struct {
	Name   string          `json:"name"`
	Tokens []EthereumToken `json:"tokens"`
}

func main() {
	output := flag.String("out", "./static/currencies.json", "output file")
	pages := flag.Int("pages", 2, "pages of top coins to fetch")
	perPage := flag.Int("per-page", 250, "coins per page")
	dump := flag.Bool("dump", false, "dump the merged registry to stderr")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	apiKey := os.Getenv("COINGECKO_API_KEY")
	if apiKey == "" {
		log.Fatal("COINGECKO_API_KEY environment variable is required")
	}

	plan := coingecko.Plan(strings.ToLower(os.Getenv("COINGECKO_API_KEY_PLAN")))
	if plan == "" {
		plan = coingecko.PlanDemo
	}
	baseURL := os.Getenv("COINGECKO_BASE_URL")
	if baseURL == "" {
		baseURL = coingecko.DefaultBaseURL
		if plan == coingecko.PlanPro {
			baseURL = coingecko.DefaultProBaseURL
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 30 * time.Second
	client := coingecko.NewClient(httpclient.New(cfg, nil), baseURL, apiKey, plan)

	log.Printf("Fetching top %d coins...", (*pages)*(*perPage))
	listings, err := coingecko.NewMarketRepository(client).TopCoins(ctx, *pages, *perPage)
	if err != nil {
		log.Fatalf("Failed to fetch top coins: %v", err)
	}
	log.Printf("Fetched %d coins", len(listings))

	log.Println("Fetching token list from Ethereum...")
	var tokenListResp TokenListResponse
	if err := client.Get(ctx, "token_lists/ethereum/all.json", nil, &tokenListResp); err != nil {
		log.Fatalf("Failed to fetch Ethereum token list: %v", err)
	}
	log.Printf("Fetched %d Ethereum tokens", len(tokenListResp.Tokens))

	existing, err := readExisting(*output)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *output, err)
	}

	merged := merge(existing, listings, tokenListResp.Tokens)
	if _, err := currency.NewRegistry(merged); err != nil {
		log.Fatalf("Merged registry is invalid: %v", err)
	}
	if *dump {
		spew.Fdump(os.Stderr, merged)
	}

	if err := write(*output, merged); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("Successfully wrote %d currencies to %s", len(merged), *output)
}

func readExisting(path string) ([]currency.Currency, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return currencies.Decode(data)
}

// merge keeps existing entries first, then adds top coins in market cap order.
// A top coin whose symbol matches an Ethereum token becomes a token on
// Ethereum; otherwise it is kept only when it is a known native coin.
func merge(existing []currency.Currency, listings []coingecko.Listing, tokens []EthereumToken) []currency.Currency {
	out := make([]currency.Currency, 0, len(existing)+len(listings))
	seen := make(map[string]bool)
	seenContracts := make(map[string]bool)

	for _, c := range existing {
		if seen[c.Info().ID] {
			continue
		}
		seen[c.Info().ID] = true
		if t, ok := c.(currency.Token); ok {
			seenContracts[t.ContractKey()] = true
		}
		out = append(out, c)
	}

	bySymbol := make(map[string]EthereumToken, len(tokens))
	for _, t := range tokens {
		key := strings.ToLower(t.Symbol)
		if _, dup := bySymbol[key]; dup || t.Address == "" {
			continue
		}
		bySymbol[key] = t
	}

	for _, l := range listings {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		meta := currency.Meta{ID: l.ID, Name: l.Name, Ticker: strings.ToUpper(l.Symbol)}

		if decimals, ok := nativeDecimals[l.ID]; ok {
			meta.Decimals = decimals
			out = append(out, currency.NativeCoin{Meta: meta})
			seen[l.ID] = true
			continue
		}

		t, ok := bySymbol[strings.ToLower(l.Symbol)]
		if !ok || seenContracts[strings.ToLower(t.Address)] {
			continue
		}
		meta.Decimals = t.Decimals
		out = append(out, currency.Token{Meta: meta, Contract: t.Address, ParentChainID: ethereumChainID})
		seen[l.ID] = true
		seenContracts[strings.ToLower(t.Address)] = true
	}

	return out
}

func write(path string, list []currency.Currency) error {
	records := make([]currencies.Record, 0, len(list))
	for _, c := range list {
		records = append(records, currencies.FromDomain(c))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
