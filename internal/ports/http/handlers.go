package http

import (
	"context"
	"time"

	"portfoliotracker/internal/application/wallet"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"
	"portfoliotracker/internal/domain/nft"
	"portfoliotracker/internal/domain/portfolio"

	"github.com/shopspring/decimal"
)

// PortfolioService is what the snapshot endpoints read from.
type PortfolioService interface {
	Snapshot() (portfolio.Snapshot, error)
	Refresh(ctx context.Context) (portfolio.Snapshot, error)
}

type WalletService interface {
	ListCurrencies(ctx context.Context) ([]currency.Currency, error)
	ListAccounts(ctx context.Context) ([]*account.Account, error)
	ListCustomWallets(ctx context.Context) ([]*account.CustomWallet, error)
	AddExternalWallet(ctx context.Context, name, address, currencyID string) (*account.Account, error)
	AddCustomWallet(ctx context.Context, name string, amounts map[string]decimal.Decimal) (*account.CustomWallet, error)
	ImportAccounts(ctx context.Context, accounts []*account.Account) error
	RenameWallet(ctx context.Context, id, name string) error
	DeleteWallet(ctx context.Context, id string) error
	SyncBalances(ctx context.Context) (wallet.SyncResult, error)
}

type NFTService interface {
	List(ctx context.Context, chain, address string) []nft.Nft
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Currency struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	Decimals      int32  `json:"decimals"`
	Color         string `json:"color,omitempty"`
	Contract      string `json:"contract,omitempty"`
	ParentChainID string `json:"parent_chain_id,omitempty"`
}

// Account carries its balance as a decimal string of the smallest unit.
type Account struct {
	ID              string     `json:"id"`
	ParentAccountID string     `json:"parent_account_id,omitempty"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	CurrencyID      string     `json:"currency_id"`
	Balance         string     `json:"balance"`
	Source          string     `json:"source"`
	LastSyncDate    *time.Time `json:"last_sync_date,omitempty"`
}

type CustomWallet struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Amounts   map[string]float64 `json:"amounts"`
	CreatedAt time.Time          `json:"created_at"`
}

type WalletHolding struct {
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	CurrencyID  string  `json:"currency_id"`
	Name        string  `json:"name"`
	Ticker      string  `json:"ticker"`
	Color       string  `json:"color,omitempty"`
	Amount      float64 `json:"amount"`
	USDValue    float64 `json:"usd_value"`
	Change24h   float64 `json:"change_24h"`
}

type Wallet struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TotalUSDValue float64         `json:"total_usd_value"`
	Holdings      []WalletHolding `json:"holdings"`
}

type Contribution struct {
	AccountName string  `json:"account_name"`
	Amount      float64 `json:"amount"`
	USDValue    float64 `json:"usd_value"`
}

type Token struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Ticker        string         `json:"ticker"`
	Color         string         `json:"color,omitempty"`
	Kind          string         `json:"kind"`
	Amount        float64        `json:"amount"`
	USDValue      float64        `json:"usd_value"`
	Change24h     float64        `json:"change_24h"`
	Contributions []Contribution `json:"contributions"`
}

type PricePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

type Stats struct {
	TotalBalance     float64 `json:"total_balance"`
	TotalProfit      float64 `json:"total_profit"`
	ProfitPercentage float64 `json:"profit_percentage"`
}

type Snapshot struct {
	Sequence    uint64       `json:"sequence"`
	GeneratedAt time.Time    `json:"generated_at"`
	Wallets     []Wallet     `json:"wallets"`
	Tokens      []Token      `json:"tokens"`
	History     []PricePoint `json:"history"`
	Stats       Stats        `json:"stats"`
}

type Nft struct {
	Identifier    string    `json:"identifier"`
	Collection    string    `json:"collection"`
	Contract      string    `json:"contract"`
	TokenStandard string    `json:"token_standard"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	MetadataURL   string    `json:"metadata_url,omitempty"`
	OpenSeaURL    string    `json:"opensea_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
	IsDisabled    bool      `json:"is_disabled"`
	IsNSFW        bool      `json:"is_nsfw"`
}

type SyncResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

type AddExternalWalletRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	CurrencyID string `json:"currency_id"`
}

type AddCustomWalletRequest struct {
	Name    string                     `json:"name"`
	Amounts map[string]decimal.Decimal `json:"amounts"`
}

type RenameWalletRequest struct {
	Name string `json:"name"`
}

type AccountInput struct {
	ID              string     `json:"id"`
	ParentAccountID string     `json:"parent_account_id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	CurrencyID      string     `json:"currency_id"`
	Balance         string     `json:"balance"`
	LastSyncDate    *time.Time `json:"last_sync_date"`
}

type ImportAccountsRequest struct {
	Accounts []AccountInput `json:"accounts"`
}
