package account

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"portfoliotracker/internal/domain/currency"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrInvalidWallet   = errors.New("invalid wallet")
)

type Source string

const (
	SourceLedger   Source = "ledger"
	SourceExternal Source = "external"
	SourceCustom   Source = "custom"
)

type Repository interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, id string) error
	// ReplaceLedgerAccounts swaps every ledger-sourced account for the given set.
	ReplaceLedgerAccounts(ctx context.Context, accounts []*Account) error

	ListCustomWallets(ctx context.Context) ([]*CustomWallet, error)
	GetCustomWallet(ctx context.Context, id string) (*CustomWallet, error)
	SaveCustomWallet(ctx context.Context, w *CustomWallet) error
	DeleteCustomWallet(ctx context.Context, id string) error
}

// BalanceReader fetches on-chain balances in the currency's smallest unit.
type BalanceReader interface {
	Supports(c currency.Currency) bool
	Balance(ctx context.Context, address string, c currency.Currency) (*big.Int, error)
}

type Account struct {
	ID              string
	ParentAccountID string
	Name            string
	Address         string
	CurrencyID      string
	Balance         *big.Int
	Source          Source
	LastSyncDate    time.Time
}

func (a *Account) HasParent() bool {
	return a.ParentAccountID != ""
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Balance != nil {
		c.Balance = new(big.Int).Set(a.Balance)
	}
	return &c
}

// NewExternalAccount creates a user-added account tracked by address only.
func NewExternalAccount(name, address, currencyID string) (*Account, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" || currencyID == "" {
		return nil, fmt.Errorf("%w: name, address and currency are required", ErrInvalidAccount)
	}

	return &Account{
		ID:           ExternalAccountID(address),
		Name:         name,
		Address:      address,
		CurrencyID:   currencyID,
		Balance:      big.NewInt(0),
		Source:       SourceExternal,
		LastSyncDate: time.Now().UTC(),
	}, nil
}

func ExternalAccountID(address string) string {
	return "external-" + address
}

// CustomWallet is a manually entered set of amounts, keyed by currency id.
type CustomWallet struct {
	ID        string
	Name      string
	Amounts   map[string]decimal.Decimal
	CreatedAt time.Time
}

func NewCustomWallet(name string, amounts map[string]decimal.Decimal) (*CustomWallet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidWallet)
	}

	kept := make(map[string]decimal.Decimal, len(amounts))
	for id, amount := range amounts {
		if id == "" || !amount.IsPositive() {
			continue
		}
		kept[id] = amount
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: at least one positive amount is required", ErrInvalidWallet)
	}

	return &CustomWallet{
		ID:        "custom-" + uuid.New().String(),
		Name:      name,
		Amounts:   kept,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// CurrencyIDs returns the wallet's currency ids in sorted order.
func (w *CustomWallet) CurrencyIDs() []string {
	ids := make([]string, 0, len(w.Amounts))
	for id := range w.Amounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Accounts expands the wallet into synthetic accounts. The first resolvable
// currency carries the wallet id and later ones point at it as their parent,
// so they all group under the same wallet root.
func (w *CustomWallet) Accounts(resolve func(id string) (currency.Currency, bool)) []*Account {
	var out []*Account
	for _, id := range w.CurrencyIDs() {
		c, ok := resolve(id)
		if !ok {
			continue
		}
		decimals := c.Info().Decimals
		balance := w.Amounts[id].Shift(decimals).BigInt()

		a := &Account{
			ID:           w.ID + ":" + id,
			Name:         w.Name,
			CurrencyID:   id,
			Balance:      balance,
			Source:       SourceCustom,
			LastSyncDate: w.CreatedAt,
		}
		if len(out) == 0 {
			a.ID = w.ID
		} else {
			a.ParentAccountID = w.ID
		}
		out = append(out, a)
	}
	return out
}
