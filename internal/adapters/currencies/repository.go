package currencies

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"portfoliotracker/internal/domain/currency"
)

const (
	TypeNative = "native"
	TypeToken  = "token"
)

// Record is one entry of the currencies file.
type Record struct {
	Type          string `json:"type"`
	ID            string `json:"id"`
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	Decimals      int32  `json:"decimals"`
	Color         string `json:"color,omitempty"`
	Contract      string `json:"contract,omitempty"`
	ParentChainID string `json:"parentChainId,omitempty"`
}

// Repository loads the currency registry from a JSON file and implements
// currency.Repository. The file is read once; Reload picks up changes.
type Repository struct {
	mu         *sync.RWMutex
	path       string
	currencies []currency.Currency
}

func NewRepository(filePath string) (*Repository, error) {
	repo := &Repository{
		path: filePath,
		mu:   &sync.RWMutex{},
	}

	if err := repo.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load currencies: %w", err)
	}

	return repo, nil
}

func (r *Repository) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	list, err := Decode(data)
	if err != nil {
		return err
	}

	// validate before swapping so a bad file keeps the old set
	if _, err := currency.NewRegistry(list); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies = list

	return nil
}

func (r *Repository) List(_ context.Context) ([]currency.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]currency.Currency, len(r.currencies))
	copy(out, r.currencies)
	return out, nil
}

func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.currencies)
}

// Decode parses a currencies file body.
func Decode(data []byte) ([]currency.Currency, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	out := make([]currency.Currency, 0, len(records))
	for i, rec := range records {
		c, err := rec.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (rec Record) ToDomain() (currency.Currency, error) {
	meta := currency.Meta{
		ID:       rec.ID,
		Name:     rec.Name,
		Ticker:   rec.Ticker,
		Decimals: rec.Decimals,
		Color:    rec.Color,
	}

	switch rec.Type {
	case TypeNative:
		return currency.NativeCoin{Meta: meta}, nil
	case TypeToken:
		return currency.Token{Meta: meta, Contract: rec.Contract, ParentChainID: rec.ParentChainID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q for id=%s", currency.ErrInvalidCurrency, rec.Type, rec.ID)
	}
}

// FromDomain is the inverse of ToDomain.
func FromDomain(c currency.Currency) Record {
	meta := c.Info()
	rec := Record{
		ID:       meta.ID,
		Name:     meta.Name,
		Ticker:   meta.Ticker,
		Decimals: meta.Decimals,
		Color:    meta.Color,
	}

	switch v := c.(type) {
	case currency.NativeCoin:
		rec.Type = TypeNative
	case currency.Token:
		rec.Type = TypeToken
		rec.Contract = v.Contract
		rec.ParentChainID = v.ParentChainID
	}
	return rec
}
