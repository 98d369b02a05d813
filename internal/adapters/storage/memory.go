package storage

import (
	"context"
	"fmt"
	"sync"

	"portfoliotracker/internal/domain/account"

	"github.com/shopspring/decimal"
)

// MemoryRepository implements account.Repository using in-memory storage
type MemoryRepository struct {
	mu       *sync.RWMutex
	accounts map[string]*account.Account
	order    []string // account ids in insertion order
	wallets  map[string]*account.CustomWallet
	wOrder   []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		mu:       &sync.RWMutex{},
		accounts: make(map[string]*account.Account),
		order:    make([]string, 0),
		wallets:  make(map[string]*account.CustomWallet),
		wOrder:   make([]string, 0),
	}
}

func (r *MemoryRepository) ListAccounts(_ context.Context) ([]*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*account.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) GetAccount(_ context.Context, id string) (*account.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account_id=%s", account.ErrAccountNotFound, id)
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) SaveAccount(_ context.Context, a *account.Account) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: id is required", account.ErrInvalidAccount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.putAccount(a.Clone())
	return nil
}

func (r *MemoryRepository) putAccount(a *account.Account) {
	if _, exists := r.accounts[a.ID]; !exists {
		r.order = append(r.order, a.ID)
	}
	r.accounts[a.ID] = a
}

func (r *MemoryRepository) DeleteAccount(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return fmt.Errorf("%w: account_id=%s", account.ErrAccountNotFound, id)
	}
	delete(r.accounts, id)
	r.order = without(r.order, id)
	return nil
}

func (r *MemoryRepository) ReplaceLedgerAccounts(_ context.Context, accounts []*account.Account) error {
	for _, a := range accounts {
		if a == nil || a.ID == "" {
			return fmt.Errorf("%w: id is required", account.ErrInvalidAccount)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.order[:0:0]
	for _, id := range r.order {
		if r.accounts[id].Source == account.SourceLedger {
			delete(r.accounts, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept

	for _, a := range accounts {
		stored := a.Clone()
		stored.Source = account.SourceLedger
		r.putAccount(stored)
	}
	return nil
}

func (r *MemoryRepository) ListCustomWallets(_ context.Context) ([]*account.CustomWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*account.CustomWallet, 0, len(r.wOrder))
	for _, id := range r.wOrder {
		out = append(out, cloneWallet(r.wallets[id]))
	}
	return out, nil
}

func (r *MemoryRepository) GetCustomWallet(_ context.Context, id string) (*account.CustomWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.wallets[id]
	if !ok {
		return nil, fmt.Errorf("%w: wallet_id=%s", account.ErrWalletNotFound, id)
	}
	return cloneWallet(w), nil
}

func (r *MemoryRepository) SaveCustomWallet(_ context.Context, w *account.CustomWallet) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("%w: id is required", account.ErrInvalidWallet)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.wallets[w.ID]; !exists {
		r.wOrder = append(r.wOrder, w.ID)
	}
	r.wallets[w.ID] = cloneWallet(w)
	return nil
}

func (r *MemoryRepository) DeleteCustomWallet(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.wallets[id]; !ok {
		return fmt.Errorf("%w: wallet_id=%s", account.ErrWalletNotFound, id)
	}
	delete(r.wallets, id)
	r.wOrder = without(r.wOrder, id)
	return nil
}

func cloneWallet(w *account.CustomWallet) *account.CustomWallet {
	c := *w
	c.Amounts = make(map[string]decimal.Decimal, len(w.Amounts))
	for k, v := range w.Amounts {
		c.Amounts[k] = v
	}
	return &c
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
