package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	loggeradapter "portfoliotracker/internal/adapters/logger"
	"portfoliotracker/internal/domain/account"
	"portfoliotracker/internal/domain/currency"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// Notifier is told whenever the portfolio inputs change.
type Notifier interface {
	Trigger()
}

type nopNotifier struct{}

func (nopNotifier) Trigger() {}

type SyncResult struct {
	Updated int
	Failed  int
	Skipped int
}

type Service struct {
	repo       account.Repository
	currencies currency.Repository
	readers    []account.BalanceReader
	notifier   Notifier
	now        func() time.Time
	logger     *loggeradapter.Logger
}

func NewService(
	repo account.Repository,
	currencies currency.Repository,
	readers []account.BalanceReader,
	notifier Notifier,
	logger *loggeradapter.Logger,
) *Service {
	if logger == nil {
		logger = loggeradapter.NewNopLogger()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		repo:       repo,
		currencies: currencies,
		readers:    readers,
		notifier:   notifier,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *Service) registry(ctx context.Context) (*currency.Registry, error) {
	list, err := s.currencies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list currencies: %w", err)
	}
	return currency.NewRegistry(list)
}

func (s *Service) ListCurrencies(ctx context.Context) ([]currency.Currency, error) {
	return s.currencies.List(ctx)
}

func (s *Service) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		s.logger.Error("Failed to list accounts", zap.Error(err))
		return nil, err
	}
	return accounts, nil
}

func (s *Service) ListCustomWallets(ctx context.Context) ([]*account.CustomWallet, error) {
	wallets, err := s.repo.ListCustomWallets(ctx)
	if err != nil {
		s.logger.Error("Failed to list custom wallets", zap.Error(err))
		return nil, err
	}
	return wallets, nil
}

// AddExternalWallet tracks an address the user entered by hand. Its balance
// is filled in by SyncBalances.
func (s *Service) AddExternalWallet(ctx context.Context, name, address, currencyID string) (*account.Account, error) {
	a, err := account.NewExternalAccount(name, address, currencyID)
	if err != nil {
		s.logger.Warn("Rejected external wallet", zap.Error(err))
		return nil, err
	}

	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := reg.Resolve(a.CurrencyID); !ok {
		s.logger.Warn("Rejected external wallet with unknown currency", zap.String("currency_id", a.CurrencyID))
		return nil, fmt.Errorf("%w: id=%s", ErrUnknownCurrency, a.CurrencyID)
	}

	existing, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if _, dup := lo.Find(existing, func(e *account.Account) bool {
		return e.Address != "" && strings.EqualFold(e.Address, a.Address)
	}); dup {
		s.logger.Warn("External wallet address already tracked", zap.String("address", a.Address))
		return nil, fmt.Errorf("%w: address=%s", account.ErrAccountExists, a.Address)
	}

	if err := s.repo.SaveAccount(ctx, a); err != nil {
		s.logger.Error("Failed to save external wallet", zap.String("address", a.Address), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Added external wallet", zap.String("id", a.ID), zap.String("currency_id", a.CurrencyID))
	s.notifier.Trigger()
	return a, nil
}

// AddCustomWallet stores a set of manually entered amounts. Non-positive
// amounts are dropped; every remaining currency must be known.
func (s *Service) AddCustomWallet(ctx context.Context, name string, amounts map[string]decimal.Decimal) (*account.CustomWallet, error) {
	w, err := account.NewCustomWallet(name, amounts)
	if err != nil {
		s.logger.Warn("Rejected custom wallet", zap.Error(err))
		return nil, err
	}

	reg, err := s.registry(ctx)
	if err != nil {
		return nil, err
	}
	unknown := lo.Filter(w.CurrencyIDs(), func(id string, _ int) bool {
		_, ok := reg.Resolve(id)
		return !ok
	})
	if len(unknown) > 0 {
		s.logger.Warn("Rejected custom wallet with unknown currencies", zap.Strings("currency_ids", unknown))
		return nil, fmt.Errorf("%w: ids=%s", ErrUnknownCurrency, strings.Join(unknown, ","))
	}

	if err := s.repo.SaveCustomWallet(ctx, w); err != nil {
		s.logger.Error("Failed to save custom wallet", zap.String("id", w.ID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Added custom wallet", zap.String("id", w.ID), zap.Int("currencies", len(w.Amounts)))
	s.notifier.Trigger()
	return w, nil
}

// ImportAccounts replaces the accounts supplied by the account source.
func (s *Service) ImportAccounts(ctx context.Context, accounts []*account.Account) error {
	imported := make([]*account.Account, 0, len(accounts))
	for _, a := range accounts {
		if a == nil || strings.TrimSpace(a.ID) == "" || a.CurrencyID == "" {
			return fmt.Errorf("%w: id and currency are required", account.ErrInvalidAccount)
		}
		c := a.Clone()
		if c.Balance == nil {
			c.Balance = big.NewInt(0)
		}
		if c.Balance.Sign() < 0 {
			return fmt.Errorf("%w: negative balance for id=%s", account.ErrInvalidAccount, c.ID)
		}
		if c.LastSyncDate.IsZero() {
			c.LastSyncDate = s.now().UTC()
		}
		c.Source = account.SourceLedger
		imported = append(imported, c)
	}

	if err := s.repo.ReplaceLedgerAccounts(ctx, imported); err != nil {
		s.logger.Error("Failed to import accounts", zap.Error(err))
		return err
	}

	s.logger.Info("Imported accounts", zap.Int("count", len(imported)))
	s.notifier.Trigger()
	return nil
}

// RenameWallet renames an account or a custom wallet.
func (s *Service) RenameWallet(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", account.ErrInvalidWallet)
	}

	a, err := s.repo.GetAccount(ctx, id)
	switch {
	case err == nil:
		a.Name = name
		if err := s.repo.SaveAccount(ctx, a); err != nil {
			return err
		}
	case errors.Is(err, account.ErrAccountNotFound):
		w, err := s.repo.GetCustomWallet(ctx, id)
		if err != nil {
			if errors.Is(err, account.ErrWalletNotFound) {
				return fmt.Errorf("%w: id=%s", account.ErrWalletNotFound, id)
			}
			return err
		}
		w.Name = name
		if err := s.repo.SaveCustomWallet(ctx, w); err != nil {
			return err
		}
	default:
		return err
	}

	s.logger.Info("Renamed wallet", zap.String("id", id))
	s.notifier.Trigger()
	return nil
}

// DeleteWallet removes an account or a custom wallet.
func (s *Service) DeleteWallet(ctx context.Context, id string) error {
	err := s.repo.DeleteAccount(ctx, id)
	if errors.Is(err, account.ErrAccountNotFound) {
		err = s.repo.DeleteCustomWallet(ctx, id)
	}
	if err != nil {
		if errors.Is(err, account.ErrWalletNotFound) {
			return fmt.Errorf("%w: id=%s", account.ErrWalletNotFound, id)
		}
		s.logger.Error("Failed to delete wallet", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("Deleted wallet", zap.String("id", id))
	s.notifier.Trigger()
	return nil
}

// SyncBalances refreshes the on-chain balance of every external account.
// Accounts without a supporting reader are skipped and per-account failures
// are logged, so one bad address never blocks the rest.
func (s *Service) SyncBalances(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	reg, err := s.registry(ctx)
	if err != nil {
		return res, err
	}
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return res, err
	}

	external := lo.Filter(accounts, func(a *account.Account, _ int) bool {
		return a.Source == account.SourceExternal
	})

	for _, a := range external {
		log := s.logger.WithFields(zap.String("account_id", a.ID), zap.String("currency_id", a.CurrencyID))

		c, ok := reg.Resolve(a.CurrencyID)
		if !ok {
			res.Skipped++
			log.Warn("Skipping balance sync for unknown currency")
			continue
		}
		reader, ok := lo.Find(s.readers, func(r account.BalanceReader) bool {
			return r.Supports(c)
		})
		if !ok {
			res.Skipped++
			log.Debug("No balance reader for currency")
			continue
		}

		balance, err := reader.Balance(ctx, a.Address, c)
		if err != nil {
			res.Failed++
			log.Warn("Failed to sync balance", zap.Error(err))
			continue
		}

		a.Balance = balance
		a.LastSyncDate = s.now().UTC()
		if err := s.repo.SaveAccount(ctx, a); err != nil {
			res.Failed++
			log.Error("Failed to save synced balance", zap.Error(err))
			continue
		}
		res.Updated++
	}

	s.logger.Info("Synced balances",
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
		zap.Int("skipped", res.Skipped),
	)
	if res.Updated > 0 {
		s.notifier.Trigger()
	}
	return res, nil
}
