package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"portfoliotracker/internal/domain/account"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	parent_account_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	currency_id TEXT NOT NULL,
	balance TEXT NOT NULL,
	source TEXT NOT NULL,
	last_sync_date DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_wallets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_wallet_amounts (
	wallet_id TEXT NOT NULL,
	currency_id TEXT NOT NULL,
	amount TEXT NOT NULL,
	PRIMARY KEY (wallet_id, currency_id)
);

CREATE INDEX IF NOT EXISTS idx_accounts_source ON accounts(source);
`

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at dbPath (":memory:" works) and
// applies the schema.
func NewSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: sqlite has a single writer and :memory: is per connection
	db.SetMaxOpenConns(1)

	repo := &SQLiteRepository{db: db}
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*account.Account, error) {
	var a account.Account
	var balanceStr, source, syncStr string

	if err := s.Scan(&a.ID, &a.ParentAccountID, &a.Name, &a.Address, &a.CurrencyID, &balanceStr, &source, &syncStr); err != nil {
		return nil, err
	}

	balance, ok := new(big.Int).SetString(balanceStr, 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse balance: %s", balanceStr)
	}
	a.Balance = balance
	a.Source = account.Source(source)

	syncDate, err := parseTime(syncStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_sync_date: %w", err)
	}
	a.LastSyncDate = syncDate

	return &a, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Try parsing as datetime format if RFC3339 fails
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.UTC(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

const accountColumns = `id, parent_account_id, name, address, currency_id, balance, source, last_sync_date`

// ListAccounts returns accounts in insertion order.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*account.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id string) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: account_id=%s", account.ErrAccountNotFound, id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveAccount(ctx context.Context, db execer, a *account.Account) error {
	balance := "0"
	if a.Balance != nil {
		balance = a.Balance.String()
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_account_id = excluded.parent_account_id,
			name = excluded.name,
			address = excluded.address,
			currency_id = excluded.currency_id,
			balance = excluded.balance,
			source = excluded.source,
			last_sync_date = excluded.last_sync_date
	`
	_, err := db.ExecContext(ctx, query,
		a.ID,
		a.ParentAccountID,
		a.Name,
		a.Address,
		a.CurrencyID,
		balance,
		string(a.Source),
		formatTime(a.LastSyncDate),
	)
	return err
}

// SaveAccount inserts or updates an account. Updates keep the original position.
func (r *SQLiteRepository) SaveAccount(ctx context.Context, a *account.Account) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: id is required", account.ErrInvalidAccount)
	}
	if err := saveAccount(ctx, r.db, a); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: account_id=%s", account.ErrAccountNotFound, id)
	}

	return nil
}

func (r *SQLiteRepository) ReplaceLedgerAccounts(ctx context.Context, accounts []*account.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE source = ?`, string(account.SourceLedger)); err != nil {
		return fmt.Errorf("failed to clear ledger accounts: %w", err)
	}

	for _, a := range accounts {
		if a == nil || a.ID == "" {
			return fmt.Errorf("%w: id is required", account.ErrInvalidAccount)
		}
		stored := a.Clone()
		stored.Source = account.SourceLedger
		if err := saveAccount(ctx, tx, stored); err != nil {
			return fmt.Errorf("failed to save ledger account %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger accounts: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListCustomWallets(ctx context.Context) ([]*account.CustomWallet, error) {
	query := `
		SELECT w.id, w.name, w.created_at, a.currency_id, a.amount
		FROM custom_wallets w
		LEFT JOIN custom_wallet_amounts a ON a.wallet_id = w.id
		ORDER BY w.rowid ASC, a.currency_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom wallets: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*account.CustomWallet)
	wallets := make([]*account.CustomWallet, 0)

	for rows.Next() {
		var id, name, createdAtStr string
		var currencyID, amountStr sql.NullString

		if err := rows.Scan(&id, &name, &createdAtStr, &currencyID, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		w, exists := byID[id]
		if !exists {
			createdAt, err := parseTime(createdAtStr)
			if err != nil {
				return nil, fmt.Errorf("failed to parse wallet created_at: %w", err)
			}
			w = &account.CustomWallet{
				ID:        id,
				Name:      name,
				Amounts:   make(map[string]decimal.Decimal),
				CreatedAt: createdAt,
			}
			byID[id] = w
			wallets = append(wallets, w)
		}

		if currencyID.Valid {
			amount, err := decimal.NewFromString(amountStr.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse amount: %s", amountStr.String)
			}
			w.Amounts[currencyID.String] = amount
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return wallets, nil
}

func (r *SQLiteRepository) GetCustomWallet(ctx context.Context, id string) (*account.CustomWallet, error) {
	var w account.CustomWallet
	var createdAtStr string

	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM custom_wallets WHERE id = ?`, id).
		Scan(&w.ID, &w.Name, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: wallet_id=%s", account.ErrWalletNotFound, id)
		}
		return nil, fmt.Errorf("failed to get custom wallet: %w", err)
	}

	createdAt, err := parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	w.CreatedAt = createdAt
	w.Amounts = make(map[string]decimal.Decimal)

	rows, err := r.db.QueryContext(ctx, `SELECT currency_id, amount FROM custom_wallet_amounts WHERE wallet_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet amounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var currencyID, amountStr string
		if err := rows.Scan(&currencyID, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %s", amountStr)
		}
		w.Amounts[currencyID] = amount
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating amounts: %w", err)
	}

	return &w, nil
}

// SaveCustomWallet inserts or replaces a wallet and its amounts.
func (r *SQLiteRepository) SaveCustomWallet(ctx context.Context, w *account.CustomWallet) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("%w: id is required", account.ErrInvalidWallet)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO custom_wallets (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, w.ID, w.Name, formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save custom wallet: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_wallet_amounts WHERE wallet_id = ?`, w.ID); err != nil {
		return fmt.Errorf("failed to clear wallet amounts: %w", err)
	}

	for _, currencyID := range w.CurrencyIDs() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO custom_wallet_amounts (wallet_id, currency_id, amount) VALUES (?, ?, ?)`,
			w.ID, currencyID, w.Amounts[currencyID].String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save wallet amount: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit custom wallet: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCustomWallet(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM custom_wallets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete custom wallet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: wallet_id=%s", account.ErrWalletNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM custom_wallet_amounts WHERE wallet_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete wallet amounts: %w", err)
	}

	return tx.Commit()
}
