package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectAccountColumns = `
	a.id, a.customer_id, a.store_id, a.credit_limit, a.current_balance, a.active,
	u.name, COALESCE(u.email, ''), a.created_at, a.updated_at
`

const fromAccounts = `
	FROM customer_accounts a
	JOIN users u ON u.id = a.customer_id
`

func scanAccount(s scanner) (*account.Account, error) {
	var a account.Account

	if err := s.Scan(
		&a.ID, &a.CustomerID, &a.StoreID, &a.CreditLimit, &a.CurrentBalance, &a.Active,
		&a.CustomerName, &a.CustomerEmail, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	query := `
		WITH inserted AS (
			INSERT INTO customer_accounts (customer_id, store_id, credit_limit, current_balance, active, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			RETURNING id, customer_id, created_at
		)
		SELECT i.id, i.created_at, u.name, COALESCE(u.email, '')
		FROM inserted i
		JOIN users u ON u.id = i.customer_id
	`

	err := s.db.QueryRowContext(ctx, query,
		a.CustomerID,
		a.StoreID,
		a.CreditLimit,
		a.CurrentBalance,
		a.Active,
	).Scan(&a.ID, &a.CreatedAt, &a.CustomerName, &a.CustomerEmail)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return account.ErrAlreadyExists
		}

		return fmt.Errorf("creating account: %w", err)
	}

	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + fromAccounts + ` WHERE a.id = $1`

	a, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("getting account: %w", err)
	}

	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context, filter account.ListFilter) ([]*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + fromAccounts + ` WHERE TRUE`

	var args []any

	argIdx := 1

	if filter.StoreID != nil {
		query += fmt.Sprintf(" AND a.store_id = $%d", argIdx)

		args = append(args, *filter.StoreID)
		argIdx++
	}

	if filter.CustomerID != nil {
		query += fmt.Sprintf(" AND a.customer_id = $%d", argIdx)

		args = append(args, *filter.CustomerID)
		argIdx++
	}

	if filter.Active != nil {
		query += fmt.Sprintf(" AND a.active = $%d", argIdx)

		args = append(args, *filter.Active)
	}

	query += " ORDER BY a.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func (s *Store) UpdateLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) error {
	query := `UPDATE customer_accounts SET credit_limit = $1, updated_at = NOW() WHERE id = $2`

	return s.updateOne(ctx, "updating credit limit", query, limit, id)
}

func (s *Store) UpdateActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE customer_accounts SET active = $1, updated_at = NOW() WHERE id = $2`

	return s.updateOne(ctx, "updating account status", query, active, id)
}

func (s *Store) updateOne(ctx context.Context, what, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	if n == 0 {
		return account.ErrNotFound
	}

	return nil
}

// DeleteAccount removes the account together with its sales, sale items and payments in one
// transaction. The account row is locked first so no sale or payment can slip in meanwhile.
func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID

	err = tx.QueryRowContext(ctx, `SELECT id FROM customer_accounts WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account.ErrNotFound
		}

		return fmt.Errorf("locking account: %w", err)
	}

	steps := []struct {
		what  string
		query string
	}{
		{"deleting sale items", `DELETE FROM sale_items WHERE sale_id IN (SELECT id FROM sales WHERE account_id = $1)`},
		{"deleting sales", `DELETE FROM sales WHERE account_id = $1`},
		{"deleting payments", `DELETE FROM payments WHERE account_id = $1`},
		{"deleting account", `DELETE FROM customer_accounts WHERE id = $1`},
	}

	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("%s: %w", step.what, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}

	return nil
}

func (s *Store) Begin(ctx context.Context) (account.Tx, error) {
	tx, err := Begin(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return tx, nil
}

var _ account.Repository = (*Store)(nil)
