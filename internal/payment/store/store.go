package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	accountstore "github.com/MrJamesThe3rd/fiado/internal/account/store"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

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

const selectPaymentColumns = `
	p.id, p.store_id, p.account_id, a.customer_id, p.operator_id, p.amount, p.method,
	p.observations, p.state, p.created_at, p.updated_at
`

const fromPayments = `
	FROM payments p
	JOIN customer_accounts a ON a.id = p.account_id
`

func scanPayment(s scanner) (*payment.Payment, error) {
	var (
		p             payment.Payment
		method, state string
	)

	if err := s.Scan(
		&p.ID, &p.StoreID, &p.AccountID, &p.CustomerID, &p.OperatorID, &p.Amount, &method,
		&p.Observations, &state, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Method = payment.Method(method)
	p.State = payment.State(state)

	return &p, nil
}

// GetAccount reads the account a payment would be registered against.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return accountstore.New(s.db).GetAccount(ctx, id)
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + selectPaymentColumns + fromPayments + ` WHERE p.id = $1`

	p, err := scanPayment(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("getting payment: %w", err)
	}

	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID != nil {
		add("p.store_id = $%d", *filter.StoreID)
	}

	if filter.AccountID != nil {
		add("p.account_id = $%d", *filter.AccountID)
	}

	if filter.CustomerID != nil {
		add("a.customer_id = $%d", *filter.CustomerID)
	}

	if filter.State != nil {
		add("p.state = $%d", *filter.State)
	}

	query := `SELECT ` + selectPaymentColumns + fromPayments
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY p.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment

	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}

		payments = append(payments, p)
	}

	return payments, rows.Err()
}

func (s *Store) Begin(ctx context.Context) (payment.Tx, error) {
	tx, err := accountstore.Begin(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &paymentTx{Tx: tx}, nil
}

type paymentTx struct {
	*accountstore.Tx
}

func (t *paymentTx) CreatePayment(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO payments (store_id, account_id, operator_id, amount, method, observations, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err := t.QueryRowContext(ctx, query,
		p.StoreID,
		p.AccountID,
		p.OperatorID,
		p.Amount,
		p.Method,
		p.Observations,
		p.State,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating payment: %w", err)
	}

	return nil
}

func (t *paymentTx) LockPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `SELECT ` + selectPaymentColumns + fromPayments + ` WHERE p.id = $1 FOR UPDATE OF p`

	p, err := scanPayment(t.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrNotFound
		}

		return nil, fmt.Errorf("locking payment: %w", err)
	}

	return p, nil
}

func (t *paymentTx) UpdateState(ctx context.Context, id uuid.UUID, state payment.State) error {
	query := `UPDATE payments SET state = $1, updated_at = NOW() WHERE id = $2`

	if _, err := t.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("updating payment state: %w", err)
	}

	return nil
}

var _ payment.Repository = (*Store)(nil)
