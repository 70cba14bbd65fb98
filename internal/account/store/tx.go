package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
)

// Tx is a database transaction carrying the ledger operations. The sale and payment stores embed
// it so their transactions lock accounts the same way.
type Tx struct {
	*sql.Tx
}

func Begin(ctx context.Context, db *sql.DB) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{Tx: tx}, nil
}

// LockAccount takes the account row lock until the transaction ends.
func (t *Tx) LockAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + selectAccountColumns + fromAccounts + ` WHERE a.id = $1 FOR UPDATE OF a`

	a, err := scanAccount(t.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	return a, nil
}

func (t *Tx) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE customer_accounts SET current_balance = $1, updated_at = NOW() WHERE id = $2`

	if _, err := t.ExecContext(ctx, query, balance, id); err != nil {
		return fmt.Errorf("updating balance: %w", err)
	}

	return nil
}
