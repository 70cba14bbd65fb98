package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LockedTx is the part of a storage transaction the ledger needs. LockAccount must hold an
// exclusive lock on the account until the transaction ends, so that every balance change on one
// account is serialized.
type LockedTx interface {
	LockAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error
}

// Charge checks and draws amount in one locked step: the account must be active and have
// enough available credit.
func Charge(ctx context.Context, tx LockedTx, id uuid.UUID, amount decimal.Decimal) (*Account, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	acc, err := tx.LockAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ChargeLocked(ctx, tx, acc, amount); err != nil {
		return nil, err
	}

	return acc, nil
}

// ChargeLocked is Charge for an account already locked by tx. acc is updated in place.
func ChargeLocked(ctx context.Context, tx LockedTx, acc *Account, amount decimal.Decimal) error {
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}

	if !acc.Active {
		return ErrInactive
	}

	if !acc.CanPurchase(amount) {
		return &InsufficientCreditError{Available: acc.AvailableCredit(), Requested: amount}
	}

	balance := acc.CurrentBalance.Add(amount)
	if err := tx.UpdateBalance(ctx, acc.ID, balance); err != nil {
		return fmt.Errorf("charging account: %w", err)
	}

	acc.CurrentBalance = balance

	return nil
}

// Credit lowers the balance. Inactive accounts can still be paid down.
func Credit(ctx context.Context, tx LockedTx, id uuid.UUID, amount decimal.Decimal) (*Account, error) {
	if !ValidAmount(amount) {
		return nil, ErrInvalidAmount
	}

	acc, err := tx.LockAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := CreditLocked(ctx, tx, acc, amount); err != nil {
		return nil, err
	}

	return acc, nil
}

// CreditLocked is Credit for an account already locked by tx. acc is updated in place.
func CreditLocked(ctx context.Context, tx LockedTx, acc *Account, amount decimal.Decimal) error {
	if !ValidAmount(amount) {
		return ErrInvalidAmount
	}

	if amount.GreaterThan(acc.CurrentBalance) {
		return ErrInsufficientBalance
	}

	balance := acc.CurrentBalance.Sub(amount)
	if err := tx.UpdateBalance(ctx, acc.ID, balance); err != nil {
		return fmt.Errorf("crediting account: %w", err)
	}

	acc.CurrentBalance = balance

	return nil
}
