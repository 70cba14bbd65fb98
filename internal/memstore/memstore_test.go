package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/memstore"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

func seedAccount(db *memstore.DB) account.Account {
	a := account.Account{
		ID: uuid.New(), CustomerID: uuid.New(), StoreID: uuid.New(),
		CreditLimit: decimal.NewFromInt(100), CurrentBalance: decimal.NewFromInt(10), Active: true,
	}
	db.AddAccount(a)

	return a
}

func TestAccounts_CreateRejectsDuplicate(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	customerID, storeID := uuid.New(), uuid.New()

	db.AddUser(customerID, "Ana", "ana@example.com", guard.RoleCustomer)

	first := &account.Account{CustomerID: customerID, StoreID: storeID, Active: true}
	require.NoError(t, db.Accounts().CreateAccount(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.Equal(t, "Ana", first.CustomerName)

	err := db.Accounts().CreateAccount(ctx, &account.Account{CustomerID: customerID, StoreID: storeID})
	assert.ErrorIs(t, err, account.ErrAlreadyExists)
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	a := seedAccount(db)

	tx, err := db.Accounts().Begin(ctx)
	require.NoError(t, err)

	_, err = account.Charge(ctx, tx, a.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, "10", db.Balance(a.ID).String())
}

func TestTx_LockBlocksUntilCommit(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	a := seedAccount(db)

	first, err := db.Accounts().Begin(ctx)
	require.NoError(t, err)

	_, err = first.LockAccount(ctx, a.ID)
	require.NoError(t, err)

	got := make(chan decimal.Decimal)

	go func() {
		second, _ := db.Accounts().Begin(ctx)
		defer second.Rollback()

		acc, _ := second.LockAccount(ctx, a.ID)
		got <- acc.CurrentBalance
	}()

	select {
	case <-got:
		t.Fatal("second transaction acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, first.UpdateBalance(ctx, a.ID, decimal.NewFromInt(30)))
	require.NoError(t, first.Commit())

	assert.Equal(t, "30", (<-got).String())
}

func TestAccounts_DeleteCascades(t *testing.T) {
	db := memstore.New()
	ctx := context.Background()
	a := seedAccount(db)
	other := seedAccount(db)

	stx, err := db.Sales().Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, stx.CreateSale(ctx, &sale.Sale{StoreID: a.StoreID, AccountID: &a.ID, Type: sale.TypeCredit, State: sale.StatePending}))
	require.NoError(t, stx.CreateSale(ctx, &sale.Sale{StoreID: other.StoreID, AccountID: &other.ID, Type: sale.TypeCredit, State: sale.StatePending}))
	require.NoError(t, stx.Commit())

	ptx, err := db.Payments().Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, ptx.CreatePayment(ctx, &payment.Payment{StoreID: a.StoreID, AccountID: a.ID, State: payment.StatePending}))
	require.NoError(t, ptx.Commit())

	require.NoError(t, db.Accounts().DeleteAccount(ctx, a.ID))

	_, err = db.Accounts().GetAccount(ctx, a.ID)
	assert.ErrorIs(t, err, account.ErrNotFound)

	sales, err := db.Sales().ListSales(ctx, sale.ListFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, other.ID, *sales[0].AccountID)

	payments, err := db.Payments().ListPayments(ctx, payment.ListFilter{AccountID: &a.ID})
	require.NoError(t, err)
	assert.Empty(t, payments)

	assert.ErrorIs(t, db.Accounts().DeleteAccount(ctx, a.ID), account.ErrNotFound)
}
