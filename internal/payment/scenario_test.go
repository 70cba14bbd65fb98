package payment_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/memstore"
	"github.com/MrJamesThe3rd/fiado/internal/notify"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

type fixture struct {
	db      *memstore.DB
	svc     *payment.Service
	staff   guard.Identity
	owner   guard.Identity
	account account.Account
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()

	storeID := uuid.New()
	f := &fixture{
		db:    memstore.New(),
		staff: staffOf(storeID),
		owner: guard.Identity{UserID: uuid.New(), Roles: []guard.Role{guard.RoleCustomer}},
	}

	f.db.AddUser(f.owner.UserID, "Bruno", "", guard.RoleCustomer)

	f.account = account.Account{
		ID: uuid.New(), CustomerID: f.owner.UserID, StoreID: storeID,
		CreditLimit: dec("100.00"), CurrentBalance: dec(balance), Active: true,
	}
	f.db.AddAccount(f.account)

	trail := audit.NewTrail(f.db.Events(), zap.NewNop(), nil)
	sender := notify.NewSender(notify.NewLogNotifier(zap.NewNop()), zap.NewNop(), nil)
	f.svc = payment.NewService(f.db.Payments(), trail, sender, zap.NewNop(), nil)

	return f
}

func (f *fixture) balance() string {
	return f.db.Balance(f.account.ID).StringFixed(2)
}

func TestScenario_AppliedPayments(t *testing.T) {
	f := newFixture(t, "80.00")
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.staff, payment.CreateParams{
		AccountID:    f.account.ID,
		Amount:       dec("50.00"),
		InitialState: payment.StateApplied,
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StateApplied, p.State)
	assert.Equal(t, "30.00", f.balance())

	_, err = f.svc.Create(ctx, f.staff, payment.CreateParams{
		AccountID:    f.account.ID,
		Amount:       dec("50.00"),
		InitialState: payment.StateApplied,
	})
	assert.ErrorIs(t, err, account.ErrInsufficientBalance)
	assert.Equal(t, "30.00", f.balance())

	listed, err := f.svc.ListByStore(ctx, f.staff, f.account.StoreID, payment.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = f.svc.Reject(ctx, f.staff, p.ID)
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
}

func TestScenario_PendingPaymentLifecycle(t *testing.T) {
	f := newFixture(t, "80.00")
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.staff, payment.CreateParams{
		AccountID:    f.account.ID,
		Amount:       dec("40.00"),
		Method:       payment.MethodTransfer,
		InitialState: payment.StatePending,
	})
	require.NoError(t, err)
	assert.Equal(t, "80.00", f.balance())

	rejected, err := f.svc.Reject(ctx, f.staff, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateRejected, rejected.State)

	_, err = f.svc.Apply(ctx, f.staff, p.ID)
	assert.ErrorIs(t, err, payment.ErrInvalidTransition)
	assert.Equal(t, "80.00", f.balance())

	reopened, err := f.svc.Reopen(ctx, f.staff, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatePending, reopened.State)

	applied, err := f.svc.Apply(ctx, f.staff, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateApplied, applied.State)
	assert.Equal(t, "40.00", f.balance())

	stored, err := f.svc.Get(ctx, f.owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateApplied, stored.State)

	changes, err := f.db.Events().ListEvents(ctx, audit.ListFilter{StoreID: f.account.StoreID})
	require.NoError(t, err)
	assert.Len(t, changes, 4)
}

func TestScenario_CustomerReadsOwnPayments(t *testing.T) {
	f := newFixture(t, "80.00")
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.staff, payment.CreateParams{AccountID: f.account.ID, Amount: dec("10.00")})
	require.NoError(t, err)

	mine, err := f.svc.ListMine(ctx, f.owner, payment.ListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.ID, mine[0].ID)

	_, err = f.svc.Get(ctx, guard.Identity{UserID: uuid.New()}, p.ID)
	assert.ErrorIs(t, err, guard.ErrAccessDenied)

	_, err = f.svc.Reject(ctx, f.owner, p.ID)
	assert.ErrorIs(t, err, guard.ErrAccessDenied)
}

func TestScenario_InactiveAccountStillAcceptsPayments(t *testing.T) {
	f := newFixture(t, "25.00")
	ctx := context.Background()

	require.NoError(t, f.db.Accounts().UpdateActive(ctx, f.account.ID, false))

	_, err := f.svc.Create(ctx, f.staff, payment.CreateParams{AccountID: f.account.ID, Amount: dec("25.00")})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.balance())
}
