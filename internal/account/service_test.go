package account_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

var (
	storeID    = uuid.New()
	otherStore = uuid.New()
	customerID = uuid.New()
	staff      = guard.Identity{
		UserID:      uuid.New(),
		Memberships: []guard.Membership{{StoreID: storeID, Role: guard.StoreRoleEmployee, Active: true}},
	}
	admin    = guard.Identity{UserID: uuid.New(), Roles: []guard.Role{guard.RoleAdmin}}
	owner    = guard.Identity{UserID: customerID, Roles: []guard.Role{guard.RoleCustomer}}
	stranger = guard.Identity{
		UserID:      uuid.New(),
		Memberships: []guard.Membership{{StoreID: otherStore, Role: guard.StoreRoleManager, Active: true}},
	}
)

type mocks struct {
	repo  *account.MockRepository
	tx    *account.MockTx
	audit *audit.MockRecorder
}

func newService(t *testing.T) (*account.Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		repo:  account.NewMockRepository(ctrl),
		tx:    account.NewMockTx(ctrl),
		audit: audit.NewMockRecorder(ctrl),
	}

	return account.NewService(m.repo, m.audit, zap.NewNop(), nil), m
}

func stored(balance, limit string) *account.Account {
	return &account.Account{
		ID:             uuid.New(),
		CustomerID:     customerID,
		StoreID:        storeID,
		CreditLimit:    dec(limit),
		CurrentBalance: dec(balance),
		Active:         true,
	}
}

func TestService_Open(t *testing.T) {
	type testCase struct {
		name      string
		id        guard.Identity
		limit     decimal.Decimal
		setupMock func(m mocks)
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "Success",
			id:    staff,
			limit: dec("100.00"),
			setupMock: func(m mocks) {
				m.repo.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *account.Account) error {
						assert.True(t, a.CurrentBalance.IsZero())
						assert.True(t, a.Active)
						a.ID = uuid.New()

						return nil
					})
				m.audit.EXPECT().Record(gomock.Any(), gomock.Any()).
					Do(func(_ context.Context, ev *audit.Event) {
						assert.Equal(t, audit.TypeAccountOpened, ev.Type)
						assert.Equal(t, audit.RefAccounts, ev.ReferenceTable)
						assert.Equal(t, customerID, *ev.CustomerID)
					})
			},
		},
		{
			name:    "NegativeLimit",
			id:      staff,
			limit:   dec("-1"),
			wantErr: account.ErrInvalidLimit,
		},
		{
			name:    "FractionalCentsLimit",
			id:      staff,
			limit:   dec("100.005"),
			wantErr: account.ErrInvalidLimit,
		},
		{
			name:    "OtherStoreStaff",
			id:      stranger,
			limit:   dec("100.00"),
			wantErr: guard.ErrAccessDenied,
		},
		{
			name:  "Duplicate",
			id:    staff,
			limit: dec("100.00"),
			setupMock: func(m mocks) {
				m.repo.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(account.ErrAlreadyExists)
			},
			wantErr: account.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			got, err := svc.Open(context.Background(), tt.id, account.OpenParams{
				StoreID: storeID, CustomerID: customerID, CreditLimit: tt.limit,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, storeID, got.StoreID)
		})
	}
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name    string
		id      guard.Identity
		wantErr error
	}{
		{name: "Staff", id: staff},
		{name: "Admin", id: admin},
		{name: "Owner", id: owner},
		{name: "OtherCustomer", id: guard.Identity{UserID: uuid.New()}, wantErr: guard.ErrAccessDenied},
		{name: "OtherStoreStaff", id: stranger, wantErr: guard.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			a := stored("10.00", "100.00")
			m.repo.EXPECT().GetAccount(gomock.Any(), a.ID).Return(a, nil)

			got, err := svc.Get(context.Background(), tt.id, a.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
		})
	}
}

func TestService_SetLimit(t *testing.T) {
	t.Run("BelowBalanceIsAllowed", func(t *testing.T) {
		svc, m := newService(t)
		a := stored("80.00", "100.00")

		m.repo.EXPECT().GetAccount(gomock.Any(), a.ID).Return(a, nil)
		m.repo.EXPECT().UpdateLimit(gomock.Any(), a.ID, amountOf("50.00")).Return(nil)
		m.audit.EXPECT().Record(gomock.Any(), gomock.Any()).
			Do(func(_ context.Context, ev *audit.Event) {
				assert.Equal(t, audit.TypeCreditLimitChanged, ev.Type)
				assert.Equal(t, "Credit limit changed from 100.00 to 50.00", ev.Description)
			})

		got, err := svc.SetLimit(context.Background(), staff, a.ID, dec("50.00"))
		require.NoError(t, err)
		assert.True(t, got.AvailableCredit().IsNegative())
		assert.False(t, got.CanPurchase(dec("0.01")))
	})

	t.Run("Negative", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.SetLimit(context.Background(), staff, uuid.New(), dec("-0.01"))
		assert.ErrorIs(t, err, account.ErrInvalidLimit)
	})

	t.Run("FractionalCents", func(t *testing.T) {
		svc, _ := newService(t)

		_, err := svc.SetLimit(context.Background(), staff, uuid.New(), dec("50.001"))
		assert.ErrorIs(t, err, account.ErrInvalidLimit)
	})

	t.Run("OwnerCannotChangeLimit", func(t *testing.T) {
		svc, m := newService(t)
		a := stored("0.00", "100.00")
		m.repo.EXPECT().GetAccount(gomock.Any(), a.ID).Return(a, nil)

		_, err := svc.SetLimit(context.Background(), owner, a.ID, dec("500.00"))
		assert.ErrorIs(t, err, guard.ErrAccessDenied)
	})
}

func TestService_SetActive(t *testing.T) {
	svc, m := newService(t)
	a := stored("0.00", "100.00")

	m.repo.EXPECT().GetAccount(gomock.Any(), a.ID).Return(a, nil)
	m.repo.EXPECT().UpdateActive(gomock.Any(), a.ID, false).Return(nil)
	m.audit.EXPECT().Record(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, ev *audit.Event) {
			assert.Equal(t, audit.TypeAccountStatusChanged, ev.Type)
			assert.Equal(t, "Account deactivated", ev.Description)
			assert.False(t, ev.Amount.Valid)
		})

	got, err := svc.SetActive(context.Background(), staff, a.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestService_Charge(t *testing.T) {
	type testCase struct {
		name        string
		balance     string
		amount      string
		setupTx     func(m mocks, a *account.Account)
		wantBalance string
		wantErr     error
	}

	tests := []testCase{
		{
			name:    "Success",
			balance: "0.00",
			amount:  "80.00",
			setupTx: func(m mocks, a *account.Account) {
				m.tx.EXPECT().UpdateBalance(gomock.Any(), a.ID, amountOf("80.00")).Return(nil)
				m.tx.EXPECT().Commit().Return(nil)
			},
			wantBalance: "80.00",
		},
		{
			name:    "InsufficientCredit",
			balance: "80.00",
			amount:  "30.00",
			wantErr: account.ErrInsufficientCredit,
		},
		{
			name:    "CommitFails",
			balance: "0.00",
			amount:  "10.00",
			setupTx: func(m mocks, a *account.Account) {
				m.tx.EXPECT().UpdateBalance(gomock.Any(), a.ID, gomock.Any()).Return(nil)
				m.tx.EXPECT().Commit().Return(errors.New("connection lost"))
			},
			wantErr: errors.New("connection lost"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			a := stored(tt.balance, "100.00")
			locked := *a

			m.repo.EXPECT().GetAccount(gomock.Any(), a.ID).Return(a, nil)
			m.repo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
			m.tx.EXPECT().LockAccount(gomock.Any(), a.ID).Return(&locked, nil)
			m.tx.EXPECT().Rollback().Return(nil)

			if tt.setupTx != nil {
				tt.setupTx(m, a)
			}

			got, err := svc.Charge(context.Background(), staff, a.ID, dec(tt.amount))

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, got.CurrentBalance.StringFixed(2))
		})
	}
}

func TestService_Delete(t *testing.T) {
	t.Run("AdminCascades", func(t *testing.T) {
		svc, m := newService(t)
		id := uuid.New()
		m.repo.EXPECT().DeleteAccount(gomock.Any(), id).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), admin, id))
	})

	t.Run("StaffDenied", func(t *testing.T) {
		svc, _ := newService(t)

		assert.ErrorIs(t, svc.Delete(context.Background(), staff, uuid.New()), guard.ErrAccessDenied)
	})
}

func TestService_Find(t *testing.T) {
	svc, m := newService(t)

	m.repo.EXPECT().ListAccounts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, f account.ListFilter) ([]*account.Account, error) {
			assert.Equal(t, storeID, *f.StoreID)
			assert.Equal(t, customerID, *f.CustomerID)

			return nil, nil
		})

	_, err := svc.Find(context.Background(), owner, storeID)
	assert.ErrorIs(t, err, account.ErrNotFound)
}
