package sale_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/catalog"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/notify"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// amountOf matches a decimal by value, ignoring its scale.
type amountOf string

func (m amountOf) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(dec(string(m)))
}

func (m amountOf) String() string {
	return "is amount " + string(m)
}

func staffOf(storeID uuid.UUID) guard.Identity {
	return guard.Identity{
		UserID:      uuid.New(),
		Memberships: []guard.Membership{{StoreID: storeID, Role: guard.StoreRoleEmployee, Active: true}},
	}
}

type mocks struct {
	repo     *sale.MockRepository
	tx       *sale.MockTx
	audit    *audit.MockRecorder
	notifier *notify.MockNotifier
}

func newService(t *testing.T) (*sale.Service, mocks) {
	ctrl := gomock.NewController(t)
	m := mocks{
		repo:     sale.NewMockRepository(ctrl),
		tx:       sale.NewMockTx(ctrl),
		audit:    audit.NewMockRecorder(ctrl),
		notifier: notify.NewMockNotifier(ctrl),
	}

	sender := notify.NewSender(m.notifier, zap.NewNop(), nil)

	return sale.NewService(m.repo, m.audit, sender, zap.NewNop(), nil), m
}

func TestService_Create_Validation(t *testing.T) {
	storeID := uuid.New()
	accountID := uuid.New()
	item := []sale.ItemParams{{ProductID: uuid.New(), Quantity: 1}}

	tests := []struct {
		name      string
		params    sale.CreateParams
		wantField string
	}{
		{
			name:      "NoItems",
			params:    sale.CreateParams{Type: sale.TypeCredit, AccountID: &accountID},
			wantField: "items",
		},
		{
			name: "ZeroQuantity",
			params: sale.CreateParams{
				Type: sale.TypeCredit, AccountID: &accountID,
				Items: []sale.ItemParams{{ProductID: uuid.New(), Quantity: 0}},
			},
			wantField: "items.quantity",
		},
		{
			name:      "CreditWithoutAccount",
			params:    sale.CreateParams{Type: sale.TypeCredit, Items: item},
			wantField: "accountId",
		},
		{
			name:      "CashWithoutCustomer",
			params:    sale.CreateParams{Type: sale.TypeCash, OccasionalCustomer: "   ", Items: item},
			wantField: "occasionalCustomer",
		},
		{
			name: "AccountAndOccasionalCustomer",
			params: sale.CreateParams{
				Type: sale.TypeCash, AccountID: &accountID, OccasionalCustomer: "Walk-in", Items: item,
			},
			wantField: "occasionalCustomer",
		},
		{
			name: "LongObservations",
			params: sale.CreateParams{
				Type: sale.TypeCash, OccasionalCustomer: "Walk-in", Items: item,
				Observations: strings.Repeat("x", 501),
			},
			wantField: "observations",
		},
		{
			name: "LongMultibyteOccasionalCustomer",
			params: sale.CreateParams{
				Type: sale.TypeCash, OccasionalCustomer: strings.Repeat("é", 101), Items: item,
			},
			wantField: "occasionalCustomer",
		},
		{
			name:      "UnknownType",
			params:    sale.CreateParams{Type: "BARTER", AccountID: &accountID, Items: item},
			wantField: "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			tt.params.StoreID = storeID

			_, err := svc.Create(context.Background(), staffOf(storeID), tt.params)

			var vErr *sale.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			assert.ErrorIs(t, err, sale.ErrInvalidRequest)
		})
	}
}

func TestService_Create_Denied(t *testing.T) {
	svc, _ := newService(t)
	accountID := uuid.New()

	_, err := svc.Create(context.Background(), staffOf(uuid.New()), sale.CreateParams{
		StoreID:   uuid.New(),
		Type:      sale.TypeCredit,
		AccountID: &accountID,
		Items:     []sale.ItemParams{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, guard.ErrAccessDenied)
}

func TestService_Create_MultibyteTextAtLimit(t *testing.T) {
	storeID := uuid.New()
	product := &catalog.Product{ID: uuid.New(), StoreID: storeID, Name: "Pão", UnitPrice: dec("0.50"), Active: true}
	customer := strings.Repeat("é", 100)
	observations := strings.Repeat("ç", 500)

	svc, m := newService(t)
	m.repo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Rollback().Return(nil)
	m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(product, nil)
	m.tx.EXPECT().CreateSale(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, s *sale.Sale) error {
			assert.Equal(t, customer, s.OccasionalCustomer)
			assert.Equal(t, observations, s.Observations)
			s.ID = uuid.New()

			return nil
		})
	m.tx.EXPECT().CreateItems(gomock.Any(), gomock.Any(), gomock.Len(1)).Return(nil)
	m.tx.EXPECT().Commit().Return(nil)
	m.audit.EXPECT().Record(gomock.Any(), gomock.Any())

	got, err := svc.Create(context.Background(), staffOf(storeID), sale.CreateParams{
		StoreID:            storeID,
		Type:               sale.TypeCash,
		OccasionalCustomer: customer,
		Observations:       observations,
		Items:              []sale.ItemParams{{ProductID: product.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, sale.StatePaid, got.State)
}

func TestService_Create_Credit(t *testing.T) {
	storeID := uuid.New()
	id := staffOf(storeID)
	product := &catalog.Product{ID: uuid.New(), StoreID: storeID, Name: "Rice 1kg", UnitPrice: dec("40.00"), Active: true}
	acc := &account.Account{
		ID: uuid.New(), CustomerID: uuid.New(), StoreID: storeID,
		CreditLimit: dec("100.00"), CurrentBalance: decimal.Zero, Active: true,
		CustomerName: "Ana", CustomerEmail: "ana@example.com",
	}

	type testCase struct {
		name      string
		setupMock func(m mocks)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m mocks) {
				m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(product, nil)
				locked := *acc
				m.tx.EXPECT().LockAccount(gomock.Any(), acc.ID).Return(&locked, nil)
				m.tx.EXPECT().UpdateBalance(gomock.Any(), acc.ID, amountOf("80.00")).Return(nil)
				m.tx.EXPECT().CreateSale(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, s *sale.Sale) error {
						assert.Equal(t, sale.StatePending, s.State)
						assert.True(t, s.Total.Equal(dec("80.00")))
						s.ID = uuid.New()

						return nil
					})
				m.tx.EXPECT().CreateItems(gomock.Any(), gomock.Any(), gomock.Len(1)).Return(nil)
				m.tx.EXPECT().Commit().Return(nil)
				m.audit.EXPECT().Record(gomock.Any(), gomock.Any()).
					Do(func(_ context.Context, ev *audit.Event) {
						assert.Equal(t, audit.TypeSaleRegistered, ev.Type)
						assert.Equal(t, "credit sale registered for 80.00", ev.Description)
					})
				m.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req notify.Request) error {
						assert.Equal(t, notify.TemplateSaleReceipt, req.TemplateID)
						assert.Equal(t, "ana@example.com", req.Recipient)
						assert.Equal(t, "80.00", req.Variables["balance"])
						assert.Equal(t, "20.00", req.Variables["availableCredit"])

						return errors.New("queue down")
					})
			},
		},
		{
			name: "InactiveProduct",
			setupMock: func(m mocks) {
				inactive := *product
				inactive.Active = false
				m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(&inactive, nil)
			},
			wantErr: catalog.ErrInactiveProduct,
		},
		{
			name: "ProductOfAnotherStore",
			setupMock: func(m mocks) {
				foreign := *product
				foreign.StoreID = uuid.New()
				m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(&foreign, nil)
			},
			wantErr: catalog.ErrNotFound,
		},
		{
			name: "AccountOfAnotherStore",
			setupMock: func(m mocks) {
				foreign := *acc
				foreign.StoreID = uuid.New()
				m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(product, nil)
				m.tx.EXPECT().LockAccount(gomock.Any(), acc.ID).Return(&foreign, nil)
			},
			wantErr: account.ErrNotFound,
		},
		{
			name: "InsufficientCredit",
			setupMock: func(m mocks) {
				owing := *acc
				owing.CurrentBalance = dec("30.00")
				m.tx.EXPECT().GetProduct(gomock.Any(), product.ID).Return(product, nil)
				m.tx.EXPECT().LockAccount(gomock.Any(), acc.ID).Return(&owing, nil)
			},
			wantErr: account.ErrInsufficientCredit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			m.repo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
			m.tx.EXPECT().Rollback().Return(nil)
			tt.setupMock(m)

			got, err := svc.Create(context.Background(), id, sale.CreateParams{
				StoreID:   storeID,
				Type:      sale.TypeCredit,
				AccountID: &acc.ID,
				Items:     []sale.ItemParams{{ProductID: product.ID, Quantity: 2}},
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.Len(t, got.Items, 1)
			assert.Equal(t, "Rice 1kg", got.Items[0].ProductName)
			assert.Equal(t, got.ID, got.Items[0].SaleID)
			assert.Equal(t, acc.CustomerID, *got.CustomerID)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	storeID := uuid.New()
	accountID := uuid.New()
	customerID := uuid.New()

	pending := func(typ sale.Type, state sale.State) *sale.Sale {
		s := &sale.Sale{
			ID: uuid.New(), StoreID: storeID, Type: typ, State: state, Total: dec("80.00"),
			CustomerID: &customerID,
		}
		if typ == sale.TypeCredit {
			s.AccountID = &accountID
		}

		return s
	}

	type testCase struct {
		name      string
		id        guard.Identity
		sale      *sale.Sale
		setupMock func(m mocks, s *sale.Sale)
		denied    bool
		wantErr   error
	}

	tests := []testCase{
		{
			name: "CreditReversesBalance",
			id:   staffOf(storeID),
			sale: pending(sale.TypeCredit, sale.StatePending),
			setupMock: func(m mocks, s *sale.Sale) {
				m.tx.EXPECT().LockAccount(gomock.Any(), accountID).Return(&account.Account{
					ID: accountID, StoreID: storeID, CreditLimit: dec("100.00"), CurrentBalance: dec("80.00"), Active: true,
				}, nil)
				m.tx.EXPECT().UpdateBalance(gomock.Any(), accountID, amountOf("0")).Return(nil)
				m.tx.EXPECT().UpdateState(gomock.Any(), s.ID, sale.StateCancelled).Return(nil)
				m.tx.EXPECT().Commit().Return(nil)
				m.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name: "CashHasNoLedgerEffect",
			id:   staffOf(storeID),
			sale: pending(sale.TypeCash, sale.StatePending),
			setupMock: func(m mocks, s *sale.Sale) {
				m.tx.EXPECT().UpdateState(gomock.Any(), s.ID, sale.StateCancelled).Return(nil)
				m.tx.EXPECT().Commit().Return(nil)
				m.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name:    "AlreadyPaid",
			id:      staffOf(storeID),
			sale:    pending(sale.TypeCredit, sale.StatePaid),
			wantErr: sale.ErrInvalidTransition,
		},
		{
			name:    "PartialCannotBeCancelled",
			id:      staffOf(storeID),
			sale:    pending(sale.TypeCredit, sale.StatePartial),
			wantErr: sale.ErrInvalidTransition,
		},
		{
			name:    "OwnerCannotCancel",
			id:      guard.Identity{UserID: customerID},
			sale:    pending(sale.TypeCredit, sale.StatePending),
			denied:  true,
			wantErr: guard.ErrAccessDenied,
		},
		{
			name:    "OtherStoreStaff",
			id:      staffOf(uuid.New()),
			sale:    pending(sale.TypeCredit, sale.StatePending),
			denied:  true,
			wantErr: guard.ErrAccessDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			current := *tt.sale
			m.repo.EXPECT().GetSale(gomock.Any(), tt.sale.ID).Return(&current, nil)

			// A denied caller never opens a transaction or locks the sale.
			if !tt.denied {
				m.repo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
				m.tx.EXPECT().Rollback().Return(nil)
				m.tx.EXPECT().LockSale(gomock.Any(), tt.sale.ID).Return(tt.sale, nil)
			}

			if tt.setupMock != nil {
				tt.setupMock(m, tt.sale)
			}

			got, err := svc.Cancel(context.Background(), tt.id, tt.sale.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, sale.StateCancelled, got.State)
		})
	}
}

func TestService_MarkPaid_ByOwner(t *testing.T) {
	storeID := uuid.New()
	accountID := uuid.New()
	customerID := uuid.New()
	s := &sale.Sale{
		ID: uuid.New(), StoreID: storeID, AccountID: &accountID, CustomerID: &customerID,
		Type: sale.TypeCredit, State: sale.StatePending, Total: dec("25.50"),
	}

	svc, m := newService(t)
	current := *s
	m.repo.EXPECT().GetSale(gomock.Any(), s.ID).Return(&current, nil)
	m.repo.EXPECT().Begin(gomock.Any()).Return(m.tx, nil)
	m.tx.EXPECT().Rollback().Return(nil)
	m.tx.EXPECT().LockSale(gomock.Any(), s.ID).Return(s, nil)
	m.tx.EXPECT().LockAccount(gomock.Any(), accountID).Return(&account.Account{
		ID: accountID, StoreID: storeID, CreditLimit: dec("100.00"), CurrentBalance: dec("30.00"), Active: true,
	}, nil)
	m.tx.EXPECT().UpdateBalance(gomock.Any(), accountID, amountOf("4.50")).Return(nil)
	m.tx.EXPECT().UpdateState(gomock.Any(), s.ID, sale.StatePaid).Return(nil)
	m.tx.EXPECT().Commit().Return(nil)
	m.audit.EXPECT().Record(gomock.Any(), gomock.Any()).
		Do(func(_ context.Context, ev *audit.Event) {
			assert.Equal(t, audit.TypeSalePaid, ev.Type)
			assert.Equal(t, customerID, ev.OperatorID)
		})

	got, err := svc.MarkPaid(context.Background(), guard.Identity{UserID: customerID}, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.StatePaid, got.State)
}

func TestService_Get(t *testing.T) {
	storeID := uuid.New()
	customerID := uuid.New()
	cash := &sale.Sale{ID: uuid.New(), StoreID: storeID, Type: sale.TypeCash, OccasionalCustomer: "Walk-in"}
	credit := &sale.Sale{ID: uuid.New(), StoreID: storeID, Type: sale.TypeCredit, CustomerID: &customerID}

	tests := []struct {
		name    string
		id      guard.Identity
		sale    *sale.Sale
		wantErr error
	}{
		{name: "StaffReadsCash", id: staffOf(storeID), sale: cash},
		{name: "OwnerReadsOwn", id: guard.Identity{UserID: customerID}, sale: credit},
		{name: "CustomerCannotReadCash", id: guard.Identity{UserID: customerID}, sale: cash, wantErr: guard.ErrAccessDenied},
		{name: "OtherStoreStaff", id: staffOf(uuid.New()), sale: credit, wantErr: guard.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			m.repo.EXPECT().GetSale(gomock.Any(), tt.sale.ID).Return(tt.sale, nil)

			got, err := svc.Get(context.Background(), tt.id, tt.sale.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.sale.ID, got.ID)
		})
	}
}

func TestState_Transitions(t *testing.T) {
	tests := []struct {
		from, to sale.State
		want     bool
	}{
		{sale.StatePending, sale.StatePaid, true},
		{sale.StatePending, sale.StateCancelled, true},
		{sale.StatePartial, sale.StatePaid, true},
		{sale.StatePartial, sale.StateCancelled, false},
		{sale.StatePaid, sale.StateCancelled, false},
		{sale.StatePaid, sale.StatePending, false},
		{sale.StateCancelled, sale.StatePaid, false},
		{sale.StatePending, sale.StatePartial, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}
