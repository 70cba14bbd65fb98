package guard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

func TestIdentity_Predicates(t *testing.T) {
	storeA, storeB := uuid.New(), uuid.New()
	userID := uuid.New()

	type want struct {
		admin    bool
		accessA  bool
		accessB  bool
		owner    bool
		hasStore bool
	}

	tests := []struct {
		name string
		id   guard.Identity
		want want
	}{
		{
			name: "TenantAdmin",
			id:   guard.Identity{UserID: userID, Roles: []guard.Role{guard.RoleAdmin}},
			want: want{admin: true, owner: true},
		},
		{
			name: "EmployeeOfA",
			id: guard.Identity{UserID: userID, Memberships: []guard.Membership{
				{StoreID: storeA, Role: guard.StoreRoleEmployee, Active: true},
			}},
			want: want{accessA: true, owner: true, hasStore: true},
		},
		{
			name: "InactiveManagerOfB",
			id: guard.Identity{UserID: userID, Memberships: []guard.Membership{
				{StoreID: storeB, Role: guard.StoreRoleManager, Active: false},
			}},
			want: want{owner: true},
		},
		{
			name: "Anonymous",
			id:   guard.Identity{},
			want: want{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.admin, tt.id.IsTenantAdmin())
			assert.Equal(t, tt.want.accessA, tt.id.HasStoreAccess(storeA))
			assert.Equal(t, tt.want.accessB, tt.id.HasStoreAccess(storeB))
			assert.Equal(t, tt.want.owner, tt.id.IsAccountOwner(userID))

			store, ok := tt.id.StaffStore()
			assert.Equal(t, tt.want.hasStore, ok)

			if ok {
				assert.Equal(t, storeA, store)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	storeID := uuid.New()
	customer := guard.Identity{UserID: uuid.New(), Roles: []guard.Role{guard.RoleCustomer}}
	staff := guard.Identity{UserID: uuid.New(), Memberships: []guard.Membership{
		{StoreID: storeID, Role: guard.StoreRoleManager, Active: true},
	}}
	admin := guard.Identity{UserID: uuid.New(), Roles: []guard.Role{guard.RoleAdmin}}
	other := uuid.New()

	assert.NoError(t, guard.RequireStaff(staff, storeID))
	assert.NoError(t, guard.RequireStaff(admin, storeID))
	assert.ErrorIs(t, guard.RequireStaff(customer, storeID), guard.ErrAccessDenied)
	assert.ErrorIs(t, guard.RequireStaff(staff, uuid.New()), guard.ErrAccessDenied)

	assert.NoError(t, guard.RequireReader(customer, storeID, &customer.UserID))
	assert.ErrorIs(t, guard.RequireReader(customer, storeID, &other), guard.ErrAccessDenied)
	assert.ErrorIs(t, guard.RequireReader(customer, storeID, nil), guard.ErrAccessDenied)
	assert.NoError(t, guard.RequireReader(staff, storeID, &other))

	assert.NoError(t, guard.RequireAdmin(admin))
	assert.ErrorIs(t, guard.RequireAdmin(staff), guard.ErrAccessDenied)
}

func TestResolver_Resolve(t *testing.T) {
	userID := uuid.New()
	storeID := uuid.New()

	type testCase struct {
		name      string
		setupMock func(m *guard.MockRepository)
		calls     int
		want      guard.Identity
		wantErr   error
	}

	tests := []testCase{
		{
			name: "LoadsOnceThenCaches",
			setupMock: func(m *guard.MockRepository) {
				m.EXPECT().GetRoles(gomock.Any(), userID).Return([]guard.Role{guard.RoleCustomer}, nil).Times(1)
				m.EXPECT().ListMemberships(gomock.Any(), userID).Return([]guard.Membership{
					{StoreID: storeID, Role: guard.StoreRoleEmployee, Active: true},
				}, nil).Times(1)
			},
			calls: 3,
			want: guard.Identity{
				UserID:      userID,
				Roles:       []guard.Role{guard.RoleCustomer},
				Memberships: []guard.Membership{{StoreID: storeID, Role: guard.StoreRoleEmployee, Active: true}},
			},
		},
		{
			name: "UnknownUser",
			setupMock: func(m *guard.MockRepository) {
				m.EXPECT().GetRoles(gomock.Any(), userID).Return(nil, guard.ErrUnknownUser)
			},
			calls:   1,
			wantErr: guard.ErrUnknownUser,
		},
		{
			name: "MembershipError",
			setupMock: func(m *guard.MockRepository) {
				m.EXPECT().GetRoles(gomock.Any(), userID).Return(nil, nil)
				m.EXPECT().ListMemberships(gomock.Any(), userID).Return(nil, errors.New("db down"))
			},
			calls:   1,
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := guard.NewMockRepository(ctrl)
			tt.setupMock(repo)

			r := guard.NewResolver(repo, time.Minute)

			for range tt.calls {
				got, err := r.Resolve(context.Background(), userID)
				if tt.wantErr != nil {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr.Error())

					continue
				}

				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestResolver_Forget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	repo := guard.NewMockRepository(ctrl)
	repo.EXPECT().GetRoles(gomock.Any(), userID).Return(nil, nil).Times(2)
	repo.EXPECT().ListMemberships(gomock.Any(), userID).Return(nil, nil).Times(2)

	r := guard.NewResolver(repo, time.Minute)

	_, err := r.Resolve(context.Background(), userID)
	require.NoError(t, err)

	r.Forget(userID)

	_, err = r.Resolve(context.Background(), userID)
	require.NoError(t, err)
}
