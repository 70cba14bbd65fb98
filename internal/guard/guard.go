// Package guard holds the acting identity and the tenant, store and ownership checks every
// ledger entry point runs before touching data. Identities are passed explicitly.
package guard

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var ErrAccessDenied = errors.New("access denied")

// Role is a global user role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// StoreRole is the role a user holds inside one store.
type StoreRole string

const (
	StoreRoleManager  StoreRole = "MANAGER"
	StoreRoleEmployee StoreRole = "EMPLOYEE"
)

type Membership struct {
	StoreID uuid.UUID
	Role    StoreRole
	Active  bool
}

// Identity is the caller an operation runs on behalf of.
type Identity struct {
	UserID      uuid.UUID
	Roles       []Role
	Memberships []Membership
}

func (i Identity) IsTenantAdmin() bool {
	return slices.Contains(i.Roles, RoleAdmin)
}

// HasStoreAccess reports an active staff membership in the store.
func (i Identity) HasStoreAccess(storeID uuid.UUID) bool {
	for _, m := range i.Memberships {
		if m.StoreID == storeID && m.Active && isStaff(m.Role) {
			return true
		}
	}

	return false
}

// IsAccountOwner reports whether the identity is the customer holding an account.
func (i Identity) IsAccountOwner(customerID uuid.UUID) bool {
	return i.UserID != uuid.Nil && i.UserID == customerID
}

// StaffStore returns the first store the identity actively works at.
func (i Identity) StaffStore() (uuid.UUID, bool) {
	for _, m := range i.Memberships {
		if m.Active && isStaff(m.Role) {
			return m.StoreID, true
		}
	}

	return uuid.Nil, false
}

func isStaff(r StoreRole) bool {
	return r == StoreRoleManager || r == StoreRoleEmployee
}

// RequireStaff allows tenant admins and active staff of the store.
func RequireStaff(id Identity, storeID uuid.UUID) error {
	if id.IsTenantAdmin() || id.HasStoreAccess(storeID) {
		return nil
	}

	return ErrAccessDenied
}

// RequireReader additionally allows the customer owning the record. ownerID is nil for records
// without an account, like occasional cash sales.
func RequireReader(id Identity, storeID uuid.UUID, ownerID *uuid.UUID) error {
	if ownerID != nil && id.IsAccountOwner(*ownerID) {
		return nil
	}

	return RequireStaff(id, storeID)
}

// RequireAdmin allows tenant admins only.
func RequireAdmin(id Identity) error {
	if id.IsTenantAdmin() {
		return nil
	}

	return ErrAccessDenied
}
