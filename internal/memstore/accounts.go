package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

// Accounts implements account.Repository.
type Accounts struct {
	db *DB
}

func (db *DB) Accounts() *Accounts {
	return &Accounts{db: db}
}

func (r *Accounts) CreateAccount(_ context.Context, a *account.Account) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.accounts {
		if existing.CustomerID == a.CustomerID && existing.StoreID == a.StoreID {
			return account.ErrAlreadyExists
		}
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	a.CreatedAt = r.db.now()

	stored := *a
	stored.CustomerName, stored.CustomerEmail = "", ""
	r.db.accounts[a.ID] = stored

	u := r.db.users[a.CustomerID]
	a.CustomerName, a.CustomerEmail = u.name, u.email

	return nil
}

func (r *Accounts) GetAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}

	return r.db.withCustomer(a), nil
}

func (r *Accounts) ListAccounts(_ context.Context, filter account.ListFilter) ([]*account.Account, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*account.Account

	for _, id := range sortedIDs(r.db.accounts, func(a account.Account) time.Time { return a.CreatedAt }) {
		a := r.db.accounts[id]

		if filter.StoreID != nil && a.StoreID != *filter.StoreID {
			continue
		}

		if filter.CustomerID != nil && a.CustomerID != *filter.CustomerID {
			continue
		}

		if filter.Active != nil && a.Active != *filter.Active {
			continue
		}

		out = append(out, r.db.withCustomer(a))
	}

	return out, nil
}

func (r *Accounts) UpdateLimit(_ context.Context, id uuid.UUID, limit decimal.Decimal) error {
	return r.update(id, func(a *account.Account) { a.CreditLimit = limit })
}

func (r *Accounts) UpdateActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.update(id, func(a *account.Account) { a.Active = active })
}

func (r *Accounts) update(id uuid.UUID, fn func(a *account.Account)) error {
	l := r.db.rowLock(id)
	l.Lock()
	defer l.Unlock()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.accounts[id]
	if !ok {
		return account.ErrNotFound
	}

	now := r.db.now()
	fn(&a)
	a.UpdatedAt = &now
	r.db.accounts[id] = a

	return nil
}

// DeleteAccount removes the account, its sales (with their items) and its payments.
func (r *Accounts) DeleteAccount(_ context.Context, id uuid.UUID) error {
	l := r.db.rowLock(id)
	l.Lock()
	defer l.Unlock()

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.accounts[id]; !ok {
		return account.ErrNotFound
	}

	for saleID, s := range r.db.sales {
		if s.AccountID != nil && *s.AccountID == id {
			delete(r.db.sales, saleID)
		}
	}

	for paymentID, p := range r.db.payments {
		if p.AccountID == id {
			delete(r.db.payments, paymentID)
		}
	}

	delete(r.db.accounts, id)

	return nil
}

func (r *Accounts) Begin(_ context.Context) (account.Tx, error) {
	return r.db.begin(), nil
}

// AddAccount stores an account directly, bypassing onboarding.
func (db *DB) AddAccount(a account.Account) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = db.now()
	}

	db.accounts[a.ID] = a
}

// Members implements guard.Repository.
type Members struct {
	db *DB
}

func (db *DB) Members() *Members {
	return &Members{db: db}
}

func (r *Members) GetRoles(_ context.Context, userID uuid.UUID) ([]guard.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[userID]
	if !ok {
		return nil, guard.ErrUnknownUser
	}

	return append([]guard.Role(nil), u.roles...), nil
}

func (r *Members) ListMemberships(_ context.Context, userID uuid.UUID) ([]guard.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return append([]guard.Membership(nil), r.db.memberships[userID]...), nil
}
