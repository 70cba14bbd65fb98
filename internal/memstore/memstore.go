// Package memstore is an in-memory implementation of every repository, used by scenario and
// concurrency tests. Transactions hold per-row locks until they end and stage their writes,
// so it keeps the locking and all-or-nothing behavior of the Postgres stores.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/catalog"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

type user struct {
	name  string
	email string
	roles []guard.Role
}

type DB struct {
	mu          sync.Mutex
	users       map[uuid.UUID]user
	memberships map[uuid.UUID][]guard.Membership
	products    map[uuid.UUID]catalog.Product
	accounts    map[uuid.UUID]account.Account
	sales       map[uuid.UUID]sale.Sale
	payments    map[uuid.UUID]payment.Payment
	events      []audit.Event
	eventErr    error
	rows        map[uuid.UUID]*sync.Mutex
	now         func() time.Time
}

func New() *DB {
	return &DB{
		users:       make(map[uuid.UUID]user),
		memberships: make(map[uuid.UUID][]guard.Membership),
		products:    make(map[uuid.UUID]catalog.Product),
		accounts:    make(map[uuid.UUID]account.Account),
		sales:       make(map[uuid.UUID]sale.Sale),
		payments:    make(map[uuid.UUID]payment.Payment),
		rows:        make(map[uuid.UUID]*sync.Mutex),
		now:         time.Now,
	}
}

func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.now = now
}

func (db *DB) AddUser(id uuid.UUID, name, email string, roles ...guard.Role) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.users[id] = user{name: name, email: email, roles: roles}
}

func (db *DB) AddMembership(userID, storeID uuid.UUID, role guard.StoreRole) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.memberships[userID] = append(db.memberships[userID], guard.Membership{StoreID: storeID, Role: role, Active: true})
}

func (db *DB) AddProduct(p catalog.Product) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.products[p.ID] = p
}

// SetPrice changes a product's price, as the catalog administration would.
func (db *DB) SetPrice(productID uuid.UUID, price decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p := db.products[productID]
	p.UnitPrice = price
	db.products[productID] = p
}

// FailEvents makes every following event write fail with err. Pass nil to restore.
func (db *DB) FailEvents(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.eventErr = err
}

// Balance returns the committed balance of an account.
func (db *DB) Balance(accountID uuid.UUID) decimal.Decimal {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.accounts[accountID].CurrentBalance
}

// rowLock returns the lock of a row, creating it on first use.
func (db *DB) rowLock(id uuid.UUID) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()

	l, ok := db.rows[id]
	if !ok {
		l = &sync.Mutex{}
		db.rows[id] = l
	}

	return l
}

// withCustomer fills the JOINed customer fields. Callers hold db.mu.
func (db *DB) withCustomer(a account.Account) *account.Account {
	u := db.users[a.CustomerID]
	a.CustomerName = u.name
	a.CustomerEmail = u.email

	return &a
}

// saleView fills the JOINed customer id and copies items. Callers hold db.mu.
func (db *DB) saleView(s sale.Sale) *sale.Sale {
	if s.AccountID != nil {
		if a, ok := db.accounts[*s.AccountID]; ok {
			customerID := a.CustomerID
			s.CustomerID = &customerID
		}
	}

	s.Items = append([]sale.Item(nil), s.Items...)

	return &s
}

// tx is the shared part of the sale, payment and account transactions.
type tx struct {
	db       *DB
	held     []*sync.Mutex
	locked   map[uuid.UUID]bool
	accounts map[uuid.UUID]account.Account
	sales    map[uuid.UUID]sale.Sale
	payments map[uuid.UUID]payment.Payment
	done     bool
}

func (db *DB) begin() *tx {
	return &tx{
		db:       db,
		locked:   make(map[uuid.UUID]bool),
		accounts: make(map[uuid.UUID]account.Account),
		sales:    make(map[uuid.UUID]sale.Sale),
		payments: make(map[uuid.UUID]payment.Payment),
	}
}

// lock takes the row lock once per transaction.
func (t *tx) lock(id uuid.UUID) {
	if t.locked[id] {
		return
	}

	l := t.db.rowLock(id)
	l.Lock()

	t.held = append(t.held, l)
	t.locked[id] = true
}

func (t *tx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}

	t.held = nil
	t.done = true
}

func (t *tx) LockAccount(_ context.Context, id uuid.UUID) (*account.Account, error) {
	t.lock(id)

	if a, ok := t.accounts[id]; ok {
		return &a, nil
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	a, ok := t.db.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}

	view := t.db.withCustomer(a)
	t.accounts[id] = *view

	return view, nil
}

func (t *tx) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) error {
	a, ok := t.accounts[id]
	if !ok {
		return account.ErrNotFound
	}

	now := t.db.clock()
	a.CurrentBalance = balance
	a.UpdatedAt = &now
	t.accounts[id] = a

	return nil
}

func (db *DB) clock() time.Time {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.now()
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}

	t.db.mu.Lock()

	for id, a := range t.accounts {
		stored := t.db.accounts[id]
		stored.CurrentBalance = a.CurrentBalance
		stored.UpdatedAt = a.UpdatedAt
		t.db.accounts[id] = stored
	}

	for id, s := range t.sales {
		t.db.sales[id] = s
	}

	for id, p := range t.payments {
		t.db.payments[id] = p
	}

	t.db.mu.Unlock()
	t.release()

	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}

	t.release()

	return nil
}

func sortedIDs[T any](m map[uuid.UUID]T, created func(T) time.Time) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		ci, cj := created(m[ids[i]]), created(m[ids[j]])
		if ci.Equal(cj) {
			return ids[i].String() < ids[j].String()
		}

		return ci.After(cj)
	})

	return ids
}

var (
	_ account.Repository = (*Accounts)(nil)
	_ sale.Repository    = (*Sales)(nil)
	_ payment.Repository = (*Payments)(nil)
	_ audit.Repository   = (*Events)(nil)
	_ guard.Repository   = (*Members)(nil)
)
