package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fiado/internal/catalog"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

// Sales implements sale.Repository.
type Sales struct {
	db *DB
}

func (db *DB) Sales() *Sales {
	return &Sales{db: db}
}

func (r *Sales) GetSale(_ context.Context, id uuid.UUID) (*sale.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sales[id]
	if !ok {
		return nil, sale.ErrNotFound
	}

	return r.db.saleView(s), nil
}

func (r *Sales) ListSales(_ context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*sale.Sale

	for _, id := range sortedIDs(r.db.sales, func(s sale.Sale) time.Time { return s.CreatedAt }) {
		s := r.db.saleView(r.db.sales[id])

		if filter.StoreID != nil && s.StoreID != *filter.StoreID {
			continue
		}

		if filter.AccountID != nil && (s.AccountID == nil || *s.AccountID != *filter.AccountID) {
			continue
		}

		if filter.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *filter.CustomerID) {
			continue
		}

		if filter.State != nil && s.State != *filter.State {
			continue
		}

		if filter.Type != nil && s.Type != *filter.Type {
			continue
		}

		out = append(out, s)
	}

	return out, nil
}

func (r *Sales) Begin(_ context.Context) (sale.Tx, error) {
	return &saleTx{tx: r.db.begin()}, nil
}

type saleTx struct {
	*tx
}

func (t *saleTx) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	p, ok := t.db.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}

	return &p, nil
}

func (t *saleTx) CreateSale(_ context.Context, s *sale.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	s.CreatedAt = t.db.clock()

	stored := *s
	stored.CustomerID = nil
	stored.Items = nil
	t.sales[s.ID] = stored
	t.locked[s.ID] = true

	return nil
}

func (t *saleTx) CreateItems(_ context.Context, saleID uuid.UUID, items []sale.Item) error {
	s, ok := t.sales[saleID]
	if !ok {
		return sale.ErrNotFound
	}

	for _, it := range items {
		it.ID = uuid.New()
		it.SaleID = saleID
		s.Items = append(s.Items, it)
	}

	t.sales[saleID] = s

	return nil
}

func (t *saleTx) LockSale(_ context.Context, id uuid.UUID) (*sale.Sale, error) {
	t.lock(id)

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	s, ok := t.sales[id]
	if !ok {
		if s, ok = t.db.sales[id]; !ok {
			return nil, sale.ErrNotFound
		}

		t.sales[id] = s
	}

	return t.db.saleView(s), nil
}

func (t *saleTx) LockOpenSales(ctx context.Context, storeID, customerID uuid.UUID) ([]*sale.Sale, error) {
	t.db.mu.Lock()

	var candidates []uuid.UUID

	for _, id := range sortedIDs(t.db.sales, func(s sale.Sale) time.Time { return s.CreatedAt }) {
		s := t.db.saleView(t.db.sales[id])
		if s.StoreID == storeID && s.CustomerID != nil && *s.CustomerID == customerID && s.State.Open() {
			candidates = append(candidates, id)
		}
	}

	t.db.mu.Unlock()

	var out []*sale.Sale

	for _, id := range candidates {
		s, err := t.LockSale(ctx, id)
		if err != nil {
			return nil, err
		}

		// Another transaction may have settled it while we waited for the lock.
		if s.State.Open() {
			out = append(out, s)
		}
	}

	return out, nil
}

func (t *saleTx) UpdateState(_ context.Context, id uuid.UUID, state sale.State) error {
	s, ok := t.sales[id]
	if !ok {
		return sale.ErrNotFound
	}

	now := t.db.clock()
	s.State = state
	s.UpdatedAt = &now
	t.sales[id] = s

	return nil
}
