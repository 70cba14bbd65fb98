package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
)

// Payments implements payment.Repository.
type Payments struct {
	db *DB
}

func (db *DB) Payments() *Payments {
	return &Payments{db: db}
}

func (r *Payments) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.db.Accounts().GetAccount(ctx, id)
}

func (r *Payments) GetPayment(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}

	return &p, nil
}

func (r *Payments) ListPayments(_ context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []*payment.Payment

	for _, id := range sortedIDs(r.db.payments, func(p payment.Payment) time.Time { return p.CreatedAt }) {
		p := r.db.payments[id]

		if filter.StoreID != nil && p.StoreID != *filter.StoreID {
			continue
		}

		if filter.AccountID != nil && p.AccountID != *filter.AccountID {
			continue
		}

		if filter.CustomerID != nil && p.CustomerID != *filter.CustomerID {
			continue
		}

		if filter.State != nil && p.State != *filter.State {
			continue
		}

		out = append(out, &p)
	}

	return out, nil
}

func (r *Payments) Begin(_ context.Context) (payment.Tx, error) {
	return &paymentTx{tx: r.db.begin()}, nil
}

type paymentTx struct {
	*tx
}

func (t *paymentTx) CreatePayment(_ context.Context, p *payment.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	p.CreatedAt = t.db.clock()
	t.payments[p.ID] = *p
	t.locked[p.ID] = true

	return nil
}

func (t *paymentTx) LockPayment(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	t.lock(id)

	if p, ok := t.payments[id]; ok {
		return &p, nil
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	p, ok := t.db.payments[id]
	if !ok {
		return nil, payment.ErrNotFound
	}

	t.payments[id] = p

	return &p, nil
}

func (t *paymentTx) UpdateState(_ context.Context, id uuid.UUID, state payment.State) error {
	p, ok := t.payments[id]
	if !ok {
		return payment.ErrNotFound
	}

	now := t.db.clock()
	p.State = state
	p.UpdatedAt = &now
	t.payments[id] = p

	return nil
}
