package memstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/audit"
)

// Events implements audit.Repository.
type Events struct {
	db *DB
}

func (db *DB) Events() *Events {
	return &Events{db: db}
}

func (r *Events) CreateEvent(_ context.Context, ev *audit.Event) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.eventErr != nil {
		return r.db.eventErr
	}

	ev.ID = uuid.New()
	ev.CreatedAt = r.db.now()
	r.db.events = append(r.db.events, *ev)

	return nil
}

// ListEvents returns the newest events first.
func (r *Events) ListEvents(_ context.Context, filter audit.ListFilter) ([]*audit.Event, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var matched []*audit.Event

	for i := len(r.db.events) - 1; i >= 0; i-- {
		ev := r.db.events[i]

		if ev.StoreID != filter.StoreID {
			continue
		}

		if filter.Type != nil && ev.Type != *filter.Type {
			continue
		}

		if filter.From != nil && ev.CreatedAt.Before(*filter.From) {
			continue
		}

		if filter.To != nil && !ev.CreatedAt.Before(*filter.To) {
			continue
		}

		matched = append(matched, &ev)
	}

	if filter.Offset >= len(matched) {
		return nil, nil
	}

	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (r *Events) Totals(_ context.Context, storeID uuid.UUID, typ audit.Type, from, to time.Time) (audit.Total, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t := audit.Total{Amount: decimal.Zero}

	for _, ev := range r.db.events {
		if ev.StoreID != storeID || ev.Type != typ || ev.CreatedAt.Before(from) || !ev.CreatedAt.Before(to) {
			continue
		}

		t.Count++

		if ev.Amount.Valid {
			t.Amount = t.Amount.Add(ev.Amount.Decimal)
		}
	}

	return t, nil
}
