package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxDescription  = 500
)

var ErrInvalidEvent = errors.New("invalid event")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=audit
type Repository interface {
	CreateEvent(ctx context.Context, ev *Event) error
	ListEvents(ctx context.Context, filter ListFilter) ([]*Event, error)
	// Totals sums the events of one type created in [from, to).
	Totals(ctx context.Context, storeID uuid.UUID, typ Type, from, to time.Time) (Total, error)
}

type ListFilter struct {
	StoreID uuid.UUID
	Type    *Type
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type Total struct {
	Count  int
	Amount decimal.Decimal
}

// Summary is the store dashboard: sales and payments registered today and this month.
type Summary struct {
	SalesToday    Total
	SalesMonth    Total
	PaymentsToday Total
	PaymentsMonth Total
}

// Trail is the store audit feed. It implements Recorder.
type Trail struct {
	repo    Repository
	log     *zap.Logger
	metrics *metrics.Ledger
	now     func() time.Time
}

func NewTrail(repo Repository, log *zap.Logger, m *metrics.Ledger) *Trail {
	return &Trail{repo: repo, log: log, metrics: m, now: time.Now}
}

// Record writes ev and only logs on failure.
func (t *Trail) Record(ctx context.Context, ev *Event) {
	if err := t.repo.CreateEvent(ctx, ev); err != nil {
		t.metrics.SideEffectFailed("audit")
		t.log.Warn("failed to record store event",
			zap.String("type", string(ev.Type)),
			zap.Stringer("store_id", ev.StoreID),
			zap.Error(err),
		)
	}
}

type CreateParams struct {
	StoreID     uuid.UUID
	CustomerID  *uuid.UUID
	Description string
	Amount      *decimal.Decimal
}

// Create adds a manual entry to the feed. Unlike Record, failures surface to the caller.
func (t *Trail) Create(ctx context.Context, id guard.Identity, params CreateParams) (*Event, error) {
	if err := guard.RequireStaff(id, params.StoreID); err != nil {
		return nil, err
	}

	desc := strings.TrimSpace(params.Description)
	if desc == "" || utf8.RuneCountInString(desc) > maxDescription {
		return nil, fmt.Errorf("%w: description must be 1-%d characters", ErrInvalidEvent, maxDescription)
	}

	if params.Amount != nil && !params.Amount.Equal(params.Amount.Round(2)) {
		return nil, fmt.Errorf("%w: amount must have at most two decimals", ErrInvalidEvent)
	}

	ev := &Event{
		StoreID:     params.StoreID,
		OperatorID:  id.UserID,
		CustomerID:  params.CustomerID,
		Type:        TypeManual,
		Description: desc,
	}

	if params.Amount != nil {
		ev.Amount = decimal.NewNullDecimal(*params.Amount)
	}

	if err := t.repo.CreateEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}

	return ev, nil
}

func (t *Trail) List(ctx context.Context, id guard.Identity, filter ListFilter) ([]*Event, error) {
	if err := guard.RequireStaff(id, filter.StoreID); err != nil {
		return nil, err
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}

	filter.Limit = min(filter.Limit, maxPageSize)
	filter.Offset = max(filter.Offset, 0)

	return t.repo.ListEvents(ctx, filter)
}

func (t *Trail) Summary(ctx context.Context, id guard.Identity, storeID uuid.UUID) (*Summary, error) {
	if err := guard.RequireStaff(id, storeID); err != nil {
		return nil, err
	}

	now := t.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := dayStart.AddDate(0, 0, 1)

	var (
		s   Summary
		err error
	)

	windows := []struct {
		typ  Type
		from time.Time
		dst  *Total
	}{
		{TypeSaleRegistered, dayStart, &s.SalesToday},
		{TypeSaleRegistered, monthStart, &s.SalesMonth},
		{TypePaymentRegistered, dayStart, &s.PaymentsToday},
		{TypePaymentRegistered, monthStart, &s.PaymentsMonth},
	}

	for _, w := range windows {
		if *w.dst, err = t.repo.Totals(ctx, storeID, w.typ, w.from, end); err != nil {
			return nil, fmt.Errorf("summing %s: %w", w.typ, err)
		}
	}

	return &s, nil
}
