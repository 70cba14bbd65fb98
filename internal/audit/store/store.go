package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/audit"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectEventColumns = `
	id, store_id, operator_id, customer_id, type, description, amount,
	reference_id, reference_table, created_at
`

func scanEvent(s scanner) (*audit.Event, error) {
	var (
		ev       audit.Event
		typ      string
		refTable sql.NullString
	)

	if err := s.Scan(
		&ev.ID, &ev.StoreID, &ev.OperatorID, &ev.CustomerID, &typ, &ev.Description, &ev.Amount,
		&ev.ReferenceID, &refTable, &ev.CreatedAt,
	); err != nil {
		return nil, err
	}

	ev.Type = audit.Type(typ)
	ev.ReferenceTable = refTable.String

	return &ev, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev *audit.Event) error {
	query := `
		INSERT INTO store_events
			(store_id, operator_id, customer_id, type, description, amount, reference_id, reference_table, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`

	var refTable sql.NullString
	if ev.ReferenceTable != "" {
		refTable = sql.NullString{String: ev.ReferenceTable, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, query,
		ev.StoreID,
		ev.OperatorID,
		ev.CustomerID,
		ev.Type,
		ev.Description,
		ev.Amount,
		ev.ReferenceID,
		refTable,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}

	return nil
}

func (s *Store) ListEvents(ctx context.Context, filter audit.ListFilter) ([]*audit.Event, error) {
	query := `SELECT ` + selectEventColumns + ` FROM store_events WHERE store_id = $1`

	args := []any{filter.StoreID}
	argIdx := 2

	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argIdx)

		args = append(args, *filter.Type)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIdx)

		args = append(args, *filter.To)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*audit.Event

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

func (s *Store) Totals(ctx context.Context, storeID uuid.UUID, typ audit.Type, from, to time.Time) (audit.Total, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM store_events
		WHERE store_id = $1 AND type = $2 AND created_at >= $3 AND created_at < $4
	`

	var (
		t      audit.Total
		amount decimal.Decimal
	)

	if err := s.db.QueryRowContext(ctx, query, storeID, typ, from, to).Scan(&t.Count, &amount); err != nil {
		return audit.Total{}, fmt.Errorf("summing events: %w", err)
	}

	t.Amount = amount

	return t, nil
}
