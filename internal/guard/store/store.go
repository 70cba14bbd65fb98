package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/MrJamesThe3rd/fiado/internal/guard"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetRoles(ctx context.Context, userID uuid.UUID) ([]guard.Role, error) {
	var roles []string

	err := s.db.QueryRowContext(ctx, `SELECT roles FROM users WHERE id = $1`, userID).
		Scan(pgtype.NewMap().SQLScanner(&roles))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, guard.ErrUnknownUser
		}

		return nil, fmt.Errorf("getting roles: %w", err)
	}

	out := make([]guard.Role, len(roles))
	for i, r := range roles {
		out[i] = guard.Role(r)
	}

	return out, nil
}

func (s *Store) ListMemberships(ctx context.Context, userID uuid.UUID) ([]guard.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT store_id, role, active
		FROM store_members
		WHERE user_id = $1
		ORDER BY store_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var out []guard.Membership

	for rows.Next() {
		var (
			m    guard.Membership
			role string
		)

		if err := rows.Scan(&m.StoreID, &role, &m.Active); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}

		m.Role = guard.StoreRole(role)
		out = append(out, m)
	}

	return out, rows.Err()
}
