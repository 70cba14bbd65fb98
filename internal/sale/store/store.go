package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	accountstore "github.com/MrJamesThe3rd/fiado/internal/account/store"
	"github.com/MrJamesThe3rd/fiado/internal/catalog"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectSaleColumns = `
	s.id, s.store_id, s.account_id, a.customer_id, s.occasional_customer, s.operator_id,
	s.sale_type, s.state, s.subtotal, s.total, s.observations, s.created_at, s.updated_at
`

const fromSales = `
	FROM sales s
	LEFT JOIN customer_accounts a ON a.id = s.account_id
`

func scanSale(sc scanner) (*sale.Sale, error) {
	var (
		s          sale.Sale
		typ, state string
		occasional sql.NullString
	)

	if err := sc.Scan(
		&s.ID, &s.StoreID, &s.AccountID, &s.CustomerID, &occasional, &s.OperatorID,
		&typ, &state, &s.Subtotal, &s.Total, &s.Observations, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Type = sale.Type(typ)
	s.State = sale.State(state)
	s.OccasionalCustomer = occasional.String

	return &s, nil
}

func (s *Store) GetSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + fromSales + ` WHERE s.id = $1`

	sl, err := scanSale(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("getting sale: %w", err)
	}

	if sl.Items, err = listItems(ctx, s.db, sl.ID); err != nil {
		return nil, err
	}

	return sl, nil
}

// ListSales returns sales newest first, without their items.
func (s *Store) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StoreID != nil {
		add("s.store_id = $%d", *filter.StoreID)
	}

	if filter.AccountID != nil {
		add("s.account_id = $%d", *filter.AccountID)
	}

	if filter.CustomerID != nil {
		add("a.customer_id = $%d", *filter.CustomerID)
	}

	if filter.State != nil {
		add("s.state = $%d", *filter.State)
	}

	if filter.Type != nil {
		add("s.sale_type = $%d", *filter.Type)
	}

	query := `SELECT ` + selectSaleColumns + fromSales
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY s.created_at DESC"

	return querySales(ctx, s.db, query, args...)
}

func querySales(ctx context.Context, q querier, query string, args ...any) ([]*sale.Sale, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []*sale.Sale

	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}

		sales = append(sales, sl)
	}

	return sales, rows.Err()
}

func listItems(ctx context.Context, q querier, saleID uuid.UUID) ([]sale.Item, error) {
	query := `
		SELECT id, sale_id, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position
	`

	rows, err := q.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}
	defer rows.Close()

	var items []sale.Item

	for rows.Next() {
		var it sale.Item
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}

		items = append(items, it)
	}

	return items, rows.Err()
}

func (s *Store) Begin(ctx context.Context) (sale.Tx, error) {
	tx, err := accountstore.Begin(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &saleTx{Tx: tx}, nil
}

type saleTx struct {
	*accountstore.Tx
}

func (t *saleTx) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	query := `SELECT id, store_id, name, unit_price, active FROM products WHERE id = $1`

	var p catalog.Product

	err := t.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.StoreID, &p.Name, &p.UnitPrice, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	return &p, nil
}

func (t *saleTx) CreateSale(ctx context.Context, s *sale.Sale) error {
	query := `
		INSERT INTO sales
			(store_id, account_id, occasional_customer, operator_id, sale_type, state, subtotal, total, observations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`

	var occasional sql.NullString
	if s.AccountID == nil {
		occasional = sql.NullString{String: s.OccasionalCustomer, Valid: true}
	}

	err := t.QueryRowContext(ctx, query,
		s.StoreID,
		s.AccountID,
		occasional,
		s.OperatorID,
		s.Type,
		s.State,
		s.Subtotal,
		s.Total,
		s.Observations,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating sale: %w", err)
	}

	return nil
}

// CreateItems stores the items in order. Their IDs are filled in.
func (t *saleTx) CreateItems(ctx context.Context, saleID uuid.UUID, items []sale.Item) error {
	query := `
		INSERT INTO sale_items (sale_id, position, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	for i := range items {
		it := &items[i]

		err := t.QueryRowContext(ctx, query,
			saleID, i, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice, it.Subtotal,
		).Scan(&it.ID)
		if err != nil {
			return fmt.Errorf("creating sale item: %w", err)
		}
	}

	return nil
}

func (t *saleTx) LockSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + fromSales + ` WHERE s.id = $1 FOR UPDATE OF s`

	sl, err := scanSale(t.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sale.ErrNotFound
		}

		return nil, fmt.Errorf("locking sale: %w", err)
	}

	return sl, nil
}

func (t *saleTx) LockOpenSales(ctx context.Context, storeID, customerID uuid.UUID) ([]*sale.Sale, error) {
	query := `SELECT ` + selectSaleColumns + fromSales + `
		WHERE s.store_id = $1 AND a.customer_id = $2 AND s.state IN ($3, $4)
		ORDER BY s.created_at
		FOR UPDATE OF s`

	return querySales(ctx, t, query, storeID, customerID, sale.StatePending, sale.StatePartial)
}

func (t *saleTx) UpdateState(ctx context.Context, id uuid.UUID, state sale.State) error {
	query := `UPDATE sales SET state = $1, updated_at = NOW() WHERE id = $2`

	if _, err := t.ExecContext(ctx, query, state, id); err != nil {
		return fmt.Errorf("updating sale state: %w", err)
	}

	return nil
}

var _ sale.Repository = (*Store)(nil)
