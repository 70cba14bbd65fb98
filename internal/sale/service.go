package sale

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/catalog"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
	"github.com/MrJamesThe3rd/fiado/internal/notify"
)

const (
	maxObservations       = 500
	maxOccasionalCustomer = 100
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=sale
type Repository interface {
	// GetSale returns the sale with its items.
	GetSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]*Sale, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is one sale operation. Sale rows are locked before account rows.
type Tx interface {
	account.LockedTx

	GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
	CreateSale(ctx context.Context, s *Sale) error
	CreateItems(ctx context.Context, saleID uuid.UUID, items []Item) error
	LockSale(ctx context.Context, id uuid.UUID) (*Sale, error)
	// LockOpenSales locks every PENDING or PARTIAL sale of the customer in the store.
	LockOpenSales(ctx context.Context, storeID, customerID uuid.UUID) ([]*Sale, error)
	UpdateState(ctx context.Context, id uuid.UUID, state State) error

	Commit() error
	Rollback() error
}

type ListFilter struct {
	StoreID    *uuid.UUID
	AccountID  *uuid.UUID
	CustomerID *uuid.UUID
	State      *State
	Type       *Type
}

type Service struct {
	repo    Repository
	audit   audit.Recorder
	notify  *notify.Sender
	log     *zap.Logger
	metrics *metrics.Ledger
}

func NewService(repo Repository, rec audit.Recorder, n *notify.Sender, log *zap.Logger, m *metrics.Ledger) *Service {
	return &Service{repo: repo, audit: rec, notify: n, log: log, metrics: m}
}

type ItemParams struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateParams struct {
	StoreID            uuid.UUID
	Type               Type
	AccountID          *uuid.UUID
	OccasionalCustomer string
	Items              []ItemParams
	Observations       string
}

func (p *CreateParams) validate() error {
	if len(p.Items) == 0 {
		return &ValidationError{Field: "items", Message: "at least one item is required"}
	}

	for _, it := range p.Items {
		if it.Quantity < 1 {
			return &ValidationError{Field: "items.quantity", Message: "must be at least 1"}
		}
	}

	if utf8.RuneCountInString(p.Observations) > maxObservations {
		return &ValidationError{Field: "observations", Message: fmt.Sprintf("at most %d characters", maxObservations)}
	}

	p.OccasionalCustomer = strings.TrimSpace(p.OccasionalCustomer)
	if utf8.RuneCountInString(p.OccasionalCustomer) > maxOccasionalCustomer {
		return &ValidationError{Field: "occasionalCustomer", Message: fmt.Sprintf("at most %d characters", maxOccasionalCustomer)}
	}

	if p.AccountID != nil && p.OccasionalCustomer != "" {
		return &ValidationError{Field: "occasionalCustomer", Message: "cannot be combined with an account"}
	}

	switch p.Type {
	case TypeCredit:
		if p.AccountID == nil {
			return &ValidationError{Field: "accountId", Message: "credit sales require an account"}
		}
	case TypeCash:
		if p.AccountID == nil && p.OccasionalCustomer == "" {
			return &ValidationError{Field: "occasionalCustomer", Message: "cash sales need an account or a customer name"}
		}
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown sale type %q", p.Type)}
	}

	return nil
}

// Create registers a sale priced from the store's current catalog. Credit sales draw their total
// from the account in the same transaction that stores the sale.
func (s *Service) Create(ctx context.Context, id guard.Identity, params CreateParams) (*Sale, error) {
	if err := guard.RequireStaff(id, params.StoreID); err != nil {
		return nil, err
	}

	if err := params.validate(); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	items, total, err := priceItems(ctx, tx, params.StoreID, params.Items)
	if err != nil {
		return nil, err
	}

	sale := &Sale{
		StoreID:            params.StoreID,
		AccountID:          params.AccountID,
		OccasionalCustomer: params.OccasionalCustomer,
		OperatorID:         id.UserID,
		Type:               params.Type,
		State:              StatePaid,
		Subtotal:           total,
		Total:              total,
		Observations:       params.Observations,
	}

	var acc *account.Account

	if params.AccountID != nil {
		if acc, err = tx.LockAccount(ctx, *params.AccountID); err != nil {
			return nil, err
		}

		if acc.StoreID != params.StoreID {
			return nil, account.ErrNotFound
		}

		sale.CustomerID = &acc.CustomerID
	}

	if sale.Type == TypeCredit {
		sale.State = StatePending

		if err := account.ChargeLocked(ctx, tx, acc, total); err != nil {
			s.metrics.Rejected(account.RejectReason(err))
			return nil, err
		}
	}

	if err := tx.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}

	if err := tx.CreateItems(ctx, sale.ID, items); err != nil {
		return nil, fmt.Errorf("create items: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	for i := range items {
		items[i].SaleID = sale.ID
	}

	sale.Items = items

	if sale.Draws() {
		s.metrics.Charged(total)
	}

	s.metrics.Transition("sale", string(sale.State))
	s.record(ctx, id, sale, audit.TypeSaleRegistered,
		fmt.Sprintf("%s sale registered for %s", strings.ToLower(string(sale.Type)), total.StringFixed(2)), total)

	if acc != nil {
		s.notify.Send(ctx, receipt(sale, acc))
	}

	return sale, nil
}

func priceItems(ctx context.Context, tx Tx, storeID uuid.UUID, params []ItemParams) ([]Item, decimal.Decimal, error) {
	items := make([]Item, 0, len(params))
	total := decimal.Zero

	for _, p := range params {
		product, err := tx.GetProduct(ctx, p.ProductID)
		if err != nil {
			return nil, decimal.Zero, err
		}

		if err := product.Sellable(storeID); err != nil {
			return nil, decimal.Zero, err
		}

		subtotal := product.LineTotal(p.Quantity)
		items = append(items, Item{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    p.Quantity,
			UnitPrice:   product.UnitPrice,
			Subtotal:    subtotal,
		})
		total = total.Add(subtotal)
	}

	return items, total, nil
}

// Cancel voids a pending sale and gives a credit sale's total back to the account.
func (s *Service) Cancel(ctx context.Context, id guard.Identity, saleID uuid.UUID) (*Sale, error) {
	sale, err := s.transition(ctx, id, saleID, StateCancelled, false)
	if err != nil {
		return nil, err
	}

	s.record(ctx, id, sale, audit.TypeSaleCancelled,
		fmt.Sprintf("Sale cancelled, %s returned", sale.Total.StringFixed(2)), sale.Total)

	return sale, nil
}

// MarkPaid settles one sale. For credit sales the customer's payment is credited to the account.
// The account owner may settle their own sales.
func (s *Service) MarkPaid(ctx context.Context, id guard.Identity, saleID uuid.UUID) (*Sale, error) {
	sale, err := s.transition(ctx, id, saleID, StatePaid, true)
	if err != nil {
		return nil, err
	}

	s.record(ctx, id, sale, audit.TypeSalePaid,
		fmt.Sprintf("Sale paid for %s", sale.Total.StringFixed(2)), sale.Total)

	return sale, nil
}

func (s *Service) transition(ctx context.Context, id guard.Identity, saleID uuid.UUID, to State, allowOwner bool) (*Sale, error) {
	current, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	owner := current.CustomerID
	if !allowOwner {
		owner = nil
	}

	// Store and owner never change, so the check runs before any row lock is taken.
	if err := guard.RequireReader(id, current.StoreID, owner); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sale, err := tx.LockSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if !sale.State.CanTransitionTo(to) {
		return nil, &TransitionError{From: sale.State, To: to}
	}

	if sale.Draws() {
		if _, err := account.Credit(ctx, tx, *sale.AccountID, sale.Total); err != nil {
			s.metrics.Rejected(account.RejectReason(err))
			return nil, err
		}
	}

	if err := tx.UpdateState(ctx, sale.ID, to); err != nil {
		return nil, fmt.Errorf("update sale state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale: %w", err)
	}

	sale.State = to

	if sale.Draws() {
		s.metrics.Credited(sale.Total)
	}

	s.metrics.Transition("sale", string(to))

	return sale, nil
}

// MarkAllPaidForCustomer is the staff sweep over a customer's open sales. It changes sale states
// only and does not credit the account.
func (s *Service) MarkAllPaidForCustomer(ctx context.Context, id guard.Identity, storeID, customerID uuid.UUID) ([]*Sale, error) {
	if err := guard.RequireStaff(id, storeID); err != nil {
		return nil, err
	}

	sales, _, err := s.settleOpen(ctx, storeID, customerID, false)
	if err != nil {
		return nil, err
	}

	if len(sales) > 0 {
		s.recordBulk(ctx, id, storeID, customerID, sales, "marked paid by staff")
	}

	return sales, nil
}

// SettleMine lets a customer pay off all of their open sales in a store. Credit sales are
// credited to the account as one movement.
func (s *Service) SettleMine(ctx context.Context, id guard.Identity, storeID uuid.UUID) ([]*Sale, error) {
	sales, credited, err := s.settleOpen(ctx, storeID, id.UserID, true)
	if err != nil {
		return nil, err
	}

	if credited.IsPositive() {
		s.metrics.Credited(credited)
	}

	if len(sales) > 0 {
		s.recordBulk(ctx, id, storeID, id.UserID, sales, "paid by the customer")
	}

	return sales, nil
}

func (s *Service) settleOpen(ctx context.Context, storeID, customerID uuid.UUID, credit bool) ([]*Sale, decimal.Decimal, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sales, err := tx.LockOpenSales(ctx, storeID, customerID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	owed := make(map[uuid.UUID]decimal.Decimal)

	for _, sale := range sales {
		if sale.Draws() {
			owed[*sale.AccountID] = owed[*sale.AccountID].Add(sale.Total)
		}
	}

	credited := decimal.Zero

	if credit {
		for accountID, amount := range owed {
			if _, err := account.Credit(ctx, tx, accountID, amount); err != nil {
				s.metrics.Rejected(account.RejectReason(err))
				return nil, decimal.Zero, err
			}

			credited = credited.Add(amount)
		}
	}

	for _, sale := range sales {
		if err := tx.UpdateState(ctx, sale.ID, StatePaid); err != nil {
			return nil, decimal.Zero, fmt.Errorf("update sale state: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commit sales: %w", err)
	}

	for _, sale := range sales {
		sale.State = StatePaid
		s.metrics.Transition("sale", string(StatePaid))
	}

	return sales, credited, nil
}

func (s *Service) Get(ctx context.Context, id guard.Identity, saleID uuid.UUID) (*Sale, error) {
	sale, err := s.repo.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if err := guard.RequireReader(id, sale.StoreID, sale.CustomerID); err != nil {
		return nil, err
	}

	return sale, nil
}

// ListByStore lists a store's sales for staff.
func (s *Service) ListByStore(ctx context.Context, id guard.Identity, storeID uuid.UUID, filter ListFilter) ([]*Sale, error) {
	if err := guard.RequireStaff(id, storeID); err != nil {
		return nil, err
	}

	filter.StoreID = &storeID

	return s.repo.ListSales(ctx, filter)
}

// ListMine lists the caller's own sales, optionally narrowed to a store or state.
func (s *Service) ListMine(ctx context.Context, id guard.Identity, filter ListFilter) ([]*Sale, error) {
	filter.CustomerID = &id.UserID

	return s.repo.ListSales(ctx, filter)
}

func (s *Service) record(ctx context.Context, id guard.Identity, sale *Sale, typ audit.Type, desc string, amount decimal.Decimal) {
	s.audit.Record(ctx, &audit.Event{
		StoreID:        sale.StoreID,
		OperatorID:     id.UserID,
		CustomerID:     sale.CustomerID,
		Type:           typ,
		Description:    desc,
		Amount:         decimal.NewNullDecimal(amount),
		ReferenceID:    &sale.ID,
		ReferenceTable: audit.RefSales,
	})
}

func (s *Service) recordBulk(ctx context.Context, id guard.Identity, storeID, customerID uuid.UUID, sales []*Sale, how string) {
	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Total)
	}

	s.audit.Record(ctx, &audit.Event{
		StoreID:     storeID,
		OperatorID:  id.UserID,
		CustomerID:  &customerID,
		Type:        audit.TypeSalesBulkPaid,
		Description: fmt.Sprintf("%d sales %s", len(sales), how),
		Amount:      decimal.NewNullDecimal(total),
	})
}

func receipt(sale *Sale, acc *account.Account) notify.Request {
	vars := map[string]string{
		"customerName": acc.CustomerName,
		"saleId":       sale.ID.String(),
		"saleType":     string(sale.Type),
		"total":        sale.Total.StringFixed(2),
		"date":         sale.CreatedAt.Format(time.DateTime),
		"items":        fmt.Sprintf("%d", len(sale.Items)),
	}

	if sale.Type == TypeCredit {
		vars["balance"] = acc.CurrentBalance.StringFixed(2)
		vars["availableCredit"] = acc.AvailableCredit().StringFixed(2)
	}

	return notify.Request{
		Recipient:  acc.CustomerEmail,
		TemplateID: notify.TemplateSaleReceipt,
		Variables:  vars,
	}
}
