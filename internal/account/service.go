package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=account
type Repository interface {
	CreateAccount(ctx context.Context, a *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	ListAccounts(ctx context.Context, filter ListFilter) ([]*Account, error)
	UpdateLimit(ctx context.Context, id uuid.UUID, limit decimal.Decimal) error
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) error
	// DeleteAccount removes the account together with its sales, sale items and payments.
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	Begin(ctx context.Context) (Tx, error)
}

type Tx interface {
	LockedTx
	Commit() error
	Rollback() error
}

type ListFilter struct {
	StoreID    *uuid.UUID
	CustomerID *uuid.UUID
	Active     *bool
}

type Service struct {
	repo    Repository
	audit   audit.Recorder
	log     *zap.Logger
	metrics *metrics.Ledger
}

func NewService(repo Repository, rec audit.Recorder, log *zap.Logger, m *metrics.Ledger) *Service {
	return &Service{repo: repo, audit: rec, log: log, metrics: m}
}

type OpenParams struct {
	StoreID     uuid.UUID
	CustomerID  uuid.UUID
	CreditLimit decimal.Decimal
}

// Open onboards a customer to a store with a zero balance.
func (s *Service) Open(ctx context.Context, id guard.Identity, params OpenParams) (*Account, error) {
	if err := guard.RequireStaff(id, params.StoreID); err != nil {
		return nil, err
	}

	if !ValidLimit(params.CreditLimit) {
		return nil, ErrInvalidLimit
	}

	a := &Account{
		CustomerID:     params.CustomerID,
		StoreID:        params.StoreID,
		CreditLimit:    params.CreditLimit,
		CurrentBalance: decimal.Zero,
		Active:         true,
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return nil, err
	}

	s.record(ctx, id, a, audit.TypeAccountOpened,
		fmt.Sprintf("Account opened with limit %s", a.CreditLimit.StringFixed(2)), &a.CreditLimit)

	return a, nil
}

func (s *Service) Get(ctx context.Context, id guard.Identity, accountID uuid.UUID) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := guard.RequireReader(id, a.StoreID, &a.CustomerID); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) ListByStore(ctx context.Context, id guard.Identity, storeID uuid.UUID) ([]*Account, error) {
	if err := guard.RequireStaff(id, storeID); err != nil {
		return nil, err
	}

	return s.repo.ListAccounts(ctx, ListFilter{StoreID: &storeID})
}

// ListMine returns the caller's own accounts across stores.
func (s *Service) ListMine(ctx context.Context, id guard.Identity) ([]*Account, error) {
	return s.repo.ListAccounts(ctx, ListFilter{CustomerID: &id.UserID})
}

// Find returns the caller's account in a store.
func (s *Service) Find(ctx context.Context, id guard.Identity, storeID uuid.UUID) (*Account, error) {
	accounts, err := s.repo.ListAccounts(ctx, ListFilter{StoreID: &storeID, CustomerID: &id.UserID})
	if err != nil {
		return nil, err
	}

	if len(accounts) == 0 {
		return nil, ErrNotFound
	}

	return accounts[0], nil
}

// SetLimit overrides the credit limit. The balance is not re-checked against it.
func (s *Service) SetLimit(ctx context.Context, id guard.Identity, accountID uuid.UUID, limit decimal.Decimal) (*Account, error) {
	if !ValidLimit(limit) {
		return nil, ErrInvalidLimit
	}

	a, err := s.staffAccount(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLimit(ctx, accountID, limit); err != nil {
		return nil, err
	}

	previous := a.CreditLimit
	a.CreditLimit = limit

	s.record(ctx, id, a, audit.TypeCreditLimitChanged,
		fmt.Sprintf("Credit limit changed from %s to %s", previous.StringFixed(2), limit.StringFixed(2)), &limit)

	return a, nil
}

func (s *Service) SetActive(ctx context.Context, id guard.Identity, accountID uuid.UUID, active bool) (*Account, error) {
	a, err := s.staffAccount(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateActive(ctx, accountID, active); err != nil {
		return nil, err
	}

	a.Active = active

	desc := "Account deactivated"
	if active {
		desc = "Account activated"
	}

	s.record(ctx, id, a, audit.TypeAccountStatusChanged, desc, nil)

	return a, nil
}

func (s *Service) CanPurchase(ctx context.Context, id guard.Identity, accountID uuid.UUID, amount decimal.Decimal) (bool, error) {
	a, err := s.Get(ctx, id, accountID)
	if err != nil {
		return false, err
	}

	return a.CanPurchase(amount), nil
}

// Charge draws amount from the account outside of a sale.
func (s *Service) Charge(ctx context.Context, id guard.Identity, accountID uuid.UUID, amount decimal.Decimal) (*Account, error) {
	a, err := s.mutate(ctx, id, accountID, func(tx Tx) (*Account, error) {
		return Charge(ctx, tx, accountID, amount)
	})
	if err != nil {
		s.metrics.Rejected(RejectReason(err))
		return nil, err
	}

	s.metrics.Charged(amount)

	return a, nil
}

// Credit pays down the account outside of a payment.
func (s *Service) Credit(ctx context.Context, id guard.Identity, accountID uuid.UUID, amount decimal.Decimal) (*Account, error) {
	a, err := s.mutate(ctx, id, accountID, func(tx Tx) (*Account, error) {
		return Credit(ctx, tx, accountID, amount)
	})
	if err != nil {
		s.metrics.Rejected(RejectReason(err))
		return nil, err
	}

	s.metrics.Credited(amount)

	return a, nil
}

// Delete removes an account and everything it owns. Tenant admins only.
func (s *Service) Delete(ctx context.Context, id guard.Identity, accountID uuid.UUID) error {
	if err := guard.RequireAdmin(id); err != nil {
		return err
	}

	return s.repo.DeleteAccount(ctx, accountID)
}

func (s *Service) mutate(ctx context.Context, id guard.Identity, accountID uuid.UUID, fn func(tx Tx) (*Account, error)) (*Account, error) {
	if _, err := s.staffAccount(ctx, id, accountID); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	a, err := fn(tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return a, nil
}

func (s *Service) staffAccount(ctx context.Context, id guard.Identity, accountID uuid.UUID) (*Account, error) {
	a, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := guard.RequireStaff(id, a.StoreID); err != nil {
		return nil, err
	}

	return a, nil
}

func (s *Service) record(ctx context.Context, id guard.Identity, a *Account, typ audit.Type, desc string, amount *decimal.Decimal) {
	ev := &audit.Event{
		StoreID:        a.StoreID,
		OperatorID:     id.UserID,
		CustomerID:     &a.CustomerID,
		Type:           typ,
		Description:    desc,
		ReferenceID:    &a.ID,
		ReferenceTable: audit.RefAccounts,
	}

	if amount != nil {
		ev.Amount = decimal.NewNullDecimal(*amount)
	}

	s.audit.Record(ctx, ev)
}
