package payment

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/guard"
	"github.com/MrJamesThe3rd/fiado/internal/metrics"
	"github.com/MrJamesThe3rd/fiado/internal/notify"
)

const maxObservations = 500

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=payment
type Repository interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, filter ListFilter) ([]*Payment, error)

	Begin(ctx context.Context) (Tx, error)
}

// Tx is one payment operation. Payment rows are locked before account rows.
type Tx interface {
	account.LockedTx

	CreatePayment(ctx context.Context, p *Payment) error
	LockPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	UpdateState(ctx context.Context, id uuid.UUID, state State) error

	Commit() error
	Rollback() error
}

type ListFilter struct {
	StoreID    *uuid.UUID
	AccountID  *uuid.UUID
	CustomerID *uuid.UUID
	State      *State
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

type CreateParams struct {
	AccountID    uuid.UUID
	Amount       decimal.Decimal
	Method       Method // Defaults to MethodCash
	Observations string
	InitialState State // Defaults to StateApplied
}

func (p *CreateParams) validate() error {
	if !account.ValidAmount(p.Amount) {
		return account.ErrInvalidAmount
	}

	if p.Method == "" {
		p.Method = MethodCash
	}

	if !p.Method.Valid() {
		return &ValidationError{Field: "method", Message: fmt.Sprintf("unknown method %q", p.Method)}
	}

	if p.InitialState == "" {
		p.InitialState = StateApplied
	}

	if p.InitialState != StateApplied && p.InitialState != StatePending {
		return &ValidationError{Field: "initialState", Message: "must be APPLIED or PENDING"}
	}

	if utf8.RuneCountInString(p.Observations) > maxObservations {
		return &ValidationError{Field: "observations", Message: fmt.Sprintf("at most %d characters", maxObservations)}
	}

	return nil
}

// Create records a payment. An APPLIED payment credits the account in the same transaction.
func (s *Service) Create(ctx context.Context, id guard.Identity, params CreateParams) (*Payment, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	if err := guard.RequireStaff(id, current.StoreID); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	acc, err := tx.LockAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}

	p := &Payment{
		StoreID:      acc.StoreID,
		AccountID:    acc.ID,
		CustomerID:   acc.CustomerID,
		OperatorID:   id.UserID,
		Amount:       params.Amount,
		Method:       params.Method,
		Observations: params.Observations,
		State:        params.InitialState,
	}

	if p.State == StateApplied {
		if err := account.CreditLocked(ctx, tx, acc, p.Amount); err != nil {
			s.metrics.Rejected(account.RejectReason(err))
			return nil, err
		}
	}

	if err := tx.CreatePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	s.metrics.Transition("payment", string(p.State))

	if p.State == StateApplied {
		s.metrics.Credited(p.Amount)
		s.notify.Send(ctx, receipt(p, acc))
	}

	s.record(ctx, id, p, audit.TypePaymentRegistered,
		fmt.Sprintf("Payment of %s registered (%s, %s)", p.Amount.StringFixed(2), p.Method, p.State))

	return p, nil
}

// ChangeState moves a payment along its state machine. Entering APPLIED credits the account and
// sends the receipt.
func (s *Service) ChangeState(ctx context.Context, id guard.Identity, paymentID uuid.UUID, to State) (*Payment, error) {
	current, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	// Store membership is checked before any row lock is taken.
	if err := guard.RequireStaff(id, current.StoreID); err != nil {
		return nil, err
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	p, err := tx.LockPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	from := p.State
	if !from.CanTransitionTo(to) {
		return nil, &TransitionError{From: from, To: to}
	}

	var acc *account.Account

	if to == StateApplied {
		if acc, err = account.Credit(ctx, tx, p.AccountID, p.Amount); err != nil {
			s.metrics.Rejected(account.RejectReason(err))
			return nil, err
		}
	}

	if err := tx.UpdateState(ctx, p.ID, to); err != nil {
		return nil, fmt.Errorf("update payment state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	p.State = to
	s.metrics.Transition("payment", string(to))

	if acc != nil {
		s.metrics.Credited(p.Amount)
		s.notify.Send(ctx, receipt(p, acc))
	}

	s.record(ctx, id, p, audit.TypePaymentStateChanged,
		fmt.Sprintf("Payment of %s moved from %s to %s", p.Amount.StringFixed(2), from, to))

	return p, nil
}

func (s *Service) Apply(ctx context.Context, id guard.Identity, paymentID uuid.UUID) (*Payment, error) {
	return s.ChangeState(ctx, id, paymentID, StateApplied)
}

func (s *Service) Reject(ctx context.Context, id guard.Identity, paymentID uuid.UUID) (*Payment, error) {
	return s.ChangeState(ctx, id, paymentID, StateRejected)
}

// Reopen puts a rejected payment back to PENDING.
func (s *Service) Reopen(ctx context.Context, id guard.Identity, paymentID uuid.UUID) (*Payment, error) {
	return s.ChangeState(ctx, id, paymentID, StatePending)
}

func (s *Service) Get(ctx context.Context, id guard.Identity, paymentID uuid.UUID) (*Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if err := guard.RequireReader(id, p.StoreID, &p.CustomerID); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) ListByStore(ctx context.Context, id guard.Identity, storeID uuid.UUID, filter ListFilter) ([]*Payment, error) {
	if err := guard.RequireStaff(id, storeID); err != nil {
		return nil, err
	}

	filter.StoreID = &storeID

	return s.repo.ListPayments(ctx, filter)
}

func (s *Service) ListMine(ctx context.Context, id guard.Identity, filter ListFilter) ([]*Payment, error) {
	filter.CustomerID = &id.UserID

	return s.repo.ListPayments(ctx, filter)
}

func (s *Service) record(ctx context.Context, id guard.Identity, p *Payment, typ audit.Type, desc string) {
	s.audit.Record(ctx, &audit.Event{
		StoreID:        p.StoreID,
		OperatorID:     id.UserID,
		CustomerID:     &p.CustomerID,
		Type:           typ,
		Description:    desc,
		Amount:         decimal.NewNullDecimal(p.Amount),
		ReferenceID:    &p.ID,
		ReferenceTable: audit.RefPayments,
	})
}

func receipt(p *Payment, acc *account.Account) notify.Request {
	return notify.Request{
		Recipient:  acc.CustomerEmail,
		TemplateID: notify.TemplatePaymentReceipt,
		Variables: map[string]string{
			"customerName":    acc.CustomerName,
			"paymentId":       p.ID.String(),
			"amount":          p.Amount.StringFixed(2),
			"method":          string(p.Method),
			"date":            p.CreatedAt.Format(time.DateTime),
			"balance":         acc.CurrentBalance.StringFixed(2),
			"availableCredit": acc.AvailableCredit().StringFixed(2),
		},
	}
}
