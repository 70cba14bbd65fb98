package payment

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Method string

const (
	MethodCash     Method = "CASH"
	MethodCard     Method = "CARD"
	MethodTransfer Method = "TRANSFER"
	MethodCheck    Method = "CHECK"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodCheck:
		return true
	}

	return false
}

// State represents the lifecycle state of a payment.
type State string

const (
	StatePending  State = "PENDING"
	StateApplied  State = "APPLIED"
	StateRejected State = "REJECTED"
)

// APPLIED has no outgoing transitions: an applied payment cannot be unapplied.
var transitions = map[State][]State{
	StatePending:  {StateApplied, StateRejected},
	StateRejected: {StatePending},
}

func (s State) CanTransitionTo(to State) bool {
	return slices.Contains(transitions[s], to)
}

// Payment is money received against an account balance, independent of any sale.
type Payment struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	AccountID    uuid.UUID
	CustomerID   uuid.UUID // Loaded via JOIN on the account
	OperatorID   uuid.UUID
	Amount       decimal.Decimal
	Method       Method
	Observations string
	State        State
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
