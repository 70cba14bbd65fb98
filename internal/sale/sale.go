package sale

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type decides whether a sale draws on the customer's credit. It never changes after creation.
type Type string

const (
	TypeCredit Type = "CREDIT"
	TypeCash   Type = "CASH"
)

// State represents the lifecycle state of a sale.
type State string

const (
	StatePending   State = "PENDING"
	StatePartial   State = "PARTIAL" // Reserved for installment payments, nothing sets it yet
	StatePaid      State = "PAID"
	StateCancelled State = "CANCELLED"
)

var transitions = map[State][]State{
	StatePending: {StatePaid, StateCancelled},
	StatePartial: {StatePaid},
}

func (s State) CanTransitionTo(to State) bool {
	return slices.Contains(transitions[s], to)
}

// Open reports whether the sale is still owed.
func (s State) Open() bool {
	return s == StatePending || s == StatePartial
}

// Item is a line item. Name and price are copied from the product when the sale is created.
type Item struct {
	ID          uuid.UUID
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

type Sale struct {
	ID                 uuid.UUID
	StoreID            uuid.UUID
	AccountID          *uuid.UUID
	CustomerID         *uuid.UUID // Loaded via JOIN on the account
	OccasionalCustomer string
	OperatorID         uuid.UUID
	Type               Type
	State              State
	Subtotal           decimal.Decimal
	Total              decimal.Decimal
	Observations       string
	Items              []Item
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// Draws reports whether the sale moved money on an account balance.
func (s *Sale) Draws() bool {
	return s.Type == TypeCredit && s.AccountID != nil
}
