package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(12,2).
const moneyPlaces = 2

// ValidAmount reports whether d is a positive amount in whole cents.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && inCents(d)
}

// ValidLimit reports whether d is a non-negative credit limit in whole cents.
func ValidLimit(d decimal.Decimal) bool {
	return !d.IsNegative() && inCents(d)
}

func inCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(moneyPlaces))
}

// Account is a customer's credit relationship with one store.
type Account struct {
	ID             uuid.UUID
	CustomerID     uuid.UUID
	StoreID        uuid.UUID
	CreditLimit    decimal.Decimal
	CurrentBalance decimal.Decimal // Amount currently owed
	Active         bool
	CustomerName   string // Loaded via JOIN
	CustomerEmail  string // Loaded via JOIN, empty when the customer has none
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// AvailableCredit may be negative after an administrator lowers the limit below the balance.
func (a *Account) AvailableCredit() decimal.Decimal {
	return a.CreditLimit.Sub(a.CurrentBalance)
}

func (a *Account) CanPurchase(amount decimal.Decimal) bool {
	return a.Active && a.AvailableCredit().GreaterThanOrEqual(amount)
}
