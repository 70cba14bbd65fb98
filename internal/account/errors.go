package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound            = errors.New("account not found")
	ErrAlreadyExists       = errors.New("customer already has an account in this store")
	ErrInvalidAmount       = errors.New("amount must be greater than zero with at most two decimals")
	ErrInvalidLimit        = errors.New("credit limit must be zero or more with at most two decimals")
	ErrInactive            = errors.New("account is inactive")
	ErrInsufficientCredit  = errors.New("insufficient credit")
	ErrInsufficientBalance = errors.New("amount exceeds the current balance")
)

// InsufficientCreditError reports how much credit was left when a charge was refused.
type InsufficientCreditError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: available %s, requested %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientCreditError) Is(target error) bool {
	return target == ErrInsufficientCredit
}

// RejectReason labels ledger rule violations for metrics. Other errors map to "".
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCredit):
		return "insufficient_credit"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrInactive):
		return "inactive_account"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	default:
		return ""
	}
}
