package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type identifies the business event a ledger event records.
type Type string

const (
	TypeSaleRegistered       Type = "SALE_REGISTERED"
	TypeSaleCancelled        Type = "SALE_CANCELLED"
	TypeSalePaid             Type = "SALE_PAID"
	TypeSalesBulkPaid        Type = "SALES_BULK_PAID"
	TypePaymentRegistered    Type = "PAYMENT_REGISTERED"
	TypePaymentStateChanged  Type = "PAYMENT_STATE_CHANGED"
	TypeAccountOpened        Type = "ACCOUNT_OPENED"
	TypeCreditLimitChanged   Type = "CREDIT_LIMIT_CHANGED"
	TypeAccountStatusChanged Type = "ACCOUNT_STATUS_CHANGED"
	TypeManual               Type = "MANUAL"
)

// Tables an event can point back at.
const (
	RefSales    = "sales"
	RefPayments = "payments"
	RefAccounts = "customer_accounts"
)

// Event is an append-only record in a store's audit feed.
type Event struct {
	ID             uuid.UUID
	StoreID        uuid.UUID
	OperatorID     uuid.UUID
	CustomerID     *uuid.UUID
	Type           Type
	Description    string
	Amount         decimal.NullDecimal
	ReferenceID    *uuid.UUID
	ReferenceTable string
	CreatedAt      time.Time
}

//go:generate mockgen -source=audit.go -destination=recorder_mock.go -package=audit

// Recorder publishes events after the business transaction has committed. Implementations
// must not fail the caller.
type Recorder interface {
	Record(ctx context.Context, ev *Event)
}
