package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/fiado/internal/account"
	"github.com/MrJamesThe3rd/fiado/internal/audit"
	"github.com/MrJamesThe3rd/fiado/internal/payment"
	"github.com/MrJamesThe3rd/fiado/internal/sale"
)

type accountResponse struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	StoreID         uuid.UUID       `json:"store_id"`
	CreditLimit     decimal.Decimal `json:"credit_limit"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

func toAccountResponse(a *account.Account) accountResponse {
	return accountResponse{
		ID:              a.ID,
		CustomerID:      a.CustomerID,
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		StoreID:         a.StoreID,
		CreditLimit:     a.CreditLimit,
		CurrentBalance:  a.CurrentBalance,
		AvailableCredit: a.AvailableCredit(),
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type itemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type saleResponse struct {
	ID                 uuid.UUID       `json:"id"`
	StoreID            uuid.UUID       `json:"store_id"`
	AccountID          *uuid.UUID      `json:"account_id,omitempty"`
	CustomerID         *uuid.UUID      `json:"customer_id,omitempty"`
	OccasionalCustomer string          `json:"occasional_customer,omitempty"`
	OperatorID         uuid.UUID       `json:"operator_id"`
	Type               sale.Type       `json:"type"`
	State              sale.State      `json:"state"`
	Total              decimal.Decimal `json:"total"`
	Observations       string          `json:"observations,omitempty"`
	Items              []itemResponse  `json:"items,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          *time.Time      `json:"updated_at,omitempty"`
}

func toSaleResponse(s *sale.Sale) saleResponse {
	resp := saleResponse{
		ID:                 s.ID,
		StoreID:            s.StoreID,
		AccountID:          s.AccountID,
		CustomerID:         s.CustomerID,
		OccasionalCustomer: s.OccasionalCustomer,
		OperatorID:         s.OperatorID,
		Type:               s.Type,
		State:              s.State,
		Total:              s.Total,
		Observations:       s.Observations,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}

	for _, it := range s.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}

	return resp
}

type paymentResponse struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	AccountID    uuid.UUID       `json:"account_id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	OperatorID   uuid.UUID       `json:"operator_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       payment.Method  `json:"method"`
	State        payment.State   `json:"state"`
	Observations string          `json:"observations,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

func toPaymentResponse(p *payment.Payment) paymentResponse {
	return paymentResponse{
		ID:           p.ID,
		StoreID:      p.StoreID,
		AccountID:    p.AccountID,
		CustomerID:   p.CustomerID,
		OperatorID:   p.OperatorID,
		Amount:       p.Amount,
		Method:       p.Method,
		State:        p.State,
		Observations: p.Observations,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type eventResponse struct {
	ID             uuid.UUID        `json:"id"`
	Type           audit.Type       `json:"type"`
	Description    string           `json:"description"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	OperatorID     uuid.UUID        `json:"operator_id"`
	CustomerID     *uuid.UUID       `json:"customer_id,omitempty"`
	ReferenceID    *uuid.UUID       `json:"reference_id,omitempty"`
	ReferenceTable string           `json:"reference_table,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func toEventResponse(ev *audit.Event) eventResponse {
	resp := eventResponse{
		ID:             ev.ID,
		Type:           ev.Type,
		Description:    ev.Description,
		OperatorID:     ev.OperatorID,
		CustomerID:     ev.CustomerID,
		ReferenceID:    ev.ReferenceID,
		ReferenceTable: ev.ReferenceTable,
		CreatedAt:      ev.CreatedAt,
	}

	if ev.Amount.Valid {
		resp.Amount = &ev.Amount.Decimal
	}

	return resp
}

type totalResponse struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type summaryResponse struct {
	SalesToday    totalResponse `json:"sales_today"`
	SalesMonth    totalResponse `json:"sales_month"`
	PaymentsToday totalResponse `json:"payments_today"`
	PaymentsMonth totalResponse `json:"payments_month"`
}

func toSummaryResponse(s *audit.Summary) summaryResponse {
	conv := func(t audit.Total) totalResponse {
		return totalResponse{Count: t.Count, Amount: t.Amount}
	}

	return summaryResponse{
		SalesToday:    conv(s.SalesToday),
		SalesMonth:    conv(s.SalesMonth),
		PaymentsToday: conv(s.PaymentsToday),
		PaymentsMonth: conv(s.PaymentsMonth),
	}
}

// mapSlice converts every element with fn.
func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}

	return out
}
