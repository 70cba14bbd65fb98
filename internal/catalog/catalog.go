// Package catalog holds the product view the sale engine prices line items from. Products are
// managed elsewhere; this package only reads them.
package catalog

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInactiveProduct = errors.New("product is inactive")
)

type Product struct {
	ID        uuid.UUID
	StoreID   uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Active    bool
}

// Sellable reports whether the product can be sold by the store. Products of other stores are
// reported as not found.
func (p *Product) Sellable(storeID uuid.UUID) error {
	if p.StoreID != storeID {
		return ErrNotFound
	}

	if !p.Active {
		return ErrInactiveProduct
	}

	return nil
}

// LineTotal prices quantity units at the current unit price.
func (p *Product) LineTotal(quantity int) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
