package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Discount is a percentage discount with the ERP discount code that granted it.
type Discount struct {
	Percent decimal.Decimal `json:"percent"`
	Code    string          `json:"code"`
}

// Price is a negotiated net unit price with its ERP agreement code.
type Price struct {
	Net  decimal.Decimal `json:"net"`
	Code string          `json:"code"`
}

// Source is the per-ERP pricing data the Resolver reads. Each lookup reports
// whether a record exists; an error means the backing store is unreachable.
type Source interface {
	// CustomerGroupDiscount returns the customer's discount for a product group.
	CustomerGroupDiscount(ctx context.Context, customerNumber, productGroup string) (Discount, bool, error)
	// NegotiatedPrice returns the customer's agreed net price for a product.
	NegotiatedPrice(ctx context.Context, customerNumber, productCode string) (Price, bool, error)
	// GroupDiscount returns the general discount a customer group gets on a product group.
	GroupDiscount(ctx context.Context, customerGroup, productGroup string) (Discount, bool, error)
}
