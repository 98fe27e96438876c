// Package erp defines the ERP-agnostic domain entities and the repository
// contracts every ERP adapter implements. Adapters translate native records
// into these types and keep ERP-specific fields in Metadata.
package erp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Metadata carries adapter-specific fields that have no normalized home.
type Metadata map[string]any

// String returns the value at key formatted as a string, or "" when absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmtAny(v)
}

// Customer is a normalized ERP customer record.
type Customer struct {
	Number            string   `json:"number"`
	Name              string   `json:"name"`
	GroupCode         string   `json:"group_code"`
	Street            string   `json:"street"`
	PostalCode        string   `json:"postal_code"`
	City              string   `json:"city"`
	Country           string   `json:"country"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	SalespersonNumber string   `json:"salesperson_number"`
	Active            bool     `json:"active"`
	Metadata          Metadata `json:"metadata,omitempty"`
}

// Person is an ERP user or contact, such as the salesperson owning an offer.
type Person struct {
	Number   string   `json:"number"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Phone    string   `json:"phone"`
	Role     string   `json:"role"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Product is a normalized catalog item.
type Product struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	GroupCode   string          `json:"group_code"`
	ListPrice   decimal.Decimal `json:"list_price"`
	Active      bool            `json:"active"`
	Metadata    Metadata        `json:"metadata,omitempty"`
}

// PaymentTerms describes a customer's agreed payment condition.
type PaymentTerms struct {
	Code        string `json:"code"`
	Days        int    `json:"days"`
	Description string `json:"description"`
}

// InvoicingDetails describes how a customer is invoiced.
type InvoicingDetails struct {
	Method   string   `json:"method"`
	Email    string   `json:"email"`
	Address  string   `json:"address"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Offer is a sales quote header with its lines.
type Offer struct {
	Number            string        `json:"number"`
	CustomerNumber    string        `json:"customer_number"`
	CustomerName      string        `json:"customer_name"`
	SalespersonNumber string        `json:"salesperson_number"`
	Reference         string        `json:"reference"`
	Date              time.Time     `json:"date"`
	PaymentTerms      *PaymentTerms `json:"payment_terms,omitempty"`
	Lines             []OfferLine   `json:"lines"`
	Metadata          Metadata      `json:"metadata,omitempty"`
}

// Total sums the line totals.
func (o Offer) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total)
	}
	return total
}

// OfferLine is one product row of an offer.
type OfferLine struct {
	Position        int             `json:"position"`
	ProductCode     string          `json:"product_code"`
	ProductName     string          `json:"product_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
	Metadata        Metadata        `json:"metadata,omitempty"`
}

// Verification is the ERP's view of a stored offer, used to confirm creation.
type Verification struct {
	Exists    bool            `json:"exists"`
	LineCount int             `json:"line_count"`
	Total     decimal.Decimal `json:"total"`
}

// Match pairs a resolved product with the requested quantity for pricing.
type Match struct {
	Term     string          `json:"term"`
	Product  Product         `json:"product"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Tier identifies the price-resolution precedence level that produced a price.
type Tier int

// Price tiers in precedence order.
const (
	TierCustomerGroupDiscount Tier = iota + 1
	TierNegotiatedPrice
	TierGeneralGroupDiscount
	TierListPrice
)

func (t Tier) String() string {
	switch t {
	case TierCustomerGroupDiscount:
		return "customer_product_group_discount"
	case TierNegotiatedPrice:
		return "customer_negotiated_price"
	case TierGeneralGroupDiscount:
		return "customer_group_general_discount"
	case TierListPrice:
		return "list_price"
	default:
		return "unknown"
	}
}

// PriceResolution is the outcome of pricing one matched line.
type PriceResolution struct {
	ProductCode     string          `json:"product_code"`
	Quantity        decimal.Decimal `json:"quantity"`
	ListPrice       decimal.Decimal `json:"list_price"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	LineTotal       decimal.Decimal `json:"line_total"`
	Tier            Tier            `json:"tier"`
	Source          string          `json:"source"`
	Fallback        bool            `json:"fallback"`
	Degraded        []Tier          `json:"degraded,omitempty"`
}
