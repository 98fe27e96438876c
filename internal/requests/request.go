// Package requests stores immutable snapshots of generated offers. A snapshot
// records what the automation produced so later human edits in the ERP can be
// compared against it.
package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

// Line is one automatically matched and priced offer line.
type Line struct {
	Position        int             `json:"position"`
	Term            string          `json:"term"`
	ProductCode     string          `json:"product_code"`
	ProductName     string          `json:"product_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Confidence      float64         `json:"confidence"`
	MatchMethod     string          `json:"match_method"`
	Fallback        bool            `json:"fallback"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Tier            string          `json:"tier"`
	DiscountSource  string          `json:"discount_source"`
}

// OfferRequest is the snapshot written once per successfully created offer.
type OfferRequest struct {
	ID             uuid.UUID               `json:"id"`
	OfferNumber    string                  `json:"offer_number"`
	EmailID        string                  `json:"email_id"`
	Sender         string                  `json:"sender"`
	Subject        string                  `json:"subject"`
	CompanyName    string                  `json:"company_name"`
	CustomerNumber string                  `json:"customer_number"`
	CustomerName   string                  `json:"customer_name"`
	Lines          []Line                  `json:"lines"`
	PricingSummary []pricing.MethodSummary `json:"pricing_summary"`
	TotalAmount    decimal.Decimal         `json:"total_amount"`
	CreatedAt      time.Time               `json:"created_at"`
}
