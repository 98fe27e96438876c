package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

// Line is one requested item carried through matching, pricing and offer
// building. Fallback lines carry the fallback product code.
type Line struct {
	Term      ProductTerm
	Candidate ProductCandidate
	Product   erp.Product
	Fallback  bool
}

// Context is the mutable state of one Process call. It is created when the
// call starts, owned by that call alone, and dropped once the result is built.
type Context struct {
	RequestID   string
	Email       EmailData
	Company     CompanyExtraction
	Customer    *erp.Customer
	Salesperson *erp.Person
	Terms       *erp.PaymentTerms
	Invoicing   *erp.InvoicingDetails
	Requested   []ProductTerm
	Lines       []Line
	Priced      []pricing.Resolution
	Offer       *erp.Offer
	OfferNumber string
	Step        string
	Errors      []string
	Warnings    []string
}

// Warn records a warning attributed to the current step.
func (c *Context) Warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, c.Step+": "+fmt.Sprintf(format, args...))
}

func (c *Context) fail(err error) {
	c.Errors = append(c.Errors, c.Step+": "+err.Error())
}

func (c *Context) total() decimal.Decimal {
	if c.Offer == nil {
		return decimal.Zero
	}
	return c.Offer.Total()
}

func (c *Context) customerName() string {
	if c.Customer == nil {
		return ""
	}
	return c.Customer.Name
}
