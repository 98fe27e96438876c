package workflow

import (
	"context"
	"fmt"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// BuildOfferStep assembles the offer header and lines from the resolved
// customer, salesperson and priced lines. Payment terms and invoicing
// details are attached when the ERP has them.
func BuildOfferStep(rt *Runtime) Step {
	return Step{
		Name:     StepBuildOffer,
		Critical: true,
		Run: func(ctx context.Context, wc *Context) error {
			if wc.Customer == nil {
				return fmt.Errorf("%w: no customer", ErrOfferBuildFailed)
			}
			if len(wc.Lines) == 0 || len(wc.Priced) != len(wc.Lines) {
				return fmt.Errorf("%w: %d lines, %d priced", ErrOfferBuildFailed, len(wc.Lines), len(wc.Priced))
			}

			offer := erp.Offer{
				CustomerNumber: wc.Customer.Number,
				CustomerName:   wc.Customer.Name,
				Reference:      wc.Email.Subject,
				Date:           wc.Email.Date,
				Metadata: erp.Metadata{
					"request_id": wc.RequestID,
					"email_id":   wc.Email.ID,
					"sender":     wc.Email.Sender,
				},
			}
			if wc.Salesperson != nil {
				offer.SalespersonNumber = wc.Salesperson.Number
			}

			customers := rt.ERP.Customers
			if terms, err := customers.PaymentTerms(ctx, wc.Customer.Number); err != nil {
				wc.Warn("payment terms unavailable: %v", err)
			} else if terms != nil {
				wc.Terms = terms
				offer.PaymentTerms = terms
			}
			if inv, err := customers.InvoicingDetails(ctx, wc.Customer.Number); err != nil {
				wc.Warn("invoicing details unavailable: %v", err)
			} else if inv != nil {
				wc.Invoicing = inv
				offer.Metadata["invoicing_method"] = inv.Method
				if inv.Email != "" {
					offer.Metadata["invoicing_email"] = inv.Email
				}
			}

			offer.Lines = make([]erp.OfferLine, len(wc.Lines))
			for i, l := range wc.Lines {
				p := wc.Priced[i]
				name := l.Product.Name
				if name == "" {
					name = l.Term.Term
				}
				offer.Lines[i] = erp.OfferLine{
					Position:        i + 1,
					ProductCode:     l.Product.Code,
					ProductName:     name,
					Quantity:        l.Term.Quantity,
					UnitPrice:       p.UnitPrice,
					DiscountPercent: p.DiscountPercent,
					Total:           p.LineTotal,
					Metadata: erp.Metadata{
						"term":            l.Term.Term,
						"match_method":    l.Candidate.MatchMethod,
						"confidence":      l.Candidate.Confidence,
						"tier":            p.Tier.String(),
						"discount_source": p.Source,
						"fallback":        l.Fallback,
					},
				}
			}

			wc.Offer = &offer
			return nil
		},
	}
}

// CreateOfferStep stores the offer header and then each line.
func CreateOfferStep(rt *Runtime) Step {
	return Step{
		Name:     StepCreateOffer,
		Critical: true,
		Run: func(ctx context.Context, wc *Context) error {
			if wc.Offer == nil {
				return fmt.Errorf("%w: nothing built", ErrOfferCreationFailed)
			}

			header := *wc.Offer
			header.Lines = nil

			number, err := rt.ERP.Offers.Create(ctx, header)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrOfferCreationFailed, err)
			}
			wc.OfferNumber = number
			wc.Offer.Number = number

			for _, line := range wc.Offer.Lines {
				if err := rt.ERP.Offers.AddLine(ctx, number, line); err != nil {
					return fmt.Errorf("%w: offer %s line %d: %w", ErrOfferCreationFailed, number, line.Position, err)
				}
			}
			return nil
		},
	}
}

// VerifyOfferStep reads the stored offer back and compares its line count,
// and its total unless the ERP re-prices lines itself.
func VerifyOfferStep(rt *Runtime) Step {
	return Step{
		Name:     StepVerifyOffer,
		Critical: false,
		Run: func(ctx context.Context, wc *Context) error {
			v, err := rt.ERP.Offers.Verify(ctx, wc.OfferNumber)
			if err != nil {
				return fmt.Errorf("verify offer %s: %w", wc.OfferNumber, err)
			}
			if !v.Exists {
				return fmt.Errorf("%w: offer %s not found after creation", ErrVerificationMismatch, wc.OfferNumber)
			}
			if v.LineCount != len(wc.Offer.Lines) {
				return fmt.Errorf("%w: offer %s has %d lines, built %d",
					ErrVerificationMismatch, wc.OfferNumber, v.LineCount, len(wc.Offer.Lines))
			}

			if rt.ERP.Pricing.SupportsNativeOptimization() {
				wc.Offer.Metadata["erp_total"] = v.Total.StringFixed(2)
				return nil
			}
			if built := wc.Offer.Total(); !v.Total.Equal(built) {
				return fmt.Errorf("%w: offer %s total %s, built %s",
					ErrVerificationMismatch, wc.OfferNumber, v.Total.StringFixed(2), built.StringFixed(2))
			}
			return nil
		},
	}
}
