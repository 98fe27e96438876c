package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// ParseEmailStep normalizes the sender address and rejects emails with
// nothing to quote from.
func ParseEmailStep(rt *Runtime) Step {
	return Step{
		Name:     StepParseEmail,
		Critical: true,
		Run: func(ctx context.Context, wc *Context) error {
			email := &wc.Email

			raw := strings.TrimSpace(email.Sender)
			if raw == "" {
				return fmt.Errorf("%w: missing sender", ErrInvalidEmail)
			}
			addr, err := mail.ParseAddress(raw)
			if err != nil {
				return fmt.Errorf("%w: sender %q: %w", ErrInvalidEmail, raw, err)
			}
			email.Sender = strings.ToLower(addr.Address)

			if strings.TrimSpace(email.Body) == "" && !hasAttachmentText(email.Attachments) {
				return fmt.Errorf("%w: empty body and no attachment text", ErrInvalidEmail)
			}
			if email.Date.IsZero() {
				email.Date = rt.now()
			}
			return nil
		},
	}
}

func hasAttachmentText(attachments []Attachment) bool {
	for _, a := range attachments {
		if strings.TrimSpace(a.Text) != "" {
			return true
		}
	}
	return false
}

// ExtractCompanyStep asks the extractor for the requesting company and
// rejects answers below the company confidence floor.
func ExtractCompanyStep(rt *Runtime) Step {
	return Step{
		Name:     StepExtractCompany,
		Critical: true,
		Run: func(ctx context.Context, wc *Context) error {
			company, err := rt.Extractor.ExtractCompany(ctx, wc.Email)
			if err != nil {
				return err
			}

			company.Name = strings.TrimSpace(company.Name)
			if company.Name == "" && company.CustomerNumber == "" {
				return fmt.Errorf("%w: no company named", ErrExtractionAmbiguous)
			}
			if company.Confidence < rt.Policy.CompanyConfidenceFloor {
				return fmt.Errorf("%w: %q at confidence %.2f, floor %.2f",
					ErrExtractionAmbiguous, company.Name, company.Confidence, rt.Policy.CompanyConfidenceFloor)
			}

			wc.Company = company
			return nil
		},
	}
}

// ResolveCustomerStep looks the company up in the ERP: quoted customer
// number, then exact name and candidate names, then a fuzzy search. When
// nothing matches and a fallback customer is configured, that customer is
// used with a warning.
func ResolveCustomerStep(rt *Runtime) Step {
	fallback := rt.Policy.FallbackCustomerNumber

	return Step{
		Name:     StepResolveCustomer,
		Critical: fallback == "",
		Run: func(ctx context.Context, wc *Context) error {
			customer, err := findCustomer(ctx, rt, wc.Company)
			if err == nil {
				wc.Customer = customer
				return nil
			}
			if fallback == "" || !errors.Is(err, erp.ErrCustomerNotFound) {
				return err
			}

			fb, fbErr := rt.ERP.Customers.FindByNumber(ctx, fallback)
			if fbErr != nil {
				return fmt.Errorf("%w; fallback customer %s: %w", err, fallback, fbErr)
			}
			wc.Customer = fb
			wc.Warn("customer %q not found; using fallback customer %s", wc.Company.Name, fb.Number)
			return nil
		},
	}
}

func findCustomer(ctx context.Context, rt *Runtime, company CompanyExtraction) (*erp.Customer, error) {
	repo := rt.ERP.Customers

	if company.CustomerNumber != "" {
		c, err := repo.FindByNumber(ctx, company.CustomerNumber)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, erp.ErrCustomerNotFound) {
			return nil, err
		}
	}

	names := append([]string{company.Name}, company.Candidates...)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		c, err := repo.FindByName(ctx, name)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, erp.ErrCustomerNotFound) {
			return nil, err
		}
	}

	if company.Name != "" {
		found, err := repo.Search(ctx, company.Name, rt.Policy.CustomerSearchLimit)
		if err != nil {
			return nil, err
		}
		if c, score, ok := bestCustomer(company.Name, found); ok {
			rt.Logger.InfoContext(ctx, "customer matched by search",
				"company", company.Name, "customer", c.Number, "confidence", score)
			return &c, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, company.Name)
}

// bestCustomer ranks active search hits by name similarity to company. Ties
// keep the repository's order.
func bestCustomer(company string, found []erp.Customer) (erp.Customer, float64, bool) {
	var (
		best  erp.Customer
		score = -1.0
	)
	want := nameWords(company)
	for _, c := range found {
		if !c.Active {
			continue
		}
		if s := similarity(want, nameWords(c.Name)); s > score {
			best, score = c, s
		}
	}
	return best, score, score >= 0
}

func nameWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// similarity is the Jaccard index of two word sets.
func similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	union := len(set)
	common := 0
	seen := make(map[string]bool, len(b))
	for _, w := range b {
		if seen[w] {
			continue
		}
		seen[w] = true
		if set[w] {
			common++
		} else {
			union++
		}
	}
	return float64(common) / float64(union)
}

// ResolveSalespersonStep picks the offer owner: the sender when they are an
// ERP user, then the customer's responsible salesperson, then the configured
// default.
func ResolveSalespersonStep(rt *Runtime) Step {
	return Step{
		Name:     StepResolveSalesperson,
		Critical: false,
		Run: func(ctx context.Context, wc *Context) error {
			persons := rt.ERP.Persons

			if p, err := persons.FindByEmail(ctx, wc.Email.Sender); err == nil {
				wc.Salesperson = p
				return nil
			}

			if wc.Customer != nil && wc.Customer.SalespersonNumber != "" {
				if p, err := persons.FindByNumber(ctx, wc.Customer.SalespersonNumber); err == nil {
					wc.Salesperson = p
					return nil
				}
			}

			if n := rt.Policy.DefaultSalespersonNumber; n != "" {
				p, err := persons.FindByNumber(ctx, n)
				if err == nil {
					wc.Salesperson = p
					wc.Warn("no salesperson for %s; using default %s", wc.Email.Sender, p.Number)
					return nil
				}
			}

			return fmt.Errorf("%w: sender %s", ErrSalespersonNotFound, wc.Email.Sender)
		},
	}
}

// ExtractProductsStep asks the extractor for requested items. Items without
// a positive quantity are assumed to be one unit.
func ExtractProductsStep(rt *Runtime) Step {
	return Step{
		Name:     StepExtractProducts,
		Critical: true,
		Run: func(ctx context.Context, wc *Context) error {
			terms, err := rt.Extractor.ExtractProducts(ctx, wc.Email)
			if err != nil {
				return err
			}

			kept := make([]ProductTerm, 0, len(terms))
			for _, t := range terms {
				t.Term = strings.TrimSpace(t.Term)
				if t.Term == "" {
					continue
				}
				if !t.Quantity.IsPositive() {
					t.Quantity = decimal.NewFromInt(1)
					wc.Warn("no quantity for %q; assuming 1", t.Term)
				}
				kept = append(kept, t)
			}

			if len(kept) == 0 {
				return ErrNoProducts
			}
			wc.Requested = kept
			return nil
		},
	}
}
