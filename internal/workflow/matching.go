package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

const (
	methodWildcard = "wildcard"
	methodFallback = "fallback"
)

// MatchProductsStep resolves every requested term to a catalog product.
// Candidates below the product confidence floor, or whose code the ERP does
// not know, get one more chance through a unique wildcard hit. Anything
// still unresolved becomes a fallback-code line with a warning naming the term.
func MatchProductsStep(rt *Runtime) Step {
	return Step{
		Name:     StepMatchProducts,
		Critical: false,
		Run: func(ctx context.Context, wc *Context) error {
			floor := rt.Policy.ProductConfidenceFloor

			candidates, err := rt.Matcher.Match(ctx, wc.Requested, wc.Email.Attachments)
			if err != nil {
				wc.Warn("product matcher failed: %v", err)
				candidates = nil
			}
			best := bestByTerm(candidates)

			var codes []string
			for _, c := range best {
				if c.Confidence >= floor && c.ProductCode != rt.Policy.FallbackProductCode {
					codes = append(codes, c.ProductCode)
				}
			}
			catalog := make(map[string]erp.Product, len(codes))
			if len(codes) > 0 {
				products, err := rt.ERP.Products.SearchByCodes(ctx, codes)
				if err != nil {
					wc.Warn("product lookup failed: %v", err)
				}
				for _, p := range products {
					catalog[p.Code] = p
				}
			}

			lines := make([]Line, len(wc.Requested))
			for i, term := range wc.Requested {
				c, ok := best[term.Term]
				if ok && c.Confidence >= floor {
					if p, found := catalog[c.ProductCode]; found {
						lines[i] = Line{Term: term, Candidate: c, Product: p}
						continue
					}
				}

				if p, found := wildcardMatch(ctx, rt, term.Term); found {
					lines[i] = Line{
						Term:    term,
						Product: p,
						Candidate: ProductCandidate{
							Term:        term.Term,
							ProductCode: p.Code,
							ProductName: p.Name,
							Confidence:  floor,
							MatchMethod: methodWildcard,
						},
					}
					continue
				}

				lines[i] = fallbackLine(rt, term, c.Confidence)
				wc.Warn("%v: %q; using fallback product %s", ErrProductUnresolved, term.Term, rt.Policy.FallbackProductCode)
			}

			wc.Lines = lines
			return nil
		},
	}
}

func bestByTerm(candidates []ProductCandidate) map[string]ProductCandidate {
	best := make(map[string]ProductCandidate, len(candidates))
	for _, c := range candidates {
		if cur, ok := best[c.Term]; !ok || c.Confidence > cur.Confidence {
			best[c.Term] = c
		}
	}
	return best
}

func wildcardMatch(ctx context.Context, rt *Runtime, term string) (erp.Product, bool) {
	words := strings.Fields(term)
	if len(words) == 0 {
		return erp.Product{}, false
	}

	pattern := "*" + strings.Join(words, "*") + "*"
	found, err := rt.ERP.Products.WildcardSearch(ctx, pattern)
	if err != nil {
		rt.Logger.WarnContext(ctx, "wildcard search failed", "pattern", pattern, "error", err)
		return erp.Product{}, false
	}

	var hit erp.Product
	n := 0
	for _, p := range found {
		if p.Active {
			hit = p
			n++
		}
	}
	return hit, n == 1
}

func fallbackLine(rt *Runtime, term ProductTerm, confidence float64) Line {
	code := rt.Policy.FallbackProductCode
	return Line{
		Term:     term,
		Fallback: true,
		Product:  erp.Product{Code: code, Name: term.Term, ListPrice: decimal.Zero},
		Candidate: ProductCandidate{
			Term:        term.Term,
			ProductCode: code,
			ProductName: term.Term,
			Confidence:  confidence,
			MatchMethod: methodFallback,
		},
	}
}

// ResolvePricingStep prices matched lines through the ERP's pricing
// service. Fallback lines are left at zero for the salesperson to price.
// Lines priced from a degraded or list-price tier produce a warning. When the
// service fails outright every matched line is priced at list.
func ResolvePricingStep(rt *Runtime) Step {
	return Step{
		Name:     StepResolvePricing,
		Critical: false,
		Run: func(ctx context.Context, wc *Context) error {
			priced := make([]pricing.Resolution, len(wc.Lines))

			var (
				matches []erp.Match
				at      []int
			)
			for i, l := range wc.Lines {
				if l.Fallback {
					priced[i] = fallbackResolution(l)
					continue
				}
				matches = append(matches, erp.Match{Term: l.Term.Term, Product: l.Product, Quantity: l.Term.Quantity})
				at = append(at, i)
			}

			if len(matches) > 0 {
				res, err := calculate(ctx, rt, wc.Customer, matches)
				if err != nil {
					for j, m := range matches {
						priced[at[j]] = pricing.ListOnly(m)
					}
					wc.Priced = priced
					return fmt.Errorf("%w: %w; list prices used", ErrPricingDegraded, err)
				}

				for j, r := range res {
					priced[at[j]] = r
					switch {
					case len(r.Degraded) > 0:
						wc.Warn("%v for %s: %s unavailable, priced at %s",
							ErrPricingDegraded, r.ProductCode, tierList(r.Degraded), r.Tier)
					case r.Fallback:
						wc.Warn("no discount for %s; list price used", r.ProductCode)
					}
				}
			}

			wc.Priced = priced
			return nil
		},
	}
}

func calculate(ctx context.Context, rt *Runtime, customer *erp.Customer, matches []erp.Match) ([]pricing.Resolution, error) {
	if customer == nil {
		return nil, errors.New("no customer to price for")
	}
	res, err := rt.ERP.Pricing.Calculate(ctx, *customer, matches)
	if err != nil {
		return nil, err
	}
	if len(res) != len(matches) {
		return nil, fmt.Errorf("%d prices for %d lines", len(res), len(matches))
	}
	return res, nil
}

func fallbackResolution(l Line) pricing.Resolution {
	return pricing.Resolution{
		ProductCode:     l.Product.Code,
		Quantity:        l.Term.Quantity,
		ListPrice:       decimal.Zero,
		UnitPrice:       decimal.Zero,
		DiscountPercent: decimal.Zero,
		LineTotal:       decimal.Zero,
		Tier:            erp.TierListPrice,
		Source:          methodFallback,
		Fallback:        true,
	}
}

func tierList(tiers []erp.Tier) string {
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
