package extract

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/learning"
	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"
)

// Match methods reported on candidates.
const (
	MethodLearned = "learned"
	MethodCode    = "code"
	MethodName    = "name"
)

// Learned looks up corrections recorded by the learning pipeline.
type Learned interface {
	Lookup(ctx context.Context, term string) (learning.ProductSwap, bool, error)
}

// Catalog matches terms against the ERP catalog. A learned swap for the term
// wins; then an exact product code; then the best token overlap among
// wildcard hits.
type Catalog struct {
	products erp.ProductRepository
	learned  Learned
	logger   *slog.Logger
}

// NewCatalog creates a Catalog. learned may be nil.
func NewCatalog(products erp.ProductRepository, learned Learned, logger *slog.Logger) *Catalog {
	return &Catalog{
		products: products,
		learned:  learned,
		logger:   logger.With("system", "catalog-matcher"),
	}
}

// Match returns at most one candidate per term. Lookup failures for a term
// are logged and leave that term unmatched.
func (c *Catalog) Match(ctx context.Context, terms []workflow.ProductTerm, _ []workflow.Attachment) ([]workflow.ProductCandidate, error) {
	var out []workflow.ProductCandidate
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cand, ok, err := c.matchOne(ctx, t.Term)
		if err != nil {
			c.logger.Warn("term not matched", "term", t.Term, "error", err)
			continue
		}
		if ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

func (c *Catalog) matchOne(ctx context.Context, term string) (workflow.ProductCandidate, bool, error) {
	if c.learned != nil {
		swap, ok, err := c.learned.Lookup(ctx, term)
		if err != nil {
			c.logger.Warn("learned lookup failed", "term", term, "error", err)
		} else if ok {
			return workflow.ProductCandidate{
				Term:        term,
				ProductCode: swap.MatchedProductCode,
				ProductName: swap.MatchedProductName,
				Confidence:  swap.Confidence,
				MatchMethod: MethodLearned,
			}, true, nil
		}
	}

	words := tokens(term)
	if len(words) == 0 {
		return workflow.ProductCandidate{}, false, nil
	}

	codes := make([]string, 0, len(words))
	for _, w := range strings.Fields(term) {
		codes = append(codes, strings.ToUpper(strings.Trim(w, ".,;:")))
	}
	byCode, err := c.products.SearchByCodes(ctx, codes)
	if err != nil {
		return workflow.ProductCandidate{}, false, err
	}
	for _, p := range byCode {
		if p.Active {
			return candidate(term, p, 0.98, MethodCode), true, nil
		}
	}

	hits, err := c.products.WildcardSearch(ctx, "*"+longest(words)+"*")
	if err != nil {
		return workflow.ProductCandidate{}, false, err
	}

	var (
		best  erp.Product
		score float64
	)
	for _, p := range hits {
		if !p.Active {
			continue
		}
		if s := overlap(words, tokens(p.Name+" "+p.Code)); s > score {
			best, score = p, s
		}
	}
	if score == 0 {
		return workflow.ProductCandidate{}, false, nil
	}
	return candidate(term, best, score, MethodName), true, nil
}

func candidate(term string, p erp.Product, confidence float64, method string) workflow.ProductCandidate {
	return workflow.ProductCandidate{
		Term:        term,
		ProductCode: p.Code,
		ProductName: p.Name,
		Confidence:  confidence,
		MatchMethod: method,
	}
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func longest(words []string) string {
	var l string
	for _, w := range words {
		if len(w) > len(l) {
			l = w
		}
	}
	return l
}

// overlap is the share of term words found among the product words,
// counting a word as found when it is a prefix of a product word.
func overlap(term, product []string) float64 {
	if len(term) == 0 {
		return 0
	}
	found := 0
	for _, t := range term {
		for _, p := range product {
			if strings.HasPrefix(p, t) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(term))
}
