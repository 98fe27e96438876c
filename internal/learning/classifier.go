package learning

import (
	"context"
	"fmt"
	"strings"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
)

// Verdict is what a swap teaches.
type Verdict string

const (
	VerdictNone     Verdict = "none"
	VerdictSpecific Verdict = "specific"
	VerdictGeneral  Verdict = "general"
)

// Swap is the context a Classifier judges.
type Swap struct {
	OfferNumber    string
	CustomerNumber string
	CustomerName   string
	Original       requests.Line
	Current        erp.OfferLine
}

// Classification is a Classifier's answer. Rule is set for general verdicts.
type Classification struct {
	Verdict    Verdict
	Confidence float64
	Reasoning  string
	Rule       string
}

// Classifier decides whether a swap is a term-specific correction, a general
// matching rule, or noise.
type Classifier interface {
	Classify(ctx context.Context, swap Swap) (Classification, error)
}

// Thresholds tune PolicyClassifier.
type Thresholds struct {
	// SpecificConfidence is the confidence recorded on specific swaps.
	SpecificConfidence float64 `toml:"specific_confidence"`
	// GeneralMinConfidence is the original match confidence at or above
	// which a swap into a different product group becomes a general rule.
	GeneralMinConfidence float64 `toml:"general_min_confidence"`
}

// PolicyClassifier classifies swaps from catalog facts:
//
//   - none when the term is blank, the new line carries the fallback code, or
//     the new product is not an active catalog item;
//   - general when a confidently matched product was replaced by one from
//     another product group, meaning the term names a different category;
//   - specific otherwise.
type PolicyClassifier struct {
	products     erp.ProductRepository
	fallbackCode string
	thresholds   Thresholds
}

// NewPolicyClassifier creates a PolicyClassifier reading products from repo.
func NewPolicyClassifier(repo erp.ProductRepository, fallbackCode string, t Thresholds) *PolicyClassifier {
	return &PolicyClassifier{products: repo, fallbackCode: fallbackCode, thresholds: t}
}

func (c *PolicyClassifier) Classify(ctx context.Context, swap Swap) (Classification, error) {
	term := strings.TrimSpace(swap.Original.Term)
	if term == "" {
		return Classification{Verdict: VerdictNone, Reasoning: "no customer term recorded"}, nil
	}
	if swap.Current.ProductCode == c.fallbackCode {
		return Classification{Verdict: VerdictNone, Reasoning: "replaced with the fallback product"}, nil
	}

	codes := []string{swap.Current.ProductCode}
	if !swap.Original.Fallback {
		codes = append(codes, swap.Original.ProductCode)
	}
	found, err := c.products.SearchByCodes(ctx, codes)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %w", ErrClassificationFailed, err)
	}

	var current, original *erp.Product
	for i := range found {
		switch found[i].Code {
		case swap.Current.ProductCode:
			current = &found[i]
		case swap.Original.ProductCode:
			original = &found[i]
		}
	}

	if current == nil || !current.Active {
		return Classification{Verdict: VerdictNone, Reasoning: fmt.Sprintf("%s is not an active catalog product", swap.Current.ProductCode)}, nil
	}

	if swap.Original.Fallback {
		return Classification{
			Verdict:    VerdictSpecific,
			Confidence: 1,
			Reasoning:  fmt.Sprintf("no match was found for %q; salesperson chose %s", term, current.Code),
		}, nil
	}

	if original != nil && original.GroupCode != current.GroupCode &&
		swap.Original.Confidence >= c.thresholds.GeneralMinConfidence {
		return Classification{
			Verdict:    VerdictGeneral,
			Confidence: swap.Original.Confidence,
			Reasoning:  fmt.Sprintf("confident match in group %s corrected to group %s", original.GroupCode, current.GroupCode),
			Rule: fmt.Sprintf("Requests like %q refer to product group %s (for example %s %s), not %s (%s).",
				term, current.GroupCode, current.Code, current.Name, original.GroupCode, original.Code),
		}, nil
	}

	return Classification{
		Verdict:    VerdictSpecific,
		Confidence: c.thresholds.SpecificConfidence,
		Reasoning: fmt.Sprintf("%q matched %s at %.2f; salesperson chose %s",
			term, swap.Original.ProductCode, swap.Original.Confidence, current.Code),
	}, nil
}
