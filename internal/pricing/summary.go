package pricing

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// MethodSummary aggregates resolutions that fired at the same tier.
type MethodSummary struct {
	Tier    string          `json:"tier"`
	Lines   int             `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Sources []string        `json:"sources,omitempty"`
}

// Summarize groups resolutions by tier in precedence order. Sources lists
// the distinct discount codes seen for each tier.
func Summarize(resolutions []Resolution) []MethodSummary {
	byTier := make(map[erp.Tier]*MethodSummary)
	for _, r := range resolutions {
		s, ok := byTier[r.Tier]
		if !ok {
			s = &MethodSummary{Tier: r.Tier.String(), Total: decimal.Zero}
			byTier[r.Tier] = s
		}
		s.Lines++
		s.Total = s.Total.Add(r.LineTotal)
		if r.Source != "" && !slices.Contains(s.Sources, r.Source) {
			s.Sources = append(s.Sources, r.Source)
		}
	}

	tiers := make([]erp.Tier, 0, len(byTier))
	for t := range byTier {
		tiers = append(tiers, t)
	}
	slices.Sort(tiers)

	out := make([]MethodSummary, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, *byTier[t])
	}
	return out
}
