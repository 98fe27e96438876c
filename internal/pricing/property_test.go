package pricing_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

// With every upper tier unreachable each line still resolves, at list price.
func TestUnavailableSourcesFallToListPrice(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	src := &fakeSource{fail: map[erp.Tier]bool{
		erp.TierCustomerGroupDiscount: true,
		erp.TierNegotiatedPrice:       true,
		erp.TierGeneralGroupDiscount:  true,
	}}
	r := pricing.NewResolver(src, false, slog.New(slog.DiscardHandler))

	properties.Property("every line terminates at tier 4", prop.ForAll(
		func(cents []int64) bool {
			matches := make([]erp.Match, len(cents))
			for i, c := range cents {
				matches[i] = erp.Match{
					Product:  erp.Product{Code: "P", GroupCode: "G", ListPrice: decimal.New(c, -2)},
					Quantity: decimal.NewFromInt(1),
				}
			}

			got, err := r.Calculate(context.Background(), acme, matches)
			if err != nil || len(got) != len(matches) {
				return false
			}
			for _, res := range got {
				if res.Tier != erp.TierListPrice || !res.Fallback || len(res.Degraded) != 3 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 10_000_000)),
	))

	properties.TestingRun(t)
}

func TestNetPriceBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("discount within [0,100] and 0 <= net <= list", prop.ForAll(
		func(listCents, pctBasis int64) bool {
			list := decimal.New(listCents, -2)
			pct := decimal.New(pctBasis, -2)

			clamped := pricing.ClampPercent(pct)
			if clamped.IsNegative() || clamped.GreaterThan(decimal.NewFromInt(100)) {
				return false
			}

			net := pricing.NetPrice(list, pct)
			return !net.IsNegative() && net.LessThanOrEqual(list)
		},
		gen.Int64Range(0, 100_000_000),
		gen.Int64Range(-50_000, 50_000),
	))

	properties.TestingRun(t)
}
