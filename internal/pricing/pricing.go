// Package pricing resolves offer line prices through a fixed tier precedence:
// customer product-group discount, negotiated customer price, customer-group
// general discount, then list price.
package pricing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// Resolution is the priced outcome of one matched line.
type Resolution = erp.PriceResolution

var hundred = decimal.NewFromInt(100)

// Source labels for resolutions that carry no ERP discount code.
const (
	SourceList   = "list"
	SourceMarkup = "markup"
)

// Resolver implements erp.PricingService over a Source.
type Resolver struct {
	source Source
	native bool
	logger *slog.Logger
}

// NewResolver creates a Resolver. native reports whether the ERP recalculates
// prices itself when offer lines are stored.
func NewResolver(source Source, native bool, logger *slog.Logger) *Resolver {
	return &Resolver{
		source: source,
		native: native,
		logger: logger.With("system", "pricing"),
	}
}

// SupportsNativeOptimization reports whether the ERP re-prices stored lines.
func (r *Resolver) SupportsNativeOptimization() bool {
	return r.native
}

// Calculate resolves one price per match, in input order. Unreachable tiers
// are skipped and recorded on the resolution; the list-price tier always
// succeeds. An error is returned only when ctx is done.
func (r *Resolver) Calculate(ctx context.Context, customer erp.Customer, matches []erp.Match) ([]Resolution, error) {
	results := make([]Resolution, len(matches))
	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = r.resolve(ctx, customer, m)
	}
	return results, nil
}

func (r *Resolver) resolve(ctx context.Context, customer erp.Customer, m erp.Match) Resolution {
	list := m.Product.ListPrice
	if list.IsNegative() {
		list = decimal.Zero
	}

	res := Resolution{
		ProductCode: m.Product.Code,
		Quantity:    m.Quantity,
		ListPrice:   list,
	}

	degrade := func(tier erp.Tier, err error) {
		res.Degraded = append(res.Degraded, tier)
		r.logger.Warn("pricing tier unavailable",
			"tier", tier.String(),
			"customer", customer.Number,
			"product", m.Product.Code,
			"error", fmt.Errorf("%w: %w", ErrSourceUnavailable, err))
	}

	if m.Product.GroupCode != "" {
		d, ok, err := r.source.CustomerGroupDiscount(ctx, customer.Number, m.Product.GroupCode)
		switch {
		case err != nil:
			degrade(erp.TierCustomerGroupDiscount, err)
		case ok:
			return applyDiscount(res, erp.TierCustomerGroupDiscount, d)
		}
	}

	p, ok, err := r.source.NegotiatedPrice(ctx, customer.Number, m.Product.Code)
	switch {
	case err != nil:
		degrade(erp.TierNegotiatedPrice, err)
	case ok:
		return applyNegotiated(res, p)
	}

	if customer.GroupCode != "" && m.Product.GroupCode != "" {
		d, ok, err := r.source.GroupDiscount(ctx, customer.GroupCode, m.Product.GroupCode)
		switch {
		case err != nil:
			degrade(erp.TierGeneralGroupDiscount, err)
		case ok:
			return applyDiscount(res, erp.TierGeneralGroupDiscount, d)
		}
	}

	res.Fallback = true
	return applyDiscount(res, erp.TierListPrice, Discount{Code: SourceList})
}

// ListOnly prices m at list with no discount, marking every discount tier as
// degraded. It stands in for a resolution the pricing service could not give.
func ListOnly(m erp.Match) Resolution {
	list := m.Product.ListPrice
	if list.IsNegative() {
		list = decimal.Zero
	}
	res := Resolution{
		ProductCode: m.Product.Code,
		Quantity:    m.Quantity,
		ListPrice:   list,
		Fallback:    true,
		Degraded:    []erp.Tier{erp.TierCustomerGroupDiscount, erp.TierNegotiatedPrice, erp.TierGeneralGroupDiscount},
	}
	return applyDiscount(res, erp.TierListPrice, Discount{Code: SourceList})
}

func applyDiscount(res Resolution, tier erp.Tier, d Discount) Resolution {
	pct := ClampPercent(d.Percent)
	res.Tier = tier
	res.Source = d.Code
	res.DiscountPercent = pct
	res.UnitPrice = NetPrice(res.ListPrice, pct)
	res.LineTotal = LineTotal(res.UnitPrice, res.Quantity)
	return res
}

func applyNegotiated(res Resolution, p Price) Resolution {
	net := p.Net.Round(2)
	if net.IsNegative() {
		net = decimal.Zero
	}

	pct := decimal.Zero
	if res.ListPrice.IsPositive() {
		pct = ClampPercent(decimal.NewFromInt(1).Sub(net.Div(res.ListPrice)).Mul(hundred).Round(2))
	}

	// A negotiated price above list is a markup: kept as agreed, zero discount.
	source := p.Code
	if net.GreaterThan(res.ListPrice) {
		source = SourceMarkup
		if p.Code != "" {
			source = p.Code + "/" + SourceMarkup
		}
	}

	res.Tier = erp.TierNegotiatedPrice
	res.Source = source
	res.DiscountPercent = pct
	res.UnitPrice = net
	res.LineTotal = LineTotal(net, res.Quantity)
	return res
}

// ClampPercent limits a discount percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// NetPrice applies a discount percentage to a list price, rounded half-up to
// two decimals.
func NetPrice(list, percent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(ClampPercent(percent).Div(hundred))
	return list.Mul(factor).Round(2)
}

// LineTotal is net × quantity rounded to two decimals.
func LineTotal(net, quantity decimal.Decimal) decimal.Decimal {
	return net.Mul(quantity).Round(2)
}
