package sqlerp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

func (d *DB) CustomerGroupDiscount(ctx context.Context, customerNumber, productGroup string) (pricing.Discount, bool, error) {
	q := `
		SELECT discount_percent, discount_code
		FROM erp.customer_group_discounts
		WHERE customer_number = $1 AND product_group = $2`
	return d.discount(ctx, q, customerNumber, productGroup)
}

func (d *DB) GroupDiscount(ctx context.Context, customerGroup, productGroup string) (pricing.Discount, bool, error) {
	q := `
		SELECT discount_percent, discount_code
		FROM erp.group_discounts
		WHERE customer_group = $1 AND product_group = $2`
	return d.discount(ctx, q, customerGroup, productGroup)
}

func (d *DB) NegotiatedPrice(ctx context.Context, customerNumber, productCode string) (pricing.Price, bool, error) {
	q := `
		SELECT net_price, price_code
		FROM erp.negotiated_prices
		WHERE customer_number = $1 AND product_code = $2
			AND (valid_until IS NULL OR valid_until >= CURRENT_DATE)`

	var (
		net  decimal.Decimal
		code sql.NullString
	)
	err := d.db.QueryRowContext(ctx, q, customerNumber, productCode).Scan(&net, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Price{}, false, nil
	}
	if err != nil {
		return pricing.Price{}, false, fmt.Errorf("%w: %w", pricing.ErrSourceUnavailable, err)
	}
	return pricing.Price{Net: net, Code: code.String}, true, nil
}

func (d *DB) discount(ctx context.Context, q string, args ...any) (pricing.Discount, bool, error) {
	var (
		pct  decimal.Decimal
		code sql.NullString
	)
	err := d.db.QueryRowContext(ctx, q, args...).Scan(&pct, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Discount{}, false, nil
	}
	if err != nil {
		return pricing.Discount{}, false, fmt.Errorf("%w: %w", pricing.ErrSourceUnavailable, err)
	}
	return pricing.Discount{Percent: pct, Code: code.String}, true, nil
}
