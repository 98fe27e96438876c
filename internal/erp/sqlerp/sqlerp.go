// Package sqlerp is the ERP adapter set for an ERP whose records live in a
// PostgreSQL schema named erp.
package sqlerp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/repository"
)

const wildcardLimit = 50

func init() {
	erp.Register(erp.TypeSQL, func(deps erp.Deps) (*erp.System, error) {
		if deps.DB == nil {
			return nil, errors.New("sqlerp: database connection required")
		}

		db := New(deps.DB, deps.Logger)
		var source pricing.Source = db
		if deps.Cache != nil {
			source = pricing.NewCachedSource(db, deps.Cache, deps.CacheTTL, deps.Logger)
		}
		return db.System(pricing.NewResolver(source, false, deps.Logger)), nil
	})
}

// DB reads and writes the erp schema. It also serves price tiers to the
// resolver as a pricing.Source.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a DB over db.
func New(db *sql.DB, logger *slog.Logger) *DB {
	return &DB{db: db, logger: logger.With("system", "sqlerp")}
}

// System returns the adapter set priced by svc.
func (d *DB) System(svc erp.PricingService) *erp.System {
	return &erp.System{
		Name:      erp.TypeSQL,
		Customers: customers{d},
		Persons:   persons{d},
		Products:  products{d},
		Offers:    offers{d},
		Pricing:   svc,
	}
}

type customers struct{ d *DB }

func (r customers) one(ctx context.Context, where string, arg any) (customerRow, error) {
	q := `SELECT ` + customerColumns + ` FROM erp.customers c WHERE ` + where + ` LIMIT 1`
	return repository.QueryOne(ctx, r.d.db, q, []any{arg}, scanCustomer)
}

func (r customers) FindByName(ctx context.Context, name string) (*erp.Customer, error) {
	row, err := r.one(ctx, `lower(c.name) = lower($1)`, strings.TrimSpace(name))
	if err != nil {
		return nil, notFound(err, erp.ErrCustomerNotFound, name)
	}
	c, err := row.toCustomer()
	return &c, err
}

func (r customers) FindByNumber(ctx context.Context, number string) (*erp.Customer, error) {
	row, err := r.one(ctx, `c.customer_number = $1`, number)
	if err != nil {
		return nil, notFound(err, erp.ErrCustomerNotFound, number)
	}
	c, err := row.toCustomer()
	return &c, err
}

// Search matches customers whose name contains every word of query, shortest
// names first.
func (r customers) Search(ctx context.Context, query string, limit int) ([]erp.Customer, error) {
	words := strings.Fields(query)
	conds := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		conds[i] = fmt.Sprintf("c.name ILIKE $%d", i+1)
		args[i] = "%" + escapeLike(w) + "%"
	}

	q := `SELECT ` + customerColumns + ` FROM erp.customers c`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY length(c.name), c.customer_number`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := repository.QueryMany(ctx, r.d.db, q, args, scanCustomer)
	if err != nil {
		return nil, fmt.Errorf("search customers %q: %w", query, err)
	}
	out := make([]erp.Customer, 0, len(rows))
	for _, row := range rows {
		c, err := row.toCustomer()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r customers) PaymentTerms(ctx context.Context, customerNumber string) (*erp.PaymentTerms, error) {
	q := `
		SELECT t.code, t.days, t.description
		FROM erp.customers c
		LEFT JOIN erp.payment_terms t ON t.code = c.payment_terms_code
		WHERE c.customer_number = $1`

	var (
		code, text sql.NullString
		days       sql.NullInt64
	)
	err := r.d.db.QueryRowContext(ctx, q, customerNumber).Scan(&code, &days, &text)
	if err != nil {
		return nil, notFound(err, erp.ErrCustomerNotFound, customerNumber)
	}
	if !code.Valid {
		return nil, nil
	}
	return &erp.PaymentTerms{Code: code.String, Days: int(days.Int64), Description: text.String}, nil
}

func (r customers) InvoicingDetails(ctx context.Context, customerNumber string) (*erp.InvoicingDetails, error) {
	row, err := r.one(ctx, `c.customer_number = $1`, customerNumber)
	if err != nil {
		return nil, notFound(err, erp.ErrCustomerNotFound, customerNumber)
	}
	if !row.InvoicingMethod.Valid {
		return nil, nil
	}

	email := row.InvoiceEmail.String
	if email == "" {
		email = row.Email.String
	}
	return &erp.InvoicingDetails{
		Method:   row.InvoicingMethod.String,
		Email:    email,
		Address:  row.address(),
		Metadata: erp.Metadata{"customer_number": row.CustomerNumber},
	}, nil
}

type persons struct{ d *DB }

func (r persons) find(ctx context.Context, where, key string) (*erp.Person, error) {
	q := `SELECT ` + personColumns + ` FROM erp.persons p WHERE ` + where + ` LIMIT 1`
	row, err := repository.QueryOne(ctx, r.d.db, q, []any{key}, scanPerson)
	if err != nil {
		return nil, notFound(err, erp.ErrPersonNotFound, key)
	}
	p, err := row.toPerson()
	return &p, err
}

func (r persons) FindByEmail(ctx context.Context, email string) (*erp.Person, error) {
	return r.find(ctx, `lower(p.email) = lower($1)`, strings.TrimSpace(email))
}

func (r persons) FindByNumber(ctx context.Context, number string) (*erp.Person, error) {
	return r.find(ctx, `p.person_number = $1`, number)
}

type products struct{ d *DB }

func (r products) WildcardSearch(ctx context.Context, pattern string) ([]erp.Product, error) {
	like := strings.ReplaceAll(escapeLike(pattern), "*", "%")
	q := `SELECT ` + productColumns + `
		FROM erp.products p
		WHERE p.name ILIKE $1 OR p.product_code ILIKE $1
		ORDER BY p.product_code
		LIMIT ` + fmt.Sprint(wildcardLimit)

	return r.list(ctx, q, []any{like}, "wildcard search "+pattern)
}

func (r products) SearchByCodes(ctx context.Context, codes []string) ([]erp.Product, error) {
	if len(codes) == 0 {
		return []erp.Product{}, nil
	}
	marks := make([]string, len(codes))
	args := make([]any, len(codes))
	for i, c := range codes {
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = c
	}
	q := `SELECT ` + productColumns + `
		FROM erp.products p
		WHERE p.product_code IN (` + strings.Join(marks, ", ") + `)
		ORDER BY p.product_code`

	return r.list(ctx, q, args, "search product codes")
}

func (r products) list(ctx context.Context, q string, args []any, what string) ([]erp.Product, error) {
	rows, err := repository.QueryMany(ctx, r.d.db, q, args, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	out := make([]erp.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toProduct()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type offers struct{ d *DB }

func (r offers) Create(ctx context.Context, offer erp.Offer) (string, error) {
	md, err := encodeMetadata(offer.Metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", erp.ErrOfferCreation, err)
	}

	var terms any
	if offer.PaymentTerms != nil {
		terms = offer.PaymentTerms.Code
	}

	q := `
		INSERT INTO erp.offers(customer_number, customer_name, salesperson_number, reference,
			offer_date, payment_terms_code, extra)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)
		RETURNING offer_number`

	var number string
	err = r.d.db.QueryRowContext(ctx, q,
		offer.CustomerNumber,
		offer.CustomerName,
		offer.SalespersonNumber,
		offer.Reference,
		offer.Date,
		terms,
		md,
	).Scan(&number)
	if err != nil {
		return "", fmt.Errorf("%w: %w", erp.ErrOfferCreation,
			repository.MapError(err, erp.ErrCustomerNotFound, err))
	}

	r.d.logger.Info("offer created", "offer_number", number, "customer_number", offer.CustomerNumber)
	return number, nil
}

func (r offers) AddLine(ctx context.Context, offerNumber string, line erp.OfferLine) error {
	md, err := encodeMetadata(line.Metadata)
	if err != nil {
		return err
	}

	q := `
		INSERT INTO erp.offer_lines(offer_number, line_no, product_code, product_name,
			quantity, unit_price, discount_percent, line_total, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	err = repository.ExecExpectOne(ctx, r.d.db, q,
		offerNumber,
		line.Position,
		line.ProductCode,
		line.ProductName,
		line.Quantity,
		line.UnitPrice,
		line.DiscountPercent,
		line.Total,
		md,
	)
	if err != nil {
		mapped := repository.MapError(err, erp.ErrOfferNotFound, err)
		return fmt.Errorf("add line %d to offer %s: %w", line.Position, offerNumber, mapped)
	}
	return nil
}

func (r offers) Get(ctx context.Context, offerNumber string) (*erp.Offer, error) {
	hq := `
		SELECT o.offer_number, o.customer_number, o.customer_name, o.salesperson_number,
			o.reference, o.offer_date, o.payment_terms_code, t.days, t.description, o.extra
		FROM erp.offers o
		LEFT JOIN erp.payment_terms t ON t.code = o.payment_terms_code
		WHERE o.offer_number = $1`

	head, err := repository.QueryOne(ctx, r.d.db, hq, []any{offerNumber}, scanOffer)
	if err != nil {
		return nil, notFound(err, erp.ErrOfferNotFound, offerNumber)
	}
	offer, err := head.toOffer()
	if err != nil {
		return nil, err
	}

	lq := `
		SELECT l.line_no, l.product_code, l.product_name, l.quantity, l.unit_price,
			l.discount_percent, l.line_total, l.extra
		FROM erp.offer_lines l
		WHERE l.offer_number = $1
		ORDER BY l.line_no`

	rows, err := repository.QueryMany(ctx, r.d.db, lq, []any{offerNumber}, scanOfferLine)
	if err != nil {
		return nil, fmt.Errorf("read lines of offer %s: %w", offerNumber, err)
	}
	offer.Lines = make([]erp.OfferLine, 0, len(rows))
	for _, row := range rows {
		l, err := row.toLine()
		if err != nil {
			return nil, err
		}
		offer.Lines = append(offer.Lines, l)
	}
	return &offer, nil
}

func (r offers) Verify(ctx context.Context, offerNumber string) (*erp.Verification, error) {
	q := `
		SELECT EXISTS (SELECT 1 FROM erp.offers WHERE offer_number = $1),
			COUNT(l.line_no),
			COALESCE(SUM(l.line_total), 0)
		FROM erp.offer_lines l
		WHERE l.offer_number = $1`

	var v erp.Verification
	if err := r.d.db.QueryRowContext(ctx, q, offerNumber).Scan(&v.Exists, &v.LineCount, &v.Total); err != nil {
		return nil, fmt.Errorf("verify offer %s: %w", offerNumber, err)
	}
	return &v, nil
}

func notFound(err, sentinel error, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", sentinel, key)
	}
	return err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
