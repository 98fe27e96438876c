// Package lemonsoft is the ERP adapter set for the Lemonsoft REST API.
// Lemonsoft re-prices offer lines when they are stored, so its pricing
// service reports native optimization.
package lemonsoft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

func init() {
	erp.Register(erp.TypeLemonsoft, func(deps erp.Deps) (*erp.System, error) {
		client, err := NewHTTPClient(deps.Config.Lemonsoft)
		if err != nil {
			return nil, err
		}

		api := New(client, deps.Logger)
		var source pricing.Source = api
		if deps.Cache != nil {
			source = pricing.NewCachedSource(api, deps.Cache, deps.CacheTTL, deps.Logger)
		}
		return api.System(pricing.NewResolver(source, true, deps.Logger)), nil
	})
}

type results struct {
	Results []record `json:"results"`
}

// API maps Lemonsoft resources onto the ERP repositories.
type API struct {
	client Client
	logger *slog.Logger
}

// New creates an API over client.
func New(client Client, logger *slog.Logger) *API {
	return &API{client: client, logger: logger.With("system", "lemonsoft")}
}

// System returns the adapter set priced by svc.
func (a *API) System(svc erp.PricingService) *erp.System {
	return &erp.System{
		Name:      erp.TypeLemonsoft,
		Customers: customers{a},
		Persons:   persons{a},
		Products:  products{a},
		Offers:    offers{a},
		Pricing:   svc,
	}
}

func (a *API) one(ctx context.Context, path string, sentinel error) (record, error) {
	var r record
	if err := a.client.Get(ctx, path, nil, &r); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", sentinel, err)
		}
		return nil, err
	}
	return r, nil
}

func (a *API) list(ctx context.Context, path string, query url.Values) ([]record, error) {
	var res results
	if err := a.client.Get(ctx, path, query, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

type customers struct{ a *API }

func (r customers) FindByName(ctx context.Context, name string) (*erp.Customer, error) {
	recs, err := r.a.list(ctx, "api/customers", url.Values{"filter.name": {strings.TrimSpace(name)}})
	if err != nil {
		return nil, fmt.Errorf("find customer %q: %w", name, err)
	}
	for _, rec := range recs {
		if strings.EqualFold(rec.str("name"), strings.TrimSpace(name)) {
			c := toCustomer(rec)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, name)
}

func (r customers) FindByNumber(ctx context.Context, number string) (*erp.Customer, error) {
	rec, err := r.a.one(ctx, "api/customers/"+url.PathEscape(number), erp.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	c := toCustomer(rec)
	return &c, nil
}

func (r customers) Search(ctx context.Context, query string, limit int) ([]erp.Customer, error) {
	q := url.Values{"filter.search": {query}}
	if limit > 0 {
		q.Set("filter.page_size", strconv.Itoa(limit))
	}
	recs, err := r.a.list(ctx, "api/customers", q)
	if err != nil {
		return nil, fmt.Errorf("search customers %q: %w", query, err)
	}

	out := make([]erp.Customer, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCustomer(rec))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r customers) PaymentTerms(ctx context.Context, customerNumber string) (*erp.PaymentTerms, error) {
	rec, err := r.a.one(ctx, "api/customers/"+url.PathEscape(customerNumber), erp.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	code := rec.str("payment_term_code")
	if code == "" {
		return nil, nil
	}
	return &erp.PaymentTerms{
		Code:        code,
		Days:        rec.integer("payment_term_days"),
		Description: rec.str("payment_term_text"),
	}, nil
}

func (r customers) InvoicingDetails(ctx context.Context, customerNumber string) (*erp.InvoicingDetails, error) {
	rec, err := r.a.one(ctx, "api/customers/"+url.PathEscape(customerNumber)+"/invoicing", erp.ErrCustomerNotFound)
	if err != nil {
		return nil, err
	}
	method := rec.str("invoicing_method")
	if method == "" {
		return nil, nil
	}
	return &erp.InvoicingDetails{
		Method:   method,
		Email:    rec.str("invoice_email"),
		Address:  rec.str("invoice_address"),
		Metadata: erp.Stash(rec, "invoicing_method", "invoice_email", "invoice_address"),
	}, nil
}

type persons struct{ a *API }

func (r persons) FindByEmail(ctx context.Context, email string) (*erp.Person, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	recs, err := r.a.list(ctx, "api/persons", url.Values{"filter.email": {email}})
	if err != nil {
		return nil, fmt.Errorf("find person %s: %w", email, err)
	}
	for _, rec := range recs {
		if strings.EqualFold(rec.str("email"), email) {
			p := toPerson(rec)
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", erp.ErrPersonNotFound, email)
}

func (r persons) FindByNumber(ctx context.Context, number string) (*erp.Person, error) {
	rec, err := r.a.one(ctx, "api/persons/"+url.PathEscape(number), erp.ErrPersonNotFound)
	if err != nil {
		return nil, err
	}
	p := toPerson(rec)
	return &p, nil
}

type products struct{ a *API }

// WildcardSearch passes '*' patterns through; the API expands them itself.
func (r products) WildcardSearch(ctx context.Context, pattern string) ([]erp.Product, error) {
	recs, err := r.a.list(ctx, "api/products", url.Values{"filter.search": {pattern}})
	if err != nil {
		return nil, fmt.Errorf("wildcard search %s: %w", pattern, err)
	}
	return toProducts(recs), nil
}

func (r products) SearchByCodes(ctx context.Context, codes []string) ([]erp.Product, error) {
	if len(codes) == 0 {
		return []erp.Product{}, nil
	}
	recs, err := r.a.list(ctx, "api/products", url.Values{"filter.product_codes": {strings.Join(codes, ",")}})
	if err != nil {
		return nil, fmt.Errorf("search product codes: %w", err)
	}
	return toProducts(recs), nil
}

func toProducts(recs []record) []erp.Product {
	out := make([]erp.Product, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toProduct(rec))
	}
	return out
}

type offers struct{ a *API }

func (r offers) Create(ctx context.Context, offer erp.Offer) (string, error) {
	var resp record
	if err := r.a.client.Post(ctx, "api/offers", fromOffer(offer), &resp); err != nil {
		return "", fmt.Errorf("%w: %w", erp.ErrOfferCreation, err)
	}
	number := resp.str("offer_number")
	if number == "" {
		return "", fmt.Errorf("%w: response has no offer number", erp.ErrOfferCreation)
	}

	r.a.logger.Info("offer created", "offer_number", number, "customer_number", offer.CustomerNumber)
	return number, nil
}

func (r offers) AddLine(ctx context.Context, offerNumber string, line erp.OfferLine) error {
	path := "api/offers/" + url.PathEscape(offerNumber) + "/offerrows"
	if err := r.a.client.Post(ctx, path, fromLine(line), nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %w", erp.ErrOfferNotFound, err)
		}
		return fmt.Errorf("add line %d to offer %s: %w", line.Position, offerNumber, err)
	}
	return nil
}

func (r offers) Get(ctx context.Context, offerNumber string) (*erp.Offer, error) {
	rec, err := r.a.one(ctx, "api/offers/"+url.PathEscape(offerNumber), erp.ErrOfferNotFound)
	if err != nil {
		return nil, err
	}
	o := toOffer(rec)
	return &o, nil
}

func (r offers) Verify(ctx context.Context, offerNumber string) (*erp.Verification, error) {
	o, err := r.Get(ctx, offerNumber)
	if errors.Is(err, erp.ErrOfferNotFound) {
		return &erp.Verification{Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &erp.Verification{Exists: true, LineCount: len(o.Lines), Total: o.Total()}, nil
}

func (a *API) CustomerGroupDiscount(ctx context.Context, customerNumber, productGroup string) (pricing.Discount, bool, error) {
	path := "api/customers/" + url.PathEscape(customerNumber) + "/productgroupdiscounts/" + url.PathEscape(productGroup)
	return a.discount(ctx, path)
}

func (a *API) GroupDiscount(ctx context.Context, customerGroup, productGroup string) (pricing.Discount, bool, error) {
	path := "api/customergroups/" + url.PathEscape(customerGroup) + "/productgroupdiscounts/" + url.PathEscape(productGroup)
	return a.discount(ctx, path)
}

func (a *API) NegotiatedPrice(ctx context.Context, customerNumber, productCode string) (pricing.Price, bool, error) {
	path := "api/customers/" + url.PathEscape(customerNumber) + "/prices/" + url.PathEscape(productCode)
	var rec record
	if err := a.client.Get(ctx, path, nil, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.Price{}, false, nil
		}
		return pricing.Price{}, false, fmt.Errorf("%w: %w", pricing.ErrSourceUnavailable, err)
	}
	return pricing.Price{Net: rec.dec("net_price"), Code: rec.str("price_code")}, true, nil
}

func (a *API) discount(ctx context.Context, path string) (pricing.Discount, bool, error) {
	var rec record
	if err := a.client.Get(ctx, path, nil, &rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.Discount{}, false, nil
		}
		return pricing.Discount{}, false, fmt.Errorf("%w: %w", pricing.ErrSourceUnavailable, err)
	}
	return pricing.Discount{Percent: rec.dec("discount_percent"), Code: rec.str("discount_code")}, true, nil
}
