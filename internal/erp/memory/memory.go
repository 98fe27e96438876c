// Package memory is an in-process ERP adapter set for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

func init() {
	erp.Register(erp.TypeMemory, func(deps erp.Deps) (*erp.System, error) {
		e := New()
		if deps.Config.SeedFile != "" {
			seed, err := LoadSeed(deps.Config.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := seed.Apply(e); err != nil {
				return nil, err
			}
			deps.Logger.Info("memory erp seeded",
				"customers", len(seed.Customers),
				"products", len(seed.Products))
		}
		return e.System(pricing.NewResolver(e, false, deps.Logger)), nil
	})
}

// ERP holds every record in maps guarded by one lock.
type ERP struct {
	mu sync.RWMutex

	customers map[string]erp.Customer
	persons   map[string]erp.Person
	products  map[string]erp.Product
	terms     map[string]erp.PaymentTerms
	invoicing map[string]erp.InvoicingDetails

	customerGroup map[string]pricing.Discount
	negotiated    map[string]pricing.Price
	group         map[string]pricing.Discount

	offers    map[string]*erp.Offer
	nextOffer int
	creates   int
	failures  map[string]error
}

// New creates an empty ERP.
func New() *ERP {
	return &ERP{
		customers:     make(map[string]erp.Customer),
		persons:       make(map[string]erp.Person),
		products:      make(map[string]erp.Product),
		terms:         make(map[string]erp.PaymentTerms),
		invoicing:     make(map[string]erp.InvoicingDetails),
		customerGroup: make(map[string]pricing.Discount),
		negotiated:    make(map[string]pricing.Price),
		group:         make(map[string]pricing.Discount),
		offers:        make(map[string]*erp.Offer),
		nextOffer:     100000,
		failures:      make(map[string]error),
	}
}

// System returns the adapter set backed by e, priced by svc.
func (e *ERP) System(svc erp.PricingService) *erp.System {
	return &erp.System{
		Name:      erp.TypeMemory,
		Customers: customers{e},
		Persons:   persons{e},
		Products:  products{e},
		Offers:    offers{e},
		Pricing:   svc,
	}
}

func (e *ERP) AddCustomer(c erp.Customer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customers[c.Number] = c
}

func (e *ERP) AddPerson(p erp.Person) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persons[p.Number] = p
}

func (e *ERP) AddProduct(p erp.Product) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.products[p.Code] = p
}

func (e *ERP) SetPaymentTerms(customerNumber string, t erp.PaymentTerms) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.terms[customerNumber] = t
}

func (e *ERP) SetInvoicing(customerNumber string, inv erp.InvoicingDetails) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invoicing[customerNumber] = inv
}

func (e *ERP) SetCustomerGroupDiscount(customerNumber, productGroup string, d pricing.Discount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.customerGroup[customerNumber+"/"+productGroup] = d
}

func (e *ERP) SetNegotiatedPrice(customerNumber, productCode string, p pricing.Price) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.negotiated[customerNumber+"/"+productCode] = p
}

func (e *ERP) SetGroupDiscount(customerGroup, productGroup string, d pricing.Discount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.group[customerGroup+"/"+productGroup] = d
}

// Fail makes every call of the named operation return err until cleared
// with a nil err. Operation names are the method names, such as "Create" or
// "GroupDiscount".
func (e *ERP) Fail(operation string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err == nil {
		delete(e.failures, operation)
		return
	}
	e.failures[operation] = err
}

// SetLines replaces an offer's lines, as a salesperson editing it would.
func (e *ERP) SetLines(offerNumber string, lines []erp.OfferLine) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.offers[offerNumber]
	if !ok {
		return fmt.Errorf("%w: %s", erp.ErrOfferNotFound, offerNumber)
	}
	o.Lines = slices.Clone(lines)
	return nil
}

// Creates returns how many offers were created.
func (e *ERP) Creates() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.creates
}

func (e *ERP) failure(operation string) error {
	if err, ok := e.failures[operation]; ok {
		return fmt.Errorf("memory erp %s: %w", operation, err)
	}
	return nil
}

// CustomerGroupDiscount implements pricing.Source.
func (e *ERP) CustomerGroupDiscount(_ context.Context, customerNumber, productGroup string) (pricing.Discount, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.failure("CustomerGroupDiscount"); err != nil {
		return pricing.Discount{}, false, err
	}
	d, ok := e.customerGroup[customerNumber+"/"+productGroup]
	return d, ok, nil
}

// NegotiatedPrice implements pricing.Source.
func (e *ERP) NegotiatedPrice(_ context.Context, customerNumber, productCode string) (pricing.Price, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.failure("NegotiatedPrice"); err != nil {
		return pricing.Price{}, false, err
	}
	p, ok := e.negotiated[customerNumber+"/"+productCode]
	return p, ok, nil
}

// GroupDiscount implements pricing.Source.
func (e *ERP) GroupDiscount(_ context.Context, customerGroup, productGroup string) (pricing.Discount, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.failure("GroupDiscount"); err != nil {
		return pricing.Discount{}, false, err
	}
	d, ok := e.group[customerGroup+"/"+productGroup]
	return d, ok, nil
}

type customers struct{ e *ERP }

func (r customers) FindByName(_ context.Context, name string) (*erp.Customer, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if err := r.e.failure("FindCustomerByName"); err != nil {
		return nil, err
	}

	want := normalize(name)
	for _, c := range r.e.customers {
		if normalize(c.Name) == want {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, name)
}

func (r customers) FindByNumber(_ context.Context, number string) (*erp.Customer, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	c, ok := r.e.customers[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, number)
	}
	return &c, nil
}

func (r customers) Search(_ context.Context, query string, limit int) ([]erp.Customer, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()

	words := strings.Fields(normalize(query))
	var out []erp.Customer
	for _, c := range r.e.customers {
		name := normalize(c.Name)
		if len(words) > 0 && !containsAll(name, words) {
			continue
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b erp.Customer) int {
		return cmp.Or(cmp.Compare(len(a.Name), len(b.Name)), cmp.Compare(a.Number, b.Number))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r customers) PaymentTerms(_ context.Context, customerNumber string) (*erp.PaymentTerms, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if _, ok := r.e.customers[customerNumber]; !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, customerNumber)
	}
	t, ok := r.e.terms[customerNumber]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r customers) InvoicingDetails(_ context.Context, customerNumber string) (*erp.InvoicingDetails, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if _, ok := r.e.customers[customerNumber]; !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrCustomerNotFound, customerNumber)
	}
	inv, ok := r.e.invoicing[customerNumber]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

type persons struct{ e *ERP }

func (r persons) FindByEmail(_ context.Context, email string) (*erp.Person, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	for _, p := range r.e.persons {
		if p.Email != "" && strings.EqualFold(p.Email, email) {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", erp.ErrPersonNotFound, email)
}

func (r persons) FindByNumber(_ context.Context, number string) (*erp.Person, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	p, ok := r.e.persons[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrPersonNotFound, number)
	}
	return &p, nil
}

type products struct{ e *ERP }

func (r products) WildcardSearch(_ context.Context, pattern string) ([]erp.Product, error) {
	re, err := globRegexp(pattern)
	if err != nil {
		return nil, err
	}

	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if err := r.e.failure("WildcardSearch"); err != nil {
		return nil, err
	}

	var out []erp.Product
	for _, p := range r.e.products {
		if re.MatchString(p.Name) || re.MatchString(p.Code) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b erp.Product) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (r products) SearchByCodes(_ context.Context, codes []string) ([]erp.Product, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if err := r.e.failure("SearchByCodes"); err != nil {
		return nil, err
	}

	out := make([]erp.Product, 0, len(codes))
	for _, code := range codes {
		if p, ok := r.e.products[code]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type offers struct{ e *ERP }

func (r offers) Create(_ context.Context, offer erp.Offer) (string, error) {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	r.e.creates++
	if err := r.e.failure("Create"); err != nil {
		return "", fmt.Errorf("%w: %w", erp.ErrOfferCreation, err)
	}
	if _, ok := r.e.customers[offer.CustomerNumber]; !ok {
		return "", fmt.Errorf("%w: unknown customer %s", erp.ErrOfferCreation, offer.CustomerNumber)
	}

	r.e.nextOffer++
	offer.Number = fmt.Sprintf("%d", r.e.nextOffer)
	offer.Lines = nil
	r.e.offers[offer.Number] = &offer
	return offer.Number, nil
}

func (r offers) AddLine(_ context.Context, offerNumber string, line erp.OfferLine) error {
	r.e.mu.Lock()
	defer r.e.mu.Unlock()
	if err := r.e.failure("AddLine"); err != nil {
		return err
	}
	o, ok := r.e.offers[offerNumber]
	if !ok {
		return fmt.Errorf("%w: %s", erp.ErrOfferNotFound, offerNumber)
	}
	o.Lines = append(o.Lines, line)
	return nil
}

func (r offers) Get(_ context.Context, offerNumber string) (*erp.Offer, error) {
	r.e.mu.RLock()
	defer r.e.mu.RUnlock()
	if err := r.e.failure("Get"); err != nil {
		return nil, err
	}
	o, ok := r.e.offers[offerNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", erp.ErrOfferNotFound, offerNumber)
	}
	cp := *o
	cp.Lines = slices.Clone(o.Lines)
	return &cp, nil
}

func (r offers) Verify(ctx context.Context, offerNumber string) (*erp.Verification, error) {
	o, err := r.Get(ctx, offerNumber)
	if err != nil {
		if errors.Is(err, erp.ErrOfferNotFound) {
			return &erp.Verification{Total: decimal.Zero}, nil
		}
		return nil, err
	}
	return &erp.Verification{Exists: true, LineCount: len(o.Lines), Total: o.Total()}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func globRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
