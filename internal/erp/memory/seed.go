package memory

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
)

// Seed is the TOML document a memory ERP can be loaded from.
type Seed struct {
	Customers []CustomerRecord `toml:"customers"`
	Persons   []PersonRecord   `toml:"persons"`
	Products  []ProductRecord  `toml:"products"`
	Discounts DiscountRecords  `toml:"discounts"`
}

// CustomerRecord is a seeded customer. Extra fields land in metadata.
type CustomerRecord struct {
	Number       string         `toml:"number"`
	Name         string         `toml:"name"`
	Group        string         `toml:"group"`
	Street       string         `toml:"street"`
	PostalCode   string         `toml:"postal_code"`
	City         string         `toml:"city"`
	Country      string         `toml:"country"`
	Email        string         `toml:"email"`
	Salesperson  string         `toml:"salesperson"`
	Inactive     bool           `toml:"inactive"`
	PaymentCode  string         `toml:"payment_code"`
	PaymentDays  int            `toml:"payment_days"`
	InvoiceBy    string         `toml:"invoice_by"`
	InvoiceEmail string         `toml:"invoice_email"`
	Extra        map[string]any `toml:"extra"`
}

// PersonRecord is a seeded ERP user.
type PersonRecord struct {
	Number string `toml:"number"`
	Name   string `toml:"name"`
	Email  string `toml:"email"`
	Role   string `toml:"role"`
}

// ProductRecord is a seeded catalog item. Prices are decimal strings.
type ProductRecord struct {
	Code      string         `toml:"code"`
	Name      string         `toml:"name"`
	Group     string         `toml:"group"`
	Unit      string         `toml:"unit"`
	ListPrice string         `toml:"list_price"`
	Inactive  bool           `toml:"inactive"`
	Extra     map[string]any `toml:"extra"`
}

// DiscountRecords holds the three discount tables the resolver reads.
type DiscountRecords struct {
	CustomerGroup []struct {
		Customer     string `toml:"customer"`
		ProductGroup string `toml:"product_group"`
		Percent      string `toml:"percent"`
		Code         string `toml:"code"`
	} `toml:"customer_group"`
	Negotiated []struct {
		Customer string `toml:"customer"`
		Product  string `toml:"product"`
		Net      string `toml:"net"`
		Code     string `toml:"code"`
	} `toml:"negotiated"`
	Group []struct {
		CustomerGroup string `toml:"customer_group"`
		ProductGroup  string `toml:"product_group"`
		Percent       string `toml:"percent"`
		Code          string `toml:"code"`
	} `toml:"group"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a TOML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := toml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &s, nil
}

// Apply loads the seed into e.
func (s *Seed) Apply(e *ERP) error {
	for _, r := range s.Customers {
		e.AddCustomer(toCustomer(r))
		if r.PaymentCode != "" || r.PaymentDays > 0 {
			e.SetPaymentTerms(r.Number, erp.PaymentTerms{
				Code:        r.PaymentCode,
				Days:        r.PaymentDays,
				Description: fmt.Sprintf("%d days net", r.PaymentDays),
			})
		}
		if r.InvoiceBy != "" {
			e.SetInvoicing(r.Number, erp.InvoicingDetails{Method: r.InvoiceBy, Email: r.InvoiceEmail})
		}
	}

	for _, r := range s.Persons {
		e.AddPerson(erp.Person{Number: r.Number, Name: r.Name, Email: r.Email, Role: r.Role})
	}

	for _, r := range s.Products {
		p, err := toProduct(r)
		if err != nil {
			return err
		}
		e.AddProduct(p)
	}

	for _, d := range s.Discounts.CustomerGroup {
		pct, err := parseDecimal("customer group discount", d.Percent)
		if err != nil {
			return err
		}
		e.SetCustomerGroupDiscount(d.Customer, d.ProductGroup, pricing.Discount{Percent: pct, Code: d.Code})
	}
	for _, d := range s.Discounts.Negotiated {
		net, err := parseDecimal("negotiated price", d.Net)
		if err != nil {
			return err
		}
		e.SetNegotiatedPrice(d.Customer, d.Product, pricing.Price{Net: net, Code: d.Code})
	}
	for _, d := range s.Discounts.Group {
		pct, err := parseDecimal("group discount", d.Percent)
		if err != nil {
			return err
		}
		e.SetGroupDiscount(d.CustomerGroup, d.ProductGroup, pricing.Discount{Percent: pct, Code: d.Code})
	}
	return nil
}

func toCustomer(r CustomerRecord) erp.Customer {
	return erp.Customer{
		Number:            r.Number,
		Name:              r.Name,
		GroupCode:         r.Group,
		Street:            r.Street,
		PostalCode:        r.PostalCode,
		City:              r.City,
		Country:           r.Country,
		Email:             r.Email,
		SalespersonNumber: r.Salesperson,
		Active:            !r.Inactive,
		Metadata:          erp.Stash(r.Extra),
	}
}

func toProduct(r ProductRecord) (erp.Product, error) {
	price := decimal.Zero
	if r.ListPrice != "" {
		var err error
		if price, err = parseDecimal("list price of "+r.Code, r.ListPrice); err != nil {
			return erp.Product{}, err
		}
	}
	return erp.Product{
		Code:      r.Code,
		Name:      r.Name,
		Unit:      r.Unit,
		GroupCode: r.Group,
		ListPrice: price,
		Active:    !r.Inactive,
		Metadata:  erp.Stash(r.Extra),
	}, nil
}

func parseDecimal(what, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return d, nil
}
