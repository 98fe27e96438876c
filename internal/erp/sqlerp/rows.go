package sqlerp

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/repository"
)

// Native rows mirror the erp schema column for column. Nullable columns stay
// nullable here and are flattened by the to* mappers.

type customerRow struct {
	CustomerNumber    string
	Name              string
	CustomerGroup     sql.NullString
	Street            sql.NullString
	PostalCode        sql.NullString
	City              sql.NullString
	Country           sql.NullString
	Email             sql.NullString
	Phone             sql.NullString
	SalespersonNumber sql.NullString
	Blocked           bool
	PaymentTermsCode  sql.NullString
	InvoicingMethod   sql.NullString
	InvoiceEmail      sql.NullString
	Extra             []byte
}

const customerColumns = `c.customer_number, c.name, c.customer_group, c.street, c.postal_code, c.city,
	c.country, c.email, c.phone, c.salesperson_number, c.blocked, c.payment_terms_code,
	c.invoicing_method, c.invoice_email, c.extra`

func scanCustomer(s repository.Scanner) (customerRow, error) {
	var r customerRow
	err := s.Scan(
		&r.CustomerNumber,
		&r.Name,
		&r.CustomerGroup,
		&r.Street,
		&r.PostalCode,
		&r.City,
		&r.Country,
		&r.Email,
		&r.Phone,
		&r.SalespersonNumber,
		&r.Blocked,
		&r.PaymentTermsCode,
		&r.InvoicingMethod,
		&r.InvoiceEmail,
		&r.Extra,
	)
	return r, err
}

func (r customerRow) toCustomer() (erp.Customer, error) {
	md, err := extra(r.Extra)
	if err != nil {
		return erp.Customer{}, fmt.Errorf("customer %s: %w", r.CustomerNumber, err)
	}
	if r.PaymentTermsCode.Valid {
		md["payment_terms_code"] = r.PaymentTermsCode.String
	}
	if r.InvoicingMethod.Valid {
		md["invoicing_method"] = r.InvoicingMethod.String
	}

	return erp.Customer{
		Number:            r.CustomerNumber,
		Name:              r.Name,
		GroupCode:         r.CustomerGroup.String,
		Street:            r.Street.String,
		PostalCode:        r.PostalCode.String,
		City:              r.City.String,
		Country:           r.Country.String,
		Email:             r.Email.String,
		Phone:             r.Phone.String,
		SalespersonNumber: r.SalespersonNumber.String,
		Active:            !r.Blocked,
		Metadata:          md,
	}, nil
}

func (r customerRow) address() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Street.String, strings.TrimSpace(r.PostalCode.String + " " + r.City.String), r.Country.String} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type personRow struct {
	PersonNumber string
	Name         string
	Email        sql.NullString
	Phone        sql.NullString
	Role         sql.NullString
	Extra        []byte
}

const personColumns = `p.person_number, p.name, p.email, p.phone, p.role, p.extra`

func scanPerson(s repository.Scanner) (personRow, error) {
	var r personRow
	err := s.Scan(&r.PersonNumber, &r.Name, &r.Email, &r.Phone, &r.Role, &r.Extra)
	return r, err
}

func (r personRow) toPerson() (erp.Person, error) {
	md, err := extra(r.Extra)
	if err != nil {
		return erp.Person{}, fmt.Errorf("person %s: %w", r.PersonNumber, err)
	}
	return erp.Person{
		Number:   r.PersonNumber,
		Name:     r.Name,
		Email:    strings.ToLower(r.Email.String),
		Phone:    r.Phone.String,
		Role:     r.Role.String,
		Metadata: md,
	}, nil
}

type productRow struct {
	ProductCode  string
	Name         string
	Description  sql.NullString
	Unit         sql.NullString
	ProductGroup sql.NullString
	ListPrice    decimal.Decimal
	Discontinued bool
	Extra        []byte
}

const productColumns = `p.product_code, p.name, p.description, p.unit, p.product_group,
	p.list_price, p.discontinued, p.extra`

func scanProduct(s repository.Scanner) (productRow, error) {
	var r productRow
	err := s.Scan(
		&r.ProductCode,
		&r.Name,
		&r.Description,
		&r.Unit,
		&r.ProductGroup,
		&r.ListPrice,
		&r.Discontinued,
		&r.Extra,
	)
	return r, err
}

func (r productRow) toProduct() (erp.Product, error) {
	md, err := extra(r.Extra)
	if err != nil {
		return erp.Product{}, fmt.Errorf("product %s: %w", r.ProductCode, err)
	}
	return erp.Product{
		Code:        r.ProductCode,
		Name:        r.Name,
		Description: r.Description.String,
		Unit:        r.Unit.String,
		GroupCode:   r.ProductGroup.String,
		ListPrice:   r.ListPrice,
		Active:      !r.Discontinued,
		Metadata:    md,
	}, nil
}

type offerRow struct {
	OfferNumber       string
	CustomerNumber    string
	CustomerName      string
	SalespersonNumber sql.NullString
	Reference         sql.NullString
	OfferDate         time.Time
	PaymentTermsCode  sql.NullString
	PaymentDays       sql.NullInt64
	PaymentText       sql.NullString
	Extra             []byte
}

func scanOffer(s repository.Scanner) (offerRow, error) {
	var r offerRow
	err := s.Scan(
		&r.OfferNumber,
		&r.CustomerNumber,
		&r.CustomerName,
		&r.SalespersonNumber,
		&r.Reference,
		&r.OfferDate,
		&r.PaymentTermsCode,
		&r.PaymentDays,
		&r.PaymentText,
		&r.Extra,
	)
	return r, err
}

func (r offerRow) toOffer() (erp.Offer, error) {
	md, err := extra(r.Extra)
	if err != nil {
		return erp.Offer{}, fmt.Errorf("offer %s: %w", r.OfferNumber, err)
	}

	o := erp.Offer{
		Number:            r.OfferNumber,
		CustomerNumber:    r.CustomerNumber,
		CustomerName:      r.CustomerName,
		SalespersonNumber: r.SalespersonNumber.String,
		Reference:         r.Reference.String,
		Date:              r.OfferDate,
		Metadata:          md,
	}
	if r.PaymentTermsCode.Valid {
		o.PaymentTerms = &erp.PaymentTerms{
			Code:        r.PaymentTermsCode.String,
			Days:        int(r.PaymentDays.Int64),
			Description: r.PaymentText.String,
		}
	}
	return o, nil
}

type offerLineRow struct {
	LineNo          int
	ProductCode     string
	ProductName     sql.NullString
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	LineTotal       decimal.Decimal
	Extra           []byte
}

func scanOfferLine(s repository.Scanner) (offerLineRow, error) {
	var r offerLineRow
	err := s.Scan(
		&r.LineNo,
		&r.ProductCode,
		&r.ProductName,
		&r.Quantity,
		&r.UnitPrice,
		&r.DiscountPercent,
		&r.LineTotal,
		&r.Extra,
	)
	return r, err
}

func (r offerLineRow) toLine() (erp.OfferLine, error) {
	md, err := extra(r.Extra)
	if err != nil {
		return erp.OfferLine{}, fmt.Errorf("offer line %d: %w", r.LineNo, err)
	}
	return erp.OfferLine{
		Position:        r.LineNo,
		ProductCode:     r.ProductCode,
		ProductName:     r.ProductName.String,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		DiscountPercent: r.DiscountPercent,
		Total:           r.LineTotal,
		Metadata:        md,
	}, nil
}

// extra decodes a jsonb column of ERP-specific fields into Metadata.
func extra(raw []byte) (erp.Metadata, error) {
	if len(raw) == 0 {
		return erp.Metadata{}, nil
	}
	var native map[string]any
	if err := json.Unmarshal(raw, &native); err != nil {
		return nil, fmt.Errorf("decode extra: %w", err)
	}
	return erp.Stash(native), nil
}

func encodeMetadata(md erp.Metadata) ([]byte, error) {
	if len(md) == 0 {
		return []byte(`{}`), nil
	}
	return json.Marshal(md)
}
