package lemonsoft

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

// record is one native JSON object as the API returns it.
type record map[string]any

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (r record) dec(key string) decimal.Decimal {
	s := r.str(key)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (r record) integer(key string) int {
	n, _ := strconv.Atoi(r.str(key))
	return n
}

func (r record) flag(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case json.Number:
		return v.String() != "0"
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (r record) date(key string) time.Time {
	s := r.str(key)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

var customerFields = []string{
	"customer_number", "name", "customer_group_code", "street", "postal_code", "city",
	"country", "email", "phone", "person_seller_number", "deny_trade",
}

func toCustomer(r record) erp.Customer {
	return erp.Customer{
		Number:            r.str("customer_number"),
		Name:              r.str("name"),
		GroupCode:         r.str("customer_group_code"),
		Street:            r.str("street"),
		PostalCode:        r.str("postal_code"),
		City:              r.str("city"),
		Country:           r.str("country"),
		Email:             r.str("email"),
		Phone:             r.str("phone"),
		SalespersonNumber: r.str("person_seller_number"),
		Active:            !r.flag("deny_trade"),
		Metadata:          erp.Stash(r, customerFields...),
	}
}

var personFields = []string{"person_number", "name", "email", "phone", "role"}

func toPerson(r record) erp.Person {
	return erp.Person{
		Number:   r.str("person_number"),
		Name:     r.str("name"),
		Email:    strings.ToLower(r.str("email")),
		Phone:    r.str("phone"),
		Role:     r.str("role"),
		Metadata: erp.Stash(r, personFields...),
	}
}

var productFields = []string{
	"product_code", "product_name", "product_description", "unit", "product_group_code",
	"product_price", "product_state",
}

// Product state 1 is active; other states are sales-blocked or removed.
func toProduct(r record) erp.Product {
	return erp.Product{
		Code:        r.str("product_code"),
		Name:        r.str("product_name"),
		Description: r.str("product_description"),
		Unit:        r.str("unit"),
		GroupCode:   r.str("product_group_code"),
		ListPrice:   r.dec("product_price"),
		Active:      r.integer("product_state") == 1,
		Metadata:    erp.Stash(r, productFields...),
	}
}

var offerFields = []string{
	"offer_number", "offer_customer_number", "offer_customer_name", "offer_person_seller_number",
	"offer_our_reference", "offer_date", "payment_term_code", "payment_term_days",
	"payment_term_text", "offer_rows",
}

func toOffer(r record) erp.Offer {
	o := erp.Offer{
		Number:            r.str("offer_number"),
		CustomerNumber:    r.str("offer_customer_number"),
		CustomerName:      r.str("offer_customer_name"),
		SalespersonNumber: r.str("offer_person_seller_number"),
		Reference:         r.str("offer_our_reference"),
		Date:              r.date("offer_date"),
		Metadata:          erp.Stash(r, offerFields...),
	}
	if code := r.str("payment_term_code"); code != "" {
		o.PaymentTerms = &erp.PaymentTerms{
			Code:        code,
			Days:        r.integer("payment_term_days"),
			Description: r.str("payment_term_text"),
		}
	}

	rows, _ := r["offer_rows"].([]any)
	o.Lines = make([]erp.OfferLine, 0, len(rows))
	for _, raw := range rows {
		if m, ok := raw.(map[string]any); ok {
			o.Lines = append(o.Lines, toLine(record(m)))
		}
	}
	return o
}

var lineFields = []string{
	"position", "product_code", "product_name", "amount", "unit_price", "discount", "total",
}

func toLine(r record) erp.OfferLine {
	return erp.OfferLine{
		Position:        r.integer("position"),
		ProductCode:     r.str("product_code"),
		ProductName:     r.str("product_name"),
		Quantity:        r.dec("amount"),
		UnitPrice:       r.dec("unit_price"),
		DiscountPercent: r.dec("discount"),
		Total:           r.dec("total"),
		Metadata:        erp.Stash(r, lineFields...),
	}
}

type offerBody struct {
	CustomerNumber    string         `json:"offer_customer_number"`
	CustomerName      string         `json:"offer_customer_name"`
	SalespersonNumber string         `json:"offer_person_seller_number,omitempty"`
	Reference         string         `json:"offer_our_reference,omitempty"`
	Date              string         `json:"offer_date"`
	PaymentTermCode   string         `json:"payment_term_code,omitempty"`
	Extra             map[string]any `json:"offer_extra,omitempty"`
}

func fromOffer(o erp.Offer) offerBody {
	b := offerBody{
		CustomerNumber:    o.CustomerNumber,
		CustomerName:      o.CustomerName,
		SalespersonNumber: o.SalespersonNumber,
		Reference:         o.Reference,
		Date:              o.Date.Format("2006-01-02"),
		Extra:             o.Metadata,
	}
	if o.PaymentTerms != nil {
		b.PaymentTermCode = o.PaymentTerms.Code
	}
	return b
}

type lineBody struct {
	Position    int    `json:"position"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Amount      string `json:"amount"`
	UnitPrice   string `json:"unit_price"`
	Discount    string `json:"discount"`
}

func fromLine(l erp.OfferLine) lineBody {
	return lineBody{
		Position:    l.Position,
		ProductCode: l.ProductCode,
		ProductName: l.ProductName,
		Amount:      l.Quantity.String(),
		UnitPrice:   l.UnitPrice.StringFixed(2),
		Discount:    l.DiscountPercent.String(),
	}
}
