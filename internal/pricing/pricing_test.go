package pricing_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/pricing"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/cache"
)

var errDown = errors.New("connection refused")

type fakeSource struct {
	customerGroup map[string]pricing.Discount
	negotiated    map[string]pricing.Price
	group         map[string]pricing.Discount
	fail          map[erp.Tier]bool
	calls         int
}

func (f *fakeSource) CustomerGroupDiscount(_ context.Context, customer, group string) (pricing.Discount, bool, error) {
	f.calls++
	if f.fail[erp.TierCustomerGroupDiscount] {
		return pricing.Discount{}, false, errDown
	}
	d, ok := f.customerGroup[customer+"/"+group]
	return d, ok, nil
}

func (f *fakeSource) NegotiatedPrice(_ context.Context, customer, code string) (pricing.Price, bool, error) {
	f.calls++
	if f.fail[erp.TierNegotiatedPrice] {
		return pricing.Price{}, false, errDown
	}
	p, ok := f.negotiated[customer+"/"+code]
	return p, ok, nil
}

func (f *fakeSource) GroupDiscount(_ context.Context, customerGroup, productGroup string) (pricing.Discount, bool, error) {
	f.calls++
	if f.fail[erp.TierGeneralGroupDiscount] {
		return pricing.Discount{}, false, errDown
	}
	d, ok := f.group[customerGroup+"/"+productGroup]
	return d, ok, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func match(code, group, list, qty string) erp.Match {
	return erp.Match{
		Term:     code,
		Product:  erp.Product{Code: code, GroupCode: group, ListPrice: dec(list)},
		Quantity: dec(qty),
	}
}

var acme = erp.Customer{Number: "1001", Name: "Acme Oy", GroupCode: "WHOLESALE"}

func TestCalculateTierPrecedence(t *testing.T) {
	src := &fakeSource{
		customerGroup: map[string]pricing.Discount{"1001/PIPES": {Percent: dec("20"), Code: "AL-PIPES"}},
		negotiated: map[string]pricing.Price{
			"1001/P-1": {Net: dec("1.00"), Code: "SOP-9"},
			"1001/V-1": {Net: dec("75.00"), Code: "SOP-10"},
		},
		group: map[string]pricing.Discount{"WHOLESALE/VALVES": {Percent: dec("15"), Code: "RYH-V"}},
	}

	tests := []struct {
		name     string
		match    erp.Match
		tier     erp.Tier
		unit     string
		discount string
		total    string
		source   string
		fallback bool
	}{
		{"customer group discount beats negotiated", match("P-1", "PIPES", "10.00", "3"), erp.TierCustomerGroupDiscount, "8", "20", "24", "AL-PIPES", false},
		{"negotiated price", match("V-1", "VALVES", "100.00", "2"), erp.TierNegotiatedPrice, "75", "25", "150", "SOP-10", false},
		{"general group discount", match("V-2", "VALVES", "19.99", "1"), erp.TierGeneralGroupDiscount, "16.99", "15", "16.99", "RYH-V", false},
		{"list price", match("X-1", "MISC", "5.555", "2"), erp.TierListPrice, "5.56", "0", "11.12", "list", true},
	}

	r := pricing.NewResolver(src, false, slog.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Calculate(context.Background(), acme, []erp.Match{tt.match})
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d results, want 1", len(got))
			}

			res := got[0]
			if res.Tier != tt.tier {
				t.Errorf("tier = %v, want %v", res.Tier, tt.tier)
			}
			if !res.UnitPrice.Equal(dec(tt.unit)) {
				t.Errorf("unit = %s, want %s", res.UnitPrice, tt.unit)
			}
			if !res.DiscountPercent.Equal(dec(tt.discount)) {
				t.Errorf("discount = %s, want %s", res.DiscountPercent, tt.discount)
			}
			if !res.LineTotal.Equal(dec(tt.total)) {
				t.Errorf("total = %s, want %s", res.LineTotal, tt.total)
			}
			if res.Source != tt.source {
				t.Errorf("source = %q, want %q", res.Source, tt.source)
			}
			if res.Fallback != tt.fallback {
				t.Errorf("fallback = %v, want %v", res.Fallback, tt.fallback)
			}
		})
	}
}

func TestCalculateDegradesOnSourceFailure(t *testing.T) {
	src := &fakeSource{
		group: map[string]pricing.Discount{"WHOLESALE/PIPES": {Percent: dec("10"), Code: "RYH-P"}},
		fail:  map[erp.Tier]bool{erp.TierCustomerGroupDiscount: true},
	}
	r := pricing.NewResolver(src, false, slog.Default())

	got, err := r.Calculate(context.Background(), acme, []erp.Match{match("P-2", "PIPES", "50", "1")})
	if err != nil {
		t.Fatal(err)
	}

	res := got[0]
	if res.Tier != erp.TierGeneralGroupDiscount {
		t.Errorf("tier = %v, want general group discount", res.Tier)
	}
	if len(res.Degraded) != 1 || res.Degraded[0] != erp.TierCustomerGroupDiscount {
		t.Errorf("degraded = %v", res.Degraded)
	}
}

func TestCalculateClampsDiscount(t *testing.T) {
	src := &fakeSource{
		customerGroup: map[string]pricing.Discount{
			"1001/OVER":  {Percent: dec("150"), Code: "X"},
			"1001/UNDER": {Percent: dec("-5"), Code: "Y"},
		},
	}
	r := pricing.NewResolver(src, false, slog.Default())

	got, err := r.Calculate(context.Background(), acme, []erp.Match{
		match("A", "OVER", "10", "1"),
		match("B", "UNDER", "10", "1"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if !got[0].DiscountPercent.Equal(dec("100")) || !got[0].UnitPrice.IsZero() {
		t.Errorf("over: discount %s unit %s", got[0].DiscountPercent, got[0].UnitPrice)
	}
	if !got[1].DiscountPercent.IsZero() || !got[1].UnitPrice.Equal(dec("10")) {
		t.Errorf("under: discount %s unit %s", got[1].DiscountPercent, got[1].UnitPrice)
	}
}

func TestCalculateNegotiatedMarkup(t *testing.T) {
	src := &fakeSource{
		negotiated: map[string]pricing.Price{"1001/V-1": {Net: dec("120.00"), Code: "SOP-11"}},
	}
	r := pricing.NewResolver(src, false, slog.Default())

	got, err := r.Calculate(context.Background(), acme, []erp.Match{match("V-1", "VALVES", "100.00", "2")})
	if err != nil {
		t.Fatal(err)
	}

	res := got[0]
	if res.Tier != erp.TierNegotiatedPrice || !res.UnitPrice.Equal(dec("120")) {
		t.Errorf("tier %v unit %s, want negotiated 120", res.Tier, res.UnitPrice)
	}
	if !res.DiscountPercent.IsZero() {
		t.Errorf("discount = %s, want 0", res.DiscountPercent)
	}
	if res.Source != "SOP-11/"+pricing.SourceMarkup {
		t.Errorf("source = %q, want markup noted", res.Source)
	}
	if !res.LineTotal.Equal(dec("240")) {
		t.Errorf("line total = %s, want 240", res.LineTotal)
	}
}

func TestListOnly(t *testing.T) {
	res := pricing.ListOnly(match("CU-15", "PIPES", "4.20", "10"))

	if res.Tier != erp.TierListPrice || !res.Fallback {
		t.Errorf("tier %v fallback %v", res.Tier, res.Fallback)
	}
	if !res.UnitPrice.Equal(dec("4.20")) || !res.LineTotal.Equal(dec("42")) {
		t.Errorf("unit %s total %s", res.UnitPrice, res.LineTotal)
	}
	if len(res.Degraded) != 3 {
		t.Errorf("degraded = %v, want all discount tiers", res.Degraded)
	}
}

func TestCalculateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := pricing.NewResolver(&fakeSource{}, false, slog.Default())
	if _, err := r.Calculate(ctx, acme, []erp.Match{match("A", "G", "1", "1")}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNetPriceRoundsHalfUp(t *testing.T) {
	tests := []struct {
		list, pct, want string
	}{
		{"10.005", "0", "10.01"},
		{"0.125", "0", "0.13"},
		{"33.33", "33.33", "22.22"},
		{"100", "12.5", "87.5"},
	}

	for _, tt := range tests {
		if got := pricing.NetPrice(dec(tt.list), dec(tt.pct)); !got.Equal(dec(tt.want)) {
			t.Errorf("NetPrice(%s, %s) = %s, want %s", tt.list, tt.pct, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	rs := []pricing.Resolution{
		{Tier: erp.TierGeneralGroupDiscount, LineTotal: dec("10"), Source: "RYH-V"},
		{Tier: erp.TierListPrice, LineTotal: dec("5"), Source: "list"},
		{Tier: erp.TierGeneralGroupDiscount, LineTotal: dec("2.5"), Source: "RYH-V"},
	}

	got := pricing.Summarize(rs)
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if got[0].Tier != erp.TierGeneralGroupDiscount.String() || got[0].Lines != 2 || !got[0].Total.Equal(dec("12.5")) {
		t.Errorf("first group = %+v", got[0])
	}
	if len(got[0].Sources) != 1 {
		t.Errorf("sources = %v, want one distinct code", got[0].Sources)
	}
	if got[1].Tier != erp.TierListPrice.String() {
		t.Errorf("second group tier = %s", got[1].Tier)
	}
}

func TestCachedSource(t *testing.T) {
	src := &fakeSource{
		negotiated: map[string]pricing.Price{"1001/V-1": {Net: dec("75"), Code: "SOP-10"}},
	}
	cs := pricing.NewCachedSource(src, cache.NewMemory(), time.Minute, slog.Default())
	ctx := context.Background()

	for range 3 {
		p, ok, err := cs.NegotiatedPrice(ctx, "1001", "V-1")
		if err != nil || !ok || !p.Net.Equal(dec("75")) {
			t.Fatalf("NegotiatedPrice = %v %v %v", p, ok, err)
		}
		if _, ok, _ := cs.GroupDiscount(ctx, "WHOLESALE", "NONE"); ok {
			t.Fatal("unexpected group discount")
		}
	}

	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	src := &fakeSource{fail: map[erp.Tier]bool{erp.TierGeneralGroupDiscount: true}}
	cs := pricing.NewCachedSource(src, cache.NewMemory(), time.Minute, slog.Default())

	for range 2 {
		if _, _, err := cs.GroupDiscount(context.Background(), "A", "B"); err == nil {
			t.Fatal("expected error")
		}
	}
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
}
