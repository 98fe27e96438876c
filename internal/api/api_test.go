package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/internal/api"
	"github.com/lauripelkonen/erp-agent-sub000/internal/config"
	"github.com/lauripelkonen/erp-agent-sub000/internal/infrastructure"
	"github.com/lauripelkonen/erp-agent-sub000/internal/learning"
	"github.com/lauripelkonen/erp-agent-sub000/internal/requests"
	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/middleware"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/module"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
)

const seed = `
[[customers]]
number = "1001"
name = "Acme Oy"
group = "A"
salesperson = "S1"
payment_code = "14"
payment_days = 14

[[persons]]
number = "S1"
name = "Sanna Seller"
email = "sanna@example.fi"

[[products]]
code = "CU-15"
name = "Copper pipe 15mm"
group = "PIPES"
unit = "m"
list_price = "4.20"

[[products]]
code = "BV-1"
name = "Ball valve DN15"
group = "VALVES"
unit = "kpl"
list_price = "12.50"

[[products]]
code = "9000"
name = "Unmatched item"
group = "MISC"
unit = "kpl"
list_price = "0"
`

const quoteBody = "Hei,\n2 kpl CU-15\n5 kpl BV-1\n\nTerveisin,\nAcme Oy"

func newServer(t *testing.T, maxBatch int) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.toml")
	if err := os.WriteFile(seedPath, []byte(seed), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	cfg, err := config.Parse([]byte(`
[erp]
type = "memory"
seed_file = "` + filepath.ToSlash(seedPath) + `"

[storage]
provider = "memory"

[cache]
provider = "memory"

[logging]
level = "error"
`))
	if err != nil {
		t.Fatal(err)
	}
	cfg.API.MaxBatchSize = maxBatch
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	if infra.Database != nil {
		t.Fatal("memory mode should not open a database")
	}

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	infra.Lifecycle.WaitForStartup()

	router := module.NewRouter()
	router.Mount(m)

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		infra.Lifecycle.Shutdown(time.Second)
	})
	return srv
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	res, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func quote(id string) workflow.EmailData {
	return workflow.EmailData{
		ID:      id,
		Sender:  "buyer@acme.fi",
		Subject: "Tarjouspyyntö",
		Body:    quoteBody,
		Date:    time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestOfferRoundTrip(t *testing.T) {
	srv := newServer(t, 5)

	res := post(t, srv.URL+"/api/offers", workflow.BatchRequest{Emails: []workflow.EmailData{quote("m-1")}})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", res.StatusCode)
	}
	batch := decode[workflow.BatchResponse](t, res)
	if batch.Completed != 1 || len(batch.Results) != 1 {
		t.Fatalf("batch = %+v", batch)
	}
	result := batch.Results[0]
	if result.OfferNumber == "" || result.CustomerName != "Acme Oy" {
		t.Fatalf("result = %+v", result)
	}

	res = get(t, srv.URL+"/api/requests?customer=1001")
	page := decode[pagination.Result[requests.OfferRequest]](t, res)
	if page.Total != 1 || page.Data[0].OfferNumber != result.OfferNumber {
		t.Errorf("requests page = %+v", page)
	}

	res = get(t, srv.URL+"/api/requests/"+result.OfferNumber)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history status: got %d", res.StatusCode)
	}
	if history := decode[[]requests.OfferRequest](t, res); len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}

	res = get(t, srv.URL+"/api/erp/offers/"+result.OfferNumber)
	if res.StatusCode != http.StatusOK {
		t.Errorf("erp offer status: got %d, want 200", res.StatusCode)
	}

	res = post(t, srv.URL+"/api/learning/run?window_days=2", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("learning run status: got %d", res.StatusCode)
	}
	sum := decode[learning.Summary](t, res)
	if sum.Processed != 1 || sum.TotalLearnings != 0 {
		t.Errorf("summary = %+v, want one processed offer and no learnings", sum)
	}

	res = get(t, srv.URL+"/api/learning/swaps")
	if swaps := decode[pagination.Result[learning.ProductSwap]](t, res); swaps.Total != 0 {
		t.Errorf("swaps total = %d, want 0", swaps.Total)
	}
}

func TestBatchAlignsResults(t *testing.T) {
	srv := newServer(t, 5)

	bad := quote("m-2")
	bad.Sender = ""
	res := post(t, srv.URL+"/api/offers", workflow.BatchRequest{
		Emails: []workflow.EmailData{quote("m-1"), bad, quote("m-3")},
	})
	batch := decode[workflow.BatchResponse](t, res)

	if len(batch.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(batch.Results))
	}
	for i, id := range []string{"m-1", "m-2", "m-3"} {
		if batch.Results[i].EmailID != id {
			t.Errorf("result %d email = %s, want %s", i, batch.Results[i].EmailID, id)
		}
	}
	if batch.Results[1].State != workflow.StateFailed || batch.Results[1].FailedStep != workflow.StepParseEmail {
		t.Errorf("invalid email result = %+v", batch.Results[1])
	}
	if batch.Completed != 2 || batch.Failed != 1 {
		t.Errorf("completed %d failed %d, want 2 and 1", batch.Completed, batch.Failed)
	}
}

func TestRequestErrors(t *testing.T) {
	srv := newServer(t, 2)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed batch", "POST", "/api/offers", "{", http.StatusBadRequest},
		{"empty batch", "POST", "/api/offers", `{"emails":[]}`, http.StatusBadRequest},
		{"batch over limit", "POST", "/api/offers", `{"emails":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, http.StatusRequestEntityTooLarge},
		{"batch body over limit", "POST", "/api/offers", `{"emails":[{"id":"a","body":"` + strings.Repeat("x", 3<<20) + `"}]}`, http.StatusRequestEntityTooLarge},
		{"unknown offer history", "GET", "/api/requests/NOPE", "", http.StatusNotFound},
		{"unknown erp offer", "GET", "/api/erp/offers/NOPE", "", http.StatusNotFound},
		{"bad learning window", "POST", "/api/learning/run?window_days=zero", "", http.StatusBadRequest},
		{"unknown blob", "GET", "/api/storage/download/missing.json", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()

			if res.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", res.StatusCode, tt.want)
			}
		})
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newServer(t, 5)

	req, err := http.NewRequest("GET", srv.URL+"/api/status", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(middleware.RequestIDHeader, "crm-123")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if got := res.Header.Get(middleware.RequestIDHeader); got != "crm-123" {
		t.Errorf("request id: got %q, want crm-123", got)
	}

	res = get(t, srv.URL+"/api/status")
	if res.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("generated request id missing")
	}
}

func TestStatus(t *testing.T) {
	srv := newServer(t, 5)

	res := get(t, srv.URL+"/api/status")
	status := decode[api.Status](t, res)

	if status.ERP != "memory" {
		t.Errorf("erp = %s, want memory", status.ERP)
	}
	if status.Capacity != 2 || status.InFlight != 0 {
		t.Errorf("limiter = %d/%d, want 0/2", status.InFlight, status.Capacity)
	}
	if status.Durable {
		t.Error("memory mode reported as durable")
	}
	want := map[string]bool{"lemonsoft": true, "memory": true, "sql": true}
	for _, name := range status.Adapters {
		delete(want, name)
	}
	if len(want) != 0 {
		t.Errorf("adapters %v missing %v", status.Adapters, want)
	}
}
