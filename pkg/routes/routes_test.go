package routes_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/requests",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: ok},
			{Method: "GET", Pattern: "/{offer}", Handler: ok},
		},
		Children: []routes.Group{
			{
				Prefix: "/archive",
				Routes: []routes.Route{{Method: "POST", Pattern: "/run", Handler: ok}},
			},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", "GET", "/requests", http.StatusOK},
		{"by offer", "GET", "/requests/OF-1", http.StatusOK},
		{"nested group", "POST", "/requests/archive/run", http.StatusOK},
		{"wrong method", "POST", "/requests", http.StatusMethodNotAllowed},
		{"unknown path", "GET", "/nothing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRegisterBodyLimits(t *testing.T) {
	read := func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}

	mux := http.NewServeMux()
	routes.Register(mux,
		routes.Group{
			Prefix:  "/offers",
			MaxBody: 8,
			Routes: []routes.Route{
				{Method: "POST", Pattern: "", Handler: read},
				{Method: "POST", Pattern: "/bulk", Handler: read, MaxBody: 32},
			},
			Children: []routes.Group{
				{Prefix: "/notes", Routes: []routes.Route{{Method: "POST", Pattern: "", Handler: read}}},
			},
		},
		routes.Group{
			Prefix: "/open",
			Routes: []routes.Route{{Method: "POST", Pattern: "", Handler: read}},
		},
	)

	tests := []struct {
		name string
		path string
		size int
		want int
	}{
		{"group limit fits", "/offers", 8, http.StatusOK},
		{"group limit exceeded", "/offers", 9, http.StatusRequestEntityTooLarge},
		{"route overrides group", "/offers/bulk", 20, http.StatusOK},
		{"route limit exceeded", "/offers/bulk", 33, http.StatusRequestEntityTooLarge},
		{"child inherits", "/offers/notes", 9, http.StatusRequestEntityTooLarge},
		{"no limit", "/open", 4096, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			body := strings.NewReader(strings.Repeat("x", tt.size))
			mux.ServeHTTP(rec, httptest.NewRequest("POST", tt.path, body))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
