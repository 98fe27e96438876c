package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()

	if err := s.Upload(ctx, "a/b.json", strings.NewReader(`{"ok":true}`), "application/json"); err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	body, err := s.Download(ctx, "a/b.json")
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	defer body.Close()

	data, _ := io.ReadAll(body)
	if string(data) != `{"ok":true}` {
		t.Errorf("Download = %q", data)
	}

	if err := s.Delete(ctx, "a/b.json"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Download(ctx, "a/b.json"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download after delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryAppend(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()

	for _, line := range []string{"first\n", "second\n"} {
		if err := s.Append(ctx, "rules.md", line); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	got, err := storage.ReadString(ctx, s, "rules.md")
	if err != nil {
		t.Fatalf("ReadString error: %v", err)
	}
	if got != "first\nsecond\n" {
		t.Errorf("ReadString = %q", got)
	}

	missing, err := storage.ReadString(ctx, s, "missing.md")
	if err != nil || missing != "" {
		t.Errorf("ReadString(missing) = %q, %v; want empty, nil", missing, err)
	}
}

func TestKeyValidation(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemory()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "../etc/passwd", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Upload(ctx, tt.key, strings.NewReader("x"), "text/plain")
			if !errors.Is(err, tt.want) {
				t.Errorf("Upload(%q) error = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Run("memory needs no connection string", func(t *testing.T) {
		cfg := storage.Config{Provider: storage.ProviderMemory}
		if err := cfg.Finalize(nil); err != nil {
			t.Errorf("Finalize error: %v", err)
		}
	})

	t.Run("azure requires connection string", func(t *testing.T) {
		cfg := storage.Config{}
		if err := cfg.Finalize(nil); err == nil {
			t.Error("expected error for missing connection_string")
		}
	})

	t.Run("env override", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_PROVIDER", "memory")
		cfg := storage.Config{Provider: storage.ProviderAzure}
		if err := cfg.Finalize(&storage.Env{Provider: "TEST_STORAGE_PROVIDER"}); err != nil {
			t.Fatalf("Finalize error: %v", err)
		}
		if cfg.Provider != storage.ProviderMemory {
			t.Errorf("Provider = %q, want memory", cfg.Provider)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := storage.Config{Provider: "s3"}
		if err := cfg.Finalize(nil); !errors.Is(err, storage.ErrUnknownProvider) {
			t.Errorf("Finalize error = %v, want ErrUnknownProvider", err)
		}
	})
}

// blobEndpoint serves the append-blob calls of the Azure client from memory.
type blobEndpoint struct {
	mu    sync.Mutex
	blobs map[string][]byte
	calls []string
}

func (b *blobEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	comp := r.URL.Query().Get("comp")
	b.calls = append(b.calls, r.Method+" "+comp)

	switch {
	case r.Method == http.MethodPut && comp == "appendblock":
		data, ok := b.blobs[r.URL.Path]
		if !ok {
			w.Header().Set("x-ms-error-code", "BlobNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		b.blobs[r.URL.Path] = append(data, body...)
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodPut && r.Header.Get("x-ms-blob-type") == "AppendBlob":
		b.blobs[r.URL.Path] = []byte{}
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func TestAzureAppendUsesAppendBlob(t *testing.T) {
	endpoint := &blobEndpoint{blobs: map[string][]byte{}}
	srv := httptest.NewServer(endpoint)
	defer srv.Close()

	cfg := &storage.Config{
		Provider:      storage.ProviderAzure,
		ContainerName: "offers",
		ConnectionString: "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
			"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
			"BlobEndpoint=" + srv.URL + "/devstoreaccount1;",
	}
	s, err := storage.New(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx := context.Background()
	for _, line := range []string{"- first\n", "- second\n"} {
		if err := s.Append(ctx, "learnings/rules.md", line); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	endpoint.mu.Lock()
	defer endpoint.mu.Unlock()

	want := []string{"PUT appendblock", "PUT ", "PUT appendblock", "PUT appendblock"}
	if strings.Join(endpoint.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %q, want %q", endpoint.calls, want)
	}
	got := string(endpoint.blobs["/devstoreaccount1/offers/learnings/rules.md"])
	if got != "- first\n- second\n" {
		t.Errorf("blob = %q", got)
	}
}
