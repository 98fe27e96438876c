package erp_test

import (
	"errors"
	"testing"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     erp.Config
		wantErr bool
	}{
		{"defaults to sql", erp.Config{}, false},
		{"memory", erp.Config{Type: erp.TypeMemory}, false},
		{"lemonsoft without url", erp.Config{Type: erp.TypeLemonsoft}, true},
		{"lemonsoft", erp.Config{Type: erp.TypeLemonsoft, Lemonsoft: erp.LemonsoftConfig{BaseURL: "http://erp"}}, false},
		{"bad timeout", erp.Config{Type: erp.TypeLemonsoft, Lemonsoft: erp.LemonsoftConfig{BaseURL: "http://erp", Timeout: "soon"}}, true},
		{"unknown", erp.Config{Type: "sap"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg erp.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}
	if cfg.Type != erp.TypeSQL {
		t.Errorf("Type = %q, want %q", cfg.Type, erp.TypeSQL)
	}
	if got := cfg.Lemonsoft.TimeoutDuration(); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("TEST_ERP_TYPE", "memory")
	t.Setenv("TEST_ERP_SEED", "seed.toml")

	var cfg erp.Config
	err := cfg.Finalize(&erp.Env{Type: "TEST_ERP_TYPE", SeedFile: "TEST_ERP_SEED"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != erp.TypeMemory || cfg.SeedFile != "seed.toml" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestConfigMerge(t *testing.T) {
	base := erp.Config{Type: erp.TypeSQL, Lemonsoft: erp.LemonsoftConfig{Timeout: "10s"}}
	base.Merge(&erp.Config{Type: erp.TypeLemonsoft, Lemonsoft: erp.LemonsoftConfig{BaseURL: "http://erp"}})

	if base.Type != erp.TypeLemonsoft || base.Lemonsoft.BaseURL != "http://erp" || base.Lemonsoft.Timeout != "10s" {
		t.Errorf("merge result = %+v", base)
	}
}

func TestOpenUnknownType(t *testing.T) {
	_, err := erp.Open(erp.Deps{Config: erp.Config{Type: "nope"}})
	if !errors.Is(err, erp.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestOpenRegistered(t *testing.T) {
	erp.Register("test-open", func(deps erp.Deps) (*erp.System, error) {
		return &erp.System{}, nil
	})

	sys, err := erp.Open(erp.Deps{Config: erp.Config{Type: "test-open"}})
	if err != nil {
		t.Fatal(err)
	}
	if sys.Name != "test-open" {
		t.Errorf("Name = %q, want test-open", sys.Name)
	}
}

func TestMetadataStash(t *testing.T) {
	native := map[string]any{"number": "C1", "credit_limit": 5000, "vat": "FI123"}
	md := erp.Stash(native, "number")

	if _, ok := md["number"]; ok {
		t.Error("normalized key leaked into metadata")
	}
	if md.String("credit_limit") != "5000" || md.String("vat") != "FI123" {
		t.Errorf("metadata = %v", md)
	}
	if md.String("missing") != "" {
		t.Error("missing key should be empty")
	}
}
