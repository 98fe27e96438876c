package database_test

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "offers", User: "offers"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 10},
		{"max_idle_conns", cfg.MaxIdleConns, 2},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://u:p@db:5432/offers")
	t.Setenv("TEST_DB_MAX_OPEN", "50")

	cfg := database.Config{}
	err := cfg.Finalize(&database.Env{URL: "TEST_DB_URL", MaxOpenConns: "TEST_DB_MAX_OPEN"})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.Dsn() != "postgres://u:p@db:5432/offers" {
		t.Errorf("dsn: got %s", cfg.Dsn())
	}
	if cfg.MaxOpenConns != 50 {
		t.Errorf("max_open_conns: got %d, want 50", cfg.MaxOpenConns)
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{"missing name", database.Config{User: "u"}, "name required"},
		{"missing user", database.Config{Name: "n"}, "user required"},
		{"bad lifetime", database.Config{Name: "n", User: "u", ConnMaxLifetime: "long"}, "conn_max_lifetime"},
		{"bad timeout", database.Config{Name: "n", User: "u", ConnTimeout: "soon"}, "conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestDsnFromFields(t *testing.T) {
	cfg := database.Config{Host: "h", Port: 1, Name: "n", User: "u", Password: "p", SSLMode: "require"}
	want := "host=h port=1 dbname=n user=u password=p sslmode=require"
	if got := cfg.Dsn(); got != want {
		t.Errorf("dsn: got %q, want %q", got, want)
	}
}

func TestNewSetsPoolParams(t *testing.T) {
	cfg := database.Config{Name: "offers", User: "offers", MaxOpenConns: 42}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatal(err)
	}

	sys, err := database.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	conn := sys.Connection()
	defer conn.Close()

	if stats := conn.Stats(); stats.MaxOpenConnections != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", stats.MaxOpenConnections)
	}
	if sys.Ready() {
		t.Error("system should not be ready before startup ping")
	}
}
