package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lauripelkonen/erp-agent-sub000/internal/config"
	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080

[database]
host = "localhost"
name = "offers"
user = "offers"

[storage]
provider = "memory"

[cache]
provider = "memory"
ttl = "10m"

[erp]
type = "sql"

[workflow]
concurrency = 4
fallback_product_code = "9000"

[learning]
window_days = 7
interval = "12h"

[logging]
level = "debug"
format = "json"

[api]
base_path = "/api"
max_batch_size = 10

[api.pagination]
default_page_size = 25
max_page_size = 50
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[workflow]
concurrency = 8
`

const memoryConfig = `
[erp]
type = "memory"

[storage]
provider = "memory"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func loadFrom(t *testing.T, content string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, content)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := loadFrom(t, baseConfig)

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "offers" {
		t.Errorf("db name: got %s, want offers", cfg.Database.Name)
	}
	if cfg.Cache.TTLDuration() != 10*time.Minute {
		t.Errorf("cache ttl: got %v, want 10m", cfg.Cache.TTLDuration())
	}
	if cfg.Workflow.Concurrency != 4 {
		t.Errorf("concurrency: got %d, want 4", cfg.Workflow.Concurrency)
	}
	if cfg.Learning.WindowDays != 7 || cfg.Learning.IntervalDuration() != 12*time.Hour {
		t.Errorf("learning: got window %d interval %v", cfg.Learning.WindowDays, cfg.Learning.IntervalDuration())
	}
	if cfg.Logging.Format != config.FormatJSON {
		t.Errorf("logging format: got %s, want json", cfg.Logging.Format)
	}
	if cfg.API.MaxBatchSize != 10 {
		t.Errorf("max batch size: got %d, want 10", cfg.API.MaxBatchSize)
	}
	if cfg.API.Pagination.DefaultSize != 25 || cfg.API.Pagination.MaxSize != 50 {
		t.Errorf("pagination: got %+v", cfg.API.Pagination)
	}
	if !cfg.UsesDatabase() {
		t.Error("sql adapter should use the database")
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv(config.EnvOffersEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Name != "offers" {
		t.Errorf("db name: got %s, want offers (from base)", cfg.Database.Name)
	}
	if cfg.Workflow.Concurrency != 8 {
		t.Errorf("concurrency: got %d, want 8 (from overlay)", cfg.Workflow.Concurrency)
	}
	if cfg.Env() != "staging" {
		t.Errorf("env: got %s, want staging", cfg.Env())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	chdir(t, dir)

	t.Setenv("OFFERS_VERSION", "2.0.0")
	t.Setenv("OFFERS_SERVER_PORT", "3000")
	t.Setenv("OFFERS_WORKFLOW_CONCURRENCY", "6")
	t.Setenv("OFFERS_LOG_LEVEL", "warn")
	t.Setenv("OFFERS_API_MAX_BATCH_SIZE", "3")
	t.Setenv("OFFERS_SERVER_IDLE_TIMEOUT", "45s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Workflow.Concurrency != 6 {
		t.Errorf("concurrency: got %d, want 6", cfg.Workflow.Concurrency)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level: got %s, want warn", cfg.Logging.Level)
	}
	if cfg.API.MaxBatchSize != 3 {
		t.Errorf("max batch size: got %d, want 3", cfg.API.MaxBatchSize)
	}
	if d := cfg.Server.IdleTimeoutDuration(); d != 45*time.Second {
		t.Errorf("idle timeout: got %v, want 45s", d)
	}
}

func TestLoadMemoryMode(t *testing.T) {
	cfg := loadFrom(t, memoryConfig)

	if cfg.ERP.Type != erp.TypeMemory {
		t.Errorf("erp type: got %s, want memory", cfg.ERP.Type)
	}
	if cfg.UsesDatabase() {
		t.Error("memory mode without database settings should not use the database")
	}
	if cfg.Workflow.Concurrency != 2 {
		t.Errorf("concurrency default: got %d, want 2", cfg.Workflow.Concurrency)
	}
	if cfg.API.BasePath != "/api" || cfg.API.MaxBatchSize != 25 {
		t.Errorf("api defaults: got %+v", cfg.API)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != config.FormatText {
		t.Errorf("logging defaults: got %+v", cfg.Logging)
	}
	if d := cfg.ShutdownTimeoutDuration(); d != 30*time.Second {
		t.Errorf("shutdown timeout: got %v, want 30s", d)
	}
	if addr := cfg.Server.Addr(); addr != "0.0.0.0:8080" {
		t.Errorf("addr: got %s, want 0.0.0.0:8080", addr)
	}
	if d := cfg.Server.ReadHeaderTimeoutDuration(); d != 10*time.Second {
		t.Errorf("read header timeout: got %v, want 10s", d)
	}
	if d := cfg.Server.IdleTimeoutDuration(); d != 2*time.Minute {
		t.Errorf("idle timeout: got %v, want 2m", d)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, `server = [`)
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "invalid port",
			config:  memoryConfig + "\n[server]\nport = 99999\n",
			wantErr: "invalid port",
		},
		{
			name:    "unknown erp type",
			config:  "[erp]\ntype = \"sap\"\n[storage]\nprovider = \"memory\"\n",
			wantErr: "unknown erp type",
		},
		{
			name:    "sql without database",
			config:  "[erp]\ntype = \"sql\"\n[storage]\nprovider = \"memory\"\n",
			wantErr: "database",
		},
		{
			name:    "zero concurrency",
			config:  memoryConfig + "\n[workflow]\nconcurrency = -1\n",
			wantErr: "workflow",
		},
		{
			name:    "bad log format",
			config:  memoryConfig + "\n[logging]\nformat = \"xml\"\n",
			wantErr: "invalid format",
		},
		{
			name:    "bad learning interval",
			config:  memoryConfig + "\n[learning]\ninterval = \"soon\"\n",
			wantErr: "learning",
		},
		{
			name:    "inverted pagination",
			config:  memoryConfig + "\n[api.pagination]\ndefault_page_size = 50\nmax_page_size = 10\n",
			wantErr: "invalid pagination",
		},
		{
			name:    "bad idle timeout",
			config:  memoryConfig + "\n[server]\nidle_timeout = \"a while\"\n",
			wantErr: "invalid idle_timeout",
		},
		{
			name:    "negative header timeout",
			config:  memoryConfig + "\n[server]\nread_header_timeout = \"-5s\"\n",
			wantErr: "invalid read_header_timeout",
		},
		{
			name:    "bad shutdown timeout",
			config:  "shutdown_timeout = \"forever\"\n" + memoryConfig,
			wantErr: "invalid shutdown_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, config.BaseConfigFile, tt.config)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := config.LoggingConfig{Level: tt.level}
			if got := cfg.SlogLevel().String(); got != tt.want {
				t.Errorf("SlogLevel() = %s, want %s", got, tt.want)
			}
		})
	}
}
