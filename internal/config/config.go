package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lauripelkonen/erp-agent-sub000/internal/erp"
	"github.com/lauripelkonen/erp-agent-sub000/internal/learning"
	"github.com/lauripelkonen/erp-agent-sub000/internal/workflow"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/cache"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/database"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvOffersEnv             = "OFFERS_ENV"
	EnvOffersShutdownTimeout = "OFFERS_SHUTDOWN_TIMEOUT"
	EnvOffersVersion         = "OFFERS_VERSION"
)

var databaseEnv = &database.Env{
	URL:             "OFFERS_DB_URL",
	Host:            "OFFERS_DB_HOST",
	Port:            "OFFERS_DB_PORT",
	Name:            "OFFERS_DB_NAME",
	User:            "OFFERS_DB_USER",
	Password:        "OFFERS_DB_PASSWORD",
	SSLMode:         "OFFERS_DB_SSL_MODE",
	MaxOpenConns:    "OFFERS_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "OFFERS_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "OFFERS_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "OFFERS_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "OFFERS_STORAGE_PROVIDER",
	ContainerName:    "OFFERS_STORAGE_CONTAINER_NAME",
	ConnectionString: "OFFERS_STORAGE_CONNECTION_STRING",
}

var cacheEnv = &cache.Env{
	Provider: "OFFERS_CACHE_PROVIDER",
	Addr:     "OFFERS_CACHE_ADDR",
	Password: "OFFERS_CACHE_PASSWORD",
	DB:       "OFFERS_CACHE_DB",
	TTL:      "OFFERS_CACHE_TTL",
}

var erpEnv = &erp.Env{
	Type:              "OFFERS_ERP_TYPE",
	LemonsoftBaseURL:  "OFFERS_LEMONSOFT_BASE_URL",
	LemonsoftToken:    "OFFERS_LEMONSOFT_TOKEN",
	LemonsoftDatabase: "OFFERS_LEMONSOFT_DATABASE",
	SeedFile:          "OFFERS_ERP_SEED_FILE",
}

var workflowEnv = &workflow.Env{
	Concurrency:              "OFFERS_WORKFLOW_CONCURRENCY",
	FallbackProductCode:      "OFFERS_WORKFLOW_FALLBACK_PRODUCT_CODE",
	FallbackCustomerNumber:   "OFFERS_WORKFLOW_FALLBACK_CUSTOMER_NUMBER",
	DefaultSalespersonNumber: "OFFERS_WORKFLOW_DEFAULT_SALESPERSON_NUMBER",
}

var learningEnv = &learning.Env{
	Enabled:    "OFFERS_LEARNING_ENABLED",
	WindowDays: "OFFERS_LEARNING_WINDOW_DAYS",
	Interval:   "OFFERS_LEARNING_INTERVAL",
}

// Config is the root configuration for the offer automation service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Cache           cache.Config    `toml:"cache"`
	ERP             erp.Config      `toml:"erp"`
	Workflow        workflow.Config `toml:"workflow"`
	Learning        learning.Config `toml:"learning"`
	Logging         LoggingConfig   `toml:"logging"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the OFFERS_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvOffersEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// UsesDatabase reports whether a PostgreSQL connection is configured.
// The sql adapter always needs one; otherwise a URL or database name opts in.
func (c *Config) UsesDatabase() bool {
	return c.ERP.Type == erp.TypeSQL || c.Database.URL != "" || c.Database.Name != ""
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Parse decodes a TOML document into a Config without finalizing it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Cache.Merge(&overlay.Cache)
	c.ERP.Merge(&overlay.ERP)
	c.Workflow.Merge(&overlay.Workflow)
	c.Learning.Merge(&overlay.Learning)
	c.Logging.Merge(&overlay.Logging)
	c.API.Merge(&overlay.API)
}

// Finalize applies defaults, environment overrides, and validation to every
// sub-config. The database section is only validated when UsesDatabase.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.ERP.Finalize(erpEnv); err != nil {
		return fmt.Errorf("erp: %w", err)
	}
	if c.UsesDatabase() || os.Getenv(databaseEnv.URL) != "" || os.Getenv(databaseEnv.Name) != "" {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Learning.Finalize(learningEnv); err != nil {
		return fmt.Errorf("learning: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvOffersShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvOffersVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvOffersEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
