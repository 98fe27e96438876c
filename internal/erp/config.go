package erp

import (
	"fmt"
	"os"
	"time"
)

// Supported adapter types.
const (
	TypeSQL       = "sql"
	TypeLemonsoft = "lemonsoft"
	TypeMemory    = "memory"
)

// Config selects and parameterizes the ERP adapter set.
type Config struct {
	Type      string          `toml:"type"`
	Lemonsoft LemonsoftConfig `toml:"lemonsoft"`
	SeedFile  string          `toml:"seed_file"`
}

// LemonsoftConfig holds the REST API parameters for the lemonsoft adapter.
type LemonsoftConfig struct {
	BaseURL  string `toml:"base_url"`
	Token    string `toml:"token"`
	Database string `toml:"database"`
	Timeout  string `toml:"timeout"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *LemonsoftConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Type              string
	LemonsoftBaseURL  string
	LemonsoftToken    string
	LemonsoftDatabase string
	SeedFile          string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Type != "" {
		c.Type = overlay.Type
	}
	if overlay.SeedFile != "" {
		c.SeedFile = overlay.SeedFile
	}
	if overlay.Lemonsoft.BaseURL != "" {
		c.Lemonsoft.BaseURL = overlay.Lemonsoft.BaseURL
	}
	if overlay.Lemonsoft.Token != "" {
		c.Lemonsoft.Token = overlay.Lemonsoft.Token
	}
	if overlay.Lemonsoft.Database != "" {
		c.Lemonsoft.Database = overlay.Lemonsoft.Database
	}
	if overlay.Lemonsoft.Timeout != "" {
		c.Lemonsoft.Timeout = overlay.Lemonsoft.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Type == "" {
		c.Type = TypeSQL
	}
	if c.Lemonsoft.Timeout == "" {
		c.Lemonsoft.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Type, &c.Type)
	set(env.LemonsoftBaseURL, &c.Lemonsoft.BaseURL)
	set(env.LemonsoftToken, &c.Lemonsoft.Token)
	set(env.LemonsoftDatabase, &c.Lemonsoft.Database)
	set(env.SeedFile, &c.SeedFile)
}

func (c *Config) validate() error {
	switch c.Type {
	case TypeSQL, TypeMemory:
	case TypeLemonsoft:
		if c.Lemonsoft.BaseURL == "" {
			return fmt.Errorf("lemonsoft.base_url required")
		}
		if _, err := time.ParseDuration(c.Lemonsoft.Timeout); err != nil {
			return fmt.Errorf("invalid lemonsoft.timeout: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
	}
	return nil
}
