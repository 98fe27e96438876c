package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/lauripelkonen/erp-agent-sub000/pkg/middleware"
	"github.com/lauripelkonen/erp-agent-sub000/pkg/pagination"
)

const (
	EnvAPIBasePath        = "OFFERS_API_BASE_PATH"
	EnvAPIMaxBatchSize    = "OFFERS_API_MAX_BATCH_SIZE"
	EnvAPIDefaultPageSize = "OFFERS_PAGINATION_DEFAULT_PAGE_SIZE"
	EnvAPIMaxPageSize     = "OFFERS_PAGINATION_MAX_PAGE_SIZE"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "OFFERS_CORS_ENABLED",
	Origins:          "OFFERS_CORS_ORIGINS",
	AllowedMethods:   "OFFERS_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "OFFERS_CORS_ALLOWED_HEADERS",
	AllowCredentials: "OFFERS_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "OFFERS_CORS_MAX_AGE",
}

// APIConfig holds API routing, batch limits, CORS, and pagination settings.
type APIConfig struct {
	BasePath     string                `toml:"base_path"`
	MaxBatchSize int                   `toml:"max_batch_size"`
	CORS         middleware.CORSConfig `toml:"cors"`
	Pagination   pagination.Limits     `toml:"pagination"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS settings.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxBatchSize != 0 {
		c.MaxBatchSize = overlay.MaxBatchSize
	}
	if overlay.Pagination.DefaultSize != 0 {
		c.Pagination.DefaultSize = overlay.Pagination.DefaultSize
	}
	if overlay.Pagination.MaxSize != 0 {
		c.Pagination.MaxSize = overlay.Pagination.MaxSize
	}

	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = 25
	}
	if c.Pagination.DefaultSize == 0 {
		c.Pagination.DefaultSize = pagination.DefaultLimits.DefaultSize
	}
	if c.Pagination.MaxSize == 0 {
		c.Pagination.MaxSize = pagination.DefaultLimits.MaxSize
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
	envInt(EnvAPIMaxBatchSize, &c.MaxBatchSize)
	envInt(EnvAPIDefaultPageSize, &c.Pagination.DefaultSize)
	envInt(EnvAPIMaxPageSize, &c.Pagination.MaxSize)
}

func (c *APIConfig) validate() error {
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("invalid max_batch_size: %d", c.MaxBatchSize)
	}
	if c.Pagination.DefaultSize < 1 || c.Pagination.MaxSize < c.Pagination.DefaultSize {
		return fmt.Errorf("invalid pagination: default %d, max %d",
			c.Pagination.DefaultSize, c.Pagination.MaxSize)
	}
	return nil
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
