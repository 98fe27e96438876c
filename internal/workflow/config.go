package workflow

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds orchestration policy. Confidence floors are in [0, 1].
type Config struct {
	Concurrency              int     `toml:"concurrency"`
	CompanyConfidenceFloor   float64 `toml:"company_confidence_floor"`
	ProductConfidenceFloor   float64 `toml:"product_confidence_floor"`
	FallbackProductCode      string  `toml:"fallback_product_code"`
	FallbackCustomerNumber   string  `toml:"fallback_customer_number"`
	DefaultSalespersonNumber string  `toml:"default_salesperson_number"`
	CustomerSearchLimit      int     `toml:"customer_search_limit"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Concurrency              string
	FallbackProductCode      string
	FallbackCustomerNumber   string
	DefaultSalespersonNumber string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.CompanyConfidenceFloor != 0 {
		c.CompanyConfidenceFloor = overlay.CompanyConfidenceFloor
	}
	if overlay.ProductConfidenceFloor != 0 {
		c.ProductConfidenceFloor = overlay.ProductConfidenceFloor
	}
	if overlay.FallbackProductCode != "" {
		c.FallbackProductCode = overlay.FallbackProductCode
	}
	if overlay.FallbackCustomerNumber != "" {
		c.FallbackCustomerNumber = overlay.FallbackCustomerNumber
	}
	if overlay.DefaultSalespersonNumber != "" {
		c.DefaultSalespersonNumber = overlay.DefaultSalespersonNumber
	}
	if overlay.CustomerSearchLimit != 0 {
		c.CustomerSearchLimit = overlay.CustomerSearchLimit
	}
}

func (c *Config) loadDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 2
	}
	if c.CompanyConfidenceFloor == 0 {
		c.CompanyConfidenceFloor = 0.6
	}
	if c.ProductConfidenceFloor == 0 {
		c.ProductConfidenceFloor = 0.6
	}
	if c.FallbackProductCode == "" {
		c.FallbackProductCode = "9000"
	}
	if c.CustomerSearchLimit == 0 {
		c.CustomerSearchLimit = 5
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.Concurrency != "" {
		if v := os.Getenv(env.Concurrency); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.Concurrency, err)
			}
			c.Concurrency = n
		}
	}
	if env.FallbackProductCode != "" {
		if v := os.Getenv(env.FallbackProductCode); v != "" {
			c.FallbackProductCode = v
		}
	}
	if env.FallbackCustomerNumber != "" {
		if v := os.Getenv(env.FallbackCustomerNumber); v != "" {
			c.FallbackCustomerNumber = v
		}
	}
	if env.DefaultSalespersonNumber != "" {
		if v := os.Getenv(env.DefaultSalespersonNumber); v != "" {
			c.DefaultSalespersonNumber = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.CompanyConfidenceFloor < 0 || c.CompanyConfidenceFloor > 1 {
		return fmt.Errorf("company_confidence_floor must be in [0,1]")
	}
	if c.ProductConfidenceFloor < 0 || c.ProductConfidenceFloor > 1 {
		return fmt.Errorf("product_confidence_floor must be in [0,1]")
	}
	if c.CustomerSearchLimit < 1 {
		return fmt.Errorf("customer_search_limit must be positive")
	}
	return nil
}
