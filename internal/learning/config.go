package learning

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the learning schedule and classification policy.
type Config struct {
	Enabled    *bool      `toml:"enabled"`
	WindowDays int        `toml:"window_days"`
	Interval   string     `toml:"interval"`
	RulesKey   string     `toml:"rules_key"`
	Thresholds Thresholds `toml:"thresholds"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled    string
	WindowDays string
	Interval   string
}

// IsEnabled reports whether scheduled runs are on. Unset means on.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
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
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.WindowDays != 0 {
		c.WindowDays = overlay.WindowDays
	}
	if overlay.Interval != "" {
		c.Interval = overlay.Interval
	}
	if overlay.RulesKey != "" {
		c.RulesKey = overlay.RulesKey
	}
	if overlay.Thresholds.SpecificConfidence != 0 {
		c.Thresholds.SpecificConfidence = overlay.Thresholds.SpecificConfidence
	}
	if overlay.Thresholds.GeneralMinConfidence != 0 {
		c.Thresholds.GeneralMinConfidence = overlay.Thresholds.GeneralMinConfidence
	}
}

func (c *Config) loadDefaults() {
	if c.WindowDays == 0 {
		c.WindowDays = 3
	}
	if c.Interval == "" {
		c.Interval = "24h"
	}
	if c.RulesKey == "" {
		c.RulesKey = "learnings/general_rules.md"
	}
	if c.Thresholds.SpecificConfidence == 0 {
		c.Thresholds.SpecificConfidence = 0.95
	}
	if c.Thresholds.GeneralMinConfidence == 0 {
		c.Thresholds.GeneralMinConfidence = 0.9
	}
}

func (c *Config) loadEnv(env *Env) error {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.Enabled, err)
			}
			c.Enabled = &b
		}
	}
	if env.WindowDays != "" {
		if v := os.Getenv(env.WindowDays); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", env.WindowDays, err)
			}
			c.WindowDays = n
		}
	}
	if env.Interval != "" {
		if v := os.Getenv(env.Interval); v != "" {
			c.Interval = v
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.WindowDays < 1 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	for name, v := range map[string]float64{
		"specific_confidence":    c.Thresholds.SpecificConfidence,
		"general_min_confidence": c.Thresholds.GeneralMinConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1]", name)
		}
	}
	return nil
}
