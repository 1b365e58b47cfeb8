package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout))
	}

	seen := make(map[string]bool)
	for i, p := range c.Providers {
		if !p.ID.IsValid() {
			errs = append(errs, fmt.Errorf("providers[%d].id: unknown provider %q", i, p.ID))
			continue
		}
		if seen[p.ID.String()] {
			errs = append(errs, fmt.Errorf("providers[%d].id: duplicate provider %q", i, p.ID))
		}
		seen[p.ID.String()] = true

		if p.BaseURL != "" {
			u, err := url.Parse(p.BaseURL)
			if err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("providers[%d].base_url: invalid URL %q", i, p.BaseURL))
			}
		}
	}

	switch c.Observability.LogLevel {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		errs = append(errs, fmt.Errorf("observability.log_level must be debug, info, warn or error, got %q", c.Observability.LogLevel))
	}

	return errors.Join(errs...)
}
