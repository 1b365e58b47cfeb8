// Package config provides provider configuration for meridian-stream.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults (every known provider, public base URLs, standard key variables)
//  2. .env file discovered by walking up from the working directory
//  3. YAML config file (discovered or explicitly specified)
//  4. API key resolution (api_key, then api_key_file, then api_key_env)
//  5. Validation
package config

import (
	"time"

	"github.com/haowjy/meridian-stream"
)

// Config holds all configuration for building a provider Registry.
type Config struct {
	UserAgent     string              `yaml:"user_agent"`
	Timeout       time.Duration       `yaml:"timeout"` // wait for response headers; streams may run longer
	Catalog       string              `yaml:"catalog"` // optional extra model catalog YAML
	Providers     []ProviderConfig    `yaml:"providers"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfig describes one vendor.
type ProviderConfig struct {
	ID           llmprovider.ProviderID `yaml:"id"`
	Disabled     bool                   `yaml:"disabled"`
	BaseURL      string                 `yaml:"base_url"`     // default: vendor public API
	APIKey       string                 `yaml:"api_key"`      // discouraged; prefer api_key_env
	APIKeyFile   string                 `yaml:"api_key_file"` // _file variant for api_key
	APIKeyEnv    string                 `yaml:"api_key_env"`  // default: <VENDOR>_API_KEY
	Organization string                 `yaml:"organization"` // OpenAI only
	Referer      string                 `yaml:"referer"`      // OpenRouter HTTP-Referer
	Title        string                 `yaml:"title"`        // OpenRouter X-Title
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"` // "debug", "info", "warn", "error"; default: "warn"
}

// MetricsConfig holds Prometheus collector settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: false
}

// defaultKeyEnv maps providers to their conventional API key variable.
var defaultKeyEnv = map[llmprovider.ProviderID]string{
	llmprovider.ProviderAnthropic:  "ANTHROPIC_API_KEY",
	llmprovider.ProviderOpenAI:     "OPENAI_API_KEY",
	llmprovider.ProviderCohere:     "COHERE_API_KEY",
	llmprovider.ProviderOpenRouter: "OPENROUTER_API_KEY",
}

// Defaults returns a Config with every known provider enabled.
func Defaults() Config {
	return Config{
		UserAgent: llmprovider.DefaultUserAgent,
		Timeout:   120 * time.Second,
		Providers: []ProviderConfig{
			{ID: llmprovider.ProviderAnthropic, APIKeyEnv: defaultKeyEnv[llmprovider.ProviderAnthropic]},
			{ID: llmprovider.ProviderOpenAI, APIKeyEnv: defaultKeyEnv[llmprovider.ProviderOpenAI]},
			{ID: llmprovider.ProviderCohere, APIKeyEnv: defaultKeyEnv[llmprovider.ProviderCohere]},
			{ID: llmprovider.ProviderOpenRouter, APIKeyEnv: defaultKeyEnv[llmprovider.ProviderOpenRouter]},
		},
		Observability: ObservabilityConfig{
			LogLevel: "warn",
		},
	}
}

// Provider returns the configuration for id.
func (c *Config) Provider(id llmprovider.ProviderID) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
