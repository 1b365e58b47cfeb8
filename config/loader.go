package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. .env file (nearest one walking up from the working directory)
//  3. YAML config file (explicit path, MERIDIAN_STREAM_CONFIG env, ./meridian-stream.yaml)
//  4. API key resolution
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	LoadEnv()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := resolveAPIKeys(&cfg); err != nil {
		return nil, fmt.Errorf("resolving api keys: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// LoadEnv searches for a .env file starting from the current directory
// and walking up the directory tree. It loads the first .env file found.
// If no .env file is found, it silently continues (using system env vars).
// Variables already set in the environment are not overridden.
func LoadEnv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return ""
			}
			return envPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop
			return ""
		}
		dir = parent
	}
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MERIDIAN_STREAM_CONFIG environment variable
// 3. ./meridian-stream.yaml in the current directory
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("MERIDIAN_STREAM_CONFIG"); envPath != "" {
		return envPath
	}

	if _, err := os.Stat("meridian-stream.yaml"); err == nil {
		return "meridian-stream.yaml"
	}

	return ""
}

// loadYAMLFile reads a YAML file over cfg. Provider entries are merged by id
// so a file only needs to list the fields it changes.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	defaults := cfg.Providers
	cfg.Providers = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.Providers = mergeProviders(defaults, cfg.Providers)
	return nil
}

// mergeProviders overlays file entries onto defaults. Entries for unknown
// ids are appended so validation can report them.
func mergeProviders(defaults, overrides []ProviderConfig) []ProviderConfig {
	out := make([]ProviderConfig, len(defaults))
	copy(out, defaults)

	for _, o := range overrides {
		merged := false
		for i := range out {
			if out[i].ID != o.ID {
				continue
			}
			out[i] = overlay(out[i], o)
			merged = true
			break
		}
		if !merged {
			out = append(out, o)
		}
	}
	return out
}

func overlay(base, o ProviderConfig) ProviderConfig {
	base.Disabled = o.Disabled
	if o.BaseURL != "" {
		base.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		base.APIKey = o.APIKey
	}
	if o.APIKeyFile != "" {
		base.APIKeyFile = o.APIKeyFile
	}
	if o.APIKeyEnv != "" {
		base.APIKeyEnv = o.APIKeyEnv
	}
	if o.Organization != "" {
		base.Organization = o.Organization
	}
	if o.Referer != "" {
		base.Referer = o.Referer
	}
	if o.Title != "" {
		base.Title = o.Title
	}
	return base
}

// resolveAPIKeys fills APIKey from api_key_file or api_key_env when unset.
// A provider without any key stays enabled; its requests go out unauthenticated.
func resolveAPIKeys(cfg *Config) error {
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.APIKey != "" {
			continue
		}
		if p.APIKeyFile != "" {
			val, err := readSecretFile(p.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers[%s].api_key_file: %w", p.ID, err)
			}
			p.APIKey = val
			continue
		}
		if p.APIKeyEnv != "" {
			p.APIKey = strings.TrimSpace(os.Getenv(p.APIKeyEnv))
		}
	}
	return nil
}

// readSecretFile reads a file and returns its contents with whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
