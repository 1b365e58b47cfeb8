package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/observability"
	"github.com/haowjy/meridian-stream/providers/anthropic"
	"github.com/haowjy/meridian-stream/providers/cohere"
	"github.com/haowjy/meridian-stream/providers/openai"
	"github.com/haowjy/meridian-stream/providers/openrouter"
)

// Runtime is everything built from a Config.
type Runtime struct {
	Registry   *llmprovider.Registry
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *observability.Metrics // nil unless observability.metrics.enabled
}

// Build constructs adapters, credentials and the HTTP client described by c.
// Metrics are registered with reg when enabled; a nil reg uses the default registerer.
func (c *Config) Build(reg prometheus.Registerer) (*Runtime, error) {
	catalog := llmprovider.DefaultCatalog()
	if c.Catalog != "" {
		catalog = llmprovider.NewCatalog()
		if err := catalog.LoadFile(c.Catalog); err != nil {
			return nil, fmt.Errorf("loading catalog %s: %w", c.Catalog, err)
		}
	}

	rt := &Runtime{
		Registry: llmprovider.NewRegistry(catalog),
		Logger:   c.newLogger(),
	}

	// Timeout bounds the wait for response headers only; a stream may run
	// longer than it once the vendor starts answering.
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = c.Timeout

	var transport http.RoundTripper = base
	if c.Observability.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		rt.Metrics = observability.NewMetrics(reg)
		transport = rt.Metrics.InstrumentTransport(transport)
	}
	rt.HTTPClient = &http.Client{Transport: transport}

	for _, p := range c.Providers {
		if p.Disabled {
			continue
		}

		opts := []llmprovider.Option{
			llmprovider.WithCredentials(rt.Registry),
			llmprovider.WithUserAgent(c.UserAgent),
			llmprovider.WithLogger(rt.Logger),
		}
		if p.BaseURL != "" {
			opts = append(opts, llmprovider.WithBaseURL(p.BaseURL))
		}
		if rt.Metrics != nil {
			opts = append(opts, llmprovider.WithObserver(rt.Metrics))
		}

		adapter, err := newAdapter(p, opts)
		if err != nil {
			return nil, err
		}
		rt.Registry.Register(adapter)
		rt.Registry.SetAuth(p.ID, llmprovider.Auth{APIKey: p.APIKey, Organization: p.Organization})
	}

	return rt, nil
}

func newAdapter(p ProviderConfig, opts []llmprovider.Option) (llmprovider.Adapter, error) {
	switch p.ID {
	case llmprovider.ProviderAnthropic:
		return anthropic.NewProvider(opts...), nil
	case llmprovider.ProviderOpenAI:
		return openai.NewProvider(opts...), nil
	case llmprovider.ProviderCohere:
		return cohere.NewProvider(opts...), nil
	case llmprovider.ProviderOpenRouter:
		opts = append(opts, openrouter.WithAttribution(p.Referer, p.Title))
		return openrouter.NewProvider(opts...), nil
	default:
		return nil, &llmprovider.LookupError{Key: p.ID.String(), Err: llmprovider.ErrUnknownProvider}
	}
}

func (c *Config) newLogger() *slog.Logger {
	var level slog.Level
	switch c.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
