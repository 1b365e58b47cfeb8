package openrouter

import (
	"context"
	"net/http"
	"strings"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/providers/openai"
)

// DefaultBaseURL is the OpenRouter API
const DefaultBaseURL = "https://openrouter.ai/api/v1"

var endpoints = llmprovider.EndpointPaths{
	llmprovider.EndpointChat:       "chat/completions",
	llmprovider.EndpointCompletion: "completions",
	llmprovider.EndpointModels:     "models",
}

// Provider implements llmprovider.Adapter for OpenRouter's unified API.
// OpenRouter proxies requests to multiple LLM providers (Anthropic, OpenAI, Google, etc.)
// using an OpenAI-compatible format, so wire decoding is shared with the openai package.
//
// Common Issues:
// - 404 errors: Verify model name at https://openrouter.ai/models
// - Reasoning: only reasoning-enabled models send reasoning_details
type Provider struct {
	opts llmprovider.AdapterOptions
}

// NewProvider creates an OpenRouter adapter.
func NewProvider(opts ...llmprovider.Option) *Provider {
	return &Provider{
		opts: llmprovider.ApplyOptions(llmprovider.AdapterOptions{BaseURL: DefaultBaseURL}, opts...),
	}
}

// WithAttribution sets the app attribution headers OpenRouter uses for rankings.
func WithAttribution(referer, title string) llmprovider.Option {
	return func(o *llmprovider.AdapterOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}
		if referer != "" {
			o.Headers.Set("HTTP-Referer", referer)
		}
		if title != "" {
			o.Headers.Set("X-Title", title)
		}
	}
}

// ID returns the provider identifier.
func (p *Provider) ID() llmprovider.ProviderID {
	return llmprovider.ProviderOpenRouter
}

// SupportsModel returns true if this provider supports the given model.
// OpenRouter supports models in "provider/model" format (e.g., "anthropic/claude-3.5-sonnet")
// or special models like "openrouter/auto"
func (p *Provider) SupportsModel(model string) bool {
	return strings.Contains(model, "/")
}

// BuildURL returns the URL for kind.
func (p *Provider) BuildURL(kind llmprovider.EndpointKind, suffix string) (string, error) {
	return endpoints.Resolve(p.ID(), p.opts.BaseURL, kind, suffix)
}

// NewRequest builds a request with bearer auth and attribution headers.
func (p *Provider) NewRequest(ctx context.Context, url, method string, body any, streaming bool) (*http.Request, error) {
	spec := llmprovider.RequestSpec{
		URL:         url,
		Method:      method,
		Body:        body,
		Streaming:   streaming,
		StreamField: true,
		UserAgent:   p.opts.UserAgent,
		Headers:     p.opts.Headers,
		AuthHeader:  "Authorization",
		AuthScheme:  "Bearer ",
	}
	if auth, ok := p.opts.Credential(p.ID()); ok {
		spec.APIKey = auth.APIKey
	}
	return llmprovider.BuildRequest(ctx, spec)
}

// DecodeStream decodes an OpenAI-format event stream.
// OpenRouter also sends ": OPENROUTER PROCESSING" comments, which the framing skips.
func (p *Provider) DecodeStream(resp *http.Response, shape llmprovider.ResultShape) *llmprovider.Stream {
	return p.opts.NewStream(p, resp, openai.Framing(), llmprovider.EventDecoderFunc(decodeEvent), shape)
}

// Annotate stamps provenance.
func (p *Provider) Annotate(result *llmprovider.Result, header http.Header) {
	llmprovider.AnnotateResult(result, p.ID(), header, "x-request-id", "x-generation-id")
}
