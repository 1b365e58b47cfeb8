package anthropic

import (
	"context"
	"net/http"
	"strings"

	"github.com/haowjy/meridian-stream"
)

const (
	// DefaultBaseURL is the public Anthropic API
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is sent as the anthropic-version header on every request
	APIVersion = "2023-06-01"
)

// endpoints maps the endpoint kinds Anthropic implements to path segments.
var endpoints = llmprovider.EndpointPaths{
	llmprovider.EndpointChat:   "v1/messages",
	llmprovider.EndpointModels: "v1/models",
}

// Provider implements llmprovider.Adapter for Anthropic's Messages API.
type Provider struct {
	opts llmprovider.AdapterOptions
}

// NewProvider creates an Anthropic adapter.
// Credentials are resolved per request, so the adapter can be built before keys are known.
func NewProvider(opts ...llmprovider.Option) *Provider {
	return &Provider{
		opts: llmprovider.ApplyOptions(llmprovider.AdapterOptions{BaseURL: DefaultBaseURL}, opts...),
	}
}

// ID returns the provider identifier.
func (p *Provider) ID() llmprovider.ProviderID {
	return llmprovider.ProviderAnthropic
}

// SupportsModel returns true if this provider supports the given model.
// Anthropic models start with "claude-"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// BuildURL returns the URL for kind. Only chat and model listing are available.
func (p *Provider) BuildURL(kind llmprovider.EndpointKind, suffix string) (string, error) {
	return endpoints.Resolve(p.ID(), p.opts.BaseURL, kind, suffix)
}

// NewRequest builds a Messages API request.
// The key goes in x-api-key rather than a bearer Authorization header.
func (p *Provider) NewRequest(ctx context.Context, url, method string, body any, streaming bool) (*http.Request, error) {
	headers := p.opts.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Set("anthropic-version", APIVersion)

	spec := llmprovider.RequestSpec{
		URL:         url,
		Method:      method,
		Body:        body,
		Streaming:   streaming,
		StreamField: true,
		UserAgent:   p.opts.UserAgent,
		Headers:     headers,
		AuthHeader:  "x-api-key",
	}
	if auth, ok := p.opts.Credential(p.ID()); ok {
		spec.APIKey = auth.APIKey
	}
	return llmprovider.BuildRequest(ctx, spec)
}

// DecodeStream decodes an event-stream response body.
func (p *Provider) DecodeStream(resp *http.Response, shape llmprovider.ResultShape) *llmprovider.Stream {
	return p.opts.NewStream(p, resp, Framing(), llmprovider.EventDecoderFunc(decodeEvent), shape)
}

// Annotate stamps provenance. Anthropic reports the request id in "request-id".
func (p *Provider) Annotate(result *llmprovider.Result, header http.Header) {
	llmprovider.AnnotateResult(result, p.ID(), header, "request-id", "x-request-id")
}
