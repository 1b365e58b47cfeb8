package cohere

import (
	"context"
	"net/http"
	"strings"

	"github.com/haowjy/meridian-stream"
)

// DefaultBaseURL is the public Cohere v1 API
const DefaultBaseURL = "https://api.cohere.ai/v1"

// endpoints maps the endpoint kinds Cohere implements to path segments.
// Only chat is available; every other kind is an UnsupportedEndpoint error.
var endpoints = llmprovider.EndpointPaths{
	llmprovider.EndpointChat: "chat",
}

// Provider implements llmprovider.Adapter for Cohere's chat API.
type Provider struct {
	opts llmprovider.AdapterOptions
}

// NewProvider creates a Cohere adapter.
func NewProvider(opts ...llmprovider.Option) *Provider {
	return &Provider{
		opts: llmprovider.ApplyOptions(llmprovider.AdapterOptions{BaseURL: DefaultBaseURL}, opts...),
	}
}

// ID returns the provider identifier.
func (p *Provider) ID() llmprovider.ProviderID {
	return llmprovider.ProviderCohere
}

// SupportsModel returns true if this provider supports the given model.
// Cohere models are the "command" family (e.g., "command-r", "command-r-plus").
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "command")
}

// BuildURL returns the URL for kind.
func (p *Provider) BuildURL(kind llmprovider.EndpointKind, suffix string) (string, error) {
	return endpoints.Resolve(p.ID(), p.opts.BaseURL, kind, suffix)
}

// NewRequest builds a chat request with bearer auth.
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

// DecodeStream decodes a JSON-lines chat stream.
func (p *Provider) DecodeStream(resp *http.Response, shape llmprovider.ResultShape) *llmprovider.Stream {
	return p.opts.NewStream(p, resp, Framing(), llmprovider.EventDecoderFunc(decodeEvent), shape)
}

// Annotate stamps provenance.
func (p *Provider) Annotate(result *llmprovider.Result, header http.Header) {
	llmprovider.AnnotateResult(result, p.ID(), header, "x-request-id")
}
