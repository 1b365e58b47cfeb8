package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/haowjy/meridian-stream"
)

// DefaultBaseURL is the public OpenAI v1 API
const DefaultBaseURL = "https://api.openai.com/v1"

// endpoints maps every endpoint kind to its OpenAI path segment.
var endpoints = llmprovider.EndpointPaths{
	llmprovider.EndpointChat:            "chat/completions",
	llmprovider.EndpointCompletion:      "completions",
	llmprovider.EndpointEmbedding:       "embeddings",
	llmprovider.EndpointImageGeneration: "images/generations",
	llmprovider.EndpointFiles:           "files",
	llmprovider.EndpointModeration:      "moderations",
	llmprovider.EndpointModels:          "models",
}

// modelPrefixes are the OpenAI model families
var modelPrefixes = []string{
	"gpt-", "chatgpt-", "o1", "o3", "o4",
	"text-embedding-", "dall-e-", "gpt-image-",
	"omni-moderation-", "text-moderation-",
	"davinci-", "babbage-", "whisper-", "tts-",
}

// Provider implements llmprovider.Adapter for the OpenAI REST API.
type Provider struct {
	opts llmprovider.AdapterOptions
}

// NewProvider creates an OpenAI adapter.
func NewProvider(opts ...llmprovider.Option) *Provider {
	return &Provider{
		opts: llmprovider.ApplyOptions(llmprovider.AdapterOptions{BaseURL: DefaultBaseURL}, opts...),
	}
}

// ID returns the provider identifier.
func (p *Provider) ID() llmprovider.ProviderID {
	return llmprovider.ProviderOpenAI
}

// SupportsModel returns true if this provider supports the given model.
// Routed names ("vendor/model") belong to proxies, not OpenAI.
func (p *Provider) SupportsModel(model string) bool {
	if strings.Contains(model, "/") {
		return false
	}
	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// BuildURL returns the URL for kind. OpenAI implements every endpoint kind.
func (p *Provider) BuildURL(kind llmprovider.EndpointKind, suffix string) (string, error) {
	return endpoints.Resolve(p.ID(), p.opts.BaseURL, kind, suffix)
}

// NewRequest builds a request with bearer auth and the optional organization header.
func (p *Provider) NewRequest(ctx context.Context, url, method string, body any, streaming bool) (*http.Request, error) {
	headers := p.opts.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}

	spec := llmprovider.RequestSpec{
		URL:         url,
		Method:      method,
		Body:        body,
		Streaming:   streaming,
		StreamField: true,
		UserAgent:   p.opts.UserAgent,
		Headers:     headers,
		AuthHeader:  "Authorization",
		AuthScheme:  "Bearer ",
	}
	if auth, ok := p.opts.Credential(p.ID()); ok {
		spec.APIKey = auth.APIKey
		if auth.Organization != "" {
			headers.Set("OpenAI-Organization", auth.Organization)
		}
	}
	return llmprovider.BuildRequest(ctx, spec)
}

// DecodeStream decodes a data-only event stream.
func (p *Provider) DecodeStream(resp *http.Response, shape llmprovider.ResultShape) *llmprovider.Stream {
	return p.opts.NewStream(p, resp, Framing(), llmprovider.EventDecoderFunc(DecodeEvent), shape)
}

// Annotate stamps provenance.
func (p *Provider) Annotate(result *llmprovider.Result, header http.Header) {
	llmprovider.AnnotateResult(result, p.ID(), header, "x-request-id")
}
