package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"
)

// DefaultUserAgent identifies this client to vendors unless overridden.
const DefaultUserAgent = "meridian-stream/0.1"

// Adapter is the capability set every vendor implements.
//
// Adapters are immutable after construction and safe for concurrent use.
// The Registry holds them by ProviderID.
type Adapter interface {
	// ID returns the provider identifier (e.g., "anthropic", "openai")
	ID() ProviderID

	// SupportsModel returns true if the vendor serves the given model name.
	SupportsModel(model string) bool

	// BuildURL returns the vendor URL for an endpoint kind plus suffix.
	// Kinds the vendor lacks return an error wrapping ErrUnsupportedEndpoint.
	BuildURL(kind EndpointKind, suffix string) (string, error)

	// NewRequest builds an outbound request with vendor headers and auth.
	// A missing credential yields a request without an auth header.
	NewRequest(ctx context.Context, url, method string, body any, streaming bool) (*http.Request, error)

	// DecodeStream returns the fragment sequence of a streaming response.
	// Every fragment is annotated with provenance before it is returned.
	DecodeStream(resp *http.Response, shape ResultShape) *Stream

	// DecodeBody coerces a complete response body into the requested shape.
	// Failures wrap ErrDeserialization.
	DecodeBody(data []byte, shape ResultShape) (*Result, error)

	// Annotate stamps provider identity and request id from response headers.
	Annotate(result *Result, header http.Header)
}

// Auth holds the credentials for one provider.
type Auth struct {
	APIKey       string
	Organization string
}

// CredentialLookup resolves credentials by provider. The Registry implements it.
type CredentialLookup interface {
	Credential(id ProviderID) (Auth, bool)
}

// StaticCredentials is a fixed CredentialLookup.
type StaticCredentials map[ProviderID]Auth

// Credential returns the credential for id.
func (s StaticCredentials) Credential(id ProviderID) (Auth, bool) {
	auth, ok := s[id]
	return auth, ok
}

// AdapterOptions are the settings shared by every vendor adapter.
type AdapterOptions struct {
	BaseURL     string
	UserAgent   string
	Credentials CredentialLookup
	Headers     http.Header
	Logger      *slog.Logger
	Observer    StreamObserver
}

// Option configures an adapter.
type Option func(*AdapterOptions)

// WithBaseURL overrides the vendor base URL (e.g., for a proxy or test server).
func WithBaseURL(baseURL string) Option {
	return func(o *AdapterOptions) {
		o.BaseURL = baseURL
	}
}

// WithUserAgent sets the client identification header.
func WithUserAgent(userAgent string) Option {
	return func(o *AdapterOptions) {
		o.UserAgent = userAgent
	}
}

// WithCredentials sets where the adapter looks up its API key.
func WithCredentials(lookup CredentialLookup) Option {
	return func(o *AdapterOptions) {
		o.Credentials = lookup
	}
}

// WithHeader adds a static header to every outbound request.
func WithHeader(key, value string) Option {
	return func(o *AdapterOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}
		o.Headers.Set(key, value)
	}
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *AdapterOptions) {
		o.Logger = logger
	}
}

// WithObserver sets the stream observer (e.g., Prometheus metrics).
func WithObserver(observer StreamObserver) Option {
	return func(o *AdapterOptions) {
		o.Observer = observer
	}
}

// ApplyOptions layers opts over the vendor defaults.
func ApplyOptions(defaults AdapterOptions, opts ...Option) AdapterOptions {
	o := defaults
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Credential returns the configured credential for id, if any.
func (o AdapterOptions) Credential(id ProviderID) (Auth, bool) {
	if o.Credentials == nil {
		return Auth{}, false
	}
	auth, ok := o.Credentials.Credential(id)
	auth.APIKey = strings.TrimSpace(auth.APIKey)
	if !ok || auth.APIKey == "" {
		return Auth{}, false
	}
	return auth, true
}

// NewStream builds the annotated fragment stream for a response body.
func (o AdapterOptions) NewStream(adapter Adapter, resp *http.Response, framing *Framing, events EventDecoder, shape ResultShape) *Stream {
	decoder := NewDecoder(NewLineSource(resp.Body), framing, events, shape,
		WithDecoderProvider(adapter.ID()),
		WithDecoderLogger(o.Logger),
		WithDecoderObserver(o.Observer))
	header := resp.Header
	return NewStream(decoder, func(r *Result) {
		adapter.Annotate(r, header)
	})
}

// RequestSpec describes one outbound vendor request.
type RequestSpec struct {
	URL       string
	Method    string
	Body      any
	Streaming bool

	// StreamField sets "stream": true in the JSON body when Streaming
	StreamField bool

	UserAgent string
	Headers   http.Header

	// AuthHeader and AuthScheme place the API key (e.g., "Authorization" + "Bearer ")
	AuthHeader string
	AuthScheme string
	APIKey     string
}

// BuildRequest creates an HTTP request from spec.
//
// Body may be nil, []byte, json.RawMessage, string, or any value that
// encoding/json can marshal.
func BuildRequest(ctx context.Context, spec RequestSpec) (*http.Request, error) {
	data, err := encodeBody(spec.Body)
	if err != nil {
		return nil, err
	}

	if spec.Streaming && spec.StreamField && len(data) > 0 {
		data, err = sjson.SetBytes(data, "stream", true)
		if err != nil {
			return nil, &ValidationError{Field: "body", Value: "stream", Reason: err.Error(), Err: ErrInvalidRequest}
		}
	}

	var reader io.Reader
	if len(data) > 0 {
		reader = bytes.NewReader(data)
	}

	method := spec.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	if len(data) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if spec.Streaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if spec.UserAgent != "" {
		req.Header.Set("User-Agent", spec.UserAgent)
	}
	for key, values := range spec.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if spec.APIKey != "" && spec.AuthHeader != "" {
		req.Header.Set(spec.AuthHeader, spec.AuthScheme+spec.APIKey)
	}

	return req, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, &ValidationError{Field: "body", Value: fmt.Sprintf("%T", body), Reason: err.Error(), Err: ErrInvalidRequest}
		}
		return data, nil
	}
}

// AnnotateResult sets provenance on result. The request id is the first
// non-empty value among requestIDHeaders.
func AnnotateResult(result *Result, provider ProviderID, header http.Header, requestIDHeaders ...string) {
	if result == nil {
		return
	}
	result.Provider = provider
	for _, name := range requestIDHeaders {
		if id := header.Get(name); id != "" {
			result.RequestID = id
			return
		}
	}
}
