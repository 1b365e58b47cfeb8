package llmprovider

// EndpointKind is the abstract API surface a caller wants to reach.
// Adapters map each kind they implement to a concrete vendor URL.
type EndpointKind int

const (
	EndpointChat EndpointKind = iota
	EndpointCompletion
	EndpointEmbedding
	EndpointImageGeneration
	EndpointFiles
	EndpointModeration
	EndpointModels
)

var endpointNames = map[EndpointKind]string{
	EndpointChat:            "chat",
	EndpointCompletion:      "completion",
	EndpointEmbedding:       "embedding",
	EndpointImageGeneration: "image_generation",
	EndpointFiles:           "files",
	EndpointModeration:      "moderation",
	EndpointModels:          "models",
}

// String returns the endpoint kind name (e.g., "chat", "embedding")
func (k EndpointKind) String() string {
	if name, ok := endpointNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseEndpointKind parses an endpoint kind name (e.g., "chat", "embedding").
func ParseEndpointKind(s string) (EndpointKind, error) {
	for kind, name := range endpointNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, &ValidationError{Field: "endpoint", Value: s, Reason: "unknown endpoint kind", Err: ErrInvalidRequest}
}

// EndpointPaths maps endpoint kinds to vendor path segments.
// A kind missing from the table is unsupported by that vendor.
type EndpointPaths map[EndpointKind]string

// Resolve joins baseURL, the path segment for kind and suffix.
// Returns an *EndpointError wrapping ErrUnsupportedEndpoint when the
// vendor has no path for kind.
func (p EndpointPaths) Resolve(provider ProviderID, baseURL string, kind EndpointKind, suffix string) (string, error) {
	path, ok := p[kind]
	if !ok {
		return "", &EndpointError{
			Provider: provider,
			Endpoint: kind,
			Err:      ErrUnsupportedEndpoint,
		}
	}
	return trimTrailingSlash(baseURL) + "/" + path + suffix, nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
