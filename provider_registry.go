package llmprovider

// ProviderID represents a unique provider identifier.
// Using a typed constant prevents typos and provides compile-time safety.
type ProviderID string

// Known provider identifiers
const (
	// ProviderAnthropic is Anthropic's Messages API (block-oriented streaming)
	ProviderAnthropic ProviderID = "anthropic"

	// ProviderOpenAI is OpenAI's REST API (data-only SSE terminated by [DONE])
	ProviderOpenAI ProviderID = "openai"

	// ProviderCohere is Cohere's chat API (flat-event JSON lines)
	ProviderCohere ProviderID = "cohere"

	// ProviderOpenRouter is OpenRouter's OpenAI-compatible proxy API
	ProviderOpenRouter ProviderID = "openrouter"
)

// String returns the string representation of the provider ID
func (p ProviderID) String() string {
	return string(p)
}

// IsValid returns true if the provider ID is a known provider
func (p ProviderID) IsValid() bool {
	switch p {
	case ProviderAnthropic, ProviderOpenAI, ProviderCohere, ProviderOpenRouter:
		return true
	default:
		return false
	}
}
