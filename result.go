package llmprovider

import (
	"encoding/json"
	"fmt"
)

// ResultShape tags which concrete canonical shape a payload is coerced into.
// Callers declare the shape they want; adapters switch on it to pick a decode function.
type ResultShape int

const (
	ShapeChat ResultShape = iota
	ShapeCompletion
	ShapeEmbedding
)

// String returns the shape name
func (s ResultShape) String() string {
	switch s {
	case ShapeChat:
		return "chat"
	case ShapeCompletion:
		return "completion"
	case ShapeEmbedding:
		return "embedding"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// ParseResultShape parses a shape name ("chat", "completion", "embedding").
func ParseResultShape(s string) (ResultShape, error) {
	for _, shape := range []ResultShape{ShapeChat, ShapeCompletion, ShapeEmbedding} {
		if shape.String() == s {
			return shape, nil
		}
	}
	return 0, &ValidationError{Field: "shape", Value: s, Reason: "must be chat, completion or embedding", Err: ErrInvalidRequest}
}

// Role is the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// IsValid returns true if the role is a member of the closed role set
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	default:
		return false
	}
}

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", &ValidationError{
			Field:  "role",
			Value:  s,
			Reason: "must be one of system, user, assistant, tool",
			Err:    ErrInvalidRequest,
		}
	}
	return role, nil
}

// FinishReason explains why generation ended for a choice.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolUse       FinishReason = "tool_use"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
)

// IsValid returns true if the reason is a member of the closed finish reason set
func (f FinishReason) IsValid() bool {
	switch f {
	case FinishStop, FinishLength, FinishToolUse, FinishContentFilter, FinishError:
		return true
	default:
		return false
	}
}

// ParseFinishReason validates a raw finish reason string.
func ParseFinishReason(s string) (FinishReason, error) {
	reason := FinishReason(s)
	if !reason.IsValid() {
		return "", &ValidationError{
			Field:  "finish_reason",
			Value:  s,
			Reason: "must be one of stop, length, tool_use, content_filter, error",
			Err:    ErrInvalidRequest,
		}
	}
	return reason, nil
}

// Message is a role plus a text fragment (streaming) or full text (non-streaming).
//
// Content distinguishes absent (nil) from present-but-empty (pointer to "").
type Message struct {
	Role    Role    `json:"role"`
	Content *string `json:"content,omitempty"`
}

// NewMessage builds a message with content. The role must be valid.
func NewMessage(role Role, content string) (*Message, error) {
	if !role.IsValid() {
		return nil, &ValidationError{Field: "role", Value: role, Reason: "unknown role", Err: ErrInvalidRequest}
	}
	return &Message{Role: role, Content: &content}, nil
}

// NewEmptyMessage builds a message with no content (e.g., a role-only delta).
func NewEmptyMessage(role Role) (*Message, error) {
	if !role.IsValid() {
		return nil, &ValidationError{Field: "role", Value: role, Reason: "unknown role", Err: ErrInvalidRequest}
	}
	return &Message{Role: role}, nil
}

// Text returns the content or "" when absent
func (m *Message) Text() string {
	if m == nil || m.Content == nil {
		return ""
	}
	return *m.Content
}

// HasContent returns true if content is present (possibly empty)
func (m *Message) HasContent() bool {
	return m != nil && m.Content != nil
}

// Citation represents a reference from generated text to an external source.
//
// Provider mappings:
// - Cohere: citation-generation events and the non-streaming citations[] array
// - OpenRouter: annotations[] (url_citation)
type Citation struct {
	// StartIndex is the character position in the text where the citation starts
	StartIndex int `json:"start"`

	// EndIndex is the character position in the text where the citation ends
	EndIndex int `json:"end"`

	// Text is the exact text that was cited
	Text string `json:"text"`

	// URL is the cited resource URL (optional)
	URL string `json:"url,omitempty"`

	// DocumentIDs references the vendor documents backing this citation (optional)
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// Choice is one candidate generation.
type Choice struct {
	// Index identifies the candidate for vendors returning several choices
	Index int `json:"index"`

	// BlockIndex attributes a fragment to a content block (block-oriented vendors only)
	BlockIndex *int `json:"block_index,omitempty"`

	// Delta is set on streamed fragments
	Delta *Message `json:"delta,omitempty"`

	// Message is set on complete, non-streamed results
	Message *Message `json:"message,omitempty"`

	// FinishReason is only set on the event that ends generation for this choice
	FinishReason *FinishReason `json:"finish_reason,omitempty"`

	// Citations attached to this choice's text
	Citations []Citation `json:"citations,omitempty"`
}

// Usage holds token accounting reported by the vendor.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Result is a vendor-agnostic response or response fragment.
type Result struct {
	// Shape is the canonical shape this result was decoded into
	Shape ResultShape `json:"shape"`

	// Choices in generation order
	Choices []Choice `json:"choices,omitempty"`

	// Embeddings holds vectors for ShapeEmbedding results
	Embeddings [][]float64 `json:"embeddings,omitempty"`

	// Model is the model that produced the result, when the vendor reports it
	Model string `json:"model,omitempty"`

	// Usage is the token accounting, when the vendor reports it
	Usage *Usage `json:"usage,omitempty"`

	// Provider is the provenance, set by Adapter.Annotate and never by a decoder
	Provider ProviderID `json:"provider,omitempty"`

	// RequestID is the vendor request identifier taken from response headers
	RequestID string `json:"request_id,omitempty"`

	// ResponseMetadata contains provider-specific response data
	// Examples: generation_id, stop_sequence, reasoning details.
	ResponseMetadata map[string]interface{} `json:"response_metadata,omitempty"`
}

// Text concatenates delta or message content of the choice with the given index.
func (r *Result) Text(choice int) string {
	if r == nil {
		return ""
	}
	var out string
	for _, c := range r.Choices {
		if c.Index != choice {
			continue
		}
		if c.Delta != nil {
			out += c.Delta.Text()
		}
		if c.Message != nil {
			out += c.Message.Text()
		}
	}
	return out
}

// FinishReason returns the finish reason reported for choice 0, if any.
func (r *Result) FinishReason() (FinishReason, bool) {
	if r == nil {
		return "", false
	}
	for _, c := range r.Choices {
		if c.Index == 0 && c.FinishReason != nil {
			return *c.FinishReason, true
		}
	}
	return "", false
}

// SetMetadata stores a provider-specific value, allocating the map on first use.
func (r *Result) SetMetadata(key string, value interface{}) {
	if r.ResponseMetadata == nil {
		r.ResponseMetadata = make(map[string]interface{})
	}
	r.ResponseMetadata[key] = value
}

// String renders the result as JSON for debugging.
func (r *Result) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Result{error: %v}", err)
	}
	return string(b)
}

// DeltaResult builds a single-choice streaming fragment.
// Vendor decoders use it so every fragment has the same layout.
func DeltaResult(shape ResultShape, role Role, content *string) *Result {
	return &Result{
		Shape: shape,
		Choices: []Choice{
			{Delta: &Message{Role: role, Content: content}},
		},
	}
}

// FinishReasonPtr returns a pointer to the reason, or nil for the zero value.
func FinishReasonPtr(reason FinishReason) *FinishReason {
	if reason == "" {
		return nil
	}
	return &reason
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to i.
func IntPtr(i int) *int {
	return &i
}
