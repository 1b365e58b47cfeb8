package openai

// ChatCompletionChunk represents a streaming chunk (object "chat.completion.chunk").
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *Usage        `json:"usage,omitempty"` // Only with stream_options.include_usage
}

// ChunkChoice represents a choice in a streaming chunk.
// Chat chunks carry Delta; legacy completion chunks carry Text.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	Text         *string `json:"text,omitempty"`
	FinishReason *string `json:"finish_reason"`
}

// Delta represents incremental updates in a chunk.
type Delta struct {
	Role        *string      `json:"role,omitempty"`
	Content     *string      `json:"content,omitempty"`
	Refusal     *string      `json:"refusal,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// ChatCompletionResponse represents a chat completion response (non-streaming).
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"` // "chat.completion"
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice in the response.
type Choice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	Text         *string  `json:"text,omitempty"` // Legacy completions
	FinishReason *string  `json:"finish_reason"`  // "stop", "length", "tool_calls", "content_filter"
}

// Message represents an assistant message in a response.
type Message struct {
	Role        string       `json:"role"`
	Content     *string      `json:"content"`
	Refusal     *string      `json:"refusal,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotation represents a citation or reference in the response.
type Annotation struct {
	Type        string       `json:"type"` // "url_citation"
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

// URLCitation represents a web search result citation.
type URLCitation struct {
	URL        string  `json:"url"`
	StartIndex int     `json:"start_index"` // Position in content where citation starts
	EndIndex   int     `json:"end_index"`   // Position in content where citation ends
	Title      *string `json:"title,omitempty"`
	Content    *string `json:"content,omitempty"` // Snippet/excerpt from the page
}

// EmbeddingResponse represents an embeddings response.
type EmbeddingResponse struct {
	Object string          `json:"object"` // "list"
	Model  string          `json:"model"`
	Data   []EmbeddingData `json:"data"`
	Usage  *Usage          `json:"usage,omitempty"`
}

// EmbeddingData is one embedding vector.
type EmbeddingData struct {
	Object    string    `json:"object"` // "embedding"
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// Usage represents token usage in the response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
