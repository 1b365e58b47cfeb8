package openai

import (
	"encoding/json"

	"github.com/haowjy/meridian-stream"
)

// framing describes OpenAI's data-only server-sent events.
// Every payload is a chunk; the stream ends with "data: [DONE]".
var framing = llmprovider.Framing{
	DataPrefix:    "data:",
	CommentPrefix: ":",
	DefaultEvent:  "chunk",
	Events: map[string]llmprovider.EventKind{
		"chunk": llmprovider.EventContentDelta,
	},
	DoneSentinel:      "[DONE]",
	ErrorMessageField: "error.message",
}

// Framing returns the OpenAI stream framing. Callers must not modify it.
// OpenAI-compatible vendors reuse it.
func Framing() *llmprovider.Framing {
	return &framing
}

// DecodeEvent converts one chunk payload. Exported for OpenAI-compatible vendors.
func DecodeEvent(event llmprovider.Event, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	var chunk ChatCompletionChunk
	if err := json.Unmarshal(event.Payload, &chunk); err != nil {
		return nil, err
	}
	return ConvertChunk(&chunk, shape)
}
