package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/haowjy/meridian-stream"
)

// framing describes Anthropic's server-sent events.
//
// Anthropic stream events include:
// - message_start: Contains message metadata (id, model, role)
// - content_block_start: New content block started (index, type)
// - content_block_delta: Incremental content for current block (text_delta, input_json_delta)
// - content_block_stop: Current block finished
// - message_delta: Message-level delta (stop_reason, stop_sequence, usage)
// - message_stop: Streaming complete
// - ping: Keep-alive
// - error: In-band failure (e.g., overloaded_error)
var framing = llmprovider.Framing{
	EventPrefix:   "event:",
	DataPrefix:    "data:",
	CommentPrefix: ":",
	TypeField:     "type",
	IndexField:    "index",
	Events: map[string]llmprovider.EventKind{
		"message_start":       llmprovider.EventMessageStart,
		"content_block_start": llmprovider.EventBlockStart,
		"content_block_delta": llmprovider.EventContentDelta,
		"content_block_stop":  llmprovider.EventBlockStop,
		"message_delta":       llmprovider.EventContentDelta,
		"message_stop":        llmprovider.EventMessageStop,
		"ping":                llmprovider.EventKeepAlive,
	},
	TerminalKinds:     []llmprovider.EventKind{llmprovider.EventMessageStop},
	ErrorTokens:       []string{"error"},
	ErrorMessageField: "error.message",
}

// Framing returns the Anthropic stream framing. Callers must not modify it.
func Framing() *llmprovider.Framing {
	return &framing
}

// decodeEvent converts one classified Anthropic event into at most one fragment.
// Only text is surfaced; thinking, signature and tool input deltas carry nothing
// for the canonical model.
func decodeEvent(event llmprovider.Event, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	if shape != llmprovider.ShapeChat {
		return nil, fmt.Errorf("anthropic streams only produce chat results, got %s", shape)
	}

	switch event.Token {
	case "content_block_start":
		var e anthropic.ContentBlockStartEvent
		if err := json.Unmarshal(event.Payload, &e); err != nil {
			return nil, err
		}
		if e.ContentBlock.Type != "text" || e.ContentBlock.Text == "" {
			return nil, nil
		}
		return textFragment(e.ContentBlock.Text, event.BlockIndex), nil

	case "content_block_delta":
		var e anthropic.ContentBlockDeltaEvent
		if err := json.Unmarshal(event.Payload, &e); err != nil {
			return nil, err
		}
		if e.Delta.Type != "text_delta" {
			return nil, nil
		}
		return textFragment(e.Delta.Text, event.BlockIndex), nil

	case "message_delta":
		var e anthropic.MessageDeltaEvent
		if err := json.Unmarshal(event.Payload, &e); err != nil {
			return nil, err
		}
		result := llmprovider.DeltaResult(llmprovider.ShapeChat, llmprovider.RoleAssistant, nil)
		result.Choices[0].FinishReason = llmprovider.FinishReasonPtr(mapStopReason(e.Delta.StopReason))
		if e.Usage.JSON.OutputTokens.Valid() {
			result.Usage = &llmprovider.Usage{
				InputTokens:  int(e.Usage.InputTokens),
				OutputTokens: int(e.Usage.OutputTokens),
			}
		}
		if e.Delta.StopSequence != "" {
			result.SetMetadata("stop_sequence", e.Delta.StopSequence)
		}
		return result, nil

	default:
		// message_start, content_block_stop, message_stop
		return nil, nil
	}
}

// textFragment attributes text to the block the decoder tracked for the event.
func textFragment(text string, index *int) *llmprovider.Result {
	result := llmprovider.DeltaResult(llmprovider.ShapeChat, llmprovider.RoleAssistant, &text)
	result.Choices[0].BlockIndex = index
	return result
}
