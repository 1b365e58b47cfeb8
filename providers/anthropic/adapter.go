package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-stream"
)

// DecodeBody converts a non-streaming Messages API response.
func (p *Provider) DecodeBody(data []byte, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	if shape != llmprovider.ShapeChat {
		return nil, &llmprovider.DecodeError{
			Provider: p.ID(),
			Shape:    shape,
			Reason:   "anthropic only returns chat messages",
		}
	}

	if t := gjson.GetBytes(data, "type").String(); t != "message" {
		return nil, &llmprovider.DecodeError{
			Provider: p.ID(),
			Shape:    shape,
			Reason:   "expected an object of type 'message', got '" + t + "'",
		}
	}

	var msg anthropic.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &llmprovider.DecodeError{
			Provider: p.ID(),
			Shape:    shape,
			Reason:   "invalid message body",
			Err:      err,
		}
	}

	return convertFromAnthropicResponse(&msg), nil
}

// convertFromAnthropicResponse converts an Anthropic message to a chat result.
// Text blocks are concatenated in order; other block types are not part of
// the canonical model.
func convertFromAnthropicResponse(msg *anthropic.Message) *llmprovider.Result {
	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := text.String()

	result := &llmprovider.Result{
		Shape: llmprovider.ShapeChat,
		Choices: []llmprovider.Choice{
			{
				Index:        0,
				Message:      &llmprovider.Message{Role: llmprovider.RoleAssistant, Content: &content},
				FinishReason: llmprovider.FinishReasonPtr(mapStopReason(msg.StopReason)),
			},
		},
		Model: string(msg.Model),
		Usage: &llmprovider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}

	// Build response metadata with provider-specific data
	if msg.ID != "" {
		result.SetMetadata("message_id", msg.ID)
	}
	if msg.StopSequence != "" {
		result.SetMetadata("stop_sequence", msg.StopSequence)
	}
	if msg.Usage.CacheCreationInputTokens > 0 {
		result.SetMetadata("cache_creation_input_tokens", int(msg.Usage.CacheCreationInputTokens))
	}
	if msg.Usage.CacheReadInputTokens > 0 {
		result.SetMetadata("cache_read_input_tokens", int(msg.Usage.CacheReadInputTokens))
	}

	return result
}

// mapStopReason maps Anthropic stop reasons onto the canonical set.
// An empty reason means generation has not finished.
func mapStopReason(reason anthropic.StopReason) llmprovider.FinishReason {
	switch reason {
	case "":
		return ""
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence, anthropic.StopReasonPauseTurn:
		return llmprovider.FinishStop
	case anthropic.StopReasonMaxTokens:
		return llmprovider.FinishLength
	case anthropic.StopReasonToolUse:
		return llmprovider.FinishToolUse
	case anthropic.StopReasonRefusal:
		return llmprovider.FinishContentFilter
	default:
		return llmprovider.FinishStop
	}
}
