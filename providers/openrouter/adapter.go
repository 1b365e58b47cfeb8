package openrouter

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/providers/openai"
)

// ReasoningDetail represents a reasoning/thinking detail in the response.
// Used by reasoning-enabled models like moonshotai/kimi-k2-thinking to provide extended thinking.
// The reasoning_details array contains structured reasoning information that can be of different types.
type ReasoningDetail struct {
	Type    string  `json:"type"`              // "reasoning.text", "reasoning.summary", "reasoning.encrypted"
	Text    *string `json:"text,omitempty"`    // Actual thinking content (for type: "reasoning.text")
	Summary *string `json:"summary,omitempty"` // Summary of reasoning (for type: "reasoning.summary")
	Data    *string `json:"data,omitempty"`    // Encrypted data (for type: "reasoning.encrypted")
}

// MetadataReasoning is the ResponseMetadata key holding reasoning text.
const MetadataReasoning = "reasoning"

// DecodeBody converts a non-streaming response and surfaces reasoning details.
func (p *Provider) DecodeBody(data []byte, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	result, err := openai.DecodeBody(p.ID(), data, shape)
	if err != nil {
		return nil, err
	}
	attachReasoning(result, gjson.GetBytes(data, "choices.0.message.reasoning_details"))
	return result, nil
}

// decodeEvent converts one chunk and surfaces reasoning details.
// Reasoning-only chunks (no content) still yield a fragment carrying the metadata.
func decodeEvent(event llmprovider.Event, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	result, err := openai.DecodeEvent(event, shape)
	if err != nil || result == nil {
		return result, err
	}
	attachReasoning(result, gjson.GetBytes(event.Payload, "choices.0.delta.reasoning_details"))
	return result, nil
}

func attachReasoning(result *llmprovider.Result, raw gjson.Result) {
	if !raw.IsArray() {
		return
	}
	var details []ReasoningDetail
	if err := json.Unmarshal([]byte(raw.Raw), &details); err != nil {
		return
	}
	if text := extractReasoning(details); text != "" {
		result.SetMetadata(MetadataReasoning, text)
	}
}

// extractReasoning extracts thinking text from reasoning_details array.
// Returns "" if no reasoning details present or all are empty.
func extractReasoning(details []ReasoningDetail) string {
	var text strings.Builder
	for _, detail := range details {
		// Extract text based on detail type
		switch detail.Type {
		case "reasoning.text":
			if detail.Text != nil {
				text.WriteString(*detail.Text)
			}
		case "reasoning.summary":
			if detail.Summary != nil {
				text.WriteString(*detail.Summary)
			}
			// Skip "reasoning.encrypted" - we can't use encrypted data
		}
	}
	return text.String()
}
