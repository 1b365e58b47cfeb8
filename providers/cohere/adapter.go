package cohere

import (
	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-stream"
)

// DecodeBody converts a non-streaming chat response.
//
// Cohere returns {"text": ..., "finish_reason": ..., "citations": [...], "meta": {...}}.
func (p *Provider) DecodeBody(data []byte, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	if shape != llmprovider.ShapeChat {
		return nil, &llmprovider.DecodeError{
			Provider: p.ID(),
			Shape:    shape,
			Reason:   "cohere only returns chat responses",
		}
	}
	if !gjson.ValidBytes(data) {
		return nil, &llmprovider.DecodeError{Provider: p.ID(), Shape: shape, Reason: "body is not valid JSON"}
	}

	body := gjson.ParseBytes(data)
	text := body.Get("text")
	if text.Type != gjson.String {
		return nil, &llmprovider.DecodeError{Provider: p.ID(), Shape: shape, Reason: "missing 'text' field"}
	}
	content := text.String()

	result := &llmprovider.Result{
		Shape: llmprovider.ShapeChat,
		Choices: []llmprovider.Choice{
			{
				Index:        0,
				Message:      &llmprovider.Message{Role: llmprovider.RoleAssistant, Content: &content},
				FinishReason: llmprovider.FinishReasonPtr(mapFinishReason(body.Get("finish_reason").String())),
				Citations:    parseCitations(body.Get("citations")),
			},
		},
		Usage: parseUsage(body.Get("meta.billed_units")),
	}

	if id := body.Get("generation_id").String(); id != "" {
		result.SetMetadata("generation_id", id)
	}
	if id := body.Get("response_id").String(); id != "" {
		result.SetMetadata("response_id", id)
	}
	return result, nil
}
