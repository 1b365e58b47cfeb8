package openai

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-stream"
)

// DecodeBody converts a non-streaming response into shape.
func (p *Provider) DecodeBody(data []byte, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	return DecodeBody(p.ID(), data, shape)
}

// DecodeBody converts an OpenAI-format body. Exported for OpenAI-compatible vendors.
func DecodeBody(provider llmprovider.ProviderID, data []byte, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	switch shape {
	case llmprovider.ShapeChat, llmprovider.ShapeCompletion:
		if !gjson.GetBytes(data, "choices").IsArray() {
			return nil, &llmprovider.DecodeError{Provider: provider, Shape: shape, Reason: "missing 'choices' array"}
		}
		var resp ChatCompletionResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, &llmprovider.DecodeError{Provider: provider, Shape: shape, Reason: "invalid completion body", Err: err}
		}
		return ConvertChatCompletion(&resp, shape), nil

	case llmprovider.ShapeEmbedding:
		if !gjson.GetBytes(data, "data").IsArray() {
			return nil, &llmprovider.DecodeError{Provider: provider, Shape: shape, Reason: "missing 'data' array"}
		}
		var resp EmbeddingResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, &llmprovider.DecodeError{Provider: provider, Shape: shape, Reason: "invalid embedding body", Err: err}
		}
		return ConvertEmbedding(&resp), nil

	default:
		return nil, &llmprovider.DecodeError{Provider: provider, Shape: shape, Reason: "unsupported result shape"}
	}
}

// ConvertChatCompletion converts a chat or legacy completion response.
func ConvertChatCompletion(resp *ChatCompletionResponse, shape llmprovider.ResultShape) *llmprovider.Result {
	result := &llmprovider.Result{
		Shape: shape,
		Model: resp.Model,
		Usage: convertUsage(resp.Usage),
	}

	for _, c := range resp.Choices {
		msg := &llmprovider.Message{Role: llmprovider.RoleAssistant}
		var annotations []Annotation
		if c.Message != nil {
			msg.Role = parseRole(c.Message.Role)
			msg.Content = c.Message.Content
			annotations = c.Message.Annotations
		}
		if shape == llmprovider.ShapeCompletion || msg.Content == nil {
			if c.Text != nil {
				msg.Content = c.Text
			}
		}
		result.Choices = append(result.Choices, llmprovider.Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: llmprovider.FinishReasonPtr(mapFinishReason(c.FinishReason)),
			Citations:    convertAnnotationsToCitations(annotations),
		})
	}

	if resp.ID != "" {
		result.SetMetadata("completion_id", resp.ID)
	}
	return result
}

// ConvertEmbedding converts an embeddings response. Vectors are ordered by index.
func ConvertEmbedding(resp *EmbeddingResponse) *llmprovider.Result {
	data := make([]EmbeddingData, len(resp.Data))
	copy(data, resp.Data)
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	result := &llmprovider.Result{
		Shape: llmprovider.ShapeEmbedding,
		Model: resp.Model,
		Usage: convertUsage(resp.Usage),
	}
	for _, d := range data {
		result.Embeddings = append(result.Embeddings, d.Embedding)
	}
	return result
}

// ConvertChunk converts one streaming chunk. Chunks with nothing to report yield nil.
func ConvertChunk(chunk *ChatCompletionChunk, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	if shape == llmprovider.ShapeEmbedding {
		return nil, fmt.Errorf("embeddings are not streamed")
	}

	result := &llmprovider.Result{
		Shape: shape,
		Model: chunk.Model,
		Usage: convertUsage(chunk.Usage),
	}

	for _, c := range chunk.Choices {
		content := c.Delta.Content
		if shape == llmprovider.ShapeCompletion || content == nil {
			if c.Text != nil {
				content = c.Text
			}
		}
		role := llmprovider.RoleAssistant
		if c.Delta.Role != nil {
			role = parseRole(*c.Delta.Role)
		}
		result.Choices = append(result.Choices, llmprovider.Choice{
			Index:        c.Index,
			Delta:        &llmprovider.Message{Role: role, Content: content},
			FinishReason: llmprovider.FinishReasonPtr(mapFinishReason(c.FinishReason)),
			Citations:    convertAnnotationsToCitations(c.Delta.Annotations),
		})
	}

	if len(result.Choices) == 0 && result.Usage == nil {
		return nil, nil
	}
	return result, nil
}

func convertUsage(u *Usage) *llmprovider.Usage {
	if u == nil {
		return nil
	}
	return &llmprovider.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
	}
}

// convertAnnotationsToCitations converts url_citation annotations to library Citation format.
func convertAnnotationsToCitations(annotations []Annotation) []llmprovider.Citation {
	var citations []llmprovider.Citation
	for _, annotation := range annotations {
		if annotation.URLCitation == nil {
			continue
		}
		citation := llmprovider.Citation{
			URL:        annotation.URLCitation.URL,
			StartIndex: annotation.URLCitation.StartIndex,
			EndIndex:   annotation.URLCitation.EndIndex,
		}
		if annotation.URLCitation.Content != nil {
			citation.Text = *annotation.URLCitation.Content
		} else if annotation.URLCitation.Title != nil {
			citation.Text = *annotation.URLCitation.Title
		}
		citations = append(citations, citation)
	}
	return citations
}

// parseRole maps a wire role onto the canonical set. OpenAI's "developer"
// role is a system prompt; anything unknown is treated as the assistant.
func parseRole(role string) llmprovider.Role {
	if role == "developer" {
		return llmprovider.RoleSystem
	}
	if r, err := llmprovider.ParseRole(role); err == nil {
		return r
	}
	return llmprovider.RoleAssistant
}

// mapFinishReason maps OpenAI finish_reason onto the canonical set.
func mapFinishReason(finishReason *string) llmprovider.FinishReason {
	if finishReason == nil {
		return ""
	}
	switch *finishReason {
	case "":
		return ""
	case "stop":
		return llmprovider.FinishStop
	case "length":
		return llmprovider.FinishLength
	case "tool_calls", "function_call":
		return llmprovider.FinishToolUse
	case "content_filter":
		return llmprovider.FinishContentFilter
	case "error":
		return llmprovider.FinishError
	default:
		return llmprovider.FinishStop
	}
}
