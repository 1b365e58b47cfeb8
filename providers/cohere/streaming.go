package cohere

import (
	"github.com/tidwall/gjson"

	"github.com/haowjy/meridian-stream"
)

// framing describes Cohere's flat-event stream: one JSON object per line,
// typed by event_type. The is_finished flag on the event, not its type, ends the stream.
var framing = llmprovider.Framing{
	BareJSON:      true,
	TypeField:     "event_type",
	FinishedField: "is_finished",
	Events: map[string]llmprovider.EventKind{
		"stream-start":              llmprovider.EventMessageStart,
		"text-generation":           llmprovider.EventContentDelta,
		"search-queries-generation": llmprovider.EventContentDelta,
		"search-results":            llmprovider.EventContentDelta,
		"citation-generation":       llmprovider.EventContentDelta,
		"stream-end":                llmprovider.EventMessageStop,
	},
}

// Framing returns the Cohere stream framing. Callers must not modify it.
func Framing() *llmprovider.Framing {
	return &framing
}

// decodeEvent converts one Cohere event. Streams only carry chat results;
// other shapes yield nothing.
func decodeEvent(event llmprovider.Event, shape llmprovider.ResultShape) (*llmprovider.Result, error) {
	if shape != llmprovider.ShapeChat {
		return nil, nil
	}

	payload := gjson.ParseBytes(event.Payload)

	switch event.Token {
	case "text-generation":
		text := payload.Get("text")
		if !text.Exists() {
			return nil, nil
		}
		content := text.String()
		return llmprovider.DeltaResult(llmprovider.ShapeChat, llmprovider.RoleAssistant, &content), nil

	case "citation-generation":
		citations := parseCitations(payload.Get("citations"))
		if len(citations) == 0 {
			return nil, nil
		}
		result := llmprovider.DeltaResult(llmprovider.ShapeChat, llmprovider.RoleAssistant, nil)
		result.Choices[0].Citations = citations
		return result, nil

	case "stream-end":
		result := llmprovider.DeltaResult(llmprovider.ShapeChat, llmprovider.RoleAssistant, nil)
		result.Choices[0].FinishReason = llmprovider.FinishReasonPtr(mapFinishReason(payload.Get("finish_reason").String()))
		if usage := parseUsage(payload.Get("response.meta.billed_units")); usage != nil {
			result.Usage = usage
		}
		if id := payload.Get("response.generation_id").String(); id != "" {
			result.SetMetadata("generation_id", id)
		}
		return result, nil

	default:
		// stream-start, search-queries-generation, search-results
		return nil, nil
	}
}

// parseCitations reads a Cohere citations array.
func parseCitations(arr gjson.Result) []llmprovider.Citation {
	var out []llmprovider.Citation
	arr.ForEach(func(_, c gjson.Result) bool {
		citation := llmprovider.Citation{
			StartIndex: int(c.Get("start").Int()),
			EndIndex:   int(c.Get("end").Int()),
			Text:       c.Get("text").String(),
		}
		for _, id := range c.Get("document_ids").Array() {
			citation.DocumentIDs = append(citation.DocumentIDs, id.String())
		}
		out = append(out, citation)
		return true
	})
	return out
}

func parseUsage(units gjson.Result) *llmprovider.Usage {
	if !units.Exists() {
		return nil
	}
	return &llmprovider.Usage{
		InputTokens:  int(units.Get("input_tokens").Int()),
		OutputTokens: int(units.Get("output_tokens").Int()),
	}
}

// mapFinishReason maps Cohere finish reasons onto the canonical set.
func mapFinishReason(reason string) llmprovider.FinishReason {
	switch reason {
	case "":
		return ""
	case "COMPLETE", "STOP_SEQUENCE":
		return llmprovider.FinishStop
	case "MAX_TOKENS":
		return llmprovider.FinishLength
	case "ERROR_TOXIC":
		return llmprovider.FinishContentFilter
	case "TOOL_CALL":
		return llmprovider.FinishToolUse
	case "ERROR", "ERROR_LIMIT", "USER_CANCEL":
		return llmprovider.FinishError
	default:
		return llmprovider.FinishStop
	}
}
