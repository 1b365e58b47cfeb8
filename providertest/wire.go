package providertest

import (
	"strconv"

	"github.com/tidwall/sjson"
)

// Test model names per vendor
const (
	AnthropicModel = "claude-sonnet-4-5"
	OpenAIModel    = "gpt-4o"
	CohereModel    = "command-r"
)

// set builds JSON payloads. Paths are fixed by the fixtures, so errors are programming mistakes.
func set(json, path string, value any) string {
	out, err := sjson.Set(json, path, value)
	if err != nil {
		panic("providertest: " + err.Error())
	}
	return out
}

func setRaw(json, path, raw string) string {
	out, err := sjson.SetRaw(json, path, raw)
	if err != nil {
		panic("providertest: " + err.Error())
	}
	return out
}

// ===== Anthropic (block-oriented server-sent events) =====

// SSEEvent renders one "event:" + "data:" frame followed by a blank line.
func SSEEvent(token, payload string) []string {
	return []string{"event: " + token, "data: " + payload, ""}
}

// AnthropicMessageStart is the first event of every Anthropic stream.
func AnthropicMessageStart() []string {
	msg := set("", "id", "msg_test")
	msg = set(msg, "type", "message")
	msg = set(msg, "role", "assistant")
	msg = set(msg, "model", AnthropicModel)
	msg = setRaw(msg, "content", "[]")
	msg = setRaw(msg, "stop_reason", "null")
	msg = set(msg, "usage.input_tokens", 12)
	msg = set(msg, "usage.output_tokens", 1)
	payload := set("", "type", "message_start")
	payload = setRaw(payload, "message", msg)
	return SSEEvent("message_start", payload)
}

// AnthropicBlockStart opens a text block with optional initial text.
func AnthropicBlockStart(index int, text string) []string {
	payload := set("", "type", "content_block_start")
	payload = set(payload, "index", index)
	payload = set(payload, "content_block.type", "text")
	payload = set(payload, "content_block.text", text)
	return SSEEvent("content_block_start", payload)
}

// AnthropicTextDelta carries one text fragment for a block.
func AnthropicTextDelta(index int, text string) []string {
	payload := set("", "type", "content_block_delta")
	payload = set(payload, "index", index)
	payload = set(payload, "delta.type", "text_delta")
	payload = set(payload, "delta.text", text)
	return SSEEvent("content_block_delta", payload)
}

// AnthropicBlockStop closes a block.
func AnthropicBlockStop(index int) []string {
	payload := set("", "type", "content_block_stop")
	payload = set(payload, "index", index)
	return SSEEvent("content_block_stop", payload)
}

// AnthropicMessageDelta reports the stop reason and output usage.
func AnthropicMessageDelta(stopReason string, outputTokens int) []string {
	payload := set("", "type", "message_delta")
	payload = set(payload, "delta.stop_reason", stopReason)
	payload = setRaw(payload, "delta.stop_sequence", "null")
	payload = set(payload, "usage.output_tokens", outputTokens)
	return SSEEvent("message_delta", payload)
}

// AnthropicMessageStop is the terminal event.
func AnthropicMessageStop() []string {
	return SSEEvent("message_stop", `{"type":"message_stop"}`)
}

// AnthropicPing is a keep-alive.
func AnthropicPing() []string {
	return SSEEvent("ping", `{"type":"ping"}`)
}

// AnthropicError is an in-band error event.
func AnthropicError(errType, message string) []string {
	payload := set("", "type", "error")
	payload = set(payload, "error.type", errType)
	payload = set(payload, "error.message", message)
	return SSEEvent("error", payload)
}

// AnthropicStream renders a full single-block stream of fragments.
func AnthropicStream(fragments []string, stopReason string) []string {
	var lines []string
	lines = append(lines, AnthropicMessageStart()...)
	lines = append(lines, AnthropicBlockStart(0, "")...)
	lines = append(lines, AnthropicPing()...)
	for _, f := range fragments {
		lines = append(lines, AnthropicTextDelta(0, f)...)
	}
	lines = append(lines, AnthropicBlockStop(0)...)
	lines = append(lines, AnthropicMessageDelta(stopReason, len(fragments))...)
	lines = append(lines, AnthropicMessageStop()...)
	return lines
}

// AnthropicMessage renders the equivalent non-streaming body.
func AnthropicMessage(text, stopReason string) []byte {
	body := set("", "id", "msg_test")
	body = set(body, "type", "message")
	body = set(body, "role", "assistant")
	body = set(body, "model", AnthropicModel)
	body = set(body, "content.0.type", "text")
	body = set(body, "content.0.text", text)
	body = set(body, "stop_reason", stopReason)
	body = setRaw(body, "stop_sequence", "null")
	body = set(body, "usage.input_tokens", 12)
	body = set(body, "usage.output_tokens", 42)
	return []byte(body)
}

// ===== Cohere (flat-event JSON lines) =====

// CohereEvent renders one JSON line.
func CohereEvent(eventType string, finished bool, fields map[string]any) string {
	payload := set("", "is_finished", finished)
	payload = set(payload, "event_type", eventType)
	for k, v := range fields {
		payload = set(payload, k, v)
	}
	return payload
}

// CohereStreamStart opens a stream.
func CohereStreamStart() string {
	return CohereEvent("stream-start", false, map[string]any{"generation_id": "gen-test"})
}

// CohereText carries one text fragment.
func CohereText(text string) string {
	return CohereEvent("text-generation", false, map[string]any{"text": text})
}

// CohereCitation carries one citation.
func CohereCitation(start, end int, text string, documentIDs ...string) string {
	payload := CohereEvent("citation-generation", false, nil)
	payload = set(payload, "citations.0.start", start)
	payload = set(payload, "citations.0.end", end)
	payload = set(payload, "citations.0.text", text)
	payload = set(payload, "citations.0.document_ids", documentIDs)
	return payload
}

// CohereStreamEnd is the terminal event; the is_finished flag ends the stream.
func CohereStreamEnd(finishReason string) string {
	return CohereEvent("stream-end", true, map[string]any{"finish_reason": finishReason})
}

// CohereStream renders a full stream of fragments.
func CohereStream(fragments []string, finishReason string) []string {
	lines := []string{CohereStreamStart()}
	for _, f := range fragments {
		lines = append(lines, CohereText(f))
	}
	return append(lines, CohereStreamEnd(finishReason))
}

// CohereResponse renders the equivalent non-streaming body.
func CohereResponse(text, finishReason string) []byte {
	body := set("", "response_id", "resp-test")
	body = set(body, "generation_id", "gen-test")
	body = set(body, "text", text)
	body = set(body, "finish_reason", finishReason)
	body = set(body, "meta.billed_units.input_tokens", 12)
	body = set(body, "meta.billed_units.output_tokens", 42)
	return []byte(body)
}

// ===== OpenAI (data-only server-sent events) =====

// OpenAIData renders one data frame.
func OpenAIData(payload string) []string {
	return []string{"data: " + payload, ""}
}

// OpenAIChunk renders one chat.completion.chunk. role and finishReason may be empty.
func OpenAIChunk(role, content, finishReason string) string {
	chunk := set("", "id", "chatcmpl-test")
	chunk = set(chunk, "object", "chat.completion.chunk")
	chunk = set(chunk, "created", 1700000000)
	chunk = set(chunk, "model", OpenAIModel)
	chunk = set(chunk, "choices.0.index", 0)
	chunk = setRaw(chunk, "choices.0.delta", "{}")
	if role != "" {
		chunk = set(chunk, "choices.0.delta.role", role)
	}
	if content != "" {
		chunk = set(chunk, "choices.0.delta.content", content)
	}
	if finishReason != "" {
		chunk = set(chunk, "choices.0.finish_reason", finishReason)
	} else {
		chunk = setRaw(chunk, "choices.0.finish_reason", "null")
	}
	return chunk
}

// OpenAIStream renders a full chat stream terminated by [DONE].
func OpenAIStream(fragments []string, finishReason string) []string {
	var lines []string
	lines = append(lines, OpenAIData(OpenAIChunk("assistant", "", ""))...)
	lines = append(lines, ": keep-alive", "")
	for _, f := range fragments {
		lines = append(lines, OpenAIData(OpenAIChunk("", f, ""))...)
	}
	lines = append(lines, OpenAIData(OpenAIChunk("", "", finishReason))...)
	return append(lines, OpenAIData("[DONE]")...)
}

// OpenAIChatCompletion renders the equivalent non-streaming body.
func OpenAIChatCompletion(text, finishReason string) []byte {
	body := set("", "id", "chatcmpl-test")
	body = set(body, "object", "chat.completion")
	body = set(body, "model", OpenAIModel)
	body = set(body, "choices.0.index", 0)
	body = set(body, "choices.0.message.role", "assistant")
	body = set(body, "choices.0.message.content", text)
	body = set(body, "choices.0.finish_reason", finishReason)
	body = set(body, "usage.prompt_tokens", 12)
	body = set(body, "usage.completion_tokens", 42)
	return []byte(body)
}

// OpenAIEmbedding renders an embeddings response.
func OpenAIEmbedding(vectors ...[]float64) []byte {
	body := set("", "object", "list")
	body = set(body, "model", "text-embedding-3-small")
	for i, v := range vectors {
		body = set(body, sjsonIndex("data", i, "object"), "embedding")
		body = set(body, sjsonIndex("data", i, "index"), i)
		body = set(body, sjsonIndex("data", i, "embedding"), v)
	}
	body = set(body, "usage.prompt_tokens", 8)
	return []byte(body)
}

func sjsonIndex(array string, i int, field string) string {
	return array + "." + strconv.Itoa(i) + "." + field
}
