package cohere

import (
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/haowjy/meridian-stream"
	"github.com/haowjy/meridian-stream/providertest"
)

func collect(t *testing.T, stream *llmprovider.Stream) []*llmprovider.Result {
	t.Helper()
	var out []*llmprovider.Result
	for result, err := range stream.All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		out = append(out, result)
	}
	return out
}

func contentFragments(results []*llmprovider.Result) []string {
	var out []string
	for _, r := range results {
		if r.Choices[0].Delta.HasContent() {
			out = append(out, r.Text(0))
		}
	}
	return out
}

func TestDecodeStream_TextThenEnd(t *testing.T) {
	lines := []string{
		providertest.CohereStreamStart(),
		providertest.CohereText("Hel"),
		providertest.CohereText("lo"),
		providertest.CohereStreamEnd("COMPLETE"),
	}

	resp, body := providertest.Response(lines)
	results := collect(t, NewProvider().DecodeStream(resp, llmprovider.ShapeChat))

	if got, want := contentFragments(results), []string{"Hel", "lo"}; !reflect.DeepEqual(got, want) {
		t.Errorf("content fragments = %q, want %q", got, want)
	}
	last := results[len(results)-1]
	if reason, ok := last.FinishReason(); !ok || reason != llmprovider.FinishStop {
		t.Errorf("FinishReason() = (%q, %v), want stop", reason, ok)
	}
	if last.Choices[0].Delta.HasContent() {
		t.Error("the end fragment should carry no content")
	}
	if !body.Closed() {
		t.Error("body should be closed once is_finished is seen")
	}
}

func TestDecodeStream_MalformedLineDropped(t *testing.T) {
	lines := []string{
		providertest.CohereStreamStart(),
		providertest.CohereText("before"),
		`{"is_finished":false,"event_type":"text-generation","text":`,
		providertest.CohereText(" after"),
		providertest.CohereStreamEnd("COMPLETE"),
	}

	resp, _ := providertest.Response(lines)
	results := collect(t, NewProvider().DecodeStream(resp, llmprovider.ShapeChat))
	if got, want := contentFragments(results), []string{"before", " after"}; !reflect.DeepEqual(got, want) {
		t.Errorf("content fragments = %q, want %q", got, want)
	}
}

func TestDecodeStream_FinishedFlagEndsStream(t *testing.T) {
	lines := []string{
		providertest.CohereText("one"),
		// is_finished on an otherwise ordinary event still ends the stream
		providertest.CohereEvent("text-generation", true, map[string]any{"text": "two"}),
		providertest.CohereText("three"),
		providertest.CohereStreamEnd("COMPLETE"),
	}

	resp, _ := providertest.Response(lines)
	results := collect(t, NewProvider().DecodeStream(resp, llmprovider.ShapeChat))
	if got, want := contentFragments(results), []string{"one", "two"}; !reflect.DeepEqual(got, want) {
		t.Errorf("content fragments = %q, want %q", got, want)
	}
}

func TestDecodeStream_UnknownAndSearchEvents(t *testing.T) {
	lines := []string{
		providertest.CohereStreamStart(),
		providertest.CohereEvent("search-queries-generation", false, map[string]any{"search_queries": []string{"q"}}),
		providertest.CohereEvent("tool-calls-chunk", false, map[string]any{"text": "not content"}),
		providertest.CohereText("answer"),
		providertest.CohereEvent("search-results", false, nil),
		providertest.CohereStreamEnd("COMPLETE"),
	}

	resp, _ := providertest.Response(lines)
	results := collect(t, NewProvider().DecodeStream(resp, llmprovider.ShapeChat))
	if got, want := contentFragments(results), []string{"answer"}; !reflect.DeepEqual(got, want) {
		t.Errorf("content fragments = %q, want %q", got, want)
	}
}

func TestDecodeStream_Citations(t *testing.T) {
	lines := []string{
		providertest.CohereStreamStart(),
		providertest.CohereText("Paris is the capital."),
		providertest.CohereCitation(0, 5, "Paris", "doc_0", "doc_1"),
		providertest.CohereStreamEnd("COMPLETE"),
	}

	resp, _ := providertest.Response(lines)
	aggregate, err := NewProvider().DecodeStream(resp, llmprovider.ShapeChat).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := []llmprovider.Citation{{StartIndex: 0, EndIndex: 5, Text: "Paris", DocumentIDs: []string{"doc_0", "doc_1"}}}
	if got := aggregate.Choices[0].Citations; !reflect.DeepEqual(got, want) {
		t.Errorf("Citations = %+v, want %+v", got, want)
	}
}

func TestDecodeStream_EndMetadata(t *testing.T) {
	end := providertest.CohereEvent("stream-end", true, map[string]any{
		"finish_reason":                            "MAX_TOKENS",
		"response.generation_id":                   "gen-42",
		"response.meta.billed_units.input_tokens":  7,
		"response.meta.billed_units.output_tokens": 30,
	})

	resp, _ := providertest.Response([]string{providertest.CohereText("x"), end})
	aggregate, err := NewProvider().DecodeStream(resp, llmprovider.ShapeChat).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if reason, _ := aggregate.FinishReason(); reason != llmprovider.FinishLength {
		t.Errorf("FinishReason() = %q, want length", reason)
	}
	if aggregate.Usage == nil || aggregate.Usage.InputTokens != 7 || aggregate.Usage.OutputTokens != 30 {
		t.Errorf("Usage = %+v", aggregate.Usage)
	}
	if aggregate.ResponseMetadata["generation_id"] != "gen-42" {
		t.Errorf("ResponseMetadata = %v", aggregate.ResponseMetadata)
	}
}

func TestDecodeStream_NonChatShapeYieldsNothing(t *testing.T) {
	resp, _ := providertest.Response(providertest.CohereStream([]string{"a", "b"}, "COMPLETE"))
	if results := collect(t, NewProvider().DecodeStream(resp, llmprovider.ShapeCompletion)); len(results) != 0 {
		t.Errorf("got %d fragments, want 0", len(results))
	}
}

func TestDecodeBody(t *testing.T) {
	fragments := providertest.NewGenerator().Fragments(8)
	p := NewProvider()

	resp, _ := providertest.Response(providertest.CohereStream(fragments, "COMPLETE"))
	streamed, err := p.DecodeStream(resp, llmprovider.ShapeChat).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	full, err := p.DecodeBody(providertest.CohereResponse(providertest.Join(fragments), "COMPLETE"), llmprovider.ShapeChat)
	if err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if streamed.Text(0) != full.Text(0) {
		t.Errorf("streamed %q, body %q", streamed.Text(0), full.Text(0))
	}
	if reason, _ := full.FinishReason(); reason != llmprovider.FinishStop {
		t.Errorf("FinishReason() = %q", reason)
	}
	if full.Usage == nil || full.Usage.OutputTokens != 42 {
		t.Errorf("Usage = %+v", full.Usage)
	}
	if full.ResponseMetadata["response_id"] != "resp-test" || full.ResponseMetadata["generation_id"] != "gen-test" {
		t.Errorf("ResponseMetadata = %v", full.ResponseMetadata)
	}
}

func TestDecodeBody_Errors(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		shape llmprovider.ResultShape
	}{
		{"embedding shape", `{"text":"x"}`, llmprovider.ShapeEmbedding},
		{"not json", `upstream error`, llmprovider.ShapeChat},
		{"missing text", `{"message":"invalid request: model not found"}`, llmprovider.ShapeChat},
		{"text not a string", `{"text":42}`, llmprovider.ShapeChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider().DecodeBody([]byte(tt.data), tt.shape)
			if !errors.Is(err, llmprovider.ErrDeserialization) {
				t.Errorf("DecodeBody() error = %v, want ErrDeserialization", err)
			}
		})
	}
}

func TestMapFinishReason(t *testing.T) {
	tests := []struct {
		reason string
		want   llmprovider.FinishReason
	}{
		{"", ""},
		{"COMPLETE", llmprovider.FinishStop},
		{"STOP_SEQUENCE", llmprovider.FinishStop},
		{"MAX_TOKENS", llmprovider.FinishLength},
		{"ERROR_TOXIC", llmprovider.FinishContentFilter},
		{"TOOL_CALL", llmprovider.FinishToolUse},
		{"ERROR", llmprovider.FinishError},
		{"ERROR_LIMIT", llmprovider.FinishError},
		{"USER_CANCEL", llmprovider.FinishError},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := mapFinishReason(tt.reason); got != tt.want {
				t.Errorf("mapFinishReason(%q) = %q, want %q", tt.reason, got, tt.want)
			}
		})
	}
}

func TestBuildURL(t *testing.T) {
	p := NewProvider()

	url, err := p.BuildURL(llmprovider.EndpointChat, "")
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}
	if url != "https://api.cohere.ai/v1/chat" {
		t.Errorf("BuildURL(chat) = %q", url)
	}

	for _, kind := range []llmprovider.EndpointKind{
		llmprovider.EndpointCompletion,
		llmprovider.EndpointEmbedding,
		llmprovider.EndpointImageGeneration,
		llmprovider.EndpointFiles,
		llmprovider.EndpointModeration,
		llmprovider.EndpointModels,
	} {
		if _, err := p.BuildURL(kind, ""); !errors.Is(err, llmprovider.ErrUnsupportedEndpoint) {
			t.Errorf("BuildURL(%s) error = %v, want ErrUnsupportedEndpoint", kind, err)
		}
	}
}

func TestEndToEnd(t *testing.T) {
	srv := providertest.NewServer(t, http.StatusOK, "application/stream+json",
		providertest.CohereStream([]string{"Hel", "lo"}, "COMPLETE"))
	creds := llmprovider.StaticCredentials{llmprovider.ProviderCohere: {APIKey: "co-test"}}
	p := NewProvider(llmprovider.WithBaseURL(srv.URL), llmprovider.WithCredentials(creds))

	url, err := p.BuildURL(llmprovider.EndpointChat, "")
	if err != nil {
		t.Fatalf("BuildURL() error = %v", err)
	}
	req, err := p.NewRequest(t.Context(), url, http.MethodPost, map[string]any{"model": providertest.CohereModel, "message": "hi"}, true)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := llmprovider.Send(srv.Client(), p.ID(), req)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	aggregate, err := p.DecodeStream(resp, llmprovider.ShapeChat).Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if aggregate.Text(0) != "Hello" {
		t.Errorf("Text(0) = %q, want Hello", aggregate.Text(0))
	}
	if aggregate.Provider != llmprovider.ProviderCohere || aggregate.RequestID != "req_test" {
		t.Errorf("provenance = (%q, %q)", aggregate.Provider, aggregate.RequestID)
	}

	recorded := srv.Requests()[0]
	if recorded.Path != "/chat" {
		t.Errorf("path = %q", recorded.Path)
	}
	if got := recorded.Header.Get("Authorization"); got != "Bearer co-test" {
		t.Errorf("Authorization = %q", got)
	}
}
