package llmprovider

import (
	"reflect"
	"testing"
)

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator()

	acc.Add(&Result{
		Shape: ShapeChat,
		Model: "gpt-4o",
		Choices: []Choice{
			{Index: 0, Delta: &Message{Role: RoleAssistant}},
		},
	})
	acc.Add(DeltaResult(ShapeChat, RoleAssistant, StringPtr("Hel")))
	acc.Add(&Result{
		Shape: ShapeChat,
		Choices: []Choice{
			{Index: 1, Delta: &Message{Role: RoleAssistant, Content: StringPtr("other")}},
			{Index: 0, Delta: &Message{Role: RoleAssistant, Content: StringPtr("lo")}},
		},
		Provider:  ProviderOpenAI,
		RequestID: "req_1",
	})
	acc.Add(nil)
	acc.Add(&Result{
		Shape: ShapeChat,
		Choices: []Choice{{
			Index:        0,
			Delta:        &Message{Role: RoleAssistant},
			FinishReason: FinishReasonPtr(FinishLength),
			Citations:    []Citation{{StartIndex: 0, EndIndex: 3, Text: "Hel"}},
		}},
		Usage:     &Usage{InputTokens: 12, OutputTokens: 2},
		RequestID: "req_2",
	})
	acc.Add(&Result{
		Shape:            ShapeChat,
		Usage:            &Usage{OutputTokens: 5},
		ResponseMetadata: map[string]interface{}{"generation_id": "gen-1"},
	})

	got := acc.Result()

	if got.Model != "gpt-4o" || got.Provider != ProviderOpenAI || got.RequestID != "req_1" {
		t.Errorf("provenance = (%q, %q, %q)", got.Model, got.Provider, got.RequestID)
	}
	if len(got.Choices) != 2 {
		t.Fatalf("len(Choices) = %d, want 2", len(got.Choices))
	}
	if got.Choices[0].Index != 0 || got.Choices[1].Index != 1 {
		t.Errorf("choices not ordered by index: %d, %d", got.Choices[0].Index, got.Choices[1].Index)
	}
	if got.Text(0) != "Hello" {
		t.Errorf("Text(0) = %q, want Hello", got.Text(0))
	}
	if got.Text(1) != "other" {
		t.Errorf("Text(1) = %q, want other", got.Text(1))
	}
	if got.Choices[0].Delta != nil || got.Choices[0].Message == nil {
		t.Error("aggregate choices carry Message, not Delta")
	}
	if reason, ok := got.FinishReason(); !ok || reason != FinishLength {
		t.Errorf("FinishReason() = (%q, %v), want length", reason, ok)
	}
	if len(got.Choices[0].Citations) != 1 {
		t.Errorf("citations = %v", got.Choices[0].Citations)
	}
	if want := (&Usage{InputTokens: 12, OutputTokens: 5}); !reflect.DeepEqual(got.Usage, want) {
		t.Errorf("Usage = %+v, want %+v", got.Usage, want)
	}
	if got.ResponseMetadata["generation_id"] != "gen-1" {
		t.Errorf("ResponseMetadata = %v", got.ResponseMetadata)
	}
}

func TestAccumulator_NoContent(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(&Result{
		Shape:   ShapeChat,
		Choices: []Choice{{FinishReason: FinishReasonPtr(FinishStop)}},
	})

	got := acc.Result()
	if len(got.Choices) != 1 {
		t.Fatalf("len(Choices) = %d, want 1", len(got.Choices))
	}
	msg := got.Choices[0].Message
	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want assistant", msg.Role)
	}
	if msg.HasContent() {
		t.Error("content should stay absent when no fragment carried any")
	}
}

func TestAccumulator_Embeddings(t *testing.T) {
	acc := NewAccumulator()
	acc.Add(&Result{Shape: ShapeEmbedding, Embeddings: [][]float64{{0.1, 0.2}}})
	acc.Add(&Result{Shape: ShapeEmbedding, Embeddings: [][]float64{{0.3}}})

	got := acc.Result()
	if got.Shape != ShapeEmbedding {
		t.Errorf("Shape = %v, want embedding", got.Shape)
	}
	if want := [][]float64{{0.1, 0.2}, {0.3}}; !reflect.DeepEqual(got.Embeddings, want) {
		t.Errorf("Embeddings = %v, want %v", got.Embeddings, want)
	}
}

func TestAccumulator_ResultIsSnapshot(t *testing.T) {
	acc := NewAccumulator()
	first := &Result{
		Shape:      ShapeEmbedding,
		Embeddings: make([][]float64, 1, 4),
	}
	first.Embeddings[0] = []float64{0.1}
	first.SetMetadata("reasoning", "step one")
	acc.Add(first)

	snapshot := acc.Result()

	second := &Result{Shape: ShapeEmbedding, Embeddings: [][]float64{{0.2}}}
	second.SetMetadata("reasoning", "step two")
	second.SetMetadata("extra", true)
	acc.Add(second)

	if got := snapshot.ResponseMetadata["reasoning"]; got != "step one" {
		t.Errorf("snapshot reasoning = %v, want step one", got)
	}
	if _, ok := snapshot.ResponseMetadata["extra"]; ok {
		t.Error("snapshot gained a key added later")
	}
	if len(snapshot.Embeddings) != 1 {
		t.Errorf("snapshot has %d embeddings, want 1", len(snapshot.Embeddings))
	}

	snapshot.ResponseMetadata["reasoning"] = "edited"
	if got := acc.Result().ResponseMetadata["reasoning"]; got != "step two" {
		t.Errorf("accumulator reasoning = %v, want step two", got)
	}
}
