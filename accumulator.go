package llmprovider

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// Accumulator merges streamed fragments into one aggregate Result.
//
// Content is concatenated per choice index in arrival order; the last
// reported finish reason wins. The aggregate carries Message, not Delta.
type Accumulator struct {
	shape      ResultShape
	shapeSet   bool
	choices    map[int]*choiceState
	embeddings [][]float64
	model      string
	provider   ProviderID
	requestID  string
	usage      *Usage
	metadata   map[string]interface{}
}

type choiceState struct {
	role         Role
	content      strings.Builder
	hasContent   bool
	finishReason *FinishReason
	citations    []Citation
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{choices: make(map[int]*choiceState)}
}

// Add merges one fragment. Nil fragments are ignored.
func (a *Accumulator) Add(result *Result) {
	if result == nil {
		return
	}
	if !a.shapeSet {
		a.shape = result.Shape
		a.shapeSet = true
	}
	if a.model == "" {
		a.model = result.Model
	}
	if a.provider == "" {
		a.provider = result.Provider
	}
	if a.requestID == "" {
		a.requestID = result.RequestID
	}
	if result.Usage != nil {
		if a.usage == nil {
			a.usage = &Usage{}
		}
		a.usage.InputTokens = max(a.usage.InputTokens, result.Usage.InputTokens)
		a.usage.OutputTokens = max(a.usage.OutputTokens, result.Usage.OutputTokens)
	}
	for k, v := range result.ResponseMetadata {
		if a.metadata == nil {
			a.metadata = make(map[string]interface{})
		}
		a.metadata[k] = v
	}
	a.embeddings = append(a.embeddings, result.Embeddings...)

	for _, c := range result.Choices {
		state, ok := a.choices[c.Index]
		if !ok {
			state = &choiceState{}
			a.choices[c.Index] = state
		}
		for _, msg := range []*Message{c.Delta, c.Message} {
			if msg == nil {
				continue
			}
			if state.role == "" {
				state.role = msg.Role
			}
			if msg.Content != nil {
				state.content.WriteString(*msg.Content)
				state.hasContent = true
			}
		}
		if c.FinishReason != nil {
			reason := *c.FinishReason
			state.finishReason = &reason
		}
		state.citations = append(state.citations, c.Citations...)
	}
}

// Result returns a snapshot of the aggregate so far. Choices are ordered by
// index; later Add calls do not change a returned Result.
func (a *Accumulator) Result() *Result {
	out := &Result{
		Shape:            a.shape,
		Embeddings:       slices.Clone(a.embeddings),
		Model:            a.model,
		Provider:         a.provider,
		RequestID:        a.requestID,
		ResponseMetadata: maps.Clone(a.metadata),
	}
	if a.usage != nil {
		usage := *a.usage
		out.Usage = &usage
	}

	indexes := make([]int, 0, len(a.choices))
	for idx := range a.choices {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		state := a.choices[idx]
		role := state.role
		if role == "" {
			role = RoleAssistant
		}
		msg := &Message{Role: role}
		if state.hasContent {
			msg.Content = StringPtr(state.content.String())
		}
		out.Choices = append(out.Choices, Choice{
			Index:        idx,
			Message:      msg,
			FinishReason: state.finishReason,
			Citations:    slices.Clone(state.citations),
		})
	}
	return out
}
