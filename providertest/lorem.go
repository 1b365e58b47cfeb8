// Package providertest provides synthetic vendor streams and servers for tests.
//
// Fixtures are generated from lorem ipsum text so streams have realistic
// fragment sizes without checking captured vendor traffic into the repo.
package providertest

import (
	"strings"
	"sync"

	loremgen "github.com/bozaro/golorem"
)

// Generator produces lorem ipsum fragments. Safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
}

// NewGenerator creates a lorem ipsum generator.
func NewGenerator() *Generator {
	return &Generator{generator: loremgen.New()}
}

// Fragments returns n streaming fragments. Every fragment but the first
// starts with a space, so concatenating them yields readable text.
func (g *Generator) Fragments(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		word := g.generator.Word(3, 10)
		if i > 0 {
			word = " " + word
		}
		out = append(out, word)
	}
	return out
}

// Text generates lorem ipsum text with approximately targetWords words.
func (g *Generator) Text(targetWords int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var sb strings.Builder
	wordCount := 0
	for wordCount < targetWords {
		// Generate sentence with 5-15 words
		sentence := g.generator.Sentence(5, 15)
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
		wordCount += len(strings.Fields(sentence))
	}
	return sb.String()
}

// Join concatenates fragments the way an accumulator would.
func Join(fragments []string) string {
	return strings.Join(fragments, "")
}
