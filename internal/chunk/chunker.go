// Package chunk splits Markdown into token-bounded chunks that follow the
// document structure.
package chunk

import (
	"strings"
)

// DefaultMaxTokens is the chunk budget used when none is given
const DefaultMaxTokens = 512

// Chunk is a run of document text under one heading path
type Chunk struct {
	Text     string
	Headings []string
}

// Contextualize prefixes the chunk text with its heading path, one heading
// per line. This is the text that is measured against the budget and the
// text that is written out.
func Contextualize(c Chunk) string {
	if len(c.Headings) == 0 {
		return c.Text
	}
	parts := make([]string, 0, len(c.Headings)+1)
	parts = append(parts, c.Headings...)
	parts = append(parts, c.Text)
	return strings.Join(parts, "\n")
}

// HybridChunker chunks by document structure first and token budget second
type HybridChunker struct {
	Tokenizer  Tokenizer
	MaxTokens  int
	MergePeers bool
}

// NewHybridChunker creates a chunker with the word tokenizer and peer merging
func NewHybridChunker(maxTokens int) *HybridChunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &HybridChunker{
		Tokenizer:  NewWordTokenizer(),
		MaxTokens:  maxTokens,
		MergePeers: true,
	}
}

// Chunk splits markdown into chunks in document order. No chunk is empty.
// A chunk exceeds MaxTokens only when its headings alone do.
func (h *HybridChunker) Chunk(markdown string) []Chunk {
	var chunks []Chunk
	for _, c := range h.structural(markdown) {
		chunks = append(chunks, h.split(c)...)
	}
	if h.MergePeers {
		chunks = h.merge(chunks)
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) != "" {
			out = append(out, c)
		}
	}
	return out
}

// TokenCount measures the contextualized chunk
func (h *HybridChunker) TokenCount(c Chunk) int {
	return h.Tokenizer.Count(Contextualize(c))
}

type headingEntry struct {
	level int
	text  string
}

// structural emits one chunk per content block, tagged with the headings
// in force at that point
func (h *HybridChunker) structural(markdown string) []Chunk {
	var (
		path   []headingEntry
		chunks []Chunk
	)
	for _, b := range ParseBlocks(markdown) {
		if b.Kind == KindHeading {
			for len(path) > 0 && path[len(path)-1].level >= b.Level {
				path = path[:len(path)-1]
			}
			path = append(path, headingEntry{level: b.Level, text: b.Text})
			continue
		}

		headings := make([]string, len(path))
		for i, e := range path {
			headings[i] = e.text
		}
		chunks = append(chunks, Chunk{Text: b.Text, Headings: headings})
	}
	return chunks
}

// split breaks an oversized chunk into windows that fit the budget left
// after its headings
func (h *HybridChunker) split(c Chunk) []Chunk {
	if h.TokenCount(c) <= h.MaxTokens {
		return []Chunk{c}
	}

	headingTokens := 0
	for _, heading := range c.Headings {
		headingTokens += h.Tokenizer.Count(heading)
	}
	budget := h.MaxTokens - headingTokens
	if budget <= 0 {
		// The headings alone overflow; nothing to gain from splitting
		return []Chunk{c}
	}

	tokens := h.Tokenizer.Tokens(c.Text)
	var pieces []Chunk
	pieceStart := 0
	for i := 0; i < len(tokens); {
		if len(tokens)-i <= budget {
			pieces = appendPiece(pieces, c, c.Text[pieceStart:])
			break
		}
		next := breakAfter(c.Text, tokens, i, i+budget)
		cut := tokens[next].Start
		pieces = appendPiece(pieces, c, c.Text[pieceStart:cut])
		pieceStart = cut
		i = next
	}
	return pieces
}

func appendPiece(pieces []Chunk, parent Chunk, text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return pieces
	}
	return append(pieces, Chunk{Text: text, Headings: parent.Headings})
}

// breakAfter picks the index of the first token of the next piece for a
// window [from, limit). Line breaks are preferred over sentence ends, which
// are preferred over a hard cut, as long as the piece keeps at least half
// the window.
func breakAfter(text string, tokens []Token, from, limit int) int {
	floor := from + (limit-from)/2
	if floor <= from {
		floor = from + 1
	}

	gap := func(k int) string {
		return text[tokens[k-1].End:tokens[k].Start]
	}
	for k := limit; k >= floor; k-- {
		if strings.Contains(gap(k), "\n") {
			return k
		}
	}
	for k := limit; k >= floor; k-- {
		if strings.ContainsAny(gap(k), ".!?") {
			return k
		}
	}
	return limit
}

// merge joins adjacent chunks that share a heading path while the result
// stays within the budget
func (h *HybridChunker) merge(chunks []Chunk) []Chunk {
	if len(chunks) < 2 {
		return chunks
	}

	merged := []Chunk{chunks[0]}
	for _, c := range chunks[1:] {
		last := &merged[len(merged)-1]
		if sameHeadings(last.Headings, c.Headings) {
			candidate := Chunk{Text: last.Text + "\n\n" + c.Text, Headings: last.Headings}
			if h.TokenCount(candidate) <= h.MaxTokens {
				*last = candidate
				continue
			}
		}
		merged = append(merged, c)
	}
	return merged
}

func sameHeadings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
