package chunk

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Bucket counts chunks whose token count falls in [Low, High). High is -1
// for the overflow bucket.
type Bucket struct {
	Low   int
	High  int
	Count int
}

// Stats summarizes token counts over a chunk set
type Stats struct {
	Count   int
	Total   int
	Average float64
	Min     int
	Max     int
	Buckets []Bucket
	sizes   []int
}

// Analyze computes token statistics for chunks. Counts measure the chunk
// text without its headings. The distribution splits [0, maxTokens) into
// four equal buckets plus an overflow bucket.
func Analyze(chunks []Chunk, tokenizer Tokenizer, maxTokens int) Stats {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	width := maxTokens / 4
	if width == 0 {
		width = 1
	}

	s := Stats{Count: len(chunks)}
	for i := 0; i < 4; i++ {
		s.Buckets = append(s.Buckets, Bucket{Low: i * width, High: (i + 1) * width})
	}
	s.Buckets[3].High = maxTokens
	s.Buckets = append(s.Buckets, Bucket{Low: maxTokens, High: -1})

	for i, c := range chunks {
		n := tokenizer.Count(c.Text)
		s.sizes = append(s.sizes, n)
		s.Total += n
		if i == 0 || n < s.Min {
			s.Min = n
		}
		if n > s.Max {
			s.Max = n
		}
		for j := range s.Buckets {
			b := &s.Buckets[j]
			if n >= b.Low && (b.High < 0 || n < b.High) {
				b.Count++
				break
			}
		}
	}
	if s.Count > 0 {
		s.Average = float64(s.Total) / float64(s.Count)
	}
	return s
}

// Report writes a human-readable analysis. The first previewCount chunks
// are shown in detail.
func (s Stats) Report(w io.Writer, chunks []Chunk, previewCount int) {
	rule := strings.Repeat("=", 60)

	fmt.Fprintf(w, "\n%s\nCHUNK ANALYSIS\n%s\n", rule, rule)
	for i, c := range chunks {
		if i >= previewCount || i >= len(s.sizes) {
			break
		}
		fmt.Fprintf(w, "\n--- Chunk %d ---\n", i)
		fmt.Fprintf(w, "Tokens: %d\n", s.sizes[i])
		fmt.Fprintf(w, "Characters: %d\n", utf8.RuneCountInString(c.Text))
		fmt.Fprintf(w, "Preview: %s...\n", preview(c.Text, 150))
		if len(c.Headings) > 0 {
			fmt.Fprintf(w, "Headings: %s\n", strings.Join(c.Headings, " > "))
		}
	}

	fmt.Fprintf(w, "\n%s\nSUMMARY STATISTICS\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total chunks: %d\n", s.Count)
	fmt.Fprintf(w, "Total tokens: %d\n", s.Total)
	fmt.Fprintf(w, "Average tokens per chunk: %.1f\n", s.Average)
	fmt.Fprintf(w, "Min tokens: %d\n", s.Min)
	fmt.Fprintf(w, "Max tokens: %d\n", s.Max)

	fmt.Fprintf(w, "\nToken distribution:\n")
	for _, b := range s.Buckets {
		if b.High < 0 {
			fmt.Fprintf(w, "  %d+ tokens: %d chunks\n", b.Low, b.Count)
			continue
		}
		fmt.Fprintf(w, "  %d-%d tokens: %d chunks\n", b.Low, b.High, b.Count)
	}
}

func preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}
