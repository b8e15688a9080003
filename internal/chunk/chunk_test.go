package chunk

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guideMarkdown = "---\ntitle: Guide\n---\n# Intro\n\nFirst paragraph\ncontinues here.\n\n- item one\n- item two\n\n## Setup\n\n```go\nfmt.Println(\"hi\")\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n> quoted\n"

func TestParseBlocks(t *testing.T) {
	blocks := ParseBlocks(guideMarkdown)

	want := []Block{
		{Kind: KindHeading, Level: 1, Text: "Intro"},
		{Kind: KindParagraph, Text: "First paragraph\ncontinues here."},
		{Kind: KindList, Text: "- item one\n- item two"},
		{Kind: KindHeading, Level: 2, Text: "Setup"},
		{Kind: KindCode, Text: "```go\nfmt.Println(\"hi\")\n```"},
		{Kind: KindTable, Text: "| a | b |\n|---|---|\n| 1 | 2 |"},
		{Kind: KindQuote, Text: "> quoted"},
	}
	assert.Equal(t, want, blocks)
}

func TestStripFrontMatter(t *testing.T) {
	assert.Equal(t, "# Body\n", strings.TrimLeft(string(StripFrontMatter([]byte("---\ntitle: x\n---\n# Body\n"))), "\n"))
	assert.Equal(t, "# No front matter\n", string(StripFrontMatter([]byte("# No front matter\n"))))
}

func TestWordTokenizer(t *testing.T) {
	tok := NewWordTokenizer()

	assert.Equal(t, 0, tok.Count(""))
	assert.Equal(t, 4, tok.Count("Hello, world! It's 2024."))

	text := "alpha  beta"
	tokens := tok.Tokens(text)
	require.Len(t, tokens, 2)
	assert.Equal(t, "alpha", text[tokens[0].Start:tokens[0].End])
	assert.Equal(t, "beta", text[tokens[1].Start:tokens[1].End])
}

func TestContextualize(t *testing.T) {
	assert.Equal(t, "body", Contextualize(Chunk{Text: "body"}))
	assert.Equal(t, "Guide\nInstall\nRun it.", Contextualize(Chunk{Text: "Run it.", Headings: []string{"Guide", "Install"}}))
}

const sectionsMarkdown = "# Guide\n\nAlpha beta gamma.\n\nDelta epsilon.\n\n## Install\n\nRun the installer now.\n"

func TestHybridChunker_HeadingPaths(t *testing.T) {
	chunker := NewHybridChunker(512)
	chunker.MergePeers = false

	chunks := chunker.Chunk(sectionsMarkdown)
	want := []Chunk{
		{Text: "Alpha beta gamma.", Headings: []string{"Guide"}},
		{Text: "Delta epsilon.", Headings: []string{"Guide"}},
		{Text: "Run the installer now.", Headings: []string{"Guide", "Install"}},
	}
	assert.Equal(t, want, chunks)
}

func TestHybridChunker_HeadingPathPopsSiblings(t *testing.T) {
	md := "# A\n\n## B\n\nunder b\n\n## C\n\nunder c\n\n# D\n\nunder d\n"
	chunks := NewHybridChunker(512).Chunk(md)

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A", "B"}, chunks[0].Headings)
	assert.Equal(t, []string{"A", "C"}, chunks[1].Headings)
	assert.Equal(t, []string{"D"}, chunks[2].Headings)
}

func TestHybridChunker_MergePeers(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		want      []string
	}{
		{"merges within budget", 512, []string{"Alpha beta gamma.\n\nDelta epsilon.", "Run the installer now."}},
		{"exact fit merges", 6, []string{"Alpha beta gamma.\n\nDelta epsilon.", "Run the installer now."}},
		{"over budget stays apart", 5, []string{"Alpha beta gamma.", "Delta epsilon.", "Run the installer", "now."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewHybridChunker(tt.maxTokens).Chunk(sectionsMarkdown)
			var texts []string
			for _, c := range chunks {
				texts = append(texts, c.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestHybridChunker_SplitPrefersSentenceEnds(t *testing.T) {
	md := "One two three four. Five six seven eight. Nine ten eleven twelve.\n"

	chunks := NewHybridChunker(6).Chunk(md)

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"One two three four.", "Five six seven eight.", "Nine ten eleven twelve."}, texts)
}

func TestHybridChunker_SplitPrefersLineBreaks(t *testing.T) {
	md := "aa bb cc\ndd ee ff\ngg hh\n"

	chunks := NewHybridChunker(4).Chunk(md)

	var texts []string
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"aa bb cc", "dd ee ff", "gg hh"}, texts)
}

func TestHybridChunker_HeadingOverflowAccepted(t *testing.T) {
	chunker := NewHybridChunker(5)
	chunks := chunker.Chunk("# a b c d e f g\n\nx y z\n")

	require.Len(t, chunks, 1)
	assert.Equal(t, "x y z", chunks[0].Text)
	assert.Greater(t, chunker.TokenCount(chunks[0]), 5)
}

func TestHybridChunker_BudgetAndOrder(t *testing.T) {
	var b strings.Builder
	for s := 0; s < 6; s++ {
		fmt.Fprintf(&b, "## Section %d\n\n", s)
		for p := 0; p < 4; p++ {
			for w := 0; w < 9+s*3+p; w++ {
				fmt.Fprintf(&b, "word%d_%d_%d ", s, p, w)
				if w%7 == 6 {
					b.WriteString(". ")
				}
			}
			b.WriteString("\n\n")
		}
	}
	md := b.String()

	for _, maxTokens := range []int{8, 16, 40, 512} {
		t.Run(fmt.Sprintf("max_%d", maxTokens), func(t *testing.T) {
			chunker := NewHybridChunker(maxTokens)
			chunks := chunker.Chunk(md)
			require.NotEmpty(t, chunks)

			last := -1
			for _, c := range chunks {
				assert.NotEmpty(t, strings.TrimSpace(c.Text))
				assert.LessOrEqual(t, chunker.TokenCount(c), maxTokens, c.Text)

				first := strings.Fields(c.Text)[0]
				pos := strings.Index(md, first)
				require.GreaterOrEqual(t, pos, 0)
				assert.Greater(t, pos, last, "chunks follow document order")
				last = pos
			}
		})
	}
}

func TestHybridChunker_EmptyInput(t *testing.T) {
	assert.Empty(t, NewHybridChunker(0).Chunk(""))
	assert.Empty(t, NewHybridChunker(0).Chunk("# Only a heading\n"))
}

func TestRender(t *testing.T) {
	chunks := []Chunk{
		{Text: "first"},
		{Text: "second", Headings: []string{"H"}},
	}
	rule := strings.Repeat("=", 60)
	want := rule + "\nCHUNK 0\n" + rule + "\nfirst\n\n" + rule + "\nCHUNK 1\n" + rule + "\nH\nsecond\n\n"
	assert.Equal(t, want, Render(chunks))
}

func TestAnalyze(t *testing.T) {
	chunks := []Chunk{
		{Text: "one"},
		{Text: "one two three"},
		{Text: "one two three four five"},
		{Text: "a b c d e f g h i", Headings: []string{"ignored in counts"}},
	}

	s := Analyze(chunks, NewWordTokenizer(), 8)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 18, s.Total)
	assert.InDelta(t, 4.5, s.Average, 0.001)
	assert.Equal(t, 1, s.Min)
	assert.Equal(t, 9, s.Max)
	assert.Equal(t, []Bucket{
		{Low: 0, High: 2, Count: 1},
		{Low: 2, High: 4, Count: 1},
		{Low: 4, High: 6, Count: 1},
		{Low: 6, High: 8, Count: 0},
		{Low: 8, High: -1, Count: 1},
	}, s.Buckets)

	var out bytes.Buffer
	s.Report(&out, chunks, 3)
	report := out.String()
	assert.Contains(t, report, "Total chunks: 4")
	assert.Contains(t, report, "Average tokens per chunk: 4.5")
	assert.Contains(t, report, "8+ tokens: 1 chunks")
	assert.Contains(t, report, "--- Chunk 2 ---")
	assert.NotContains(t, report, "--- Chunk 3 ---")
}

func TestAnalyze_Empty(t *testing.T) {
	s := Analyze(nil, NewWordTokenizer(), 512)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.Average)
	assert.Len(t, s.Buckets, 5)
}
