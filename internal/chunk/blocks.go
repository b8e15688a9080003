package chunk

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind names the structural role of a top-level block
type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
	KindList      BlockKind = "list"
	KindTable     BlockKind = "table"
	KindCode      BlockKind = "code"
	KindQuote     BlockKind = "quote"
	KindHTML      BlockKind = "html"
	KindOther     BlockKind = "other"
)

// Block is one top-level Markdown block with its source text
type Block struct {
	Kind  BlockKind
	Level int // heading level, 0 otherwise
	Text  string
}

var markdownParser = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.TaskList))

// StripFrontMatter removes a leading YAML or TOML front matter block
func StripFrontMatter(source []byte) []byte {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return source
	}
	return body
}

// ParseBlocks splits markdown into its top-level blocks in document order.
// Each block keeps its raw Markdown, from the first line it occupies up to
// the line where the next block starts.
func ParseBlocks(markdown string) []Block {
	source := StripFrontMatter([]byte(markdown))
	doc := markdownParser.Parser().Parse(text.NewReader(source))

	type located struct {
		node  ast.Node
		start int
	}
	var nodes []located
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindThematicBreak {
			continue
		}
		start, ok := blockStart(n, source)
		if !ok {
			continue
		}
		if len(nodes) > 0 && start <= nodes[len(nodes)-1].start {
			continue
		}
		nodes = append(nodes, located{node: n, start: start})
	}

	blocks := make([]Block, 0, len(nodes))
	for i, l := range nodes {
		end := len(source)
		if i+1 < len(nodes) {
			end = nodes[i+1].start
		}
		raw := strings.TrimSpace(string(source[l.start:end]))
		if raw == "" {
			continue
		}

		b := Block{Kind: kindOf(l.node), Text: raw}
		if h, ok := l.node.(*ast.Heading); ok {
			b.Level = h.Level
			b.Text = headingText(h, source)
			if b.Text == "" {
				continue
			}
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// blockStart returns the offset of the first line occupied by n
func blockStart(n ast.Node, source []byte) (int, bool) {
	leaf := firstLeaf(n)
	if leaf == nil {
		return 0, false
	}
	pos := lineStart(source, leaf.Lines().At(0).Start)
	if leaf.Kind() == ast.KindFencedCodeBlock && pos > 0 {
		// the opening fence sits on the line above the first content line
		pos = lineStart(source, pos-1)
	}
	return pos, true
}

func firstLeaf(n ast.Node) ast.Node {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if leaf := firstLeaf(c); leaf != nil {
			return leaf
		}
	}
	return nil
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}

func kindOf(n ast.Node) BlockKind {
	switch n.Kind() {
	case ast.KindHeading:
		return KindHeading
	case ast.KindParagraph:
		return KindParagraph
	case ast.KindList:
		return KindList
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return KindCode
	case ast.KindBlockquote:
		return KindQuote
	case ast.KindHTMLBlock:
		return KindHTML
	case extast.KindTable:
		return KindTable
	}
	return KindOther
}
