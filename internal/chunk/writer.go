package chunk

import (
	"fmt"
	"strings"
)

var separator = strings.Repeat("=", 60)

// Render produces the chunk file body: each chunk under a numbered banner,
// contextualized, followed by a blank line
func Render(chunks []Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		fmt.Fprintf(&b, "%s\nCHUNK %d\n%s\n", separator, i, separator)
		b.WriteString(Contextualize(c))
		b.WriteString("\n\n")
	}
	return b.String()
}
