package chunk

import (
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// Token is a word located by byte offsets into the tokenized text
type Token struct {
	Start int
	End   int
}

// Tokenizer counts and locates tokens in text
type Tokenizer interface {
	Count(text string) int
	Tokens(text string) []Token
}

// WordTokenizer splits on Unicode word boundaries (UAX #29). Punctuation
// and whitespace are not tokens.
type WordTokenizer struct {
	tokenizer *unicode.UnicodeTokenizer
}

// NewWordTokenizer creates the default tokenizer
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{tokenizer: unicode.NewUnicodeTokenizer()}
}

// Count returns the number of tokens in text
func (w *WordTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(w.tokenizer.Tokenize([]byte(text)))
}

// Tokens returns every token in text in order
func (w *WordTokenizer) Tokens(text string) []Token {
	if text == "" {
		return nil
	}
	stream := w.tokenizer.Tokenize([]byte(text))
	tokens := make([]Token, len(stream))
	for i, t := range stream {
		tokens[i] = Token{Start: t.Start, End: t.End}
	}
	return tokens
}
