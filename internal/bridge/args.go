package bridge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kfreiman/docbridge/internal/protocol"
)

// Variant names one bridge entry point
type Variant string

const (
	VariantConvert       Variant = "convert"
	VariantConvertSimple Variant = "convert-simple"
	VariantConvertURL    Variant = "convert-url"
	VariantChunk         Variant = "chunk"
	VariantTranscribe    Variant = "transcribe"
)

// Variants lists every variant in the order they are documented
var Variants = []Variant{
	VariantConvert,
	VariantConvertSimple,
	VariantConvertURL,
	VariantChunk,
	VariantTranscribe,
}

// Usage returns the positional argument synopsis for v
func (v Variant) Usage() string {
	switch v {
	case VariantConvert, VariantConvertSimple:
		return fmt.Sprintf("docbridge %s <input> [output]", v)
	case VariantConvertURL:
		return fmt.Sprintf("docbridge %s <url-or-path> [output]", v)
	case VariantChunk:
		return fmt.Sprintf("docbridge %s <input> <output> [max_tokens]", v)
	case VariantTranscribe:
		return fmt.Sprintf("docbridge %s <audio> <output>", v)
	default:
		return "docbridge <variant> <args>"
	}
}

func (v Variant) arity() (minArgs, maxArgs int) {
	switch v {
	case VariantChunk:
		return 2, 3
	case VariantTranscribe:
		return 2, 2
	default:
		return 1, 2
	}
}

func (v Variant) valid() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// Invocation is a parsed set of positional arguments
type Invocation struct {
	Variant   Variant
	Input     string
	Output    string
	MaxTokens int
}

// ParseArgs validates args for v. Every failure is a *protocol.UsageError.
// defaultMaxTokens applies when the chunk variant gets no budget.
func ParseArgs(v Variant, args []string, defaultMaxTokens int) (Invocation, error) {
	if !v.valid() {
		return Invocation{}, &protocol.UsageError{
			Usage:  v.Usage(),
			Reason: fmt.Sprintf("Unknown variant %q", string(v)),
		}
	}

	minArgs, maxArgs := v.arity()
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return Invocation{}, &protocol.UsageError{Usage: v.Usage()}
	}
	if len(args) < minArgs {
		return Invocation{}, &protocol.UsageError{Usage: v.Usage(), Reason: "No output path provided"}
	}
	if len(args) > maxArgs {
		return Invocation{}, &protocol.UsageError{
			Usage:  v.Usage(),
			Reason: fmt.Sprintf("Too many arguments: got %d, want at most %d", len(args), maxArgs),
		}
	}

	inv := Invocation{Variant: v, Input: args[0], MaxTokens: defaultMaxTokens}
	if len(args) > 1 {
		inv.Output = args[1]
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(strings.TrimSpace(args[2]))
		if err != nil || n <= 0 {
			return Invocation{}, &protocol.UsageError{
				Usage:  v.Usage(),
				Reason: fmt.Sprintf("Invalid max_tokens %q: must be a positive integer", args[2]),
			}
		}
		inv.MaxTokens = n
	}
	return inv, nil
}
