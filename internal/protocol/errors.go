package protocol

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the caller-visible failure category. It only shows through the
// error message and the exit code; it is not serialized.
type Kind string

const (
	KindNone       Kind = ""
	KindUsage      Kind = "usage"
	KindDependency Kind = "dependency"
	KindResource   Kind = "resource"
	KindConversion Kind = "conversion"
)

// UsageError reports wrong or missing positional arguments.
type UsageError struct {
	Usage  string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason == "" {
		return "No file path provided. Usage: " + e.Usage
	}
	return fmt.Sprintf("%s. Usage: %s", e.Reason, e.Usage)
}

// dependencyError is implemented by errors raised when an external tool or
// library the converter needs is not installed.
type dependencyError interface {
	error
	MissingDependency() string
}

// resourceError is implemented by errors raised when the input cannot be
// found or read.
type resourceError interface {
	error
	MissingResource() string
}

// Classify maps err to a failure Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return KindUsage
	}
	var dep dependencyError
	if errors.As(err, &dep) {
		return KindDependency
	}
	var res resourceError
	if errors.As(err, &res) {
		return KindResource
	}
	return KindConversion
}

// Message renders the human-readable error text for err according to its
// Kind.
func Message(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindUsage:
		var usage *UsageError
		errors.As(err, &usage)
		return usage.Error()
	case KindDependency:
		var dep dependencyError
		errors.As(err, &dep)
		return fmt.Sprintf("Converter dependency missing: %s. Error: %v", dep.MissingDependency(), err)
	case KindResource:
		var res resourceError
		errors.As(err, &res)
		return "File not found: " + res.MissingResource()
	default:
		msg := strings.TrimSpace(err.Error())
		if msg == "" {
			msg = "conversion failed"
		}
		return msg
	}
}

// Succeeded builds a success result for input.
func Succeeded(input, markdown string) Result {
	return Result{
		Status:   StatusSuccess,
		Markdown: markdown,
		File:     BaseName(input),
	}
}

// Failed builds a failed result for input from err. The returned Kind
// drives the exit code.
func Failed(input string, err error) (Result, Kind) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result{
		Status:   StatusFailed,
		Markdown: "",
		File:     BaseName(input),
		Error:    Message(err),
	}, Classify(err)
}

// BaseName returns the name reported in the file field. URLs report their
// last path segment, or the host when the path is empty.
func BaseName(input string) string {
	if input == "" {
		return ""
	}
	if rest, ok := cutScheme(input); ok {
		rest = strings.SplitN(rest, "?", 2)[0]
		rest = strings.SplitN(rest, "#", 2)[0]
		rest = strings.TrimRight(rest, "/")
		if i := strings.LastIndex(rest, "/"); i >= 0 {
			return rest[i+1:]
		}
		return rest
	}
	return filepath.Base(input)
}

func cutScheme(input string) (string, bool) {
	for _, scheme := range []string{"http://", "https://"} {
		if rest, ok := strings.CutPrefix(input, scheme); ok {
			return rest, true
		}
	}
	return "", false
}
