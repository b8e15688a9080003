package converter

import (
	"fmt"
)

// ConversionError represents a conversion failure with detailed error info
type ConversionError struct {
	OriginalError error
	Stderr        string
	Path          string
	Hint          string
}

func (e *ConversionError) Error() string {
	msg := "conversion failed"
	if e.Hint != "" {
		msg = e.Hint
	}
	if e.OriginalError != nil {
		msg += fmt.Sprintf(": %v", e.OriginalError)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (file: %s)", e.Path)
	}
	if e.Stderr != "" {
		// Truncate stderr if too long
		stderr := e.Stderr
		if len(stderr) > 500 {
			stderr = stderr[:500] + "..."
		}
		msg += fmt.Sprintf("\nstderr: %s", stderr)
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.OriginalError
}

// FileNotFoundError represents a file not found error
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

// MissingResource reports the path that could not be found.
func (e *FileNotFoundError) MissingResource() string {
	return e.Path
}

// PathValidationError represents a path validation error
type PathValidationError struct {
	Path   string
	Reason string
}

func (e *PathValidationError) Error() string {
	return fmt.Sprintf("path validation failed for %s: %s", e.Path, e.Reason)
}

// BinaryNotFoundError represents a missing external tool
type BinaryNotFoundError struct {
	Binary string
	Hint   string
}

func (e *BinaryNotFoundError) Error() string {
	msg := e.Binary + " binary not found"
	if e.Hint != "" {
		msg += ". Please install it: " + e.Hint
	}
	return msg
}

// MissingDependency reports the name of the missing tool.
func (e *BinaryNotFoundError) MissingDependency() string {
	return e.Binary
}

// UnsupportedFormatError is returned when no backend handles an input
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported input format: %s has no file extension", e.Path)
	}
	return fmt.Sprintf("unsupported input format %q: %s", e.Ext, e.Path)
}
