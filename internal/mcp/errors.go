package mcp

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError represents input validation failure
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s '%s': %s", e.Field, e.Value, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// asValidationError turns a schema or rule failure into a ValidationError
// naming the first offending field
func asValidationError(err error) *ValidationError {
	var schemaErr *jsonschema.ValidationError
	if errors.As(err, &schemaErr) {
		leaf := firstLeaf(schemaErr)
		field := strings.TrimPrefix(leaf.InstanceLocation, "/")
		return &ValidationError{Field: field, Reason: strings.TrimSpace(leaf.Message)}
	}

	var ruleErrs validation.Errors
	if errors.As(err, &ruleErrs) && len(ruleErrs) > 0 {
		name := sortedKeys(ruleErrs)[0]
		return &ValidationError{Field: name, Reason: ruleErrs[name].Error()}
	}
	return &ValidationError{Reason: err.Error()}
}

func firstLeaf(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	return err
}
