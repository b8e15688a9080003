package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kfreiman/docbridge/internal/bridge"
	"github.com/kfreiman/docbridge/internal/client"
	"github.com/kfreiman/docbridge/internal/converter"
	"github.com/kfreiman/docbridge/internal/protocol"
)

// toolArguments is the union of every tool's parameters
type toolArguments struct {
	Path      string `json:"path"`
	URL       string `json:"url"`
	Output    string `json:"output"`
	MaxTokens int    `json:"max_tokens"`
}

func (a toolArguments) input(spec toolSpec) string {
	if spec.InputArg == "url" {
		return a.URL
	}
	return a.Path
}

func (a toolArguments) validate(spec toolSpec) error {
	inputRules := []validation.Rule{validation.Required, validation.By(safeLocation)}
	if spec.Variant == bridge.VariantConvert {
		inputRules = append(inputRules, validation.By(localOnly))
	}
	return validation.Errors{
		spec.InputArg: validation.Validate(a.input(spec), inputRules...),
		"output":      validation.Validate(a.Output, validation.When(spec.OutputRequired, validation.Required), validation.By(localOnly), validation.By(safeLocation)),
		"max_tokens":  validation.Validate(a.MaxTokens, validation.Min(1)),
	}.Filter()
}

// argv renders the positional arguments of the bridge process
func (a toolArguments) argv(spec toolSpec) []string {
	argv := []string{a.input(spec)}
	if a.Output != "" {
		argv = append(argv, a.Output)
	}
	if spec.Tokens && a.MaxTokens > 0 {
		argv = append(argv, strconv.Itoa(a.MaxTokens))
	}
	return argv
}

func safeLocation(value interface{}) error {
	s, _ := value.(string)
	if s == "" || converter.IsURL(s) {
		return nil
	}
	var pathErr *converter.PathValidationError
	if err := converter.ValidateContainedPath(s); errors.As(err, &pathErr) {
		return errors.New(pathErr.Reason)
	}
	return nil
}

func localOnly(value interface{}) error {
	if s, _ := value.(string); converter.IsURL(s) {
		return errors.New("must be a local path")
	}
	return nil
}

// BridgeTool runs one bridge variant per call
type BridgeTool struct {
	name    string
	spec    toolSpec
	schema  *jsonschema.Schema
	invoker client.Invoker
	logger  *slog.Logger
}

// NewBridgeTool creates the tool registered under name
func NewBridgeTool(name string, invoker client.Invoker) (*BridgeTool, error) {
	def, ok := ToolDefinitions[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	schema, err := compileInputSchema(def)
	if err != nil {
		return nil, err
	}
	return &BridgeTool{
		name:    name,
		spec:    toolSpecs[name],
		schema:  schema,
		invoker: invoker,
		logger:  slog.Default(),
	}, nil
}

// WithLogger sets a custom logger
func (t *BridgeTool) WithLogger(logger *slog.Logger) *BridgeTool {
	t.logger = logger
	return t
}

// Call implements the MCP tool interface. A failed conversion is reported
// through the frame with IsError set; only invalid arguments and broken
// processes return an error.
func (t *BridgeTool) Call(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := t.parse(request.Params.Arguments)
	if err != nil {
		t.logger.DebugContext(ctx, "rejected tool arguments", "tool", t.name, "error", err)
		return errorResult(fmt.Sprintf("Error: %v", err)), err
	}

	result, err := t.invoker.Run(ctx, string(t.spec.Variant), args.argv(t.spec)...)
	if err != nil {
		t.logger.ErrorContext(ctx, "bridge invocation failed",
			"tool", t.name,
			"input", args.input(t.spec),
			"error", err,
		)
		return errorResult(fmt.Sprintf("Error: %v", err)), err
	}

	frame, err := protocol.Encode(*result)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: %v", err)), err
	}

	t.logger.InfoContext(ctx, "tool call completed",
		"tool", t.name,
		"file", result.File,
		"status", result.Status,
	)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(frame)}},
		IsError: !result.Succeeded(),
	}, nil
}

func (t *BridgeTool) parse(raw json.RawMessage) (toolArguments, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return toolArguments{}, &ValidationError{
			Field:  "arguments",
			Reason: fmt.Sprintf("invalid JSON format: %v", err),
		}
	}
	if err := t.schema.Validate(doc); err != nil {
		return toolArguments{}, asValidationError(err)
	}

	var args toolArguments
	if err := json.Unmarshal(raw, &args); err != nil {
		return toolArguments{}, &ValidationError{Field: "arguments", Reason: err.Error()}
	}
	if err := args.validate(t.spec); err != nil {
		return toolArguments{}, asValidationError(err)
	}
	return args, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
