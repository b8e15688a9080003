package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kfreiman/docbridge/internal/bridge"
)

// ServerInstructions contains the MCP server instructions for clients
const ServerInstructions = `docbridge MCP Server - document conversion

Each tool call runs one docbridge process and returns its result frame:

JSON_RESULT_START
{"status":"success","markdown":"...","file":"report.pdf","output":"out/report.md"}
JSON_RESULT_END

A failed conversion has "status":"failed" and a non-empty "error".

## Transport

This server uses streamable HTTP transport only. Connect via:
- POST /mcp  - Streamable HTTP transport

## Tools

### convert_document
Convert a local file (PDF, DOCX, PPTX, XLSX, HTML, MD, TXT, ...) to Markdown.
Parameters:
- path: File path of the document
- output: Optional file or directory for the Markdown artifact

Example: {"path": "./report.pdf", "output": "./out/"}

### convert_url
Convert a web page or remote document to Markdown. Local paths are accepted too.
Parameters:
- url: http(s) URL or local path
- output: Optional file or directory for the Markdown artifact

Example: {"url": "https://example.com/guide.html"}

### chunk_document
Convert a document and split it into token-bounded chunks with heading context.
Parameters:
- path: File path or URL of the document
- output: File or directory for the chunk file
- max_tokens: Optional token budget per chunk (default: 512)

Example: {"path": "./guide.md", "output": "./chunks/", "max_tokens": 256}

### transcribe_audio
Transcribe an audio file into timestamped Markdown.
Parameters:
- path: Audio file (mp3, wav, m4a, flac, ogg, opus, webm, mp4)
- output: File or directory for the transcript

Example: {"path": "./meeting.mp3", "output": "./transcripts/"}

## Environment Variables

- PORT: HTTP server port (default: 8080)
- DOCBRIDGE_WORKERS: Concurrent bridge processes (default: 4)
- DOCBRIDGE_INVOCATION_TIMEOUT: Timeout for one bridge process (default: 10m)
`

// toolSpec ties an MCP tool to the bridge variant it runs
type toolSpec struct {
	Variant bridge.Variant
	// InputArg names the argument holding the input path or URL
	InputArg       string
	OutputRequired bool
	Tokens         bool
}

var toolSpecs = map[string]toolSpec{
	"convert_document": {Variant: bridge.VariantConvert, InputArg: "path"},
	"convert_url":      {Variant: bridge.VariantConvertURL, InputArg: "url"},
	"chunk_document":   {Variant: bridge.VariantChunk, InputArg: "path", OutputRequired: true, Tokens: true},
	"transcribe_audio": {Variant: bridge.VariantTranscribe, InputArg: "path", OutputRequired: true},
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"minLength":   1,
		"description": description,
	}
}

// ToolDefinitions contains the MCP tool definitions
var ToolDefinitions = map[string]*mcp.Tool{
	"convert_document": {
		Name:        "convert_document",
		Description: "Convert a local document (PDF, DOCX, PPTX, XLSX, HTML, MD, TXT and more) to Markdown. Returns the result frame.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":   stringProp("Path of the document to convert"),
				"output": stringProp("File or directory to write the Markdown to"),
			},
			"required":             []string{"path"},
			"additionalProperties": false,
		},
	},
	"convert_url": {
		Name:        "convert_url",
		Description: "Fetch a web page or remote document and convert it to Markdown. Local paths are accepted too. Returns the result frame including the document title.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url":    stringProp("http(s) URL or local path of the document"),
				"output": stringProp("File or directory to write the Markdown to"),
			},
			"required":             []string{"url"},
			"additionalProperties": false,
		},
	},
	"chunk_document": {
		Name:        "chunk_document",
		Description: "Convert a document and split it into token-bounded chunks that carry their heading context. Writes the chunk file and returns the result frame.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":   stringProp("Path or URL of the document to chunk"),
				"output": stringProp("File or directory to write the chunks to"),
				"max_tokens": map[string]interface{}{
					"type":        "integer",
					"minimum":     1,
					"description": "Token budget per chunk (default: 512)",
				},
			},
			"required":             []string{"path", "output"},
			"additionalProperties": false,
		},
	},
	"transcribe_audio": {
		Name:        "transcribe_audio",
		Description: "Transcribe an audio file into timestamped Markdown and write the transcript. Returns the result frame.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"path":   stringProp("Path of the audio file"),
				"output": stringProp("File or directory to write the transcript to"),
			},
			"required":             []string{"path", "output"},
			"additionalProperties": false,
		},
	},
}

// compileInputSchema compiles the input schema of tool for argument checks
func compileInputSchema(tool *mcp.Tool) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("encode %s schema: %w", tool.Name, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	resource := tool.Name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(encoded)); err != nil {
		return nil, fmt.Errorf("load %s schema: %w", tool.Name, err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", tool.Name, err)
	}
	return schema, nil
}

// toolNames returns the registered tool names in a stable order
func toolNames() []string {
	names := make([]string, 0, len(ToolDefinitions))
	for name := range ToolDefinitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
