package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"playground/internal/prompts"
	"playground/internal/schema"
	"playground/llm"
)

// ToolName is the name of the single tool offered on the primary request.
const ToolName = "codeGeneration"

var (
	// ErrMalformedArguments wraps any failure to turn tool-call arguments into
	// a CodeArgument.
	ErrMalformedArguments = errors.New("malformed tool arguments")
	// ErrUnknownTool is returned when the model calls a tool other than
	// ToolName.
	ErrUnknownTool = errors.New("unknown tool")
)

// CodeArgument is the decoded payload of a codeGeneration call.
type CodeArgument struct {
	Type     prompts.Kind `json:"type"`
	FilePath string       `json:"filePath"`
	Context  string       `json:"context,omitempty"`
}

var codeGenerationSchema = &schema.Object{
	Title:       ToolName,
	Description: "Generates metadata to setup code generation for a Nuxt 3 environment",
	Fields: []*schema.Field{
		schema.String("filePath").Describe("Path of the file to generate or modify.").MarkRequired(),
		schema.String("type").Describe("Type of code to generate.").OneOf(prompts.KindNames()...).MarkRequired(),
		schema.String("context").Describe("Original code content if editing.").MarkNullable(),
	},
}

// CodeGenerationTool is the tool definition sent with every primary request.
func CodeGenerationTool() llm.Tool {
	return llm.Tool{
		Name:        ToolName,
		Description: codeGenerationSchema.Description,
		Parameters:  codeGenerationSchema,
	}
}

// ParseCodeArgument parses raw tool arguments as a single JSON object and
// validates it against the codeGeneration schema.
func ParseCodeArgument(raw string) (CodeArgument, error) {
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return CodeArgument{}, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	// Older tool definitions advertised "styles".
	if t, ok := values["type"].(string); ok && t == "styles" {
		values["type"] = string(prompts.Style)
	}

	var arg CodeArgument
	if err := codeGenerationSchema.Bind(values, &arg); err != nil {
		return CodeArgument{}, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if strings.TrimSpace(arg.FilePath) == "" {
		return CodeArgument{}, fmt.Errorf("%w: filePath is empty", ErrMalformedArguments)
	}
	return arg, nil
}

// DecodeResult is the outcome of one decoded stream: either the text it
// carried or the tool call it committed to.
type DecodeResult struct {
	Text      string
	ToolCall  *llm.ToolCallDelta
	Fragments int
}

// Decoder classifies a streamed response as plain text or a tool call.
type Decoder struct{}

// NewDecoder creates a new decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode consumes stream until it ends or a fragment carries tool-call data.
// Text deltas are passed to onText as they arrive. The first tool call wins
// and nothing after it is read. The stream is always closed.
func (d *Decoder) Decode(ctx context.Context, stream llm.Stream, onText func(delta string)) (*DecodeResult, error) {
	defer stream.Close()

	var text strings.Builder
	result := &DecodeResult{}
	for {
		if err := ctx.Err(); err != nil {
			result.Text = text.String()
			return result, err
		}

		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Text = text.String()
			return result, err
		}
		result.Fragments++

		if frag.ToolCall != nil {
			result.ToolCall = frag.ToolCall
			break
		}
		if frag.Content == "" {
			continue
		}
		text.WriteString(frag.Content)
		if onText != nil {
			onText(frag.Content)
		}
	}

	result.Text = text.String()
	return result, nil
}
