package genclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Request describes one structured generation call.
type Request struct {
	// Model is the model identifier passed to the provider.
	Model string
	// Prompt is either a string or a JSON-marshalable payload.
	Prompt any
	// WantJSON asks the provider for JSON output and enables extraction.
	WantJSON bool
	// Schema, when set with WantJSON, is appended to the prompt as a
	// textual instruction and checked against the parsed value afterwards.
	Schema *jsonschema.Schema
}

// Result is the outcome of a generation call. Callers must handle both a
// structured value and a raw string: a JSON parse failure is not an error.
type Result struct {
	// Text is the full raw response.
	Text string
	// Payload is the extracted JSON candidate: the first fenced code block
	// if one exists, otherwise the full response text.
	Payload string
	// Value is the parsed JSON value, nil when parsing failed.
	Value any
	// SchemaErr is set when Value parsed but failed schema validation.
	SchemaErr error
}

// Structured reports whether the response parsed as JSON.
func (r Result) Structured() bool { return r.Value != nil }

// Decode unmarshals the extracted payload into v.
func (r Result) Decode(v any) error {
	return json.Unmarshal([]byte(r.Payload), v)
}

// Client enforces the structured generation contract over a Provider.
type Client struct {
	provider     Provider
	defaultModel string
}

// New returns a Client using defaultModel when a request leaves Model empty.
func New(provider Provider, defaultModel string) *Client {
	return &Client{provider: provider, defaultModel: defaultModel}
}

// DefaultModel returns the model used when requests leave Model empty.
func (c *Client) DefaultModel() string { return c.defaultModel }

var fencedBlockRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// Generate performs one structured generation call. The returned error
// covers transport failures only; malformed model output degrades to a raw
// text Result.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	prompt, err := renderPrompt(req.Prompt)
	if err != nil {
		return Result{}, err
	}
	if req.WantJSON && req.Schema != nil {
		instruction, err := schemaInstruction(req.Schema)
		if err != nil {
			return Result{}, err
		}
		prompt += instruction
	}

	text, err := c.provider.Complete(ctx, model, prompt, req.WantJSON)
	if err != nil {
		return Result{}, fmt.Errorf("generation failed: %w", err)
	}

	result := Result{Text: text, Payload: text}
	if !req.WantJSON {
		return result, nil
	}

	result.Payload = ExtractJSON(text)
	var value any
	if err := json.Unmarshal([]byte(result.Payload), &value); err != nil {
		slog.Warn("model returned unparseable JSON, degrading to raw text",
			"model", model, "error", err.Error())
		return result, nil
	}
	result.Value = value

	if req.Schema != nil {
		if err := validateAgainstSchema(req.Schema, value); err != nil {
			slog.Warn("model output failed schema validation", "model", model, "error", err.Error())
			result.SchemaErr = err
		}
	}
	return result, nil
}

// Ping reports whether the upstream service is reachable.
func (c *Client) Ping(ctx context.Context) bool {
	return c.provider.Ping(ctx)
}

// ExtractJSON returns the first fenced code block found in text, or text
// unchanged when no block exists.
func ExtractJSON(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

func renderPrompt(prompt any) (string, error) {
	switch p := prompt.(type) {
	case string:
		return p, nil
	default:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal prompt: %w", err)
		}
		return string(data), nil
	}
}

func schemaInstruction(schema *jsonschema.Schema) (string, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("\n\nYour response must conform to this JSON schema:\n```json\n")
	sb.Write(data)
	sb.WriteString("\n```\nEnsure your response is valid JSON with no markdown formatting.")
	return sb.String(), nil
}

func validateAgainstSchema(schema *jsonschema.Schema, value any) error {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve schema: %w", err)
	}
	if err := resolved.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
