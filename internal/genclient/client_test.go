package genclient

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
)

type fakeProvider struct {
	response   string
	err        error
	lastPrompt string
	lastModel  string
	wantJSON   bool
	reachable  bool
}

func (p *fakeProvider) Complete(ctx context.Context, model, prompt string, wantJSON bool) (string, error) {
	p.lastModel = model
	p.lastPrompt = prompt
	p.wantJSON = wantJSON
	return p.response, p.err
}

func (p *fakeProvider) Ping(ctx context.Context) bool { return p.reachable }

func TestGenerateExtractsFencedBlock(t *testing.T) {
	provider := &fakeProvider{response: "Here you go:\n```json\n{\"dialogue\": \"hello\"}\n```\nDone."}
	client := New(provider, "test-model")

	result, err := client.Generate(context.Background(), Request{Prompt: "say hi", WantJSON: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Structured() {
		t.Fatalf("expected structured result, got raw: %q", result.Payload)
	}
	value, ok := result.Value.(map[string]any)
	if !ok || value["dialogue"] != "hello" {
		t.Fatalf("unexpected value: %#v", result.Value)
	}
	if provider.lastModel != "test-model" {
		t.Fatalf("expected default model, got %s", provider.lastModel)
	}
	if !provider.wantJSON {
		t.Fatalf("expected wantJSON to be forwarded")
	}
}

func TestGenerateDegradesToRawText(t *testing.T) {
	provider := &fakeProvider{response: "I refuse to answer in JSON."}
	client := New(provider, "test-model")

	result, err := client.Generate(context.Background(), Request{Prompt: "say hi", WantJSON: true})
	if err != nil {
		t.Fatalf("parse failure must not be an error, got %v", err)
	}
	if result.Structured() {
		t.Fatalf("expected raw degradation, got %#v", result.Value)
	}
	if result.Payload != "I refuse to answer in JSON." {
		t.Fatalf("unexpected payload: %q", result.Payload)
	}
}

func TestGenerateAppendsSchemaInstruction(t *testing.T) {
	provider := &fakeProvider{response: `{"name": "x"}`}
	client := New(provider, "test-model")

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"name": {Type: "string"}},
		Required:   []string{"name"},
	}
	if _, err := client.Generate(context.Background(), Request{Prompt: "go", WantJSON: true, Schema: schema}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(provider.lastPrompt, "must conform to this JSON schema") {
		t.Fatalf("schema instruction missing from prompt: %q", provider.lastPrompt)
	}
}

func TestGenerateFlagsSchemaViolation(t *testing.T) {
	provider := &fakeProvider{response: `{"dialogue": 42}`}
	client := New(provider, "test-model")

	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: map[string]*jsonschema.Schema{"dialogue": {Type: "string"}},
		Required:   []string{"dialogue"},
	}
	result, err := client.Generate(context.Background(), Request{Prompt: "go", WantJSON: true, Schema: schema})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !result.Structured() {
		t.Fatalf("expected parsed value despite schema violation")
	}
	if result.SchemaErr == nil {
		t.Fatalf("expected schema violation to be flagged")
	}
}

func TestGeneratePropagatesTransportError(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("connection refused")}
	client := New(provider, "test-model")

	if _, err := client.Generate(context.Background(), Request{Prompt: "go"}); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestGenerateMarshalsStructuredPrompt(t *testing.T) {
	provider := &fakeProvider{response: "ok"}
	client := New(provider, "test-model")

	prompt := map[string]any{"task": "summarize", "format": "json"}
	if _, err := client.Generate(context.Background(), Request{Prompt: prompt}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(provider.lastPrompt, `"task": "summarize"`) {
		t.Fatalf("structured prompt not marshaled: %q", provider.lastPrompt)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"first of two blocks", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`},
		{"no block", `{"a":1}`, `{"a":1}`},
		{"prose", "just text", "just text"},
	}
	for _, tc := range cases {
		if got := ExtractJSON(tc.in); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}
