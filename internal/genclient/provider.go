// Package genclient wraps generative text services behind a structured
// generation contract: optional JSON output with an advisory schema, JSON
// extraction and repair, and graceful degradation to raw text.
package genclient

import "context"

// Provider is a single-turn chat completion backend.
type Provider interface {
	// Complete sends one user prompt and returns the response text.
	Complete(ctx context.Context, model, prompt string, wantJSON bool) (string, error)
	// Ping reports whether the backend is reachable. It never returns an
	// error; any transport failure yields false.
	Ping(ctx context.Context) bool
}
