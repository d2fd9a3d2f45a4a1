package memory

import (
	"context"
	"log/slog"
)

// MessageSearchRepo finds persisted messages similar to an embedding.
type MessageSearchRepo interface {
	SearchSimilar(ctx context.Context, conversationID string, embedding []float32, topK int, threshold float64) ([]string, error)
}

// Recall retrieves past message contents relevant to a query. Failures are
// non-fatal: prompts degrade to recent history only.
type Recall struct {
	embedder  Embedder
	messages  MessageSearchRepo
	topK      int
	threshold float64
}

// NewRecall returns a Recall service.
func NewRecall(embedder Embedder, messages MessageSearchRepo, topK int, threshold float64) *Recall {
	if topK <= 0 {
		topK = 3
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Recall{
		embedder:  embedder,
		messages:  messages,
		topK:      topK,
		threshold: threshold,
	}
}

// Recall returns up to topK similar past messages for the conversation.
func (r *Recall) Recall(ctx context.Context, conversationID, query string) []string {
	if r == nil || r.embedder == nil || r.messages == nil || query == "" {
		return nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("recall embedding failed, continuing without recalled moments", "error", err.Error())
		return nil
	}
	if len(vec) == 0 {
		return nil
	}

	contents, err := r.messages.SearchSimilar(ctx, conversationID, vec, r.topK, r.threshold)
	if err != nil {
		slog.Warn("recall search failed, continuing without recalled moments", "error", err.Error())
		return nil
	}
	return contents
}

// EmbedForStorage embeds a message body for persistence. A nil embedder or
// any failure yields nil, which stores the message without a vector.
func EmbedForStorage(ctx context.Context, embedder Embedder, content string) []float32 {
	if embedder == nil || content == "" {
		return nil
	}
	vec, err := embedder.EmbedDocument(ctx, content)
	if err != nil {
		slog.Warn("message embedding failed, storing without vector", "error", err.Error())
		return nil
	}
	return vec
}
