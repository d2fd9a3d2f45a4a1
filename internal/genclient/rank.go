package genclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/voiceisland/engine/internal/types"
)

// rankPrompt is the payload of a context ranking request.
type rankPrompt struct {
	Task         string   `json:"task"`
	Query        string   `json:"query"`
	ContextData  []string `json:"context_data"`
	Instructions string   `json:"instructions"`
	Format       string   `json:"format"`
}

var rankSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"ranked_indices": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "integer"},
			Description: "Indices of the most relevant context items, ranked by relevance",
		},
		"reasoning": {
			Type:        "string",
			Description: "Brief explanation of why these items were selected",
		},
	},
	Required: []string{"ranked_indices"},
}

// RankContext reranks items against query and returns at most topK of them,
// most relevant first. Invalid indices are dropped with a warning. On any
// failure the first topK items are returned in their original order.
func (c *Client) RankContext(ctx context.Context, query string, items []string, topK int) []string {
	if len(items) == 0 {
		return nil
	}
	if topK <= 0 {
		return nil
	}

	fallback := items[:min(topK, len(items))]

	result, err := c.Generate(ctx, Request{
		Prompt: rankPrompt{
			Task:         "retrieve_relevant_context",
			Query:        query,
			ContextData:  items,
			Instructions: fmt.Sprintf("Return the indices of the top %d most relevant context items for the query. Index 0 is the first item.", topK),
			Format:       "json",
		},
		WantJSON: true,
		Schema:   rankSchema,
	})
	if err != nil {
		slog.Warn("context ranking failed, falling back to positional order", "error", err.Error())
		return fallback
	}
	if !result.Structured() {
		slog.Warn("context ranking returned no usable indices, falling back to positional order")
		return fallback
	}

	var ranked types.RankOutput
	if err := result.Decode(&ranked); err != nil || ranked.RankedIndices == nil {
		slog.Warn("context ranking returned no usable indices, falling back to positional order")
		return fallback
	}

	selected := make([]string, 0, topK)
	for _, idx := range ranked.RankedIndices {
		if idx < 0 || idx >= len(items) {
			slog.Warn("dropping out-of-range context index", "index", idx, "items", len(items))
			continue
		}
		selected = append(selected, items[idx])
		if len(selected) == topK {
			break
		}
	}
	return selected
}
