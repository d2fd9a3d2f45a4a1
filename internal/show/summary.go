package show

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/prompt"
	"github.com/voiceisland/engine/internal/types"
)

// historySummaryInterval is the message count interval at which the game
// loop re-summarizes a conversation.
const historySummaryInterval = 20

// summaryTimeout bounds one background summary refresh.
const summaryTimeout = 2 * time.Minute

// scheduleSummaryRefresh queues a background re-summarization of the
// conversation. When all worker slots are busy the refresh is skipped; the
// next turn will schedule another.
func (o *Orchestrator) scheduleSummaryRefresh(conversationID string) {
	select {
	case o.workerSlots <- struct{}{}:
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer func() { <-o.workerSlots }()

			ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
			defer cancel()
			if err := o.refreshSummary(ctx, conversationID); err != nil {
				slog.Error("summary refresh failed", "conversation_id", conversationID, "error", err.Error())
			}
		}()
	default:
		slog.Warn("summary workers saturated, skipping refresh", "conversation_id", conversationID)
	}
}

// ManageHistory re-summarizes the conversation when its message count is a
// positive multiple of the summary interval. It reports whether a refresh
// ran.
func (o *Orchestrator) ManageHistory(ctx context.Context, conversationID string) (bool, error) {
	count, err := o.messages.CountByConversation(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("failed to count messages: %w", err)
	}
	if count == 0 || count%historySummaryInterval != 0 {
		return false, nil
	}
	if err := o.refreshSummary(ctx, conversationID); err != nil {
		return false, err
	}
	return true, nil
}

// refreshSummary regenerates the conversation summary from its full message
// history. Prose output is stored verbatim; an empty history is a no-op.
func (o *Orchestrator) refreshSummary(ctx context.Context, conversationID string) error {
	messages, err := o.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	result, err := o.gen.Generate(ctx, genclient.Request{
		Prompt:   prompt.Summarize(historyEntries(messages)),
		WantJSON: true,
		Schema:   summarySchema,
	})
	if err != nil {
		return fmt.Errorf("summary generation failed: %w", err)
	}

	if result.Structured() {
		var out types.SummaryOutput
		if err := result.Decode(&out); err == nil && out.Summary != "" {
			if err := o.conversations.UpdateSummary(ctx, conversationID, out.Summary, &out); err != nil {
				return fmt.Errorf("failed to store summary: %w", err)
			}
			return nil
		}
	}

	text := strings.TrimSpace(result.Payload)
	if text == "" {
		return nil
	}
	if err := o.conversations.UpdateSummary(ctx, conversationID, text, nil); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	return nil
}

// Close waits for in-flight summary refreshes to finish.
func (o *Orchestrator) Close() {
	o.wg.Wait()
}
