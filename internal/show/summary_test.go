package show

import (
	"context"
	"testing"
	"time"

	"github.com/voiceisland/engine/internal/types"
)

func seedConversation(conversations *fakeConversations, messages *fakeMessages, conversationID string) {
	conversations.convs[conversationID] = &types.Conversation{ID: conversationID}
	messages.msgs = append(messages.msgs,
		&types.Message{ID: "m1", ConversationID: conversationID, SpeakerID: PlayerID, Content: "hello", Timestamp: time.Now()},
		&types.Message{ID: "m2", ConversationID: conversationID, SpeakerID: "curious-explorer", Content: "hi there", Timestamp: time.Now()},
	)
}

func TestManageHistoryTriggersAtInterval(t *testing.T) {
	provider := &fakeProvider{responses: []string{summaryResponse}}
	o, _, conversations, messages := testOrchestrator(provider)
	seedConversation(conversations, messages, "conv-1")
	messages.count = 20

	triggered, err := o.ManageHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ManageHistory: %v", err)
	}
	if !triggered {
		t.Fatal("expected a refresh at message count 20")
	}
	if conversations.summaryText != "They talked about the cliffs." {
		t.Fatalf("unexpected summary: %q", conversations.summaryText)
	}
	if conversations.summaryDetails == nil || conversations.summaryDetails.Sentiment != "positive" {
		t.Fatalf("expected structured summary details, got %+v", conversations.summaryDetails)
	}
}

func TestManageHistorySkipsOffInterval(t *testing.T) {
	o, _, conversations, messages := testOrchestrator(&fakeProvider{responses: []string{summaryResponse}})
	seedConversation(conversations, messages, "conv-1")
	messages.count = 19

	triggered, err := o.ManageHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ManageHistory: %v", err)
	}
	if triggered {
		t.Fatal("expected no refresh at message count 19")
	}
	if conversations.summaryCalls != 0 {
		t.Fatal("expected no summary update off the interval")
	}
}

func TestManageHistorySkipsEmptyConversation(t *testing.T) {
	o, _, _, _ := testOrchestrator(&fakeProvider{responses: []string{summaryResponse}})

	triggered, err := o.ManageHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ManageHistory: %v", err)
	}
	if triggered {
		t.Fatal("expected no refresh for an empty conversation")
	}
}

func TestSummaryStoresProseFallback(t *testing.T) {
	o, _, conversations, messages := testOrchestrator(&fakeProvider{responses: []string{"They mostly complained about the weather."}})
	seedConversation(conversations, messages, "conv-1")
	messages.count = 20

	triggered, err := o.ManageHistory(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("ManageHistory: %v", err)
	}
	if !triggered {
		t.Fatal("expected a refresh")
	}
	if conversations.summaryText != "They mostly complained about the weather." {
		t.Fatalf("expected prose summary stored verbatim, got %q", conversations.summaryText)
	}
	if conversations.summaryDetails != nil {
		t.Fatalf("expected no structured details for prose, got %+v", conversations.summaryDetails)
	}
}
