// Package show runs the day-to-day life of the island: player/character
// interaction turns, director observations, and conversation summaries.
package show

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/memory"
	"github.com/voiceisland/engine/internal/prompt"
	"github.com/voiceisland/engine/internal/tts"
	"github.com/voiceisland/engine/internal/types"
)

// PlayerID is the fixed speaker id for the human player.
const PlayerID = "player"

// DirectorID is the speaker id used for director observation logs.
const DirectorID = "DIRECTOR"

const (
	speechlessDialogue = "I am speechless."
	invalidJSONNote    = "LLM did not return valid JSON."
)

// CharacterRepo is the character persistence needed by the orchestrator.
type CharacterRepo interface {
	Get(ctx context.Context, id string) (*types.Character, error)
	ListOthers(ctx context.Context, excludeID string) ([]types.Character, error)
	UpdateState(ctx context.Context, id string, state types.CharacterState) error
}

// ConversationRepo is the conversation persistence needed by the orchestrator.
type ConversationRepo interface {
	Get(ctx context.Context, id string) (*types.Conversation, error)
	Insert(ctx context.Context, conversation *types.Conversation) error
	AppendMessages(ctx context.Context, id string, messageIDs []string) error
	UpdateSummary(ctx context.Context, id string, summary string, details *types.SummaryOutput) error
}

// MessageRepo is the message persistence needed by the orchestrator.
type MessageRepo interface {
	Insert(ctx context.Context, message *types.Message, embedding []float32) error
	ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error)
	RecentByConversation(ctx context.Context, conversationID string, limit int) ([]types.Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int64, error)
	RecentBySpeaker(ctx context.Context, speakerID string, limit int) ([]types.Message, error)
}

// Recaller surfaces past moments relevant to the current input.
type Recaller interface {
	Recall(ctx context.Context, conversationID, query string) []string
}

// Params collects the orchestrator's collaborators. Gen, Characters,
// Conversations and Messages are required; the rest default to no-ops.
type Params struct {
	Gen           *genclient.Client
	Characters    CharacterRepo
	Conversations ConversationRepo
	Messages      MessageRepo
	Synth         tts.Synthesizer
	Recall        Recaller
	Embedder      memory.Embedder

	HistoryLimit   int
	TopK           int
	SummaryWorkers int
}

// Orchestrator drives interaction turns and keeps conversation summaries
// fresh in the background.
type Orchestrator struct {
	gen           *genclient.Client
	characters    CharacterRepo
	conversations ConversationRepo
	messages      MessageRepo
	synth         tts.Synthesizer
	recall        Recaller
	embedder      memory.Embedder

	historyLimit int
	topK         int

	workerSlots chan struct{}
	wg          sync.WaitGroup

	newID func() string
	now   func() time.Time
}

// New returns an Orchestrator with p's collaborators.
func New(p Params) *Orchestrator {
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 10
	}
	if p.TopK <= 0 {
		p.TopK = 3
	}
	if p.SummaryWorkers <= 0 {
		p.SummaryWorkers = 4
	}
	if p.Synth == nil {
		p.Synth = tts.Disabled{}
	}
	return &Orchestrator{
		gen:           p.Gen,
		characters:    p.Characters,
		conversations: p.Conversations,
		messages:      p.Messages,
		synth:         p.Synth,
		recall:        p.Recall,
		embedder:      p.Embedder,
		historyLimit:  p.HistoryLimit,
		topK:          p.TopK,
		workerSlots:   make(chan struct{}, p.SummaryWorkers),
		newID:         uuid.NewString,
		now:           time.Now,
	}
}

// Interact runs one player/character turn: build the prompt from stored
// state, generate the character's response, persist both messages, merge the
// returned state, and synthesize audio. Malformed model output degrades to a
// raw-text turn instead of failing.
func (o *Orchestrator) Interact(ctx context.Context, characterID, playerInput, conversationID string) (*types.InteractResult, error) {
	character, err := o.characters.Get(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", characterID, err)
	}

	conversation, err := o.resolveConversation(ctx, conversationID, characterID)
	if err != nil {
		return nil, err
	}

	recent, err := o.messages.RecentByConversation(ctx, conversation.ID, o.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	others, err := o.characters.ListOthers(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load other characters: %w", err)
	}

	summary := conversation.Summary
	if summary == "" {
		summary = "No summary yet."
	}

	var recalled []string
	if o.recall != nil {
		recalled = o.recall.Recall(ctx, conversation.ID, playerInput)
		if len(recalled) > 1 {
			recalled = o.gen.RankContext(ctx, playerInput, recalled, o.topK)
		}
	}

	turn := prompt.Turn(character, playerInput, summary, historyEntries(recent), profileEntries(character, others), recalled)
	result, genErr := o.gen.Generate(ctx, genclient.Request{Prompt: turn, WantJSON: true, Schema: turnSchema})
	out := turnOutputFrom(character, result, genErr)

	now := o.now()
	playerMsg := &types.Message{
		ID:             o.newID(),
		ConversationID: conversation.ID,
		Timestamp:      now,
		SpeakerKind:    types.SpeakerPlayer,
		SpeakerID:      PlayerID,
		Content:        playerInput,
		Emotion:        "n/a",
	}
	charMsg := &types.Message{
		ID:             o.newID(),
		ConversationID: conversation.ID,
		Timestamp:      now,
		SpeakerKind:    types.SpeakerCharacter,
		SpeakerID:      character.ID,
		Content:        out.Dialogue,
		Emotion:        out.Emotion,
		ContextTags:    turnTags(out),
	}
	if err := o.messages.Insert(ctx, playerMsg, memory.EmbedForStorage(ctx, o.embedder, playerMsg.Content)); err != nil {
		return nil, fmt.Errorf("failed to store player message: %w", err)
	}
	if err := o.messages.Insert(ctx, charMsg, memory.EmbedForStorage(ctx, o.embedder, charMsg.Content)); err != nil {
		return nil, fmt.Errorf("failed to store character message: %w", err)
	}
	if err := o.conversations.AppendMessages(ctx, conversation.ID, []string{playerMsg.ID, charMsg.ID}); err != nil {
		return nil, fmt.Errorf("failed to append messages: %w", err)
	}

	state := applyTurnOutput(character, out)
	if err := o.characters.UpdateState(ctx, character.ID, state); err != nil {
		return nil, fmt.Errorf("failed to update character state: %w", err)
	}

	o.scheduleSummaryRefresh(conversation.ID)

	audioPath, err := o.synth.Synthesize(ctx, out.Dialogue, character.VoiceType)
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}

	slog.Info("interaction turn completed",
		"character_id", character.ID,
		"conversation_id", conversation.ID,
		"emotion", out.Emotion)

	return &types.InteractResult{
		Dialogue:       out.Dialogue,
		AudioPath:      audioPath,
		ConversationID: conversation.ID,
		CharacterState: state,
		Choices:        out.Choices,
		Action:         out.Action,
		MemoryNote:     out.MemoryNote,
	}, nil
}

func (o *Orchestrator) resolveConversation(ctx context.Context, conversationID, characterID string) (*types.Conversation, error) {
	if conversationID != "" {
		conversation, err := o.conversations.Get(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, err)
		}
		return conversation, nil
	}

	conversation := &types.Conversation{
		ID:           o.newID(),
		CreatedAt:    o.now(),
		Participants: []string{PlayerID, characterID},
		MessageIDs:   []string{},
		Context:      map[string]any{},
	}
	if err := o.conversations.Insert(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conversation, nil
}

// turnOutputFrom converts a generation result into a usable turn output,
// synthesizing a fallback when the model failed or returned prose.
func turnOutputFrom(character *types.Character, result genclient.Result, genErr error) *types.TurnOutput {
	if genErr != nil {
		slog.Error("turn generation failed", "character_id", character.ID, "error", genErr.Error())
		return fallbackTurn(character, speechlessDialogue, "generation service unavailable")
	}
	if result.Structured() {
		var out types.TurnOutput
		if err := result.Decode(&out); err == nil {
			if out.Dialogue == "" {
				out.Dialogue = speechlessDialogue
			}
			if out.Emotion == "" {
				out.Emotion = "neutral"
			}
			return &out
		}
	}
	return fallbackTurn(character, result.Payload, invalidJSONNote)
}

func fallbackTurn(character *types.Character, dialogue, note string) *types.TurnOutput {
	return &types.TurnOutput{
		Name:        character.Name,
		Personality: character.Personality,
		Mood:        character.Mood,
		Dialogue:    dialogue,
		Emotion:     "neutral",
		MemoryNote:  note,
	}
}

// applyTurnOutput merges a turn output into the character's mutable state.
// A field present in the output replaces the stored value wholesale; an
// absent field keeps the stored value.
func applyTurnOutput(character *types.Character, out *types.TurnOutput) types.CharacterState {
	state := types.CharacterState{
		Mood:               character.Mood,
		Emotion:            out.Emotion,
		Relationships:      character.Relationships,
		Traits:             character.Traits,
		SubconsciousTraits: character.SubconsciousTraits,
	}
	if out.Mood != "" {
		state.Mood = out.Mood
	}
	if out.Relationships != nil {
		state.Relationships = out.Relationships
	}
	if out.Traits != nil {
		state.Traits = out.Traits
	}
	if out.SubconsciousTraits != nil {
		state.SubconsciousTraits = out.SubconsciousTraits
	}
	return state
}

func turnTags(out *types.TurnOutput) []types.ContextTag {
	var tags []types.ContextTag
	if out.Action != "" {
		tags = append(tags, types.ContextTag{Type: "action", Value: out.Action})
	}
	if out.MemoryNote != "" {
		tags = append(tags, types.ContextTag{Type: "memory_note", Value: out.MemoryNote})
	}
	return tags
}

func historyEntries(messages []types.Message) []prompt.MessageEntry {
	entries := make([]prompt.MessageEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, prompt.MessageEntry{
			SpeakerID: m.SpeakerID,
			Content:   m.Content,
			Emotion:   m.Emotion,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return entries
}

func profileEntries(character *types.Character, others []types.Character) []prompt.ProfileEntry {
	entries := make([]prompt.ProfileEntry, 0, len(others))
	for _, other := range others {
		entries = append(entries, prompt.ProfileEntry{
			ID:          other.ID,
			Name:        other.Name,
			Personality: other.Personality,
			Background:  other.Background,
			Affinity:    character.Relationships[other.ID],
		})
	}
	return entries
}
