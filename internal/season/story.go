package season

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/prompt"
	"github.com/voiceisland/engine/internal/types"
)

// premiereFailureLog is the director-control entry persisted when the
// premiere could not be generated, so the latest segment stays well-defined.
const premiereFailureLog = "# Technical Difficulties\n\n**" + prompt.NarratorName + "**: The cameras cut out before the premiere could air. The director may try again."

// StartStory generates the season premiere and moves the season into
// progress. It requires a cast of at least one character. model overrides
// the default generation model when non-empty.
func (o *Orchestrator) StartStory(ctx context.Context, model string) (*types.StorySegment, error) {
	if err := o.require(StateAwaitingCast); err != nil {
		return nil, err
	}

	cast, err := o.characters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cast: %w", err)
	}
	if len(cast) == 0 {
		return nil, fmt.Errorf("cannot start the story without a cast: %w", ErrSeasonState)
	}

	promptText, err := prompt.Premiere(prompt.Cast(cast))
	if err != nil {
		return nil, err
	}

	conversation := &types.Conversation{
		ID:           o.newID(),
		CreatedAt:    o.now(),
		Participants: append([]string{directorID}, castIDs(cast)...),
		MessageIDs:   []string{},
		Context:      map[string]any{"kind": "story"},
	}
	if err := o.conversations.Insert(ctx, conversation); err != nil {
		return nil, fmt.Errorf("failed to create story conversation: %w", err)
	}

	// The season is in progress from here on, even when the premiere
	// generation fails: the persisted head lets the director retry a beat.
	if err := o.transition(StateAwaitingCast, StateInProgress); err != nil {
		return nil, err
	}

	result, genErr := o.gen.Generate(ctx, genclient.Request{
		Model:    model,
		Prompt:   promptText,
		WantJSON: true,
		Schema:   premiereSchema,
	})

	var premiere types.PremiereOutput
	if genErr != nil || !decodePremiere(result, &premiere) {
		if genErr != nil {
			slog.Error("premiere generation failed", "error", genErr.Error())
		} else {
			slog.Warn("premiere output unusable, persisting failure head")
		}
		segment := &types.StorySegment{
			Dialogue: premiereFailureLog,
			Choices:  []string{"Run the premiere again"},
		}
		if err := o.persistSegment(ctx, conversation.ID, cast, nil, segment); err != nil {
			return nil, err
		}
		return segment, nil
	}

	var log strings.Builder
	log.WriteString("# " + premiere.Title + "\n\n")
	for _, line := range premiere.Dialogue {
		log.WriteString("**" + line.Speaker + "**: " + line.Line + "\n\n")
	}

	segment := &types.StorySegment{
		Dialogue: log.String(),
		Choices:  premiere.Choices,
	}
	if err := o.persistSegment(ctx, conversation.ID, cast, premiere.Dialogue, segment); err != nil {
		return nil, err
	}

	slog.Info("season premiere generated", "title", premiere.Title, "cast_size", len(cast))
	return segment, nil
}

// ProgressStory advances the story by one director-chosen beat. The trailing
// slice of the previous story log carries over as continuity context.
func (o *Orchestrator) ProgressStory(ctx context.Context, choice, model string) (*types.StorySegment, error) {
	if err := o.require(StateInProgress); err != nil {
		return nil, err
	}

	storyContext := ""
	head, err := o.messages.LatestDirectorControl(ctx)
	switch {
	case err == nil:
		storyContext = tail(head.Content, storyContextWindow)
	case errors.Is(err, types.ErrNotFound):
	default:
		return nil, fmt.Errorf("failed to load story head: %w", err)
	}

	cast, err := o.characters.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cast: %w", err)
	}

	promptText, err := prompt.Progress(prompt.Cast(cast), storyContext, choice)
	if err != nil {
		return nil, err
	}

	result, err := o.gen.Generate(ctx, genclient.Request{
		Model:    model,
		Prompt:   promptText,
		WantJSON: true,
		Schema:   sceneSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("story progression failed: %w", err)
	}

	var scene types.SceneOutput
	if !result.Structured() || result.Decode(&scene) != nil || len(scene.Scene) == 0 {
		return nil, fmt.Errorf("story progression returned unusable output")
	}

	conversation, err := o.conversations.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load story conversation: %w", err)
	}

	var log strings.Builder
	for _, line := range scene.Scene {
		log.WriteString("**" + line.Speaker + "**: " + line.Line + "\n\n")
	}

	segment := &types.StorySegment{
		Dialogue: log.String(),
		Choices:  scene.Choices,
		GameOver: scene.GameOver,
	}
	if err := o.persistSegment(ctx, conversation.ID, cast, scene.Scene, segment); err != nil {
		return nil, err
	}

	if scene.GameOver {
		o.Stop()
		slog.Info("story reached its finale")
	}
	return segment, nil
}

// persistSegment stores one message per dialogue line plus the aggregated
// director-control head, and appends all of them to the conversation.
func (o *Orchestrator) persistSegment(ctx context.Context, conversationID string, cast []types.Character, lines []types.DialogueLine, segment *types.StorySegment) error {
	idsByName := make(map[string]string, len(cast))
	for _, c := range cast {
		idsByName[c.Name] = c.ID
	}

	messageIDs := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		msg := &types.Message{
			ID:             o.newID(),
			ConversationID: conversationID,
			Timestamp:      o.now(),
			SpeakerKind:    types.SpeakerSystem,
			SpeakerID:      line.Speaker,
			Content:        line.Line,
			Emotion:        line.Emotion,
			ContextTags:    []types.ContextTag{{Type: "speaker_name", Value: line.Speaker}},
		}
		if id, ok := idsByName[line.Speaker]; ok {
			msg.SpeakerKind = types.SpeakerCharacter
			msg.SpeakerID = id
		}
		if err := o.messages.Insert(ctx, msg, nil); err != nil {
			return fmt.Errorf("failed to store story line: %w", err)
		}
		messageIDs = append(messageIDs, msg.ID)
	}

	headMsg := &types.Message{
		ID:              o.newID(),
		ConversationID:  conversationID,
		Timestamp:       o.now(),
		SpeakerKind:     types.SpeakerSystem,
		SpeakerID:       directorID,
		Content:         segment.Dialogue,
		DirectorControl: true,
		Choices:         segment.Choices,
		GameOver:        segment.GameOver,
	}
	if err := o.messages.Insert(ctx, headMsg, nil); err != nil {
		return fmt.Errorf("failed to store story head: %w", err)
	}
	messageIDs = append(messageIDs, headMsg.ID)

	if err := o.conversations.AppendMessages(ctx, conversationID, messageIDs); err != nil {
		return fmt.Errorf("failed to append story messages: %w", err)
	}
	return nil
}

// noStoryDialogue is the placeholder head before any story beat exists.
const noStoryDialogue = "The story hasn't started yet."

// LatestSegment returns the current head of the season narrative, or a
// well-defined placeholder segment before the story has started.
func (o *Orchestrator) LatestSegment(ctx context.Context) (*types.StorySegment, error) {
	head, err := o.messages.LatestDirectorControl(ctx)
	if errors.Is(err, types.ErrNotFound) {
		return &types.StorySegment{Dialogue: noStoryDialogue, Choices: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("story head: %w", err)
	}
	return &types.StorySegment{
		Dialogue: head.Content,
		Choices:  head.Choices,
		GameOver: head.GameOver,
	}, nil
}

// StoryHistory projects the full story so far: every non-control line in
// chronological order plus the active choice set.
func (o *Orchestrator) StoryHistory(ctx context.Context) (*types.StoryHistory, error) {
	history := &types.StoryHistory{Lines: []types.StoryLine{}, Choices: []string{}}

	conversation, err := o.conversations.Latest(ctx)
	if errors.Is(err, types.ErrNotFound) {
		return history, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load story conversation: %w", err)
	}

	messages, err := o.messages.ListByConversation(ctx, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story messages: %w", err)
	}
	for _, m := range messages {
		if m.DirectorControl {
			history.Choices = m.Choices
			continue
		}
		history.Lines = append(history.Lines, types.StoryLine{
			Speaker: speakerName(m),
			Line:    m.Content,
			Emotion: m.Emotion,
		})
	}
	return history, nil
}

// EndGame irreversibly clears the island and returns the season to idle.
// Background work is joined first so no writer races the bulk clear.
func (o *Orchestrator) EndGame(ctx context.Context) error {
	if o.joiner != nil {
		o.joiner.Close()
	}

	if err := o.messages.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if err := o.conversations.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	if err := o.relationships.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear relationships: %w", err)
	}
	if err := o.characters.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear characters: %w", err)
	}

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	slog.Info("season ended, island cleared")
	return nil
}

func decodePremiere(result genclient.Result, out *types.PremiereOutput) bool {
	if !result.Structured() {
		return false
	}
	if err := result.Decode(out); err != nil {
		return false
	}
	return len(out.Dialogue) > 0
}

func castIDs(cast []types.Character) []string {
	ids := make([]string, 0, len(cast))
	for _, c := range cast {
		ids = append(ids, c.ID)
	}
	return ids
}

func speakerName(m types.Message) string {
	for _, tag := range m.ContextTags {
		if tag.Type == "speaker_name" {
			return tag.Value
		}
	}
	return m.SpeakerID
}

// tail returns the last n bytes of s, aligned to a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
