package show

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/prompt"
	"github.com/voiceisland/engine/internal/types"
)

// observationHistoryLimit is how many of the character's recent messages
// feed a director observation.
const observationHistoryLimit = 5

// ObserveCharacter produces a director's-eye view of a character without
// mutating any character state. The observation is appended to the message
// log as a system entry.
func (o *Orchestrator) ObserveCharacter(ctx context.Context, characterID, observationType, extraContext string) (*types.Observation, error) {
	if observationType == "" {
		observationType = "general"
	}

	character, err := o.characters.Get(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("character %s: %w", characterID, err)
	}
	recent, err := o.messages.RecentBySpeaker(ctx, characterID, observationHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activity: %w", err)
	}
	others, err := o.characters.ListOthers(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load other characters: %w", err)
	}

	p := prompt.Observe(character, observationType, extraContext, historyEntries(recent), profileEntries(character, others))
	result, err := o.gen.Generate(ctx, genclient.Request{Prompt: p, WantJSON: true, Schema: observationSchema})
	if err != nil {
		return nil, fmt.Errorf("observation generation failed: %w", err)
	}

	observation := observationFrom(character, result)
	observation.CharacterName = character.Name

	logMsg := &types.Message{
		ID:          o.newID(),
		Timestamp:   o.now(),
		SpeakerKind: types.SpeakerSystem,
		SpeakerID:   DirectorID,
		Content:     observation.Observation,
		Emotion:     "n/a",
		ContextTags: []types.ContextTag{
			{Type: "observation_type", Value: observationType},
			{Type: "character_id", Value: character.ID},
			{Type: "character_state", Value: observation.CharacterState},
		},
	}
	if err := o.messages.Insert(ctx, logMsg, nil); err != nil {
		return nil, fmt.Errorf("failed to store observation: %w", err)
	}

	slog.Info("character observed", "character_id", character.ID, "observation_type", observationType)
	return observation, nil
}

func observationFrom(character *types.Character, result genclient.Result) *types.Observation {
	if result.Structured() {
		var observation types.Observation
		if err := result.Decode(&observation); err == nil && observation.Observation != "" {
			return &observation
		}
	}
	return &types.Observation{
		Observation:    result.Payload,
		CharacterState: character.Mood,
	}
}
