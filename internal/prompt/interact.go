// Package prompt assembles the prompts sent to the generation service.
package prompt

import (
	"github.com/voiceisland/engine/internal/types"
)

// setting is the fixed framing shared by all character prompts.
const setting = "Voice Island reality TV show"

// StartConversationInput is the sentinel player input that opens a
// confessional session instead of answering a message.
const StartConversationInput = "[Start Conversation]"

// MessageEntry is one history line included in a prompt.
type MessageEntry struct {
	SpeakerID string `json:"speaker_id"`
	Content   string `json:"content"`
	Emotion   string `json:"emotion"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ProfileEntry is another character's public profile plus the prompted
// character's affinity toward them.
type ProfileEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Personality []string `json:"personality"`
	Background  string   `json:"background"`
	Affinity    float64  `json:"affinity_score"`
}

// characterSheet is the full profile embedded in prompts.
type characterSheet struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Personality        []string           `json:"personality"`
	Background         string             `json:"background"`
	Traits             []string           `json:"traits"`
	Mood               string             `json:"mood"`
	Relationships      map[string]float64 `json:"relationships,omitempty"`
	Ethnicity          string             `json:"ethnicity"`
	Religion           string             `json:"religion"`
	MentalIllness      []string           `json:"mental_illness"`
	SubconsciousTraits []string           `json:"subconscious_traits"`
	TechnicalIQ        int                `json:"technical_iq"`
	GeneralIQ          int                `json:"general_iq"`
}

// TurnPrompt is the structured payload of an interaction turn request.
type TurnPrompt struct {
	Role         string         `json:"role"`
	Character    characterSheet `json:"character"`
	Context      turnContext    `json:"context"`
	Instructions instructions   `json:"instructions"`
}

type turnContext struct {
	Setting             string         `json:"setting"`
	CurrentContext      string         `json:"current_context"`
	PlayerInput         string         `json:"player_input"`
	OtherCharacters     []ProfileEntry `json:"other_characters"`
	ConversationHistory []MessageEntry `json:"conversation_history"`
	ConversationSummary string         `json:"conversation_summary"`
	RecalledMoments     []string       `json:"recalled_moments,omitempty"`
}

type instructions struct {
	Task              string         `json:"task"`
	ResponseFormat    string         `json:"response_format"`
	Description       string         `json:"description,omitempty"`
	ResponseStructure map[string]any `json:"response_structure"`
}

// Turn builds the prompt for one interaction turn.
func Turn(character *types.Character, playerInput, summary string, history []MessageEntry, others []ProfileEntry, recalled []string) TurnPrompt {
	currentContext := "responding to player message"
	if playerInput == StartConversationInput {
		currentContext = "first confessional session"
	}

	return TurnPrompt{
		Role:      "character",
		Character: sheetFor(character, true),
		Context: turnContext{
			Setting:             setting,
			CurrentContext:      currentContext,
			PlayerInput:         playerInput,
			OtherCharacters:     others,
			ConversationHistory: history,
			ConversationSummary: summary,
			RecalledMoments:     recalled,
		},
		Instructions: instructions{
			Task:           "Generate in-character response",
			ResponseFormat: "JSON",
			ResponseStructure: map[string]any{
				"name":                "character name",
				"personality":         []string{"personality_traits"},
				"mood":                "current_emotional_state",
				"dialogue":            "character's spoken response (under 80 words)",
				"emotion":             "specific_emotion_during_dialogue",
				"action":              "any_physical_action_taken",
				"memory_note":         "character's_internal_thoughts",
				"choices":             []string{"possible_player_response1", "possible_player_response2"},
				"relationships":       map[string]any{"character_id": "float_value"},
				"traits":              []string{"character_traits"},
				"subconscious_traits": []string{"subconscious_traits"},
			},
		},
	}
}

// ObservationPrompt is the structured payload of a director observation.
type ObservationPrompt struct {
	Role         string             `json:"role"`
	Character    characterSheet     `json:"character"`
	Context      observationContext `json:"context"`
	Instructions instructions       `json:"instructions"`
}

type observationContext struct {
	Setting           string         `json:"setting"`
	ObservationType   string         `json:"observation_type"`
	AdditionalContext string         `json:"additional_context"`
	RecentActivity    []MessageEntry `json:"recent_activity"`
	Relationships     []ProfileEntry `json:"relationships"`
}

// Observe builds the prompt for a director observation of a character.
func Observe(character *types.Character, observationType, extra string, recent []MessageEntry, relationships []ProfileEntry) ObservationPrompt {
	description := ""
	switch observationType {
	case "general":
		description = "Observe the character's general behavior and state"
	case "private_thoughts":
		description = "Reveal the character's inner thoughts and feelings"
	case "interaction":
		description = "Analyze the character's behavior in a specific interaction"
	}

	return ObservationPrompt{
		Role:      "director",
		Character: sheetFor(character, false),
		Context: observationContext{
			Setting:           setting,
			ObservationType:   observationType,
			AdditionalContext: extra,
			RecentActivity:    recent,
			Relationships:     relationships,
		},
		Instructions: instructions{
			Task:           "Generate " + observationType + " observation",
			ResponseFormat: "JSON",
			Description:    description,
			ResponseStructure: map[string]any{
				"observation":       "detailed_observation_text",
				"character_state":   "emotional_mental_state",
				"director_insights": []string{"insight1", "insight2"},
				"suggested_actions": []string{"possible_action1", "possible_action2"},
			},
		},
	}
}

// SummaryPrompt is the payload of a conversation summarization request.
type SummaryPrompt struct {
	Task         string         `json:"task"`
	Conversation []MessageEntry `json:"conversation"`
	Format       string         `json:"format"`
	Instructions string         `json:"instructions"`
}

// Summarize builds the prompt for a conversation summary.
func Summarize(history []MessageEntry) SummaryPrompt {
	return SummaryPrompt{
		Task:         "summarize_conversation",
		Conversation: history,
		Format:       "json",
		Instructions: "Provide a concise summary, key points, and the overall sentiment of the conversation.",
	}
}

func sheetFor(character *types.Character, withRelationships bool) characterSheet {
	sheet := characterSheet{
		ID:                 character.ID,
		Name:               character.Name,
		Personality:        character.Personality,
		Background:         character.Background,
		Traits:             character.Traits,
		Mood:               character.Mood,
		Ethnicity:          character.Ethnicity,
		Religion:           character.Religion,
		MentalIllness:      character.MentalIllness,
		SubconsciousTraits: character.SubconsciousTraits,
		TechnicalIQ:        character.TechnicalIQ,
		GeneralIQ:          character.GeneralIQ,
	}
	if withRelationships {
		sheet.Relationships = character.Relationships
	}
	return sheet
}
