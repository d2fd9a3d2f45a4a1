package types

import "time"

// SpeakerKind classifies who authored a message.
type SpeakerKind string

const (
	SpeakerPlayer    SpeakerKind = "player"
	SpeakerCharacter SpeakerKind = "character"
	SpeakerSystem    SpeakerKind = "system"
)

// Conversation groups an ordered sequence of messages between participants.
type Conversation struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	Participants []string       `json:"participants"`
	MessageIDs   []string       `json:"messages"`
	Context      map[string]any `json:"context"`
	Summary      string         `json:"summary"`
}

// ContextTag is a typed key/value annotation attached to a message.
type ContextTag struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Message is an immutable utterance within a conversation. Director-control
// messages additionally carry the active choice set and the game-over flag;
// the most recent one is the current head of the season narrative.
type Message struct {
	ID              string       `json:"id"`
	ConversationID  string       `json:"conversation_id"`
	Timestamp       time.Time    `json:"timestamp"`
	SpeakerKind     SpeakerKind  `json:"speaker_type"`
	SpeakerID       string       `json:"speaker_id"`
	Content         string       `json:"content"`
	Emotion         string       `json:"emotion"`
	ContextTags     []ContextTag `json:"context_tags"`
	DirectorControl bool         `json:"director_control,omitempty"`
	Choices         []string     `json:"choices,omitempty"`
	GameOver        bool         `json:"is_game_over,omitempty"`
}

// WorldState is the singleton environment record seeded at season setup.
type WorldState struct {
	ID                   string         `json:"id"`
	CurrentScene         string         `json:"current_scene"`
	ActiveEvents         []string       `json:"active_events"`
	EnvironmentalFactors map[string]any `json:"environmental_factors"`
}

// WorldStateID is the id of the singleton world state row.
const WorldStateID = "singleton_world_state"
