package types

// TurnOutput is the structured response expected from the model for one
// interaction turn. Name, Dialogue and Emotion are required by schema;
// everything else is optional and defaults to the character's stored state.
type TurnOutput struct {
	Name               string             `json:"name"`
	Personality        []string           `json:"personality,omitempty"`
	Mood               string             `json:"mood,omitempty"`
	Dialogue           string             `json:"dialogue"`
	Emotion            string             `json:"emotion"`
	Action             string             `json:"action,omitempty"`
	MemoryNote         string             `json:"memory_note,omitempty"`
	Choices            []string           `json:"choices,omitempty"`
	Relationships      map[string]float64 `json:"relationships,omitempty"`
	Traits             []string           `json:"traits,omitempty"`
	SubconsciousTraits []string           `json:"subconscious_traits,omitempty"`
}

// InteractResult is the envelope returned by a completed interaction turn.
type InteractResult struct {
	Dialogue       string         `json:"dialogue"`
	AudioPath      string         `json:"audio_path"`
	ConversationID string         `json:"conversation_id"`
	CharacterState CharacterState `json:"character_state"`
	Choices        []string       `json:"choices"`
	Action         string         `json:"action"`
	MemoryNote     string         `json:"memory_note"`
}

// Observation is the structured result of a director observing a character.
type Observation struct {
	Observation      string   `json:"observation"`
	CharacterState   string   `json:"character_state"`
	DirectorInsights []string `json:"director_insights"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	CharacterName    string   `json:"character_name,omitempty"`
}

// SummaryOutput is the structured conversation summary.
type SummaryOutput struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Sentiment string   `json:"sentiment"`
}

// RankOutput is the structured response of a context ranking request.
type RankOutput struct {
	RankedIndices []int  `json:"ranked_indices"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// DialogueLine is one attributed line in a generated story block.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Line    string `json:"line"`
	Emotion string `json:"emotion,omitempty"`
}

// PremiereOutput is the structured season premiere.
type PremiereOutput struct {
	Title    string         `json:"title"`
	Dialogue []DialogueLine `json:"dialogue"`
	Choices  []string       `json:"choices"`
}

// SceneOutput is a structured story progression scene.
type SceneOutput struct {
	Scene    []DialogueLine `json:"scene"`
	Choices  []string       `json:"choices"`
	GameOver bool           `json:"is_game_over"`
}

// StorySegment is the current head of the season narrative: the latest
// director-control log plus the active choice set.
type StorySegment struct {
	Dialogue string   `json:"dialogue"`
	Choices  []string `json:"choices"`
	GameOver bool     `json:"is_game_over"`
}

// StoryLine is one entry of the story history projection.
type StoryLine struct {
	Speaker string `json:"speaker"`
	Line    string `json:"line"`
	Emotion string `json:"emotion"`
}

// StoryHistory is the full story projection returned to the director surface.
type StoryHistory struct {
	Lines   []StoryLine `json:"lines"`
	Choices []string    `json:"choices"`
}
