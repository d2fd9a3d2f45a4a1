// Package types holds the persisted data model shared across the engine.
package types

import "time"

// Character is the persisted contestant profile.
type Character struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Personality        []string `json:"personality"`
	Background         string   `json:"background"`
	Traits             []string `json:"traits"`
	VoiceType          string   `json:"voice_type"`
	Mood               string   `json:"mood"`
	Ethnicity          string   `json:"ethnicity"`
	Religion           string   `json:"religion"`
	MentalIllness      []string `json:"mental_illness"`
	SubconsciousTraits []string `json:"subconscious_traits"`
	TechnicalIQ        int      `json:"technical_iq"`
	GeneralIQ          int      `json:"general_iq"`
	// Relationships maps character id to affinity score. Every character
	// that existed when this one was created has an entry, starting at 0.0.
	Relationships map[string]float64 `json:"relationships"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Relationship is the pair record for two characters. The affinity maps
// embedded on the characters are the source of truth; this record carries
// the shared interaction history for the pair.
type Relationship struct {
	ID                 string    `json:"id"`
	Char1ID            string    `json:"char1_id"`
	Char2ID            string    `json:"char2_id"`
	Affinity           float64   `json:"affinity_score"`
	InteractionHistory []string  `json:"interaction_history"`
	CreatedAt          time.Time `json:"created_at"`
}

// AttributePool is a static named list of candidate values for procedural
// character generation.
type AttributePool struct {
	ID     string   `json:"id"`
	Values []string `json:"values"`
}

// Pool ids seeded by cmd/seed.
const (
	PoolPersonality       = "personality_pool"
	PoolBackground        = "background_pool"
	PoolTrait             = "trait_pool"
	PoolVoice             = "voice_pool"
	PoolEthnicity         = "ethnicity_pool"
	PoolReligion          = "religion_pool"
	PoolMentalIllness     = "mental_illness_pool"
	PoolSubconsciousTrait = "subconscious_trait_pool"
)

// CharacterState is the mutable slice of a character returned to callers
// after an interaction.
type CharacterState struct {
	Mood               string             `json:"mood"`
	Emotion            string             `json:"emotion"`
	Relationships      map[string]float64 `json:"relationships"`
	Traits             []string           `json:"traits"`
	SubconsciousTraits []string           `json:"subconscious_traits"`
}
