package show

import "github.com/google/jsonschema-go/jsonschema"

// turnSchema is the advisory schema for one interaction turn. Only name,
// dialogue and emotion are required; everything else defaults to the
// character's stored state.
var turnSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"name": {
			Type:        "string",
			Description: "Character name",
		},
		"personality": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Character personality traits",
		},
		"mood": {
			Type:        "string",
			Description: "Current mood of the character",
		},
		"dialogue": {
			Type:        "string",
			Description: "Character's spoken dialogue in response to the player",
		},
		"emotion": {
			Type:        "string",
			Description: "Current emotional state during this dialogue",
		},
		"action": {
			Type:        "string",
			Description: "Any physical action the character takes",
		},
		"memory_note": {
			Type:        "string",
			Description: "Internal thought or memory to record",
		},
		"choices": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Possible player interaction choices",
		},
		"relationships": {
			Type:                 "object",
			AdditionalProperties: &jsonschema.Schema{Type: "number"},
			Description:          "Character's relationships with other characters",
		},
		"traits": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Character traits",
		},
		"subconscious_traits": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Character's hidden subconscious traits",
		},
	},
	Required: []string{"name", "dialogue", "emotion"},
}

// observationSchema is the advisory schema for director observations.
var observationSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"observation": {
			Type:        "string",
			Description: "Detailed observation of the character's current state and behavior",
		},
		"character_state": {
			Type:        "string",
			Description: "A brief descriptor of the character's current emotional/mental state",
		},
		"director_insights": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Analysis and insights for the director about this character",
		},
		"suggested_actions": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Potential actions the director could take regarding this character",
		},
	},
	Required: []string{"observation", "character_state", "director_insights"},
}

// summarySchema is the advisory schema for conversation summaries.
var summarySchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"summary": {
			Type:        "string",
			Description: "A concise summary of the conversation in no more than 3 sentences",
		},
		"key_points": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "1-3 key points from the conversation",
		},
		"sentiment": {
			Type:        "string",
			Enum:        []any{"positive", "negative", "neutral", "mixed"},
			Description: "The overall sentiment of the conversation",
		},
	},
	Required: []string{"summary", "key_points", "sentiment"},
}
