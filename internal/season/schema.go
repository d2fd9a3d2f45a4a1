package season

import "github.com/google/jsonschema-go/jsonschema"

// premiereSchema is the advisory schema for the season premiere.
var premiereSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"title": {
			Type:        "string",
			Description: "A dramatic season premiere title",
		},
		"dialogue": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"speaker": {Type: "string"},
					"line":    {Type: "string"},
				},
				Required: []string{"speaker", "line"},
			},
			Description: "The premiere's opening sequence, line by line",
		},
		"choices": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Narrative choices offered to the director",
		},
	},
	Required: []string{"title", "dialogue", "choices"},
}

// sceneSchema is the advisory schema for one story progression beat.
var sceneSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"scene": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"speaker": {Type: "string"},
					"line":    {Type: "string"},
					"emotion": {Type: "string"},
				},
				Required: []string{"speaker", "line"},
			},
			Description: "Chat messages making up the new scene",
		},
		"choices": {
			Type:        "array",
			Items:       &jsonschema.Schema{Type: "string"},
			Description: "Narrative choices offered to the director",
		},
		"is_game_over": {
			Type:        "boolean",
			Description: "True when the story has ended",
		},
	},
	Required: []string{"scene", "choices", "is_game_over"},
}
