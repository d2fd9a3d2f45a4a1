package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/voiceisland/engine/internal/types"
)

// AIHostName is the fixed AI-host persona allowed as a story speaker.
const AIHostName = "Voice Island AI"

// NarratorName is the narrator identity allowed as a story speaker.
const NarratorName = "Narrator"

// CastMember is one contestant as presented to the story writer.
type CastMember struct {
	Name        string
	Personality []string
	Background  string
}

// Cast converts characters to cast entries in their stored order.
func Cast(characters []types.Character) []CastMember {
	cast := make([]CastMember, 0, len(characters))
	for _, c := range characters {
		cast = append(cast, CastMember{
			Name:        c.Name,
			Personality: c.Personality,
			Background:  c.Background,
		})
	}
	return cast
}

// Whitelist returns the full set of identities the story writer may
// attribute lines to: the narrator, the AI host, and the cast verbatim.
func Whitelist(cast []CastMember) []string {
	speakers := []string{NarratorName, AIHostName}
	for _, member := range cast {
		speakers = append(speakers, member.Name)
	}
	return speakers
}

const premiereTemplateText = `You are the AI narrator of "Voice Island", a reality TV show controlled by an external director.
Your tone is witty, dramatic, and a bit cheeky.

The director has assembled a new cast and is ready to begin the season premiere. Write the opening sequence as a JSON object.

The cast lineup:
{{- range .Cast}}
- **{{.Name}}** aka {{index .Personality 0}}: {{.Background}}
{{- end}}

Speakers must be chosen from this exact list, names verbatim:
{{- range .Speakers}}
- {{.}}
{{- end}}

Instructions:
1. **title**: A dramatic season premiere title with emojis.
2. **dialogue**: An array of {"speaker", "line"} objects covering:
   - A description of the villa.
   - An introduction for each contestant.
   - The contestants meeting for the first time.
   - An announcement from the "{{.AIHost}}".
3. **choices**: An array of 3-4 strings, representing narrative choices for the director.
`

const progressTemplateText = `You are the AI writer for "Voice Island", a chat-based reality TV show.
Your tone is witty, dramatic, and cheeky.

{{if .StoryContext -}}
The story so far:
...{{.StoryContext}}

{{end -}}
The director chose: "{{.Choice}}"

Continue the story based on the director's choice.

The cast:
{{- range .Cast}}
- **{{.Name}}** ({{join .Personality ", "}}, {{.Background}})
{{- end}}

Speakers must be chosen from this exact list, names verbatim:
{{- range .Speakers}}
- {{.}}
{{- end}}

Instructions:
- The new scene must be a direct result of the director's choice.
- **scene**: an array of {"speaker", "line", "emotion"} chat messages; include dialogue from at least 2-3 characters.
- **choices**: 3-4 narrative choices for the director.
- If the story ends, set is_game_over to true.
`

var (
	premiereTemplate = template.Must(template.New("premiere").Parse(premiereTemplateText))
	progressTemplate = template.Must(template.New("progress").Funcs(template.FuncMap{
		"join": joinStrings,
	}).Parse(progressTemplateText))
)

// Premiere renders the season premiere prompt.
func Premiere(cast []CastMember) (string, error) {
	data := struct {
		Cast     []CastMember
		Speakers []string
		AIHost   string
	}{
		Cast:     cast,
		Speakers: Whitelist(cast),
		AIHost:   AIHostName,
	}

	var buf bytes.Buffer
	if err := premiereTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build premiere prompt: %w", err)
	}
	return buf.String(), nil
}

// Progress renders a story progression prompt. storyContext is the trailing
// slice of the previous director-control log.
func Progress(cast []CastMember, storyContext, choice string) (string, error) {
	data := struct {
		Cast         []CastMember
		Speakers     []string
		StoryContext string
		Choice       string
	}{
		Cast:         cast,
		Speakers:     Whitelist(cast),
		StoryContext: storyContext,
		Choice:       choice,
	}

	var buf bytes.Buffer
	if err := progressTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build progression prompt: %w", err)
	}
	return buf.String(), nil
}

func joinStrings(items []string, sep string) string {
	var buf bytes.Buffer
	for i, item := range items {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(item)
	}
	return buf.String()
}
