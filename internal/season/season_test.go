package season

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/types"
)

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *fakeProvider) Complete(ctx context.Context, model, prompt string, wantJSON bool) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.response, p.err
}

func (p *fakeProvider) Ping(ctx context.Context) bool { return true }

type fakeCharacters struct {
	chars   []types.Character
	cleared bool
}

func (r *fakeCharacters) List(ctx context.Context) ([]types.Character, error) {
	return r.chars, nil
}

func (r *fakeCharacters) DeleteAll(ctx context.Context) error {
	r.chars = nil
	r.cleared = true
	return nil
}

type fakeConversations struct {
	convs    []*types.Conversation
	appended map[string][]string
	cleared  bool
}

func (r *fakeConversations) Insert(ctx context.Context, conversation *types.Conversation) error {
	r.convs = append(r.convs, conversation)
	return nil
}

func (r *fakeConversations) AppendMessages(ctx context.Context, id string, messageIDs []string) error {
	if r.appended == nil {
		r.appended = map[string][]string{}
	}
	r.appended[id] = append(r.appended[id], messageIDs...)
	return nil
}

func (r *fakeConversations) Latest(ctx context.Context) (*types.Conversation, error) {
	if len(r.convs) == 0 {
		return nil, types.ErrNotFound
	}
	return r.convs[len(r.convs)-1], nil
}

func (r *fakeConversations) DeleteAll(ctx context.Context) error {
	r.convs = nil
	r.cleared = true
	return nil
}

type fakeMessages struct {
	msgs    []*types.Message
	cleared bool
}

func (r *fakeMessages) Insert(ctx context.Context, message *types.Message, embedding []float32) error {
	r.msgs = append(r.msgs, message)
	return nil
}

func (r *fakeMessages) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	var out []types.Message
	for _, m := range r.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessages) LatestDirectorControl(ctx context.Context) (*types.Message, error) {
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if r.msgs[i].DirectorControl {
			return r.msgs[i], nil
		}
	}
	return nil, types.ErrNotFound
}

func (r *fakeMessages) DeleteAll(ctx context.Context) error {
	r.msgs = nil
	r.cleared = true
	return nil
}

func (r *fakeMessages) directorControls() []*types.Message {
	var out []*types.Message
	for _, m := range r.msgs {
		if m.DirectorControl {
			out = append(out, m)
		}
	}
	return out
}

type fakeRelationships struct {
	cleared bool
}

func (r *fakeRelationships) DeleteAll(ctx context.Context) error {
	r.cleared = true
	return nil
}

type fakeJoiner struct {
	closed bool
}

func (j *fakeJoiner) Close() { j.closed = true }

func testCast() []types.Character {
	return []types.Character{
		{ID: "curious-explorer", Name: "Curious Explorer", Personality: []string{"curious"}, Background: "explorer"},
		{ID: "gruff-pilot", Name: "Gruff Pilot", Personality: []string{"gruff"}, Background: "pilot"},
	}
}

func testSeason(provider *fakeProvider, cast []types.Character) (*Orchestrator, *fakeCharacters, *fakeConversations, *fakeMessages, *fakeRelationships, *fakeJoiner) {
	characters := &fakeCharacters{chars: cast}
	conversations := &fakeConversations{}
	messages := &fakeMessages{}
	relationships := &fakeRelationships{}
	joiner := &fakeJoiner{}

	o := New(genclient.New(provider, "test-model"), characters, conversations, messages, relationships, joiner)
	var seq int
	o.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	o.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return o, characters, conversations, messages, relationships, joiner
}

const premiereResponse = "```json\n" + `{
  "title": "Welcome to Voice Island!",
  "dialogue": [
    {"speaker": "Narrator", "line": "The villa gleams in the morning sun."},
    {"speaker": "Curious Explorer", "line": "This place is incredible!"},
    {"speaker": "Voice Island AI", "line": "Contestants, welcome."}
  ],
  "choices": ["A storm rolls in", "A mystery guest arrives", "Dinner goes wrong"]
}` + "\n```"

const sceneResponse = `{
  "scene": [
    {"speaker": "Narrator", "line": "Thunder rattles the villa.", "emotion": "ominous"},
    {"speaker": "Gruff Pilot", "line": "I've flown through worse.", "emotion": "defiant"}
  ],
  "choices": ["The power goes out", "Someone screams"],
  "is_game_over": false
}`

func TestStartTransitionsToAwaitingCast(t *testing.T) {
	o, _, _, _, _, _ := testSeason(&fakeProvider{}, nil)

	if err := o.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if o.State() != StateAwaitingCast {
		t.Fatalf("expected awaiting_cast, got %s", o.State())
	}
	if err := o.Start(); !errors.Is(err, ErrSeasonState) {
		t.Fatalf("expected ErrSeasonState on double start, got %v", err)
	}
}

func TestStartStoryRequiresCast(t *testing.T) {
	o, _, _, _, _, _ := testSeason(&fakeProvider{response: premiereResponse}, nil)
	o.state = StateAwaitingCast

	_, err := o.StartStory(context.Background(), "")
	if !errors.Is(err, ErrSeasonState) {
		t.Fatalf("expected ErrSeasonState without a cast, got %v", err)
	}
	if o.State() != StateAwaitingCast {
		t.Fatalf("state must not advance without a cast, got %s", o.State())
	}
}

func TestStartStoryGeneratesPremiere(t *testing.T) {
	provider := &fakeProvider{response: premiereResponse}
	o, _, conversations, messages, _, _ := testSeason(provider, testCast())
	o.state = StateAwaitingCast

	segment, err := o.StartStory(context.Background(), "")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}

	if o.State() != StateInProgress {
		t.Fatalf("expected in_progress, got %s", o.State())
	}
	if !strings.Contains(segment.Dialogue, "# Welcome to Voice Island!") {
		t.Fatalf("expected titled story log, got %q", segment.Dialogue)
	}
	if len(segment.Choices) != 3 {
		t.Fatalf("expected 3 choices, got %v", segment.Choices)
	}

	if len(messages.msgs) != 4 {
		t.Fatalf("expected 3 line messages plus head, got %d", len(messages.msgs))
	}
	castLine := messages.msgs[1]
	if castLine.SpeakerKind != types.SpeakerCharacter || castLine.SpeakerID != "curious-explorer" {
		t.Fatalf("cast line must resolve to the character id, got %+v", castLine)
	}
	narratorLine := messages.msgs[0]
	if narratorLine.SpeakerKind != types.SpeakerSystem || narratorLine.SpeakerID != "Narrator" {
		t.Fatalf("narrator line must be a system message, got %+v", narratorLine)
	}
	head := messages.msgs[3]
	if !head.DirectorControl || head.GameOver {
		t.Fatalf("unexpected head message: %+v", head)
	}

	if len(conversations.convs) != 1 {
		t.Fatalf("expected 1 story conversation, got %d", len(conversations.convs))
	}
	if got := conversations.appended[conversations.convs[0].ID]; len(got) != 4 {
		t.Fatalf("expected 4 appended ids, got %v", got)
	}

	if !strings.Contains(provider.prompts[0], "- Curious Explorer") {
		t.Fatal("expected the cast in the speaker whitelist")
	}
}

func TestStartStoryPersistsFailureHead(t *testing.T) {
	o, _, _, messages, _, _ := testSeason(&fakeProvider{err: fmt.Errorf("connection refused")}, testCast())
	o.state = StateAwaitingCast

	segment, err := o.StartStory(context.Background(), "")
	if err != nil {
		t.Fatalf("StartStory: %v", err)
	}
	if o.State() != StateInProgress {
		t.Fatalf("expected in_progress after failed premiere, got %s", o.State())
	}

	heads := messages.directorControls()
	if len(heads) != 1 {
		t.Fatalf("expected an error-flagged head, got %d heads", len(heads))
	}
	if heads[0].Content != segment.Dialogue {
		t.Fatal("head content must match the returned segment")
	}

	latest, err := o.LatestSegment(context.Background())
	if err != nil {
		t.Fatalf("LatestSegment: %v", err)
	}
	if latest.Dialogue != segment.Dialogue {
		t.Fatal("latest segment must stay well-defined after a failed premiere")
	}
}

func TestProgressStoryRejectedOutsideInProgress(t *testing.T) {
	o, _, _, _, _, _ := testSeason(&fakeProvider{response: sceneResponse}, testCast())

	_, err := o.ProgressStory(context.Background(), "A storm rolls in", "")
	if !errors.Is(err, ErrSeasonState) {
		t.Fatalf("expected ErrSeasonState from idle, got %v", err)
	}
}

func TestProgressStoryUsesTrailingContext(t *testing.T) {
	provider := &fakeProvider{response: sceneResponse}
	o, _, conversations, messages, _, _ := testSeason(provider, testCast())
	o.state = StateInProgress
	conversations.convs = []*types.Conversation{{ID: "story-conv"}}

	filler := strings.Repeat("x", 800)
	messages.msgs = []*types.Message{{
		ID:              "head-1",
		ConversationID:  "story-conv",
		Content:         filler + " the pilot stormed off.",
		DirectorControl: true,
	}}

	segment, err := o.ProgressStory(context.Background(), "A storm rolls in", "")
	if err != nil {
		t.Fatalf("ProgressStory: %v", err)
	}
	if segment.GameOver {
		t.Fatal("scene is not a finale")
	}

	p := provider.prompts[0]
	if !strings.Contains(p, "the pilot stormed off.") {
		t.Fatal("expected trailing story context in the prompt")
	}
	if strings.Contains(p, strings.Repeat("x", 750)) {
		t.Fatal("context must be truncated to the trailing window")
	}
	if !strings.Contains(p, `The director chose: "A storm rolls in"`) {
		t.Fatal("expected the director's choice in the prompt")
	}
}

func TestProgressStoryFinaleEndsSeason(t *testing.T) {
	finale := strings.Replace(sceneResponse, `"is_game_over": false`, `"is_game_over": true`, 1)
	o, _, conversations, _, _, _ := testSeason(&fakeProvider{response: finale}, testCast())
	o.state = StateInProgress
	conversations.convs = []*types.Conversation{{ID: "story-conv"}}

	segment, err := o.ProgressStory(context.Background(), "Someone screams", "")
	if err != nil {
		t.Fatalf("ProgressStory: %v", err)
	}
	if !segment.GameOver {
		t.Fatal("expected a finale segment")
	}
	if o.State() != StateEnded {
		t.Fatalf("expected ended, got %s", o.State())
	}

	if _, err := o.ProgressStory(context.Background(), "Encore", ""); !errors.Is(err, ErrSeasonState) {
		t.Fatalf("expected ErrSeasonState after the finale, got %v", err)
	}
}

func TestStoryHistoryProjection(t *testing.T) {
	o, _, conversations, messages, _, _ := testSeason(&fakeProvider{}, testCast())
	conversations.convs = []*types.Conversation{{ID: "story-conv"}}
	messages.msgs = []*types.Message{
		{ID: "m1", ConversationID: "story-conv", SpeakerKind: types.SpeakerSystem, SpeakerID: "Narrator", Content: "The villa gleams.", ContextTags: []types.ContextTag{{Type: "speaker_name", Value: "Narrator"}}},
		{ID: "m2", ConversationID: "story-conv", SpeakerKind: types.SpeakerCharacter, SpeakerID: "gruff-pilot", Content: "Nice villa.", Emotion: "gruff", ContextTags: []types.ContextTag{{Type: "speaker_name", Value: "Gruff Pilot"}}},
		{ID: "m3", ConversationID: "story-conv", SpeakerKind: types.SpeakerSystem, SpeakerID: directorID, Content: "log", DirectorControl: true, Choices: []string{"A", "B"}},
	}

	history, err := o.StoryHistory(context.Background())
	if err != nil {
		t.Fatalf("StoryHistory: %v", err)
	}
	if len(history.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", history.Lines)
	}
	if history.Lines[1].Speaker != "Gruff Pilot" {
		t.Fatalf("expected display name from tag, got %q", history.Lines[1].Speaker)
	}
	if len(history.Choices) != 2 {
		t.Fatalf("expected choices from the head, got %v", history.Choices)
	}
}

func TestStoryHistoryEmptyWhenNoSeason(t *testing.T) {
	o, _, _, _, _, _ := testSeason(&fakeProvider{}, nil)

	history, err := o.StoryHistory(context.Background())
	if err != nil {
		t.Fatalf("StoryHistory: %v", err)
	}
	if len(history.Lines) != 0 || len(history.Choices) != 0 {
		t.Fatalf("expected empty projection, got %+v", history)
	}
}

func TestLatestSegmentBeforeStoryStarts(t *testing.T) {
	o, _, _, _, _, _ := testSeason(&fakeProvider{}, nil)

	segment, err := o.LatestSegment(context.Background())
	if err != nil {
		t.Fatalf("LatestSegment: %v", err)
	}
	if segment.Dialogue != noStoryDialogue {
		t.Fatalf("expected placeholder dialogue, got %q", segment.Dialogue)
	}
	if len(segment.Choices) != 0 || segment.GameOver {
		t.Fatalf("expected empty choices and no game over, got %+v", segment)
	}
}

func TestEndGameClearsIsland(t *testing.T) {
	o, characters, conversations, messages, relationships, joiner := testSeason(&fakeProvider{}, testCast())
	o.state = StateEnded
	messages.msgs = []*types.Message{{ID: "m1"}}
	conversations.convs = []*types.Conversation{{ID: "c1"}}

	if err := o.EndGame(context.Background()); err != nil {
		t.Fatalf("EndGame: %v", err)
	}

	if !messages.cleared || !conversations.cleared || !relationships.cleared || !characters.cleared {
		t.Fatal("expected every collection cleared")
	}
	if !joiner.closed {
		t.Fatal("expected background work joined before the clear")
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle after end game, got %s", o.State())
	}
}
