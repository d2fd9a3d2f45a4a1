package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voiceisland/engine/internal/casting"
	"github.com/voiceisland/engine/internal/season"
	"github.com/voiceisland/engine/internal/types"
)

type fakeLister struct {
	characters []types.Character
}

func (f *fakeLister) List(ctx context.Context) ([]types.Character, error) {
	return f.characters, nil
}

type fakeCaster struct {
	err       error
	lastCount int
}

func (f *fakeCaster) CreateCharacter(ctx context.Context) (*types.Character, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.Character{ID: "curious-explorer", Name: "Curious Explorer"}, nil
}

func (f *fakeCaster) CreateCharacters(ctx context.Context, n int) ([]*types.Character, error) {
	f.lastCount = n
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*types.Character, n)
	for i := range out {
		out[i] = &types.Character{ID: "c", Name: "C"}
	}
	return out, nil
}

type fakeShow struct{}

func (fakeShow) Interact(ctx context.Context, characterID, text, conversationID string) (*types.InteractResult, error) {
	return &types.InteractResult{Dialogue: "hi", ConversationID: "conv-1"}, nil
}

func (fakeShow) ObserveCharacter(ctx context.Context, characterID, observationType, extraContext string) (*types.Observation, error) {
	return &types.Observation{Observation: "fine"}, nil
}

func (fakeShow) ManageHistory(ctx context.Context, conversationID string) (bool, error) {
	return false, nil
}

type fakeSeason struct {
	state      season.State
	segmentErr error
}

func (f *fakeSeason) Start() error { return nil }

func (f *fakeSeason) StartStory(ctx context.Context, model string) (*types.StorySegment, error) {
	return &types.StorySegment{Dialogue: "log"}, nil
}

func (f *fakeSeason) ProgressStory(ctx context.Context, choice, model string) (*types.StorySegment, error) {
	return &types.StorySegment{Dialogue: "log"}, nil
}

func (f *fakeSeason) LatestSegment(ctx context.Context) (*types.StorySegment, error) {
	if f.segmentErr != nil {
		return nil, f.segmentErr
	}
	return &types.StorySegment{Dialogue: "log", Choices: []string{"A"}}, nil
}

func (f *fakeSeason) StoryHistory(ctx context.Context) (*types.StoryHistory, error) {
	return &types.StoryHistory{Lines: []types.StoryLine{}, Choices: []string{}}, nil
}

func (f *fakeSeason) EndGame(ctx context.Context) error { return nil }

func (f *fakeSeason) State() season.State { return f.state }

type fakeWorldState struct {
	state *types.WorldState
}

func (f *fakeWorldState) Get(ctx context.Context) (*types.WorldState, error) {
	if f.state == nil {
		return nil, types.ErrNotFound
	}
	return f.state, nil
}

type fakeRelationships struct {
	records []types.Relationship
}

func (f *fakeRelationships) ListForCharacter(ctx context.Context, characterID string) ([]types.Relationship, error) {
	var out []types.Relationship
	for _, rec := range f.records {
		if rec.Char1ID == characterID || rec.Char2ID == characterID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakePinger struct {
	up bool
}

func (p fakePinger) Ping(ctx context.Context) bool { return p.up }

func testServer(caster *fakeCaster, seasonFake *fakeSeason) *Server {
	lister := &fakeLister{characters: []types.Character{{ID: "curious-explorer", Name: "Curious Explorer"}}}
	world := &fakeWorldState{state: &types.WorldState{ID: types.WorldStateID, CurrentScene: "the_villa"}}
	relationships := &fakeRelationships{records: []types.Relationship{
		{ID: "r1", Char1ID: "curious-explorer", Char2ID: "gruff-pilot", Affinity: 0.5},
		{ID: "r2", Char1ID: "gruff-pilot", Char2ID: "stoic-baker", Affinity: -0.1},
	}}
	return New(lister, caster, fakeShow{}, seasonFake, world, relationships, fakePinger{up: true}, fakePinger{up: false})
}

func TestListCharacters(t *testing.T) {
	s := testServer(&fakeCaster{}, &fakeSeason{state: season.StateIdle})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/characters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Characters []types.Character `json:"characters"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Characters) != 1 || body.Characters[0].ID != "curious-explorer" {
		t.Fatalf("unexpected characters: %+v", body.Characters)
	}
}

func TestCreateBatchDefaultsToThree(t *testing.T) {
	caster := &fakeCaster{}
	s := testServer(caster, &fakeSeason{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/characters/batch", strings.NewReader(`{}`)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if caster.lastCount != 3 {
		t.Fatalf("expected default batch of 3, got %d", caster.lastCount)
	}
}

func TestCreateBatchRejectsOversized(t *testing.T) {
	s := testServer(&fakeCaster{}, &fakeSeason{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/characters/batch", strings.NewReader(`{"count": 20}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateCharacterPoolExhaustedConflict(t *testing.T) {
	s := testServer(&fakeCaster{err: casting.ErrPoolExhausted}, &fakeSeason{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/characters", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for exhausted pools, got %d", rec.Code)
	}
}

func TestLatestSegmentNotFound(t *testing.T) {
	s := testServer(&fakeCaster{}, &fakeSeason{segmentErr: types.ErrNotFound})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/story/latest", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	s := testServer(&fakeCaster{}, &fakeSeason{state: season.StateInProgress})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Database bool   `json:"database"`
		LLM      bool   `json:"llm"`
		Season   string `json:"season"`
		Scene    string `json:"scene"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Database || body.LLM {
		t.Fatalf("unexpected status: %+v", body)
	}
	if body.Season != string(season.StateInProgress) {
		t.Fatalf("unexpected season state: %q", body.Season)
	}
	if body.Scene != "the_villa" {
		t.Fatalf("expected world scene in status, got %q", body.Scene)
	}
}

func TestCharacterRelationships(t *testing.T) {
	s := testServer(&fakeCaster{}, &fakeSeason{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/characters/curious-explorer/relationships", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Relationships []types.Relationship `json:"relationships"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Relationships) != 1 || body.Relationships[0].ID != "r1" {
		t.Fatalf("expected the character's pair record, got %+v", body.Relationships)
	}
}
