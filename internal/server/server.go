// Package server is the director-facing surface: a small REST API for cast
// management plus a websocket channel for live show events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/voiceisland/engine/internal/casting"
	"github.com/voiceisland/engine/internal/season"
	"github.com/voiceisland/engine/internal/types"
)

// CharacterLister reads the current cast.
type CharacterLister interface {
	List(ctx context.Context) ([]types.Character, error)
}

// Caster creates contestants.
type Caster interface {
	CreateCharacter(ctx context.Context) (*types.Character, error)
	CreateCharacters(ctx context.Context, n int) ([]*types.Character, error)
}

// Show drives interaction turns and observations.
type Show interface {
	Interact(ctx context.Context, characterID, text, conversationID string) (*types.InteractResult, error)
	ObserveCharacter(ctx context.Context, characterID, observationType, extraContext string) (*types.Observation, error)
	ManageHistory(ctx context.Context, conversationID string) (bool, error)
}

// Season drives the narrative state machine.
type Season interface {
	Start() error
	StartStory(ctx context.Context, model string) (*types.StorySegment, error)
	ProgressStory(ctx context.Context, choice, model string) (*types.StorySegment, error)
	LatestSegment(ctx context.Context) (*types.StorySegment, error)
	StoryHistory(ctx context.Context) (*types.StoryHistory, error)
	EndGame(ctx context.Context) error
	State() season.State
}

// WorldStates reads the singleton environment record.
type WorldStates interface {
	Get(ctx context.Context) (*types.WorldState, error)
}

// RelationshipLister reads the pair records of a character.
type RelationshipLister interface {
	ListForCharacter(ctx context.Context, characterID string) ([]types.Relationship, error)
}

// Pinger reports reachability of an external collaborator.
type Pinger interface {
	Ping(ctx context.Context) bool
}

// Server routes director requests to the orchestrators.
type Server struct {
	router        *mux.Router
	characters    CharacterLister
	caster        Caster
	show          Show
	season        Season
	world         WorldStates
	relationships RelationshipLister
	db            Pinger
	llm           Pinger
	hub           *hub
}

// New wires the routes.
func New(characters CharacterLister, caster Caster, showOrch Show, seasonOrch Season, world WorldStates, relationships RelationshipLister, db, llm Pinger) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		characters:    characters,
		caster:        caster,
		show:          showOrch,
		season:        seasonOrch,
		world:         world,
		relationships: relationships,
		db:            db,
		llm:           llm,
		hub:           newHub(),
	}

	s.router.HandleFunc("/api/characters", s.handleListCharacters).Methods(http.MethodGet)
	s.router.HandleFunc("/api/characters", s.handleCreateCharacter).Methods(http.MethodPost)
	s.router.HandleFunc("/api/characters/batch", s.handleCreateBatch).Methods(http.MethodPost)
	s.router.HandleFunc("/api/characters/{id}/relationships", s.handleCharacterRelationships).Methods(http.MethodGet)
	s.router.HandleFunc("/api/story/history", s.handleStoryHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/api/story/latest", s.handleLatestSegment).Methods(http.MethodGet)
	s.router.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWebsocket)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := s.characters.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"characters": characters})
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	character, err := s.caster.CreateCharacter(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, character)
}

// maxBatchSize bounds one casting call.
const maxBatchSize = 8

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Count == 0 {
		req.Count = 3
	}
	if req.Count < 1 || req.Count > maxBatchSize {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "count must be between 1 and 8"})
		return
	}

	characters, err := s.caster.CreateCharacters(r.Context(), req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"characters": characters})
}

func (s *Server) handleCharacterRelationships(w http.ResponseWriter, r *http.Request) {
	characterID := mux.Vars(r)["id"]
	relationships, err := s.relationships.ListForCharacter(r.Context(), characterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationships": relationships})
}

func (s *Server) handleStoryHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.season.StoryHistory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleLatestSegment(w http.ResponseWriter, r *http.Request) {
	segment, err := s.season.LatestSegment(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segment)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"database": s.db.Ping(r.Context()),
		"llm":      s.llm.Ping(r.Context()),
		"season":   s.season.State(),
	}
	if world, err := s.world.Get(r.Context()); err == nil {
		status["scene"] = world.CurrentScene
	} else if !errors.Is(err, types.ErrNotFound) {
		slog.Error("failed to load world state", "error", err.Error())
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, season.ErrSeasonState), errors.Is(err, casting.ErrPoolExhausted):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
