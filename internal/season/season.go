// Package season owns the narrative state machine of one Voice Island
// season: premiere, director-chosen story beats, and end-of-season teardown.
package season

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voiceisland/engine/internal/genclient"
	"github.com/voiceisland/engine/internal/types"
)

// State is the season lifecycle phase.
type State string

const (
	StateIdle         State = "idle"
	StateAwaitingCast State = "awaiting_cast"
	StateInProgress   State = "in_progress"
	StateEnded        State = "ended"
)

// ErrSeasonState is returned when an operation is invalid in the current
// lifecycle phase.
var ErrSeasonState = errors.New("invalid season state")

// directorID is the speaker id used for aggregated story log messages.
const directorID = "DIRECTOR"

// storyContextWindow is how many trailing characters of the previous story
// log carry over as continuity context.
const storyContextWindow = 700

// CharacterRepo is the character persistence needed by the season.
type CharacterRepo interface {
	List(ctx context.Context) ([]types.Character, error)
	DeleteAll(ctx context.Context) error
}

// ConversationRepo is the conversation persistence needed by the season.
type ConversationRepo interface {
	Insert(ctx context.Context, conversation *types.Conversation) error
	AppendMessages(ctx context.Context, id string, messageIDs []string) error
	Latest(ctx context.Context) (*types.Conversation, error)
	DeleteAll(ctx context.Context) error
}

// MessageRepo is the message persistence needed by the season.
type MessageRepo interface {
	Insert(ctx context.Context, message *types.Message, embedding []float32) error
	ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error)
	LatestDirectorControl(ctx context.Context) (*types.Message, error)
	DeleteAll(ctx context.Context) error
}

// RelationshipRepo is the relationship persistence needed by the season.
type RelationshipRepo interface {
	DeleteAll(ctx context.Context) error
}

// Joiner waits for a collaborator's background work to finish. The season
// joins it before the end-of-season bulk clear.
type Joiner interface {
	Close()
}

// Orchestrator is the explicit season session. One instance owns the state
// machine; it is created at bootstrap and torn down with the process.
type Orchestrator struct {
	gen           *genclient.Client
	characters    CharacterRepo
	conversations ConversationRepo
	messages      MessageRepo
	relationships RelationshipRepo
	joiner        Joiner

	mu    sync.Mutex
	state State

	newID func() string
	now   func() time.Time
}

// New returns an idle season. joiner may be nil.
func New(gen *genclient.Client, characters CharacterRepo, conversations ConversationRepo, messages MessageRepo, relationships RelationshipRepo, joiner Joiner) *Orchestrator {
	return &Orchestrator{
		gen:           gen,
		characters:    characters,
		conversations: conversations,
		messages:      messages,
		relationships: relationships,
		joiner:        joiner,
		state:         StateIdle,
		newID:         uuid.NewString,
		now:           time.Now,
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start opens a new season: the director casts contestants next.
func (o *Orchestrator) Start() error {
	return o.transition(StateIdle, StateAwaitingCast)
}

// Stop ends the season without clearing any data.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateEnded
}

func (o *Orchestrator) transition(from, to State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return fmtStateErr(o.state, from)
	}
	o.state = to
	return nil
}

func (o *Orchestrator) require(want State) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != want {
		return fmtStateErr(o.state, want)
	}
	return nil
}

func fmtStateErr(got, want State) error {
	return &stateError{got: got, want: want}
}

type stateError struct {
	got, want State
}

func (e *stateError) Error() string {
	return "season is " + string(e.got) + ", expected " + string(e.want)
}

func (e *stateError) Unwrap() error { return ErrSeasonState }
