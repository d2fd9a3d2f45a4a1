// Package casting procedurally generates the season cast and maintains the
// relationship graph between contestants.
package casting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/voiceisland/engine/internal/types"
)

// ErrPoolExhausted means no non-colliding character could be drawn from the
// attribute pools within the bounded number of attempts.
var ErrPoolExhausted = errors.New("attribute pools exhausted")

// maxDrawAttempts bounds the uniqueness-retry loop.
const maxDrawAttempts = 32

// PoolRepo reads the attribute pools.
type PoolRepo interface {
	All(ctx context.Context) (map[string][]string, error)
}

// CharacterRepo is the character persistence the directory needs.
type CharacterRepo interface {
	Exists(ctx context.Context, id string) (bool, error)
	ListIDs(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, character *types.Character) error
	SetAffinity(ctx context.Context, characterID, otherID string, affinity float64) error
}

// RelationshipRepo persists pair records.
type RelationshipRepo interface {
	Insert(ctx context.Context, rel *types.Relationship) error
}

// Directory generates characters and wires their relationships.
type Directory struct {
	pools         PoolRepo
	characters    CharacterRepo
	relationships RelationshipRepo

	mu      sync.Mutex
	rng     *rand.Rand
	nowFunc func() time.Time
}

// NewDirectory returns a Directory. rng may be nil for a time-seeded source.
func NewDirectory(pools PoolRepo, characters CharacterRepo, relationships RelationshipRepo, rng *rand.Rand) *Directory {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Directory{
		pools:         pools,
		characters:    characters,
		relationships: relationships,
		rng:           rng,
		nowFunc:       time.Now,
	}
}

// CreateCharacter draws a new unique character from the attribute pools,
// initializes its relationships with every existing character at affinity
// 0.0, persists it, and returns it. The uniqueness retry is bounded: when
// the pools cannot yield a fresh id the call fails with ErrPoolExhausted.
func (d *Directory) CreateCharacter(ctx context.Context) (*types.Character, error) {
	pools, err := d.pools.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribute pools: %w", err)
	}

	for attempt := 0; attempt < maxDrawAttempts; attempt++ {
		character, err := d.draw(pools)
		if err != nil {
			return nil, err
		}

		exists, err := d.characters.Exists(ctx, character.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check character id: %w", err)
		}
		if exists {
			continue
		}

		if err := d.linkExisting(ctx, character); err != nil {
			return nil, err
		}
		if err := d.characters.Insert(ctx, character); err != nil {
			return nil, fmt.Errorf("failed to persist character: %w", err)
		}

		slog.Info("character created", "id", character.ID, "name", character.Name, "attempts", attempt+1)
		return character, nil
	}

	return nil, fmt.Errorf("no unique character after %d draws: %w", maxDrawAttempts, ErrPoolExhausted)
}

// CreateCharacters generates n characters sequentially. Later characters
// see relationships to all earlier ones in the same batch.
func (d *Directory) CreateCharacters(ctx context.Context, n int) ([]*types.Character, error) {
	characters := make([]*types.Character, 0, n)
	for i := 0; i < n; i++ {
		character, err := d.CreateCharacter(ctx)
		if err != nil {
			return characters, fmt.Errorf("character %d of %d: %w", i+1, n, err)
		}
		characters = append(characters, character)
	}
	return characters, nil
}

func (d *Directory) draw(pools map[string][]string) (*types.Character, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	personality, err := d.sample(pools[types.PoolPersonality], 2, 3)
	if err != nil {
		return nil, fmt.Errorf("personality pool: %w", err)
	}
	background, err := d.pick(pools[types.PoolBackground])
	if err != nil {
		return nil, fmt.Errorf("background pool: %w", err)
	}
	traits, err := d.sample(pools[types.PoolTrait], 2, 4)
	if err != nil {
		return nil, fmt.Errorf("trait pool: %w", err)
	}
	voice, err := d.pick(pools[types.PoolVoice])
	if err != nil {
		return nil, fmt.Errorf("voice pool: %w", err)
	}
	ethnicity, err := d.pick(pools[types.PoolEthnicity])
	if err != nil {
		return nil, fmt.Errorf("ethnicity pool: %w", err)
	}
	religion, err := d.pick(pools[types.PoolReligion])
	if err != nil {
		return nil, fmt.Errorf("religion pool: %w", err)
	}
	mentalIllness, err := d.sample(pools[types.PoolMentalIllness], 0, 2)
	if err != nil {
		return nil, fmt.Errorf("mental illness pool: %w", err)
	}
	subconscious, err := d.sample(pools[types.PoolSubconsciousTrait], 1, 2)
	if err != nil {
		return nil, fmt.Errorf("subconscious trait pool: %w", err)
	}

	name := titleCase(strings.Join(personality, " ") + " " + background)
	now := d.nowFunc()

	return &types.Character{
		ID:                 slug.Make(name),
		Name:               name,
		Personality:        personality,
		Background:         background,
		Traits:             traits,
		VoiceType:          voice,
		Mood:               "neutral",
		Ethnicity:          ethnicity,
		Religion:           religion,
		MentalIllness:      mentalIllness,
		SubconsciousTraits: subconscious,
		TechnicalIQ:        80 + d.rng.Intn(61),
		GeneralIQ:          80 + d.rng.Intn(61),
		Relationships:      map[string]float64{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// linkExisting pairs the new character with every existing one: an entry in
// each embedded map plus a single pair record.
func (d *Directory) linkExisting(ctx context.Context, character *types.Character) error {
	existingIDs, err := d.characters.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing characters: %w", err)
	}

	for _, existingID := range existingIDs {
		if err := d.characters.SetAffinity(ctx, existingID, character.ID, 0.0); err != nil {
			return fmt.Errorf("failed to link existing character %s: %w", existingID, err)
		}
		character.Relationships[existingID] = 0.0

		if err := d.relationships.Insert(ctx, &types.Relationship{
			ID:                 uuid.NewString(),
			Char1ID:            character.ID,
			Char2ID:            existingID,
			Affinity:           0.0,
			InteractionHistory: []string{},
			CreatedAt:          d.nowFunc(),
		}); err != nil {
			return fmt.Errorf("failed to insert relationship record: %w", err)
		}
	}
	return nil
}

// sample draws between minN and maxN unique values. The upper bound clamps
// to the pool size; falling short of the lower bound exhausts the pool.
func (d *Directory) sample(pool []string, minN, maxN int) ([]string, error) {
	if len(pool) < minN {
		return nil, fmt.Errorf("need at least %d values, have %d: %w", minN, len(pool), ErrPoolExhausted)
	}
	if maxN > len(pool) {
		maxN = len(pool)
	}
	n := minN
	if maxN > minN {
		n += d.rng.Intn(maxN - minN + 1)
	}

	out := make([]string, 0, n)
	for _, idx := range d.rng.Perm(len(pool))[:n] {
		out = append(out, pool[idx])
	}
	return out, nil
}

func (d *Directory) pick(pool []string) (string, error) {
	if len(pool) == 0 {
		return "", fmt.Errorf("empty pool: %w", ErrPoolExhausted)
	}
	return pool[d.rng.Intn(len(pool))], nil
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
