package casting

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/voiceisland/engine/internal/types"
)

type fakePoolRepo struct {
	pools map[string][]string
}

func (r *fakePoolRepo) All(ctx context.Context) (map[string][]string, error) {
	return r.pools, nil
}

type fakeCharacterRepo struct {
	characters map[string]*types.Character
	order      []string
}

func newFakeCharacterRepo() *fakeCharacterRepo {
	return &fakeCharacterRepo{characters: map[string]*types.Character{}}
}

func (r *fakeCharacterRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.characters[id]
	return ok, nil
}

func (r *fakeCharacterRepo) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids, nil
}

func (r *fakeCharacterRepo) Insert(ctx context.Context, character *types.Character) error {
	r.characters[character.ID] = character
	r.order = append(r.order, character.ID)
	return nil
}

func (r *fakeCharacterRepo) SetAffinity(ctx context.Context, characterID, otherID string, affinity float64) error {
	r.characters[characterID].Relationships[otherID] = affinity
	return nil
}

type fakeRelationshipRepo struct {
	records []*types.Relationship
}

func (r *fakeRelationshipRepo) Insert(ctx context.Context, rel *types.Relationship) error {
	r.records = append(r.records, rel)
	return nil
}

func testPools() map[string][]string {
	return map[string][]string{
		types.PoolPersonality:       {"curious", "gruff", "wise", "playful", "mysterious", "brave"},
		types.PoolBackground:        {"explorer", "mechanic", "scholar", "artist", "warrior"},
		types.PoolTrait:             {"loyal", "sarcastic", "optimistic", "stubborn", "creative"},
		types.PoolVoice:             {"alto", "bass", "soprano"},
		types.PoolEthnicity:         {"Eldorian", "Norseman"},
		types.PoolReligion:          {"Sun-worshipper", "Moon-cultist"},
		types.PoolMentalIllness:     {"Chronic Anxiety", "Paranoid Tendencies"},
		types.PoolSubconsciousTrait: {"Imposter syndrome", "Unresolved grief"},
	}
}

func newTestDirectory(chars *fakeCharacterRepo, rels *fakeRelationshipRepo, pools map[string][]string) *Directory {
	return NewDirectory(&fakePoolRepo{pools: pools}, chars, rels, rand.New(rand.NewSource(7)))
}

func TestCreateCharacterInitializesProfile(t *testing.T) {
	chars := newFakeCharacterRepo()
	rels := &fakeRelationshipRepo{}
	directory := newTestDirectory(chars, rels, testPools())

	character, err := directory.CreateCharacter(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if character.ID == "" || character.Name == "" {
		t.Fatalf("expected id and name, got %#v", character)
	}
	if n := len(character.Personality); n < 2 || n > 3 {
		t.Fatalf("expected 2-3 personality values, got %d", n)
	}
	if n := len(character.Traits); n < 2 || n > 4 {
		t.Fatalf("expected 2-4 traits, got %d", n)
	}
	if n := len(character.MentalIllness); n > 2 {
		t.Fatalf("expected at most 2 mental illness tags, got %d", n)
	}
	if n := len(character.SubconsciousTraits); n < 1 || n > 2 {
		t.Fatalf("expected 1-2 subconscious traits, got %d", n)
	}
	if character.TechnicalIQ < 80 || character.TechnicalIQ > 140 {
		t.Fatalf("technical iq out of range: %d", character.TechnicalIQ)
	}
	if character.Mood != "neutral" {
		t.Fatalf("expected neutral mood, got %s", character.Mood)
	}
	if len(character.Relationships) != 0 {
		t.Fatalf("first character must have no relationships, got %v", character.Relationships)
	}
}

func TestCreateCharactersBuildsRelationshipGraph(t *testing.T) {
	chars := newFakeCharacterRepo()
	rels := &fakeRelationshipRepo{}
	directory := newTestDirectory(chars, rels, testPools())

	created, err := directory.CreateCharacters(context.Background(), 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 characters, got %d", len(created))
	}

	seen := map[string]bool{}
	for _, c := range created {
		if seen[c.ID] {
			t.Fatalf("duplicate character id %s", c.ID)
		}
		seen[c.ID] = true
	}

	// One record per unordered pair.
	if len(rels.records) != 3 {
		t.Fatalf("expected 3 relationship records, got %d", len(rels.records))
	}

	for _, c := range chars.characters {
		if len(c.Relationships) != 2 {
			t.Fatalf("character %s: expected 2 map entries, got %d", c.ID, len(c.Relationships))
		}
		for other, affinity := range c.Relationships {
			if affinity != 0.0 {
				t.Fatalf("character %s -> %s: expected affinity 0.0, got %f", c.ID, other, affinity)
			}
		}
	}
}

func TestCreateCharacterPoolExhaustion(t *testing.T) {
	pools := testPools()
	// Only one possible draw: every retry collides with the first character.
	pools[types.PoolPersonality] = []string{"curious", "gruff"}
	pools[types.PoolBackground] = []string{"explorer"}

	chars := newFakeCharacterRepo()
	rels := &fakeRelationshipRepo{}
	directory := newTestDirectory(chars, rels, pools)

	ids := map[string]bool{}
	var err error
	// Two orderings of the personality pair exist, so at most two unique
	// names before exhaustion.
	for i := 0; i < 3; i++ {
		var c *types.Character
		c, err = directory.CreateCharacter(context.Background())
		if err != nil {
			break
		}
		if ids[c.ID] {
			t.Fatalf("duplicate id generated: %s", c.ID)
		}
		ids[c.ID] = true
	}
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestCreateCharacterRequiresMinimumPoolSizes(t *testing.T) {
	pools := testPools()
	pools[types.PoolPersonality] = []string{"curious"}

	directory := newTestDirectory(newFakeCharacterRepo(), &fakeRelationshipRepo{}, pools)
	if _, err := directory.CreateCharacter(context.Background()); !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted for undersized pool, got %v", err)
	}
}
