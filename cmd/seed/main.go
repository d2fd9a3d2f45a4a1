// Command seed resets the island: it migrates the schema, clears all
// collections, and loads the attribute pools and initial world state.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/voiceisland/engine/internal/config"
	"github.com/voiceisland/engine/internal/repository"
	"github.com/voiceisland/engine/internal/types"
)

var pools = []types.AttributePool{
	{ID: types.PoolPersonality, Values: []string{
		"curious", "gruff", "wise", "playful", "mysterious", "brave", "cautious", "energetic",
		"ambitious", "compassionate", "cynical", "deceitful", "honorable", "humble", "impulsive",
		"jaded", "melancholic", "methodical", "pessimistic", "stoic", "whimsical", "gregarious",
	}},
	{ID: types.PoolBackground, Values: []string{
		"explorer", "mechanic", "scholar", "artist", "warrior", "merchant", "hermit", "inventor",
		"assassin", "baker", "diplomat", "doctor", "farmer", "guard", "musician", "navigator",
		"priest", "smuggler", "spy", "tinkerer", "cartographer", "librarian",
	}},
	{ID: types.PoolTrait, Values: []string{
		"loyal", "sarcastic", "optimistic", "stubborn", "creative", "analytical", "empathetic",
		"rebellious", "arrogant", "charming", "clumsy", "cowardly", "disciplined", "gullible",
		"patient", "paranoid", "resourceful", "vain", "witty", "zealous", "forgetful", "graceful",
	}},
	{ID: types.PoolVoice, Values: []string{
		"alto", "bass", "soprano", "tenor", "raspy", "smooth", "young", "elderly",
	}},
	{ID: types.PoolEthnicity, Values: []string{
		"Aethelgardian", "Bjorning", "Cymric", "Dornishman", "Eldorian", "Fjornlander", "Gaelic",
		"Highlander", "Icenian", "Jute", "Khemrian", "Lombard", "Mycenaean", "Norseman", "Ostrogoth",
		"Pict", "Quendonian", "Romanesque", "Saxon", "Thracian", "Umberian", "Vandal", "Wessexian",
	}},
	{ID: types.PoolReligion, Values: []string{
		"Sun-worshipper (Dawnbreaker Sect)", "Moon-cultist (Shadow-weaver Sect)",
		"Ancestor Veneration (Spirit-speaker Clan)", "The Old Ways (Druidic Circle)",
		"Forge God Devotee (Iron-hand Order)", "Sea Titan Follower (Tide-caller Cult)",
		"Celestialism (Stargazer's Concordance)", "Path of the Void (Silent Brotherhood)",
		"Nature's Balance (Greenwood Covenant)", "The Unseen Path (Seekers of Knowledge)",
		"Blood Rite Cult (Crimson Guard)", "Divine Monarchy (Throne-Sworn)",
		"Fate Weavers (Tapestry Coven)", "Chaos Embrace (Mawsworn)",
		"Order of the Serpent (Venomous Disciples)",
	}},
	{ID: types.PoolMentalIllness, Values: []string{
		"Chronic Anxiety", "Paranoid Tendencies", "Obsessive Compulsions", "Manic Episodes",
		"Severe Melancholy (Depression)", "Amnesiac Fugues", "Identity Dysphoria",
		"Auditory Hallucinations", "Visual Hallucinations", "Messiah Complex",
		"Pathological Lying", "Hoarding Disorder", "Social Phobia", "PTSD Flashbacks",
		"Apathy Syndrome",
	}},
	{ID: types.PoolSubconsciousTrait, Values: []string{
		"Fear of abandonment", "Imposter syndrome", "A deep-seated need for validation",
		"Aversion to authority", "Unresolved grief", "A savior complex", "A desire for chaos",
		"Crippling perfectionism", "A phobia of failure", "Subconscious self-loathing",
		"A secret desire for a simple life", "Repressed memories", "An unyielding sense of duty",
		"A hidden rebellious streak", "A profound sense of loneliness",
	}},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := repository.NewStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open store", "error", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		slog.Error("migration failed", "error", err.Error())
		os.Exit(1)
	}

	slog.Info("clearing existing data")
	for name, clear := range map[string]func(context.Context) error{
		"messages":      store.Messages().DeleteAll,
		"conversations": store.Conversations().DeleteAll,
		"relationships": store.Relationships().DeleteAll,
		"characters":    store.Characters().DeleteAll,
	} {
		if err := clear(ctx); err != nil {
			slog.Error("failed to clear collection", "collection", name, "error", err.Error())
			os.Exit(1)
		}
	}

	if err := store.Pools().Seed(ctx, pools); err != nil {
		slog.Error("failed to seed pools", "error", err.Error())
		os.Exit(1)
	}
	slog.Info("seeded attribute pools", "count", len(pools))

	worldState := &types.WorldState{
		ID:           types.WorldStateID,
		CurrentScene: "the_villa",
		ActiveEvents: []string{"season_premiere_approaching"},
		EnvironmentalFactors: map[string]any{
			"time_of_day": "evening",
			"weather":     "clear",
		},
	}
	if err := store.WorldState().Save(ctx, worldState); err != nil {
		slog.Error("failed to seed world state", "error", err.Error())
		os.Exit(1)
	}
	slog.Info("seeding complete")
}
