package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voiceisland/engine/internal/types"
)

type characterRecord struct {
	ID                 string `gorm:"primaryKey"`
	Name               string
	Personality        []string `gorm:"serializer:json;type:jsonb"`
	Background         string
	Traits             []string `gorm:"serializer:json;type:jsonb"`
	VoiceType          string
	Mood               string
	Ethnicity          string
	Religion           string
	MentalIllness      []string           `gorm:"serializer:json;type:jsonb"`
	SubconsciousTraits []string           `gorm:"serializer:json;type:jsonb"`
	TechnicalIQ        int
	GeneralIQ          int
	Relationships      map[string]float64 `gorm:"serializer:json;type:jsonb"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (characterRecord) TableName() string { return "characters" }

// CharacterRepository persists contestant profiles.
type CharacterRepository struct {
	db *gorm.DB
}

func (r *CharacterRepository) Get(ctx context.Context, id string) (*types.Character, error) {
	var rec characterRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	return characterFromRecord(&rec), nil
}

func (r *CharacterRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&characterRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check character: %w", err)
	}
	return count > 0, nil
}

func (r *CharacterRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&characterRecord{}).Order("created_at").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list character ids: %w", err)
	}
	return ids, nil
}

func (r *CharacterRepository) List(ctx context.Context) ([]types.Character, error) {
	var recs []characterRecord
	if err := r.db.WithContext(ctx).Order("created_at").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	out := make([]types.Character, 0, len(recs))
	for i := range recs {
		out = append(out, *characterFromRecord(&recs[i]))
	}
	return out, nil
}

func (r *CharacterRepository) ListOthers(ctx context.Context, excludeID string) ([]types.Character, error) {
	var recs []characterRecord
	if err := r.db.WithContext(ctx).Where("id <> ?", excludeID).Order("created_at").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	out := make([]types.Character, 0, len(recs))
	for i := range recs {
		out = append(out, *characterFromRecord(&recs[i]))
	}
	return out, nil
}

func (r *CharacterRepository) Insert(ctx context.Context, character *types.Character) error {
	if err := r.db.WithContext(ctx).Create(characterToRecord(character)).Error; err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

// SetAffinity sets one entry of a character's embedded relationship map.
func (r *CharacterRepository) SetAffinity(ctx context.Context, characterID, otherID string, affinity float64) error {
	var rec characterRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", characterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("failed to load character: %w", err)
	}
	if rec.Relationships == nil {
		rec.Relationships = map[string]float64{}
	}
	rec.Relationships[otherID] = affinity

	if err := r.db.WithContext(ctx).Model(&rec).Update("relationships", rec.Relationships).Error; err != nil {
		return fmt.Errorf("failed to update relationships: %w", err)
	}
	return nil
}

// UpdateState overwrites the mutable slice of a character.
func (r *CharacterRepository) UpdateState(ctx context.Context, id string, state types.CharacterState) error {
	updates := map[string]any{
		"mood":                state.Mood,
		"relationships":       state.Relationships,
		"traits":              state.Traits,
		"subconscious_traits": state.SubconsciousTraits,
		"updated_at":          time.Now(),
	}
	result := r.db.WithContext(ctx).Model(&characterRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update character state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *CharacterRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&characterRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete characters: %w", err)
	}
	return nil
}

func characterToRecord(c *types.Character) *characterRecord {
	return &characterRecord{
		ID:                 c.ID,
		Name:               c.Name,
		Personality:        c.Personality,
		Background:         c.Background,
		Traits:             c.Traits,
		VoiceType:          c.VoiceType,
		Mood:               c.Mood,
		Ethnicity:          c.Ethnicity,
		Religion:           c.Religion,
		MentalIllness:      c.MentalIllness,
		SubconsciousTraits: c.SubconsciousTraits,
		TechnicalIQ:        c.TechnicalIQ,
		GeneralIQ:          c.GeneralIQ,
		Relationships:      c.Relationships,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func characterFromRecord(rec *characterRecord) *types.Character {
	relationships := rec.Relationships
	if relationships == nil {
		relationships = map[string]float64{}
	}
	return &types.Character{
		ID:                 rec.ID,
		Name:               rec.Name,
		Personality:        rec.Personality,
		Background:         rec.Background,
		Traits:             rec.Traits,
		VoiceType:          rec.VoiceType,
		Mood:               rec.Mood,
		Ethnicity:          rec.Ethnicity,
		Religion:           rec.Religion,
		MentalIllness:      rec.MentalIllness,
		SubconsciousTraits: rec.SubconsciousTraits,
		TechnicalIQ:        rec.TechnicalIQ,
		GeneralIQ:          rec.GeneralIQ,
		Relationships:      relationships,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}
}
