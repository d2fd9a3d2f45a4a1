package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voiceisland/engine/internal/types"
)

type relationshipRecord struct {
	ID                 string   `gorm:"primaryKey"`
	Char1ID            string   `gorm:"index"`
	Char2ID            string   `gorm:"index"`
	Affinity           float64
	InteractionHistory []string `gorm:"serializer:json;type:jsonb"`
	CreatedAt          time.Time
}

func (relationshipRecord) TableName() string { return "relationships" }

// RelationshipRepository persists pair records. The embedded maps on the
// characters are the affinity source of truth; these records carry the
// shared interaction history.
type RelationshipRepository struct {
	db *gorm.DB
}

func (r *RelationshipRepository) Insert(ctx context.Context, rel *types.Relationship) error {
	rec := &relationshipRecord{
		ID:                 rel.ID,
		Char1ID:            rel.Char1ID,
		Char2ID:            rel.Char2ID,
		Affinity:           rel.Affinity,
		InteractionHistory: rel.InteractionHistory,
		CreatedAt:          rel.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// ListForCharacter returns every pair record the character participates in.
func (r *RelationshipRepository) ListForCharacter(ctx context.Context, characterID string) ([]types.Relationship, error) {
	var recs []relationshipRecord
	if err := r.db.WithContext(ctx).
		Where("char1_id = ? OR char2_id = ?", characterID, characterID).
		Order("created_at").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	out := make([]types.Relationship, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.Relationship{
			ID:                 rec.ID,
			Char1ID:            rec.Char1ID,
			Char2ID:            rec.Char2ID,
			Affinity:           rec.Affinity,
			InteractionHistory: rec.InteractionHistory,
			CreatedAt:          rec.CreatedAt,
		})
	}
	return out, nil
}

func (r *RelationshipRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&relationshipRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}
