package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voiceisland/engine/internal/types"
)

type attributePoolRecord struct {
	ID     string   `gorm:"primaryKey"`
	Values []string `gorm:"serializer:json;type:jsonb"`
}

func (attributePoolRecord) TableName() string { return "attribute_pools" }

// PoolRepository reads and seeds the static attribute pools.
type PoolRepository struct {
	db *gorm.DB
}

// All returns every pool keyed by pool id.
func (r *PoolRepository) All(ctx context.Context) (map[string][]string, error) {
	var recs []attributePoolRecord
	if err := r.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load attribute pools: %w", err)
	}
	pools := make(map[string][]string, len(recs))
	for _, rec := range recs {
		pools[rec.ID] = rec.Values
	}
	return pools, nil
}

// Seed upserts the given pools, replacing existing values.
func (r *PoolRepository) Seed(ctx context.Context, pools []types.AttributePool) error {
	for _, pool := range pools {
		rec := &attributePoolRecord{ID: pool.ID, Values: pool.Values}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
			return fmt.Errorf("failed to seed pool %s: %w", pool.ID, err)
		}
	}
	return nil
}

type worldStateRecord struct {
	ID                   string         `gorm:"primaryKey"`
	CurrentScene         string
	ActiveEvents         []string       `gorm:"serializer:json;type:jsonb"`
	EnvironmentalFactors map[string]any `gorm:"serializer:json;type:jsonb"`
}

func (worldStateRecord) TableName() string { return "world_state" }

// WorldStateRepository persists the singleton environment record.
type WorldStateRepository struct {
	db *gorm.DB
}

func (r *WorldStateRepository) Get(ctx context.Context) (*types.WorldState, error) {
	var rec worldStateRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", types.WorldStateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load world state: %w", err)
	}
	return &types.WorldState{
		ID:                   rec.ID,
		CurrentScene:         rec.CurrentScene,
		ActiveEvents:         rec.ActiveEvents,
		EnvironmentalFactors: rec.EnvironmentalFactors,
	}, nil
}

// Save upserts the singleton world state.
func (r *WorldStateRepository) Save(ctx context.Context, state *types.WorldState) error {
	rec := &worldStateRecord{
		ID:                   types.WorldStateID,
		CurrentScene:         state.CurrentScene,
		ActiveEvents:         state.ActiveEvents,
		EnvironmentalFactors: state.EnvironmentalFactors,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save world state: %w", err)
	}
	return nil
}
