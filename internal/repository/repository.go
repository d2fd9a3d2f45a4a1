// Package repository implements persistence over Postgres with gorm.
// pgvector backs the message embedding column used by recall.
package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Store owns the database handle and hands out collection repositories.
type Store struct {
	db *gorm.DB

	characters    *CharacterRepository
	conversations *ConversationRepository
	messages      *MessageRepository
	relationships *RelationshipRepository
	pools         *PoolRepository
	worldState    *WorldStateRepository
}

// NewStore opens a Postgres connection.
func NewStore(databaseURL string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		characters:    &CharacterRepository{db: db},
		conversations: &ConversationRepository{db: db},
		messages:      &MessageRepository{db: db},
		relationships: &RelationshipRepository{db: db},
		pools:         &PoolRepository{db: db},
		worldState:    &WorldStateRepository{db: db},
	}
}

// Migrate creates the schema, including the pgvector extension.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if err := s.db.WithContext(ctx).AutoMigrate(
		&characterRecord{},
		&conversationRecord{},
		&messageRecord{},
		&relationshipRecord{},
		&attributePoolRecord{},
		&worldStateRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping reports database reachability.
func (s *Store) Ping(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Characters() *CharacterRepository       { return s.characters }
func (s *Store) Conversations() *ConversationRepository { return s.conversations }
func (s *Store) Messages() *MessageRepository           { return s.messages }
func (s *Store) Relationships() *RelationshipRepository { return s.relationships }
func (s *Store) Pools() *PoolRepository                 { return s.pools }
func (s *Store) WorldState() *WorldStateRepository      { return s.worldState }
