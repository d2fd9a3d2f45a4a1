package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voiceisland/engine/internal/memory"
	"github.com/voiceisland/engine/internal/types"
)

type messageRecord struct {
	ID              string    `gorm:"primaryKey"`
	ConversationID  string    `gorm:"index"`
	Timestamp       time.Time `gorm:"index"`
	SpeakerKind     string
	SpeakerID       string             `gorm:"index"`
	Content         string
	Emotion         string
	ContextTags     []types.ContextTag `gorm:"serializer:json;type:jsonb"`
	DirectorControl bool               `gorm:"index"`
	Choices         []string           `gorm:"serializer:json;type:jsonb"`
	GameOver        bool
	Embedding       *pgvector.Vector   `gorm:"type:vector(768)"`
}

func (messageRecord) TableName() string { return "messages" }

// MessageRepository persists the immutable message log.
type MessageRepository struct {
	db *gorm.DB
}

// Insert stores a message. embedding may be nil; its dimensionality must
// match the vector column when present.
func (r *MessageRepository) Insert(ctx context.Context, message *types.Message, embedding []float32) error {
	rec := messageToRecord(message)
	if len(embedding) == memory.EmbeddingDimensions {
		vec := pgvector.NewVector(embedding)
		rec.Embedding = &vec
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByConversation returns all messages of a conversation, oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]types.Message, error) {
	var recs []messageRecord
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).Order("timestamp").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messagesFromRecords(recs), nil
}

// RecentByConversation returns the last limit messages, oldest first.
func (r *MessageRepository) RecentByConversation(ctx context.Context, conversationID string, limit int) ([]types.Message, error) {
	var recs []messageRecord
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	reverseRecords(recs)
	return messagesFromRecords(recs), nil
}

func (r *MessageRepository) CountByConversation(ctx context.Context, conversationID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&messageRecord{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// RecentBySpeaker returns a speaker's last limit messages, oldest first.
func (r *MessageRepository) RecentBySpeaker(ctx context.Context, speakerID string, limit int) ([]types.Message, error) {
	var recs []messageRecord
	if err := r.db.WithContext(ctx).
		Where("speaker_id = ?", speakerID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list speaker messages: %w", err)
	}
	reverseRecords(recs)
	return messagesFromRecords(recs), nil
}

// LatestDirectorControl returns the current head of the season narrative.
func (r *MessageRepository) LatestDirectorControl(ctx context.Context) (*types.Message, error) {
	var rec messageRecord
	if err := r.db.WithContext(ctx).
		Where("director_control = ?", true).
		Order("timestamp DESC").
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load story head: %w", err)
	}
	msg := messageFromRecord(&rec)
	return &msg, nil
}

// SearchSimilar returns the contents of the conversation's messages whose
// embedding cosine similarity to the query meets the threshold, nearest
// first.
func (r *MessageRepository) SearchSimilar(ctx context.Context, conversationID string, embedding []float32, topK int, threshold float64) ([]string, error) {
	vec := pgvector.NewVector(embedding)
	var contents []string
	err := r.db.WithContext(ctx).Model(&messageRecord{}).
		Where("conversation_id = ? AND embedding IS NOT NULL", conversationID).
		Where("1 - (embedding <=> ?) >= ?", vec, threshold).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []any{vec}}}).
		Limit(topK).
		Pluck("content", &contents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return contents, nil
}

func (r *MessageRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&messageRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

func messageToRecord(m *types.Message) *messageRecord {
	return &messageRecord{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		Timestamp:       m.Timestamp,
		SpeakerKind:     string(m.SpeakerKind),
		SpeakerID:       m.SpeakerID,
		Content:         m.Content,
		Emotion:         m.Emotion,
		ContextTags:     m.ContextTags,
		DirectorControl: m.DirectorControl,
		Choices:         m.Choices,
		GameOver:        m.GameOver,
	}
}

func messageFromRecord(rec *messageRecord) types.Message {
	return types.Message{
		ID:              rec.ID,
		ConversationID:  rec.ConversationID,
		Timestamp:       rec.Timestamp,
		SpeakerKind:     types.SpeakerKind(rec.SpeakerKind),
		SpeakerID:       rec.SpeakerID,
		Content:         rec.Content,
		Emotion:         rec.Emotion,
		ContextTags:     rec.ContextTags,
		DirectorControl: rec.DirectorControl,
		Choices:         rec.Choices,
		GameOver:        rec.GameOver,
	}
}

func messagesFromRecords(recs []messageRecord) []types.Message {
	out := make([]types.Message, 0, len(recs))
	for i := range recs {
		out = append(out, messageFromRecord(&recs[i]))
	}
	return out
}

func reverseRecords(recs []messageRecord) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}
