package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/voiceisland/engine/internal/types"
)

type conversationRecord struct {
	ID             string         `gorm:"primaryKey"`
	CreatedAt      time.Time      `gorm:"index"`
	Participants   []string       `gorm:"serializer:json;type:jsonb"`
	MessageIDs     []string       `gorm:"serializer:json;type:jsonb"`
	Context        map[string]any `gorm:"serializer:json;type:jsonb"`
	Summary        string
	SummaryDetails *types.SummaryOutput `gorm:"serializer:json;type:jsonb"`
}

func (conversationRecord) TableName() string { return "conversations" }

// ConversationRepository persists conversations and their rolling summaries.
type ConversationRepository struct {
	db *gorm.DB
}

func (r *ConversationRepository) Get(ctx context.Context, id string) (*types.Conversation, error) {
	var rec conversationRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return conversationFromRecord(&rec), nil
}

func (r *ConversationRepository) Insert(ctx context.Context, conversation *types.Conversation) error {
	rec := &conversationRecord{
		ID:           conversation.ID,
		CreatedAt:    conversation.CreatedAt,
		Participants: conversation.Participants,
		MessageIDs:   conversation.MessageIDs,
		Context:      conversation.Context,
		Summary:      conversation.Summary,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// AppendMessages appends message ids to the conversation's ordered sequence.
func (r *ConversationRepository) AppendMessages(ctx context.Context, id string, messageIDs []string) error {
	var rec conversationRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrNotFound
		}
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	rec.MessageIDs = append(rec.MessageIDs, messageIDs...)

	if err := r.db.WithContext(ctx).Model(&rec).Update("message_ids", rec.MessageIDs).Error; err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

// UpdateSummary stores the rolling summary text. details may be nil when the
// model produced prose instead of a structured summary.
func (r *ConversationRepository) UpdateSummary(ctx context.Context, id, summary string, details *types.SummaryOutput) error {
	updates := map[string]any{
		"summary":         summary,
		"summary_details": details,
	}
	result := r.db.WithContext(ctx).Model(&conversationRecord{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update summary: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

// Latest returns the most recently created conversation.
func (r *ConversationRepository) Latest(ctx context.Context) (*types.Conversation, error) {
	var rec conversationRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load latest conversation: %w", err)
	}
	return conversationFromRecord(&rec), nil
}

func (r *ConversationRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&conversationRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}
	return nil
}

func conversationFromRecord(rec *conversationRecord) *types.Conversation {
	return &types.Conversation{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		Participants: rec.Participants,
		MessageIDs:   rec.MessageIDs,
		Context:      rec.Context,
		Summary:      rec.Summary,
	}
}
