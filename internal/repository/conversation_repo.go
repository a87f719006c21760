package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// ConversationRepository is the narrow read-only view onto the
// externally-owned conversation store: conversations are queried strictly by
// assistant-id set and account-identity set, never by this store's internal
// schema beyond that.
type ConversationRepository interface {
	Query(ctx context.Context, assistantIDs []uint, accountIdentities []string) ([]models.Conversation, error)
	Get(ctx context.Context, id uint) (models.Conversation, error)
	Messages(ctx context.Context, conversationID uint) ([]models.ConversationMessage, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository constructs a read-only conversation store view.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Query(ctx context.Context, assistantIDs []uint, accountIdentities []string) ([]models.Conversation, error) {
	if len(assistantIDs) == 0 || len(accountIdentities) == 0 {
		return nil, nil
	}

	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Where("assistant_id IN ? AND account_identity IN ?", assistantIDs, accountIdentities).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *conversationRepository) Get(ctx context.Context, id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).First(&conversation, id).Error; err != nil {
		return models.Conversation{}, err
	}

	return conversation, nil
}

func (r *conversationRepository) Messages(ctx context.Context, conversationID uint) ([]models.ConversationMessage, error) {
	var messages []models.ConversationMessage
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}
