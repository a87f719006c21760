package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// AssistantRepository is the read side of the externally-managed assistant
// registry. This engine never mutates assistants.
type AssistantRepository interface {
	GetByPublishedName(ctx context.Context, publishedName string) (models.Assistant, error)
	ListPublished(ctx context.Context) ([]models.Assistant, error)
	ListByIDs(ctx context.Context, ids []uint) ([]models.Assistant, error)
	ListByActivity(ctx context.Context, activityID uint) ([]models.Assistant, error)
}

type assistantRepository struct {
	db *gorm.DB
}

// NewAssistantRepository constructs a read-only assistant registry view.
func NewAssistantRepository(db *gorm.DB) AssistantRepository {
	return &assistantRepository{db: db}
}

func (r *assistantRepository) GetByPublishedName(ctx context.Context, publishedName string) (models.Assistant, error) {
	var assistant models.Assistant
	err := r.db.WithContext(ctx).
		Where("published_name = ? AND published_name <> ''", publishedName).
		First(&assistant).Error
	if err != nil {
		return models.Assistant{}, err
	}

	return assistant, nil
}

func (r *assistantRepository) ListPublished(ctx context.Context) ([]models.Assistant, error) {
	var assistants []models.Assistant
	err := r.db.WithContext(ctx).
		Where("published_name <> ''").
		Order("name ASC").
		Find(&assistants).Error
	if err != nil {
		return nil, err
	}

	return assistants, nil
}

func (r *assistantRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Assistant, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var assistants []models.Assistant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&assistants).Error; err != nil {
		return nil, err
	}

	return assistants, nil
}

func (r *assistantRepository) ListByActivity(ctx context.Context, activityID uint) ([]models.Assistant, error) {
	var assistants []models.Assistant
	err := r.db.WithContext(ctx).
		Joins("JOIN activity_assistant_links ON activity_assistant_links.assistant_id = assistants.id").
		Where("activity_assistant_links.activity_id = ?", activityID).
		Order("assistants.id ASC").
		Find(&assistants).Error
	if err != nil {
		return nil, err
	}

	return assistants, nil
}
