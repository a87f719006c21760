package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// LaunchEventRepository persists the launch audit trail.
type LaunchEventRepository interface {
	Create(ctx context.Context, event *models.LaunchEvent) error
	ListByPlacement(ctx context.Context, placementID string, limit int) ([]models.LaunchEvent, error)
}

type launchEventRepository struct {
	db *gorm.DB
}

// NewLaunchEventRepository constructs a launch event repository.
func NewLaunchEventRepository(db *gorm.DB) LaunchEventRepository {
	return &launchEventRepository{db: db}
}

func (r *launchEventRepository) Create(ctx context.Context, event *models.LaunchEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *launchEventRepository) ListByPlacement(ctx context.Context, placementID string, limit int) ([]models.LaunchEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var events []models.LaunchEvent
	err := r.db.WithContext(ctx).
		Where("placement_id = ?", placementID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	return events, nil
}
