package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// ActivityRepository provides access to activity records.
type ActivityRepository interface {
	GetByID(ctx context.Context, id uint) (models.Activity, error)
	GetByPlacementID(ctx context.Context, placementID string) (models.Activity, error)
	Create(ctx context.Context, activity *models.Activity, assistantIDs []uint) error
	UpdateConfiguration(ctx context.Context, id uint, name string, chatVisibility bool, assistantIDs []uint) error
	TransferOwner(ctx context.Context, id uint, ownerIdentity string) error
	AssistantIDs(ctx context.Context, activityID uint) ([]uint, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository constructs an activity repository backed by GORM.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).First(&activity, id).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) GetByPlacementID(ctx context.Context, placementID string) (models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).Where("placement_id = ?", placementID).First(&activity).Error
	if err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity, assistantIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(activity).Error; err != nil {
			return err
		}

		for _, assistantID := range assistantIDs {
			link := models.ActivityAssistantLink{ActivityID: activity.ID, AssistantID: assistantID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *activityRepository) UpdateConfiguration(ctx context.Context, id uint, name string, chatVisibility bool, assistantIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":            name,
			"chat_visibility": chatVisibility,
		}
		if err := tx.Model(&models.Activity{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("activity_id = ?", id).Delete(&models.ActivityAssistantLink{}).Error; err != nil {
			return err
		}

		for _, assistantID := range assistantIDs {
			link := models.ActivityAssistantLink{ActivityID: id, AssistantID: assistantID}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *activityRepository) TransferOwner(ctx context.Context, id uint, ownerIdentity string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Where("id = ?", id).
		Update("owner_identity", ownerIdentity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *activityRepository) AssistantIDs(ctx context.Context, activityID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.ActivityAssistantLink{}).
		Where("activity_id = ?", activityID).
		Order("id ASC").
		Pluck("assistant_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
