package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// MemberRepository provides access to activity membership records.
type MemberRepository interface {
	Get(ctx context.Context, activityID uint, lmsUserID string) (models.ActivityMember, error)
	Create(ctx context.Context, member *models.ActivityMember) error
	// ListByActivity returns members in creation order; the dashboard
	// pseudonym is derived from this ordering.
	ListByActivity(ctx context.Context, activityID uint) ([]models.ActivityMember, error)
	RecordAccess(ctx context.Context, memberID uint, at time.Time) error
	RecordConsent(ctx context.Context, memberID uint, at time.Time) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository constructs a member repository backed by GORM.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Get(ctx context.Context, activityID uint, lmsUserID string) (models.ActivityMember, error) {
	var member models.ActivityMember
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND lms_user_id = ?", activityID, lmsUserID).
		First(&member).Error
	if err != nil {
		return models.ActivityMember{}, err
	}

	return member, nil
}

func (r *memberRepository) Create(ctx context.Context, member *models.ActivityMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *memberRepository) ListByActivity(ctx context.Context, activityID uint) ([]models.ActivityMember, error) {
	var members []models.ActivityMember
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (r *memberRepository) RecordAccess(ctx context.Context, memberID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ActivityMember{}).
		Where("id = ?", memberID).
		Updates(map[string]interface{}{
			"last_accessed_at": at,
			"launch_count":     gorm.Expr("launch_count + 1"),
		}).Error
}

func (r *memberRepository) RecordConsent(ctx context.Context, memberID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ActivityMember{}).
		Where("id = ? AND consented_at IS NULL", memberID).
		Update("consented_at", at).Error
}
