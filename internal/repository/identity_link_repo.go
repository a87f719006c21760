package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// IdentityLinkRepository maps LMS identities to platform operators.
type IdentityLinkRepository interface {
	Resolve(ctx context.Context, lmsUserID, contactHint string) (models.IdentityLink, error)
	Create(ctx context.Context, link *models.IdentityLink) error
}

type identityLinkRepository struct {
	db *gorm.DB
}

// NewIdentityLinkRepository constructs an identity link repository.
func NewIdentityLinkRepository(db *gorm.DB) IdentityLinkRepository {
	return &identityLinkRepository{db: db}
}

func (r *identityLinkRepository) Resolve(ctx context.Context, lmsUserID, contactHint string) (models.IdentityLink, error) {
	var link models.IdentityLink
	err := r.db.WithContext(ctx).
		Where("lms_user_id = ? AND contact_hint = ?", lmsUserID, contactHint).
		First(&link).Error
	if err != nil {
		return models.IdentityLink{}, err
	}

	return link, nil
}

func (r *identityLinkRepository) Create(ctx context.Context, link *models.IdentityLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}
