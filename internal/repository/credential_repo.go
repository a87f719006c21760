package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// CredentialRepository provides access to stored LTI credential records and
// tenant secrets.
type CredentialRepository interface {
	GetGlobal(ctx context.Context) (models.CredentialRecord, error)
	GetTenantBySlug(ctx context.Context, slug string) (models.Tenant, error)
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository constructs a credential repository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) GetGlobal(ctx context.Context) (models.CredentialRecord, error) {
	var record models.CredentialRecord
	err := r.db.WithContext(ctx).
		Where("scope = ? AND scope_key = ?", models.CredentialScopeGlobal, "").
		First(&record).Error
	if err != nil {
		return models.CredentialRecord{}, err
	}

	return record, nil
}

func (r *credentialRepository) GetTenantBySlug(ctx context.Context, slug string) (models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return models.Tenant{}, err
	}

	return tenant, nil
}
