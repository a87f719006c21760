package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/repository"
)

// SecretResolver resolves the shared secret that signed an inbound launch.
// Each launch surface carries exactly one resolver; a resolution failure
// short-circuits to an authentication failure with no cross-scope fallback.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, consumerKey string) (string, error)
}

// GlobalSecretResolver serves the deployment-wide credential scope. A stored
// credential record overrides the statically configured fallback pair.
type GlobalSecretResolver struct {
	credentials repository.CredentialRepository
	fallbackKey string
	fallbackSecret string
}

// NewGlobalSecretResolver builds the global-scope resolver.
func NewGlobalSecretResolver(credentials repository.CredentialRepository, fallbackKey, fallbackSecret string) *GlobalSecretResolver {
	return &GlobalSecretResolver{
		credentials:    credentials,
		fallbackKey:    fallbackKey,
		fallbackSecret: fallbackSecret,
	}
}

// ResolveSecret implements SecretResolver.
func (r *GlobalSecretResolver) ResolveSecret(ctx context.Context, consumerKey string) (string, error) {
	record, err := r.credentials.GetGlobal(ctx)
	switch {
	case err == nil:
		if record.ConsumerKey != consumerKey || record.ConsumerSecret == "" {
			return "", ErrAuthenticationFailed
		}
		return record.ConsumerSecret, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if r.fallbackKey == "" || r.fallbackKey != consumerKey || r.fallbackSecret == "" {
			return "", ErrAuthenticationFailed
		}
		return r.fallbackSecret, nil
	default:
		return "", fmt.Errorf("failed to load global credential: %w", err)
	}
}

// ResourceSecretResolver serves the per-resource scope, where the consumer
// key is the published name of an assistant. An unknown name is an
// authentication failure, not a 404.
type ResourceSecretResolver struct {
	assistants repository.AssistantRepository
}

// NewResourceSecretResolver builds the per-resource resolver.
func NewResourceSecretResolver(assistants repository.AssistantRepository) *ResourceSecretResolver {
	return &ResourceSecretResolver{assistants: assistants}
}

// ResolveSecret implements SecretResolver.
func (r *ResourceSecretResolver) ResolveSecret(ctx context.Context, consumerKey string) (string, error) {
	assistant, err := r.assistants.GetByPublishedName(ctx, consumerKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAuthenticationFailed
		}
		return "", fmt.Errorf("failed to load assistant credential: %w", err)
	}

	if assistant.LTISecret == "" {
		return "", ErrAuthenticationFailed
	}

	return assistant.LTISecret, nil
}

// TenantSecretResolver serves the per-tenant scope, where the consumer key is
// a tenant slug. Protected tenants never resolve.
type TenantSecretResolver struct {
	credentials repository.CredentialRepository
}

// NewTenantSecretResolver builds the per-tenant resolver.
func NewTenantSecretResolver(credentials repository.CredentialRepository) *TenantSecretResolver {
	return &TenantSecretResolver{credentials: credentials}
}

// ResolveSecret implements SecretResolver.
func (r *TenantSecretResolver) ResolveSecret(ctx context.Context, consumerKey string) (string, error) {
	tenant, err := r.credentials.GetTenantBySlug(ctx, consumerKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAuthenticationFailed
		}
		return "", fmt.Errorf("failed to load tenant credential: %w", err)
	}

	if tenant.Protected || tenant.LTISecret == "" {
		return "", ErrAuthenticationFailed
	}

	return tenant.LTISecret, nil
}
