package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
)

func TestGlobalSecretResolverFallsBackToConfig(t *testing.T) {
	db := setupServiceDB(t)
	resolver := NewGlobalSecretResolver(repository.NewCredentialRepository(db), "course-key", "config-secret")

	secret, err := resolver.ResolveSecret(context.Background(), "course-key")
	require.NoError(t, err)
	require.Equal(t, "config-secret", secret)

	_, err = resolver.ResolveSecret(context.Background(), "wrong-key")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGlobalSecretResolverStoredRecordOverridesConfig(t *testing.T) {
	db := setupServiceDB(t)
	record := models.CredentialRecord{
		Scope:          models.CredentialScopeGlobal,
		ConsumerKey:    "rotated-key",
		ConsumerSecret: "rotated-secret",
	}
	require.NoError(t, db.Create(&record).Error)

	resolver := NewGlobalSecretResolver(repository.NewCredentialRepository(db), "course-key", "config-secret")

	secret, err := resolver.ResolveSecret(context.Background(), "rotated-key")
	require.NoError(t, err)
	require.Equal(t, "rotated-secret", secret)

	// The configured pair is dead once a record exists.
	_, err = resolver.ResolveSecret(context.Background(), "course-key")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestGlobalSecretResolverNoCredentialsAtAll(t *testing.T) {
	db := setupServiceDB(t)
	resolver := NewGlobalSecretResolver(repository.NewCredentialRepository(db), "", "")

	_, err := resolver.ResolveSecret(context.Background(), "anything")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestResourceSecretResolver(t *testing.T) {
	db := setupServiceDB(t)
	assistant := models.Assistant{Name: "Math Helper", PublishedName: "math-helper", LTISecret: "s1"}
	unpublishable := models.Assistant{Name: "No Secret", PublishedName: "no-secret"}
	require.NoError(t, db.Create(&assistant).Error)
	require.NoError(t, db.Create(&unpublishable).Error)

	resolver := NewResourceSecretResolver(repository.NewAssistantRepository(db))

	secret, err := resolver.ResolveSecret(context.Background(), "math-helper")
	require.NoError(t, err)
	require.Equal(t, "s1", secret)

	// Unknown name and missing secret both read as authentication
	// failures; neither reveals whether the assistant exists.
	_, err = resolver.ResolveSecret(context.Background(), "unknown")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = resolver.ResolveSecret(context.Background(), "no-secret")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestTenantSecretResolver(t *testing.T) {
	db := setupServiceDB(t)
	tenant := models.Tenant{Slug: "acme", Name: "Acme U", LTISecret: "tenant-secret"}
	protected := models.Tenant{Slug: "system", Name: "System", Protected: true, LTISecret: "x"}
	bare := models.Tenant{Slug: "bare", Name: "Bare"}
	require.NoError(t, db.Create(&tenant).Error)
	require.NoError(t, db.Create(&protected).Error)
	require.NoError(t, db.Create(&bare).Error)

	resolver := NewTenantSecretResolver(repository.NewCredentialRepository(db))

	secret, err := resolver.ResolveSecret(context.Background(), "acme")
	require.NoError(t, err)
	require.Equal(t, "tenant-secret", secret)

	for _, slug := range []string{"system", "bare", "missing"} {
		_, err := resolver.ResolveSecret(context.Background(), slug)
		require.ErrorIs(t, err, ErrAuthenticationFailed, "slug %s", slug)
	}
}
