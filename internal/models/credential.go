package models

import "time"

// Credential scopes.
const (
	CredentialScopeGlobal = "global"
	CredentialScopeTenant = "tenant"
)

// CredentialRecord stores a shared consumer key/secret pair under one scope.
//
// At most one active record may exist per (scope, scope key). A stored
// record takes precedence over the statically configured fallback.
type CredentialRecord struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Scope string `gorm:"size:32;not null;uniqueIndex:idx_credential_scope" json:"scope"`
	// ScopeKey is empty for the global scope and the tenant slug for the
	// tenant scope.
	ScopeKey       string    `gorm:"size:255;not null;uniqueIndex:idx_credential_scope" json:"scope_key"`
	ConsumerKey    string    `gorm:"size:255;not null" json:"consumer_key"`
	ConsumerSecret string    `gorm:"size:255;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tenant is an owning organisation on the platform.
type Tenant struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Name string `gorm:"size:255;not null" json:"name"`
	// Protected marks system tenants that must never resolve through the
	// per-tenant launch path.
	Protected bool      `gorm:"not null;default:false" json:"protected"`
	LTISecret string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
