package models

import "time"

// Assistant mirrors the assistant registry owned by the admin surface.
//
// This engine only reads these rows: by published name when resolving
// per-resource launch credentials, and by activity link when aggregating
// dashboards.
type Assistant struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID *uint  `gorm:"index" json:"tenant_id"`
	Name     string `gorm:"size:255;not null" json:"name"`
	// PublishedName doubles as the LTI consumer key on the per-resource
	// launch surface; empty means the assistant is not published.
	PublishedName string    `gorm:"size:255;index" json:"published_name"`
	LTISecret     string    `gorm:"size:255" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
