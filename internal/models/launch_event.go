package models

import (
	"time"

	"gorm.io/datatypes"
)

// LaunchEvent captures one decided launch for auditing.
//
// Metadata never contains secrets or unconsumed token identifiers.
type LaunchEvent struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	PlacementID string            `gorm:"size:255;index" json:"placement_id"`
	Role        string            `gorm:"size:32;not null" json:"role"`
	Outcome     string            `gorm:"size:64;not null" json:"outcome"`
	FailureClass string           `gorm:"size:64" json:"failure_class"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
}
