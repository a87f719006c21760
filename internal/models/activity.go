package models

import "time"

// Activity lifecycle states.
const (
	ActivityStatusActive   = "active"
	ActivityStatusDisabled = "disabled"
)

// Activity is the durable record of one configured LMS tool placement.
type Activity struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// PlacementID is supplied by the LMS and never changes across
	// relaunches of the same placement.
	PlacementID string `gorm:"size:255;uniqueIndex;not null" json:"placement_id"`
	TenantID    *uint  `gorm:"index" json:"tenant_id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	// OwnerIdentity is set exactly once, when the first instructor submits
	// the setup form. Changed only by an explicit administrative transfer.
	OwnerIdentity  string                  `gorm:"size:255;not null" json:"owner_identity"`
	ChatVisibility bool                    `gorm:"not null;default:false" json:"chat_visibility"`
	Status         string                  `gorm:"size:32;not null;default:active" json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	AssistantLinks []ActivityAssistantLink `gorm:"constraint:OnDelete:CASCADE" json:"assistant_links,omitempty"`
}

// IsActive reports whether the activity accepts launches.
func (a Activity) IsActive() bool {
	return a.Status == ActivityStatusActive
}

// ActivityAssistantLink attaches an externally-managed assistant to an activity.
type ActivityAssistantLink struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ActivityID  uint      `gorm:"not null;uniqueIndex:idx_activity_assistant" json:"activity_id"`
	AssistantID uint      `gorm:"not null;uniqueIndex:idx_activity_assistant" json:"assistant_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityMember records one end-user who has launched into an activity.
//
// Creation order is load-bearing: the dashboard pseudonym is the 1-based rank
// of CreatedAt within the activity, so rows must never be reordered or
// backfilled.
type ActivityMember struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ActivityID  uint   `gorm:"not null;uniqueIndex:idx_activity_member" json:"activity_id"`
	LMSUserID   string `gorm:"size:255;not null;uniqueIndex:idx_activity_member" json:"lms_user_id"`
	DisplayName string `gorm:"size:255" json:"display_name"`
	// SessionIdentity is the synthetic identity used in the external
	// session provider for this member.
	SessionIdentity string     `gorm:"size:255;not null;index" json:"session_identity"`
	ConsentedAt     *time.Time `json:"consented_at"`
	LastAccessedAt  *time.Time `json:"last_accessed_at"`
	LaunchCount     uint       `gorm:"not null;default:0" json:"launch_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasConsented reports whether the member has a recorded consent timestamp.
func (m ActivityMember) HasConsented() bool {
	return m.ConsentedAt != nil
}
