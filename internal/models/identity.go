package models

import "time"

// IdentityLink maps an LMS-supplied user to a platform operator identity.
//
// It is consulted only to recognise a returning instructor on an
// unconfigured placement. One operator may carry several LMS identities
// (multi-institution instructors); one LMS identity maps to at most one
// operator.
type IdentityLink struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LMSUserID string    `gorm:"size:255;not null;uniqueIndex:idx_lms_identity" json:"lms_user_id"`
	// ContactHint is the optional contact address the LMS sent alongside
	// the user id; both must match for the link to apply.
	ContactHint      string    `gorm:"size:255;not null;uniqueIndex:idx_lms_identity" json:"contact_hint"`
	OperatorIdentity string    `gorm:"size:255;not null;index" json:"operator_identity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
