package lti

import (
	"fmt"
	"strings"
)

// Standard LTI basic-launch parameter names.
const (
	ParamResourceLinkID = "resource_link_id"
	ParamUserID         = "user_id"
	ParamRoles          = "roles"
	ParamFullName       = "lis_person_name_full"
	ParamContactEmail   = "lis_person_contact_email_primary"
	ParamUsername       = "ext_user_username"
	ParamContextTitle   = "context_title"
)

// Caller roles after normalisation.
const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// LaunchRequest is the parsed, validated form of one inbound LMS POST.
type LaunchRequest struct {
	ConsumerKey  string
	PlacementID  string
	UserID       string
	Username     string
	DisplayName  string
	ContactHint  string
	ContextTitle string
	Role         string

	// Params holds every submitted form field for signature recomputation.
	Params map[string]string
	Method string
	URL    string
}

// ParseLaunchRequest validates the required launch fields out of the raw form
// parameters. Missing placement or caller identifiers are hard failures.
func ParseLaunchRequest(params map[string]string, method, url string) (LaunchRequest, error) {
	consumerKey := strings.TrimSpace(params[ParamConsumerKey])
	if consumerKey == "" {
		return LaunchRequest{}, fmt.Errorf("missing %s", ParamConsumerKey)
	}

	placementID := strings.TrimSpace(params[ParamResourceLinkID])
	if placementID == "" {
		return LaunchRequest{}, fmt.Errorf("missing %s", ParamResourceLinkID)
	}

	userID := strings.TrimSpace(params[ParamUserID])
	if userID == "" {
		return LaunchRequest{}, fmt.Errorf("missing %s", ParamUserID)
	}

	return LaunchRequest{
		ConsumerKey:  consumerKey,
		PlacementID:  placementID,
		UserID:       userID,
		Username:     strings.TrimSpace(params[ParamUsername]),
		DisplayName:  strings.TrimSpace(params[ParamFullName]),
		ContactHint:  strings.ToLower(strings.TrimSpace(params[ParamContactEmail])),
		ContextTitle: strings.TrimSpace(params[ParamContextTitle]),
		Role:         NormalizeRole(params[ParamRoles]),
		Params:       params,
		Method:       method,
		URL:          url,
	}, nil
}

// NormalizeRole collapses the comma-separated LMS role list to instructor or
// student. Any role containing "instructor" or "administrator" counts as
// instructor; everything else is a student.
func NormalizeRole(raw string) string {
	for _, role := range strings.Split(raw, ",") {
		role = strings.ToLower(strings.TrimSpace(role))
		// Roles may arrive as full URNs such as
		// urn:lti:role:ims/lis/Instructor.
		if strings.Contains(role, "instructor") || strings.Contains(role, "administrator") {
			return RoleInstructor
		}
	}
	return RoleStudent
}

// PreferredUsername picks the identity component for the synthetic identity
// formulas: the LMS username when present, the opaque user id otherwise.
func (r LaunchRequest) PreferredUsername() string {
	if r.Username != "" {
		return r.Username
	}
	return r.UserID
}
