package lti

import "strings"

// ResourceIdentity derives the synthetic identity for the per-resource launch
// surface: the same human gets a different identity for every distinct
// resource.
func ResourceIdentity(username, resourceName, platformDomain string) string {
	return SanitizeIdentityPart(username) + "-" + SanitizeIdentityPart(resourceName) + "@" + platformDomain
}

// ActivityIdentity derives the synthetic identity for the per-activity launch
// surface: one identity per placement, shared across every resource attached
// to that placement.
func ActivityIdentity(username, placementID, platformDomain string) string {
	return SanitizeIdentityPart(username) + "_" + SanitizeIdentityPart(placementID) + "@" + platformDomain
}

// SanitizeIdentityPart strips characters unsafe for an identity string,
// keeping lowercase alphanumerics plus dot, dash and underscore.
func SanitizeIdentityPart(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))

	var builder strings.Builder
	for i := 0; i < len(input); i++ {
		b := input[i]
		switch {
		case b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '.', b == '-', b == '_':
			builder.WriteByte(b)
		case b == ' ' || b == '@':
			builder.WriteByte('.')
		}
	}

	return builder.String()
}
