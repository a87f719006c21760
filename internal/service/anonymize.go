package service

import (
	"fmt"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

// Pseudonym renders the display name for the 1-based membership rank.
func Pseudonym(rank int) string {
	return fmt.Sprintf("Student %d", rank)
}

// pseudonymsByIdentity computes the anonymization map for one activity:
// session identity -> pseudonym, ranked by membership creation order. The map
// is recomputed on every query and never stored, so it is a pure function of
// membership history. Members must already be in creation order.
//
// Known limitation: an owner who independently knows each student's
// first-access time can correlate ranks back to people.
func pseudonymsByIdentity(members []models.ActivityMember) map[string]string {
	pseudonyms := make(map[string]string, len(members))
	for i, member := range members {
		pseudonyms[member.SessionIdentity] = Pseudonym(i + 1)
	}
	return pseudonyms
}
