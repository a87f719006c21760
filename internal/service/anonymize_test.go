package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

func TestPseudonym(t *testing.T) {
	require.Equal(t, "Student 1", Pseudonym(1))
	require.Equal(t, "Student 12", Pseudonym(12))
}

func TestPseudonymsByIdentityFollowCreationOrder(t *testing.T) {
	members := []models.ActivityMember{
		{SessionIdentity: "first@platform"},
		{SessionIdentity: "second@platform"},
		{SessionIdentity: "third@platform"},
	}

	pseudonyms := pseudonymsByIdentity(members)
	require.Equal(t, "Student 1", pseudonyms["first@platform"])
	require.Equal(t, "Student 2", pseudonyms["second@platform"])
	require.Equal(t, "Student 3", pseudonyms["third@platform"])
}
