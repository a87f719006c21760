package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
)

// seedDashboardActivity builds a configured activity with two members and
// one conversation, and returns a live dashboard token for it.
func seedDashboardActivity(t *testing.T, fx appFixture, chatVisibility bool, operatorIdentity string) (models.Activity, string) {
	t.Helper()

	activity := models.Activity{
		PlacementID:    "placement-1",
		Name:           "Algebra Helpers",
		OwnerIdentity:  "prof@platform",
		ChatVisibility: chatVisibility,
		Status:         models.ActivityStatusActive,
	}
	require.NoError(t, fx.db.Create(&activity).Error)

	assistant := models.Assistant{Name: "Math Helper", PublishedName: "math-helper", LTISecret: "s1"}
	require.NoError(t, fx.db.Create(&assistant).Error)
	require.NoError(t, fx.db.Create(&models.ActivityAssistantLink{ActivityID: activity.ID, AssistantID: assistant.ID}).Error)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	members := []models.ActivityMember{
		{ActivityID: activity.ID, LMSUserID: "42", SessionIdentity: "ada_placement-1@platform.test", CreatedAt: base},
		{ActivityID: activity.ID, LMSUserID: "43", SessionIdentity: "bob_placement-1@platform.test", CreatedAt: base.Add(time.Minute)},
	}
	for i := range members {
		require.NoError(t, fx.db.Create(&members[i]).Error)
	}

	conversation := models.Conversation{
		AssistantID:     assistant.ID,
		AccountIdentity: members[0].SessionIdentity,
		MessageCount:    2,
	}
	require.NoError(t, fx.db.Create(&conversation).Error)

	token, err := fx.tokens.Issue(context.Background(), tokenstore.Payload{
		Class:            tokenstore.ClassDashboard,
		PlacementID:      activity.PlacementID,
		ActivityID:       activity.ID,
		LMSUserID:        "7",
		Role:             "instructor",
		OperatorIdentity: operatorIdentity,
	}, 30*time.Minute)
	require.NoError(t, err)

	return activity, token
}

func decodeAPIData(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestDashboardPageShowsReconfigureForOwnerOnly(t *testing.T) {
	fx := setupApp(t)
	_, ownerToken := seedDashboardActivity(t, fx, true, "prof@platform")

	resp := get(t, fx.app, "/lti/dashboard?token="+ownerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := readBody(t, resp)
	require.Contains(t, page, "Algebra Helpers")
	require.Contains(t, page, "setup?token=")

	// A non-owner instructor sees the dashboard without the affordance.
	otherToken, err := fx.tokens.Issue(context.Background(), tokenstore.Payload{
		Class:      tokenstore.ClassDashboard,
		ActivityID: 1,
		LMSUserID:  "8",
		Role:       "instructor",
	}, 30*time.Minute)
	require.NoError(t, err)

	resp = get(t, fx.app, "/lti/dashboard?token="+otherToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotContains(t, readBody(t, resp), "setup?token=")
}

func TestDashboardPageRejectsBadToken(t *testing.T) {
	fx := setupApp(t)

	resp := get(t, fx.app, "/lti/dashboard?token=feedfacefeedfacefeedfacefeedface")
	require.Equal(t, http.StatusGone, resp.StatusCode)

	resp = get(t, fx.app, "/lti/dashboard")
	require.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestDashboardAPIRequiresToken(t *testing.T) {
	fx := setupApp(t)
	seedDashboardActivity(t, fx, true, "prof@platform")

	resp := get(t, fx.app, "/api/v1/dashboard/summary")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Setup-class tokens do not open the dashboard API.
	setupToken, err := fx.tokens.Issue(context.Background(), tokenstore.Payload{
		Class:       tokenstore.ClassSetup,
		PlacementID: "placement-1",
		LMSUserID:   "7",
	}, 10*time.Minute)
	require.NoError(t, err)

	resp = get(t, fx.app, "/api/v1/dashboard/summary?token="+setupToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDashboardAPISummaryAndMembers(t *testing.T) {
	fx := setupApp(t)
	_, token := seedDashboardActivity(t, fx, true, "prof@platform")

	resp := get(t, fx.app, "/api/v1/dashboard/summary?token="+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		ActivityName      string `json:"activity_name"`
		MemberCount       int    `json:"member_count"`
		ConversationCount int    `json:"conversation_count"`
	}
	decodeAPIData(t, resp, &summary)
	require.Equal(t, "Algebra Helpers", summary.ActivityName)
	require.Equal(t, 2, summary.MemberCount)
	require.Equal(t, 1, summary.ConversationCount)

	resp = get(t, fx.app, "/api/v1/dashboard/members?token="+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var members struct {
		Items []struct {
			Pseudonym string `json:"pseudonym"`
		} `json:"items"`
	}
	decodeAPIData(t, resp, &members)
	require.Len(t, members.Items, 2)
	require.Equal(t, "Student 1", members.Items[0].Pseudonym)
	require.Equal(t, "Student 2", members.Items[1].Pseudonym)
}

func TestDashboardAPIConversationsHonorVisibility(t *testing.T) {
	fx := setupApp(t)
	_, token := seedDashboardActivity(t, fx, false, "prof@platform")

	resp := get(t, fx.app, "/api/v1/dashboard/conversations?token="+token)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The summary remains readable with visibility off.
	resp = get(t, fx.app, "/api/v1/dashboard/summary?token="+token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDashboardAPITranscript(t *testing.T) {
	fx := setupApp(t)
	_, token := seedDashboardActivity(t, fx, true, "prof@platform")

	var conversation models.Conversation
	require.NoError(t, fx.db.First(&conversation).Error)
	messages := []models.ConversationMessage{
		{ConversationID: conversation.ID, Role: models.MessageRoleUser, Content: "hello"},
		{ConversationID: conversation.ID, Role: models.MessageRoleAssistant, Content: "hi there"},
	}
	for i := range messages {
		require.NoError(t, fx.db.Create(&messages[i]).Error)
	}

	resp := get(t, fx.app, fmt.Sprintf("/api/v1/dashboard/conversations/%d?token=%s", conversation.ID, token))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var transcript struct {
		Pseudonym string `json:"pseudonym"`
		Messages  []struct {
			Speaker string `json:"speaker"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	decodeAPIData(t, resp, &transcript)
	require.Equal(t, "Student 1", transcript.Pseudonym)
	require.Len(t, transcript.Messages, 2)
	require.Equal(t, "Student 1", transcript.Messages[0].Speaker)
	require.Equal(t, "Math Helper", transcript.Messages[1].Speaker)

	// Conversations outside the activity read as not found.
	resp = get(t, fx.app, "/api/v1/dashboard/conversations/9999?token="+token)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
