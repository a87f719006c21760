package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lti-bridge-api/internal/models"
)

func postJSON(t *testing.T, fx appFixture, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://"+testLaunchHost+path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestAdminTransferEndpoint(t *testing.T) {
	fx := setupApp(t)

	activity := models.Activity{
		PlacementID:   "placement-1",
		Name:          "Algebra Helpers",
		OwnerIdentity: "old@platform",
		Status:        models.ActivityStatusActive,
	}
	require.NoError(t, fx.db.Create(&activity).Error)

	resp := postJSON(t, fx, "/api/v1/admin/activities/1/transfer", `{"owner_identity":"new@platform"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stored models.Activity
	require.NoError(t, fx.db.First(&stored, activity.ID).Error)
	require.Equal(t, "new@platform", stored.OwnerIdentity)
}

func TestAdminTransferEndpointErrors(t *testing.T) {
	fx := setupApp(t)

	resp := postJSON(t, fx, "/api/v1/admin/activities/999/transfer", `{"owner_identity":"new@platform"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, fx, "/api/v1/admin/activities/0/transfer", `{"owner_identity":"new@platform"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, fx, "/api/v1/admin/activities/1/transfer", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, fx, "/api/v1/admin/activities/1/transfer", `not-json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
