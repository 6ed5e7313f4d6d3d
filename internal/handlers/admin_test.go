package handlers

import (
	"net/http"
	"testing"
	"time"

	"binbird-backend/internal/middleware"
	"binbird-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "ops-1",
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func (f *apiFixture) deleteAs(token, path string) int {
	f.t.Helper()
	req, err := http.NewRequest(http.MethodDelete, f.server.URL+path, nil)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.newClient().Do(req)
	require.NoError(f.t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestResetDeviceRun(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.do(f.client, http.MethodPost, "/api/runs/plan", planBody(), nil))
	require.Equal(t, http.StatusOK, f.do(f.client, http.MethodPost, "/api/runs/start", nil, nil))

	device := f.cookie(f.client, middleware.DeviceCookie)
	require.NotNil(t, device)
	path := "/api/admin/devices/" + device.Value + "/run"

	assert.Equal(t, http.StatusUnauthorized, f.deleteAs("", path))
	assert.Equal(t, http.StatusForbidden, f.deleteAs(bearer(t, "driver"), path))
	assert.Equal(t, http.StatusBadRequest, f.deleteAs(bearer(t, "admin"), "/api/admin/devices/not-a-uuid/run"))

	var menu models.RunMenuState
	require.Equal(t, http.StatusOK, f.do(f.client, http.MethodGet, "/api/runs/menu", nil, &menu))
	require.True(t, menu.LockNavigation)

	require.Equal(t, http.StatusOK, f.deleteAs(bearer(t, "admin"), path))

	// The browser session copy is gone too, not only the durable one
	require.Equal(t, http.StatusOK, f.do(f.client, http.MethodGet, "/api/runs/menu", nil, &menu))
	assert.Equal(t, models.RunMenuState{}, menu)
	assert.Equal(t, http.StatusNotFound, f.do(f.client, http.MethodPost, "/api/runs/jobs/0/complete", nil, nil))
}

func TestResetDeviceRun_LeavesOtherDevices(t *testing.T) {
	f := newAPIFixture(t)
	require.Equal(t, http.StatusCreated, f.do(f.client, http.MethodPost, "/api/runs/plan", planBody(), nil))

	require.Equal(t, http.StatusOK, f.deleteAs(bearer(t, "admin"), "/api/admin/devices/"+uuid.NewString()+"/run"))

	var menu models.RunMenuState
	require.Equal(t, http.StatusOK, f.do(f.client, http.MethodGet, "/api/runs/menu", nil, &menu))
	assert.True(t, menu.HasPlannedRun)
}
