package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{"username": "alice", "password": "secret"}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", payload)
	require.NoError(t, env.Auth.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "alice", created.Username)
	require.Equal(t, "user", created.Role)
	require.NotContains(t, rec.Body.String(), "password_hash")

	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/login", payload)
	require.NoError(t, env.Auth.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IsAdmin      bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.False(t, resp.IsAdmin)

	cookies := rec.Result().Cookies()
	names := make(map[string]bool, len(cookies))
	for _, ck := range cookies {
		names[ck.Name] = true
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	require.Len(t, env.Events.byType("user_registered"), 1)
	require.Len(t, env.Events.byType("user_logged_in"), 1)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("alice", "user")

	payload := map[string]string{"username": "alice", "password": "secret"}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", payload)
	err := env.Auth.Register(c)
	require.Equal(t, http.StatusConflict, httpCode(t, err))
}

func TestRegisterMissingFields(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{"username": "alice"})
	err := env.Auth.Register(c)
	require.Equal(t, http.StatusBadRequest, httpCode(t, err))
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("alice", "user")

	payload := map[string]string{"username": "alice", "password": "wrong"}
	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", payload)
	err := env.Auth.Login(c)
	require.Equal(t, http.StatusUnauthorized, httpCode(t, err))
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("alice", "user")

	payload := map[string]string{"username": "alice", "password": "password"}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", payload)
	require.NoError(t, env.Auth.Login(c))

	var resp struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	ck := &http.Cookie{Name: "refreshToken", Value: resp.RefreshToken, Path: "/"}
	rec, c = env.doJSONRequest(http.MethodPost, "/api/v1/logout", nil, ck)
	require.NoError(t, env.Auth.Logout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.RefreshToken
	require.NoError(t, env.DB.Where("token = ?", resp.RefreshToken).First(&stored).Error)
	require.True(t, stored.Revoked)
}
