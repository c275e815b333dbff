// internal/handlers/user_test.go
package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/literature/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUserIssuesGuestToken(t *testing.T) {
	rec := httptest.NewRecorder()
	userID, name, err := EnsureUser(rec, httptest.NewRequest(http.MethodGet, "/user/me", nil))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, userID)
	assert.Equal(t, guestName, name)

	cookie := sessionCookie(rec.Result())
	require.NotEmpty(t, cookie)

	// The same token resolves to the same user without a new cookie.
	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Cookie", cookie)
	rec = httptest.NewRecorder()
	again, _, err := EnsureUser(rec, req)
	require.NoError(t, err)
	assert.Equal(t, userID, again)
	assert.Empty(t, rec.Result().Cookies())
}

func TestEnsureUserAcceptsBearer(t *testing.T) {
	id := uuid.New()
	token, err := auth.CreateJWT(id, "carol")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	MeHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, id.String(), body["id"])
	assert.Equal(t, "carol", body["username"])
}

func TestEnsureUserReplacesBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
	req.Header.Set("Cookie", auth.CookieName+"=garbage")
	rec := httptest.NewRecorder()
	_, _, err := EnsureUser(rec, req)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionCookie(rec.Result()))
}

func TestAccountHandlersNeedDatabase(t *testing.T) {
	_, ts := newTestServer(t)
	for _, path := range []string{"/user/create", "/user/login"} {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(`{"email":"a@b.c","password":"x","username":"a"}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)

		resp, err = http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, path)
	}
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("theme=dark; auth_token=abc; lang=en", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Empty(t, extractCookieToken("theme=dark", "auth_token"))
}
