package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/dmitrijs2005/daykeeper/internal/server/config"
	"github.com/dmitrijs2005/daykeeper/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *storage.InMemoryStorage) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	store := storage.NewInMemoryStorage()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	srv := httptest.NewServer(NewRouter(store, cfg, logger))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func registerUser(t *testing.T, srv *httptest.Server, username string) tokenResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/v1/auth/register", "",
		map[string]string{"username": username, "password": "pass123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	return tokens
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := getJSON(t, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/v1/auth/register", "",
		map[string]string{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "alice", "password": "pass123"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "nobody", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefresh_RotatesToken(t *testing.T) {
	srv, _ := newTestServer(t)
	tokens := registerUser(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/v1/auth/refresh", "",
		map[string]string{"refreshToken": tokens.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated tokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	// The old refresh token is revoked.
	resp = postJSON(t, srv.URL+"/api/v1/auth/refresh", "",
		map[string]string{"refreshToken": tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSync_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := getJSON(t, srv.URL+"/api/v1/sync/pull?type=todo", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/v1/sync/pull?type=todo", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSync_PushThenPull(t *testing.T) {
	srv, _ := newTestServer(t)
	tokens := registerUser(t, srv, "alice")

	payload := fmt.Sprintf(`{"id":"todo-1","title":"buy milk","updatedAt":%q}`,
		time.Now().UTC().Format(time.RFC3339Nano))
	resp := postJSON(t, srv.URL+"/api/v1/sync/push", tokens.AccessToken, map[string]any{
		"entityType": "todo",
		"entityId":   "todo-1",
		"op":         "create",
		"payload":    json.RawMessage(payload),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pushed pushResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pushed))
	assert.False(t, pushed.SyncedAt.IsZero())

	resp = getJSON(t, srv.URL+"/api/v1/sync/pull?type=todo", tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pulled pullResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pulled))
	require.Len(t, pulled.Records, 1)
	assert.Equal(t, "todo-1", pulled.Records[0].ID)
	assert.False(t, pulled.ServerTime.IsZero())

	// Pulling with the returned server time as cursor yields nothing new.
	since := pulled.ServerTime.Format(time.RFC3339Nano)
	resp = getJSON(t, srv.URL+"/api/v1/sync/pull?type=todo&since="+since, tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pulled))
	assert.Empty(t, pulled.Records)
}

func TestSync_PushUnknownEntityTypeRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	tokens := registerUser(t, srv, "alice")

	resp := postJSON(t, srv.URL+"/api/v1/sync/push", tokens.AccessToken, map[string]any{
		"entityType": "contact",
		"entityId":   "c1",
		"op":         "create",
		"payload":    json.RawMessage(`{}`),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSync_UsersAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := registerUser(t, srv, "alice")
	bob := registerUser(t, srv, "bob")

	resp := postJSON(t, srv.URL+"/api/v1/sync/push", alice.AccessToken, map[string]any{
		"entityType": "todo",
		"entityId":   "todo-1",
		"op":         "create",
		"payload":    json.RawMessage(`{"id":"todo-1"}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/api/v1/sync/pull?type=todo", bob.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pulled pullResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pulled))
	assert.Empty(t, pulled.Records)
}

func TestAuthRateLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	// The default burst is 10; hammering past it must trip the limiter.
	limited := false
	for i := 0; i < 30; i++ {
		resp := postJSON(t, srv.URL+"/api/v1/auth/login", "",
			map[string]string{"username": "x", "password": "y"})
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
