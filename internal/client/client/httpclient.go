package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
)

// HTTPClient implements Client over the backend's HTTP/JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTPClient returns an HTTPClient for the given base URL
// (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type pushRequest struct {
	EntityType models.EntityType `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Op         models.Operation  `json:"op"`
	Payload    json.RawMessage   `json:"payload"`
}

type pushResponse struct {
	SyncedAt time.Time `json:"syncedAt"`
}

type pullResponse struct {
	Records    []RemoteRecord `json:"records"`
	ServerTime time.Time      `json:"serverTime"`
}

// Register creates a new account.
func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register",
		credentialsRequest{Username: username, Password: password}, nil, false)
}

// Login authenticates and stores the token pair for subsequent requests.
func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var tokens tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login",
		credentialsRequest{Username: username, Password: password}, &tokens, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

// Ping probes server reachability. Used by the online status watcher.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil, false)
}

// PushChange transmits a single queued change.
func (c *HTTPClient) PushChange(ctx context.Context, change models.Change) (time.Time, error) {
	req := pushRequest{
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		Op:         change.Op,
		Payload:    change.Payload,
	}

	var resp pushResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/sync/push", req, &resp, true); err != nil {
		return time.Time{}, err
	}
	return resp.SyncedAt, nil
}

// Pull fetches remote records of the given type changed after since.
func (c *HTTPClient) Pull(ctx context.Context, entityType models.EntityType, since time.Time) ([]RemoteRecord, time.Time, error) {
	q := url.Values{}
	q.Set("type", string(entityType))
	q.Set("since", since.UTC().Format(time.RFC3339Nano))

	var resp pullResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/sync/pull?"+q.Encode(), nil, &resp, true)
	if err != nil {
		return nil, time.Time{}, err
	}
	return resp.Records, resp.ServerTime, nil
}

// doJSON performs one request, refreshing the access token once when the
// server answers 401 with a refresh token on hand (same pattern as an
// interceptor-based retry).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any, authed bool) error {
	status, err := c.attempt(ctx, method, path, in, out, authed)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		if err := c.refresh(ctx); err != nil {
			return err
		}
		status, err = c.attempt(ctx, method, path, in, out, authed)
		if err != nil {
			return err
		}
	}

	return mapStatus(status)
}

func (c *HTTPClient) attempt(ctx context.Context, method, path string, in, out any, authed bool) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		c.mu.Lock()
		token := c.accessToken
		c.mu.Unlock()
		req.Header.Set(common.AuthorizationHeader, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection-level failure: the server is unreachable, not rejecting.
		return 0, fmt.Errorf("%w: %v", common.ErrOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	token := c.refreshToken
	c.mu.Unlock()

	if token == "" {
		return common.ErrUnauthorized
	}

	var tokens tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/refresh",
		map[string]string{"refreshToken": token}, &tokens, false)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.mu.Unlock()
	return nil
}

// mapStatus translates an HTTP status class into the sentinel error the sync
// engine keys retry decisions on.
func mapStatus(status int) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.ErrUnauthorized
	case status >= 500 || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", common.ErrTransient, status)
	default:
		// 4xx: the server understood the request and said no. Retrying an
		// identical payload cannot succeed.
		return fmt.Errorf("%w: status %d", common.ErrRejected, status)
	}
}
