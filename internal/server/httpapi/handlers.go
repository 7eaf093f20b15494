package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/dmitrijs2005/daykeeper/internal/server/auth"
	"github.com/dmitrijs2005/daykeeper/internal/server/config"
	"github.com/dmitrijs2005/daykeeper/internal/server/models"
	"github.com/dmitrijs2005/daykeeper/internal/server/storage"
	"github.com/google/uuid"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	store  storage.Storage
	config *config.Config
	logger logging.Logger
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Health answers liveness probes and client reachability pings.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register creates an account and returns a token pair.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			http.Error(w, "username taken", http.StatusConflict)
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.issueTokens(w, r, user.ID)
}

// Login verifies credentials and returns a token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.serverError(w, r, err)
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	h.issueTokens(w, r, user.ID)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	stored, err := h.store.GetRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			http.Error(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.serverError(w, r, err)
		return
	}

	if err := h.store.DeleteRefreshToken(r.Context(), req.RefreshToken); err != nil {
		h.serverError(w, r, err)
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		http.Error(w, "refresh token expired", http.StatusUnauthorized)
		return
	}

	h.issueTokens(w, r, stored.UserID)
}

func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, userID string) {
	access, err := auth.GenerateToken(userID, []byte(h.config.SecretKey), h.config.AccessTokenValidityDuration)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	refresh := models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(h.config.RefreshTokenValidityDuration),
	}
	if err := h.store.SaveRefreshToken(r.Context(), refresh); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh.Token})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
