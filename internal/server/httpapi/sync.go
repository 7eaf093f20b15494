package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/server/models"
)

type pushRequest struct {
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Op         string          `json:"op"`
	Payload    json.RawMessage `json:"payload"`
}

type pushResponse struct {
	SyncedAt time.Time `json:"syncedAt"`
}

type pullRecord struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type pullResponse struct {
	Records    []pullRecord `json:"records"`
	ServerTime time.Time    `json:"serverTime"`
}

var validEntityTypes = map[string]bool{
	"todo":           true,
	"expense":        true,
	"calendar_event": true,
}

// Push stores one client change. The server keys last-writer-wins on the
// updatedAt inside the payload; a delete op marks the record deleted so
// other clients pull the tombstone.
func (h *Handler) Push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !validEntityTypes[req.EntityType] {
		http.Error(w, "unknown entity type", http.StatusUnprocessableEntity)
		return
	}
	if req.EntityID == "" || len(req.Payload) == 0 {
		http.Error(w, "entity id and payload required", http.StatusUnprocessableEntity)
		return
	}

	var meta struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(req.Payload, &meta); err != nil {
		http.Error(w, "malformed payload", http.StatusUnprocessableEntity)
		return
	}

	now := time.Now().UTC()
	updatedAt := meta.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	rec := models.Record{
		UserID:     UserID(r.Context()),
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Payload:    req.Payload,
		IsDeleted:  req.Op == "delete",
		UpdatedAt:  updatedAt,
	}
	if err := h.store.UpsertRecord(r.Context(), rec); err != nil {
		h.serverError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, pushResponse{SyncedAt: now})
}

// Pull returns the user's records of one type changed strictly after the
// since cursor, plus the server time the client persists as its next cursor.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("type")
	if !validEntityTypes[entityType] {
		http.Error(w, "unknown entity type", http.StatusUnprocessableEntity)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "invalid since timestamp", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	records, err := h.store.ListRecordsSince(r.Context(), UserID(r.Context()), entityType, since)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	resp := pullResponse{ServerTime: time.Now().UTC(), Records: make([]pullRecord, 0, len(records))}
	for _, rec := range records {
		resp.Records = append(resp.Records, pullRecord{
			ID:        rec.EntityID,
			Payload:   rec.Payload,
			UpdatedAt: rec.UpdatedAt,
		})
	}

	h.writeJSON(w, r, http.StatusOK, resp)
}
