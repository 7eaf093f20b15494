package models

import "time"

// SyncState is the persisted cursor state of the sync loop. It is stored in
// the metadata table and passed explicitly into the loop's entry points, so
// there are no process-wide sync globals and parallel test sessions cannot
// interfere.
type SyncState struct {
	// LastSyncTime is the incremental-pull cursor. It advances on every
	// completed pull, including empty ones, so a quiet period never causes a
	// full re-scan of remote history.
	LastSyncTime time.Time `json:"lastSyncTime"`

	// LastMirrorRun records, per user, when the last wipe-and-replace mirror
	// finished. Used for the mirror cooldown.
	LastMirrorRun map[string]time.Time `json:"lastMirrorRun,omitempty"`
}

// MirrorRanAt returns the time of the last completed mirror for the user,
// or the zero time if it never ran.
func (s SyncState) MirrorRanAt(userID string) time.Time {
	return s.LastMirrorRun[userID]
}

// SetMirrorRan stamps the mirror completion time for the user.
func (s *SyncState) SetMirrorRan(userID string, at time.Time) {
	if s.LastMirrorRun == nil {
		s.LastMirrorRun = make(map[string]time.Time)
	}
	s.LastMirrorRun[userID] = at.UTC()
}
