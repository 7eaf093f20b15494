// Package common defines shared constants and sentinel errors used across
// client and server layers of DayKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// Sync transport outcomes. ErrOffline means no connectivity at all,
	// ErrTransient a failure worth retrying, ErrRejected a permanent remote
	// rejection that must not be retried.
	ErrOffline   = errors.New("offline")
	ErrTransient = errors.New("transient remote failure")
	ErrRejected  = errors.New("rejected by remote")

	// Validation errors.
	ErrInvalidTimeRange = errors.New("event end time before start time")
	ErrUnknownEntity    = errors.New("unknown entity type")

	// ErrAlreadyExists signals a uniqueness violation, e.g. a taken username.
	ErrAlreadyExists = errors.New("already exists")

	// Mirror guard errors.
	ErrMirrorRunning  = errors.New("mirror already running")
	ErrMirrorCooldown = errors.New("mirror ran too recently")

	// ErrPermissionDenied signals that an external calendar provider refused
	// access. Mirroring treats it as "nothing to mirror", not a failure.
	ErrPermissionDenied = errors.New("permission denied")

	// Token lifecycle errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
