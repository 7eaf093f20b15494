// Package client contains client-side building blocks for DayKeeper.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) to talk
//     to the DayKeeper backend: Register/Login, Ping, PushChange and Pull.
//  2. A concrete HTTP/JSON implementation (see HTTPClient) that manages a
//     bearer access token, transparently refreshes it once on 401, and maps
//     HTTP status classes to sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations)
//     wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport conditions are exposed as sentinel errors from internal/common
// that callers match with errors.Is: common.ErrOffline (no connectivity),
// common.ErrTransient (worth retrying), common.ErrRejected (permanent remote
// rejection, never retried) and common.ErrUnauthorized.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
