// Package cli provides the interactive daykeeper command-line client.
//
// It wires configuration, local storage, the sync engine and an interactive
// REPL that works identically online and offline: every write lands in the
// local store first, a queued change records it for the server, and the
// background sync loop delivers it when connectivity allows.
//
// Key features:
//   - Register / Login (offline use keeps working when the server is down)
//   - Todos, expenses and calendar events, fully usable offline
//   - Day agenda merged across sources with duplicate collapsing
//   - Advisory overlap warning when scheduling an event
//   - Device-calendar mirroring and manual sync
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
