// Package services contains the client engine: entity CRUD with
// write-through sync (EntityService), the background push/pull loop with
// per-change backoff (Syncer), calendar reconciliation and external-calendar
// mirroring (CalendarService), and reachability tracking (OnlineWatcher).
package services
