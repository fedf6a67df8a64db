// Package storage persists ring schedules and mute windows.
//
// Drivers:
//   - "sqlite":   SQLite file through sqlx (modernc.org/sqlite, no cgo)
//   - "postgres": PostgreSQL through sqlx (lib/pq)
//   - "file":     a single JSON snapshot rewritten atomically on every change
//   - "memory":   process-lifetime maps, used by tests and dry runs
package storage
