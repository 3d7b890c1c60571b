// Package storage keeps a history of task runs. It is not schedule persistence:
// schedules always come from registration and configuration.
//
// Drivers:
//   - "file": append-only JSON Lines
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
package storage
