// Package database opens the durable store connections.
//
// Two engines are supported:
//   - PostgreSQL via a pgx connection pool (production)
//   - SQLite via modernc.org/sqlite (local runs and tests, no cgo)
package database
