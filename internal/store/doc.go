// Package store persists stock records with mark-and-sweep reconciliation.
//
// Backends:
//   - Postgres (pgx pool, production)
//   - SQLite (database/sql over modernc.org/sqlite, local runs and tests)
//
// Reconcile runs in a single transaction:
//  1. mark stored rows whose order reference is in the batch (keep_it = TRUE)
//  2. delete rows still marked keep_it = FALSE
//  3. upsert every record in chunks of BatchSize
//  4. reset keep_it to FALSE for the next pass
//
// Sweeping before the upserts frees the unique number of removed orders, so
// a renumbered sheet converges. Numbers swapped between surviving orders are
// checked only at commit (Postgres deferred constraint) or parked on a
// temporary value before the upserts (SQLite).
//
// After a successful Reconcile the table holds exactly the supplied order
// references. A failed Reconcile leaves the previous contents untouched.
package store
