package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stocksync/internal/model"
)

// parkedPrefix marks a number moved aside during reconcile.
const parkedPrefix = "~parked~"

// SQLite is a Store backed by an embedded SQLite database.
// Amounts are stored as fixed two-place TEXT and dates as yyyy-mm-dd.
type SQLite struct {
	cfg    Config
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewSQLite creates an SQLite store. The store takes ownership of db.
func NewSQLite(cfg Config, db *sql.DB, logger *slog.Logger) (*SQLite, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLite{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}, nil
}

// InitSchema creates the stock table if missing.
func (s *SQLite) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			number       TEXT UNIQUE NOT NULL,
			order_number TEXT NOT NULL PRIMARY KEY,
			cost_usd     TEXT,
			supply_date  TEXT,
			cost_rub     TEXT,
			keep_it      INTEGER NOT NULL DEFAULT 0
		)
	`, s.cfg.Table))
	if err != nil {
		return persistenceError("create table "+s.cfg.Table, err)
	}
	return nil
}

// Reconcile sweeps stale rows and upserts records in one transaction.
func (s *SQLite) Reconcile(ctx context.Context, records []model.Record) error {
	res, err := s.reconcile(ctx, records)

	s.mu.Lock()
	s.metrics.record(res, err)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("reconcile failed", "error", err, "count", len(records))
		return err
	}

	s.logger.Info("reconciled",
		"table", s.cfg.Table,
		"upserted", res.Upserted,
		"deleted", res.Deleted,
		"batches", res.Batches,
		"duration", res.Duration,
	)
	return nil
}

func (s *SQLite) reconcile(ctx context.Context, records []model.Record) (ReconcileResult, error) {
	start := time.Now()
	var res ReconcileResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, persistenceError("begin transaction", err)
	}
	defer tx.Rollback()

	for chunk := range slices.Chunk(records, s.cfg.BatchSize) {
		if err := s.mark(ctx, tx, chunk); err != nil {
			return res, persistenceError("mark records", err)
		}
	}

	result, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE keep_it = 0`, s.cfg.Table))
	if err != nil {
		return res, persistenceError("delete stale records", err)
	}
	res.Deleted, _ = result.RowsAffected()

	// SQLite checks UNIQUE per row, so survivors give up their numbers
	// before the batch reassigns them. Parked values are longer than any
	// valid number and unique by order reference.
	park := fmt.Sprintf(`UPDATE %s SET number = '%s' || order_number`, s.cfg.Table, parkedPrefix)
	if _, err := tx.ExecContext(ctx, park); err != nil {
		return res, persistenceError("park numbers", err)
	}

	for chunk := range slices.Chunk(records, s.cfg.BatchSize) {
		n, err := s.upsert(ctx, tx, chunk)
		res.Upserted += n
		res.Batches++
		if err != nil {
			return res, persistenceError("upsert records", err)
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET keep_it = 0`, s.cfg.Table)); err != nil {
		return res, persistenceError("reset keep_it", err)
	}

	if err := tx.Commit(); err != nil {
		return res, persistenceError("commit", err)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// mark flags the stored rows of one chunk as retained.
func (s *SQLite) mark(ctx context.Context, tx *sql.Tx, chunk []model.Record) error {
	query := fmt.Sprintf(`UPDATE %s SET keep_it = 1 WHERE order_number IN (%s)`,
		s.cfg.Table, placeholders(len(chunk), 1))
	args := make([]any, len(chunk))
	for i, r := range chunk {
		args[i] = r.OrderReference
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// upsert writes one chunk as a single multi-row statement.
func (s *SQLite) upsert(ctx context.Context, tx *sql.Tx, chunk []model.Record) (int64, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (number, order_number, cost_usd, supply_date, cost_rub, keep_it)
		VALUES %s
		ON CONFLICT (order_number) DO UPDATE SET
			number = excluded.number,
			cost_usd = excluded.cost_usd,
			supply_date = excluded.supply_date,
			cost_rub = excluded.cost_rub,
			keep_it = 1
	`, s.cfg.Table, placeholders(len(chunk), 5))

	args := make([]any, 0, len(chunk)*5)
	for _, r := range chunk {
		args = append(args,
			r.ID,
			r.OrderReference,
			r.AmountSource.StringFixed(2),
			r.SupplyDate.Format(time.DateOnly),
			r.AmountConverted.StringFixed(2),
		)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("orders %s..%s: %w", chunk[0].OrderReference, chunk[len(chunk)-1].OrderReference, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// placeholders renders rows groups for a VALUES or IN list. A group of one
// column is a bare "?"; wider groups are "(?, ?, ..., 1)" with keep_it set.
func placeholders(rows, cols int) string {
	var b strings.Builder
	for i := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		if cols == 1 {
			b.WriteString("?")
			continue
		}
		b.WriteString("(")
		b.WriteString(strings.Repeat("?, ", cols))
		b.WriteString("1)")
	}
	return b.String()
}

// Records returns all stored records ordered by order reference.
func (s *SQLite) Records(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT number, order_number, cost_usd, supply_date, cost_rub, keep_it
		FROM %s
		ORDER BY order_number
	`, s.cfg.Table))
	if err != nil {
		return nil, persistenceError("query records", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			r              model.Record
			usd, date, rub string
		)
		if err := rows.Scan(&r.ID, &r.OrderReference, &usd, &date, &rub, &r.Retain); err != nil {
			return nil, persistenceError("scan record", err)
		}
		if r.AmountSource, err = decimal.NewFromString(usd); err != nil {
			return nil, persistenceError("parse cost_usd of "+r.OrderReference, err)
		}
		if r.AmountConverted, err = decimal.NewFromString(rub); err != nil {
			return nil, persistenceError("parse cost_rub of "+r.OrderReference, err)
		}
		if r.SupplyDate, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, persistenceError("parse supply_date of "+r.OrderReference, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate records", err)
	}
	return records, nil
}

// Ping checks the database handle.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() {
	s.db.Close()
}

// Stats returns cumulative counters.
func (s *SQLite) Stats() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
