package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/stocksync/internal/model"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	cfg    Config
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu      sync.Mutex
	metrics Metrics
}

// NewPostgres creates a Postgres store. The store takes ownership of pool.
func NewPostgres(cfg Config, pool *pgxpool.Pool, logger *slog.Logger) (*Postgres, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		cfg:    cfg,
		pool:   pool,
		logger: logger,
	}, nil
}

// InitSchema creates the stock table if missing.
func (s *Postgres) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			number       VARCHAR(5) NOT NULL,
			order_number VARCHAR(14) NOT NULL,
			cost_usd     DECIMAL(14,2),
			supply_date  DATE,
			cost_rub     DECIMAL(14,2),
			keep_it      BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (order_number),
			CONSTRAINT %s_number_key UNIQUE (number) DEFERRABLE INITIALLY DEFERRED
		)
	`, s.cfg.Table, s.cfg.Table))
	if err != nil {
		return persistenceError("create table "+s.cfg.Table, err)
	}
	return nil
}

// Reconcile sweeps stale rows and upserts records in one transaction.
func (s *Postgres) Reconcile(ctx context.Context, records []model.Record) error {
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

func (s *Postgres) reconcile(ctx context.Context, records []model.Record) (ReconcileResult, error) {
	start := time.Now()
	var res ReconcileResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, persistenceError("begin transaction", err)
	}
	// No-op after a successful commit.
	defer tx.Rollback(ctx)

	// Mark and sweep before upserting so numbers held by removed orders
	// are free when the batch claims them.
	mark := fmt.Sprintf(`UPDATE %s SET keep_it = TRUE WHERE order_number = ANY($1)`, s.cfg.Table)
	if _, err := tx.Exec(ctx, mark, orderRefs(records)); err != nil {
		return res, persistenceError("mark records", err)
	}

	ct, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE keep_it = FALSE`, s.cfg.Table))
	if err != nil {
		return res, persistenceError("delete stale records", err)
	}
	res.Deleted = ct.RowsAffected()

	// number is checked at commit, so swaps between orders pass.
	upsert := fmt.Sprintf(`
		INSERT INTO %s (number, order_number, cost_usd, supply_date, cost_rub, keep_it)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (order_number) DO UPDATE SET
			number = EXCLUDED.number,
			cost_usd = EXCLUDED.cost_usd,
			supply_date = EXCLUDED.supply_date,
			cost_rub = EXCLUDED.cost_rub,
			keep_it = TRUE
	`, s.cfg.Table)

	for chunk := range slices.Chunk(records, s.cfg.BatchSize) {
		n, err := s.sendUpserts(ctx, tx, upsert, chunk)
		res.Upserted += n
		res.Batches++
		if err != nil {
			return res, persistenceError("upsert records", err)
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET keep_it = FALSE`, s.cfg.Table)); err != nil {
		return res, persistenceError("reset keep_it", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return res, persistenceError("commit", err)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// sendUpserts queues one chunk as a pgx.Batch.
func (s *Postgres) sendUpserts(ctx context.Context, tx pgx.Tx, query string, chunk []model.Record) (int64, error) {
	batch := &pgx.Batch{}
	for _, r := range chunk {
		batch.Queue(query, r.ID, r.OrderReference, r.AmountSource, r.SupplyDate, r.AmountConverted)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	var n int64
	for _, r := range chunk {
		ct, err := results.Exec()
		if err != nil {
			return n, fmt.Errorf("order %s: %w", r.OrderReference, err)
		}
		n += ct.RowsAffected()
	}
	return n, nil
}

// Records returns all stored records ordered by order reference.
func (s *Postgres) Records(ctx context.Context) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
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
		var r model.Record
		if err := rows.Scan(&r.ID, &r.OrderReference, &r.AmountSource, &r.SupplyDate, &r.AmountConverted, &r.Retain); err != nil {
			return nil, persistenceError("scan record", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate records", err)
	}
	return records, nil
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Stats returns cumulative counters.
func (s *Postgres) Stats() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
