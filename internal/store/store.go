package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/rickgao/stocksync/internal/model"
)

// Store is a durable table of stock records keyed by order reference.
type Store interface {
	// InitSchema creates the table if it does not exist.
	InitSchema(ctx context.Context) error
	// Reconcile makes the stored set equal to records.
	Reconcile(ctx context.Context, records []model.Record) error
	// Records returns all stored records ordered by order reference.
	Records(ctx context.Context) ([]model.Record, error)
	Ping(ctx context.Context) error
	Close()
}

// Config holds store configuration.
type Config struct {
	Table     string // Table name (default: stock)
	BatchSize int    // Upserts per round trip (default: 100)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:     "stock",
		BatchSize: 100,
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func (c Config) validate() error {
	if !identRe.MatchString(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// ReconcileResult describes one reconciliation pass.
type ReconcileResult struct {
	Upserted int64
	Deleted  int64
	Batches  int64 // Upsert round trips
	Duration time.Duration
}

// Metrics holds cumulative store counters.
type Metrics struct {
	Reconciles int64
	Upserts    int64
	Deletes    int64
	Batches    int64
	Errors     int64
}

func (m *Metrics) record(res ReconcileResult, err error) {
	if err != nil {
		m.Errors++
		return
	}
	m.Reconciles++
	m.Upserts += res.Upserted
	m.Deletes += res.Deleted
	m.Batches += res.Batches
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}

func orderRefs(records []model.Record) []string {
	refs := make([]string, len(records))
	for i, r := range records {
		refs[i] = r.OrderReference
	}
	return refs
}
