package syncer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stocksync/internal/model"
	"github.com/rickgao/stocksync/internal/store"
	"github.com/rickgao/stocksync/internal/transform"
)

// ErrRefreshInFlight is returned when a refresh is requested while one is running.
var ErrRefreshInFlight = errors.New("refresh already in flight")

// RowSource provides the current spreadsheet rows, header excluded.
type RowSource interface {
	Rows(ctx context.Context) ([]model.RawRow, error)
}

// Transformer turns raw rows into records.
type Transformer interface {
	Transform(ctx context.Context, rows []model.RawRow) iter.Seq2[model.Record, error]
}

// Watcher detects spreadsheet changes and calls back into the Orchestrator.
type Watcher interface {
	Prime(ctx context.Context) error
	RequestRefresh()
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Status describes the most recent refresh.
type Status struct {
	SyncID    string    `json:"sync_id,omitempty"`
	LastSync  time.Time `json:"last_sync,omitzero"`
	LastError string    `json:"last_error,omitempty"`
	Records   int       `json:"records"`
	Syncs     int64     `json:"syncs"`
	Failures  int64     `json:"failures"`
	Running   bool      `json:"running"`
}

// Orchestrator wires the row source, transformer and store.
type Orchestrator struct {
	source      RowSource
	transformer Transformer
	store       store.Store
	logger      *slog.Logger

	watcher Watcher

	// refreshMu guards against concurrent refreshes; it is only ever TryLocked.
	refreshMu sync.Mutex

	statusMu sync.Mutex
	status   Status
}

// New creates an Orchestrator.
func New(source RowSource, transformer Transformer, st store.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		source:      source,
		transformer: transformer,
		store:       st,
		logger:      logger,
	}
}

// Start prepares the store, saves the change checkpoint, runs the baseline
// sync and starts the watcher. Only store initialisation failures are returned.
func (o *Orchestrator) Start(ctx context.Context, w Watcher) error {
	if err := o.store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	o.watcher = w

	// The checkpoint precedes the baseline read so a concurrent edit is seen on the next tick.
	// Without one such an edit is invisible, so the first tick refreshes unconditionally.
	if err := w.Prime(ctx); err != nil {
		o.logger.Warn("failed to save change checkpoint", "error", err)
		w.RequestRefresh()
	}

	if err := o.Refresh(ctx); err != nil {
		o.logger.Error("baseline sync failed", "error", err)
		w.RequestRefresh()
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	o.logger.Info("orchestrator started")
	return nil
}

// Stop stops the watcher.
func (o *Orchestrator) Stop(ctx context.Context) error {
	if o.watcher == nil {
		return nil
	}
	return o.watcher.Stop(ctx)
}

// HandleChange refreshes the table after the spreadsheet changed.
func (o *Orchestrator) HandleChange(ctx context.Context) error {
	return o.Refresh(ctx)
}

// Refresh pulls the rows, transforms them and reconciles the store.
// Transformation errors abort before anything is written.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	if !o.refreshMu.TryLock() {
		return ErrRefreshInFlight
	}
	defer o.refreshMu.Unlock()

	id := uuid.New().String()
	logger := o.logger.With("sync_id", id)
	start := time.Now()

	o.setRunning(true)
	n, err := o.refresh(ctx)
	o.finish(id, n, err)

	if err != nil {
		logger.Error("sync failed", "error", err, "duration", time.Since(start))
		return err
	}

	logger.Info("sync complete", "records", n, "duration", time.Since(start))
	return nil
}

func (o *Orchestrator) refresh(ctx context.Context) (int, error) {
	rows, err := o.source.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch rows: %w", err)
	}

	records, err := transform.Collect(o.transformer.Transform(ctx, rows))
	if err != nil {
		return 0, fmt.Errorf("transform rows: %w", err)
	}

	if err := o.store.Reconcile(ctx, records); err != nil {
		return 0, fmt.Errorf("reconcile: %w", err)
	}

	return len(records), nil
}

func (o *Orchestrator) setRunning(running bool) {
	o.statusMu.Lock()
	o.status.Running = running
	o.statusMu.Unlock()
}

func (o *Orchestrator) finish(id string, n int, err error) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	o.status.Running = false
	o.status.SyncID = id
	if err != nil {
		o.status.Failures++
		o.status.LastError = err.Error()
		return
	}
	o.status.Syncs++
	o.status.LastSync = time.Now()
	o.status.LastError = ""
	o.status.Records = n
}

// Status returns a snapshot of the most recent refresh.
func (o *Orchestrator) Status() Status {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	return o.status
}
