package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/stocksync/internal/model"
)

// maxPages bounds a single walk of the change log.
const maxPages = 1000

// ChangeFeed exposes a paginated change log.
type ChangeFeed interface {
	// Checkpoint returns the token identifying the current state of the log.
	Checkpoint(ctx context.Context) (model.ChangeToken, error)
	// ListChanges returns the resources changed on the page at token and the
	// next page token, empty when token is the last page.
	ListChanges(ctx context.Context, token model.ChangeToken) ([]model.ResourceID, model.ChangeToken, error)
}

// ChangeHandler is notified when the watched resource changed.
type ChangeHandler interface {
	HandleChange(ctx context.Context) error
}

// ChangeHandlerFunc is a function adapter for ChangeHandler.
type ChangeHandlerFunc func(ctx context.Context) error

func (f ChangeHandlerFunc) HandleChange(ctx context.Context) error {
	return f(ctx)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 30s)
	Timeout  time.Duration // Per-check timeout for change feed calls (default: 20s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  20 * time.Second,
	}
}

// Stats holds poller counters.
type Stats struct {
	Checks        int64
	Changes       int64 // Checks that saw a new checkpoint
	Notifications int64
	Errors        int64
	DroppedTicks  int64
}

// Poller watches one resource through a ChangeFeed.
type Poller struct {
	cfg     Config
	feed    ChangeFeed
	watched model.ResourceID
	handler ChangeHandler
	logger  *slog.Logger

	mu         sync.Mutex
	checkpoint model.ChangeToken
	stats      Stats

	pending atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller watching resource.
func New(cfg Config, feed ChangeFeed, watched model.ResourceID, handler ChangeHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:     cfg,
		feed:    feed,
		watched: watched,
		handler: handler,
		logger:  logger,
	}
}

// Prime saves the current checkpoint. A poller that was never primed saves
// the checkpoint on its first Check instead.
func (p *Poller) Prime(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	token, err := p.FetchCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("prime checkpoint: %w", err)
	}

	p.mu.Lock()
	p.checkpoint = token
	p.mu.Unlock()

	p.logger.Info("change checkpoint saved", "token", token)
	return nil
}

// Checkpoint returns the saved checkpoint.
func (p *Poller) Checkpoint() model.ChangeToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkpoint
}

// RequestRefresh makes the next check notify the handler even if nothing changed.
func (p *Poller) RequestRefresh() {
	p.pending.Store(true)
}

// Pending reports whether a refresh has been requested and not yet delivered.
func (p *Poller) Pending() bool {
	return p.pending.Load()
}

// FetchCheckpoint returns the feed's current checkpoint.
func (p *Poller) FetchCheckpoint(ctx context.Context) (model.ChangeToken, error) {
	return p.feed.Checkpoint(ctx)
}

// FetchChangedResources walks the change log from since to its last page.
func (p *Poller) FetchChangedResources(ctx context.Context, since model.ChangeToken) (map[model.ResourceID]struct{}, error) {
	changed := make(map[model.ResourceID]struct{})

	token := since
	for page := 0; token != ""; page++ {
		if page == maxPages {
			return nil, fmt.Errorf("change log from %s exceeds %d pages", since, maxPages)
		}

		ids, next, err := p.feed.ListChanges(ctx, token)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			changed[id] = struct{}{}
		}

		if next == token {
			return nil, fmt.Errorf("change log did not advance past %s", token)
		}
		token = next
	}

	return changed, nil
}

// Check runs one polling step. The saved checkpoint advances only when the
// change log was read and the handler, if notified, succeeded.
func (p *Poller) Check(ctx context.Context) error {
	saved := p.Checkpoint()

	p.mu.Lock()
	p.stats.Checks++
	p.mu.Unlock()

	current, notify, err := p.detect(ctx, saved)
	if err != nil {
		p.countError()
		return err
	}

	if notify {
		p.logger.Info("watched resource changed", "resource", p.watched, "token", current)

		p.mu.Lock()
		p.stats.Notifications++
		p.mu.Unlock()

		p.pending.Store(false)
		if err := p.handler.HandleChange(ctx); err != nil {
			p.pending.Store(true)
			p.countError()
			return fmt.Errorf("handle change: %w", err)
		}
	}

	if current != saved {
		p.mu.Lock()
		p.checkpoint = current
		p.mu.Unlock()
	}
	return nil
}

// detect returns the current checkpoint and whether the handler should run.
func (p *Poller) detect(ctx context.Context, saved model.ChangeToken) (model.ChangeToken, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	current, err := p.FetchCheckpoint(ctx)
	if err != nil {
		return "", false, fmt.Errorf("fetch checkpoint: %w", err)
	}

	notify := p.pending.Load()
	if saved == "" || current == saved {
		return current, notify, nil
	}

	p.mu.Lock()
	p.stats.Changes++
	p.mu.Unlock()

	changed, err := p.FetchChangedResources(ctx, saved)
	if err != nil {
		return "", false, fmt.Errorf("fetch changes since %s: %w", saved, err)
	}

	_, ok := changed[p.watched]
	p.logger.Debug("change log read",
		"since", saved,
		"current", current,
		"resources", len(changed),
		"watched_changed", ok,
	)
	return current, notify || ok, nil
}

func (p *Poller) countError() {
	p.mu.Lock()
	p.stats.Errors++
	p.mu.Unlock()
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("change poller started",
		"interval", p.cfg.Interval,
		"resource", p.watched,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("change poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if err := p.Check(p.ctx); err != nil && p.ctx.Err() == nil {
				p.logger.Warn("change check failed", "error", err, "checkpoint", p.Checkpoint())
			}

			// Drop a tick that fired during the check.
			select {
			case <-ticker.C:
				p.mu.Lock()
				p.stats.DroppedTicks++
				p.mu.Unlock()
			default:
			}
		}
	}
}
