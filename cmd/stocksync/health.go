package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/stocksync/internal/model"
	"github.com/rickgao/stocksync/internal/poller"
	"github.com/rickgao/stocksync/internal/rates"
	"github.com/rickgao/stocksync/internal/syncer"
	"github.com/rickgao/stocksync/internal/version"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type syncService interface {
	Refresh(ctx context.Context) error
	Status() syncer.Status
}

type pollerStats interface {
	Stats() poller.Stats
	Checkpoint() model.ChangeToken
}

type rateStats interface {
	CacheStats() rates.CacheStats
	Fetches() int64
}

// newHealthHandler serves /health and the manual POST /sync trigger.
func newHealthHandler(db pinger, svc syncService, watcher pollerStats, resolver rateStats, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Build      version.Info   `json:"build"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Build:      version.Get(),
			Components: make(map[string]any),
		}

		// Check database
		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}

		status := svc.Status()
		health.Components["sync"] = status
		if status.LastError != "" && health.Status == "healthy" {
			health.Status = "degraded"
		}

		health.Components["poller"] = map[string]any{
			"checkpoint": watcher.Checkpoint(),
			"stats":      watcher.Stats(),
		}

		health.Components["rates"] = map[string]any{
			"fetches": resolver.Fetches(),
			"cache":   resolver.CacheStats(),
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("POST /sync", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		err := svc.Refresh(r.Context())
		switch {
		case errors.Is(err, syncer.ErrRefreshInFlight):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		case err != nil:
			logger.Warn("manual sync failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		default:
			json.NewEncoder(w).Encode(svc.Status())
		}
	})

	return mux
}
