// Package janitor runs the background retention loop: the same
// cleanups the ops endpoints expose, applied on a schedule so nobody
// has to remember to call them.
package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/storage"
)

// Janitor periodically soft-deletes inactive users, purges stale route
// cache entries, and drops expired weather/POI cache rows.
type Janitor struct {
	storage  storage.Storage
	log      *slog.Logger
	interval time.Duration

	inactiveUsers time.Duration
	routeMaxAge   time.Duration
}

// New builds a janitor from configuration. Run must still be called.
func New(st storage.Storage, log *slog.Logger, cfg config.Janitor) *Janitor {
	return &Janitor{
		storage:       st,
		log:           log,
		interval:      cfg.Interval,
		inactiveUsers: time.Duration(cfg.InactiveUserDays) * 24 * time.Hour,
		routeMaxAge:   time.Duration(cfg.RouteRetentionDay) * 24 * time.Hour,
	}
}

// Run executes one pass immediately, then one per interval until ctx
// is cancelled. An interval of 0 disables the loop entirely. Intended
// to be launched as a goroutine from main.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info("janitor disabled")
		return
	}

	j.log.Info("janitor started", slog.Duration("interval", j.interval))

	// First pass right away: a server that was down for a week should
	// not wait another hour to catch up.
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return
		}
	}
}

// sweep runs every cleanup once. Each is independent: one failing does
// not stop the others, it is just logged and retried next pass.
func (j *Janitor) sweep(ctx context.Context) {
	start := time.Now()

	users, err := j.storage.CleanupInactiveUsers(ctx, j.inactiveUsers)
	if err != nil {
		j.log.Error("janitor: user cleanup failed", slog.String("error", err.Error()))
	}

	routes, err := j.storage.CleanupOldRoutes(ctx, j.routeMaxAge)
	if err != nil {
		j.log.Error("janitor: route cleanup failed", slog.String("error", err.Error()))
	}

	caches, err := j.storage.PurgeExpiredCaches(ctx)
	if err != nil {
		j.log.Error("janitor: cache purge failed", slog.String("error", err.Error()))
	}

	j.log.Info("janitor sweep completed",
		slog.Int64("inactive_users", users),
		slog.Int64("old_routes", routes),
		slog.Int64("expired_cache_rows", caches),
		slog.Duration("took", time.Since(start)),
	)
}
