// main is the entry point of the DaySync API server.
//
// STARTUP SEQUENCE:
//  1. Load configuration (.env / env vars / optional YAML file)
//  2. Initialise the logger
//  3. Connect to the database and create any missing tables
//  4. Build the external clients (assistant, weather)
//  5. Register all HTTP routes and wrap them in middleware
//  6. Start the janitor goroutine and the HTTP server
//  7. Block until an OS signal arrives, then shut down gracefully
//
// RUNNING THE SERVER:
//
//	go run ./cmd/daysync-api                     # env vars / .env
//	go run ./cmd/daysync-api --config=local.yaml # explicit config file
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daysync/daysync-api/internal/assistant"
	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/http/handlers/chat"
	"github.com/daysync/daysync-api/internal/http/handlers/geo"
	"github.com/daysync/daysync-api/internal/http/handlers/notification"
	"github.com/daysync/daysync-api/internal/http/handlers/pattern"
	"github.com/daysync/daysync-api/internal/http/handlers/place"
	"github.com/daysync/daysync-api/internal/http/handlers/preference"
	"github.com/daysync/daysync-api/internal/http/handlers/route"
	"github.com/daysync/daysync-api/internal/http/handlers/schedule"
	"github.com/daysync/daysync-api/internal/http/handlers/system"
	"github.com/daysync/daysync-api/internal/http/handlers/user"
	"github.com/daysync/daysync-api/internal/http/middleware"
	"github.com/daysync/daysync-api/internal/janitor"
	"github.com/daysync/daysync-api/internal/storage/sqldb"
	"github.com/daysync/daysync-api/internal/weather"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	// slog is Go's structured logger. The default logger is replaced so
	// the handler packages' package-level slog calls use it too.
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting daysync-api",
		slog.String("env", cfg.Env),
		slog.String("version", system.Version),
	)

	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// sqldb.New opens MySQL or SQLite depending on the configured driver
	// and creates any missing tables. The rest of the program only sees
	// the storage.Storage interface, never the concrete type.
	storage, err := sqldb.New(cfg)
	if err != nil {
		log.Error("failed to initialise storage",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	log.Info("storage initialised",
		slog.String("driver", cfg.Database.Driver))

	// ── 4. External Clients ───────────────────────────────────────────────
	assistantClient := assistant.New(cfg.Assistant)
	weatherClient := weather.New(cfg.Weather)

	if cfg.Assistant.APIKey == "" {
		log.Warn("no assistant api key configured; /api/ai/chat will answer 502")
	}

	// ── 5. Register HTTP Routes ───────────────────────────────────────────
	router := http.NewServeMux()

	// System
	router.HandleFunc("GET /{$}", system.Root())
	router.HandleFunc("GET /health", system.Health(storage))
	router.HandleFunc("GET /api/info", system.Info())
	router.HandleFunc("GET /test/uuid", system.UUIDTest())

	// Users. cleanup-inactive is registered before {uuid} routes purely
	// for readability; the mux picks the more specific pattern anyway.
	router.HandleFunc("POST /api/users", user.New(storage))
	router.HandleFunc("POST /api/users/cleanup-inactive", user.CleanupInactive(storage))
	router.HandleFunc("GET /api/users/{uuid}", user.Get(storage))
	router.HandleFunc("PUT /api/users/{uuid}", user.Update(storage))
	router.HandleFunc("DELETE /api/users/{uuid}", user.Delete(storage))
	router.HandleFunc("GET /api/users/{uuid}/stats", user.Stats(storage))

	// Schedule: calendar events and alarms
	router.HandleFunc("POST /api/schedule/calendar/events", schedule.CreateEvent(storage))
	router.HandleFunc("GET /api/schedule/calendar/events/{uuid}", schedule.ListEvents(storage))
	router.HandleFunc("PUT /api/schedule/calendar/events/{id}", schedule.UpdateEvent(storage))
	router.HandleFunc("DELETE /api/schedule/calendar/events/{id}", schedule.DeleteEvent(storage))
	router.HandleFunc("POST /api/schedule/alarms", schedule.CreateAlarm(storage))
	router.HandleFunc("GET /api/schedule/alarms/{uuid}", schedule.ListAlarms(storage))
	router.HandleFunc("PUT /api/schedule/alarms/{id}", schedule.UpdateAlarm(storage))
	router.HandleFunc("PUT /api/schedule/alarms/{id}/toggle", schedule.ToggleAlarm(storage))
	router.HandleFunc("DELETE /api/schedule/alarms/{id}", schedule.DeleteAlarm(storage))

	// Route cache
	router.HandleFunc("POST /api/routes/save", route.Save(storage))
	router.HandleFunc("POST /api/routes/search", route.Search(storage))
	router.HandleFunc("GET /api/routes/recent", route.Recent(storage))
	router.HandleFunc("GET /api/routes/user/{uuid}", route.ByUser(storage))
	router.HandleFunc("GET /api/routes/user/{uuid}/stats", route.Stats(storage))
	router.HandleFunc("DELETE /api/routes/cleanup/old", route.CleanupOld(storage))
	router.HandleFunc("DELETE /api/routes/{id}", route.Delete(storage))

	// Assistant chat
	router.HandleFunc("POST /api/ai/chat", chat.New(storage, assistantClient))
	router.HandleFunc("GET /api/ai/sessions/{uuid}", chat.Sessions(storage))
	router.HandleFunc("GET /api/ai/sessions/{id}/messages", chat.Messages(storage))
	router.HandleFunc("DELETE /api/ai/sessions/{id}", chat.DeleteSession(storage))

	// Favorite places
	router.HandleFunc("POST /api/places", place.New(storage))
	router.HandleFunc("GET /api/places/{uuid}", place.List(storage))
	router.HandleFunc("PUT /api/places/{id}", place.Update(storage))
	router.HandleFunc("DELETE /api/places/{id}", place.Delete(storage))

	// Preferences
	router.HandleFunc("GET /api/preferences/{uuid}", preference.Get(storage))
	router.HandleFunc("PUT /api/preferences/{uuid}/{key}", preference.Put(storage))
	router.HandleFunc("DELETE /api/preferences/{uuid}/{key}", preference.Delete(storage))

	// Notifications
	router.HandleFunc("POST /api/notifications", notification.New(storage))
	router.HandleFunc("GET /api/notifications/{uuid}", notification.List(storage))
	router.HandleFunc("PUT /api/notifications/{id}/read", notification.MarkRead(storage))
	router.HandleFunc("PUT /api/notifications/{uuid}/read-all", notification.MarkAllRead(storage))
	router.HandleFunc("DELETE /api/notifications/{id}", notification.Delete(storage))

	// Usage patterns
	router.HandleFunc("POST /api/patterns", pattern.Save(storage))
	router.HandleFunc("GET /api/patterns/{uuid}", pattern.List(storage))

	// Weather and POI caches
	router.HandleFunc("GET /api/weather", geo.Weather(storage, weatherClient))
	router.HandleFunc("POST /api/poi/cache", geo.SavePOI(storage))
	router.HandleFunc("GET /api/poi", geo.SearchPOI(storage))

	// Middleware, outermost first: recovery must also catch panics from
	// the other wrappers, logging should record throttled requests too.
	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.CORS(cfg.HTTPServer.AllowedOrigins),
	}
	if cfg.HTTPServer.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTPServer.RateLimitRPS, cfg.HTTPServer.RateLimitBurst)
		mws = append(mws, middleware.RateLimit(limiter))
	}

	handler := middleware.Chain(router, mws...)

	// ── 6. Janitor + HTTP Server ──────────────────────────────────────────
	// The janitor's context is cancelled as part of shutdown, after the
	// server has stopped taking requests.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()

	go janitor.New(storage, log, cfg.Janitor).Run(janitorCtx)

	server := &http.Server{
		Addr:    cfg.HTTPServer.Addr,
		Handler: handler,

		// Production hardening: slow-client timeouts. Write is generous
		// because the chat endpoint waits on the assistant upstream.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))

		if err := server.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			log.Error("server encountered an error",
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// ── 7. Wait for Shutdown Signal ───────────────────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	log.Info("shutdown signal received, stopping server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown server gracefully",
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	stopJanitor()

	log.Info("server stopped gracefully")
}

// setupLogger returns a *slog.Logger configured for the given
// environment: human-readable text in dev, JSON for the aggregators in
// staging and prod (staging keeps DEBUG verbosity).
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
