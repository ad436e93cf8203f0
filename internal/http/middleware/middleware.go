// Package middleware holds the HTTP wrappers applied around the router:
// panic recovery, request logging, CORS, and per-client rate limiting.
//
// Each middleware has the standard shape func(http.Handler) http.Handler
// so they compose with Chain. Order matters: recovery sits outermost so
// it also catches panics thrown by the other wrappers.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/daysync/daysync-api/internal/utils/response"
)

// Chain wraps h with the given middlewares. The first argument becomes
// the outermost layer:
//
//	Chain(mux, Recovery(log), Logging(log))
//
// runs Recovery, then Logging, then mux.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// panicEnvelope mirrors the error body the mobile apps already parse for
// unexpected server failures.
type panicEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Recovery converts a handler panic into a logged 500 instead of a
// killed connection. The panic value is logged, never sent to the
// client.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)

					// If the handler already started writing, the status
					// line is gone and this write is best-effort.
					response.WriteJSON(w, http.StatusInternalServerError, panicEnvelope{
						Success: false,
						Error:   "internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code a handler writes so the
// logging middleware can report it. Handlers that never call
// WriteHeader implicitly send 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logging logs one line per request: method, path, status, duration.
func Logging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.Info("request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
