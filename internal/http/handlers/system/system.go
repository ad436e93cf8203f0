// Package system contains the handlers that are about the server
// itself rather than any resource: the welcome root, the health probe,
// API metadata, and the UUID self-test.
package system

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// Version is reported by /, /health, and /api/info.
const Version = "1.0.0"

// apiInfo is the static metadata served by / and /api/info. Endpoint
// paths double as live documentation for anyone curl-ing the server.
var apiInfo = map[string]any{
	"name":    "DaySync API",
	"version": Version,
	"features": map[string]bool{
		"users":         true,
		"schedule":      true,
		"alarms":        true,
		"routes":        true,
		"ai_chat":       true,
		"places":        true,
		"preferences":   true,
		"notifications": true,
		"patterns":      true,
		"weather":       true,
		"poi":           true,
	},
	"endpoints": map[string]string{
		"users":         "/api/users",
		"schedule":      "/api/schedule",
		"routes":        "/api/routes",
		"ai_chat":       "/api/ai/chat",
		"places":        "/api/places",
		"preferences":   "/api/preferences",
		"notifications": "/api/notifications",
		"patterns":      "/api/patterns",
		"weather":       "/api/weather",
		"poi":           "/api/poi",
		"health":        "/health",
	},
}

// Root handles GET /: a welcome envelope so hitting the bare server in
// a browser shows something sensible.
func Root() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, types.SuccessResponse{
			Success: true,
			Message: "DaySync API server is running",
			Data:    apiInfo,
		})
	}
}

// Info handles GET /api/info.
func Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, apiInfo)
	}
}

// Health handles GET /health: one database round-trip plus a UUID
// generation self-test. Load balancers and uptime monitors poll this,
// so it answers 503 (not 500) when degraded.
func Health(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := types.HealthCheckResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Database:  "connected",
			Version:   Version,
		}

		if err := st.Ping(r.Context()); err != nil {
			slog.Error("health check: database ping failed",
				slog.String("error", err.Error()))
			resp.Status = "unhealthy"
			resp.Database = "disconnected"
			response.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		// UUID minting is load-bearing for registration; if it ever
		// breaks we want the probe red, not a 500 on the next signup.
		if !types.ValidUUID(types.NewUUID()) {
			resp.Status = "unhealthy"
			response.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		response.WriteJSON(w, http.StatusOK, resp)
	}
}

// UUIDTest handles GET /test/uuid, a dev endpoint: mints a handful of
// UUIDs and verifies they are well-formed and distinct.
func UUIDTest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const n = 5

		uuids := make([]string, 0, n)
		seen := make(map[string]struct{}, n)
		valid := true

		for i := 0; i < n; i++ {
			u := types.NewUUID()
			uuids = append(uuids, u)

			if !types.ValidUUID(u) {
				valid = false
			}
			if _, dup := seen[u]; dup {
				valid = false
			}
			seen[u] = struct{}{}
		}

		response.WriteJSON(w, http.StatusOK, map[string]any{
			"success":   valid,
			"generated": uuids,
			"count":     len(uuids),
			"all_valid": valid,
		})
	}
}
