// Package route contains the HTTP handlers for the shared transit-route
// cache under /api/routes. Apps push the routes they fetch from the
// transit vendor here; later searches for roughly the same trip get the
// cached payload back instead of a fresh vendor call.
package route

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// Query limits: defaults applied when ?limit= is absent, cap applied
// always so a client cannot page the whole table in one call.
const (
	defaultRecentLimit = 10
	defaultUserLimit   = 20
	maxLimit           = 100
)

// ─────────────────────────────────────────────────────────────────────────────
// Save handles POST /api/routes/save
//
// Request body (JSON):
//
//	{ "user_uuid": "...",            // optional: anonymous saves allowed
//	  "start_lat": 37.49, "start_lng": 127.02,
//	  "end_lat": 37.55,   "end_lng": 126.97,
//	  "route_data": { ... } }        // vendor payload, stored verbatim
//
// A repeat save of the same trip within the dedupe window updates the
// existing entry instead of inserting a duplicate. Either way the
// response is 201 with the stored route.
// ─────────────────────────────────────────────────────────────────────────────
func Save(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RouteSaveRequest
		if !decodeBody(w, r, &req) {
			return
		}

		route, err := storage.SaveRoute(r.Context(), req)
		if err != nil {
			slog.Error("error saving route", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("route saved", slog.Int64("id", route.ID))
		response.WriteJSON(w, http.StatusCreated, route)
	}
}

// Search handles POST /api/routes/search: the read side of the cache.
// Coordinates tolerance-match and only entries from the last day count;
// a miss is a normal 200 with found=false, not an error.
func Search(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RouteSearchRequest
		if !decodeBody(w, r, &req) {
			return
		}

		route, err := storage.SearchRoute(r.Context(), req)
		if err != nil {
			slog.Error("error searching routes", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, types.RouteSearchResponse{
			Found: route != nil,
			Route: route,
		})
	}
}

// Recent handles GET /api/routes/recent?limit=10[&user_uuid=]: the
// newest cache entries, everyone's by default or one user's.
func Recent(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := limitParam(w, r, defaultRecentLimit)
		if !ok {
			return
		}

		userUUID := r.URL.Query().Get("user_uuid")
		if userUUID != "" && !types.ValidUUID(userUUID) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		routes, err := storage.RecentRoutes(r.Context(), userUUID, limit)
		if err != nil {
			slog.Error("error listing recent routes", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, routes)
	}
}

// ByUser handles GET /api/routes/user/{uuid}?limit=20.
func ByUser(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		limit, ok := limitParam(w, r, defaultUserLimit)
		if !ok {
			return
		}

		routes, err := storage.RecentRoutes(r.Context(), uuid, limit)
		if err != nil {
			slog.Error("error listing user routes", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, routes)
	}
}

// Stats handles GET /api/routes/user/{uuid}/stats: how many trips the
// user has cached and when the first and last happened.
func Stats(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		stats, err := storage.UserRouteStats(r.Context(), uuid)
		if err != nil {
			slog.Error("error getting route stats", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, stats)
	}
}

// Delete handles DELETE /api/routes/{id}.
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid id")))
			return
		}

		if err := storage.DeleteRoute(r.Context(), id); err != nil {
			writeStorageError(w, "deleting route", "route not found", err)
			return
		}

		slog.Info("route deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// CleanupOld handles DELETE /api/routes/cleanup/old?days=7: the manual
// trigger for the purge the janitor also runs on its own schedule.
func CleanupOld(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := types.RouteRetentionDays
		if d := r.URL.Query().Get("days"); d != "" {
			parsed, err := strconv.Atoi(d)
			if err != nil || parsed < 1 {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("days must be a positive integer")))
				return
			}
			days = parsed
		}

		count, err := storage.CleanupOldRoutes(r.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			slog.Error("error cleaning up routes", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("old routes cleaned up", slog.Int64("count", count), slog.Int("days", days))

		response.WriteJSON(w, http.StatusOK, types.SuccessResponse{
			Success: true,
			Message: "old routes cleaned up",
			Data:    map[string]any{"deleted_count": count, "days": days},
		})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}

	if err := validator.New().Struct(dst); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		return false
	}

	return true
}

func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("limit must be a positive integer")))
		return 0, false
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit, true
}

// writeStorageError maps ErrNotFound to 404 with msg, everything else
// to a logged 500.
func writeStorageError(w http.ResponseWriter, op, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New(msg)))
		return
	}

	slog.Error("error "+op, slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
