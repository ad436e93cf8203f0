// Package geo contains the HTTP handlers for the two location caches:
// weather (/api/weather, server-fetched and cached) and POI
// (/api/poi, client-pushed and shared).
//
// The two caches work in opposite directions because of who holds the
// upstream credentials. The weather API is open, so the server fetches
// and caches on a miss. The POI vendor keys each app install, so apps
// fetch themselves and push results here for others to reuse.
package geo

import (
	"context"
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

const (
	defaultPOILimit = 20
	maxPOILimit     = 100
)

// Fetcher retrieves current conditions from the upstream forecast API.
// Satisfied by *weather.Client; tests substitute a canned one.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lng float64) (json.RawMessage, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Weather handles GET /api/weather?lat=&lng=
//
// Coordinates are rounded to a ~1 km grid before lookup, so everyone in
// the same neighborhood shares one cache entry. A fresh entry comes
// back with cached=true; a miss triggers one upstream fetch, stores it,
// and returns cached=false. Upstream down and nothing cached: 502.
// ─────────────────────────────────────────────────────────────────────────────
func Weather(st storage.Storage, fetcher Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, lng, ok := coordParams(w, r)
		if !ok {
			return
		}

		lat = types.RoundCoord(lat)
		lng = types.RoundCoord(lng)

		entry, err := st.GetWeather(r.Context(), lat, lng)
		if err != nil {
			slog.Error("error reading weather cache", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		if entry != nil {
			response.WriteJSON(w, http.StatusOK, types.WeatherResponse{
				Cached:    true,
				Weather:   entry.WeatherData,
				ExpiresAt: entry.ExpiresAt,
			})
			return
		}

		payload, err := fetcher.Fetch(r.Context(), lat, lng)
		if err != nil {
			slog.Error("weather fetch failed",
				slog.Float64("lat", lat),
				slog.Float64("lng", lng),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadGateway,
				response.GeneralError(errors.New("weather service is unavailable")))
			return
		}

		stored, err := st.PutWeather(r.Context(), lat, lng, payload, types.WeatherCacheTTL)
		if err != nil {
			// The fetch succeeded; a cache write failure should not cost
			// the client their answer.
			slog.Error("error caching weather", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusOK, types.WeatherResponse{
				Cached:  false,
				Weather: payload,
			})
			return
		}

		slog.Info("weather cached",
			slog.Float64("lat", lat),
			slog.Float64("lng", lng))

		response.WriteJSON(w, http.StatusOK, types.WeatherResponse{
			Cached:    false,
			Weather:   stored.WeatherData,
			ExpiresAt: stored.ExpiresAt,
		})
	}
}

// SavePOI handles POST /api/poi/cache: an app pushing a place-search
// result it already paid the vendor call for.
func SavePOI(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.POISave

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
			return
		}

		ttl := types.POICacheTTL
		if req.TTLSeconds > 0 {
			ttl = time.Duration(req.TTLSeconds) * time.Second
		}

		entry, err := st.SavePOI(r.Context(), req, ttl)
		if err != nil {
			slog.Error("error saving poi entry", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("poi entry cached", slog.Int64("id", entry.ID))
		response.WriteJSON(w, http.StatusCreated, entry)
	}
}

// SearchPOI handles GET /api/poi?lat=&lng=[&query=][&category=][&limit=]:
// fresh entries near the coordinates, newest first.
func SearchPOI(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, lng, ok := coordParams(w, r)
		if !ok {
			return
		}

		limit := defaultPOILimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("limit must be a positive integer")))
				return
			}
			limit = parsed
		}
		if limit > maxPOILimit {
			limit = maxPOILimit
		}

		entries, err := st.SearchPOI(r.Context(), lat, lng,
			r.URL.Query().Get("query"), r.URL.Query().Get("category"), limit)
		if err != nil {
			slog.Error("error searching poi cache", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, entries)
	}
}

// coordParams parses and range-checks the lat/lng query parameters.
func coordParams(w http.ResponseWriter, r *http.Request) (float64, float64, bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)

	if errLat != nil || errLng != nil ||
		lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("lat and lng must be valid coordinates")))
		return 0, 0, false
	}

	return lat, lng, true
}
