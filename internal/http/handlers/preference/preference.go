// Package preference contains the HTTP handlers for per-user settings
// under /api/preferences. Preferences are opaque key/value strings; the
// server stores them, the app interprets them.
package preference

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// Get handles GET /api/preferences/{uuid}: every pair as one JSON
// object, e.g. {"theme":"dark","home_stop":"23184"}. A user with no
// preferences gets an empty object, not a 404.
func Get(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		prefs, err := st.GetPreferences(r.Context(), uuid)
		if err != nil {
			slog.Error("error getting preferences", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, prefs)
	}
}

// Put handles PUT /api/preferences/{uuid}/{key} with body {"value":...}.
// An upsert: setting an existing key replaces it. The user must exist.
func Put(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		key := r.PathValue("key")

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		var req types.PreferencePut
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

		if _, err := st.GetUserByUUID(r.Context(), uuid); err != nil {
			writeStorageError(w, "checking user", "user not found", err)
			return
		}

		if err := st.PutPreference(r.Context(), uuid, key, req.Value); err != nil {
			slog.Error("error putting preference", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("preference set",
			slog.String("uuid", uuid),
			slog.String("key", key))

		response.WriteJSON(w, http.StatusOK, map[string]string{key: req.Value})
	}
}

// Delete handles DELETE /api/preferences/{uuid}/{key}.
func Delete(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		key := r.PathValue("key")

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		if err := st.DeletePreference(r.Context(), uuid, key); err != nil {
			writeStorageError(w, "deleting preference", "preference not found", err)
			return
		}

		slog.Info("preference deleted",
			slog.String("uuid", uuid),
			slog.String("key", key))

		w.WriteHeader(http.StatusNoContent)
	}
}

func writeStorageError(w http.ResponseWriter, op, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New(msg)))
		return
	}

	slog.Error("error "+op, slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
