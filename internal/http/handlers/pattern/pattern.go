// Package pattern contains the HTTP handlers for learned usage
// patterns under /api/patterns. A pattern is a recurring behavior the
// app observed (the same commute searched every weekday morning); its
// frequency counter is what lets the assistant rank suggestions.
package pattern

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

// Save handles POST /api/patterns. Saving an existing (user, type)
// pair replaces its data and increments the frequency counter; a new
// pair starts at frequency 1. The user must exist.
func Save(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PatternSave

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

		if _, err := st.GetUserByUUID(r.Context(), req.UserUUID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.WriteJSON(w, http.StatusNotFound,
					response.GeneralError(errors.New("user not found")))
				return
			}
			slog.Error("error checking user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		p, err := st.SavePattern(r.Context(), req)
		if err != nil {
			slog.Error("error saving pattern", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("pattern saved",
			slog.String("user_uuid", p.UserUUID),
			slog.String("type", p.PatternType),
			slog.Int64("frequency", p.Frequency))

		response.WriteJSON(w, http.StatusCreated, p)
	}
}

// List handles GET /api/patterns/{uuid}[?type=], most frequent first.
func List(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		patterns, err := st.ListPatterns(r.Context(), uuid, r.URL.Query().Get("type"))
		if err != nil {
			slog.Error("error listing patterns", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, patterns)
	}
}
