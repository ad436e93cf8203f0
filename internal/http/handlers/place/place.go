// Package place contains the HTTP handlers for favorite places under
// /api/places. A favorite place is a user-labeled location ("home",
// "work") the assistant resolves when the user says "take me home".
package place

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// New handles POST /api/places. The user must exist.
func New(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PlaceCreate
		if !decodeBody(w, r, &req) {
			return
		}

		if _, err := st.GetUserByUUID(r.Context(), req.UserUUID); err != nil {
			writeStorageError(w, "checking user", "user not found", err)
			return
		}

		p, err := st.CreatePlace(r.Context(), req)
		if err != nil {
			slog.Error("error creating place", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("place created",
			slog.Int64("id", p.ID),
			slog.String("alias", p.Alias))

		response.WriteJSON(w, http.StatusCreated, p)
	}
}

// List handles GET /api/places/{uuid}.
func List(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		places, err := st.ListPlaces(r.Context(), uuid)
		if err != nil {
			slog.Error("error listing places", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, places)
	}
}

// Update handles PUT /api/places/{id}: a partial update.
func Update(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		var req types.PlaceUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		p, err := st.UpdatePlace(r.Context(), id, req)
		if err != nil {
			writeStorageError(w, "updating place", "place not found", err)
			return
		}

		slog.Info("place updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, p)
	}
}

// Delete handles DELETE /api/places/{id}.
func Delete(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := st.DeletePlace(r.Context(), id); err != nil {
			writeStorageError(w, "deleting place", "place not found", err)
			return
		}

		slog.Info("place deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
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

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id")))
		return 0, false
	}
	return id, true
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
