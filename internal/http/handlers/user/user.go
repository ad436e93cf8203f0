// Package user contains all HTTP handlers for the user resource.
//
// HANDLER PATTERN USED HERE — THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (storage)
//  2. Returns a function with the exact signature the router needs
//
// Because the inner function "closes over" the outer parameters, it can
// access `storage` even after the factory call has returned:
//
//	router.HandleFunc("POST /api/users", user.New(storage))
//	//                                   ^^^^^^^^^^^^^^^^^
//	//                New(storage) is called ONCE at startup.
//	//                It returns a handler func which is called
//	//                on EVERY incoming request.
//
// Identity model: there is no login. The server mints a UUID at
// registration and the app sends it back on every call. Possession of
// the UUID IS the authentication.
package user

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/users
// Registers a device and mints its UUID.
//
// Request body (JSON), entirely optional — an empty body works:
//
//	{ "nickname": "Dana", "prep_time": 2400 }
//
// Success response (201 Created):
//
//	{ "uuid": "0b879...", "nickname": "Dana", "prep_time": 2400,
//	  "message": "store this uuid in the app; it cannot be recovered" }
//
// Error responses:
//
//	400 Bad Request  — malformed JSON or prep_time out of 300..7200
//	500 Internal     — database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a user")

		var req types.UserCreate

		// Unlike most endpoints an empty body is fine here: first-launch
		// registration has nothing to say yet, so io.EOF just means
		// "all defaults".
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErrs := err.(validator.ValidationErrors)
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(validateErrs))
			return
		}

		req.Normalize()

		u, err := storage.CreateUser(r.Context(), req.Nickname, req.PrepTime)
		if err != nil {
			slog.Error("error creating user", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		slog.Info("user created", slog.String("uuid", u.UUID))

		response.WriteJSON(w, http.StatusCreated, types.UserCreateResponse{
			UUID:     u.UUID,
			Nickname: u.Nickname,
			PrepTime: u.PrepTime,
			Message:  "store this uuid in the app; it cannot be recovered",
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Get handles GET /api/users/{uuid}
// Fetches the user record and stamps their activity clock: any
// authenticated touch counts against inactivity cleanup.
//
// Error responses:
//
//	400 Bad Request  — uuid is not in canonical format
//	404 Not Found    — unknown or deleted user
//
// ─────────────────────────────────────────────────────────────────────────────
func Get(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		slog.Info("getting a user", slog.String("uuid", uuid))

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		// Touch first so the record we return already carries the fresh
		// last_active value.
		if err := touchUser(w, r, storage, uuid); err != nil {
			return
		}

		u, err := storage.GetUserByUUID(r.Context(), uuid)
		if err != nil {
			writeStorageError(w, "getting user", uuid, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, u)
	}
}

// Update handles PUT /api/users/{uuid}: a partial update of nickname
// and/or prep_time. A nickname that is present but blank is rejected;
// leaving the field out entirely keeps the current one.
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		slog.Info("updating a user", slog.String("uuid", uuid))

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		var req types.UserUpdate
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
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(validateErrs))
			return
		}

		if req.Nickname != nil {
			trimmed := strings.TrimSpace(*req.Nickname)
			if trimmed == "" {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("nickname cannot be blank")))
				return
			}
			req.Nickname = &trimmed
		}

		u, err := storage.UpdateUser(r.Context(), uuid, req)
		if err != nil {
			writeStorageError(w, "updating user", uuid, err)
			return
		}

		slog.Info("user updated", slog.String("uuid", uuid))
		response.WriteJSON(w, http.StatusOK, u)
	}
}

// Delete handles DELETE /api/users/{uuid}. The delete is soft: the row
// is flagged and disappears from the API, nothing is erased.
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		slog.Info("deleting a user", slog.String("uuid", uuid))

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		if err := storage.SoftDeleteUser(r.Context(), uuid); err != nil {
			writeStorageError(w, "deleting user", uuid, err)
			return
		}

		slog.Info("user deleted", slog.String("uuid", uuid))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Stats handles GET /api/users/{uuid}/stats: session and message
// counts for the profile screen. Also stamps the activity clock.
func Stats(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		slog.Info("getting user stats", slog.String("uuid", uuid))

		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		if err := touchUser(w, r, storage, uuid); err != nil {
			return
		}

		stats, err := storage.GetUserStats(r.Context(), uuid)
		if err != nil {
			writeStorageError(w, "getting user stats", uuid, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, stats)
	}
}

// CleanupInactive handles POST /api/users/cleanup-inactive?days=N.
// Soft-deletes users idle longer than N days (default 30). An ops
// endpoint, kept off the documented surface.
func CleanupInactive(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 30
		if d := r.URL.Query().Get("days"); d != "" {
			parsed, err := strconv.Atoi(d)
			if err != nil || parsed < 1 {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("days must be a positive integer")))
				return
			}
			days = parsed
		}

		slog.Info("cleaning up inactive users", slog.Int("days", days))

		count, err := storage.CleanupInactiveUsers(r.Context(), time.Duration(days)*24*time.Hour)
		if err != nil {
			slog.Error("error cleaning up users", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		slog.Info("inactive users cleaned up", slog.Int64("count", count))

		response.WriteJSON(w, http.StatusOK, types.SuccessResponse{
			Success: true,
			Message: "inactive users cleaned up",
			Data:    map[string]any{"deleted_count": count, "days": days},
		})
	}
}

// touchUser bumps last_active and writes the error response itself on
// failure, so callers can simply return. A non-nil result means the
// response is already sent.
func touchUser(w http.ResponseWriter, r *http.Request, storage storage.Storage, uuid string) error {
	err := storage.TouchLastActive(r.Context(), uuid)
	if err != nil {
		writeStorageError(w, "touching user", uuid, err)
	}
	return err
}

// writeStorageError maps a storage failure to the right HTTP status:
// ErrNotFound becomes 404 with a clean message, anything else is a 500.
func writeStorageError(w http.ResponseWriter, op, uuid string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New("user not found")))
		return
	}

	slog.Error("error "+op,
		slog.String("uuid", uuid),
		slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
