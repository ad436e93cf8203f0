// Package notification contains the HTTP handlers for the in-app
// notification inbox under /api/notifications (departure reminders,
// schedule conflicts, and similar notices the app raises for itself).
package notification

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

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// New handles POST /api/notifications. The user must exist.
func New(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.NotificationCreate
		if !decodeBody(w, r, &req) {
			return
		}

		if _, err := st.GetUserByUUID(r.Context(), req.UserUUID); err != nil {
			writeStorageError(w, "checking user", "user not found", err)
			return
		}

		n, err := st.CreateNotification(r.Context(), req)
		if err != nil {
			slog.Error("error creating notification", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("notification created", slog.Int64("id", n.ID))
		response.WriteJSON(w, http.StatusCreated, n)
	}
}

// List handles GET /api/notifications/{uuid}?unread_only=true&limit=50,
// newest first.
func List(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		unreadOnly := r.URL.Query().Get("unread_only") == "true"

		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("limit must be a positive integer")))
				return
			}
			limit = parsed
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		notifications, err := st.ListNotifications(r.Context(), uuid, unreadOnly, limit)
		if err != nil {
			slog.Error("error listing notifications", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, notifications)
	}
}

// MarkRead handles PUT /api/notifications/{id}/read. Idempotent:
// marking an already-read notice succeeds quietly.
func MarkRead(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		n, err := st.MarkNotificationRead(r.Context(), id)
		if err != nil {
			writeStorageError(w, "marking notification read", "notification not found", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, n)
	}
}

// MarkAllRead handles PUT /api/notifications/{uuid}/read-all and
// reports how many notices were flipped.
func MarkAllRead(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		count, err := st.MarkAllNotificationsRead(r.Context(), uuid)
		if err != nil {
			slog.Error("error marking notifications read", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("notifications marked read",
			slog.String("uuid", uuid),
			slog.Int64("count", count))

		response.WriteJSON(w, http.StatusOK, types.SuccessResponse{
			Success: true,
			Message: "notifications marked read",
			Data:    map[string]any{"updated_count": count},
		})
	}
}

// Delete handles DELETE /api/notifications/{id}.
func Delete(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := st.DeleteNotification(r.Context(), id); err != nil {
			writeStorageError(w, "deleting notification", "notification not found", err)
			return
		}

		slog.Info("notification deleted", slog.Int64("id", id))
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
