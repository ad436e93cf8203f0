// Package schedule contains the HTTP handlers for calendar events and
// alarms, the two halves of the /api/schedule surface. Events are what
// the user plans; alarms are how the app wakes them up for it, so an
// alarm may be linked to the event it was derived from.
//
// All handlers are factories in the closure pattern used across this
// application: they take the storage dependency once at startup and
// return the http.HandlerFunc the router calls per request.
package schedule

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

// ─────────────────────────────────────────────────────────────────────────────
// CreateEvent handles POST /api/schedule/calendar/events
//
// Request body (JSON):
//
//	{ "user_uuid": "...", "event_title": "dentist",
//	  "event_start_time": "2026-09-01T15:00:00Z", ... }
//
// The user must exist: events for unknown (or deleted) users are
// rejected with 404 rather than silently accumulating orphan rows.
// ─────────────────────────────────────────────────────────────────────────────
func CreateEvent(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CalendarEventCreate
		if !decodeBody(w, r, &req) {
			return
		}

		if !requireUser(w, r, storage, req.UserUUID) {
			return
		}

		ev, err := storage.CreateCalendarEvent(r.Context(), req)
		if err != nil {
			slog.Error("error creating calendar event", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("calendar event created",
			slog.Int64("id", ev.ID),
			slog.String("user_uuid", ev.UserUUID))

		response.WriteJSON(w, http.StatusCreated, ev)
	}
}

// ListEvents handles GET /api/schedule/calendar/events/{uuid}.
// Events come back newest-start-first. Optional ?from= and ?to=
// (RFC 3339) window the list by start time, which is how the app loads
// one week of schedule at a time.
func ListEvents(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		from, ok := timeParam(w, r, "from")
		if !ok {
			return
		}
		to, ok := timeParam(w, r, "to")
		if !ok {
			return
		}

		events, err := storage.ListCalendarEvents(r.Context(), uuid, from, to)
		if err != nil {
			slog.Error("error listing calendar events", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, events)
	}
}

// UpdateEvent handles PUT /api/schedule/calendar/events/{id}: a partial
// update, nil fields untouched.
func UpdateEvent(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		var req types.CalendarEventUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		ev, err := storage.UpdateCalendarEvent(r.Context(), id, req)
		if err != nil {
			writeStorageError(w, "updating calendar event", "calendar event not found", err)
			return
		}

		slog.Info("calendar event updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, ev)
	}
}

// DeleteEvent handles DELETE /api/schedule/calendar/events/{id}.
// The delete is hard; alarms that referenced the event survive with
// their link cleared.
func DeleteEvent(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := storage.DeleteCalendarEvent(r.Context(), id); err != nil {
			writeStorageError(w, "deleting calendar event", "calendar event not found", err)
			return
		}

		slog.Info("calendar event deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// CreateAlarm handles POST /api/schedule/alarms. Label defaults to
// "alarm" and is_enabled to true when omitted. A calendar_event_id, if
// sent, links the alarm to the event it serves.
func CreateAlarm(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AlarmCreate
		if !decodeBody(w, r, &req) {
			return
		}

		if !requireUser(w, r, storage, req.UserUUID) {
			return
		}

		req.Normalize()

		a, err := storage.CreateAlarm(r.Context(), req)
		if err != nil {
			slog.Error("error creating alarm", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("alarm created",
			slog.Int64("id", a.ID),
			slog.String("user_uuid", a.UserUUID))

		response.WriteJSON(w, http.StatusCreated, a)
	}
}

// ListAlarms handles GET /api/schedule/alarms/{uuid}. Ascending by
// time, enabled alarms only — that is what the alarm screen renders.
// ?all=true includes disabled ones for the management view.
func ListAlarms(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		includeDisabled := r.URL.Query().Get("all") == "true"

		alarms, err := storage.ListAlarms(r.Context(), uuid, includeDisabled)
		if err != nil {
			slog.Error("error listing alarms", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, alarms)
	}
}

// UpdateAlarm handles PUT /api/schedule/alarms/{id}.
func UpdateAlarm(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		var req types.AlarmUpdate
		if !decodeBody(w, r, &req) {
			return
		}

		a, err := storage.UpdateAlarm(r.Context(), id, req)
		if err != nil {
			writeStorageError(w, "updating alarm", "alarm not found", err)
			return
		}

		slog.Info("alarm updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, a)
	}
}

// ToggleAlarm handles PUT /api/schedule/alarms/{id}/toggle: flips
// is_enabled without the app needing to know the current state.
func ToggleAlarm(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		a, err := storage.ToggleAlarm(r.Context(), id)
		if err != nil {
			writeStorageError(w, "toggling alarm", "alarm not found", err)
			return
		}

		slog.Info("alarm toggled",
			slog.Int64("id", id),
			slog.Bool("is_enabled", a.IsEnabled))

		response.WriteJSON(w, http.StatusOK, a)
	}
}

// DeleteAlarm handles DELETE /api/schedule/alarms/{id}.
func DeleteAlarm(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := storage.DeleteAlarm(r.Context(), id); err != nil {
			writeStorageError(w, "deleting alarm", "alarm not found", err)
			return
		}

		slog.Info("alarm deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeBody parses and validates the JSON body into dst. A false
// return means the error response has already been written.
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

// requireUser rejects writes for unknown or deleted users with 404.
func requireUser(w http.ResponseWriter, r *http.Request, st storage.Storage, uuid string) bool {
	_, err := st.GetUserByUUID(r.Context(), uuid)
	if err == nil {
		return true
	}

	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New("user not found")))
		return false
	}

	slog.Error("error checking user", slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
	return false
}

// idParam parses the {id} path segment.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id")))
		return 0, false
	}
	return id, true
}

// timeParam parses an optional RFC 3339 query parameter. Absent is
// fine (nil); present-but-unparseable draws a 400.
func timeParam(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New(name+" must be RFC 3339")))
		return nil, false
	}

	return &t, true
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
