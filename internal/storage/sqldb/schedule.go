package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so the scan
// helpers below serve single-row and multi-row queries alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalendarEvent(row rowScanner) (types.CalendarEvent, error) {
	var (
		ev    types.CalendarEvent
		ends  sql.NullTime
		desc  sql.NullString
		alias sql.NullString
		lat   sql.NullFloat64
		lng   sql.NullFloat64
	)

	err := row.Scan(
		&ev.ID, &ev.UserUUID, &ev.Title, &ev.StartTime, &ends,
		&desc, &alias, &lat, &lng, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return types.CalendarEvent{}, err
	}

	ev.EndTime = timePtr(ends)
	ev.Description = strPtr(desc)
	ev.LocationAlias = strPtr(alias)
	ev.LocationLat = f64Ptr(lat)
	ev.LocationLng = f64Ptr(lng)

	return ev, nil
}

const calendarEventCols = `id, user_uuid, title, starts_at, ends_at,
	description, location_alias, location_lat, location_lng, created_at, updated_at`

// CreateCalendarEvent inserts a schedule entry for the user.
func (s *DB) CreateCalendarEvent(ctx context.Context, ev types.CalendarEventCreate) (types.CalendarEvent, error) {
	now := s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events
			(user_uuid, title, starts_at, ends_at, description,
			 location_alias, location_lat, location_lng, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserUUID, ev.Title, ev.StartTime.UTC(), ev.EndTime, ev.Description,
		ev.LocationAlias, ev.LocationLat, ev.LocationLng, now, now,
	)
	if err != nil {
		return types.CalendarEvent{}, fmt.Errorf("CreateCalendarEvent: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.CalendarEvent{}, fmt.Errorf("CreateCalendarEvent: last insert id: %w", err)
	}

	return s.getCalendarEvent(ctx, id)
}

func (s *DB) getCalendarEvent(ctx context.Context, id int64) (types.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+calendarEventCols+" FROM calendar_events WHERE id = ? LIMIT 1", id,
	)

	ev, err := scanCalendarEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CalendarEvent{}, fmt.Errorf("getCalendarEvent: %w", storage.ErrNotFound)
		}
		return types.CalendarEvent{}, fmt.Errorf("getCalendarEvent: scan: %w", err)
	}

	return ev, nil
}

// ListCalendarEvents returns the user's events newest-start-first,
// optionally windowed by start time.
func (s *DB) ListCalendarEvents(ctx context.Context, userUUID string, from, to *time.Time) ([]types.CalendarEvent, error) {
	query := "SELECT " + calendarEventCols + " FROM calendar_events WHERE user_uuid = ?"
	args := []any{userUUID}

	if from != nil {
		query += " AND starts_at >= ?"
		args = append(args, from.UTC())
	}
	if to != nil {
		query += " AND starts_at <= ?"
		args = append(args, to.UTC())
	}
	query += " ORDER BY starts_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListCalendarEvents: query: %w", err)
	}
	defer rows.Close()

	events := make([]types.CalendarEvent, 0)
	for rows.Next() {
		ev, err := scanCalendarEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCalendarEvents: scan row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCalendarEvents: rows iteration: %w", err)
	}

	return events, nil
}

// UpdateCalendarEvent applies the non-nil fields of upd.
func (s *DB) UpdateCalendarEvent(ctx context.Context, id int64, upd types.CalendarEventUpdate) (types.CalendarEvent, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.now()}

	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.StartTime != nil {
		sets = append(sets, "starts_at = ?")
		args = append(args, upd.StartTime.UTC())
	}
	if upd.EndTime != nil {
		sets = append(sets, "ends_at = ?")
		args = append(args, upd.EndTime.UTC())
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.LocationAlias != nil {
		sets = append(sets, "location_alias = ?")
		args = append(args, *upd.LocationAlias)
	}
	if upd.LocationLat != nil {
		sets = append(sets, "location_lat = ?")
		args = append(args, *upd.LocationLat)
	}
	if upd.LocationLng != nil {
		sets = append(sets, "location_lng = ?")
		args = append(args, *upd.LocationLng)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE calendar_events SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return types.CalendarEvent{}, fmt.Errorf("UpdateCalendarEvent: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.CalendarEvent{}, fmt.Errorf("UpdateCalendarEvent: rows affected: %w", err)
	}
	if affected == 0 {
		return types.CalendarEvent{}, fmt.Errorf("UpdateCalendarEvent: %w", storage.ErrNotFound)
	}

	return s.getCalendarEvent(ctx, id)
}

// DeleteCalendarEvent removes the event. Alarms that referenced it are
// detached by the schema's ON DELETE SET NULL, not deleted.
func (s *DB) DeleteCalendarEvent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteCalendarEvent: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteCalendarEvent: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteCalendarEvent: %w", storage.ErrNotFound)
	}

	return nil
}

func scanAlarm(row rowScanner) (types.Alarm, error) {
	var (
		a       types.Alarm
		eventID sql.NullInt64
		repeat  sql.NullString
		sound   sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.UserUUID, &eventID, &a.AlarmTime, &a.Label,
		&a.IsEnabled, &repeat, &sound, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return types.Alarm{}, err
	}

	a.CalendarEventID = int64Ptr(eventID)
	a.RepeatDays = strPtr(repeat)
	a.SoundURI = strPtr(sound)

	return a, nil
}

const alarmCols = `id, user_uuid, calendar_event_id, alarm_time, label,
	is_enabled, repeat_days, sound_uri, created_at, updated_at`

// CreateAlarm inserts an alarm. The caller is expected to have applied
// AlarmCreate.Normalize already.
func (s *DB) CreateAlarm(ctx context.Context, a types.AlarmCreate) (types.Alarm, error) {
	now := s.now()

	enabled := true
	if a.IsEnabled != nil {
		enabled = *a.IsEnabled
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alarms
			(user_uuid, calendar_event_id, alarm_time, label, is_enabled,
			 repeat_days, sound_uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserUUID, a.CalendarEventID, a.AlarmTime.UTC(), a.Label, enabled,
		a.RepeatDays, a.SoundURI, now, now,
	)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("CreateAlarm: insert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return types.Alarm{}, fmt.Errorf("CreateAlarm: last insert id: %w", err)
	}

	return s.getAlarm(ctx, id)
}

func (s *DB) getAlarm(ctx context.Context, id int64) (types.Alarm, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+alarmCols+" FROM alarms WHERE id = ? LIMIT 1", id,
	)

	a, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Alarm{}, fmt.Errorf("getAlarm: %w", storage.ErrNotFound)
		}
		return types.Alarm{}, fmt.Errorf("getAlarm: scan: %w", err)
	}

	return a, nil
}

// ListAlarms returns the user's alarms soonest-first. By default only
// enabled ones: that is what the app's alarm list shows.
func (s *DB) ListAlarms(ctx context.Context, userUUID string, includeDisabled bool) ([]types.Alarm, error) {
	query := "SELECT " + alarmCols + " FROM alarms WHERE user_uuid = ?"
	if !includeDisabled {
		query += " AND is_enabled = 1"
	}
	query += " ORDER BY alarm_time ASC"

	rows, err := s.db.QueryContext(ctx, query, userUUID)
	if err != nil {
		return nil, fmt.Errorf("ListAlarms: query: %w", err)
	}
	defer rows.Close()

	alarms := make([]types.Alarm, 0)
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAlarms: scan row: %w", err)
		}
		alarms = append(alarms, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAlarms: rows iteration: %w", err)
	}

	return alarms, nil
}

// UpdateAlarm applies the non-nil fields of upd.
func (s *DB) UpdateAlarm(ctx context.Context, id int64, upd types.AlarmUpdate) (types.Alarm, error) {
	sets := []string{"updated_at = ?"}
	args := []any{s.now()}

	if upd.AlarmTime != nil {
		sets = append(sets, "alarm_time = ?")
		args = append(args, upd.AlarmTime.UTC())
	}
	if upd.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *upd.Label)
	}
	if upd.IsEnabled != nil {
		sets = append(sets, "is_enabled = ?")
		args = append(args, *upd.IsEnabled)
	}
	if upd.RepeatDays != nil {
		sets = append(sets, "repeat_days = ?")
		args = append(args, *upd.RepeatDays)
	}
	if upd.SoundURI != nil {
		sets = append(sets, "sound_uri = ?")
		args = append(args, *upd.SoundURI)
	}
	if upd.CalendarEventID != nil {
		sets = append(sets, "calendar_event_id = ?")
		args = append(args, *upd.CalendarEventID)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE alarms SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("UpdateAlarm: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return types.Alarm{}, fmt.Errorf("UpdateAlarm: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Alarm{}, fmt.Errorf("UpdateAlarm: %w", storage.ErrNotFound)
	}

	return s.getAlarm(ctx, id)
}

// ToggleAlarm flips is_enabled.
func (s *DB) ToggleAlarm(ctx context.Context, id int64) (types.Alarm, error) {
	a, err := s.getAlarm(ctx, id)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("ToggleAlarm: %w", err)
	}

	a.IsEnabled = !a.IsEnabled
	a.UpdatedAt = s.now()

	_, err = s.db.ExecContext(ctx,
		"UPDATE alarms SET is_enabled = ?, updated_at = ? WHERE id = ?",
		a.IsEnabled, a.UpdatedAt, id,
	)
	if err != nil {
		return types.Alarm{}, fmt.Errorf("ToggleAlarm: exec: %w", err)
	}

	return a, nil
}

func (s *DB) DeleteAlarm(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("DeleteAlarm: exec: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteAlarm: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("DeleteAlarm: %w", storage.ErrNotFound)
	}

	return nil
}
