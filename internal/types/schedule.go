package types

import "time"

// DefaultAlarmLabel is used when an alarm is created without a label.
const DefaultAlarmLabel = "alarm"

// CalendarEvent is a schedule entry the assistant plans departures around.
// End time and location are optional: a bare "dentist at 3pm" is enough.
type CalendarEvent struct {
	ID            int64      `json:"id"`
	UserUUID      string     `json:"user_uuid"`
	Title         string     `json:"event_title"`
	StartTime     time.Time  `json:"event_start_time"`
	EndTime       *time.Time `json:"event_end_time"`
	Description   *string    `json:"description"`
	LocationAlias *string    `json:"location_alias"`
	LocationLat   *float64   `json:"location_lat"`
	LocationLng   *float64   `json:"location_lng"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CalendarEventCreate is the POST /api/schedule/events request body.
type CalendarEventCreate struct {
	UserUUID      string     `json:"user_uuid"        validate:"required,uuid4"`
	Title         string     `json:"event_title"      validate:"required,max=255"`
	StartTime     time.Time  `json:"event_start_time" validate:"required"`
	EndTime       *time.Time `json:"event_end_time"`
	Description   *string    `json:"description"`
	LocationAlias *string    `json:"location_alias"   validate:"omitempty,max=100"`
	LocationLat   *float64   `json:"location_lat"     validate:"omitempty,latitude"`
	LocationLng   *float64   `json:"location_lng"     validate:"omitempty,longitude"`
}

// CalendarEventUpdate carries partial changes for PUT
// /api/schedule/events/{id}. Nil fields are left untouched.
type CalendarEventUpdate struct {
	Title         *string    `json:"event_title"      validate:"omitempty,max=255"`
	StartTime     *time.Time `json:"event_start_time"`
	EndTime       *time.Time `json:"event_end_time"`
	Description   *string    `json:"description"`
	LocationAlias *string    `json:"location_alias"   validate:"omitempty,max=100"`
	LocationLat   *float64   `json:"location_lat"     validate:"omitempty,latitude"`
	LocationLng   *float64   `json:"location_lng"     validate:"omitempty,longitude"`
}

// Alarm is a wake-up or departure alarm. RepeatDays is a comma-separated
// list of weekday numbers ("0,1,2,3,4"); empty means one-shot. An alarm
// may point at the calendar event it was derived from.
type Alarm struct {
	ID              int64     `json:"id"`
	UserUUID        string    `json:"user_uuid"`
	AlarmTime       time.Time `json:"alarm_time"`
	Label           string    `json:"label"`
	IsEnabled       bool      `json:"is_enabled"`
	RepeatDays      *string   `json:"repeat_days"`
	SoundURI        *string   `json:"sound_uri"`
	CalendarEventID *int64    `json:"calendar_event_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AlarmCreate is the POST /api/schedule/alarms request body.
// IsEnabled defaults to true when omitted.
type AlarmCreate struct {
	UserUUID        string    `json:"user_uuid"  validate:"required,uuid4"`
	AlarmTime       time.Time `json:"alarm_time" validate:"required"`
	Label           string    `json:"label"      validate:"omitempty,max=100"`
	IsEnabled       *bool     `json:"is_enabled"`
	RepeatDays      *string   `json:"repeat_days" validate:"omitempty,max=50"`
	SoundURI        *string   `json:"sound_uri"   validate:"omitempty,max=255"`
	CalendarEventID *int64    `json:"calendar_event_id"`
}

// Normalize applies alarm defaults for omitted optional fields.
func (a *AlarmCreate) Normalize() {
	if a.Label == "" {
		a.Label = DefaultAlarmLabel
	}
	if a.IsEnabled == nil {
		enabled := true
		a.IsEnabled = &enabled
	}
}

// AlarmUpdate carries partial changes for PUT /api/schedule/alarms/{id}.
type AlarmUpdate struct {
	AlarmTime       *time.Time `json:"alarm_time"`
	Label           *string    `json:"label"      validate:"omitempty,max=100"`
	IsEnabled       *bool      `json:"is_enabled"`
	RepeatDays      *string    `json:"repeat_days" validate:"omitempty,max=50"`
	SoundURI        *string    `json:"sound_uri"   validate:"omitempty,max=255"`
	CalendarEventID *int64     `json:"calendar_event_id"`
}
