package types

import (
	"encoding/json"
	"time"
)

// FavoritePlace is a user-labeled location ("home", "work", "gym") the
// assistant resolves aliases against.
type FavoritePlace struct {
	ID        int64     `json:"id"`
	UserUUID  string    `json:"user_uuid"`
	Alias     string    `json:"alias"`
	Address   *string   `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaceCreate is the POST /api/places request body.
type PlaceCreate struct {
	UserUUID  string   `json:"user_uuid" validate:"required,uuid4"`
	Alias     string   `json:"alias"     validate:"required,max=100"`
	Address   *string  `json:"address"   validate:"omitempty,max=255"`
	Latitude  *float64 `json:"latitude"  validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// PlaceUpdate carries partial changes for PUT /api/places/{id}.
type PlaceUpdate struct {
	Alias     *string  `json:"alias"     validate:"omitempty,max=100"`
	Address   *string  `json:"address"   validate:"omitempty,max=255"`
	Latitude  *float64 `json:"latitude"  validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// PreferencePut is the PUT /api/preferences/{uuid}/{key} request body.
// Values are opaque strings; the app owns their meaning.
type PreferencePut struct {
	Value string `json:"value" validate:"required"`
}

// Notification is a stored notice shown in the app's inbox (departure
// reminders, schedule conflicts). RelatedItemID/Type optionally point at
// the resource the notice is about.
type Notification struct {
	ID              int64     `json:"id"`
	UserUUID        string    `json:"user_uuid"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Type            *string   `json:"type"`
	RelatedItemID   *int64    `json:"related_item_id"`
	RelatedItemType *string   `json:"related_item_type"`
	IsRead          bool      `json:"is_read"`
	CreatedAt       time.Time `json:"created_at"`
}

// NotificationCreate is the POST /api/notifications request body.
type NotificationCreate struct {
	UserUUID        string  `json:"user_uuid" validate:"required,uuid4"`
	Title           string  `json:"title"     validate:"required,max=255"`
	Content         string  `json:"content"   validate:"required"`
	Type            *string `json:"type"      validate:"omitempty,max=50"`
	RelatedItemID   *int64  `json:"related_item_id"`
	RelatedItemType *string `json:"related_item_type" validate:"omitempty,max=50"`
}

// UserPattern records a recurring behavior the assistant learned, e.g. a
// commute searched every weekday morning. Frequency counts observations;
// saving an existing (user, type) pair replaces the data and increments it.
type UserPattern struct {
	ID          int64           `json:"id"`
	UserUUID    string          `json:"user_uuid"`
	PatternType string          `json:"pattern_type"`
	PatternData json.RawMessage `json:"pattern_data"`
	Frequency   int64           `json:"frequency"`
	LastUsed    time.Time       `json:"last_used"`
}

// PatternSave is the POST /api/patterns request body.
type PatternSave struct {
	UserUUID    string          `json:"user_uuid"    validate:"required,uuid4"`
	PatternType string          `json:"pattern_type" validate:"required,max=50"`
	PatternData json.RawMessage `json:"pattern_data" validate:"required"`
}
