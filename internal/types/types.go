// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, clients, and utils can all import types without
// depending on each other.
//
// The files in this package mirror the resources DaySync serves:
//
//	types.go    - users, common envelopes, UUID helpers
//	schedule.go - calendar events and alarms
//	chat.go     - assistant sessions and messages
//	route.go    - cached transit routes
//	place.go    - favorite places, preferences, notifications, patterns
//	geo.go      - weather and POI caches
package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults applied when a client omits optional user fields.
// PrepTime is the "getting ready" lead time the assistant subtracts from
// departure calculations, in seconds. Bounds: 5 minutes to 2 hours.
const (
	DefaultNickname = "user"
	DefaultPrepTime = 1800
	MinPrepTime     = 300
	MaxPrepTime     = 7200
)

// User represents a registered device record.
//
// DaySync has no accounts and no login: the server mints a UUID on first
// contact and the app presents it on every later call. Deleting a user is
// a soft delete; the row stays, flagged, and becomes invisible to lookups.
//
// Struct tags serve two purposes:
//
//  1. json:"..."  - controls how the field appears when encoded to JSON
//     (lowercase names match REST API conventions).
//
//  2. validate:"..." - rules checked by the go-playground/validator
//     package on inbound payloads.
type User struct {
	ID         int64     `json:"id"`
	UUID       string    `json:"uuid"`
	Nickname   string    `json:"nickname"`
	PrepTime   int       `json:"prep_time"` // seconds
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	IsDeleted  bool      `json:"is_deleted"`
}

// UserCreate is the POST /api/users request body. Every field is optional;
// zero values fall back to the defaults above.
type UserCreate struct {
	Nickname string `json:"nickname"  validate:"omitempty,max=50"`
	PrepTime int    `json:"prep_time" validate:"omitempty,gte=300,lte=7200"`
}

// Normalize applies the create-time defaults: a blank (or all-whitespace)
// nickname becomes DefaultNickname and a missing prep time becomes
// DefaultPrepTime.
func (u *UserCreate) Normalize() {
	u.Nickname = strings.TrimSpace(u.Nickname)
	if u.Nickname == "" {
		u.Nickname = DefaultNickname
	}
	if u.PrepTime == 0 {
		u.PrepTime = DefaultPrepTime
	}
}

// UserUpdate is the PUT /api/users/{uuid} request body. Pointer fields
// distinguish "not sent" (nil, leave unchanged) from "sent as zero".
// Unlike creation, an explicitly blank nickname is an error here.
type UserUpdate struct {
	Nickname *string `json:"nickname"  validate:"omitempty,max=50"`
	PrepTime *int    `json:"prep_time" validate:"omitempty,gte=300,lte=7200"`
}

// UserCreateResponse is returned by POST /api/users. The message reminds
// the app to persist the UUID, because losing it orphans the account.
type UserCreateResponse struct {
	UUID     string `json:"uuid"`
	Nickname string `json:"nickname"`
	PrepTime int    `json:"prep_time"`
	Message  string `json:"message"`
}

// UserStats aggregates a user's assistant activity.
type UserStats struct {
	UUID          string    `json:"uuid"`
	Nickname      string    `json:"nickname"`
	TotalSessions int64     `json:"total_sessions"`
	TotalMessages int64     `json:"total_messages"`
	LastActive    time.Time `json:"last_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// SuccessResponse is the standard success envelope for endpoints that
// return a message rather than a resource (root, deletes, cleanups).
type SuccessResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// HealthCheckResponse is returned by GET /health.
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Version   string    `json:"version"`
}

// NewUUID returns a fresh random (version 4) UUID in canonical form.
// This is the identity the whole API keys on.
func NewUUID() string {
	return uuid.NewString()
}

// ValidUUID reports whether s is a canonically formatted UUID.
//
// The check is strict: s must round-trip unchanged through parsing, so
// uppercase, braced, and urn-prefixed variants are rejected even though
// the parser would accept them. Clients always store the exact string the
// server minted, so anything non-canonical is a client bug worth a 400.
func ValidUUID(s string) bool {
	u, err := uuid.Parse(s)
	return err == nil && u.String() == s
}
