// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// Handlers (HTTP layer) should not know or care which database they are
// talking to. By depending only on this interface:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero handler changes. (This is not
//     hypothetical here: production runs MySQL, development and the
//     test suites run SQLite.)
//
//   - Writing tests = pass any implementation that satisfies the
//     interface. The suites use the real SQL implementation on an
//     in-memory database.
//
// The contract is split into one small interface per resource and the
// top-level Storage embeds them all. Code that only reads users can ask
// for a UserStore instead of the whole world.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/daysync/daysync-api/internal/types"
)

// ErrNotFound is returned whenever a lookup, update, or delete targets a
// row that does not exist (or a user that has been soft-deleted).
// Handlers translate it to 404 with errors.Is, so storage methods must
// wrap it rather than replace it: fmt.Errorf("...: %w", ErrNotFound).
var ErrNotFound = errors.New("not found")

// UserStore manages user records keyed by their server-minted UUID.
type UserStore interface {
	// CreateUser inserts a new user with a fresh UUID and returns the
	// stored record. On the (vanishingly unlikely) chance the generated
	// UUID collides with an existing row, it silently retries with a new
	// one.
	CreateUser(ctx context.Context, nickname string, prepTime int) (types.User, error)

	// GetUserByUUID fetches a single user. Soft-deleted users are
	// reported as ErrNotFound.
	GetUserByUUID(ctx context.Context, uuid string) (types.User, error)

	// UpdateUser applies the non-nil fields of upd and bumps last_active.
	UpdateUser(ctx context.Context, uuid string, upd types.UserUpdate) (types.User, error)

	// SoftDeleteUser flags the user deleted. The row is retained.
	SoftDeleteUser(ctx context.Context, uuid string) error

	// TouchLastActive records activity for inactivity-based cleanup.
	TouchLastActive(ctx context.Context, uuid string) error

	// GetUserStats aggregates session and message counts for a user.
	GetUserStats(ctx context.Context, uuid string) (types.UserStats, error)

	// CleanupInactiveUsers soft-deletes users whose last activity is
	// older than the cutoff and returns how many were flagged.
	CleanupInactiveUsers(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ScheduleStore manages calendar events and alarms.
type ScheduleStore interface {
	CreateCalendarEvent(ctx context.Context, ev types.CalendarEventCreate) (types.CalendarEvent, error)

	// ListCalendarEvents returns a user's events newest-start-first.
	// Nil from/to leave that side of the window open.
	ListCalendarEvents(ctx context.Context, userUUID string, from, to *time.Time) ([]types.CalendarEvent, error)

	UpdateCalendarEvent(ctx context.Context, id int64, upd types.CalendarEventUpdate) (types.CalendarEvent, error)

	// DeleteCalendarEvent removes the event; alarms pointing at it are
	// detached, not deleted.
	DeleteCalendarEvent(ctx context.Context, id int64) error

	CreateAlarm(ctx context.Context, a types.AlarmCreate) (types.Alarm, error)

	// ListAlarms returns a user's alarms ascending by time. Disabled
	// alarms are skipped unless includeDisabled is set.
	ListAlarms(ctx context.Context, userUUID string, includeDisabled bool) ([]types.Alarm, error)

	UpdateAlarm(ctx context.Context, id int64, upd types.AlarmUpdate) (types.Alarm, error)

	// ToggleAlarm flips is_enabled and returns the updated alarm.
	ToggleAlarm(ctx context.Context, id int64) (types.Alarm, error)

	DeleteAlarm(ctx context.Context, id int64) error
}

// ChatStore manages assistant sessions and their messages.
type ChatStore interface {
	CreateChatSession(ctx context.Context, userUUID, title, category string) (types.ChatSession, error)
	GetChatSession(ctx context.Context, id int64) (types.ChatSession, error)

	// ListChatSessions returns a user's sessions, most recently updated
	// first.
	ListChatSessions(ctx context.Context, userUUID string) ([]types.ChatSession, error)

	// ListSessionMessages returns every message of a session oldest-first.
	// ErrNotFound if the session does not exist.
	ListSessionMessages(ctx context.Context, sessionID int64) ([]types.ChatMessage, error)

	// RecentMessages returns the session's most recent limit messages in
	// chronological order, for building conversation history.
	RecentMessages(ctx context.Context, sessionID int64, limit int) ([]types.ChatMessage, error)

	// AddChatMessage appends a message and bumps the session's
	// updated_at so session lists sort by freshness.
	AddChatMessage(ctx context.Context, sessionID int64, content string, isUser bool, intent *string, confidence *float64) (types.ChatMessage, error)

	// DeleteChatSession removes the session and all its messages.
	DeleteChatSession(ctx context.Context, id int64) error
}

// RouteStore manages the shared transit-route cache.
type RouteStore interface {
	// SaveRoute stores a route payload. A save with identical endpoints
	// (and the same user, when given) within the dedupe window updates
	// the existing row in place instead of inserting.
	SaveRoute(ctx context.Context, req types.RouteSaveRequest) (types.Route, error)

	// SearchRoute finds the newest entry within the search window whose
	// endpoints match within the coordinate tolerance. A miss returns
	// (nil, nil): not finding a cached route is a normal outcome.
	SearchRoute(ctx context.Context, req types.RouteSearchRequest) (*types.Route, error)

	// RecentRoutes returns the newest entries, optionally filtered to
	// one user (empty userUUID means everyone's).
	RecentRoutes(ctx context.Context, userUUID string, limit int) ([]types.Route, error)

	UserRouteStats(ctx context.Context, userUUID string) (types.RouteStats, error)
	DeleteRoute(ctx context.Context, id int64) error

	// CleanupOldRoutes purges entries older than the cutoff and returns
	// how many were removed.
	CleanupOldRoutes(ctx context.Context, olderThan time.Duration) (int64, error)
}

// PlaceStore manages favorite places.
type PlaceStore interface {
	CreatePlace(ctx context.Context, p types.PlaceCreate) (types.FavoritePlace, error)
	ListPlaces(ctx context.Context, userUUID string) ([]types.FavoritePlace, error)
	UpdatePlace(ctx context.Context, id int64, upd types.PlaceUpdate) (types.FavoritePlace, error)
	DeletePlace(ctx context.Context, id int64) error
}

// PreferenceStore manages per-user key/value settings.
type PreferenceStore interface {
	GetPreferences(ctx context.Context, userUUID string) (map[string]string, error)

	// PutPreference inserts or replaces one key for the user.
	PutPreference(ctx context.Context, userUUID, key, value string) error

	DeletePreference(ctx context.Context, userUUID, key string) error
}

// NotificationStore manages the in-app notification inbox.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n types.NotificationCreate) (types.Notification, error)

	// ListNotifications returns newest-first, optionally unread only.
	ListNotifications(ctx context.Context, userUUID string, unreadOnly bool, limit int) ([]types.Notification, error)

	MarkNotificationRead(ctx context.Context, id int64) (types.Notification, error)

	// MarkAllNotificationsRead returns how many were flipped.
	MarkAllNotificationsRead(ctx context.Context, userUUID string) (int64, error)

	DeleteNotification(ctx context.Context, id int64) error
}

// PatternStore manages learned usage patterns.
type PatternStore interface {
	// SavePattern upserts on (user, pattern type): an existing row gets
	// the new data, frequency+1, and a fresh last_used; otherwise a row
	// is inserted with frequency 1.
	SavePattern(ctx context.Context, p types.PatternSave) (types.UserPattern, error)

	// ListPatterns returns a user's patterns by descending frequency,
	// optionally filtered by type (empty means all).
	ListPatterns(ctx context.Context, userUUID, patternType string) ([]types.UserPattern, error)
}

// GeoCacheStore manages the weather and POI lookup caches.
type GeoCacheStore interface {
	// GetWeather returns the freshest unexpired entry for the (already
	// rounded) coordinates, or (nil, nil) on a miss.
	GetWeather(ctx context.Context, lat, lng float64) (*types.WeatherEntry, error)

	PutWeather(ctx context.Context, lat, lng float64, data json.RawMessage, ttl time.Duration) (types.WeatherEntry, error)

	SavePOI(ctx context.Context, p types.POISave, ttl time.Duration) (types.POIEntry, error)

	// SearchPOI returns fresh entries near the coordinates (tolerance
	// match), newest first, optionally filtered by query and category.
	SearchPOI(ctx context.Context, lat, lng float64, query, category string, limit int) ([]types.POIEntry, error)

	// PurgeExpiredCaches deletes expired weather and POI rows.
	PurgeExpiredCaches(ctx context.Context) (int64, error)
}

// Storage is the full database contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface — Go does this implicitly (no "implements"
// keyword required).
type Storage interface {
	UserStore
	ScheduleStore
	ChatStore
	RouteStore
	PlaceStore
	PreferenceStore
	NotificationStore
	PatternStore
	GeoCacheStore

	// Ping verifies the database connection for health checks.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close() error
}
