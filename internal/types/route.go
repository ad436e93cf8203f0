package types

import (
	"encoding/json"
	"time"
)

// Route windows. Saves within DedupeWindow of an identical search update
// the existing row instead of inserting; searches only consider entries
// newer than SearchWindow. CoordTolerance is the matching slack in
// degrees, roughly 100 m.
const (
	RouteDedupeWindow  = time.Hour
	RouteSearchWindow  = 24 * time.Hour
	CoordTolerance     = 0.001
	RouteRetentionDays = 7
)

// Route is a cached transit route search result. The payload is stored
// verbatim as the app produced it (legs, transfers, arrival estimates);
// the server only indexes the endpoints.
type Route struct {
	ID        int64           `json:"id"`
	UserUUID  *string         `json:"user_uuid"`
	StartLat  float64         `json:"start_lat"`
	StartLng  float64         `json:"start_lng"`
	EndLat    float64         `json:"end_lat"`
	EndLng    float64         `json:"end_lng"`
	RouteData json.RawMessage `json:"route_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// RouteSaveRequest is the POST /api/routes/save request body. Coordinates
// are pointers so that a missing field is distinguishable from a
// legitimate 0.0 (the equator and the prime meridian are real places).
type RouteSaveRequest struct {
	UserUUID  *string         `json:"user_uuid"  validate:"omitempty,uuid4"`
	StartLat  *float64        `json:"start_lat"  validate:"required,latitude"`
	StartLng  *float64        `json:"start_lng"  validate:"required,longitude"`
	EndLat    *float64        `json:"end_lat"    validate:"required,latitude"`
	EndLng    *float64        `json:"end_lng"    validate:"required,longitude"`
	RouteData json.RawMessage `json:"route_data" validate:"required"`
}

// RouteSearchRequest is the POST /api/routes/search request body.
type RouteSearchRequest struct {
	StartLat *float64 `json:"start_lat" validate:"required,latitude"`
	StartLng *float64 `json:"start_lng" validate:"required,longitude"`
	EndLat   *float64 `json:"end_lat"   validate:"required,latitude"`
	EndLng   *float64 `json:"end_lng"   validate:"required,longitude"`
}

// RouteSearchResponse is returned by POST /api/routes/search. Route is
// null when nothing fresh enough matched.
type RouteSearchResponse struct {
	Found bool   `json:"found"`
	Route *Route `json:"route"`
}

// RouteStats summarizes a user's route history. The timestamps are null
// for users with no saved routes.
type RouteStats struct {
	UserUUID    string     `json:"user_uuid"`
	TotalRoutes int64      `json:"total_routes"`
	FirstSearch *time.Time `json:"first_search"`
	LastSearch  *time.Time `json:"last_search"`
}
