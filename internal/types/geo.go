package types

import (
	"encoding/json"
	"math"
	"time"
)

// Cache lifetimes for external lookups.
const (
	WeatherCacheTTL = 30 * time.Minute
	POICacheTTL     = time.Hour
)

// RoundCoord rounds a coordinate to two decimal places, about 1 km.
// Weather cache keys use this so nearby clients share one entry.
func RoundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

// WeatherEntry is one cached upstream weather response.
type WeatherEntry struct {
	ID          int64           `json:"id"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	WeatherData json.RawMessage `json:"weather_data"`
	ExpiresAt   time.Time       `json:"expires_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WeatherResponse is returned by GET /api/weather. Cached tells the app
// whether the payload came from the cache or a live upstream call.
type WeatherResponse struct {
	Cached    bool            `json:"cached"`
	Weather   json.RawMessage `json:"weather"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// POIEntry is one cached place-search result pushed by a client. The
// vendor POI API is keyed per app install, so the server never calls it;
// it only shares what apps already fetched.
type POIEntry struct {
	ID        int64           `json:"id"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Query     *string         `json:"query"`
	Category  *string         `json:"category"`
	POIData   json.RawMessage `json:"poi_data"`
	ExpiresAt time.Time       `json:"expires_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// POISave is the POST /api/poi/cache request body. TTLSeconds overrides
// the default cache lifetime within 1 minute to 24 hours.
type POISave struct {
	Latitude   *float64        `json:"latitude"    validate:"required,latitude"`
	Longitude  *float64        `json:"longitude"   validate:"required,longitude"`
	Query      *string         `json:"query"       validate:"omitempty,max=255"`
	Category   *string         `json:"category"    validate:"omitempty,max=100"`
	POIData    json.RawMessage `json:"poi_data"    validate:"required"`
	TTLSeconds int             `json:"ttl_seconds" validate:"omitempty,gte=60,lte=86400"`
}
