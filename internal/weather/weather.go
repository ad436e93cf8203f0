// Package weather fetches current conditions from the upstream forecast
// API (Open-Meteo wire format). The server does not interpret the
// payload; it caches and relays it verbatim, so the app decides what to
// show.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/httpclient"
)

const (
	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond

	// currentFields is what the app's home screen renders.
	currentFields = "temperature_2m,relative_humidity_2m,precipitation,weather_code,wind_speed_10m"
)

// Client fetches forecasts for coordinates.
type Client struct {
	http *httpclient.Client
}

func New(cfg config.Weather) *Client {
	return &Client{http: httpclient.New(cfg.BaseURL, cfg.Timeout)}
}

// Fetch returns the raw upstream response for the coordinates. Failures
// that survive the retry budget wrap httpclient.ErrUnavailable.
func (c *Client) Fetch(ctx context.Context, lat, lng float64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("current", currentFields)
	q.Set("timezone", "auto")

	path := "/v1/forecast?" + q.Encode()

	var payload json.RawMessage
	err := httpclient.Retry(ctx, retryAttempts, retryDelay, func() error {
		return c.http.GetJSON(ctx, path, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	return payload, nil
}
