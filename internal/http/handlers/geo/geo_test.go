package geo_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/http/handlers/geo"
	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/storage/sqldb"
	"github.com/daysync/daysync-api/internal/types"
)

// fakeFetcher is a canned upstream weather API.
type fakeFetcher struct {
	payload json.RawMessage
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context, float64, float64) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func newServer(t *testing.T, fetcher geo.Fetcher) (*httptest.Server, storage.Storage) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite3"
	cfg.Database.StoragePath = ":memory:"

	st, err := sqldb.New(cfg)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/weather", geo.Weather(st, fetcher))
	mux.HandleFunc("POST /api/poi/cache", geo.SavePOI(st))
	mux.HandleFunc("GET /api/poi", geo.SearchPOI(st))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, st
}

func getWeather(t *testing.T, base string, lat, lng float64) (*http.Response, types.WeatherResponse) {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/weather?lat=%v&lng=%v", base, lat, lng))
	if err != nil {
		t.Fatalf("GET weather: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var body types.WeatherResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode weather: %v", err)
		}
	}

	return resp, body
}

func TestWeatherMissFetchesThenCaches(t *testing.T) {
	fetcher := &fakeFetcher{payload: json.RawMessage(`{"temp":21}`)}
	srv, _ := newServer(t, fetcher)

	resp, first := getWeather(t, srv.URL, 37.4979, 127.0276)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if first.Cached {
		t.Error("first lookup reported cached=true")
	}
	if string(first.Weather) != `{"temp":21}` {
		t.Errorf("payload = %s", first.Weather)
	}

	// Nearby coordinates land on the same rounded grid point and must
	// hit the cache, not the upstream.
	resp, second := getWeather(t, srv.URL, 37.5010, 127.0301)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !second.Cached {
		t.Error("second lookup reported cached=false")
	}
	if fetcher.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", fetcher.calls)
	}
}

func TestWeatherUpstreamDownWithEmptyCache(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	srv, _ := newServer(t, fetcher)

	resp, _ := getWeather(t, srv.URL, 37.5, 127.0)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestWeatherCoordinateValidation(t *testing.T) {
	srv, _ := newServer(t, &fakeFetcher{payload: json.RawMessage(`{}`)})

	tests := []struct {
		name  string
		query string
	}{
		{"missing both", ""},
		{"latitude out of range", "lat=95&lng=127"},
		{"not numbers", "lat=abc&lng=def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/api/weather?" + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestPOIPushThenSearch(t *testing.T) {
	srv, _ := newServer(t, &fakeFetcher{})

	resp, err := http.Post(srv.URL+"/api/poi/cache", "application/json", strings.NewReader(`{
		"latitude": 37.5000, "longitude": 127.0000,
		"query": "coffee", "category": "cafe",
		"poi_data": {"results": [{"name": "some cafe"}]}
	}`))
	if err != nil {
		t.Fatalf("POST poi: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d, want 201", resp.StatusCode)
	}

	searchResp, err := http.Get(srv.URL + "/api/poi?lat=37.5003&lng=127.0004&category=cafe")
	if err != nil {
		t.Fatalf("GET poi: %v", err)
	}
	defer searchResp.Body.Close()

	if searchResp.StatusCode != http.StatusOK {
		t.Fatalf("search status = %d, want 200", searchResp.StatusCode)
	}

	var entries []types.POIEntry
	if err := json.NewDecoder(searchResp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Category == nil || *entries[0].Category != "cafe" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestPOISaveValidation(t *testing.T) {
	srv, _ := newServer(t, &fakeFetcher{})

	resp, err := http.Post(srv.URL+"/api/poi/cache", "application/json",
		strings.NewReader(`{"latitude": 37.5, "longitude": 127.0, "ttl_seconds": 5}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	// Missing poi_data and an out-of-bounds TTL.
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
