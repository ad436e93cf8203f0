package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/http/handlers/user"
	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/storage/sqldb"
	"github.com/daysync/daysync-api/internal/types"
)

// newServer wires the user routes onto a fresh in-memory database, the
// same way main does.
func newServer(t *testing.T) (*httptest.Server, storage.Storage) {
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
	mux.HandleFunc("POST /api/users", user.New(st))
	mux.HandleFunc("POST /api/users/cleanup-inactive", user.CleanupInactive(st))
	mux.HandleFunc("GET /api/users/{uuid}", user.Get(st))
	mux.HandleFunc("PUT /api/users/{uuid}", user.Update(st))
	mux.HandleFunc("DELETE /api/users/{uuid}", user.Delete(st))
	mux.HandleFunc("GET /api/users/{uuid}/stats", user.Stats(st))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv, st
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestCreateUserDefaults(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/api/users", `{}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	got := decode[types.UserCreateResponse](t, resp)
	if !types.ValidUUID(got.UUID) {
		t.Errorf("minted uuid %q is not canonical", got.UUID)
	}
	if got.Nickname != types.DefaultNickname {
		t.Errorf("nickname = %q, want default %q", got.Nickname, types.DefaultNickname)
	}
	if got.PrepTime != types.DefaultPrepTime {
		t.Errorf("prep_time = %d, want default %d", got.PrepTime, types.DefaultPrepTime)
	}
}

func TestCreateUserEmptyBodyAllowed(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Post(srv.URL+"/api/users", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("empty body status = %d, want 201", resp.StatusCode)
	}
}

func TestCreateUserValidation(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"prep time too low", `{"prep_time": 60}`},
		{"prep time too high", `{"prep_time": 86400}`},
		{"malformed json", `{"nickname": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/users", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestGetUser(t *testing.T) {
	srv, _ := newServer(t)

	created := decode[types.UserCreateResponse](t, postJSON(t, srv.URL+"/api/users", `{"nickname":"Dana"}`))

	t.Run("found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/" + created.UUID)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		got := decode[types.User](t, resp)
		if got.Nickname != "Dana" {
			t.Errorf("nickname = %q, want %q", got.Nickname, "Dana")
		}
	})

	t.Run("bad uuid format", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/not-a-uuid")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown uuid", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/users/" + types.NewUUID())
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d, want 404", resp.StatusCode)
		}
	})
}

func TestUpdateUserRejectsBlankNickname(t *testing.T) {
	srv, _ := newServer(t)

	created := decode[types.UserCreateResponse](t, postJSON(t, srv.URL+"/api/users", `{}`))

	req, _ := http.NewRequest(http.MethodPut,
		srv.URL+"/api/users/"+created.UUID, strings.NewReader(`{"nickname":"   "}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteUserSoftDeletes(t *testing.T) {
	srv, _ := newServer(t)

	created := decode[types.UserCreateResponse](t, postJSON(t, srv.URL+"/api/users", `{}`))

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/users/"+created.UUID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	// The UUID now reads as gone.
	getResp, err := http.Get(srv.URL + "/api/users/" + created.UUID)
	if err != nil {
		t.Fatalf("GET after delete: %v", err)
	}
	defer getResp.Body.Close()

	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", getResp.StatusCode)
	}
}

func TestUserStats(t *testing.T) {
	srv, st := newServer(t)

	created := decode[types.UserCreateResponse](t, postJSON(t, srv.URL+"/api/users", `{}`))

	se, err := st.CreateChatSession(context.Background(), created.UUID, "t", "general")
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, err := st.AddChatMessage(context.Background(), se.ID, "hi", true, nil, nil); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/users/" + created.UUID + "/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	stats := decode[types.UserStats](t, resp)
	if stats.TotalSessions != 1 || stats.TotalMessages != 1 {
		t.Errorf("stats = %+v, want 1 session and 1 message", stats)
	}
}

func TestCleanupInactiveValidatesDays(t *testing.T) {
	srv, _ := newServer(t)

	resp := postJSON(t, srv.URL+"/api/users/cleanup-inactive?days=-1", ``)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
