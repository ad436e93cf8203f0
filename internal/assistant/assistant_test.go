package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/httpclient"
	"github.com/daysync/daysync-api/internal/types"
)

func newClient(baseURL, key string) *Client {
	return New(config.Assistant{
		APIKey:  key,
		Model:   "gemini-2.0-flash",
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	})
}

func completion(text string) string {
	return `{"candidates": [{"content": {"role": "model", "parts": [{"text": ` +
		string(mustJSON(text)) + `}]}}]}`
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func TestGenerateBuildsConversation(t *testing.T) {
	var got genRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if key := r.Header.Get("x-goog-api-key"); key != "secret" {
			t.Errorf("api key header = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(completion("leave by 8:40")))
	}))
	defer srv.Close()

	history := []types.ChatMessage{
		{Content: "when should I leave?", IsUser: true},
		{Content: "which stop do you use?", IsUser: false},
	}

	c := newClient(srv.URL, "secret")
	reply, err := c.Generate(context.Background(), history, "gangnam station", nil)
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if reply != "leave by 8:40" {
		t.Errorf("reply = %q", reply)
	}

	// History turns become alternating user/model contents, with the new
	// message appended as a final user turn.
	wantRoles := []string{"user", "model", "user"}
	if len(got.Contents) != len(wantRoles) {
		t.Fatalf("contents = %d turns, want %d", len(got.Contents), len(wantRoles))
	}
	for i, want := range wantRoles {
		if got.Contents[i].Role != want {
			t.Errorf("turn %d role = %q, want %q", i, got.Contents[i].Role, want)
		}
	}
	if got.Contents[2].Parts[0].Text != "gangnam station" {
		t.Errorf("final turn text = %q", got.Contents[2].Parts[0].Text)
	}
	if got.SystemInstruction == nil || got.SystemInstruction.Parts[0].Text == "" {
		t.Error("system instruction missing")
	}
}

func TestGenerateFoldsAppContext(t *testing.T) {
	var got genRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(completion("ok")))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "secret")
	_, err := c.Generate(context.Background(), nil, "hi", map[string]any{
		"next_event": "dentist 15:00",
	})
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}

	instr := got.SystemInstruction.Parts[0].Text
	if !strings.Contains(instr, "dentist 15:00") {
		t.Errorf("system instruction does not carry the app context: %q", instr)
	}
}

func TestGenerateWithoutKeyFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent despite missing api key")
	}))
	defer srv.Close()

	c := newClient(srv.URL, "")
	_, err := c.Generate(context.Background(), nil, "hi", nil)
	if !errors.Is(err, httpclient.ErrUnavailable) {
		t.Errorf("Generate() = %v, want ErrUnavailable", err)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completion("recovered")))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "secret")
	reply, err := c.Generate(context.Background(), nil, "hi", nil)
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if reply != "recovered" {
		t.Errorf("reply = %q", reply)
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "secret")
	_, err := c.Generate(context.Background(), nil, "hi", nil)
	if !errors.Is(err, httpclient.ErrUnavailable) {
		t.Errorf("Generate() = %v, want ErrUnavailable", err)
	}
}

func TestFlattenJoinsParts(t *testing.T) {
	resp := genResponse{}
	resp.Candidates = []struct {
		Content genContent `json:"content"`
	}{
		{Content: genContent{Parts: []genPart{{Text: "leave "}, {Text: "now"}}}},
	}

	if got := flatten(resp); got != "leave now" {
		t.Errorf("flatten = %q, want %q", got, "leave now")
	}
}
