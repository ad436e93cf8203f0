// Package assistant is the client for the generative-AI backend that
// powers the chat feature. It speaks the Gemini generateContent REST
// API: conversation history goes in as alternating user/model turns,
// one reply text comes back.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daysync/daysync-api/internal/config"
	"github.com/daysync/daysync-api/internal/httpclient"
	"github.com/daysync/daysync-api/internal/types"
)

// systemPrompt frames every conversation. The app may add live context
// (location, next event, weather) which is appended as JSON.
const systemPrompt = `You are the assistant inside DaySync, a daily schedule and bus mobility app.
You help the user manage their schedule, plan bus trips, and leave on time,
taking their preparation time into account. Answer briefly and warmly, in the
user's language. When the provided context contains schedule, location, or
weather details, ground your answer in them instead of guessing.`

// Retry policy for upstream calls.
const (
	retryAttempts = 3
	retryDelay    = time.Second
)

// Client talks to the generative API. The zero value is not usable;
// construct with New.
type Client struct {
	http  *httpclient.Client
	model string
	key   string
}

// New builds a client from configuration. An empty API key is allowed:
// every Generate call will then fail with ErrUnavailable, and the rest
// of the server keeps working without the chat feature.
func New(cfg config.Assistant) *Client {
	c := httpclient.New(cfg.BaseURL, cfg.Timeout)
	c.Headers["x-goog-api-key"] = cfg.APIKey

	return &Client{
		http:  c,
		model: cfg.Model,
		key:   cfg.APIKey,
	}
}

// Wire types for the generateContent endpoint.

type genContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []genPart `json:"parts"`
}

type genPart struct {
	Text string `json:"text"`
}

type genRequest struct {
	SystemInstruction *genContent  `json:"systemInstruction,omitempty"`
	Contents          []genContent `json:"contents"`
}

type genResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
}

// Generate produces the assistant's reply to message, given the prior
// conversation and optional app context. Failures that survive the
// retry budget come back wrapping httpclient.ErrUnavailable.
func (c *Client) Generate(ctx context.Context, history []types.ChatMessage, message string, appContext map[string]any) (string, error) {
	if c.key == "" {
		return "", fmt.Errorf("Generate: no api key configured: %w", httpclient.ErrUnavailable)
	}

	req := genRequest{
		SystemInstruction: &genContent{Parts: []genPart{{Text: c.prompt(appContext)}}},
		Contents:          make([]genContent, 0, len(history)+1),
	}

	for _, m := range history {
		role := "model"
		if m.IsUser {
			role = "user"
		}
		req.Contents = append(req.Contents, genContent{
			Role:  role,
			Parts: []genPart{{Text: m.Content}},
		})
	}
	req.Contents = append(req.Contents, genContent{
		Role:  "user",
		Parts: []genPart{{Text: message}},
	})

	path := "/v1beta/models/" + c.model + ":generateContent"

	var reply string
	err := httpclient.Retry(ctx, retryAttempts, retryDelay, func() error {
		var resp genResponse
		if err := c.http.PostJSON(ctx, path, req, &resp); err != nil {
			return err
		}

		text := flatten(resp)
		if text == "" {
			// A 200 with nothing usable in it (safety-blocked, empty
			// candidates). Retrying the same prompt will not help.
			return fmt.Errorf("empty completion: %w", httpclient.ErrUnavailable)
		}

		reply = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("Generate: %w", err)
	}

	return reply, nil
}

// prompt folds the app-provided context into the system prompt.
func (c *Client) prompt(appContext map[string]any) string {
	if len(appContext) == 0 {
		return systemPrompt
	}

	b, err := json.Marshal(appContext)
	if err != nil {
		// Context is a best-effort hint; a value that will not
		// serialize is dropped rather than failing the chat.
		return systemPrompt
	}

	return systemPrompt + "\n\nCurrent context (JSON):\n" + string(b)
}

func flatten(resp genResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return strings.TrimSpace(sb.String())
}
