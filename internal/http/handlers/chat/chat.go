// Package chat contains the HTTP handlers for the assistant under
// /api/ai: the chat endpoint itself plus session and transcript
// management.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/daysync/daysync-api/internal/httpclient"
	"github.com/daysync/daysync-api/internal/storage"
	"github.com/daysync/daysync-api/internal/types"
	"github.com/daysync/daysync-api/internal/utils/response"
)

// historyLimit is how many prior messages are replayed to the model as
// conversation history. Ten keeps the prompt cheap while covering the
// back-and-forth a scheduling question usually takes.
const historyLimit = 10

// Generator produces the assistant's reply. Satisfied by
// *assistant.Client; tests substitute a canned implementation.
type Generator interface {
	Generate(ctx context.Context, history []types.ChatMessage, message string, appContext map[string]any) (string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/ai/chat
//
// Request body (JSON):
//
//	{ "user_uuid": "...", "message": "when should I leave?",
//	  "session_id": 3,               // optional: absent starts a new session
//	  "context": { "location": ... } // optional app-side state
//	}
//
// Flow: verify the user, resolve (or create) the session, replay recent
// history to the model, then persist the user's message and the reply
// together. The model is called BEFORE anything is written, so an
// upstream failure leaves the transcript untouched and the app can
// simply retry.
//
// Error responses:
//
//	400 — malformed body / validation failure
//	404 — unknown user, or session not owned by the user
//	502 — assistant backend unavailable
//
// ─────────────────────────────────────────────────────────────────────────────
func New(st storage.Storage, gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ChatRequest
		if !decodeBody(w, r, &req) {
			return
		}

		if _, err := st.GetUserByUUID(r.Context(), req.UserUUID); err != nil {
			writeStorageError(w, "checking user", "user not found", err)
			return
		}

		var (
			sessionID int64
			history   []types.ChatMessage
		)

		if req.SessionID != nil {
			session, err := st.GetChatSession(r.Context(), *req.SessionID)
			if err != nil {
				writeStorageError(w, "getting session", "session not found", err)
				return
			}
			// A session id belonging to someone else is indistinguishable
			// from a nonexistent one, on purpose.
			if session.UserUUID != req.UserUUID {
				response.WriteJSON(w, http.StatusNotFound,
					response.GeneralError(errors.New("session not found")))
				return
			}

			sessionID = session.ID

			history, err = st.RecentMessages(r.Context(), sessionID, historyLimit)
			if err != nil {
				slog.Error("error loading history", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
		} else {
			session, err := st.CreateChatSession(r.Context(), req.UserUUID,
				types.DefaultSessionTitle, types.DefaultSessionCategory)
			if err != nil {
				slog.Error("error creating session", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
				return
			}
			sessionID = session.ID
		}

		reply, err := gen.Generate(r.Context(), history, req.Message, req.Context)
		if err != nil {
			slog.Error("assistant call failed",
				slog.Int64("session_id", sessionID),
				slog.String("error", err.Error()))

			status := http.StatusInternalServerError
			if errors.Is(err, httpclient.ErrUnavailable) {
				status = http.StatusBadGateway
			}
			response.WriteJSON(w, status,
				response.GeneralError(errors.New("assistant is unavailable")))
			return
		}

		if _, err := st.AddChatMessage(r.Context(), sessionID, req.Message, true, nil, nil); err != nil {
			slog.Error("error storing user message", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		aiMsg, err := st.AddChatMessage(r.Context(), sessionID, reply, false, nil, nil)
		if err != nil {
			slog.Error("error storing assistant message", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		slog.Info("chat turn completed",
			slog.Int64("session_id", sessionID),
			slog.Int64("message_id", aiMsg.ID))

		response.WriteJSON(w, http.StatusOK, types.ChatResponse{
			Success:    true,
			AIResponse: reply,
			SessionID:  sessionID,
			MessageID:  aiMsg.ID,
		})
	}
}

// Sessions handles GET /api/ai/sessions/{uuid}: the user's
// conversations, most recently active first.
func Sessions(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uuid := r.PathValue("uuid")
		if !types.ValidUUID(uuid) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("invalid uuid format")))
			return
		}

		sessions, err := st.ListChatSessions(r.Context(), uuid)
		if err != nil {
			slog.Error("error listing sessions", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, sessions)
	}
}

// Messages handles GET /api/ai/sessions/{id}/messages: the full
// transcript, oldest first.
func Messages(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		messages, err := st.ListSessionMessages(r.Context(), id)
		if err != nil {
			writeStorageError(w, "listing messages", "session not found", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, messages)
	}
}

// DeleteSession handles DELETE /api/ai/sessions/{id}. Messages go with
// the session.
func DeleteSession(st storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}

		if err := st.DeleteChatSession(r.Context(), id); err != nil {
			writeStorageError(w, "deleting session", "session not found", err)
			return
		}

		slog.Info("session deleted", slog.Int64("id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("request body is empty")))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}

	if err := validator.New().Struct(dst); err != nil {
		validateErrs := err.(validator.ValidationErrors)
		response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(validateErrs))
		return false
	}

	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.GeneralError(errors.New("invalid id")))
		return 0, false
	}
	return id, true
}

func writeStorageError(w http.ResponseWriter, op, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound,
			response.GeneralError(errors.New(msg)))
		return
	}

	slog.Error("error "+op, slog.String("error", err.Error()))
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
