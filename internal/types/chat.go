package types

import "time"

// Defaults for sessions created implicitly by the chat endpoint.
const (
	DefaultSessionTitle    = "New chat"
	DefaultSessionCategory = "general"
)

// ChatSession groups the messages of one assistant conversation.
type ChatSession struct {
	ID        int64     `json:"id"`
	UserUUID  string    `json:"user_uuid"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is a single utterance in a session. IsUser marks who spoke.
// Intent and Confidence are filled when the assistant classifies the
// user's request; they stay null for plain conversation.
type ChatMessage struct {
	ID         int64     `json:"id"`
	SessionID  int64     `json:"session_id"`
	Content    string    `json:"content"`
	IsUser     bool      `json:"is_user"`
	Intent     *string   `json:"intent"`
	Confidence *float64  `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChatRequest is the POST /api/ai/chat request body. SessionID is
// optional: when absent a new session is created for the user. Context
// carries app-side state (current location, next event, weather) that is
// folded into the assistant prompt.
type ChatRequest struct {
	UserUUID  string         `json:"user_uuid" validate:"required,uuid4"`
	Message   string         `json:"message"   validate:"required,max=4000"`
	SessionID *int64         `json:"session_id"`
	Context   map[string]any `json:"context"`
}

// ChatResponse is returned by POST /api/ai/chat. MessageID identifies the
// stored assistant message.
type ChatResponse struct {
	Success    bool   `json:"success"`
	AIResponse string `json:"ai_response"`
	SessionID  int64  `json:"session_id"`
	MessageID  int64  `json:"message_id"`
}
