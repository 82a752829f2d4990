package session

import (
	"time"

	"github.com/antoniostano/zinger/internal/conversation"
)

// CreateRequest defines payload for creating a new session.
type CreateRequest struct {
	UserID string `json:"user_id"`
}

// Response is the JSON view of a session returned by the API.
type Response struct {
	SessionID          string              `json:"session_id"`
	UserID             string              `json:"user_id,omitempty"`
	Status             Status              `json:"status"`
	ConversationStatus conversation.Status `json:"conversation_status"`
	Transcript         []conversation.Turn `json:"transcript"`
	TurnCount          int                 `json:"turn_count"`
	StartedAt          time.Time           `json:"started_at"`
	LastActivityAt     time.Time           `json:"last_activity_at"`
	InactivityTTLMS    int64               `json:"inactivity_ttl_ms"`
}

func NewResponse(s *Session, ttl time.Duration) Response {
	return Response{
		SessionID:          s.ID,
		UserID:             s.UserID,
		Status:             s.Status,
		ConversationStatus: s.Conversation.Status,
		Transcript:         s.Transcript(),
		TurnCount:          s.TurnCount,
		StartedAt:          s.StartedAt,
		LastActivityAt:     s.LastActivityAt,
		InactivityTTLMS:    ttl.Milliseconds(),
	}
}
