package events

import (
	"time"

	"github.com/spec-kit/travel-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
	EventTokenRefreshed EventType = "token_refreshed"
	EventLoggedOut      EventType = "logged_out"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Kind      domain.PrincipalKind `json:"kind"`
	SubjectID string               `json:"subject_id,omitempty"`
	Email     string               `json:"email,omitempty"`
}

// Event represents an auth event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// TokenRefreshedPayload payload.
type TokenRefreshedPayload struct {
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoggedOutPayload payload.
type LoggedOutPayload struct {
	SessionID string `json:"session_id"`
}
