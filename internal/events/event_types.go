package events

import (
	"time"

	"github.com/spec-kit/ledger-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered     EventType = "user_registered"
	EventUserUpdated        EventType = "user_updated"
	EventUserDeleted        EventType = "user_deleted"
	EventPasswordChanged    EventType = "password_changed"
	EventQuerySubmitted     EventType = "query_submitted"
	EventLedgerConfigUpdate EventType = "ledger_config_updated"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID   string      `json:"user_id,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload carries the credentials to deliver to a new researcher.
// Password is the generated plaintext and must never be logged.
type UserRegisteredPayload struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Password  string `json:"-"`
}

// QuerySubmittedPayload payload.
type QuerySubmittedPayload struct {
	Submitter string `json:"submitter"`
	Function  string `json:"function"`
}

// ConfigUpdatedPayload payload.
type ConfigUpdatedPayload struct {
	Kind string `json:"kind"`
}
