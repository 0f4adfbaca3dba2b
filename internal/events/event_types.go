package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/identity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationOutcome EventType = "registration_outcome"
	EventUserLoggedIn        EventType = "user_logged_in"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Email     string      `json:"email"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps a new event with an id and the current time.
func NewEvent(eventType EventType, email string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Email:     email,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// RegistrationOutcomePayload payload.
type RegistrationOutcomePayload struct {
	Outcome domain.RegistrationOutcome `json:"outcome"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	UserID int64 `json:"user_id"`
}
