package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event that occurred.
// Events are immutable facts about something that happened.
type Event struct {
	ID        uuid.UUID
	Type      string
	Timestamp time.Time
	UserID    string
	Data      map[string]any
}

// Event type constants
const (
	EventUserRegistered = "user.registered"
	EventUserCreated    = "user.created"
	EventUserUpdated    = "user.updated"
	EventUserDeleted    = "user.deleted"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"
	EventWordSaved      = "word.saved"
	EventWordDeleted    = "word.deleted"
	EventQuizAnswered   = "quiz.answered"
)

// NewEvent creates a new domain event.
func NewEvent(eventType, userID string, data map[string]any) Event {
	if data == nil {
		data = make(map[string]any)
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Data:      data,
	}
}

func UserRegisteredEvent(u *User) Event {
	return NewEvent(EventUserRegistered, u.ID, map[string]any{
		"email":            u.Email,
		"user_language":    string(u.UserLanguage),
		"learned_language": string(u.LearnedLanguage),
	})
}

func UserCreatedEvent(u *User, by string) Event {
	return NewEvent(EventUserCreated, u.ID, map[string]any{
		"email":      u.Email,
		"role":       string(u.Role),
		"created_by": by,
	})
}

func UserDeletedEvent(userID string) Event {
	return NewEvent(EventUserDeleted, userID, nil)
}

func UserLoggedInEvent(userID, ipAddress, userAgent string) Event {
	return NewEvent(EventUserLoggedIn, userID, map[string]any{
		"ip_address": ipAddress,
		"user_agent": userAgent,
	})
}

func WordSavedEvent(w *Word) Event {
	return NewEvent(EventWordSaved, w.UserID, map[string]any{
		"word_id":   w.ID,
		"lang_from": string(w.LangFrom),
		"lang_to":   string(w.LangTo),
	})
}

func WordDeletedEvent(userID string, wordID int) Event {
	return NewEvent(EventWordDeleted, userID, map[string]any{"word_id": wordID})
}

func QuizAnsweredEvent(userID string, a QuizAnswer) Event {
	return NewEvent(EventQuizAnswered, userID, map[string]any{
		"word_id": a.WordID,
		"correct": a.Correct,
	})
}
