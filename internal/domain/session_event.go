package domain

import "time"

// SessionEvent is one auth transition recorded in the journal.
type SessionEvent struct {
	ID         string
	SessionKey string
	Type       string
	Role       Role
	ProfileID  *string
	LoggedIn   bool
	OccurredAt time.Time
}
