package dto

import (
	"time"

	"github.com/spec-kit/astro-gateway/internal/domain"
)

// LoginProfile is the profile the front end already received from the backend.
type LoginProfile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// LoginRequest payload for POST /api/session/login.
type LoginRequest struct {
	Profile LoginProfile `json:"profile"`
	Role    string       `json:"role"`
	Token   string       `json:"token"`
}

// ToDomain converts the payload into a profile.
func (r LoginRequest) ToDomain() domain.Profile {
	return domain.Profile{
		ID:       r.Profile.ID,
		FullName: r.Profile.FullName,
		Email:    r.Profile.Email,
		Role:     domain.ParseRole(r.Role),
	}
}

// SessionResponse wraps an auth state.
type SessionResponse struct {
	Data domain.AuthState `json:"data"`
}

// JournalEntry is one recorded auth transition.
type JournalEntry struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Role       string    `json:"role,omitempty"`
	ProfileID  *string   `json:"profileId,omitempty"`
	LoggedIn   bool      `json:"isLoggedIn"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewJournalEntries converts journal rows for output.
func NewJournalEntries(rows []domain.SessionEvent) []JournalEntry {
	out := make([]JournalEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, JournalEntry{
			ID:         r.ID,
			Type:       r.Type,
			Role:       string(r.Role),
			ProfileID:  r.ProfileID,
			LoggedIn:   r.LoggedIn,
			OccurredAt: r.OccurredAt,
		})
	}
	return out
}
