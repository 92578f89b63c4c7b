package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the authenticated owner of a vault.
type User struct {
	// ID is a UUIDv5 derived from the identity provider subject,
	// so the same Google account always maps to the same vault.
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// UserIDFromSubject derives the stable user id for a provider subject.
func UserIDFromSubject(provider, subject string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(provider+":"+subject)).String()
}

// Session is the explicit auth state handed to a reconciler.
// It replaces any ambient "current user" lookup.
type Session struct {
	User      *User
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// UserID returns the session owner id, or "" when unauthenticated.
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Authenticated reports whether a user is resolved.
func (s Session) Authenticated() bool {
	return s.User != nil && s.User.ID != ""
}
