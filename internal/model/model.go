// Package model defines domain entities used by services and repositories.
package model

import (
	"slices"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is a named authority carried by an identity.
type Role string

// Known roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Provider tells how an identity authenticates.
type Provider string

// Known providers.
const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
)

// Tokens collects an issued session token.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // absolute expiry, no sliding renewal
}

// User is an identity stored on the server.
type User struct {
	ID             uuid.UUID // PK
	Email          string    // unique, lower-cased
	Name           string
	PasswordHash   []byte // PHC-encoded Argon2id digest; nil for federated identities
	Provider       Provider
	Roles          []Role
	Restricted     bool
	ProfilePicture string
	Bio            string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasRole reports whether the user currently holds role r.
func (u *User) HasRole(r Role) bool {
	return u != nil && slices.Contains(u.Roles, r)
}

// Principal is the authenticated caller of a request, built from the live user record.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Roles  []Role
}

// HasRole reports whether the principal holds role r. A nil principal holds nothing.
func (p *Principal) HasRole(r Role) bool {
	return p != nil && slices.Contains(p.Roles, r)
}

// Note is a user-owned resource. OwnerID never changes after creation.
type Note struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Title      string
	Content    string
	ShareToken *string // nil when the note is not shared
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NoteInput carries the client-editable fields of a note.
type NoteInput struct {
	Title   string
	Content string
}

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	Name           *string
	Bio            *string
	ProfilePicture *string
}

// UserSummary is an admin listing row.
type UserSummary struct {
	User
	NotesCount int64
}

// Stats aggregates admin dashboard counters.
type Stats struct {
	TotalUsers      int64
	TotalAdmins     int64
	RestrictedUsers int64
	TotalNotes      int64
}

// NormalizeRoles returns a sorted copy of roles without duplicates or empty names.
func NormalizeRoles(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
