// Package convert maps domain models to and from the JSON wire types of the HTTP API.
package convert

import (
	"time"

	model "github.com/and161185/noteshub/internal/model"
)

// --- helpers ---

func ts(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func roles(rs []model.Role) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}

// --- requests (client -> server) ---

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest is the body of POST /api/auth/google.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// NoteRequest is the body of note create and update.
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ProfileRequest is the body of PUT /api/user/profile. Absent fields stay unchanged.
type ProfileRequest struct {
	Name           *string `json:"name,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// FromNoteRequest converts a note body to domain input.
func FromNoteRequest(r NoteRequest) model.NoteInput {
	return model.NoteInput{Title: r.Title, Content: r.Content}
}

// FromProfileRequest converts a profile body to a domain update.
func FromProfileRequest(r ProfileRequest) model.ProfileUpdate {
	return model.ProfileUpdate{Name: r.Name, Bio: r.Bio, ProfilePicture: r.ProfilePicture}
}

// --- responses (server -> client) ---

// User is the public view of an identity. Password material never leaves the server.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Provider       string     `json:"provider"`
	Roles          []string   `json:"roles"`
	Restricted     bool       `json:"restricted"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	Bio            string     `json:"bio,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	NotesCount     *int64     `json:"notesCount,omitempty"`
}

// ToUser converts a domain user.
func ToUser(u *model.User) *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:             u.ID.String(),
		Email:          u.Email,
		Name:           u.Name,
		Provider:       string(u.Provider),
		Roles:          roles(u.Roles),
		Restricted:     u.Restricted,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		CreatedAt:      ts(u.CreatedAt),
	}
}

// ToUserSummaries converts the admin listing.
func ToUserSummaries(in []model.UserSummary) []*User {
	out := make([]*User, 0, len(in))
	for i := range in {
		u := ToUser(&in[i].User)
		cnt := in[i].NotesCount
		u.NotesCount = &cnt
		out = append(out, u)
	}
	return out
}

// Auth is returned by register and login.
type Auth struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// ToAuth converts an issued token and its user.
func ToAuth(tokens model.Tokens, u *model.User) Auth {
	return Auth{Token: tokens.AccessToken, ExpiresAt: tokens.ExpiresAt.UTC(), User: ToUser(u)}
}

// Note is the owner's view of a note.
type Note struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	ShareToken *string    `json:"shareToken"`
	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// ToNote converts a note for its owner.
func ToNote(n *model.Note) *Note {
	if n == nil {
		return nil
	}
	return &Note{
		ID:         n.ID.String(),
		Title:      n.Title,
		Content:    n.Content,
		ShareToken: n.ShareToken,
		CreatedAt:  ts(n.CreatedAt),
		UpdatedAt:  ts(n.UpdatedAt),
	}
}

// ToNotes converts a slice of notes for their owner.
func ToNotes(ns []model.Note) []*Note {
	out := make([]*Note, 0, len(ns))
	for i := range ns {
		out = append(out, ToNote(&ns[i]))
	}
	return out
}

// SharedNote is the anonymous view of a shared note: no owner, no token.
type SharedNote struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ToSharedNote converts a note for a share-token reader.
func ToSharedNote(n *model.Note) *SharedNote {
	if n == nil {
		return nil
	}
	return &SharedNote{ID: n.ID.String(), Title: n.Title, Content: n.Content, UpdatedAt: ts(n.UpdatedAt)}
}

// Stats is the admin dashboard payload.
type Stats struct {
	TotalUsers      int64 `json:"totalUsers"`
	TotalAdmins     int64 `json:"totalAdmins"`
	RestrictedUsers int64 `json:"restrictedUsers"`
	TotalNotes      int64 `json:"totalNotes"`
}

// ToStats converts dashboard counters.
func ToStats(s model.Stats) Stats {
	return Stats(s)
}

// Error is the body of every non-2xx response.
type Error struct {
	Error string `json:"error"`
}
