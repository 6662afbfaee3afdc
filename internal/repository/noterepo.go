package repository

import (
	"context"

	"github.com/and161185/noteshub/internal/model"
	"github.com/gofrs/uuid/v5"
)

// NoteRepository provides access to notes. It never filters by owner:
// ownership is decided by the policy layer on the loaded record.
type NoteRepository interface {
	// Create inserts a note.
	Create(ctx context.Context, n *model.Note) error
	// Get returns a note by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Note, error)
	// ListByOwner returns the owner's notes, most recently updated first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Note, error)
	// Update stores title and content and returns the new updated_at.
	Update(ctx context.Context, n *model.Note) error
	// Delete removes a note.
	Delete(ctx context.Context, id uuid.UUID) error
	// SetShareToken stores or clears (nil) the share token.
	// A token already used by another note yields errs.ErrAlreadyExists.
	SetShareToken(ctx context.Context, id uuid.UUID, token *string) error
	// FindByShareToken returns the note carrying exactly this token.
	FindByShareToken(ctx context.Context, token string) (*model.Note, error)
}
