// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/noteshub/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository is the credential store.
// Lookups by email expect an already lower-cased address. Updates touch only the
// columns they name, so concurrent profile, role and restriction changes never undo each other.
type UserRepository interface {
	// FindByEmail loads a user by email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// FindByID loads a user by ID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// Create inserts a new user and returns the stored row. A taken email or ID yields errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.User) (*model.User, error)
	// UpdateProfile writes only the non-nil fields of upd and returns the stored row.
	UpdateProfile(ctx context.Context, id uuid.UUID, upd model.ProfileUpdate) (*model.User, error)
	// SetRestricted sets the restricted flag and returns the stored row.
	SetRestricted(ctx context.Context, id uuid.UUID, restricted bool) (*model.User, error)
	// ChangeRole adds or removes a single role in place and returns the stored row.
	ChangeRole(ctx context.Context, id uuid.UUID, role model.Role, add bool) (*model.User, error)
	// ExistsByEmail reports whether the email is taken.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// List returns all users with their note counts, newest first.
	List(ctx context.Context) ([]model.UserSummary, error)
	// Stats returns admin dashboard counters.
	Stats(ctx context.Context) (model.Stats, error)
	// DeleteCascade removes the user together with every note it owns.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}
