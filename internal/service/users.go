package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/repository"
)

// Profile field limits, in characters.
const (
	MaxNameLen    = 100
	MaxBioLen     = 500
	MaxPictureLen = 2048
)

// UserService serves the caller's own profile.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Profile returns the caller's record.
func (s *UserService) Profile(ctx context.Context, p *model.Principal) (*model.User, error) {
	if p == nil {
		return nil, errs.ErrForbidden
	}
	return s.users.FindByID(ctx, p.UserID)
}

// UpdateProfile applies the non-nil fields of upd to the caller's record.
// Only profile columns are written; roles and restriction are left to whoever holds them.
func (s *UserService) UpdateProfile(ctx context.Context, p *model.Principal, upd model.ProfileUpdate) (*model.User, error) {
	if p == nil {
		return nil, errs.ErrForbidden
	}
	var clean model.ProfileUpdate
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be blank", errs.ErrValidation)
		}
		if utf8.RuneCountInString(name) > MaxNameLen {
			return nil, fmt.Errorf("%w: name longer than %d characters", errs.ErrValidation, MaxNameLen)
		}
		clean.Name = &name
	}
	if upd.Bio != nil {
		if utf8.RuneCountInString(*upd.Bio) > MaxBioLen {
			return nil, fmt.Errorf("%w: bio longer than %d characters", errs.ErrValidation, MaxBioLen)
		}
		bio := *upd.Bio
		clean.Bio = &bio
	}
	if upd.ProfilePicture != nil {
		if len(*upd.ProfilePicture) > MaxPictureLen {
			return nil, fmt.Errorf("%w: profile picture reference too long", errs.ErrValidation)
		}
		pic := strings.TrimSpace(*upd.ProfilePicture)
		clean.ProfilePicture = &pic
	}
	return s.users.UpdateProfile(ctx, p.UserID, clean)
}
