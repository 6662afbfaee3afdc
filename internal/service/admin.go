package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/policy"
	"github.com/and161185/noteshub/internal/repository"
)

// AdminService implements user administration. Every method requires an ADMIN principal.
type AdminService struct {
	users repository.UserRepository
	pol   *policy.Policy
	log   *zap.Logger
}

// NewAdminService constructs AdminService. A nil logger discards.
func NewAdminService(users repository.UserRepository, pol *policy.Policy, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{users: users, pol: pol, log: log}
}

// ListUsers returns every identity with its note count.
func (s *AdminService) ListUsers(ctx context.Context, actor *model.Principal) ([]model.UserSummary, error) {
	if !policy.CanAccessAdminRoute(actor) {
		return nil, errs.ErrForbidden
	}
	return s.users.List(ctx)
}

// Stats returns dashboard counters.
func (s *AdminService) Stats(ctx context.Context, actor *model.Principal) (model.Stats, error) {
	if !policy.CanAccessAdminRoute(actor) {
		return model.Stats{}, errs.ErrForbidden
	}
	return s.users.Stats(ctx)
}

func (s *AdminService) target(ctx context.Context, actor *model.Principal, id uuid.UUID) (*model.User, error) {
	if !policy.CanAccessAdminRoute(actor) {
		return nil, errs.ErrForbidden
	}
	return s.users.FindByID(ctx, id)
}

// SetRestricted restricts or lifts the restriction of an identity.
// Admin identities can never be restricted. The change takes effect on the target's next request.
func (s *AdminService) SetRestricted(ctx context.Context, actor *model.Principal, id uuid.UUID, restrict bool) (*model.User, error) {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if restrict && !policy.CanRestrictTarget(actor.Roles, u.Roles) {
		return nil, errs.ErrForbidden
	}
	out, err := s.users.SetRestricted(ctx, id, restrict)
	if err != nil {
		return nil, err
	}
	s.log.Info("user restriction changed",
		zap.String("actor", actor.UserID.String()),
		zap.String("target", id.String()),
		zap.Bool("restricted", restrict))
	return out, nil
}

// ParseRole maps a role name, case-insensitively, to a known role.
func ParseRole(name string) (model.Role, error) {
	r := model.Role(strings.ToUpper(strings.TrimSpace(name)))
	if r != model.RoleUser && r != model.RoleAdmin {
		return "", fmt.Errorf("%w: unknown role %q", errs.ErrValidation, name)
	}
	return r, nil
}

// ChangeRole grants (add) or revokes a role.
func (s *AdminService) ChangeRole(ctx context.Context, actor *model.Principal, id uuid.UUID, role model.Role, add bool) (*model.User, error) {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if add {
		if !s.pol.CanGrantRole(actor, u, role) {
			return nil, errs.ErrForbidden
		}
	} else if !s.pol.CanRemoveRole(actor, u, role) {
		return nil, errs.ErrForbidden
	}
	out, err := s.users.ChangeRole(ctx, id, role, add)
	if err != nil {
		return nil, err
	}
	s.log.Info("user role changed",
		zap.String("actor", actor.UserID.String()),
		zap.String("target", id.String()),
		zap.String("role", string(role)),
		zap.Bool("add", add))
	return out, nil
}

// DeleteUser removes an identity and every note it owns.
func (s *AdminService) DeleteUser(ctx context.Context, actor *model.Principal, id uuid.UUID) error {
	u, err := s.target(ctx, actor, id)
	if err != nil {
		return err
	}
	if !s.pol.CanDeleteIdentity(actor, u) {
		return errs.ErrForbidden
	}
	if err := s.users.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("actor", actor.UserID.String()), zap.String("target", id.String()))
	return nil
}
