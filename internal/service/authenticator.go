package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/repository"
	"github.com/and161185/noteshub/internal/token"
)

// Authenticator turns a bearer credential into a principal backed by the live user record.
type Authenticator struct {
	users  repository.UserRepository
	tokens *token.Service
	log    *zap.Logger
}

// NewAuthenticator constructs an Authenticator. A nil logger discards.
func NewAuthenticator(users repository.UserRepository, tokens *token.Service, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{users: users, tokens: tokens, log: log}
}

// Authenticate returns (nil, nil) for an empty credential. Otherwise it verifies the token,
// reloads the subject and rejects unknown or restricted identities. Roles come from the
// stored record, not from the token.
func (a *Authenticator) Authenticate(ctx context.Context, bearer string) (*model.Principal, error) {
	if bearer == "" {
		return nil, nil
	}
	claims, err := a.tokens.Verify(bearer)
	if err != nil {
		a.log.Debug("bearer rejected", zap.String("reason", token.Reason(err)), zap.Error(err))
		return nil, err
	}

	u, err := a.users.FindByEmail(ctx, claims.Subject)
	if errors.Is(err, errs.ErrNotFound) {
		a.log.Debug("bearer rejected", zap.String("reason", "unknown_subject"))
		return nil, fmt.Errorf("%w: %w", errs.ErrTokenInvalid, errs.ErrTokenSubject)
	}
	if err != nil {
		return nil, err
	}
	if u.Restricted {
		a.log.Debug("bearer rejected", zap.String("reason", "restricted"), zap.String("user_id", u.ID.String()))
		return nil, errs.ErrAccountRestricted
	}
	return PrincipalOf(u), nil
}

// Outcome labels an Authenticate result for metrics.
func Outcome(p *model.Principal, err error) string {
	switch {
	case err == nil && p == nil:
		return "anonymous"
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrAccountRestricted):
		return "restricted"
	case errors.Is(err, errs.ErrTokenSubject):
		return "unknown_subject"
	default:
		return token.Reason(err)
	}
}
