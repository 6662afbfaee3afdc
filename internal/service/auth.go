package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/noteshub/internal/crypto"
	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/federation"
	"github.com/and161185/noteshub/internal/limiter"
	"github.com/and161185/noteshub/internal/model"
	"github.com/and161185/noteshub/internal/repository"
	"github.com/and161185/noteshub/internal/token"
)

// MinPasswordLen is the shortest accepted local password.
const MinPasswordLen = 8

// AuthService registers identities and opens sessions.
type AuthService struct {
	users  repository.UserRepository
	tokens *token.Service
	lim    limiter.Limiter
	google federation.Verifier
	log    *zap.Logger

	// digest verified against for unknown emails and password-less identities, so every failure costs one Argon2 run
	dummy []byte

	verify func(password, digest []byte) bool
}

// AuthOption configures AuthService.
type AuthOption func(*AuthService)

// WithLimiter sets the login limiter. The default never blocks.
func WithLimiter(l limiter.Limiter) AuthOption {
	return func(s *AuthService) { s.lim = l }
}

// WithGoogle enables federated login.
func WithGoogle(v federation.Verifier) AuthOption {
	return func(s *AuthService) { s.google = v }
}

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) AuthOption {
	return func(s *AuthService) { s.log = l }
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens *token.Service, opts ...AuthOption) (*AuthService, error) {
	s := &AuthService{
		users:  users,
		tokens: tokens,
		lim:    limiter.Nop{},
		log:    zap.NewNop(),
		verify: pkgcrypto.VerifyPassword,
	}
	for _, o := range opts {
		o(s)
	}
	dummy, err := pkgcrypto.HashPassword([]byte("noteshub-dummy-password"))
	if err != nil {
		return nil, err
	}
	s.dummy = dummy
	return s, nil
}

// GoogleEnabled reports whether federated login is configured.
func (s *AuthService) GoogleEnabled() bool { return s.google != nil }

// Register creates a USER identity and opens a session for it.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLen {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", errs.ErrValidation, MinPasswordLen)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if exists {
		return Session{}, errs.ErrAlreadyExists
	}

	hash, err := pkgcrypto.HashPassword([]byte(password))
	if err != nil {
		return Session{}, err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.Create(ctx, &model.User{
		ID:           uid,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     model.ProviderLocal,
		Roles:        []model.Role{model.RoleUser},
	})
	if err != nil {
		return Session{}, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID.String()))
	return s.open(u)
}

// Login checks credentials with rate limiting by (email, client address).
// Unknown email and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, remoteAddr string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	ipHash := limiter.HashIP(remoteAddr)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return Session{}, err
	}
	if !allowed {
		return Session{}, errs.ErrRateLimited
	}

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		s.verify([]byte(password), s.dummy)
		return Session{}, s.fail(ctx, email, ipHash)
	case err != nil:
		return Session{}, err
	}
	// federated identities have no digest; they pay the same Argon2 cost as a wrong password
	if len(u.PasswordHash) == 0 {
		s.verify([]byte(password), s.dummy)
		return Session{}, s.fail(ctx, email, ipHash)
	}
	if !s.verify([]byte(password), u.PasswordHash) {
		return Session{}, s.fail(ctx, email, ipHash)
	}

	if err := s.lim.Success(ctx, email, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.Error(err))
	}
	if u.Restricted {
		return Session{}, errs.ErrAccountRestricted
	}
	return s.open(u)
}

func (s *AuthService) fail(ctx context.Context, email string, ipHash []byte) error {
	blocked, _, err := s.lim.Failure(ctx, email, ipHash)
	if err != nil {
		s.log.Warn("limiter failure record failed", zap.Error(err))
	}
	if blocked {
		return errs.ErrRateLimited
	}
	return errs.ErrInvalidCredentials
}

// GoogleLogin exchanges a Google ID token for a session, creating the identity on first use.
// It returns errs.ErrNotFound when federated login is not configured.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (Session, error) {
	if s.google == nil {
		return Session{}, errs.ErrNotFound
	}
	if strings.TrimSpace(idToken) == "" {
		return Session{}, fmt.Errorf("%w: idToken is required", errs.ErrValidation)
	}
	id, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.log.Debug("google token rejected", zap.Error(err))
		return Session{}, err
	}

	u, err := s.users.FindByEmail(ctx, id.Email)
	if errors.Is(err, errs.ErrNotFound) {
		u, err = s.createFederated(ctx, id)
		if err == nil {
			return s.open(u)
		}
		if errors.Is(err, errs.ErrAlreadyExists) {
			// a concurrent sign-up took the email first
			u, err = s.users.FindByEmail(ctx, id.Email)
		}
	}
	if err != nil {
		return Session{}, err
	}
	if u.Restricted {
		return Session{}, errs.ErrAccountRestricted
	}

	var fill model.ProfileUpdate
	if u.ProfilePicture == "" && id.Picture != "" {
		fill.ProfilePicture = &id.Picture
	}
	if u.Name == "" && id.Name != "" {
		fill.Name = &id.Name
	}
	if fill.Name != nil || fill.ProfilePicture != nil {
		if u, err = s.users.UpdateProfile(ctx, u.ID, fill); err != nil {
			return Session{}, err
		}
		if u.Restricted {
			return Session{}, errs.ErrAccountRestricted
		}
	}
	return s.open(u)
}

func (s *AuthService) createFederated(ctx context.Context, id federation.Identity) (*model.User, error) {
	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	name := id.Name
	if name == "" {
		name, _, _ = strings.Cut(id.Email, "@")
	}
	u, err := s.users.Create(ctx, &model.User{
		ID:             uid,
		Email:          id.Email,
		Name:           name,
		Provider:       model.ProviderGoogle,
		Roles:          []model.Role{model.RoleUser},
		ProfilePicture: id.Picture,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("federated user created", zap.String("user_id", u.ID.String()))
	return u, nil
}

// BootstrapAdmin creates the primary admin account if it does not exist yet.
// Empty email or password disables bootstrapping.
func (s *AuthService) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil || exists {
		return err
	}
	hash, err := pkgcrypto.HashPassword([]byte(password))
	if err != nil {
		return err
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return err
	}
	name, _, _ := strings.Cut(email, "@")
	_, err = s.users.Create(ctx, &model.User{
		ID:           uid,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Provider:     model.ProviderLocal,
		Roles:        []model.Role{model.RoleAdmin, model.RoleUser},
	})
	if errors.Is(err, errs.ErrAlreadyExists) {
		return nil
	}
	if err == nil {
		s.log.Info("primary admin created", zap.String("email", email))
	}
	return err
}

func (s *AuthService) open(u *model.User) (Session, error) {
	tok, exp, err := s.tokens.Issue(u.Email, roleNames(u.Roles))
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{Tokens: model.Tokens{AccessToken: tok, ExpiresAt: exp}, User: u}, nil
}
