// Package token issues and verifies HS256-signed session tokens.
package token

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/noteshub/internal/errs"
)

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// Claims are the verified contents of a session token.
type Claims struct {
	Subject   string // email
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens with a single process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a token service. The secret is copied; ttl <= 0 selects DefaultTTL.
func New(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Service{
		secret: slices.Clone(secret),
		ttl:    ttl,
		now:    time.Now,
		// expiry is checked by Verify against the injected clock
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// TTL returns the configured session lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue signs a token for subject carrying a snapshot of roles.
func (s *Service) Issue(subject string, roles []string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token: empty subject")
	}
	now := s.now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(s.ttl))

	snapshot := slices.Clone(roles)
	slices.Sort(snapshot)
	snapshot = slices.Compact(snapshot)

	claims := jwtClaims{
		Roles: snapshot,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, exp.Time, nil
}

// Verify checks the signature first and expiry second. Every failure wraps
// errs.ErrTokenInvalid together with one of ErrTokenMalformed, ErrTokenSignature
// or ErrTokenExpired. A token is expired once now >= exp.
func (s *Service) Verify(raw string) (Claims, error) {
	var c jwtClaims
	_, err := s.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, invalid(errs.ErrTokenMalformed, err)
		}
		return Claims{}, invalid(errs.ErrTokenSignature, err)
	}
	if c.Subject == "" || c.ExpiresAt == nil {
		return Claims{}, invalid(errs.ErrTokenMalformed, errors.New("missing sub or exp"))
	}
	if !s.now().Before(c.ExpiresAt.Time) {
		return Claims{}, invalid(errs.ErrTokenExpired, fmt.Errorf("expired at %s", c.ExpiresAt.Time.UTC().Format(time.RFC3339)))
	}

	out := Claims{
		Subject:   c.Subject,
		Roles:     c.Roles,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}

func invalid(reason, cause error) error {
	return fmt.Errorf("%w: %w: %v", errs.ErrTokenInvalid, reason, cause)
}

// Reason returns a short label for a Verify failure, for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, errs.ErrTokenSignature):
		return "token_signature"
	case errors.Is(err, errs.ErrTokenMalformed):
		return "token_malformed"
	default:
		return "error"
	}
}
