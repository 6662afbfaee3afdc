// Package federation verifies identity tokens issued by external providers.
package federation

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/and161185/noteshub/internal/errs"
)

// Google issuer and signing keys.
const (
	GoogleIssuer  = "https://accounts.google.com"
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Identity is the verified subset of provider claims used to build a local account.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier checks a raw ID token and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, rawIDToken string) (Identity, error)
}

// Google verifies Google ID tokens for one OAuth client.
type Google struct {
	v *oidc.IDTokenVerifier
}

// NewGoogle builds a verifier that fetches Google's signing keys lazily on first use.
// An empty issuer selects GoogleIssuer.
func NewGoogle(ctx context.Context, clientID, issuer string) *Google {
	if issuer == "" {
		issuer = GoogleIssuer
	}
	return NewGoogleWithKeySet(oidc.NewRemoteKeySet(ctx, GoogleJWKSURL), clientID, issuer)
}

// NewGoogleWithKeySet builds a verifier over an explicit key set.
func NewGoogleWithKeySet(keys oidc.KeySet, clientID, issuer string) *Google {
	return &Google{v: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify checks signature, issuer, audience and expiry, then requires a verified email.
// Every rejection wraps errs.ErrInvalidCredentials.
func (g *Google) Verify(ctx context.Context, raw string) (Identity, error) {
	tok, err := g.v.Verify(ctx, raw)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: id token: %w", errs.ErrInvalidCredentials, err)
	}
	var c googleClaims
	if err := tok.Claims(&c); err != nil {
		return Identity{}, fmt.Errorf("%w: id token claims: %w", errs.ErrInvalidCredentials, err)
	}
	if c.Email == "" || !c.EmailVerified {
		return Identity{}, fmt.Errorf("%w: email not verified", errs.ErrInvalidCredentials)
	}
	return Identity{
		Subject: tok.Subject,
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Name:    c.Name,
		Picture: c.Picture,
	}, nil
}
