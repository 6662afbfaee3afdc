// Package service contains application services: authentication, notes, profiles and administration.
// Every operation that acts on behalf of a caller takes the *model.Principal explicitly.
package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/and161185/noteshub/internal/errs"
	"github.com/and161185/noteshub/internal/model"
)

// Session is the result of a successful register or login.
type Session struct {
	Tokens model.Tokens
	User   *model.User
}

// PrincipalOf builds the request principal from a live user record.
func PrincipalOf(u *model.User) *model.Principal {
	if u == nil {
		return nil
	}
	return &model.Principal{UserID: u.ID, Email: u.Email, Roles: model.NormalizeRoles(u.Roles)}
}

func roleNames(roles []model.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// NormalizeEmail trims and lower-cases an address and checks it is a bare addr-spec.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", errs.ErrValidation)
	}
	a, err := mail.ParseAddress(email)
	if err != nil || a.Address != email {
		return "", fmt.Errorf("%w: invalid email", errs.ErrValidation)
	}
	return email, nil
}
