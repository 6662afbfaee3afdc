// Package policy holds every authorization rule of the service. Each decision
// function is total: it returns true (allow) or false (deny) for any input,
// including a nil (anonymous) principal.
package policy

import (
	"crypto/subtle"
	"slices"
	"strings"

	"github.com/and161185/noteshub/internal/model"
)

// CanAccessAdminRoute allows authenticated principals holding ADMIN.
func CanAccessAdminRoute(p *model.Principal) bool {
	return p.HasRole(model.RoleAdmin)
}

// CanReadOwned allows only the owner of n.
func CanReadOwned(p *model.Principal, n *model.Note) bool {
	return p != nil && n != nil && p.UserID == n.OwnerID
}

// CanWriteOwned shares the ownership rule with CanReadOwned.
func CanWriteOwned(p *model.Principal, n *model.Note) bool {
	return CanReadOwned(p, n)
}

// CanReadShared allows read access to n for anyone presenting its exact share token.
// Identity is irrelevant on this path and nothing grants write access through it.
func CanReadShared(shareToken string, n *model.Note) bool {
	if shareToken == "" || n == nil || n.ShareToken == nil || *n.ShareToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(shareToken), []byte(*n.ShareToken)) == 1
}

// CanRestrictTarget never allows restricting an ADMIN identity, whoever the actor is.
// Otherwise only admins may restrict.
func CanRestrictTarget(actorRoles, targetRoles []model.Role) bool {
	if slices.Contains(targetRoles, model.RoleAdmin) {
		return false
	}
	return slices.Contains(actorRoles, model.RoleAdmin)
}

// Policy carries the rules that depend on deployment configuration.
type Policy struct {
	primaryAdmin string
}

// New builds a Policy. primaryAdminEmail may be empty (no irrevocable admin).
func New(primaryAdminEmail string) *Policy {
	return &Policy{primaryAdmin: strings.ToLower(strings.TrimSpace(primaryAdminEmail))}
}

// IsPrimaryAdmin reports whether u is the configured irrevocable admin account.
func (pol *Policy) IsPrimaryAdmin(u *model.User) bool {
	return pol.primaryAdmin != "" && u != nil && strings.EqualFold(u.Email, pol.primaryAdmin)
}

// CanRemoveRole allows admins to drop a role, except ADMIN from the primary admin.
func (pol *Policy) CanRemoveRole(actor *model.Principal, target *model.User, role model.Role) bool {
	if !CanAccessAdminRoute(actor) || target == nil {
		return false
	}
	return !(role == model.RoleAdmin && pol.IsPrimaryAdmin(target))
}

// CanGrantRole allows admins to add known roles.
func (pol *Policy) CanGrantRole(actor *model.Principal, target *model.User, role model.Role) bool {
	if !CanAccessAdminRoute(actor) || target == nil {
		return false
	}
	return role == model.RoleUser || role == model.RoleAdmin
}

// CanDeleteIdentity allows admins to delete any account but the primary admin.
func (pol *Policy) CanDeleteIdentity(actor *model.Principal, target *model.User) bool {
	if !CanAccessAdminRoute(actor) || target == nil {
		return false
	}
	return !pol.IsPrimaryAdmin(target)
}
