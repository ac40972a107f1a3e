package rbac

import (
	"context"
	"strings"
)

// Allowed reports whether the role holds the permission under the default
// policy. A trailing "*" in a grant matches by prefix, so "track:*" covers
// every track operation.
func Allowed(role string, perm Permission) bool {
	for _, g := range grants[role] {
		if g == perm || g == "*" {
			return true
		}
		if p := string(g); strings.HasSuffix(p, "*") &&
			strings.HasPrefix(string(perm), strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

// AllowedAny reports whether the role holds at least one of the
// permissions.
func AllowedAny(role string, perms ...Permission) bool {
	for _, p := range perms {
		if Allowed(role, p) {
			return true
		}
	}
	return false
}

type roleKey struct{}

// WithRole attaches the authenticated role to the request context.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the authenticated role, "" if none.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
