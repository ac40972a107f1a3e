package rbac

import "net/http"

func guard(check func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(RoleFromContext(r.Context())) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require gates a route on a single permission.
func Require(perm Permission) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return Allowed(role, perm) })
}

// RequireAny gates a route on holding at least one of the permissions,
// the shape own-vs-all read routes take.
func RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return guard(func(role string) bool { return AllowedAny(role, perms...) })
}
