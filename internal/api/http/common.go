// Package http is the thin HTTP skin over the tracking engine: handlers
// decode, call one engine operation, and encode. All policy lives below.
package http

import (
	"net/http"

	auth "github.com/mind-engage/scorm-engine/internal/auth/middleware"
	"github.com/mind-engage/scorm-engine/internal/rbac"
)

func subjectOf(r *http.Request) string {
	return auth.SubjectFromContext(r.Context())
}

// effectiveUser resolves which user a read applies to. A ?user= override
// naming someone other than the authenticated subject requires the
// matching all-users permission; without it the handler answers 403 and
// the caller must return.
func effectiveUser(w http.ResponseWriter, r *http.Request, allPerm rbac.Permission) (string, bool) {
	self := subjectOf(r)
	u := r.URL.Query().Get("user")
	if u == "" || u == self {
		return self, true
	}
	if !rbac.Allowed(rbac.RoleFromContext(r.Context()), allPerm) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return u, true
}
