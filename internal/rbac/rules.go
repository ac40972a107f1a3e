// Package rbac maps the engine's three roles onto the operations the HTTP
// surface exposes. Learners write and read their own runtime data;
// instructors manage packages and everyone's attempts; admin can do
// anything.
package rbac

// Permission names one guarded operation, "area:action".
type Permission string

const (
	PermPackageView      Permission = "package:view"
	PermPackageConfigure Permission = "package:configure"
	PermTrackWrite       Permission = "track:write"
	PermTrackViewOwn     Permission = "track:view-own"
	PermTrackViewAll     Permission = "track:view-all"
	PermNavFlow          Permission = "nav:flow"
	PermAttemptViewOwn   Permission = "attempt:view-own"
	PermAttemptViewAll   Permission = "attempt:view-all"
	PermAttemptDelete    Permission = "attempt:delete"
	PermGradeViewAll     Permission = "grade:view-all"
)

// grants is the default role policy. The admin wildcard matches every
// permission, present and future.
var grants = map[string][]Permission{
	"learner": {
		PermPackageView,
		PermTrackWrite,
		PermTrackViewOwn,
		PermNavFlow,
		PermAttemptViewOwn,
	},
	"instructor": {
		PermPackageView,
		PermPackageConfigure,
		PermNavFlow,
		PermTrackViewAll,
		PermAttemptViewAll,
		PermAttemptDelete,
		PermGradeViewAll,
	},
	"admin": {"*"},
}
