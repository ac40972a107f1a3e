package tracking

import (
	"context"

	"github.com/mind-engage/scorm-engine/internal/cmi"
)

// Resolver answers attempt-number questions for one user and package.
// Empty histories resolve to attempt 1: a learner who never launched
// anything is on their first attempt.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver { return &Resolver{store: store} }

func (r *Resolver) LastAttempt(ctx context.Context, userID, packageID string) (int, error) {
	n, err := r.store.MaxAttempt(ctx, userID, packageID)
	return orFirst(n), err
}

func (r *Resolver) FirstAttempt(ctx context.Context, userID, packageID string) (int, error) {
	n, err := r.store.MinAttempt(ctx, userID, packageID)
	return orFirst(n), err
}

// LastCompletedAttempt is the highest attempt holding any completed or
// passed value, falling back to 1 when none qualify.
func (r *Resolver) LastCompletedAttempt(ctx context.Context, userID, packageID string) (int, error) {
	n, err := r.store.MaxSatisfiedAttempt(ctx, userID, packageID)
	return orFirst(n), err
}

func (r *Resolver) AllAttempts(ctx context.Context, userID, packageID string) ([]int, error) {
	return r.store.DistinctAttempts(ctx, userID, packageID)
}

// AttemptCount counts distinct attempt numbers. With ignoreMissing set,
// attempts that never reported the version's completion element are
// excluded, which keeps averaged grades from sinking under abandoned
// launches.
func (r *Resolver) AttemptCount(ctx context.Context, userID, packageID, version string, bySCOCount, ignoreMissing bool) (int, error) {
	element := ""
	if ignoreMissing {
		element = CompletionElement(version, bySCOCount)
	}
	return r.store.CountAttempts(ctx, userID, packageID, element)
}

// IncompleteAttempt reports whether the attempt still has work in it:
// every launchable SCO must carry a terminal status before the attempt
// counts as finished. statuses maps SCO id to the attempt's status value;
// scoIDs lists every launchable SCO in the package.
func IncompleteAttempt(scoIDs []int64, statuses map[int64]string) bool {
	for _, id := range scoIDs {
		switch statuses[id] {
		case cmi.StatusCompleted, cmi.StatusPassed, cmi.StatusFailed:
		default:
			return true
		}
	}
	return len(scoIDs) == 0
}

func orFirst(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
