package tracking

import (
	"context"
	"errors"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
)

var (
	// ErrNotFound reports a missing tracking record.
	ErrNotFound = errors.New("tracking: record not found")
	// ErrInvalidKey reports a write with a missing mandatory identifier.
	// This is a caller bug, never tolerated silently.
	ErrInvalidKey = errors.New("tracking: missing user, package, sco or attempt")
	// ErrDerivedUpdate wraps failures of the synchronous grade/completion
	// recomputation or event publication that follow a successful write.
	// The track itself is stored; callers that only care about the write
	// may ignore errors matching this sentinel.
	ErrDerivedUpdate = errors.New("tracking: derived update failed")
	// ErrAttemptLocked reports a re-entry denied because the package locks
	// the content after the final attempt is used up.
	ErrAttemptLocked = errors.New("tracking: attempts exhausted and last attempt locked")
)

// Record is a single tracked fact about one attempt. At most one record
// exists per (user, sco, attempt, element) key.
type Record struct {
	ID        int64
	UserID    string
	PackageID string
	SCOID     int64
	Attempt   int
	Element   string
	Value     string
	Modified  int64
}

// Store is the tracking key-value store. Implementations provide atomic
// per-key upserts; last write wins for conflicting submissions.
type Store interface {
	Get(ctx context.Context, userID string, scoID int64, attempt int, element string) (Record, error)
	// GetSCO returns every record of one (user, sco, attempt), ordered by
	// element name.
	GetSCO(ctx context.Context, userID string, scoID int64, attempt int) ([]Record, error)
	Insert(ctx context.Context, r Record) (int64, error)
	Update(ctx context.Context, r Record) error

	HasTracks(ctx context.Context, userID, packageID string) (bool, error)
	MaxAttempt(ctx context.Context, userID, packageID string) (int, error)
	MinAttempt(ctx context.Context, userID, packageID string) (int, error)
	// MaxSatisfiedAttempt returns the highest attempt number holding any
	// record whose value is "completed" or "passed"; 0 if none.
	MaxSatisfiedAttempt(ctx context.Context, userID, packageID string) (int, error)
	DistinctAttempts(ctx context.Context, userID, packageID string) ([]int, error)
	// CountAttempts counts distinct attempt numbers; when element is
	// non-empty only attempts carrying that element are counted.
	CountAttempts(ctx context.Context, userID, packageID, element string) (int, error)

	// AttemptElements returns, per SCO, the value of one element within an
	// attempt. SCOes without the element are absent from the map.
	AttemptElements(ctx context.Context, userID, packageID string, attempt int, element string) (map[int64]string, error)
	// UserElements returns every record for the named elements across all
	// of a user's attempts on a package.
	UserElements(ctx context.Context, userID, packageID string, elements []string) ([]Record, error)
	// RuntimeWindow returns the first and last modification instants of an
	// attempt, optionally narrowed to one SCO (scoID 0 means any).
	RuntimeWindow(ctx context.Context, userID, packageID string, scoID int64, attempt int) (start, finish int64, err error)

	// DeleteAttempt removes every record of one attempt in a single bulk
	// operation. DeleteUser removes all of a user's records for a package.
	DeleteAttempt(ctx context.Context, userID, packageID string, attempt int) error
	DeleteUser(ctx context.Context, userID, packageID string) error
}

// SnapshotFor projects one (user, sco, attempt)'s records into a snapshot.
// ok is false when the user has no tracks there yet.
func SnapshotFor(ctx context.Context, s Store, userID string, scoID int64, attempt int) (cmi.Snapshot, bool, error) {
	records, err := s.GetSCO(ctx, userID, scoID, attempt)
	if err != nil {
		return cmi.Snapshot{}, false, err
	}
	if len(records) == 0 {
		return cmi.NewSnapshot(userID, scoID, attempt), false, nil
	}
	snap := cmi.NewSnapshot(userID, scoID, attempt)
	for _, r := range records {
		snap.Apply(r.Element, r.Value, r.Modified)
	}
	return snap, true, nil
}

// CompletionElement returns the element whose presence marks an attempt as
// having reported completion, for attempt-counting purposes. The choice is
// version-dependent; for 1.2 packages graded by SCO count the status element
// is authoritative, otherwise the raw score is.
func CompletionElement(version string, bySCOCount bool) string {
	if version == content.VersionSCORM13 {
		return cmi.ElemScoreRaw2004
	}
	if bySCOCount {
		return cmi.ElemLessonStatus
	}
	return cmi.ElemScoreRaw
}
