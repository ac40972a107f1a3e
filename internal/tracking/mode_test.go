package tracking

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
)

func modeFixture(t *testing.T) (*MemStore, content.Provider, Key) {
	t.Helper()
	store := NewMemStore()
	scoes := content.NewMemProvider()
	sco := content.SCO{
		PackageID:    "pkg1",
		Organization: "org",
		Identifier:   "item1",
		Parent:       content.RootParent,
		Type:         content.TypeSCO,
		Launch:       "index.html",
	}
	id, err := scoes.PutSCO(context.Background(), sco)
	if err != nil {
		t.Fatal(err)
	}
	return store, scoes, Key{UserID: "u1", PackageID: "pkg1", SCOID: id, Attempt: 1}
}

func TestResolveModeBrowse(t *testing.T) {
	store, scoes, _ := modeFixture(t)
	ctx := context.Background()

	got, err := ResolveMode(ctx, store, scoes, Settings{}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeBrowse, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != cmi.ModeBrowse {
		t.Fatalf("browse denied without hidebrowse: %+v", got)
	}

	got, err = ResolveMode(ctx, store, scoes, Settings{HideBrowse: true}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeBrowse, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != cmi.ModeNormal {
		t.Fatalf("hidebrowse did not force normal: %+v", got)
	}
}

func TestResolveModeForceAlways(t *testing.T) {
	store, scoes, key := modeFixture(t)
	ctx := context.Background()
	s := Settings{ForceNewAttempt: ForceAttemptAlways}

	// First entry ever stays on attempt 1.
	got, err := ResolveMode(ctx, store, scoes, s, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 1 || !got.NewAttempt {
		t.Fatalf("fresh learner: %+v", got)
	}

	// Any re-entry increments, finished or not.
	seed(t, store, key.UserID, key.SCOID, 1, "cmi.core.lesson_location", "p1")
	got, err = ResolveMode(ctx, store, scoes, s, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 2 || got.Mode != cmi.ModeNormal {
		t.Fatalf("re-entry: %+v", got)
	}
}

func TestResolveModeNewAttemptNeedsFinishedAttempt(t *testing.T) {
	store, scoes, key := modeFixture(t)
	ctx := context.Background()
	seed(t, store, key.UserID, key.SCOID, 1, cmi.ElemLessonStatus, "incomplete")

	got, err := ResolveMode(ctx, store, scoes, Settings{}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1, NewAttempt: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.NewAttempt || got.Attempt != 1 || got.Mode != cmi.ModeNormal {
		t.Fatalf("unfinished attempt grew a new one: %+v", got)
	}
}

func TestResolveModeFinishedAttempt(t *testing.T) {
	store, scoes, key := modeFixture(t)
	ctx := context.Background()
	seed(t, store, key.UserID, key.SCOID, 1, cmi.ElemLessonStatus, "passed")

	// Requested new attempt on a finished one: granted within the limit.
	got, err := ResolveMode(ctx, store, scoes, Settings{MaxAttempt: 3}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1, NewAttempt: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 2 || got.Mode != cmi.ModeNormal {
		t.Fatalf("new attempt not granted: %+v", got)
	}

	// At the limit: re-entry drops to review mode.
	got, err = ResolveMode(ctx, store, scoes, Settings{MaxAttempt: 1}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1, NewAttempt: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 1 || got.Mode != cmi.ModeReview {
		t.Fatalf("limit not enforced: %+v", got)
	}

	// On-complete forcing opens a new attempt without an explicit request.
	got, err = ResolveMode(ctx, store, scoes, Settings{ForceNewAttempt: ForceAttemptOnComplete}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 2 || got.Mode != cmi.ModeNormal {
		t.Fatalf("oncomplete forcing: %+v", got)
	}
}

func TestResolveModeLastAttemptLock(t *testing.T) {
	store, scoes, key := modeFixture(t)
	ctx := context.Background()

	// No history: the lock has nothing to hold on to.
	s := Settings{MaxAttempt: 1, LastAttemptLock: true}
	if _, err := ResolveMode(ctx, store, scoes, s, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1}); err != nil {
		t.Fatalf("fresh learner locked out: %v", err)
	}

	seed(t, store, key.UserID, key.SCOID, 1, cmi.ElemLessonStatus, "passed")

	// Attempts left under the limit: entry still allowed.
	s.MaxAttempt = 2
	got, err := ResolveMode(ctx, store, scoes, s, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1, NewAttempt: true})
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempt != 2 {
		t.Fatalf("locked package with attempts left: %+v", got)
	}

	// Limit reached: even review re-entry is denied.
	s.MaxAttempt = 1
	if _, err := ResolveMode(ctx, store, scoes, s, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1}); !errors.Is(err, ErrAttemptLocked) {
		t.Fatalf("exhausted attempts not locked: %v", err)
	}

	// Without the lock the same learner re-enters in review mode.
	got, err = ResolveMode(ctx, store, scoes, Settings{MaxAttempt: 1}, "u1", "pkg1", "org",
		LaunchState{Mode: cmi.ModeNormal, Attempt: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != cmi.ModeReview {
		t.Fatalf("unlocked re-entry: %+v", got)
	}
}
