package tracking

import (
	"context"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
)

// ForceAttempt controls when re-entering a package opens a new attempt.
type ForceAttempt int

const (
	ForceAttemptNo ForceAttempt = iota
	ForceAttemptOnComplete
	ForceAttemptAlways
)

// Settings are the per-package policy knobs the engine consults at launch
// and write time.
type Settings struct {
	Version         string
	MaxAttempt      int // 0 means unlimited
	GradeMethod     string
	WhatGrade       string
	ForceCompleted  bool
	ForceNewAttempt ForceAttempt
	HideBrowse      bool
	LastAttemptLock bool
}

// LaunchState is the resolved entry decision for a learner opening a
// package: which attempt they land in, in which mode, and whether it is a
// fresh attempt.
type LaunchState struct {
	Mode       string
	Attempt    int
	NewAttempt bool
}

// ResolveMode validates a requested launch mode against the package policy
// and the learner's history. Browse requests survive unless browsing is
// hidden. A new attempt is only honored when the current attempt is
// finished and the attempt limit allows it; finished attempts that cannot
// grow a new one re-enter in review mode. With the last-attempt lock set,
// a learner whose countable attempts reach the limit gets ErrAttemptLocked
// instead of review access.
func ResolveMode(ctx context.Context, store Store, scoes content.Provider, s Settings, userID, packageID, organization string, req LaunchState) (LaunchState, error) {
	out := req

	if s.LastAttemptLock && s.MaxAttempt > 0 {
		made, err := NewResolver(store).AttemptCount(ctx, userID, packageID, s.Version, s.GradeMethod == "scoes", false)
		if err != nil {
			return out, err
		}
		if made >= s.MaxAttempt {
			return out, ErrAttemptLocked
		}
	}

	if out.Mode == cmi.ModeBrowse {
		if !s.HideBrowse {
			return out, nil
		}
		out.Mode = cmi.ModeNormal
	}

	if s.ForceNewAttempt == ForceAttemptAlways {
		out.NewAttempt = true
		out.Mode = cmi.ModeNormal
		if out.Attempt == 1 {
			has, err := store.HasTracks(ctx, userID, packageID)
			if err != nil {
				return out, err
			}
			if !has {
				return out, nil
			}
		}
		out.Attempt++
		return out, nil
	}

	incomplete, err := attemptIncomplete(ctx, store, scoes, s.Version, userID, packageID, organization, out.Attempt)
	if err != nil {
		return out, err
	}

	if incomplete {
		// A new attempt can only start from a finished one.
		out.NewAttempt = false
	} else if s.ForceNewAttempt != ForceAttemptNo {
		out.NewAttempt = true
	}

	if out.NewAttempt && (s.MaxAttempt == 0 || out.Attempt < s.MaxAttempt) {
		out.Attempt++
		out.Mode = cmi.ModeNormal
	} else if incomplete {
		out.Mode = cmi.ModeNormal
	} else {
		out.Mode = cmi.ModeReview
	}
	return out, nil
}

func attemptIncomplete(ctx context.Context, store Store, scoes content.Provider, version, userID, packageID, organization string, attempt int) (bool, error) {
	all, err := scoes.ListSCOes(ctx, packageID, organization)
	if err != nil {
		return false, err
	}
	var ids []int64
	for _, sco := range all {
		if sco.Type == content.TypeSCO {
			ids = append(ids, sco.ID)
		}
	}
	statuses, err := store.AttemptElements(ctx, userID, packageID, attempt, statusElement(version))
	if err != nil {
		return false, err
	}
	return IncompleteAttempt(ids, statuses), nil
}

// statusElement picks the element that carries the attempt-finished signal.
// The 2004 model splits lesson_status in two; only completion_status holds
// "completed" there, so passed and failed never appear in it.
func statusElement(version string) string {
	if version == content.VersionSCORM13 {
		return cmi.ElemCompletionStatus
	}
	return cmi.ElemLessonStatus
}
