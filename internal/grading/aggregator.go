package grading

import (
	"context"
	"math"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

// Aggregator turns tracking history into per-attempt scores and a single
// reported grade per user and package.
type Aggregator struct {
	store    tracking.Store
	scoes    content.Provider
	resolver *tracking.Resolver
}

func NewAggregator(store tracking.Store, scoes content.Provider) *Aggregator {
	return &Aggregator{store: store, scoes: scoes, resolver: tracking.NewResolver(store)}
}

// ScoreForAttempt reduces one attempt to a number under the method. The
// second return is false when the package has no SCOes at all, which means
// there is nothing to grade rather than a grade of zero.
func (a *Aggregator) ScoreForAttempt(ctx context.Context, p Policy, userID, packageID string, attempt int) (float64, bool, error) {
	scoes, err := a.scoes.ListSCOes(ctx, packageID, "")
	if err != nil {
		return 0, false, err
	}
	if len(scoes) == 0 {
		return 0, false, nil
	}

	var (
		completed int
		values    int
		sum, max  float64
	)
	for _, sco := range scoes {
		snap, found, err := tracking.SnapshotFor(ctx, a.store, userID, sco.ID, attempt)
		if err != nil {
			return 0, false, err
		}
		if !found {
			continue
		}
		if cmi.Satisfied(snap.Status) {
			completed++
		}
		if raw, ok := snap.Score(); ok {
			values++
			sum += raw
			if raw > max {
				max = raw
			}
		}
	}

	switch p.Method {
	case MethodSCOes:
		return float64(completed), true, nil
	case MethodAverage:
		if values == 0 {
			return 0, true, nil
		}
		return sum / float64(values), true, nil
	case MethodSum:
		return sum, true, nil
	default: // MethodHighest
		return max, true, nil
	}
}

// ReportedGrade reduces all attempts under the which-attempt policy. The
// second return is false when the user has no grade yet.
func (a *Aggregator) ReportedGrade(ctx context.Context, p Policy, userID, packageID string) (float64, bool, error) {
	lastAttempt, err := a.resolver.LastAttempt(ctx, userID, packageID)
	if err != nil {
		return 0, false, err
	}
	if p.MaxAttempt != 0 && lastAttempt > p.MaxAttempt {
		lastAttempt = p.MaxAttempt
	}

	switch p.WhatGrade {
	case GradeFirstAttempt:
		first, err := a.resolver.FirstAttempt(ctx, userID, packageID)
		if err != nil {
			return 0, false, err
		}
		return a.ScoreForAttempt(ctx, p, userID, packageID, first)

	case GradeLastAttempt:
		last, err := a.resolver.LastCompletedAttempt(ctx, userID, packageID)
		if err != nil {
			return 0, false, err
		}
		return a.ScoreForAttempt(ctx, p, userID, packageID, last)

	case GradeAverageAttempt:
		count, err := a.resolver.AttemptCount(ctx, userID, packageID, p.Version, p.BySCOCount(), true)
		if err != nil {
			return 0, false, err
		}
		if count == 0 {
			return 0, true, nil
		}
		// The averaging window ignores the attempt clamp: abandoned
		// attempts past the limit still weigh in at zero.
		full, err := a.resolver.LastAttempt(ctx, userID, packageID)
		if err != nil {
			return 0, false, err
		}
		var sum float64
		for attempt := 1; attempt <= full; attempt++ {
			score, _, err := a.ScoreForAttempt(ctx, p, userID, packageID, attempt)
			if err != nil {
				return 0, false, err
			}
			sum += score
		}
		return math.Round(sum / float64(count)), true, nil

	default: // GradeHighestAttempt
		var max float64
		graded := false
		for attempt := 1; attempt <= lastAttempt; attempt++ {
			score, ok, err := a.ScoreForAttempt(ctx, p, userID, packageID, attempt)
			if err != nil {
				return 0, false, err
			}
			if !ok {
				continue
			}
			graded = true
			if score > max {
				max = score
			}
		}
		return max, graded, nil
	}
}

// UserGrade reports the grade to hand a grade sink: absent entirely when
// the user never produced a track for the package.
func (a *Aggregator) UserGrade(ctx context.Context, p Policy, userID, packageID string) (*float64, error) {
	has, err := a.store.HasTracks(ctx, userID, packageID)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	grade, ok, err := a.ReportedGrade(ctx, p, userID, packageID)
	if err != nil || !ok {
		return nil, err
	}
	return &grade, nil
}
