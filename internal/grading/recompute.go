package grading

import (
	"context"
	"fmt"
)

// GradeSink receives the reported grade for a user. A nil grade means "no
// grade yet" and must not be flattened to zero.
type GradeSink interface {
	PushGrade(ctx context.Context, packageID, userID string, grade *float64) error
}

// CompletionSink receives completion decisions.
type CompletionSink interface {
	SetCompletion(ctx context.Context, packageID, userID string, complete bool) error
}

// PolicySource resolves the grading policy and completion thresholds of a
// package.
type PolicySource interface {
	PolicyFor(ctx context.Context, packageID string) (Policy, Requirements, error)
}

// Recomputer re-derives grade and completion after a track write and feeds
// the sinks. It satisfies the tracking writer's recompute hook.
type Recomputer struct {
	agg        *Aggregator
	policies   PolicySource
	grades     GradeSink
	completion CompletionSink
}

func NewRecomputer(agg *Aggregator, policies PolicySource, grades GradeSink, completion CompletionSink) *Recomputer {
	return &Recomputer{agg: agg, policies: policies, grades: grades, completion: completion}
}

func (r *Recomputer) Recompute(ctx context.Context, userID, packageID string) error {
	p, req, err := r.policies.PolicyFor(ctx, packageID)
	if err != nil {
		return fmt.Errorf("resolve policy: %w", err)
	}

	grade, err := r.agg.UserGrade(ctx, p, userID, packageID)
	if err != nil {
		return fmt.Errorf("derive grade: %w", err)
	}
	if r.grades != nil {
		if err := r.grades.PushGrade(ctx, packageID, userID, grade); err != nil {
			return fmt.Errorf("push grade: %w", err)
		}
	}

	if r.completion == nil {
		return nil
	}
	res, err := r.agg.Completion(ctx, req, userID, packageID)
	if err != nil {
		return fmt.Errorf("derive completion: %w", err)
	}
	if !res.Decided {
		return nil
	}
	if err := r.completion.SetCompletion(ctx, packageID, userID, res.Complete); err != nil {
		return fmt.Errorf("set completion: %w", err)
	}
	return nil
}
