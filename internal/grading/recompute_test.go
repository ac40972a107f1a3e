package grading

import (
	"context"
	"testing"
)

type sinkSpy struct {
	grades      map[string]*float64
	completions map[string]bool
}

func newSinkSpy() *sinkSpy {
	return &sinkSpy{grades: map[string]*float64{}, completions: map[string]bool{}}
}

func (s *sinkSpy) PushGrade(_ context.Context, packageID, userID string, grade *float64) error {
	s.grades[packageID+"/"+userID] = grade
	return nil
}

func (s *sinkSpy) SetCompletion(_ context.Context, packageID, userID string, complete bool) error {
	s.completions[packageID+"/"+userID] = complete
	return nil
}

type staticPolicies struct {
	p   Policy
	req Requirements
}

func (s staticPolicies) PolicyFor(context.Context, string) (Policy, Requirements, error) {
	return s.p, s.req, nil
}

func TestRecomputeFeedsSinks(t *testing.T) {
	f := newFixture(t, 1)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "88")
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "completed")

	spy := newSinkSpy()
	rec := NewRecomputer(f.agg, staticPolicies{
		p:   Policy{Method: MethodHighest, WhatGrade: GradeHighestAttempt},
		req: Requirements{StatusMask: maskOf(StatusBitCompleted)},
	}, spy, spy)

	if err := rec.Recompute(context.Background(), "u1", "pkg1"); err != nil {
		t.Fatal(err)
	}
	grade, ok := spy.grades["pkg1/u1"]
	if !ok || grade == nil || *grade != 88 {
		t.Fatalf("grade = %v", grade)
	}
	if !spy.completions["pkg1/u1"] {
		t.Fatal("completion not set")
	}

	// A learner without tracks pushes a nil grade, not zero.
	if err := rec.Recompute(context.Background(), "u2", "pkg1"); err != nil {
		t.Fatal(err)
	}
	grade, ok = spy.grades["pkg1/u2"]
	if !ok || grade != nil {
		t.Fatalf("empty learner grade = %v", grade)
	}
	if spy.completions["pkg1/u2"] {
		t.Fatal("empty learner marked complete")
	}
}
