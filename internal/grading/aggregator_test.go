package grading

import (
	"context"
	"testing"

	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

type fixture struct {
	store *tracking.MemStore
	scoes *content.MemProvider
	agg   *Aggregator
	ids   []int64
}

func newFixture(t *testing.T, scoCount int) *fixture {
	t.Helper()
	store := tracking.NewMemStore()
	scoes := content.NewMemProvider()
	f := &fixture{store: store, scoes: scoes, agg: NewAggregator(store, scoes)}
	for i := 0; i < scoCount; i++ {
		sco := content.SCO{
			PackageID:    "pkg1",
			Organization: "org",
			Identifier:   "item" + string(rune('a'+i)),
			Parent:       content.RootParent,
			Type:         content.TypeSCO,
			Launch:       "index.html",
			SortOrder:    i,
		}
		id, err := scoes.PutSCO(context.Background(), sco)
		if err != nil {
			t.Fatal(err)
		}
		f.ids = append(f.ids, id)
	}
	return f
}

func (f *fixture) track(t *testing.T, userID string, scoID int64, attempt int, element, value string) {
	t.Helper()
	_, err := f.store.Insert(context.Background(), tracking.Record{
		UserID:    userID,
		PackageID: "pkg1",
		SCOID:     scoID,
		Attempt:   attempt,
		Element:   element,
		Value:     value,
		Modified:  1000,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestScoreForAttemptMethods(t *testing.T) {
	f := newFixture(t, 3)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "completed")
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "80")
	f.track(t, "u1", f.ids[1], 1, "cmi.core.lesson_status", "passed")
	f.track(t, "u1", f.ids[1], 1, "cmi.core.score.raw", "60")
	f.track(t, "u1", f.ids[2], 1, "cmi.core.lesson_status", "incomplete")

	ctx := context.Background()
	cases := []struct {
		method Method
		want   float64
	}{
		{MethodSCOes, 2},
		{MethodHighest, 80},
		{MethodAverage, 70},
		{MethodSum, 140},
	}
	for _, c := range cases {
		got, ok, err := f.agg.ScoreForAttempt(ctx, Policy{Method: c.method}, "u1", "pkg1", 1)
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", c.method, ok, err)
		}
		if got != c.want {
			t.Errorf("%s = %v, want %v", c.method, got, c.want)
		}
	}
}

func TestScoreForAttemptIgnoresZeroScores(t *testing.T) {
	f := newFixture(t, 2)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "50")
	f.track(t, "u1", f.ids[1], 1, "cmi.core.score.raw", "0")

	// A zero raw score reads as no score: it does not drag the average.
	got, ok, err := f.agg.ScoreForAttempt(context.Background(), Policy{Method: MethodAverage}, "u1", "pkg1", 1)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got != 50 {
		t.Fatalf("average = %v, want 50", got)
	}
}

func TestScoreForAttemptNoSCOes(t *testing.T) {
	f := newFixture(t, 0)
	_, ok, err := f.agg.ScoreForAttempt(context.Background(), Policy{Method: MethodHighest}, "u1", "pkg1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("empty package produced a grade")
	}
}

func TestReportedGradeFirstAndLast(t *testing.T) {
	f := newFixture(t, 1)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "40")
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "completed")
	f.track(t, "u1", f.ids[0], 2, "cmi.core.score.raw", "90")
	f.track(t, "u1", f.ids[0], 2, "cmi.core.lesson_status", "incomplete")

	ctx := context.Background()
	p := Policy{Method: MethodHighest, WhatGrade: GradeFirstAttempt}
	if got, _, _ := f.agg.ReportedGrade(ctx, p, "u1", "pkg1"); got != 40 {
		t.Fatalf("first = %v", got)
	}
	// Last means last completed: attempt 2 never finished.
	p.WhatGrade = GradeLastAttempt
	if got, _, _ := f.agg.ReportedGrade(ctx, p, "u1", "pkg1"); got != 40 {
		t.Fatalf("lastCompleted = %v", got)
	}
	p.WhatGrade = GradeHighestAttempt
	if got, _, _ := f.agg.ReportedGrade(ctx, p, "u1", "pkg1"); got != 90 {
		t.Fatalf("highest = %v", got)
	}
}

func TestReportedGradeClampsToMaxAttempt(t *testing.T) {
	f := newFixture(t, 1)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "40")
	f.track(t, "u1", f.ids[0], 3, "cmi.core.score.raw", "95")

	p := Policy{Method: MethodHighest, WhatGrade: GradeHighestAttempt, MaxAttempt: 2}
	got, _, err := f.agg.ReportedGrade(context.Background(), p, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Fatalf("clamped highest = %v, want 40", got)
	}
}

func TestReportedGradeAverageDividesByCountedAttempts(t *testing.T) {
	f := newFixture(t, 1)
	// Attempts 1 and 2 report the completion element, attempt 3 only a
	// location; the average divides by 2, not 3.
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "80")
	f.track(t, "u1", f.ids[0], 2, "cmi.core.score.raw", "60")
	f.track(t, "u1", f.ids[0], 3, "cmi.core.lesson_location", "p1")

	p := Policy{Method: MethodHighest, WhatGrade: GradeAverageAttempt, Version: "SCORM_1.2"}
	got, ok, err := f.agg.ReportedGrade(context.Background(), p, "u1", "pkg1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if got != 70 {
		t.Fatalf("average = %v, want 70", got)
	}
}

func TestReportedGradeAverageNoCountableAttempts(t *testing.T) {
	f := newFixture(t, 1)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_location", "p1")

	p := Policy{Method: MethodHighest, WhatGrade: GradeAverageAttempt, Version: "SCORM_1.2"}
	got, ok, err := f.agg.ReportedGrade(context.Background(), p, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != 0 {
		t.Fatalf("empty average = (%v, %v), want (0, true)", got, ok)
	}
}

func TestUserGradeNilWithoutTracks(t *testing.T) {
	f := newFixture(t, 1)
	grade, err := f.agg.UserGrade(context.Background(), Policy{Method: MethodHighest}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if grade != nil {
		t.Fatalf("grade = %v, want nil", *grade)
	}
}
