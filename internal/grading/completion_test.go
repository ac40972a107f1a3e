package grading

import (
	"context"
	"testing"
)

func maskOf(bits int) *int       { return &bits }
func scoreOf(v float64) *float64 { return &v }

func TestCompletionUndecidedWithoutThresholds(t *testing.T) {
	f := newFixture(t, 1)
	res, err := f.agg.Completion(context.Background(), Requirements{}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Decided {
		t.Fatalf("unconfigured thresholds decided: %+v", res)
	}
}

func TestCompletionFalseWithoutTracks(t *testing.T) {
	f := newFixture(t, 1)
	res, err := f.agg.Completion(context.Background(),
		Requirements{StatusMask: maskOf(StatusBitCompleted)}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Decided || res.Complete {
		t.Fatalf("res = %+v", res)
	}
}

func TestCompletionStatusMask(t *testing.T) {
	f := newFixture(t, 2)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "passed")

	ctx := context.Background()
	res, err := f.agg.Completion(ctx, Requirements{StatusMask: maskOf(StatusBitPassed)}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete {
		t.Fatal("passed track did not satisfy passed mask")
	}

	res, err = f.agg.Completion(ctx, Requirements{StatusMask: maskOf(StatusBitCompleted)}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Fatal("passed track satisfied completed-only mask")
	}
}

func TestCompletionAllSCOsGate(t *testing.T) {
	f := newFixture(t, 2)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "completed")

	req := Requirements{
		StatusMask: maskOf(StatusBitCompleted | StatusBitPassed),
		AllSCOs:    true,
	}
	ctx := context.Background()

	res, err := f.agg.Completion(ctx, req, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Fatal("one completed SCO of two passed the all-scos gate")
	}

	// Marking the second one passed flips the state.
	f.track(t, "u1", f.ids[1], 1, "cmi.core.lesson_status", "passed")
	res, err = f.agg.Completion(ctx, req, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete {
		t.Fatal("all satisfied SCOes did not pass the gate")
	}
}

func TestCompletionStatusSpansAttempts(t *testing.T) {
	f := newFixture(t, 2)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.lesson_status", "completed")
	f.track(t, "u1", f.ids[1], 2, "cmi.core.lesson_status", "passed")

	req := Requirements{
		StatusMask: maskOf(StatusBitCompleted | StatusBitPassed),
		AllSCOs:    true,
	}
	res, err := f.agg.Completion(context.Background(), req, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete {
		t.Fatal("statuses from different attempts did not combine")
	}
}

func TestCompletionMinScore(t *testing.T) {
	f := newFixture(t, 2)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "55")
	f.track(t, "u1", f.ids[1], 1, "cmi.score.raw", "72")

	ctx := context.Background()
	res, err := f.agg.Completion(ctx, Requirements{MinScore: scoreOf(70)}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Complete {
		t.Fatal("max score 72 failed threshold 70")
	}
	res, err = f.agg.Completion(ctx, Requirements{MinScore: scoreOf(80)}, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Fatal("max score 72 satisfied threshold 80")
	}
}

func TestCompletionStatusMaskWinsOverScore(t *testing.T) {
	f := newFixture(t, 1)
	f.track(t, "u1", f.ids[0], 1, "cmi.core.score.raw", "99")

	req := Requirements{StatusMask: maskOf(StatusBitCompleted), MinScore: scoreOf(50)}
	res, err := f.agg.Completion(context.Background(), req, "u1", "pkg1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Complete {
		t.Fatal("score satisfied a status-mask requirement")
	}
}
