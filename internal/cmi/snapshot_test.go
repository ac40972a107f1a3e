package cmi

import "testing"

func TestSnapshotApply(t *testing.T) {
	s := NewSnapshot("u1", 10, 1)

	s.Apply(ElemLessonStatus, "not attempted", 100)
	if s.Status != StatusNotAttempted {
		t.Fatalf("Status = %q, want %q", s.Status, StatusNotAttempted)
	}
	s.Apply(ElemLessonStatus, "passed", 110)
	if s.Status != StatusPassed {
		t.Fatalf("Status = %q", s.Status)
	}

	s.Apply(ElemScoreRaw, "87.5", 120)
	if s.ScoreRaw != "87.50" {
		t.Fatalf("ScoreRaw = %q, want 87.50", s.ScoreRaw)
	}
	s.Apply(ElemScoreRaw, "not-a-number", 125)
	if s.ScoreRaw != "87.50" {
		t.Fatalf("garbage score overwrote ScoreRaw: %q", s.ScoreRaw)
	}

	s.Apply(ElemSessionTime, "00:12:30", 130)
	s.Apply("cmi.suspend_data", "page=4", 90)
	if s.SessionTime != "00:12:30" {
		t.Fatalf("SessionTime = %q", s.SessionTime)
	}
	if v, ok := s.Element("cmi.suspend_data"); !ok || v != "page=4" {
		t.Fatalf("suspend_data not addressable: %q, %v", v, ok)
	}
	// Modified watermark keeps the max, not the last applied.
	if s.TimeModified != 130 {
		t.Fatalf("TimeModified = %d, want 130", s.TimeModified)
	}
}

func TestSnapshotScore(t *testing.T) {
	s := NewSnapshot("u1", 10, 1)
	if _, ok := s.Score(); ok {
		t.Fatalf("empty snapshot must have no score")
	}

	s.Apply(ElemScoreRaw, "0", 100)
	if _, ok := s.Score(); ok {
		t.Fatalf("zero raw score must not count as a score")
	}
	if s.Elements[ElemScoreRaw] != "0" {
		t.Fatalf("raw zero must stay visible in Elements")
	}

	s.Apply(ElemScoreRaw2004, "66", 110)
	f, ok := s.Score()
	if !ok || f != 66 {
		t.Fatalf("Score = (%v, %v), want (66, true)", f, ok)
	}
}

func TestSnapshotSuspended(t *testing.T) {
	s := NewSnapshot("u1", 10, 1)
	if s.Suspended() {
		t.Fatalf("fresh snapshot reported suspended")
	}
	s.Apply(ElemExit2004, "suspend", 100)
	if !s.Suspended() {
		t.Fatalf("2004 exit=suspend not detected")
	}
}

func TestEntry(t *testing.T) {
	s := NewSnapshot("u1", 10, 1)
	if Entry(s) != "ab-initio" {
		t.Fatalf("untracked SCO must enter ab-initio")
	}

	s.Apply(ElemLessonStatus, StatusIncomplete, 100)
	s.Apply(ElemExit, "suspend", 110)
	if Entry(s) != "resume" {
		t.Fatalf("suspended SCO must resume")
	}

	s2 := NewSnapshot("u1", 10, 1)
	s2.Apply(ElemLessonStatus, StatusCompleted, 100)
	if Entry(s2) != "" {
		t.Fatalf("finished SCO re-enters with empty entry, got %q", Entry(s2))
	}
}
