package cmi

import (
	"fmt"
	"strconv"
)

// Snapshot is the projection of one (user, SCO, attempt)'s tracking records
// into a structured view. Well-known fields are materialized with unified
// defaults so 1.2 and 2004 packages read the same; every other element stays
// addressable by name through Elements.
type Snapshot struct {
	UserID  string
	SCOID   int64
	Attempt int

	Status       string
	ScoreRaw     string
	SessionTime  string
	TotalTime    string
	TimeModified int64

	Elements map[string]string
}

// NewSnapshot returns an empty snapshot with the unified field defaults.
func NewSnapshot(userID string, scoID int64, attempt int) Snapshot {
	return Snapshot{
		UserID:      userID,
		SCOID:       scoID,
		Attempt:     attempt,
		SessionTime: "00:00:00",
		TotalTime:   "00:00:00",
		Elements:    map[string]string{},
	}
}

// Apply folds one tracking record into the snapshot.
func (s *Snapshot) Apply(element, value string, modified int64) {
	s.Elements[element] = value
	switch element {
	case ElemLessonStatus, ElemCompletionStatus:
		if value == "not attempted" {
			value = StatusNotAttempted
		}
		s.Status = value
	case ElemScoreRaw, ElemScoreRaw2004:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			s.ScoreRaw = fmt.Sprintf("%.2f", f)
		}
	case ElemSessionTime, ElemSessionTime2004:
		s.SessionTime = value
	case ElemTotalTime, ElemTotalTime2004:
		s.TotalTime = value
	}
	if modified > s.TimeModified {
		s.TimeModified = modified
	}
}

// Element returns a dynamically attached element value.
func (s *Snapshot) Element(name string) (string, bool) {
	v, ok := s.Elements[name]
	return v, ok
}

// Score parses the raw score. A score that was never reported, or that is
// zero, does not count toward aggregation.
func (s *Snapshot) Score() (float64, bool) {
	if s.ScoreRaw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s.ScoreRaw, 64)
	if err != nil || f == 0 {
		return 0, false
	}
	return f, true
}

// Suspended reports whether the SCO exited with a suspend request.
func (s *Snapshot) Suspended() bool {
	if v, ok := s.Elements[ElemExit]; ok && v == "suspend" {
		return true
	}
	if v, ok := s.Elements[ElemExit2004]; ok && v == "suspend" {
		return true
	}
	return false
}
