// Package grading reduces tracking history to reported grades and
// completion decisions.
package grading

// Method reduces one attempt's per-SCO scores to a single number.
type Method string

const (
	MethodSCOes   Method = "scoes" // count of completed SCOes
	MethodHighest Method = "highest"
	MethodAverage Method = "average"
	MethodSum     Method = "sum"
)

// WhatGrade picks which attempt (or reduction over attempts) is reported.
type WhatGrade string

const (
	GradeFirstAttempt   WhatGrade = "first"
	GradeLastAttempt    WhatGrade = "last"
	GradeHighestAttempt WhatGrade = "highest"
	GradeAverageAttempt WhatGrade = "average"
)

// Policy is the grading configuration of one package.
type Policy struct {
	Method     Method
	WhatGrade  WhatGrade
	MaxAttempt int // 0 means unlimited
	Version    string
}

// BySCOCount reports whether the grade is a completed-SCO count rather
// than a numeric score.
func (p Policy) BySCOCount() bool { return p.Method == MethodSCOes }

// StatusPassed and StatusCompleted are the bits a required-status mask is
// built from.
const (
	StatusBitPassed    = 2
	StatusBitCompleted = 4
)

// StatusBit maps a tracked status value to its completion bit.
func StatusBit(value string) (int, bool) {
	switch value {
	case "passed":
		return StatusBitPassed, true
	case "completed":
		return StatusBitCompleted, true
	}
	return 0, false
}

// Requirements are the optional completion thresholds of a package. A nil
// field means that threshold is not configured.
type Requirements struct {
	StatusMask *int
	AllSCOs    bool
	MinScore   *float64
}

// Configured reports whether any completion threshold is set.
func (r Requirements) Configured() bool { return r.StatusMask != nil || r.MinScore != nil }
