package cmi

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Well-known data-model elements. SCORM 1.2 keeps runtime state under
// cmi.core.*; SCORM 2004 flattened the namespace and split lesson_status
// into completion_status and success_status.
const (
	ElemLessonStatus     = "cmi.core.lesson_status"
	ElemCompletionStatus = "cmi.completion_status"
	ElemSuccessStatus    = "cmi.success_status"
	ElemScoreRaw         = "cmi.core.score.raw"
	ElemScoreRaw2004     = "cmi.score.raw"
	ElemSessionTime      = "cmi.core.session_time"
	ElemSessionTime2004  = "cmi.session_time"
	ElemTotalTime        = "cmi.core.total_time"
	ElemTotalTime2004    = "cmi.total_time"
	ElemExit             = "cmi.core.exit"
	ElemExit2004         = "cmi.exit"

	// ElemStartTime is written once when a SCO is first launched in an
	// attempt and is never overwritten.
	ElemStartTime = "x.start.time"
)

// Tracked status vocabulary.
const (
	StatusPassed       = "passed"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
	StatusIncomplete   = "incomplete"
	StatusBrowsed      = "browsed"
	StatusNotAttempted = "notattempted"
)

// Satisfied reports whether a tracked status counts as a successful
// completion of a SCO.
func Satisfied(status string) bool {
	return status == StatusCompleted || status == StatusPassed
}

var (
	formSep      = strings.NewReplacer("__", ".")
	indexMarkRe  = regexp.MustCompile(`\.N(\d+)\.`)
	underscoreRe = regexp.MustCompile(`_(\d+)\.`)
	dottedIdxRe  = regexp.MustCompile(`\.(\d+)\.`)

	primaryIdxRe   = regexp.MustCompile(`.*?(\d+)\.`)
	secondaryIdxRe = regexp.MustCompile(`.*?(\d+)\..*?\.(\d+)\.`)
)

// Decode maps a form-encoded element name to its canonical dotted form.
// HTML form field names cannot contain dots, so clients submit
// "cmi__interactions_0__id"; reconstruction contexts additionally mark
// numeric indices as ".N<k>.".
func Decode(raw string) string {
	name := formSep.Replace(raw)
	return indexMarkRe.ReplaceAllString(name, ".$1.")
}

// Canonical normalizes either array-index convention to the dotted form:
// "cmi.interactions_0.id" and "cmi.interactions.0.id" both yield
// "cmi.interactions.0.id".
func Canonical(name string) string {
	return underscoreRe.ReplaceAllString(name, ".$1.")
}

// Marked re-encodes a canonical name for client-side reconstruction.
// SCORM 2004 marks indices as ".N<k>."; 1.2 uses "_<k>.".
func Marked(name string, v2004 bool) string {
	if v2004 {
		return dottedIdxRe.ReplaceAllString(name, ".N$1.")
	}
	return dottedIdxRe.ReplaceAllString(name, "_$1.")
}

// Collections that carry array-indexed children.
var collections = map[string]struct{}{
	"interactions":          {},
	"objectives":            {},
	"comments_from_learner": {},
	"comments_from_lms":     {},
}

// CollectionOf returns the named collection an array-indexed element
// belongs to, if any. The element may use either index convention.
func CollectionOf(name string) (string, bool) {
	rest, ok := strings.CutPrefix(Canonical(name), "cmi.")
	if !ok {
		return "", false
	}
	head, rest, _ := strings.Cut(rest, ".")
	if _, ok := collections[head]; !ok {
		return "", false
	}
	if len(rest) == 0 || rest[0] < '0' || rest[0] > '9' {
		return "", false
	}
	return head, true
}

// Compare orders two array-indexed element names by primary numeric index,
// then by the secondary numeric index for two-level nesting such as
// "cmi.interactions_0.correct_responses_1.pattern". Names that tie on both
// compare equal. Both operands use the same index extraction.
func Compare(a, b string) int {
	left, right := primaryIndex(a), primaryIndex(b)
	if left != right {
		if left < right {
			return -1
		}
		return 1
	}
	sa, oka := secondaryIndex(a)
	sb, okb := secondaryIndex(b)
	if !oka || !okb {
		return 0
	}
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	return 0
}

func primaryIndex(name string) int {
	m := primaryIdxRe.FindStringSubmatch(Canonical(name))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func secondaryIndex(name string) (int, bool) {
	m := secondaryIdxRe.FindStringSubmatch(Canonical(name))
	if m == nil {
		return 0, false
	}
	idx, _ := strconv.Atoi(m[2])
	return idx, true
}

// SortIndexed orders element names in stable array order so that indexed
// collections reconstruct deterministically regardless of submission order.
func SortIndexed(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return Compare(names[i], names[j]) < 0
	})
}
