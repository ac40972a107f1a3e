package cmi

// Learner identifies the runtime user presented to a SCO.
type Learner struct {
	ID   string
	Name string
}

// Launch modes.
const (
	ModeNormal = "normal"
	ModeBrowse = "browse"
	ModeReview = "review"
)

// Entry derives the cmi.core.entry value for a relaunch: a SCO never seen
// in this attempt starts ab-initio, a suspended one resumes, anything else
// re-enters with an empty entry flag.
func Entry(s Snapshot) string {
	if s.Status == "" {
		return "ab-initio"
	}
	if s.Suspended() {
		return "resume"
	}
	return ""
}

// Defaults assembles the SCORM 1.2 default runtime environment for one
// (SCO, attempt) launch. ext carries the SCO's extension key/value data
// from the package manifest (mastery_score, datafromlms, ...).
func Defaults(s Snapshot, learner Learner, ext map[string]string, mode string) map[string]string {
	if mode == "" {
		mode = ModeNormal
	}
	credit := "credit"
	if mode != ModeNormal {
		credit = "no-credit"
	}

	get := func(name, ifEmpty string) string {
		if v, ok := s.Elements[name]; ok && v != "" {
			return v
		}
		return ifEmpty
	}

	def := map[string]string{
		"cmi.core.student_id":                learner.ID,
		"cmi.core.student_name":              learner.Name,
		"cmi.core.credit":                    credit,
		"cmi.core.entry":                     Entry(s),
		"cmi.core.lesson_mode":               mode,
		"cmi.launch_data":                    ext["datafromlms"],
		"cmi.student_data.mastery_score":     ext["masteryscore"],
		"cmi.student_data.max_time_allowed":  ext["maxtimeallowed"],
		"cmi.student_data.time_limit_action": ext["timelimitaction"],

		"cmi.core.total_time":      get(ElemTotalTime, "00:00:00"),
		"cmi.core.lesson_location": get("cmi.core.lesson_location", ""),
		"cmi.core.lesson_status":   get(ElemLessonStatus, ""),
		"cmi.core.score.raw":       get(ElemScoreRaw, ""),
		"cmi.core.score.max":       get("cmi.core.score.max", ""),
		"cmi.core.score.min":       get("cmi.core.score.min", ""),
		"cmi.core.exit":            get(ElemExit, ""),
		"cmi.suspend_data":         get("cmi.suspend_data", ""),
		"cmi.comments":             get("cmi.comments", ""),

		"cmi.student_preference.language": get("cmi.student_preference.language", ""),
		"cmi.student_preference.audio":    get("cmi.student_preference.audio", "0"),
		"cmi.student_preference.speed":    get("cmi.student_preference.speed", "0"),
		"cmi.student_preference.text":     get("cmi.student_preference.text", "0"),
	}
	return def
}
