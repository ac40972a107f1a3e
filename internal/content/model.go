package content

import "errors"

// RootParent marks a SCO whose parent is the organization root.
const RootParent = "/"

// SCO types.
const (
	TypeSCO   = "sco"
	TypeAsset = "asset"
)

// Package content-model versions.
const (
	VersionSCORM12 = "SCORM_1.2"
	VersionSCORM13 = "SCORM_1.3"
	VersionAICC    = "AICC"
)

var (
	ErrSCONotFound     = errors.New("content: sco not found")
	ErrPackageNotFound = errors.New("content: package not found")
)

// SCO is one node of a content package's organization tree. It is immutable
// after package import; the manifest parser owns creation.
type SCO struct {
	ID           int64
	PackageID    string
	Organization string
	Identifier   string
	Parent       string
	Title        string
	Launch       string
	Type         string
	SortOrder    int

	// Extension holds manifest key/value data attached to the SCO:
	// prerequisites, isvisible, masteryscore, objectivesetbycontent, ...
	Extension map[string]string
}

// Launchable reports whether the SCO points at runnable content. Grouping
// nodes have an empty launch URL.
func (s *SCO) Launchable() bool { return s.Launch != "" }

// Prerequisites returns the SCO's AICC_SCRIPT prerequisite expression,
// empty if unconditional.
func (s *SCO) Prerequisites() string { return s.Extension["prerequisites"] }

// Visible reports whether the SCO participates in directional navigation.
// Invisible SCOes still occupy their slot in the tree.
func (s *SCO) Visible() bool { return s.Extension["isvisible"] != "false" }

// HideContinue reports whether forward flow must stop at this SCO instead
// of propagating to the parent's next sibling.
func (s *SCO) HideContinue() bool { return s.Extension["hidecontinue"] == "1" }

// HidePrevious reports whether backward flow is disabled at this SCO.
func (s *SCO) HidePrevious() bool { return s.Extension["hideprevious"] == "1" }

// Package is the content package configuration the engine needs. Settings
// are supplied by the host application; the engine never reads them from
// ambient state.
type Package struct {
	ID      string
	Title   string
	Version string

	// MaxGrade scales numeric grade methods when reporting percentages.
	MaxGrade float64

	GradeMethod     string
	WhatGrade       string
	MaxAttempt      int // 0 = unlimited
	ForceCompleted  bool
	ForceNewAttempt int
	HideBrowse      bool
	LastAttemptLock bool

	// Completion thresholds; nil means not configured.
	CompletionStatusMask *int
	CompletionAllSCOs    bool
	CompletionScoreMin   *float64
}

// Is12 reports whether the package uses the SCORM 1.2 / AICC content model
// (lesson_status under cmi.core.*). Unknown versions are treated as 1.2,
// matching how permissive players handle sloppy manifests.
func (p *Package) Is12() bool { return p.Version != VersionSCORM13 }
