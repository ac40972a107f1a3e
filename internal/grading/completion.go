package grading

import (
	"context"
	"strconv"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

// CompletionResult carries a completion decision. Decided is false when the
// package configures no threshold, in which case completion is owned by
// whatever view-tracking the caller runs.
type CompletionResult struct {
	Decided  bool
	Complete bool
}

var statusElements = []string{
	cmi.ElemLessonStatus,
	cmi.ElemCompletionStatus,
	cmi.ElemSuccessStatus,
}

var scoreElements = []string{
	cmi.ElemScoreRaw,
	cmi.ElemScoreRaw2004,
}

// Completion evaluates the configured thresholds over every attempt the
// user has made. A required-status mask wins over a minimum score; the
// score threshold only applies when no status mask is set.
func (a *Aggregator) Completion(ctx context.Context, req Requirements, userID, packageID string) (CompletionResult, error) {
	if !req.Configured() {
		return CompletionResult{}, nil
	}

	elements := append(append([]string{}, statusElements...), scoreElements...)
	tracks, err := a.store.UserElements(ctx, userID, packageID, elements)
	if err != nil {
		return CompletionResult{}, err
	}
	if len(tracks) == 0 {
		return CompletionResult{Decided: true, Complete: false}, nil
	}

	if req.StatusMask != nil {
		return a.statusCompletion(ctx, req, tracks, packageID)
	}
	return scoreCompletion(*req.MinScore, tracks), nil
}

func (a *Aggregator) statusCompletion(ctx context.Context, req Requirements, tracks []tracking.Record, packageID string) (CompletionResult, error) {
	observed := 0
	perSCO := map[int64]bool{}
	for _, tr := range tracks {
		if !isStatusElement(tr.Element) {
			continue
		}
		if bit, ok := StatusBit(tr.Value); ok {
			observed |= bit
			perSCO[tr.SCOID] = true
		}
	}

	if req.AllSCOs {
		scoes, err := a.scoes.ListSCOes(ctx, packageID, "")
		if err != nil {
			return CompletionResult{}, err
		}
		for _, sco := range scoes {
			if sco.Type != content.TypeSCO {
				continue
			}
			if !perSCO[sco.ID] {
				return CompletionResult{Decided: true, Complete: false}, nil
			}
		}
		return CompletionResult{Decided: true, Complete: true}, nil
	}
	return CompletionResult{Decided: true, Complete: *req.StatusMask&observed != 0}, nil
}

func scoreCompletion(min float64, tracks []tracking.Record) CompletionResult {
	max := -1.0
	for _, tr := range tracks {
		if !isScoreElement(tr.Element) || tr.Value == "" {
			continue
		}
		v, err := strconv.ParseFloat(tr.Value, 64)
		if err != nil {
			continue
		}
		if v >= max {
			max = v
		}
	}
	return CompletionResult{Decided: true, Complete: min <= max}
}

func isStatusElement(element string) bool {
	for _, el := range statusElements {
		if el == element {
			return true
		}
	}
	return false
}

func isScoreElement(element string) bool {
	for _, el := range scoreElements {
		if el == element {
			return true
		}
	}
	return false
}
