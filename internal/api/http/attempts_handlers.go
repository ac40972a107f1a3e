package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/grading"
	"github.com/mind-engage/scorm-engine/internal/rbac"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

// AttemptsHandler summarizes a learner's attempt history on a package:
// the distinct attempt numbers, the countable attempts under the package
// policy, and where entry and review resolution would land.
// GET /packages/{packageID}/attempts
func AttemptsHandler(store tracking.Store, packages content.PackageStore) http.HandlerFunc {
	resolver := tracking.NewResolver(store)
	return func(w http.ResponseWriter, r *http.Request) {
		packageID := chi.URLParam(r, "packageID")
		userID, ok := effectiveUser(w, r, rbac.PermAttemptViewAll)
		if !ok {
			return
		}

		pkg, err := packages.GetPackage(r.Context(), packageID)
		if errors.Is(err, content.ErrPackageNotFound) {
			http.Error(w, "unknown package", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		policy := grading.Policy{
			Method:    grading.Method(pkg.GradeMethod),
			WhatGrade: grading.WhatGrade(pkg.WhatGrade),
			Version:   pkg.Version,
		}

		all, err := resolver.AllAttempts(r.Context(), userID, packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		count, err := resolver.AttemptCount(r.Context(), userID, packageID, pkg.Version, policy.BySCOCount(), true)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		last, err := resolver.LastAttempt(r.Context(), userID, packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		completed, err := resolver.LastCompletedAttempt(r.Context(), userID, packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"attempts":       all,
			"count":          count,
			"last":           last,
			"last_completed": completed,
			"max_attempt":    pkg.MaxAttempt,
		})
	}
}

// RuntimeWindowHandler reports when one SCO attempt started and when it
// was last touched.
// GET /packages/{packageID}/scoes/{scoID}/attempts/{attempt}/window
func RuntimeWindowHandler(store tracking.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := effectiveUser(w, r, rbac.PermTrackViewAll)
		if !ok {
			return
		}
		key, err := trackKey(r, userID)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		start, finish, err := store.RuntimeWindow(r.Context(), key.UserID, key.PackageID, key.SCOID, key.Attempt)
		if errors.Is(err, tracking.ErrNotFound) {
			http.Error(w, "no runtime data", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"started_at": start, "finished_at": finish})
	}
}

// DeleteAttemptHandler drops one attempt's tracks and replays grading.
// DELETE /packages/{packageID}/attempts/{attempt}?user=learner
func DeleteAttemptHandler(deleter *tracking.Deleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempt, err := strconv.Atoi(chi.URLParam(r, "attempt"))
		if err != nil {
			http.Error(w, "bad attempt number", 400)
			return
		}
		userID, ok := effectiveUser(w, r, rbac.PermAttemptDelete)
		if !ok {
			return
		}
		err = deleter.DeleteAttempt(r.Context(), userID, chi.URLParam(r, "packageID"), attempt)
		switch {
		case err == nil, tracking.IsDerived(err):
		case errors.Is(err, tracking.ErrInvalidKey):
			http.Error(w, err.Error(), 400)
			return
		default:
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteUserTracksHandler drops every track a learner holds on a package.
// DELETE /packages/{packageID}/tracks?user=learner
func DeleteUserTracksHandler(deleter *tracking.Deleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := effectiveUser(w, r, rbac.PermAttemptDelete)
		if !ok {
			return
		}
		err := deleter.DeleteUser(r.Context(), userID, chi.URLParam(r, "packageID"))
		switch {
		case err == nil, tracking.IsDerived(err):
		case errors.Is(err, tracking.ErrInvalidKey):
			http.Error(w, err.Error(), 400)
			return
		default:
			http.Error(w, err.Error(), 500)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GradeHandler reports the learner's current grade on a package under the
// configured grading policy. A nil grade means the learner has no tracks.
// GET /packages/{packageID}/grade?user=learner
func GradeHandler(agg *grading.Aggregator, policies grading.PolicySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID := chi.URLParam(r, "packageID")
		userID, ok := effectiveUser(w, r, rbac.PermGradeViewAll)
		if !ok {
			return
		}

		policy, req, err := policies.PolicyFor(r.Context(), packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		grade, err := agg.UserGrade(r.Context(), policy, userID, packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		result, err := agg.Completion(r.Context(), req, userID, packageID)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		resp := map[string]any{"grade": grade}
		if result.Decided {
			resp["complete"] = result.Complete
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
