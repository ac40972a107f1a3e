package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/events"
	"github.com/mind-engage/scorm-engine/internal/rbac"
	"github.com/mind-engage/scorm-engine/internal/sequencing"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

type tocEntry struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Parent     string `json:"parent"`
	Title      string `json:"title"`
	Launchable bool   `json:"launchable"`
	State      string `json:"state"`
}

// TOCHandler returns the organization tree in document order with each
// SCO's derived state for the requested attempt.
// GET /packages/{packageID}/toc?attempt=n
func TOCHandler(store tracking.Store, scoes content.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID := chi.URLParam(r, "packageID")
		attempt, err := strconv.Atoi(r.URL.Query().Get("attempt"))
		if err != nil || attempt < 1 {
			attempt = 1
		}
		userID, ok := effectiveUser(w, r, rbac.PermTrackViewAll)
		if !ok {
			return
		}

		all, err := scoes.ListSCOes(r.Context(), packageID, r.URL.Query().Get("organization"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		tree := sequencing.Build(all)
		out := make([]tocEntry, 0, tree.Len())
		for _, idx := range tree.Flatten() {
			node := tree.Node(idx)
			if !node.SCO.Visible() {
				continue
			}
			snap, found, err := tracking.SnapshotFor(r.Context(), store, userID, node.SCO.ID, attempt)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			out = append(out, tocEntry{
				ID:         node.SCO.ID,
				Identifier: node.SCO.Identifier,
				Parent:     node.SCO.Parent,
				Title:      node.SCO.Title,
				Launchable: node.SCO.Launchable(),
				State:      string(sequencing.DeriveState(snap, found)),
			})
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// FlowHandler resolves a navigation request against the organization.
// GET /packages/{packageID}/nav?from={scoID}&direction=next|prev|choice&target=identifier&attempt=n
func FlowHandler(store tracking.Store, scoes content.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		packageID := chi.URLParam(r, "packageID")
		attempt, err := strconv.Atoi(r.URL.Query().Get("attempt"))
		if err != nil || attempt < 1 {
			attempt = 1
		}
		userID, ok := effectiveUser(w, r, rbac.PermTrackViewAll)
		if !ok {
			return
		}

		all, err := scoes.ListSCOes(r.Context(), packageID, r.URL.Query().Get("organization"))
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		nav := sequencing.NewNavigator(sequencing.Build(all))

		var out sequencing.Outcome
		switch r.URL.Query().Get("direction") {
		case "next":
			from, err := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
			if err != nil {
				http.Error(w, "bad from id", 400)
				return
			}
			out, err = nav.Forward(from)
			if writeNavErr(w, err) {
				return
			}
		case "prev":
			from, err := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
			if err != nil {
				http.Error(w, "bad from id", 400)
				return
			}
			out, err = nav.Backward(from)
			if writeNavErr(w, err) {
				return
			}
		case "choice":
			statuses, err := attemptStatuses(r, store, all, userID, packageID, attempt)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			out, err = nav.Choice(r.URL.Query().Get("target"), statuses)
			if writeNavErr(w, err) {
				return
			}
		default:
			out = nav.First()
		}

		resp := map[string]any{"end_attempt": out.EndAttempt}
		if out.SCO != nil {
			resp["sco_id"] = out.SCO.ID
			resp["identifier"] = out.SCO.Identifier
			resp["launch"] = out.SCO.Launch
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// EntryHandler resolves the launch mode for a learner opening a package
// and returns the CMI runtime defaults for the SCO they land on.
// POST /packages/{packageID}/scoes/{scoID}/entry
func EntryHandler(store tracking.Store, scoes content.Provider, packages content.PackageStore, sink events.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Attempt     int    `json:"attempt"`
			Mode        string `json:"mode"`
			NewAttempt  bool   `json:"new_attempt"`
			LearnerName string `json:"learner_name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if req.Attempt < 1 {
			req.Attempt = 1
		}
		key, err := trackKey(r, subjectOf(r))
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		key.Attempt = req.Attempt

		pkg, err := packages.GetPackage(r.Context(), key.PackageID)
		if errors.Is(err, content.ErrPackageNotFound) {
			http.Error(w, "unknown package", 404)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		settings := tracking.Settings{
			Version:         pkg.Version,
			MaxAttempt:      pkg.MaxAttempt,
			GradeMethod:     pkg.GradeMethod,
			ForceCompleted:  pkg.ForceCompleted,
			ForceNewAttempt: tracking.ForceAttempt(pkg.ForceNewAttempt),
			HideBrowse:      pkg.HideBrowse,
			LastAttemptLock: pkg.LastAttemptLock,
		}
		state, err := tracking.ResolveMode(r.Context(), store, scoes, settings,
			key.UserID, key.PackageID, r.URL.Query().Get("organization"),
			tracking.LaunchState{Mode: req.Mode, Attempt: req.Attempt, NewAttempt: req.NewAttempt})
		if errors.Is(err, tracking.ErrAttemptLocked) {
			http.Error(w, err.Error(), 403)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}

		sco, err := scoes.GetSCO(r.Context(), key.SCOID)
		if errors.Is(err, content.ErrSCONotFound) {
			// Recover onto the first launchable object of the package.
			sco, err = scoes.FirstLaunchable(r.Context(), key.PackageID)
		}
		if err != nil {
			http.Error(w, "no launchable content", 404)
			return
		}
		if !sco.Launchable() {
			sco, err = scoes.NextLaunchable(r.Context(), key.PackageID, sco.ID)
			if err != nil {
				http.Error(w, "no launchable content", 404)
				return
			}
		}

		snap, _, err := tracking.SnapshotFor(r.Context(), store, key.UserID, sco.ID, state.Attempt)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		learner := cmi.Learner{ID: key.UserID, Name: req.LearnerName}
		defaults := cmi.Defaults(snap, learner, sco.Extension, state.Mode)

		ev := events.New(events.KindSCOLaunched)
		ev.UserID = key.UserID
		ev.PackageID = key.PackageID
		ev.SCOID = sco.ID
		ev.Attempt = state.Attempt
		ev.Value = state.Mode
		_ = sink.Publish(r.Context(), ev)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"mode":        state.Mode,
			"attempt":     state.Attempt,
			"new_attempt": state.NewAttempt,
			"sco_id":      sco.ID,
			"launch":      sco.Launch,
			"defaults":    defaults,
		})
	}
}

func attemptStatuses(r *http.Request, store tracking.Store, all []content.SCO, userID, packageID string, attempt int) (map[string]string, error) {
	byID, err := store.AttemptElements(r.Context(), userID, packageID, attempt, cmi.ElemLessonStatus)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]string, len(byID))
	for _, sco := range all {
		if v, ok := byID[sco.ID]; ok {
			statuses[sco.Identifier] = v
		}
	}
	return statuses, nil
}

func writeNavErr(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, sequencing.ErrChoiceDenied), errors.Is(err, sequencing.ErrNavUnavailable):
		http.Error(w, err.Error(), 403)
	case errors.Is(err, content.ErrSCONotFound):
		http.Error(w, err.Error(), 404)
	default:
		http.Error(w, err.Error(), 500)
	}
	return true
}
