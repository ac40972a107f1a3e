package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/rbac"
	"github.com/mind-engage/scorm-engine/internal/tracking"
)

var validate = validator.New()

func trackKey(r *http.Request, userID string) (tracking.Key, error) {
	scoID, err := strconv.ParseInt(chi.URLParam(r, "scoID"), 10, 64)
	if err != nil {
		return tracking.Key{}, errors.New("bad sco id")
	}
	attempt, err := strconv.Atoi(chi.URLParam(r, "attempt"))
	if err != nil {
		return tracking.Key{}, errors.New("bad attempt number")
	}
	return tracking.Key{
		UserID:    userID,
		PackageID: chi.URLParam(r, "packageID"),
		SCOID:     scoID,
		Attempt:   attempt,
	}, nil
}

type trackBatchRequest struct {
	Elements []struct {
		Element string `json:"element" validate:"required"`
		Value   string `json:"value"`
	} `json:"elements" validate:"required,min=1,dive"`
}

// WriteTracksHandler accepts one form submission worth of CMI elements.
// Element names arrive form-encoded (double underscores for dots); order
// is preserved. POST /packages/{packageID}/scoes/{scoID}/attempts/{attempt}/tracks
func WriteTracksHandler(w8r *tracking.Writer, packages content.PackageStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := trackKey(r, subjectOf(r))
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		var req trackBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", 400)
			return
		}
		if err := validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		pairs := make([]tracking.ElementValue, 0, len(req.Elements))
		for _, e := range req.Elements {
			pairs = append(pairs, tracking.ElementValue{Element: e.Element, Value: e.Value})
		}

		force := false
		if pkg, err := packages.GetPackage(r.Context(), key.PackageID); err == nil {
			force = pkg.ForceCompleted
		}

		lastID, err := w8r.WriteBatch(r.Context(), key, pairs, force)
		switch {
		case err == nil:
		case tracking.IsDerived(err):
			// The tracks landed; derivations retry on the next write.
		case errors.Is(err, tracking.ErrInvalidKey):
			http.Error(w, err.Error(), 400)
			return
		default:
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"last_id": lastID, "stored": len(pairs)})
	}
}

// SnapshotHandler returns the projected runtime state of one SCO attempt.
// GET /packages/{packageID}/scoes/{scoID}/attempts/{attempt}/snapshot
func SnapshotHandler(store tracking.Store) http.HandlerFunc {
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
		snap, found, err := tracking.SnapshotFor(r.Context(), store, key.UserID, key.SCOID, key.Attempt)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tracked":      found,
			"status":       snap.Status,
			"score_raw":    snap.ScoreRaw,
			"session_time": snap.SessionTime,
			"total_time":   snap.TotalTime,
			"modified_at":  snap.TimeModified,
			"elements":     snap.Elements,
		})
	}
}

// TracksHandler lists the raw records of one SCO attempt.
// GET /packages/{packageID}/scoes/{scoID}/attempts/{attempt}/tracks
func TracksHandler(store tracking.Store) http.HandlerFunc {
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
		recs, err := store.GetSCO(r.Context(), key.UserID, key.SCOID, key.Attempt)
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		_ = json.NewEncoder(w).Encode(recs)
	}
}
