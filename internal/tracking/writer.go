package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/scorm-engine/internal/cmi"
	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/events"
)

// Key identifies one runtime data stream: a learner working a SCO within an
// attempt of a package.
type Key struct {
	UserID    string
	PackageID string
	SCOID     int64
	Attempt   int
}

func (k Key) validate() error {
	if k.UserID == "" || k.PackageID == "" || k.SCOID == 0 || k.Attempt < 1 {
		return fmt.Errorf("%w: user=%q package=%q sco=%d attempt=%d",
			ErrInvalidKey, k.UserID, k.PackageID, k.SCOID, k.Attempt)
	}
	return nil
}

// ElementValue is one submitted CMI element in form order. Order matters:
// a score arriving before its lesson_status changes how the status lands.
type ElementValue struct {
	Element string
	Value   string
}

// Recomputer re-derives the package grade and completion state for a user
// after a track write that can change them.
type Recomputer interface {
	Recompute(ctx context.Context, userID, packageID string) error
}

// Writer persists CMI elements and applies the write-time policies: the
// forced-completion rewrite, content-set objective synthesis, the write-once
// start timestamp, and change-only timestamp bumps. Successful writes that
// fail a derived update (grade recompute, event publish) still return the
// record id; the error unwraps to ErrDerivedUpdate so callers can retry the
// derivation without re-posting the track.
type Writer struct {
	store     Store
	scoes     content.Provider
	recompute Recomputer
	sink      events.Sink
	log       *zap.Logger
	now       func() int64
}

type WriterOption func(*Writer)

func WithRecomputer(r Recomputer) WriterOption  { return func(w *Writer) { w.recompute = r } }
func WithSink(s events.Sink) WriterOption       { return func(w *Writer) { w.sink = s } }
func WithClock(now func() int64) WriterOption   { return func(w *Writer) { w.now = now } }
func WithLogger(log *zap.Logger) WriterOption   { return func(w *Writer) { w.log = log } }
func WithSCOes(p content.Provider) WriterOption { return func(w *Writer) { w.scoes = p } }

func NewWriter(store Store, opts ...WriterOption) *Writer {
	w := &Writer{
		store: store,
		sink:  events.NopSink{},
		log:   zap.NewNop(),
		now:   func() int64 { return time.Now().Unix() },
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Write stores a single element value. When force is set, an incomplete
// lesson_status is promoted to completed whenever a raw score exists for the
// same stream, regardless of which of the two arrives first.
func (w *Writer) Write(ctx context.Context, key Key, element, value string, force bool) (int64, error) {
	if err := key.validate(); err != nil {
		return 0, err
	}
	now := w.now()

	if force {
		if err := w.applyForcedCompletion(ctx, key, element, &value); err != nil {
			return 0, err
		}
	}
	if err := w.applyObjectivePolicy(ctx, key, element, value, now); err != nil {
		return 0, err
	}

	id, _, err := w.upsert(ctx, key, element, value, now)
	if err != nil {
		return 0, err
	}
	// Derivations follow submissions, not value transitions: resubmitting
	// an unchanged score or status still recomputes and fires the event,
	// even though the stored timestamp stays put.
	if derr := w.deriveAfterWrite(ctx, key, element, value, now); derr != nil {
		return id, derr
	}
	return id, nil
}

// WriteBatch decodes a form submission and writes each cmi element in
// submission order. Non-cmi names are dropped. It returns the id of the last
// write and the first error; derived-update errors do not stop the batch.
func (w *Writer) WriteBatch(ctx context.Context, key Key, pairs []ElementValue, force bool) (int64, error) {
	if err := key.validate(); err != nil {
		return 0, err
	}
	var (
		lastID  int64
		derived error
	)
	for _, p := range pairs {
		element := cmi.Decode(p.Element)
		if !strings.HasPrefix(element, "cmi.") {
			continue
		}
		id, err := w.Write(ctx, key, element, p.Value, force)
		if err != nil && !IsDerived(err) {
			return lastID, err
		}
		if err != nil && derived == nil {
			derived = err
		}
		lastID = id
	}
	return lastID, derived
}

// applyForcedCompletion implements the two-sided promotion: an incoming
// incomplete status becomes completed if a score already landed, and an
// incoming score retroactively completes an already-stored incomplete
// status. The retroactive rewrite does not bump the stored timestamp.
func (w *Writer) applyForcedCompletion(ctx context.Context, key Key, element string, value *string) error {
	switch {
	case element == cmi.ElemLessonStatus && *value == cmi.StatusIncomplete:
		_, err := w.store.Get(ctx, key.UserID, key.SCOID, key.Attempt, cmi.ElemScoreRaw)
		if err == nil {
			*value = cmi.StatusCompleted
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	case element == cmi.ElemScoreRaw:
		r, err := w.store.Get(ctx, key.UserID, key.SCOID, key.Attempt, cmi.ElemLessonStatus)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if r.Value == cmi.StatusIncomplete {
			r.Value = cmi.StatusCompleted
			return w.store.Update(ctx, r)
		}
	}
	return nil
}

// applyObjectivePolicy synthesizes objective progress elements for SCOes
// flagged to have their objectives set by content.
func (w *Writer) applyObjectivePolicy(ctx context.Context, key Key, element, value string, now int64) error {
	if element != cmi.ElemSuccessStatus {
		return nil
	}
	if value != cmi.StatusPassed && value != cmi.StatusFailed {
		return nil
	}
	if w.scoes == nil {
		return nil
	}
	sco, err := w.scoes.GetSCO(ctx, key.SCOID)
	if err != nil {
		return err
	}
	if sco.Extension["objectivesetbycontent"] != "1" {
		return nil
	}
	if _, _, err := w.upsert(ctx, key, "objectiveprogressstatus", "true", now); err != nil {
		return err
	}
	if value == cmi.StatusPassed {
		if _, _, err := w.upsert(ctx, key, "objectivesatisfiedstatus", "true", now); err != nil {
			return err
		}
	}
	return nil
}

// upsert inserts or updates one record. The start timestamp is write-once;
// every other element updates only when the value actually changed, so the
// stored timestamp reflects the last change, not the last submission.
func (w *Writer) upsert(ctx context.Context, key Key, element, value string, now int64) (int64, bool, error) {
	existing, err := w.store.Get(ctx, key.UserID, key.SCOID, key.Attempt, element)
	if errors.Is(err, ErrNotFound) {
		id, ierr := w.store.Insert(ctx, Record{
			UserID:    key.UserID,
			PackageID: key.PackageID,
			SCOID:     key.SCOID,
			Attempt:   key.Attempt,
			Element:   element,
			Value:     value,
			Modified:  now,
		})
		return id, ierr == nil, ierr
	}
	if err != nil {
		return 0, false, err
	}
	if element == cmi.ElemStartTime {
		return existing.ID, false, nil
	}
	if existing.Value == value {
		return existing.ID, false, nil
	}
	existing.Value = value
	existing.Modified = now
	if err := w.store.Update(ctx, existing); err != nil {
		return 0, false, err
	}
	return existing.ID, true, nil
}

// deriveAfterWrite fires the grade recompute and the activity event for
// writes that can change the reported grade or the completion state.
func (w *Writer) deriveAfterWrite(ctx context.Context, key Key, element, value string, now int64) error {
	var derived error

	if w.recompute != nil && triggersGrade(element, value) {
		if err := w.recompute.Recompute(ctx, key.UserID, key.PackageID); err != nil {
			w.log.Warn("grade recompute failed",
				zap.String("user", key.UserID),
				zap.String("package", key.PackageID),
				zap.Error(err))
			derived = fmt.Errorf("%w: recompute: %v", ErrDerivedUpdate, err)
		}
	}
	if kind, ok := eventFor(element, value); ok {
		ev := events.New(kind)
		ev.UserID = key.UserID
		ev.PackageID = key.PackageID
		ev.SCOID = key.SCOID
		ev.Attempt = key.Attempt
		ev.Element = element
		ev.Value = value
		ev.At = now
		if err := w.sink.Publish(ctx, ev); err != nil {
			w.log.Warn("event publish failed", zap.String("kind", string(kind)), zap.Error(err))
			if derived == nil {
				derived = fmt.Errorf("%w: publish: %v", ErrDerivedUpdate, err)
			}
		}
	}
	return derived
}

// IsDerived reports whether err marks a write whose record landed but whose
// derived updates did not.
func IsDerived(err error) bool { return errors.Is(err, ErrDerivedUpdate) }

func triggersGrade(element, value string) bool {
	if strings.Contains(element, ".score.raw") {
		return true
	}
	switch element {
	case cmi.ElemLessonStatus, cmi.ElemCompletionStatus, cmi.ElemSuccessStatus:
		return value == cmi.StatusCompleted || value == cmi.StatusPassed
	}
	return false
}

func eventFor(element, value string) (events.Kind, bool) {
	if strings.Contains(element, ".score.raw") {
		return events.KindScoreSubmitted, true
	}
	switch element {
	case cmi.ElemLessonStatus, cmi.ElemCompletionStatus, cmi.ElemSuccessStatus:
		switch value {
		case cmi.StatusCompleted, cmi.StatusPassed, cmi.StatusFailed:
			return events.KindStatusSubmitted, true
		}
	}
	return "", false
}
