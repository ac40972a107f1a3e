package tracking

import (
	"context"
	"fmt"

	"github.com/mind-engage/scorm-engine/internal/events"
)

// Deleter removes tracking history in bulk. Each removal re-derives the
// grade afterwards, so a user stripped of all tracks lands back on "no
// grade" rather than a stale number.
type Deleter struct {
	store     Store
	recompute Recomputer
	sink      events.Sink
}

func NewDeleter(store Store, recompute Recomputer, sink events.Sink) *Deleter {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &Deleter{store: store, recompute: recompute, sink: sink}
}

// DeleteAttempt removes every record of one attempt.
func (d *Deleter) DeleteAttempt(ctx context.Context, userID, packageID string, attempt int) error {
	if userID == "" || packageID == "" || attempt < 1 {
		return fmt.Errorf("%w: user=%q package=%q attempt=%d", ErrInvalidKey, userID, packageID, attempt)
	}
	if err := d.store.DeleteAttempt(ctx, userID, packageID, attempt); err != nil {
		return err
	}
	return d.afterDelete(ctx, userID, packageID, attempt)
}

// DeleteUser removes every record the user holds for the package.
func (d *Deleter) DeleteUser(ctx context.Context, userID, packageID string) error {
	if userID == "" || packageID == "" {
		return fmt.Errorf("%w: user=%q package=%q", ErrInvalidKey, userID, packageID)
	}
	if err := d.store.DeleteUser(ctx, userID, packageID); err != nil {
		return err
	}
	return d.afterDelete(ctx, userID, packageID, 0)
}

func (d *Deleter) afterDelete(ctx context.Context, userID, packageID string, attempt int) error {
	var derived error
	if d.recompute != nil {
		if err := d.recompute.Recompute(ctx, userID, packageID); err != nil {
			derived = fmt.Errorf("%w: recompute: %v", ErrDerivedUpdate, err)
		}
	}
	ev := events.New(events.KindAttemptDeleted)
	ev.UserID = userID
	ev.PackageID = packageID
	ev.Attempt = attempt
	if err := d.sink.Publish(ctx, ev); err != nil && derived == nil {
		derived = fmt.Errorf("%w: publish: %v", ErrDerivedUpdate, err)
	}
	return derived
}
