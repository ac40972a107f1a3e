// pkg/gradesync/syncer.go
package gradesync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Clock func() time.Time

// Syncer pushes engine grades into the launching platform's gradebook over
// LTI AGS. PushGrade satisfies the grading recompute hook.
type Syncer struct {
	Store Store
	AGS   AGSClient
	Now   Clock
}

func New(store Store, ags AGSClient, now Clock) *Syncer {
	if now == nil {
		now = time.Now
	}
	return &Syncer{Store: store, AGS: ags, Now: now}
}

// EnsureLineItem finds or creates the platform line item for a package,
// preferring a locally cached URL, then a matching platform item, then a
// fresh create.
func (s *Syncer) EnsureLineItem(link Link) (SyncLineItem, error) {
	if li, err := s.Store.FindLineItem(link.PackageID, link.PlatformIssuer, link.DeploymentID, link.ContextID, link.ResourceLinkID); err == nil && li.LineItemURL != "" {
		return li, nil
	}
	if link.LineItemsURL == "" {
		return SyncLineItem{}, errors.New("missing lineitems_url")
	}

	pkg, err := s.Store.GetPackageInfo(link.PackageID)
	if err != nil {
		return SyncLineItem{}, fmt.Errorf("package: %w", err)
	}

	items, err := s.AGS.ListLineItems(link.LineItemsURL, map[string]string{
		"resource_id":      pkg.ID,
		"resource_link_id": link.ResourceLinkID,
	})
	if err == nil {
		for _, it := range items {
			if it.ResourceID == pkg.ID && it.ResourceLinkID == link.ResourceLinkID {
				return s.Store.UpsertLineItem(SyncLineItem{
					PackageID: pkg.ID, PlatformIssuer: link.PlatformIssuer, DeploymentID: link.DeploymentID,
					ContextID: link.ContextID, ResourceLinkID: link.ResourceLinkID,
					Label: it.Label, ScoreMax: it.ScoreMaximum, LineItemURL: it.ID,
				})
			}
		}
	}
	created, err := s.AGS.CreateLineItem(link.LineItemsURL, CreateLineItemReq{
		Label: pkg.Title, ScoreMaximum: pkg.MaxGrade, ResourceID: pkg.ID, ResourceLinkID: link.ResourceLinkID,
	})
	if err != nil {
		return SyncLineItem{}, fmt.Errorf("create line item: %w", err)
	}
	return s.Store.UpsertLineItem(SyncLineItem{
		PackageID: pkg.ID, PlatformIssuer: link.PlatformIssuer, DeploymentID: link.DeploymentID,
		ContextID: link.ContextID, ResourceLinkID: link.ResourceLinkID,
		Label: created.Label, ScoreMax: created.ScoreMaximum, LineItemURL: created.ID,
	})
}

// PushGrade publishes one user's reported grade. A nil grade is forwarded
// as "no score yet", not as zero.
func (s *Syncer) PushGrade(_ context.Context, packageID, userID string, grade *float64) error {
	link, err := s.Store.GetLink(packageID)
	if err != nil {
		// Package was never launched over LTI; nothing to sync.
		return nil
	}
	_ = s.Store.MarkSyncPending(packageID, userID)

	li, err := s.EnsureLineItem(link)
	if err != nil {
		_ = s.Store.MarkSyncFailed(packageID, userID, err.Error())
		return err
	}

	platformUserID, err := s.Store.GetPlatformUserID(link.PlatformIssuer, userID)
	if err != nil || platformUserID == "" {
		_ = s.Store.MarkSyncFailed(packageID, userID, "no platform user mapping")
		return fmt.Errorf("no platform user mapping for %s", userID)
	}

	score := Score{
		UserID:           platformUserID,
		ScoreMaximum:     li.ScoreMax,
		ActivityProgress: "InProgress",
		GradingProgress:  "NotReady",
		Timestamp:        s.Now(),
	}
	if grade != nil {
		score.ScoreGiven = *grade
		score.HasScore = true
		score.ActivityProgress = "Completed"
		score.GradingProgress = "FullyGraded"
	}
	if err := s.AGS.PostScore(li.LineItemURL, score); err != nil {
		_ = s.Store.MarkSyncFailed(packageID, userID, err.Error())
		return err
	}
	return s.Store.MarkSyncOK(packageID, userID)
}
