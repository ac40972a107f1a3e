// pkg/gradesync/types.go
package gradesync

import "time"

// Link carries the AGS coordinates captured at LTI launch for one content
// package: where the platform's line item collection lives and which
// resource link the package was launched from.
type Link struct {
	PackageID      string
	PlatformIssuer string
	DeploymentID   string
	ContextID      string
	ResourceLinkID string
	LineItemsURL   string
	Scopes         []string
}

// PackageInfo is the grading surface the platform sees for a package.
type PackageInfo struct {
	ID       string
	Title    string
	MaxGrade float64
}

// SyncLineItem is a platform line item bound to a local package.
type SyncLineItem struct {
	ID             int64
	PackageID      string
	PlatformIssuer string
	DeploymentID   string
	ContextID      string
	ResourceLinkID string
	Label          string
	ScoreMax       float64
	LineItemURL    string // absolute URL
}

// Store: implement this in your app, or use pkg/gradesync/sqlstore.Store
type Store interface {
	GetPackageInfo(id string) (PackageInfo, error)

	GetLink(packageID string) (Link, error)
	UpsertLineItem(li SyncLineItem) (SyncLineItem, error)
	FindLineItem(packageID, issuer, dep, ctx, rl string) (SyncLineItem, error)
	GetPlatformUserID(issuer, localUserID string) (string, error)

	MarkSyncPending(packageID, userID string) error
	MarkSyncOK(packageID, userID string) error
	MarkSyncFailed(packageID, userID, lastErr string) error
}

// LineItem is the platform's view of a grade column.
type LineItem struct {
	ID, Label, ResourceID, ResourceLinkID string
	ScoreMaximum                          float64
}

type CreateLineItemReq struct {
	Label          string
	ScoreMaximum   float64
	ResourceID     string
	ResourceLinkID string
}

type Score struct {
	UserID, ActivityProgress, GradingProgress string
	ScoreGiven, ScoreMaximum                  float64
	HasScore                                  bool
	Timestamp                                 time.Time
}

type AGSClient interface {
	ListLineItems(lineItemsURL string, q map[string]string) ([]LineItem, error)
	CreateLineItem(lineItemsURL string, req CreateLineItemReq) (LineItem, error)
	PostScore(lineItemURL string, s Score) error
}
