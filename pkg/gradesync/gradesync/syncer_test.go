package gradesync_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	gradesync "github.com/mind-engage/scorm-engine/pkg/gradesync/gradesync"
)

/* ---------------- In-memory fakes that satisfy gradesync.Store & gradesync.AGSClient ---------------- */

type fakeStore struct {
	packages    map[string]gradesync.PackageInfo
	links       map[string]gradesync.Link // key: packageID
	lineitems   map[string]gradesync.SyncLineItem
	lineitemSeq int64
	userMap     map[string]string // key: issuer|localUserID => platformSub
	syncStatus  map[string]struct {
		status, lastErr string
		retries         int
	}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		packages:  map[string]gradesync.PackageInfo{},
		links:     map[string]gradesync.Link{},
		lineitems: map[string]gradesync.SyncLineItem{},
		userMap:   map[string]string{},
		syncStatus: map[string]struct {
			status, lastErr string
			retries         int
		}{},
	}
}

func key(parts ...string) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", parts[0], parts[1], parts[2], parts[3], parts[4])
}

func (s *fakeStore) GetPackageInfo(id string) (gradesync.PackageInfo, error) {
	p, ok := s.packages[id]
	if !ok {
		return gradesync.PackageInfo{}, fmt.Errorf("package %q not found", id)
	}
	return p, nil
}

func (s *fakeStore) GetLink(packageID string) (gradesync.Link, error) {
	l, ok := s.links[packageID]
	if !ok {
		return gradesync.Link{}, fmt.Errorf("link not found: %s", packageID)
	}
	return l, nil
}

func (s *fakeStore) UpsertLineItem(li gradesync.SyncLineItem) (gradesync.SyncLineItem, error) {
	k := key(li.PackageID, li.PlatformIssuer, li.DeploymentID, li.ContextID, li.ResourceLinkID)
	existing, ok := s.lineitems[k]
	if ok {
		existing.Label = li.Label
		existing.ScoreMax = li.ScoreMax
		existing.LineItemURL = li.LineItemURL
		s.lineitems[k] = existing
		return existing, nil
	}
	s.lineitemSeq++
	li.ID = s.lineitemSeq
	s.lineitems[k] = li
	return li, nil
}

func (s *fakeStore) FindLineItem(packageID, issuer, dep, ctxID, rlID string) (gradesync.SyncLineItem, error) {
	li, ok := s.lineitems[key(packageID, issuer, dep, ctxID, rlID)]
	if !ok {
		return gradesync.SyncLineItem{}, fmt.Errorf("lineitem not found")
	}
	return li, nil
}

func (s *fakeStore) GetPlatformUserID(issuer, localUserID string) (string, error) {
	sub, ok := s.userMap[issuer+"|"+localUserID]
	if !ok {
		return "", fmt.Errorf("mapping not found")
	}
	return sub, nil
}

func (s *fakeStore) MarkSyncPending(packageID, userID string) error {
	state := s.syncStatus[packageID+"|"+userID]
	state.status = "pending"
	s.syncStatus[packageID+"|"+userID] = state
	return nil
}
func (s *fakeStore) MarkSyncOK(packageID, userID string) error {
	state := s.syncStatus[packageID+"|"+userID]
	state.status, state.lastErr = "ok", ""
	s.syncStatus[packageID+"|"+userID] = state
	return nil
}
func (s *fakeStore) MarkSyncFailed(packageID, userID, lastErr string) error {
	state := s.syncStatus[packageID+"|"+userID]
	state.status, state.lastErr, state.retries = "failed", lastErr, state.retries+1
	s.syncStatus[packageID+"|"+userID] = state
	return nil
}

type fakeAGS struct {
	listed      []gradesync.LineItem
	createdReq  *gradesync.CreateLineItemReq
	createdResp *gradesync.LineItem
	postCalls   int
	lastScore   gradesync.Score
	postErr     error
}

func (f *fakeAGS) ListLineItems(_ string, _ map[string]string) ([]gradesync.LineItem, error) {
	return f.listed, nil
}
func (f *fakeAGS) CreateLineItem(_ string, req gradesync.CreateLineItemReq) (gradesync.LineItem, error) {
	f.createdReq = &req
	li := gradesync.LineItem{
		ID:             "https://platform.example/lineitems/123",
		Label:          req.Label,
		ScoreMaximum:   req.ScoreMaximum,
		ResourceID:     req.ResourceID,
		ResourceLinkID: req.ResourceLinkID,
	}
	f.createdResp = &li
	return li, nil
}
func (f *fakeAGS) PostScore(_ string, s gradesync.Score) error {
	f.postCalls++
	f.lastScore = s
	return f.postErr
}

/* ------------------------------------------ Tests ------------------------------------------ */

func seedBasic(t *testing.T) (*fakeStore, *fakeAGS, *gradesync.Syncer) {
	t.Helper()
	st := newFakeStore()
	ags := &fakeAGS{}

	st.packages["pkg-1"] = gradesync.PackageInfo{ID: "pkg-1", Title: "Safety Training", MaxGrade: 100}
	st.links["pkg-1"] = gradesync.Link{
		PackageID:      "pkg-1",
		PlatformIssuer: "iss-1",
		DeploymentID:   "dep-1",
		ContextID:      "ctx-1",
		ResourceLinkID: "rl-1",
		LineItemsURL:   "https://platform.example/lineitems",
		Scopes:         []string{"lineitem", "score"},
	}
	st.userMap["iss-1|u1"] = "platform-sub-123"

	return st, ags, gradesync.New(st, ags, time.Now)
}

func TestSyncer_CreatesAndPosts(t *testing.T) {
	st, ags, syncer := seedBasic(t)

	grade := 80.0
	if err := syncer.PushGrade(context.Background(), "pkg-1", "u1", &grade); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ags.createdResp == nil {
		t.Fatalf("expected CreateLineItem to be called")
	}
	if ags.postCalls != 1 {
		t.Fatalf("expected 1 PostScore call, got %d", ags.postCalls)
	}
	if !ags.lastScore.HasScore || ags.lastScore.ScoreGiven != 80 {
		t.Fatalf("expected score 80 posted, got %+v", ags.lastScore)
	}

	k := key("pkg-1", "iss-1", "dep-1", "ctx-1", "rl-1")
	if _, ok := st.lineitems[k]; !ok {
		t.Fatalf("expected line item persisted in store")
	}
	if st.syncStatus["pkg-1|u1"].status != "ok" {
		t.Fatalf("expected sync status ok; got %q", st.syncStatus["pkg-1|u1"].status)
	}
}

func TestSyncer_UsesExistingLineItem(t *testing.T) {
	_, ags, syncer := seedBasic(t)

	ags.listed = []gradesync.LineItem{{
		ID:             "https://platform.example/lineitems/exist",
		Label:          "Safety Training",
		ScoreMaximum:   100,
		ResourceID:     "pkg-1",
		ResourceLinkID: "rl-1",
	}}

	grade := 55.0
	if err := syncer.PushGrade(context.Background(), "pkg-1", "u1", &grade); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ags.createdResp != nil {
		t.Fatalf("did not expect CreateLineItem to be called")
	}
	if ags.postCalls != 1 {
		t.Fatalf("expected 1 PostScore call, got %d", ags.postCalls)
	}
}

func TestSyncer_NilGradePostsNoScore(t *testing.T) {
	_, ags, syncer := seedBasic(t)

	if err := syncer.PushGrade(context.Background(), "pkg-1", "u1", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ags.postCalls != 1 {
		t.Fatalf("expected 1 PostScore call, got %d", ags.postCalls)
	}
	if ags.lastScore.HasScore {
		t.Fatalf("nil grade must not carry a scoreGiven")
	}
	if ags.lastScore.GradingProgress != "NotReady" {
		t.Fatalf("expected NotReady grading progress, got %q", ags.lastScore.GradingProgress)
	}
}

func TestSyncer_SkipsUnlinkedPackage(t *testing.T) {
	st, ags, syncer := seedBasic(t)
	delete(st.links, "pkg-1")

	grade := 42.0
	if err := syncer.PushGrade(context.Background(), "pkg-1", "u1", &grade); err != nil {
		t.Fatalf("unlinked package must be a no-op, got %v", err)
	}
	if ags.postCalls != 0 {
		t.Fatalf("expected 0 PostScore calls, got %d", ags.postCalls)
	}
}

func TestSyncer_FailsWithoutUserMapping(t *testing.T) {
	st, ags, syncer := seedBasic(t)
	delete(st.userMap, "iss-1|u1")

	grade := 90.0
	err := syncer.PushGrade(context.Background(), "pkg-1", "u1", &grade)
	if err == nil {
		t.Fatalf("expected error without platform user mapping")
	}
	if st.syncStatus["pkg-1|u1"].status != "failed" {
		t.Fatalf("expected sync status failed; got %q", st.syncStatus["pkg-1|u1"].status)
	}
	if ags.postCalls != 0 {
		t.Fatalf("expected 0 PostScore calls, got %d", ags.postCalls)
	}
}
