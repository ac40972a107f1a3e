package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/scorm-engine/internal/content"
	"github.com/mind-engage/scorm-engine/internal/db"
)

func openTestProvider(t *testing.T) *content.SQLProvider {
	t.Helper()
	dbh, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return content.NewSQLProvider(dbh)
}

func seedPackage(t *testing.T, p *content.SQLProvider, pkg content.Package) {
	t.Helper()
	if pkg.Title == "" {
		pkg.Title = "Test Package"
	}
	if pkg.Version == "" {
		pkg.Version = content.VersionSCORM12
	}
	if err := p.PutPackage(context.Background(), pkg); err != nil {
		t.Fatalf("put package: %v", err)
	}
}

func TestSQLProvider_SCORoundTrip(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	seedPackage(t, p, content.Package{ID: "pkg-1"})

	id, err := p.PutSCO(ctx, content.SCO{
		PackageID:  "pkg-1",
		Identifier: "lesson-1",
		Parent:     content.RootParent,
		Title:      "Lesson One",
		Launch:     "lesson1/index.html",
		Type:       content.TypeSCO,
		SortOrder:  1,
		Extension:  map[string]string{"prerequisites": "intro", "masteryscore": "70"},
	})
	if err != nil {
		t.Fatalf("put sco: %v", err)
	}

	sco, err := p.GetSCO(ctx, id)
	if err != nil {
		t.Fatalf("get sco: %v", err)
	}
	if sco.Identifier != "lesson-1" || sco.Launch != "lesson1/index.html" {
		t.Fatalf("unexpected sco: %+v", sco)
	}
	if sco.Extension["masteryscore"] != "70" || sco.Prerequisites() != "intro" {
		t.Fatalf("extension data not attached: %v", sco.Extension)
	}

	// Re-import with the same identifier updates in place and replaces
	// extension data instead of accumulating it.
	id2, err := p.PutSCO(ctx, content.SCO{
		PackageID:  "pkg-1",
		Identifier: "lesson-1",
		Parent:     content.RootParent,
		Title:      "Lesson One v2",
		Launch:     "lesson1/v2.html",
		Type:       content.TypeSCO,
		SortOrder:  1,
		Extension:  map[string]string{"isvisible": "false"},
	})
	if err != nil {
		t.Fatalf("re-put sco: %v", err)
	}
	if id2 != id {
		t.Fatalf("re-import allocated a new id: %d != %d", id2, id)
	}
	sco, err = p.GetSCO(ctx, id)
	if err != nil {
		t.Fatalf("get sco after re-import: %v", err)
	}
	if sco.Title != "Lesson One v2" || sco.Visible() {
		t.Fatalf("re-import did not update: %+v", sco)
	}
	if _, ok := sco.Extension["masteryscore"]; ok {
		t.Fatalf("stale extension data survived re-import")
	}

	if _, err := p.GetSCO(ctx, 9999); !errors.Is(err, content.ErrSCONotFound) {
		t.Fatalf("expected ErrSCONotFound, got %v", err)
	}
}

func TestSQLProvider_LaunchableNavigation(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()
	seedPackage(t, p, content.Package{ID: "pkg-1"})

	put := func(identifier, launch, scoType string, order int) int64 {
		id, err := p.PutSCO(ctx, content.SCO{
			PackageID: "pkg-1", Identifier: identifier, Parent: content.RootParent,
			Launch: launch, Type: scoType, SortOrder: order,
		})
		if err != nil {
			t.Fatalf("put %s: %v", identifier, err)
		}
		return id
	}
	put("module-a", "", "", 1)
	first := put("lesson-1", "l1.html", content.TypeSCO, 2)
	second := put("lesson-2", "l2.html", content.TypeSCO, 3)

	sco, err := p.FirstLaunchable(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("FirstLaunchable: %v", err)
	}
	if sco.ID != first {
		t.Fatalf("FirstLaunchable = %d, want %d", sco.ID, first)
	}

	sco, err = p.NextLaunchable(ctx, "pkg-1", first)
	if err != nil {
		t.Fatalf("NextLaunchable: %v", err)
	}
	if sco.ID != second {
		t.Fatalf("NextLaunchable = %d, want %d", sco.ID, second)
	}
	if _, err := p.NextLaunchable(ctx, "pkg-1", second); !errors.Is(err, content.ErrSCONotFound) {
		t.Fatalf("expected ErrSCONotFound past the end, got %v", err)
	}

	if n, _ := p.CountLaunchable(ctx, "pkg-1", ""); n != 2 {
		t.Fatalf("CountLaunchable = %d, want 2", n)
	}

	scoes, err := p.ListSCOes(ctx, "pkg-1", "")
	if err != nil {
		t.Fatalf("ListSCOes: %v", err)
	}
	if len(scoes) != 3 || scoes[0].Identifier != "module-a" || scoes[2].Identifier != "lesson-2" {
		t.Fatalf("ListSCOes order wrong: %+v", scoes)
	}
}

func TestSQLProvider_PackageConfig(t *testing.T) {
	p := openTestProvider(t)
	ctx := context.Background()

	mask := 6
	min := 72.5
	seedPackage(t, p, content.Package{
		ID:                   "pkg-1",
		Version:              content.VersionSCORM13,
		GradeMethod:          "average",
		WhatGrade:            "last",
		MaxAttempt:           3,
		ForceCompleted:       true,
		HideBrowse:           true,
		CompletionStatusMask: &mask,
		CompletionAllSCOs:    true,
		CompletionScoreMin:   &min,
	})

	pkg, err := p.GetPackage(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if pkg.Is12() {
		t.Fatalf("expected SCORM_1.3 package")
	}
	if pkg.GradeMethod != "average" || pkg.MaxAttempt != 3 || !pkg.ForceCompleted || !pkg.HideBrowse {
		t.Fatalf("settings lost: %+v", pkg)
	}
	if pkg.CompletionStatusMask == nil || *pkg.CompletionStatusMask != 6 {
		t.Fatalf("status mask lost: %+v", pkg.CompletionStatusMask)
	}
	if pkg.CompletionScoreMin == nil || *pkg.CompletionScoreMin != 72.5 {
		t.Fatalf("score min lost: %+v", pkg.CompletionScoreMin)
	}

	// Thresholds clear back to NULL on update.
	pkg.CompletionStatusMask = nil
	pkg.CompletionScoreMin = nil
	if err := p.PutPackage(ctx, pkg); err != nil {
		t.Fatalf("update package: %v", err)
	}
	pkg, err = p.GetPackage(ctx, "pkg-1")
	if err != nil {
		t.Fatalf("re-get package: %v", err)
	}
	if pkg.CompletionStatusMask != nil || pkg.CompletionScoreMin != nil {
		t.Fatalf("thresholds did not clear: %+v", pkg)
	}

	if _, err := p.GetPackage(ctx, "ghost"); !errors.Is(err, content.ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
}
