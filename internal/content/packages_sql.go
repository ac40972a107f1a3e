package content

import (
	"context"
	"database/sql"
	"errors"
)

// PackageStore resolves package configuration.
type PackageStore interface {
	GetPackage(ctx context.Context, id string) (Package, error)
	PutPackage(ctx context.Context, p Package) error
}

const pkgCols = `id, title, version, max_grade, grade_method, what_grade, max_attempt,
	force_completed, force_new_attempt, hide_browse, last_attempt_lock,
	completion_status_mask, completion_status_all_scos, completion_score_min`

func (p *SQLProvider) GetPackage(ctx context.Context, id string) (Package, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+pkgCols+` FROM scorm_packages WHERE id=$1`, id)
	var (
		pkg  Package
		mask sql.NullInt64
		min  sql.NullFloat64
	)
	err := row.Scan(&pkg.ID, &pkg.Title, &pkg.Version, &pkg.MaxGrade,
		&pkg.GradeMethod, &pkg.WhatGrade, &pkg.MaxAttempt,
		&pkg.ForceCompleted, &pkg.ForceNewAttempt, &pkg.HideBrowse, &pkg.LastAttemptLock,
		&mask, &pkg.CompletionAllSCOs, &min)
	if errors.Is(err, sql.ErrNoRows) {
		return Package{}, ErrPackageNotFound
	}
	if err != nil {
		return Package{}, err
	}
	if mask.Valid {
		v := int(mask.Int64)
		pkg.CompletionStatusMask = &v
	}
	if min.Valid {
		v := min.Float64
		pkg.CompletionScoreMin = &v
	}
	return pkg, nil
}

func (p *SQLProvider) PutPackage(ctx context.Context, pkg Package) error {
	var (
		mask any
		min  any
	)
	if pkg.CompletionStatusMask != nil {
		mask = *pkg.CompletionStatusMask
	}
	if pkg.CompletionScoreMin != nil {
		min = *pkg.CompletionScoreMin
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO scorm_packages (`+pkgCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, version=EXCLUDED.version, max_grade=EXCLUDED.max_grade,
			grade_method=EXCLUDED.grade_method, what_grade=EXCLUDED.what_grade,
			max_attempt=EXCLUDED.max_attempt, force_completed=EXCLUDED.force_completed,
			force_new_attempt=EXCLUDED.force_new_attempt, hide_browse=EXCLUDED.hide_browse,
			last_attempt_lock=EXCLUDED.last_attempt_lock,
			completion_status_mask=EXCLUDED.completion_status_mask,
			completion_status_all_scos=EXCLUDED.completion_status_all_scos,
			completion_score_min=EXCLUDED.completion_score_min`,
		pkg.ID, pkg.Title, pkg.Version, pkg.MaxGrade,
		pkg.GradeMethod, pkg.WhatGrade, pkg.MaxAttempt,
		pkg.ForceCompleted, pkg.ForceNewAttempt, pkg.HideBrowse, pkg.LastAttemptLock,
		mask, pkg.CompletionAllSCOs, min)
	return err
}
