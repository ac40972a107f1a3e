package content

import (
	"context"
	"database/sql"
	"errors"
)

// Provider serves the static SCO hierarchy of imported packages.
type Provider interface {
	// GetSCO returns one SCO with its extension data attached.
	GetSCO(ctx context.Context, id int64) (SCO, error)
	// ListSCOes returns every SCO of a package, optionally restricted to
	// one organization, ordered by (sortorder, id).
	ListSCOes(ctx context.Context, packageID, organization string) ([]SCO, error)
	// FirstLaunchable returns the first launchable SCO of a package, the
	// pervasive recovery target for broken launch requests.
	FirstLaunchable(ctx context.Context, packageID string) (SCO, error)
	// NextLaunchable returns the first launchable SCO after the given one
	// in document order.
	NextLaunchable(ctx context.Context, packageID string, afterID int64) (SCO, error)
	// CountLaunchable counts launchable SCOes, optionally per organization.
	CountLaunchable(ctx context.Context, packageID, organization string) (int, error)
}

type SQLProvider struct {
	db *sql.DB
}

func NewSQLProvider(db *sql.DB) *SQLProvider { return &SQLProvider{db: db} }

const scoCols = `id, package_id, organization, identifier, parent, title, launch, sco_type, sortorder`

func (p *SQLProvider) GetSCO(ctx context.Context, id int64) (SCO, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+scoCols+` FROM scorm_scoes WHERE id=$1`, id)
	sco, err := scanSCO(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SCO{}, ErrSCONotFound
		}
		return SCO{}, err
	}
	if err := p.attachExtension(ctx, &sco); err != nil {
		return SCO{}, err
	}
	return sco, nil
}

func (p *SQLProvider) ListSCOes(ctx context.Context, packageID, organization string) ([]SCO, error) {
	q := `SELECT ` + scoCols + ` FROM scorm_scoes WHERE package_id=$1`
	args := []any{packageID}
	if organization != "" {
		q += ` AND organization=$2`
		args = append(args, organization)
	}
	q += ` ORDER BY sortorder, id`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scoes []SCO
	for rows.Next() {
		sco, err := scanSCO(rows)
		if err != nil {
			return nil, err
		}
		scoes = append(scoes, sco)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range scoes {
		if err := p.attachExtension(ctx, &scoes[i]); err != nil {
			return nil, err
		}
	}
	return scoes, nil
}

func (p *SQLProvider) FirstLaunchable(ctx context.Context, packageID string) (SCO, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+scoCols+` FROM scorm_scoes
		WHERE package_id=$1 AND launch <> ''
		ORDER BY sortorder, id LIMIT 1`, packageID)
	sco, err := scanSCO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SCO{}, ErrSCONotFound
	}
	if err != nil {
		return SCO{}, err
	}
	if err := p.attachExtension(ctx, &sco); err != nil {
		return SCO{}, err
	}
	return sco, nil
}

func (p *SQLProvider) NextLaunchable(ctx context.Context, packageID string, afterID int64) (SCO, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+scoCols+` FROM scorm_scoes
		WHERE package_id=$1 AND launch <> '' AND id > $2
		ORDER BY sortorder, id LIMIT 1`, packageID, afterID)
	sco, err := scanSCO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SCO{}, ErrSCONotFound
	}
	if err != nil {
		return SCO{}, err
	}
	if err := p.attachExtension(ctx, &sco); err != nil {
		return SCO{}, err
	}
	return sco, nil
}

func (p *SQLProvider) CountLaunchable(ctx context.Context, packageID, organization string) (int, error) {
	q := `SELECT COUNT(*) FROM scorm_scoes WHERE package_id=$1 AND launch <> ''`
	args := []any{packageID}
	if organization != "" {
		q += ` AND organization=$2`
		args = append(args, organization)
	}
	var n int
	err := p.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// PutSCO upserts a SCO and its extension data. Used by package import and
// by test fixtures.
func (p *SQLProvider) PutSCO(ctx context.Context, sco SCO) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO scorm_scoes (package_id, organization, identifier, parent, title, launch, sco_type, sortorder)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (package_id, identifier)
		DO UPDATE SET organization=$2, parent=$4, title=$5, launch=$6, sco_type=$7, sortorder=$8
		RETURNING id`,
		sco.PackageID, sco.Organization, sco.Identifier, sco.Parent, sco.Title, sco.Launch, sco.Type, sco.SortOrder).
		Scan(&id)
	if err != nil {
		return 0, err
	}
	if _, err := p.db.ExecContext(ctx, `DELETE FROM scorm_scoes_data WHERE sco_id=$1`, id); err != nil {
		return 0, err
	}
	for name, value := range sco.Extension {
		if _, err := p.db.ExecContext(ctx, `
			INSERT INTO scorm_scoes_data (sco_id, name, value) VALUES ($1,$2,$3)`,
			id, name, value); err != nil {
			return 0, err
		}
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSCO(row rowScanner) (SCO, error) {
	var sco SCO
	err := row.Scan(&sco.ID, &sco.PackageID, &sco.Organization, &sco.Identifier,
		&sco.Parent, &sco.Title, &sco.Launch, &sco.Type, &sco.SortOrder)
	return sco, err
}

func (p *SQLProvider) attachExtension(ctx context.Context, sco *SCO) error {
	rows, err := p.db.QueryContext(ctx,
		`SELECT name, value FROM scorm_scoes_data WHERE sco_id=$1`, sco.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	sco.Extension = map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return err
		}
		sco.Extension[name] = value
	}
	return rows.Err()
}
