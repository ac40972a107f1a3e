package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLStore keeps tracking records in the scorm_scoes_track table. It works
// against both the pgx and modernc sqlite drivers; queries stick to the
// shared placeholder syntax.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, userID string, scoID int64, attempt int, element string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, package_id, sco_id, attempt, element, value, modified_at
		FROM scorm_scoes_track
		WHERE user_id=$1 AND sco_id=$2 AND attempt=$3 AND element=$4`,
		userID, scoID, attempt, element)
	var r Record
	err := row.Scan(&r.ID, &r.UserID, &r.PackageID, &r.SCOID, &r.Attempt, &r.Element, &r.Value, &r.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) GetSCO(ctx context.Context, userID string, scoID int64, attempt int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, package_id, sco_id, attempt, element, value, modified_at
		FROM scorm_scoes_track
		WHERE user_id=$1 AND sco_id=$2 AND attempt=$3
		ORDER BY element`,
		userID, scoID, attempt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.PackageID, &r.SCOID, &r.Attempt, &r.Element, &r.Value, &r.Modified); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Insert(ctx context.Context, r Record) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scorm_scoes_track (user_id, package_id, sco_id, attempt, element, value, modified_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		r.UserID, r.PackageID, r.SCOID, r.Attempt, r.Element, r.Value, r.Modified).
		Scan(&id)
	return id, err
}

func (s *SQLStore) Update(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scorm_scoes_track SET value=$1, modified_at=$2 WHERE id=$3`,
		r.Value, r.Modified, r.ID)
	return err
}

func (s *SQLStore) HasTracks(ctx context.Context, userID, packageID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM scorm_scoes_track WHERE user_id=$1 AND package_id=$2 LIMIT 1`,
		userID, packageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLStore) MaxAttempt(ctx context.Context, userID, packageID string) (int, error) {
	return s.scanAttempt(ctx, `
		SELECT COALESCE(MAX(attempt), 0) FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2`, userID, packageID)
}

func (s *SQLStore) MinAttempt(ctx context.Context, userID, packageID string) (int, error) {
	return s.scanAttempt(ctx, `
		SELECT COALESCE(MIN(attempt), 0) FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2`, userID, packageID)
}

func (s *SQLStore) MaxSatisfiedAttempt(ctx context.Context, userID, packageID string) (int, error) {
	return s.scanAttempt(ctx, `
		SELECT COALESCE(MAX(attempt), 0) FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2 AND (value='completed' OR value='passed')`,
		userID, packageID)
}

func (s *SQLStore) scanAttempt(ctx context.Context, q, userID, packageID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, q, userID, packageID).Scan(&n)
	return n, err
}

func (s *SQLStore) DistinctAttempts(ctx context.Context, userID, packageID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT attempt FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2 ORDER BY attempt`,
		userID, packageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountAttempts(ctx context.Context, userID, packageID, element string) (int, error) {
	q := `SELECT COUNT(DISTINCT attempt) FROM scorm_scoes_track WHERE user_id=$1 AND package_id=$2`
	args := []any{userID, packageID}
	if element != "" {
		q += ` AND element=$3`
		args = append(args, element)
	}
	var n int
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

func (s *SQLStore) AttemptElements(ctx context.Context, userID, packageID string, attempt int, element string) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sco_id, value FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2 AND attempt=$3 AND element=$4`,
		userID, packageID, attempt, element)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]string{}
	for rows.Next() {
		var scoID int64
		var value string
		if err := rows.Scan(&scoID, &value); err != nil {
			return nil, err
		}
		out[scoID] = value
	}
	return out, rows.Err()
}

func (s *SQLStore) UserElements(ctx context.Context, userID, packageID string, elements []string) ([]Record, error) {
	if len(elements) == 0 {
		return nil, nil
	}
	q := `SELECT id, user_id, package_id, sco_id, attempt, element, value, modified_at
		FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2 AND element IN (`
	args := []any{userID, packageID}
	for i, el := range elements {
		if i > 0 {
			q += ","
		}
		q += placeholder(len(args) + 1)
		args = append(args, el)
	}
	q += `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.PackageID, &r.SCOID, &r.Attempt, &r.Element, &r.Value, &r.Modified); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) RuntimeWindow(ctx context.Context, userID, packageID string, scoID int64, attempt int) (int64, int64, error) {
	q := `SELECT COALESCE(MIN(modified_at),0), COALESCE(MAX(modified_at),0)
		FROM scorm_scoes_track
		WHERE user_id=$1 AND package_id=$2 AND attempt=$3`
	args := []any{userID, packageID, attempt}
	if scoID != 0 {
		q += ` AND sco_id=$4`
		args = append(args, scoID)
	}
	var start, finish int64
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&start, &finish)
	return start, finish, err
}

func (s *SQLStore) DeleteAttempt(ctx context.Context, userID, packageID string, attempt int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scorm_scoes_track WHERE user_id=$1 AND package_id=$2 AND attempt=$3`,
		userID, packageID, attempt)
	return err
}

func (s *SQLStore) DeleteUser(ctx context.Context, userID, packageID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scorm_scoes_track WHERE user_id=$1 AND package_id=$2`,
		userID, packageID)
	return err
}

func placeholder(n int) string { return fmt.Sprintf("$%d", n) }
