package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:scormengine.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/scormengine?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS scorm_packages (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT 'SCORM_1.2',
  max_grade REAL NOT NULL DEFAULT 100,
  grade_method TEXT NOT NULL DEFAULT 'highest',
  what_grade TEXT NOT NULL DEFAULT 'highest',
  max_attempt INTEGER NOT NULL DEFAULT 0,     -- 0 = unlimited
  force_completed INTEGER NOT NULL DEFAULT 0,
  force_new_attempt INTEGER NOT NULL DEFAULT 0,
  hide_browse INTEGER NOT NULL DEFAULT 0,
  last_attempt_lock INTEGER NOT NULL DEFAULT 0,
  completion_status_mask INTEGER,             -- NULL = threshold not configured
  completion_status_all_scos INTEGER NOT NULL DEFAULT 0,
  completion_score_min REAL,
  created_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scorm_scoes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  package_id TEXT NOT NULL REFERENCES scorm_packages(id) ON DELETE CASCADE,
  organization TEXT NOT NULL DEFAULT '',
  identifier TEXT NOT NULL,
  parent TEXT NOT NULL DEFAULT '/',
  title TEXT NOT NULL DEFAULT '',
  launch TEXT NOT NULL DEFAULT '',
  sco_type TEXT NOT NULL DEFAULT 'sco',
  sortorder INTEGER NOT NULL DEFAULT 0,
  UNIQUE(package_id, identifier)
);

CREATE TABLE IF NOT EXISTS scorm_scoes_data (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  sco_id INTEGER NOT NULL REFERENCES scorm_scoes(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '',
  UNIQUE(sco_id, name)
);

CREATE TABLE IF NOT EXISTS scorm_scoes_track (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  package_id TEXT NOT NULL,
  sco_id INTEGER NOT NULL,
  attempt INTEGER NOT NULL,
  element TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '',
  modified_at INTEGER NOT NULL DEFAULT 0,
  UNIQUE(user_id, sco_id, attempt, element)
);
CREATE INDEX IF NOT EXISTS idx_track_user_pkg ON scorm_scoes_track(user_id, package_id);

CREATE TABLE IF NOT EXISTS scorm_event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  event_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  package_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS scorm_packages (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  version TEXT NOT NULL DEFAULT 'SCORM_1.2',
  max_grade DOUBLE PRECISION NOT NULL DEFAULT 100,
  grade_method TEXT NOT NULL DEFAULT 'highest',
  what_grade TEXT NOT NULL DEFAULT 'highest',
  max_attempt INTEGER NOT NULL DEFAULT 0,
  force_completed BOOLEAN NOT NULL DEFAULT FALSE,
  force_new_attempt INTEGER NOT NULL DEFAULT 0,
  hide_browse BOOLEAN NOT NULL DEFAULT FALSE,
  last_attempt_lock BOOLEAN NOT NULL DEFAULT FALSE,
  completion_status_mask INTEGER,
  completion_status_all_scos BOOLEAN NOT NULL DEFAULT FALSE,
  completion_score_min DOUBLE PRECISION,
  created_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scorm_scoes (
  id BIGSERIAL PRIMARY KEY,
  package_id TEXT NOT NULL REFERENCES scorm_packages(id) ON DELETE CASCADE,
  organization TEXT NOT NULL DEFAULT '',
  identifier TEXT NOT NULL,
  parent TEXT NOT NULL DEFAULT '/',
  title TEXT NOT NULL DEFAULT '',
  launch TEXT NOT NULL DEFAULT '',
  sco_type TEXT NOT NULL DEFAULT 'sco',
  sortorder INTEGER NOT NULL DEFAULT 0,
  UNIQUE(package_id, identifier)
);

CREATE TABLE IF NOT EXISTS scorm_scoes_data (
  id BIGSERIAL PRIMARY KEY,
  sco_id BIGINT NOT NULL REFERENCES scorm_scoes(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '',
  UNIQUE(sco_id, name)
);

CREATE TABLE IF NOT EXISTS scorm_scoes_track (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  package_id TEXT NOT NULL,
  sco_id BIGINT NOT NULL,
  attempt INTEGER NOT NULL,
  element TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT '',
  modified_at BIGINT NOT NULL DEFAULT 0,
  UNIQUE(user_id, sco_id, attempt, element)
);
CREATE INDEX IF NOT EXISTS idx_track_user_pkg ON scorm_scoes_track(user_id, package_id);

CREATE TABLE IF NOT EXISTS scorm_event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  event_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  package_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
