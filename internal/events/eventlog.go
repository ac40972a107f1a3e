package events

import (
	"context"
	"database/sql"
	"encoding/json"
)

// LogSink appends events to the scorm_event_log table.
type LogSink struct{ db *sql.DB }

func NewLogSink(db *sql.DB) *LogSink { return &LogSink{db: db} }

func (s *LogSink) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(map[string]any{
		"sco_id":  e.SCOID,
		"attempt": e.Attempt,
		"element": e.Element,
		"value":   e.Value,
	})
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scorm_event_log (event_id, kind, package_id, user_id, data, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		e.ID, string(e.Kind), e.PackageID, e.UserID, string(data), e.At)
	return err
}
