package storage

import (
	"context"
	"database/sql"
	"time"
)

// AppendAudit records a user action. Callers treat failures as log-only;
// an audit miss never fails the action it describes.
func (s *Store) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var taskID any
	if e.TaskID > 0 {
		taskID = e.TaskID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log(chat_id, actor_id, actor_name, action, task_id, meta, created_at)
		 VALUES(?,?,?,?,?,?,?)`,
		e.ChatID, e.ActorID, nullStr(e.ActorName), e.Action, taskID, nullStr(e.MetaJSON), fmtTime(e.CreatedAt),
	)
	return err
}

// RecentAudit lists the latest entries for a chat, newest first.
func (s *Store) RecentAudit(ctx context.Context, chatID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, actor_id, actor_name, action, task_id, meta, created_at
		 FROM audit_log WHERE chat_id = ? ORDER BY id DESC LIMIT ?`,
		chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var (
			e      AuditEntry
			name   sql.NullString
			taskID sql.NullInt64
			meta   sql.NullString
			at     string
		)
		if err := rows.Scan(&e.ID, &e.ChatID, &e.ActorID, &name, &e.Action, &taskID, &meta, &at); err != nil {
			return nil, err
		}
		e.ActorName = name.String
		e.TaskID = taskID.Int64
		e.MetaJSON = meta.String
		if e.CreatedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
