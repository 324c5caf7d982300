package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SetPending records what the next free-text message from (chat, user) means.
// A second call overwrites the previous expectation.
func (s *Store) SetPending(ctx context.Context, p PendingInput) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending(chat_id, user_id, action, task_id, meta, created_at) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(chat_id, user_id) DO UPDATE SET
		   action = excluded.action, task_id = excluded.task_id,
		   meta = excluded.meta, created_at = excluded.created_at`,
		p.ChatID, p.UserID, p.Kind.String(), p.TaskID, nullStr(p.Meta), fmtTime(time.Now()),
	)
	return err
}

// Pending returns the expectation for (chat, user), or ErrNotFound.
func (s *Store) Pending(ctx context.Context, chatID, userID int64) (PendingInput, error) {
	var (
		p      PendingInput
		action string
		taskID sql.NullInt64
		meta   sql.NullString
		at     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT action, task_id, meta, created_at FROM pending WHERE chat_id = ? AND user_id = ?`,
		chatID, userID,
	).Scan(&action, &taskID, &meta, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingInput{}, ErrNotFound
	}
	if err != nil {
		return PendingInput{}, err
	}
	p.ChatID = chatID
	p.UserID = userID
	if p.Kind, err = parsePendingKind(action); err != nil {
		return PendingInput{}, err
	}
	p.TaskID = taskID.Int64
	p.Meta = meta.String
	if p.CreatedAt, err = parseTime(at); err != nil {
		return PendingInput{}, err
	}
	return p, nil
}

// ClearPending removes the expectation. Clearing an absent row is not an error.
func (s *Store) ClearPending(ctx context.Context, chatID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pending WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	return err
}
