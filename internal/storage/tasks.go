package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const taskColumns = `id, chat_id, text, done, created_at, remind_at, reminded, deleted,
	owner_id, owner_name, done_by_id, done_by_name, done_at, reminder_message_id`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var (
		t          Task
		done       int
		reminded   int
		deleted    int
		createdAt  string
		remindAt   sql.NullString
		ownerID    sql.NullInt64
		ownerName  sql.NullString
		doneByID   sql.NullInt64
		doneByName sql.NullString
		doneAt     sql.NullString
		remMsgID   sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.ChatID, &t.Text, &done, &createdAt, &remindAt, &reminded, &deleted,
		&ownerID, &ownerName, &doneByID, &doneByName, &doneAt, &remMsgID)
	if err != nil {
		return Task{}, err
	}
	t.Done = done != 0
	t.Reminded = reminded != 0
	t.Deleted = deleted != 0
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return Task{}, err
	}
	if t.RemindAt, err = scanTimePtr(remindAt); err != nil {
		return Task{}, err
	}
	if t.DoneAt, err = scanTimePtr(doneAt); err != nil {
		return Task{}, err
	}
	t.OwnerID = ownerID.Int64
	t.OwnerName = ownerName.String
	t.DoneByID = doneByID.Int64
	t.DoneByName = doneByName.String
	if remMsgID.Valid {
		id := int(remMsgID.Int64)
		t.ReminderMessageID = &id
	}
	return t, nil
}

// CreateTask inserts a new open task and returns its id.
func (s *Store) CreateTask(ctx context.Context, chatID int64, text string, ownerID int64, ownerName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks(chat_id, text, created_at, owner_id, owner_name) VALUES(?,?,?,?,?)`,
		chatID, text, fmtTime(time.Now()), ownerID, nullStr(ownerName),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Task returns a single task regardless of its state.
func (s *Store) Task(ctx context.Context, taskID int64) (Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

// OpenTasks lists not-done, not-deleted tasks of a chat, oldest first.
func (s *Store) OpenTasks(ctx context.Context, chatID int64) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE chat_id = ? AND deleted = 0 AND done = 0 ORDER BY id`,
		chatID)
}

// DoneTasks lists the most recently completed tasks of a chat, newest first.
func (s *Store) DoneTasks(ctx context.Context, chatID int64, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE chat_id = ? AND deleted = 0 AND done = 1 ORDER BY id DESC LIMIT ?`,
		chatID, limit)
}

// TasksWithReminders lists every live task that still has a reminder armed,
// across all chats. Used to rebuild timers on boot.
func (s *Store) TasksWithReminders(ctx context.Context) ([]Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE deleted = 0 AND done = 0 AND reminded = 0 AND remind_at IS NOT NULL ORDER BY id`)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkDone closes a task and records who closed it.
func (s *Store) MarkDone(ctx context.Context, taskID, byID int64, byName string) error {
	return s.execTask(ctx,
		`UPDATE tasks SET done = 1, done_by_id = ?, done_by_name = ?, done_at = ? WHERE id = ? AND deleted = 0`,
		byID, nullStr(byName), fmtTime(time.Now()), taskID)
}

// DeleteTask soft-deletes; the row stays for history and audit joins.
func (s *Store) DeleteTask(ctx context.Context, taskID int64) error {
	return s.execTask(ctx, `UPDATE tasks SET deleted = 1 WHERE id = ?`, taskID)
}

// SetRemindAt arms or re-arms the one-off reminder and resets the ack flag.
func (s *Store) SetRemindAt(ctx context.Context, taskID int64, at time.Time) error {
	return s.execTask(ctx,
		`UPDATE tasks SET remind_at = ?, reminded = 0 WHERE id = ?`,
		fmtTime(at), taskID)
}

// ClearRemindAt drops the reminder entirely.
func (s *Store) ClearRemindAt(ctx context.Context, taskID int64) error {
	return s.execTask(ctx,
		`UPDATE tasks SET remind_at = NULL, reminder_message_id = NULL WHERE id = ?`, taskID)
}

// MarkReminded flags that the user acknowledged the reminder. Historical
// marker only; it does not stop the repeat loop.
func (s *Store) MarkReminded(ctx context.Context, taskID int64) error {
	return s.execTask(ctx, `UPDATE tasks SET reminded = 1 WHERE id = ?`, taskID)
}

// SetReminderMessageID remembers the delivered reminder message for
// edit-in-place on the next repeat tick. Pass nil to forget it.
func (s *Store) SetReminderMessageID(ctx context.Context, taskID int64, msgID *int) error {
	var v any
	if msgID != nil {
		v = *msgID
	}
	return s.execTask(ctx, `UPDATE tasks SET reminder_message_id = ? WHERE id = ?`, v, taskID)
}

func (s *Store) execTask(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
