package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskbot/internal/schedule"
)

const recurringColumns = `id, chat_id, text, repeat_kind, day_of_month, month, hour, minute,
	next_run_at, created_at, owner_id, owner_name`

func scanRecurring(row interface{ Scan(...any) error }) (RecurringReminder, error) {
	var (
		r         RecurringReminder
		kind      string
		month     sql.NullInt64
		nextRun   string
		createdAt string
		ownerID   sql.NullInt64
		ownerName sql.NullString
	)
	err := row.Scan(&r.ID, &r.ChatID, &r.Text, &kind, &r.DayOfMonth, &month, &r.Hour, &r.Minute,
		&nextRun, &createdAt, &ownerID, &ownerName)
	if err != nil {
		return RecurringReminder{}, err
	}
	if r.Kind, err = schedule.ParseRepeatKind(kind); err != nil {
		return RecurringReminder{}, err
	}
	r.Month = int(month.Int64)
	if r.NextRunAt, err = parseTime(nextRun); err != nil {
		return RecurringReminder{}, err
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return RecurringReminder{}, err
	}
	r.OwnerID = ownerID.Int64
	r.OwnerName = ownerName.String
	return r, nil
}

// CreateRecurring inserts a standing reminder and returns its id.
// NextRunAt must already be computed by the caller.
func (s *Store) CreateRecurring(ctx context.Context, r RecurringReminder) (int64, error) {
	var month any
	if r.Month > 0 {
		month = r.Month
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_reminders(chat_id, text, repeat_kind, day_of_month, month, hour, minute, next_run_at, created_at, owner_id, owner_name)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		r.ChatID, r.Text, r.Kind.String(), r.DayOfMonth, month, r.Hour, r.Minute,
		fmtTime(r.NextRunAt), fmtTime(time.Now()), r.OwnerID, nullStr(r.OwnerName),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Recurring returns one standing reminder by id.
func (s *Store) Recurring(ctx context.Context, id int64) (RecurringReminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_reminders WHERE id = ?`, id)
	r, err := scanRecurring(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RecurringReminder{}, ErrNotFound
	}
	return r, err
}

// RecurringForChat lists a chat's standing reminders, oldest first.
func (s *Store) RecurringForChat(ctx context.Context, chatID int64) ([]RecurringReminder, error) {
	return s.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_reminders WHERE chat_id = ? ORDER BY id`, chatID)
}

// DueRecurring lists every standing reminder whose next run is at or before
// now, across all chats. The sweep loop feeds on this.
func (s *Store) DueRecurring(ctx context.Context, now time.Time) ([]RecurringReminder, error) {
	return s.queryRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_reminders WHERE next_run_at <= ? ORDER BY next_run_at`,
		fmtTime(now))
}

func (s *Store) queryRecurring(ctx context.Context, query string, args ...any) ([]RecurringReminder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecurringReminder
	for rows.Next() {
		r, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AdvanceRecurring moves the reminder's next run forward. Called after every
// delivery attempt, successful or not, so a broken chat cannot wedge the sweep.
func (s *Store) AdvanceRecurring(ctx context.Context, id int64, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recurring_reminders SET next_run_at = ? WHERE id = ?`, fmtTime(next), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRecurring removes a standing reminder permanently.
func (s *Store) DeleteRecurring(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recurring_reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
