package storage

import (
	"context"
	"database/sql"
	"errors"
)

// PanelMessageID returns the pinned control-panel message of a chat,
// or 0 when no panel has been posted yet.
func (s *Store) PanelMessageID(ctx context.Context, chatID int64) (int, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT panel_message_id FROM chat_state WHERE chat_id = ?`, chatID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(id.Int64), nil
}

func (s *Store) SetPanelMessageID(ctx context.Context, chatID int64, msgID int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_state(chat_id, panel_message_id) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET panel_message_id = excluded.panel_message_id`,
		chatID, msgID)
	return err
}

// ChatTimezone returns the IANA zone name configured for a chat, or ""
// when the chat runs on the service default.
func (s *Store) ChatTimezone(ctx context.Context, chatID int64) (string, error) {
	var tz sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT tz FROM chat_state WHERE chat_id = ?`, chatID).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return tz.String, nil
}

func (s *Store) SetChatTimezone(ctx context.Context, chatID int64, tz string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_state(chat_id, tz) VALUES(?,?)
		 ON CONFLICT(chat_id) DO UPDATE SET tz = excluded.tz`,
		chatID, nullStr(tz))
	return err
}
