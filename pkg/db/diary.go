package db

import (
	"context"
	"database/sql"
	"fmt"
)

const diaryColumns = `
	id, user_id, title, COALESCE(content, ''), COALESCE(emotion, ''),
	COALESCE(trade_id, ''), created_at, updated_at`

func scanDiaryEntry(row interface{ Scan(dest ...any) error }) (*DiaryEntry, error) {
	var e DiaryEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Content, &e.Emotion,
		&e.TradeID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListDiaryEntries returns a user's journal entries, newest first.
func (d *Database) ListDiaryEntries(ctx context.Context, userID string) ([]DiaryEntry, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+diaryColumns+`
		FROM diary_entries
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query diary entries: %w", err)
	}
	defer rows.Close()

	var entries []DiaryEntry
	for rows.Next() {
		e, err := scanDiaryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diary entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetDiaryEntry returns one entry, verifying user ownership.
func (d *Database) GetDiaryEntry(ctx context.Context, entryID, userID string) (*DiaryEntry, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	row := d.DB.QueryRowContext(ctx, `
		SELECT `+diaryColumns+`
		FROM diary_entries
		WHERE id = ? AND user_id = ?
	`, entryID, userID)

	e, err := scanDiaryEntry(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query diary entry: %w", err)
	}
	return e, nil
}

// CreateDiaryEntry inserts a new journal entry.
func (d *Database) CreateDiaryEntry(ctx context.Context, e DiaryEntry) error {
	if e.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO diary_entries (id, user_id, title, content, emotion, trade_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, e.ID, e.UserID, e.Title, e.Content, e.Emotion, nullableID(e.TradeID))
	return err
}

// UpdateDiaryEntry rewrites an entry and returns the refreshed row.
func (d *Database) UpdateDiaryEntry(ctx context.Context, e DiaryEntry) (*DiaryEntry, error) {
	if e.UserID == "" {
		return nil, ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		UPDATE diary_entries SET
			title = ?, content = ?, emotion = ?, trade_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, e.Title, e.Content, e.Emotion, nullableID(e.TradeID), e.ID, e.UserID)
	if err != nil {
		return nil, fmt.Errorf("update diary entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return d.GetDiaryEntry(ctx, e.ID, e.UserID)
}

// DeleteDiaryEntry removes an entry owned by the user.
func (d *Database) DeleteDiaryEntry(ctx context.Context, entryID, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM diary_entries WHERE id = ? AND user_id = ?
	`, entryID, userID)
	if err != nil {
		return fmt.Errorf("delete diary entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
