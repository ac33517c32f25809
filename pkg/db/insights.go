package db

import (
	"context"
	"fmt"
	"time"
)

// ListInsights returns a user's generated insights, newest first.
func (d *Database) ListInsights(ctx context.Context, userID string) ([]Insight, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, user_id, type, message, COALESCE(data, '{}'), created_at
		FROM insights
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var insights []Insight
	for rows.Next() {
		var in Insight
		if err := rows.Scan(&in.ID, &in.UserID, &in.Type, &in.Message, &in.Data, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}

// InsertInsight stores one generated insight.
func (d *Database) InsertInsight(ctx context.Context, in Insight) error {
	if in.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO insights (id, user_id, type, message, data, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, in.ID, in.UserID, in.Type, in.Message, in.Data)
	return err
}

// DeleteInsightsForUser clears a user's insights before regeneration.
func (d *Database) DeleteInsightsForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `DELETE FROM insights WHERE user_id = ?`, userID)
	return err
}

// DeleteInsightsOlderThan prunes stale insights across all users and returns
// the number of rows removed.
func (d *Database) DeleteInsightsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := d.DB.ExecContext(ctx, `DELETE FROM insights WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale insights: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
