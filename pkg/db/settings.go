package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GetUserSettings returns a user's settings row, or defaults when none exists.
func (d *Database) GetUserSettings(ctx context.Context, userID string) (*UserSettings, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	var s UserSettings
	err := d.DB.QueryRowContext(ctx, `
		SELECT user_id, trading_style, risk_percentage, daily_loss_limit,
		       trading_hours, COALESCE(broker_api_key, ''), key_version, updated_at
		FROM user_settings
		WHERE user_id = ?
	`, userID).Scan(
		&s.UserID, &s.TradingStyle, &s.RiskPercentage, &s.DailyLossLimit,
		&s.TradingHours, &s.BrokerAPIKey, &s.KeyVersion, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return defaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return &s, nil
}

// UpsertUserSettings writes the full settings row for a user.
func (d *Database) UpsertUserSettings(ctx context.Context, s UserSettings) error {
	if s.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, trading_style, risk_percentage, daily_loss_limit,
			trading_hours, broker_api_key, key_version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			trading_style = excluded.trading_style,
			risk_percentage = excluded.risk_percentage,
			daily_loss_limit = excluded.daily_loss_limit,
			trading_hours = excluded.trading_hours,
			broker_api_key = excluded.broker_api_key,
			key_version = excluded.key_version,
			updated_at = CURRENT_TIMESTAMP
	`, s.UserID, s.TradingStyle, s.RiskPercentage, s.DailyLossLimit,
		s.TradingHours, s.BrokerAPIKey, s.KeyVersion)
	return err
}

func defaultSettings(userID string) *UserSettings {
	return &UserSettings{
		UserID:         userID,
		TradingStyle:   "day_trading",
		RiskPercentage: 2,
		TradingHours:   `{"start":"09:30","end":"16:00"}`,
		KeyVersion:     1,
	}
}
