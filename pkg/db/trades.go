package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const tradeColumns = `
	id, user_id, COALESCE(account_id, ''), symbol, entry_price, exit_price,
	entry_date, exit_date, quantity, side, profit_loss, roi,
	COALESCE(notes, ''), COALESCE(emotion, ''), created_at, updated_at`

func scanTrade(row interface{ Scan(dest ...any) error }) (*Trade, error) {
	var (
		t        Trade
		exitDate sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &t.EntryPrice, &t.ExitPrice,
		&t.EntryDate, &exitDate, &t.Quantity, &t.Side, &t.ProfitLoss, &t.ROI,
		&t.Notes, &t.Emotion, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if exitDate.Valid {
		t.ExitDate = &exitDate.Time
	}
	return &t, nil
}

func collectTrades(rows *sql.Rows) ([]Trade, error) {
	defer rows.Close()
	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// ListTradesByUser returns all trades for a user, newest entry first.
func (d *Database) ListTradesByUser(ctx context.Context, userID string) ([]Trade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = ?
		ORDER BY entry_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	return collectTrades(rows)
}

// ListRecentTradesByUser returns the newest trades up to limit.
func (d *Database) ListRecentTradesByUser(ctx context.Context, userID string, limit int) ([]Trade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE user_id = ?
		ORDER BY entry_date DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent trades: %w", err)
	}
	return collectTrades(rows)
}

func getTrade(ctx context.Context, q Queryer, tradeID, userID string) (*Trade, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	row := q.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE id = ? AND user_id = ?
	`, tradeID, userID)

	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query trade: %w", err)
	}
	return t, nil
}

// GetTrade returns a trade by id, verifying user ownership.
func (d *Database) GetTrade(ctx context.Context, tradeID, userID string) (*Trade, error) {
	return getTrade(ctx, d.DB, tradeID, userID)
}

// GetTradeTx is GetTrade inside an open transaction.
func GetTradeTx(ctx context.Context, tx *sql.Tx, tradeID, userID string) (*Trade, error) {
	return getTrade(ctx, tx, tradeID, userID)
}

// ListAccountTradesTx returns the full ledger for one account, oldest first,
// observing any writes made earlier in the same transaction.
func ListAccountTradesTx(ctx context.Context, tx *sql.Tx, accountID string) ([]Trade, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE account_id = ?
		ORDER BY entry_date ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query account trades: %w", err)
	}
	return collectTrades(rows)
}

// InsertTradeTx inserts a trade row inside the caller's transaction.
func InsertTradeTx(ctx context.Context, tx *sql.Tx, t Trade) error {
	if t.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO trades (
			id, user_id, account_id, symbol, entry_price, exit_price,
			entry_date, exit_date, quantity, side, profit_loss, roi,
			notes, emotion, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		t.ID, t.UserID, nullableID(t.AccountID), t.Symbol, t.EntryPrice, t.ExitPrice,
		t.EntryDate, nullableTime(t.ExitDate), t.Quantity, t.Side, t.ProfitLoss, t.ROI,
		t.Notes, t.Emotion,
	)
	return err
}

// UpdateTradeTx rewrites a trade row inside the caller's transaction.
func UpdateTradeTx(ctx context.Context, tx *sql.Tx, t Trade) error {
	if t.UserID == "" {
		return ErrUserIDRequired
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE trades SET
			account_id = ?, symbol = ?, entry_price = ?, exit_price = ?,
			entry_date = ?, exit_date = ?, quantity = ?, side = ?,
			profit_loss = ?, roi = ?, notes = ?, emotion = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`,
		nullableID(t.AccountID), t.Symbol, t.EntryPrice, t.ExitPrice,
		t.EntryDate, nullableTime(t.ExitDate), t.Quantity, t.Side,
		t.ProfitLoss, t.ROI, t.Notes, t.Emotion,
		t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTradeTx removes a trade row inside the caller's transaction.
func DeleteTradeTx(ctx context.Context, tx *sql.Tx, tradeID, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM trades WHERE id = ? AND user_id = ?
	`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ----------------------------------------
// Analytics aggregates
// ----------------------------------------

// PerformanceStats mirrors the analytics aggregate over a user's trades.
type PerformanceStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	AverageROI    float64
	MaxProfit     float64
	MaxLoss       float64
	AvgWin        float64
	AvgLoss       float64
}

// GetPerformanceStats folds a user's full trade history in SQL.
func (d *Database) GetPerformanceStats(ctx context.Context, userID string) (*PerformanceStats, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	var s PerformanceStats
	err := d.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN profit_loss > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN profit_loss < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(profit_loss), 0),
			COALESCE(AVG(roi), 0),
			COALESCE(MAX(profit_loss), 0),
			COALESCE(MIN(profit_loss), 0),
			COALESCE(AVG(CASE WHEN profit_loss > 0 THEN profit_loss END), 0),
			COALESCE(AVG(CASE WHEN profit_loss < 0 THEN profit_loss END), 0)
		FROM trades
		WHERE user_id = ?
	`, userID).Scan(
		&s.TotalTrades, &s.WinningTrades, &s.LosingTrades, &s.TotalPnL,
		&s.AverageROI, &s.MaxProfit, &s.MaxLoss, &s.AvgWin, &s.AvgLoss,
	)
	if err != nil {
		return nil, fmt.Errorf("query performance stats: %w", err)
	}
	return &s, nil
}

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	EntryDate        time.Time `json:"entry_date"`
	CumulativeProfit float64   `json:"cumulative_profit"`
}

// GetEquityCurve returns cumulative profit ordered by entry date.
func (d *Database) GetEquityCurve(ctx context.Context, userID string) ([]EquityPoint, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT entry_date,
		       SUM(profit_loss) OVER (ORDER BY entry_date) AS cumulative_profit
		FROM trades
		WHERE user_id = ?
		ORDER BY entry_date ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query equity curve: %w", err)
	}
	defer rows.Close()

	var points []EquityPoint
	for rows.Next() {
		var p EquityPoint
		if err := rows.Scan(&p.EntryDate, &p.CumulativeProfit); err != nil {
			return nil, fmt.Errorf("scan equity point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// SymbolStats groups a user's trades by symbol.
type SymbolStats struct {
	Symbol      string  `json:"symbol"`
	Total       int     `json:"total"`
	Wins        int     `json:"wins"`
	TotalProfit float64 `json:"total_profit"`
	AvgROI      float64 `json:"avg_roi"`
}

// GetStatsBySymbol returns per-symbol totals ordered by trade count.
func (d *Database) GetStatsBySymbol(ctx context.Context, userID string) ([]SymbolStats, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol,
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN profit_loss > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(profit_loss), 0),
		       COALESCE(AVG(roi), 0)
		FROM trades
		WHERE user_id = ?
		GROUP BY symbol
		ORDER BY COUNT(*) DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query symbol stats: %w", err)
	}
	defer rows.Close()

	var stats []SymbolStats
	for rows.Next() {
		var s SymbolStats
		if err := rows.Scan(&s.Symbol, &s.Total, &s.Wins, &s.TotalProfit, &s.AvgROI); err != nil {
			return nil, fmt.Errorf("scan symbol stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyStats groups a user's trades by calendar month of entry.
type MonthlyStats struct {
	Month         string  `json:"month"` // YYYY-MM
	TotalTrades   int     `json:"total_trades"`
	MonthlyProfit float64 `json:"monthly_profit"`
	AvgROI        float64 `json:"avg_roi"`
}

// GetMonthlyStats returns month buckets, newest first. Bucketing happens in
// Go: the driver binds time.Time in a format SQLite's date functions do not
// parse, so strftime over entry_date yields NULL.
func (d *Database) GetMonthlyStats(ctx context.Context, userID string) ([]MonthlyStats, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT entry_date, profit_loss, roi
		FROM trades
		WHERE user_id = ?
		ORDER BY entry_date DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query monthly stats: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		trades int
		profit float64
		roiSum float64
	}
	buckets := make(map[string]*bucket)
	var order []string
	for rows.Next() {
		var (
			entryDate time.Time
			pnl, roi  float64
		)
		if err := rows.Scan(&entryDate, &pnl, &roi); err != nil {
			return nil, fmt.Errorf("scan monthly stats: %w", err)
		}
		month := entryDate.Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
			order = append(order, month)
		}
		b.trades++
		b.profit += pnl
		b.roiSum += roi
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan monthly stats: %w", err)
	}

	var stats []MonthlyStats
	for _, month := range order {
		b := buckets[month]
		stats = append(stats, MonthlyStats{
			Month:         month,
			TotalTrades:   b.trades,
			MonthlyProfit: b.profit,
			AvgROI:        b.roiSum / float64(b.trades),
		})
	}
	return stats, nil
}

// ListTradedSymbols returns the distinct symbols a user has traded.
func (d *Database) ListTradedSymbols(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT DISTINCT symbol FROM trades WHERE user_id = ? ORDER BY symbol
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
