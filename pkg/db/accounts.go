package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const accountColumns = `
	id, user_id, name, COALESCE(prop_firm, ''), COALESCE(account_type, ''), COALESCE(stage, ''),
	initial_balance, current_balance, profit_target, daily_loss_limit, max_loss_limit, max_drawdown,
	price_paid, leverage, start_date, end_date, status, COALESCE(notes, ''), created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (*Account, error) {
	var (
		a                  Account
		startDate, endDate sql.NullTime
	)
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.PropFirm, &a.AccountType, &a.Stage,
		&a.InitialBalance, &a.CurrentBalance, &a.ProfitTarget, &a.DailyLossLimit,
		&a.MaxLossLimit, &a.MaxDrawdown, &a.PricePaid, &a.Leverage,
		&startDate, &endDate, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		a.StartDate = &startDate.Time
	}
	if endDate.Valid {
		a.EndDate = &endDate.Time
	}
	return &a, nil
}

func getAccount(ctx context.Context, q Queryer, accountID, userID string) (*Account, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	row := q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ? AND user_id = ?
	`, accountID, userID)

	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

// GetAccount returns an account by id, verifying user ownership.
func (d *Database) GetAccount(ctx context.Context, accountID, userID string) (*Account, error) {
	return getAccount(ctx, d.DB, accountID, userID)
}

// GetAccountTx is GetAccount inside an open transaction.
func GetAccountTx(ctx context.Context, tx *sql.Tx, accountID, userID string) (*Account, error) {
	return getAccount(ctx, tx, accountID, userID)
}

// ListAccountsByUser returns all accounts for a user, newest first.
func (d *Database) ListAccountsByUser(ctx context.Context, userID string) ([]Account, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// CreateAccount inserts a new account row.
func (d *Database) CreateAccount(ctx context.Context, a Account) error {
	if a.UserID == "" {
		return ErrUserIDRequired
	}
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO accounts (
			id, user_id, name, prop_firm, account_type, stage,
			initial_balance, current_balance, profit_target,
			daily_loss_limit, max_loss_limit, max_drawdown,
			price_paid, leverage, start_date, end_date, status, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		a.ID, a.UserID, a.Name, a.PropFirm, a.AccountType, a.Stage,
		a.InitialBalance, a.CurrentBalance, a.ProfitTarget,
		a.DailyLossLimit, a.MaxLossLimit, a.MaxDrawdown,
		a.PricePaid, a.Leverage, nullableTime(a.StartDate), nullableTime(a.EndDate), a.Status, a.Notes,
	)
	return err
}

// UpdateAccount rewrites the editable fields of an account. Returns the
// refreshed row or ErrNotFound on ownership mismatch.
func (d *Database) UpdateAccount(ctx context.Context, a Account) (*Account, error) {
	if a.UserID == "" {
		return nil, ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		UPDATE accounts SET
			name = ?, prop_firm = ?, account_type = ?, stage = ?,
			initial_balance = ?, current_balance = ?, profit_target = ?,
			daily_loss_limit = ?, max_loss_limit = ?, max_drawdown = ?,
			price_paid = ?, leverage = ?, start_date = ?, end_date = ?, status = ?, notes = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`,
		a.Name, a.PropFirm, a.AccountType, a.Stage,
		a.InitialBalance, a.CurrentBalance, a.ProfitTarget,
		a.DailyLossLimit, a.MaxLossLimit, a.MaxDrawdown,
		a.PricePaid, a.Leverage, nullableTime(a.StartDate), nullableTime(a.EndDate), a.Status, a.Notes,
		a.ID, a.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return getAccount(ctx, d.DB, a.ID, a.UserID)
}

// DeleteAccount removes an account owned by the user.
func (d *Database) DeleteAccount(ctx context.Context, accountID, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	res, err := d.DB.ExecContext(ctx, `
		DELETE FROM accounts WHERE id = ? AND user_id = ?
	`, accountID, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToAccountBalanceTx applies a signed delta to current_balance and returns
// the refreshed row, all inside the caller's transaction.
func AddToAccountBalanceTx(ctx context.Context, tx *sql.Tx, accountID, userID string, delta float64) (*Account, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			current_balance = current_balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, delta, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return getAccount(ctx, tx, accountID, userID)
}

// UpdateAccountStatusTx persists a status change and returns the refreshed row.
func UpdateAccountStatusTx(ctx context.Context, tx *sql.Tx, accountID, userID, status string) (*Account, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`, status, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return getAccount(ctx, tx, accountID, userID)
}

// nullableTime maps an optional time onto a NULL-able column value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
