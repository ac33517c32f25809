package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := ApplyMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}
	return database
}

func insertUser(t *testing.T, d *Database, email string) string {
	t.Helper()
	u := User{ID: uuid.NewString(), Email: email, PasswordHash: "x"}
	if err := d.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u.ID
}

func insertTrade(t *testing.T, d *Database, userID, symbol string, pnl float64, entry time.Time) {
	t.Helper()
	err := inTx(d, func(tx *sql.Tx) error {
		return InsertTradeTx(context.Background(), tx, Trade{
			ID:         uuid.NewString(),
			UserID:     userID,
			Symbol:     symbol,
			EntryPrice: 100,
			ExitPrice:  100 + pnl,
			EntryDate:  entry,
			Quantity:   1,
			Side:       SideBuy,
			ProfitLoss: pnl,
			ROI:        pnl,
		})
	})
	if err != nil {
		t.Fatalf("insert trade: %v", err)
	}
}

func inTx(d *Database, fn func(tx *sql.Tx) error) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func TestQueriesRequireUserID(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	t.Run("ListTradesByUser requires userID", func(t *testing.T) {
		if _, err := d.ListTradesByUser(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})

	t.Run("ListAccountsByUser requires userID", func(t *testing.T) {
		if _, err := d.ListAccountsByUser(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})

	t.Run("ListInsights requires userID", func(t *testing.T) {
		if _, err := d.ListInsights(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})

	t.Run("ListDiaryEntries requires userID", func(t *testing.T) {
		if _, err := d.ListDiaryEntries(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})

	t.Run("GetUserSettings requires userID", func(t *testing.T) {
		if _, err := d.GetUserSettings(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})

	t.Run("GetPerformanceStats requires userID", func(t *testing.T) {
		if _, err := d.GetPerformanceStats(ctx, ""); err != ErrUserIDRequired {
			t.Errorf("expected ErrUserIDRequired, got %v", err)
		}
	})
}

func TestDataIsolation(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	userA := insertUser(t, d, "a@example.com")
	userB := insertUser(t, d, "b@example.com")

	acctA := Account{ID: uuid.NewString(), UserID: userA, Name: "A", InitialBalance: 10000, CurrentBalance: 10000, Status: "active"}
	if err := d.CreateAccount(ctx, acctA); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	now := time.Now().UTC()
	insertTrade(t, d, userA, "BTCUSDT", 50, now)
	insertTrade(t, d, userA, "ETHUSDT", -20, now)
	insertTrade(t, d, userB, "BTCUSDT", 100, now)

	t.Run("trade lists are scoped", func(t *testing.T) {
		tradesA, err := d.ListTradesByUser(ctx, userA)
		if err != nil {
			t.Fatalf("ListTradesByUser: %v", err)
		}
		if len(tradesA) != 2 {
			t.Errorf("user A sees %d trades, want 2", len(tradesA))
		}
		tradesB, err := d.ListTradesByUser(ctx, userB)
		if err != nil {
			t.Fatalf("ListTradesByUser: %v", err)
		}
		if len(tradesB) != 1 {
			t.Errorf("user B sees %d trades, want 1", len(tradesB))
		}
	})

	t.Run("cross-user account read looks like absence", func(t *testing.T) {
		if _, err := d.GetAccount(ctx, acctA.ID, userB); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cross-user trade delete looks like absence", func(t *testing.T) {
		tradesA, _ := d.ListTradesByUser(ctx, userA)
		err := inTx(d, func(tx *sql.Tx) error {
			return DeleteTradeTx(ctx, tx, tradesA[0].ID, userB)
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("aggregates are scoped", func(t *testing.T) {
		stats, err := d.GetPerformanceStats(ctx, userA)
		if err != nil {
			t.Fatalf("GetPerformanceStats: %v", err)
		}
		if stats.TotalTrades != 2 || stats.TotalPnL != 30 {
			t.Errorf("stats = %+v, want 2 trades / 30 pnl", stats)
		}
	})
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	insertUser(t, d, "dup@example.com")
	err := d.CreateUser(ctx, User{ID: uuid.NewString(), Email: "dup@example.com", PasswordHash: "y"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserSettingsDefaultsAndUpsert(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	userID := insertUser(t, d, "settings@example.com")

	s, err := d.GetUserSettings(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if s.TradingStyle != "day_trading" || s.RiskPercentage != 2 {
		t.Errorf("defaults = %+v", s)
	}

	s.TradingStyle = "swing_trading"
	s.RiskPercentage = 1.5
	s.DailyLossLimit = 300
	if err := d.UpsertUserSettings(ctx, *s); err != nil {
		t.Fatalf("UpsertUserSettings: %v", err)
	}

	got, err := d.GetUserSettings(ctx, userID)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if got.TradingStyle != "swing_trading" || got.RiskPercentage != 1.5 || got.DailyLossLimit != 300 {
		t.Errorf("after upsert = %+v", got)
	}

	// Second upsert overwrites in place.
	got.DailyLossLimit = 500
	if err := d.UpsertUserSettings(ctx, *got); err != nil {
		t.Fatalf("UpsertUserSettings: %v", err)
	}
	again, _ := d.GetUserSettings(ctx, userID)
	if again.DailyLossLimit != 500 {
		t.Errorf("DailyLossLimit = %v, want 500", again.DailyLossLimit)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	userID := insertUser(t, d, "analytics@example.com")

	jan := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 12, 0, 0, 0, time.UTC)
	insertTrade(t, d, userID, "BTCUSDT", 100, jan)
	insertTrade(t, d, userID, "BTCUSDT", -40, jan.Add(24*time.Hour))
	insertTrade(t, d, userID, "ETHUSDT", 60, feb)

	t.Run("equity curve is cumulative", func(t *testing.T) {
		points, err := d.GetEquityCurve(ctx, userID)
		if err != nil {
			t.Fatalf("GetEquityCurve: %v", err)
		}
		if len(points) != 3 {
			t.Fatalf("got %d points, want 3", len(points))
		}
		if points[2].CumulativeProfit != 120 {
			t.Errorf("final cumulative = %v, want 120", points[2].CumulativeProfit)
		}
	})

	t.Run("by-symbol groups trades", func(t *testing.T) {
		stats, err := d.GetStatsBySymbol(ctx, userID)
		if err != nil {
			t.Fatalf("GetStatsBySymbol: %v", err)
		}
		if len(stats) != 2 {
			t.Fatalf("got %d symbols, want 2", len(stats))
		}
		// Ordered by trade count: BTCUSDT first.
		if stats[0].Symbol != "BTCUSDT" || stats[0].Total != 2 || stats[0].Wins != 1 {
			t.Errorf("BTCUSDT stats = %+v", stats[0])
		}
	})

	t.Run("monthly buckets by calendar month", func(t *testing.T) {
		months, err := d.GetMonthlyStats(ctx, userID)
		if err != nil {
			t.Fatalf("GetMonthlyStats: %v", err)
		}
		if len(months) != 2 {
			t.Fatalf("got %d months, want 2", len(months))
		}
		// Newest first.
		if months[0].Month != "2026-02" || months[0].TotalTrades != 1 || months[0].MonthlyProfit != 60 {
			t.Errorf("feb bucket = %+v", months[0])
		}
		if months[1].Month != "2026-01" || months[1].TotalTrades != 2 || months[1].MonthlyProfit != 60 {
			t.Errorf("jan bucket = %+v", months[1])
		}
	})

	t.Run("traded symbols dedupe", func(t *testing.T) {
		syms, err := d.ListTradedSymbols(ctx, userID)
		if err != nil {
			t.Fatalf("ListTradedSymbols: %v", err)
		}
		if len(syms) != 2 {
			t.Errorf("got %v, want 2 symbols", syms)
		}
	})
}

func TestAccountBalanceAndStatusTx(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	userID := insertUser(t, d, "tx@example.com")

	acct := Account{ID: uuid.NewString(), UserID: userID, Name: "tx", InitialBalance: 10000, CurrentBalance: 10000, Status: "active"}
	if err := d.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	t.Run("balance delta applies", func(t *testing.T) {
		err := inTx(d, func(tx *sql.Tx) error {
			after, err := AddToAccountBalanceTx(ctx, tx, acct.ID, userID, -250)
			if err != nil {
				return err
			}
			if after.CurrentBalance != 9750 {
				t.Errorf("balance = %v, want 9750", after.CurrentBalance)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}
	})

	t.Run("unknown account yields ErrNotFound", func(t *testing.T) {
		err := inTx(d, func(tx *sql.Tx) error {
			_, err := AddToAccountBalanceTx(ctx, tx, "missing", userID, 10)
			return err
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("status write persists", func(t *testing.T) {
		err := inTx(d, func(tx *sql.Tx) error {
			after, err := UpdateAccountStatusTx(ctx, tx, acct.ID, userID, "failed")
			if err != nil {
				return err
			}
			if after.Status != "failed" {
				t.Errorf("status = %q, want failed", after.Status)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}
	})
}
