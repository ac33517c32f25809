package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker-core/internal/events"
	"tracker-core/internal/risk"
	"tracker-core/pkg/db"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *db.Database) {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return New(database, events.NewBus(), time.UTC), database
}

func createTestUser(t *testing.T, database *db.Database) string {
	t.Helper()
	id := uuid.NewString()
	err := database.CreateUser(context.Background(), db.User{
		ID: id, Email: id + "@test.local", PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func createTestAccount(t *testing.T, database *db.Database, userID string, mutate func(*db.Account)) string {
	t.Helper()
	a := db.Account{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           "Eval 10K",
		InitialBalance: 10000,
		CurrentBalance: 10000,
		Status:         risk.StatusActive,
	}
	if mutate != nil {
		mutate(&a)
	}
	if err := database.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func trade(accountID string, entry, exit, qty float64, side string) TradeInput {
	return TradeInput{
		AccountID:  accountID,
		Symbol:     "EURUSD",
		EntryPrice: entry,
		ExitPrice:  exit,
		EntryDate:  time.Now().UTC(),
		Quantity:   qty,
		Side:       side,
	}
}

func mustAccount(t *testing.T, database *db.Database, accountID, userID string) *db.Account {
	t.Helper()
	a, err := database.GetAccount(context.Background(), accountID, userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a
}

func TestRecordTradeUpdatesBalance(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, nil)

	tr, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 110, 5, db.SideBuy))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if tr.ProfitLoss != 50 {
		t.Errorf("ProfitLoss = %v, want 50", tr.ProfitLoss)
	}
	if tr.ROI != 10 {
		t.Errorf("ROI = %v, want 10", tr.ROI)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.CurrentBalance != 10050 {
		t.Errorf("CurrentBalance = %v, want 10050", a.CurrentBalance)
	}
	if a.Status != risk.StatusActive {
		t.Errorf("Status = %s, want active", a.Status)
	}
}

func TestRecordTradeWithoutAccount(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)

	tr, err := c.RecordTrade(context.Background(), userID, trade("", 50, 45, 2, db.SideSell))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if tr.ProfitLoss != 10 {
		t.Errorf("ProfitLoss = %v, want 10 (short win)", tr.ProfitLoss)
	}
}

func TestRecordTradePassesOnTarget(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.ProfitTarget = 500
	})

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 150, 10, db.SideBuy)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.Status != risk.StatusPassed {
		t.Errorf("Status = %s, want passed", a.Status)
	}
}

func TestRecordTradeFailsOnDrawdownBreach(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.MaxDrawdown = 600
	})

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 40, 10, db.SideBuy)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed", a.Status)
	}
	if a.CurrentBalance != 9400 {
		t.Errorf("CurrentBalance = %v, want 9400", a.CurrentBalance)
	}
}

func TestRecordTradeDailyLossBreach(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.DailyLossLimit = 200
	})

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 80, 10, db.SideBuy)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed after -200 on a 200 daily limit", a.Status)
	}
}

func TestFailedIsAbsorbing(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.MaxDrawdown = 100
		a.ProfitTarget = 50
	})

	// Lose enough to fail.
	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 90, 10, db.SideBuy)); err != nil {
		t.Fatalf("losing trade: %v", err)
	}
	if got := mustAccount(t, database, accountID, userID).Status; got != risk.StatusFailed {
		t.Fatalf("Status = %s, want failed", got)
	}

	// A big win afterwards must not revive the account.
	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 200, 10, db.SideBuy)); err != nil {
		t.Fatalf("winning trade: %v", err)
	}
	if got := mustAccount(t, database, accountID, userID).Status; got != risk.StatusFailed {
		t.Errorf("Status = %s, want failed to stick", got)
	}
}

func TestBreachBeatsTarget(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	// Daily limit low enough that the same history both meets the target
	// (cumulative) and breaches (today's loss).
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.ProfitTarget = 100
		a.DailyLossLimit = 50
		a.CurrentBalance = 10200 // earlier profit already banked
	})

	// Seed an old winning trade so TotalPnL stays above target.
	old := trade(accountID, 100, 130, 10, db.SideBuy)
	old.EntryDate = time.Now().UTC().AddDate(0, 0, -5)
	if _, err := c.RecordTrade(context.Background(), userID, old); err != nil {
		t.Fatalf("old trade: %v", err)
	}

	// Today's loss breaches the daily limit while total P&L still >= target.
	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 94, 10, db.SideBuy)); err != nil {
		t.Fatalf("today trade: %v", err)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed (breach outranks target)", a.Status)
	}
}

func TestAmendTradeAppliesDelta(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, nil)

	tr, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 110, 5, db.SideBuy))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	// Revise exit price: P&L goes from +50 to -25.
	in := trade(accountID, 100, 95, 5, db.SideBuy)
	updated, err := c.AmendTrade(context.Background(), userID, tr.ID, in)
	if err != nil {
		t.Fatalf("AmendTrade: %v", err)
	}
	if updated.ProfitLoss != -25 {
		t.Errorf("ProfitLoss = %v, want -25", updated.ProfitLoss)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.CurrentBalance != 9975 {
		t.Errorf("CurrentBalance = %v, want 9975", a.CurrentBalance)
	}
}

func TestAmendTradeReassignsAccount(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	first := createTestAccount(t, database, userID, nil)
	second := createTestAccount(t, database, userID, nil)

	tr, err := c.RecordTrade(context.Background(), userID, trade(first, 100, 120, 5, db.SideBuy))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	if _, err := c.AmendTrade(context.Background(), userID, tr.ID, trade(second, 100, 120, 5, db.SideBuy)); err != nil {
		t.Fatalf("AmendTrade: %v", err)
	}

	a := mustAccount(t, database, first, userID)
	if a.CurrentBalance != 10000 {
		t.Errorf("old account balance = %v, want restored 10000", a.CurrentBalance)
	}
	b := mustAccount(t, database, second, userID)
	if b.CurrentBalance != 10100 {
		t.Errorf("new account balance = %v, want 10100", b.CurrentBalance)
	}
}

func TestRemoveTradeBacksOutPnL(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, nil)

	tr, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 90, 10, db.SideBuy))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if err := c.RemoveTrade(context.Background(), userID, tr.ID); err != nil {
		t.Fatalf("RemoveTrade: %v", err)
	}

	a := mustAccount(t, database, accountID, userID)
	if a.CurrentBalance != 10000 {
		t.Errorf("CurrentBalance = %v, want restored 10000", a.CurrentBalance)
	}
	if _, err := database.GetTrade(context.Background(), tr.ID, userID); err != db.ErrNotFound {
		t.Errorf("deleted trade lookup err = %v, want ErrNotFound", err)
	}
}

func TestRemoveTradeNotOwned(t *testing.T) {
	c, database := newTestCoordinator(t)
	owner := createTestUser(t, database)
	other := createTestUser(t, database)
	accountID := createTestAccount(t, database, owner, nil)

	tr, err := c.RecordTrade(context.Background(), owner, trade(accountID, 100, 110, 1, db.SideBuy))
	if err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if err := c.RemoveTrade(context.Background(), other, tr.ID); err != db.ErrNotFound {
		t.Errorf("cross-user delete err = %v, want ErrNotFound", err)
	}
}

func TestApplyBalanceAdjustment(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.MaxDrawdown = 500
	})

	a, err := c.ApplyBalanceAdjustment(context.Background(), userID, accountID, -500)
	if err != nil {
		t.Fatalf("ApplyBalanceAdjustment: %v", err)
	}
	if a.CurrentBalance != 9500 {
		t.Errorf("CurrentBalance = %v, want 9500", a.CurrentBalance)
	}
	if a.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed (drawdown hit the limit)", a.Status)
	}
}

func TestComputeStats(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.ProfitTarget = 1000
		a.DailyLossLimit = 300
	})

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 120, 10, db.SideBuy)); err != nil {
		t.Fatalf("trade 1: %v", err)
	}
	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 95, 10, db.SideBuy)); err != nil {
		t.Fatalf("trade 2: %v", err)
	}

	stats, err := c.ComputeStats(context.Background(), userID, accountID)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.Summary.TotalTrades != 2 || stats.Summary.WinningTrades != 1 {
		t.Errorf("summary = %+v, want 2 trades / 1 win", stats.Summary)
	}
	if stats.Summary.TotalPnL != 150 {
		t.Errorf("TotalPnL = %v, want 150", stats.Summary.TotalPnL)
	}
	if stats.Metrics.CurrentDrawdown != -150 {
		t.Errorf("CurrentDrawdown = %v, want -150", stats.Metrics.CurrentDrawdown)
	}
	if stats.Metrics.DailyRemaining != 450 {
		t.Errorf("DailyRemaining = %v, want 450", stats.Metrics.DailyRemaining)
	}
	if stats.Account.Status != risk.StatusActive {
		t.Errorf("Status = %s, want active", stats.Account.Status)
	}
}

func TestComputeStatsCorrectsStaleStatus(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.MaxDrawdown = 400
		a.CurrentBalance = 9500 // drawdown already past the limit
	})

	stats, err := c.ComputeStats(context.Background(), userID, accountID)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.Account.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed (stale status corrected on read)", stats.Account.Status)
	}
	if got := mustAccount(t, database, accountID, userID).Status; got != risk.StatusFailed {
		t.Errorf("persisted status = %s, want failed", got)
	}
}

func TestComputeStatsInvalidConfiguration(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.InitialBalance = 0
	})

	if _, err := c.ComputeStats(context.Background(), userID, accountID); err != risk.ErrInvalidConfiguration {
		t.Errorf("err = %v, want ErrInvalidConfiguration", err)
	}
}

// Two concurrent trades each below the daily limit must still fail the
// account once their combined loss crosses it; serialization per account
// guarantees the second cycle sees the first one's loss.
func TestConcurrentTradesSerialize(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.DailyLossLimit = 300
	})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each trade loses 200: alone fine, together a breach.
			if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 80, 10, db.SideBuy)); err != nil {
				t.Errorf("RecordTrade: %v", err)
			}
		}()
	}
	wg.Wait()

	a := mustAccount(t, database, accountID, userID)
	if a.CurrentBalance != 9600 {
		t.Errorf("CurrentBalance = %v, want 9600 (both deltas applied)", a.CurrentBalance)
	}
	if a.Status != risk.StatusFailed {
		t.Errorf("Status = %s, want failed after combined -400", a.Status)
	}
}

func TestStatusChangeEventPublished(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, func(a *db.Account) {
		a.MaxDrawdown = 100
	})

	ch, unsub := c.bus.Subscribe(events.TopicAccountStatusChanged, 4)
	defer unsub()

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 80, 10, db.SideBuy)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	select {
	case payload := <-ch:
		change, ok := payload.(events.StatusChange)
		if !ok {
			t.Fatalf("payload type %T", payload)
		}
		if change.AccountID != accountID || change.NewStatus != risk.StatusFailed {
			t.Errorf("change = %+v", change)
		}
	case <-time.After(time.Second):
		t.Fatal("no status change event published")
	}
}

func TestLockRegistryCleanup(t *testing.T) {
	c, database := newTestCoordinator(t)
	userID := createTestUser(t, database)
	accountID := createTestAccount(t, database, userID, nil)

	if _, err := c.RecordTrade(context.Background(), userID, trade(accountID, 100, 101, 1, db.SideBuy)); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}
	if c.LockCount() != 1 {
		t.Fatalf("LockCount = %d, want 1", c.LockCount())
	}

	c.CleanupIdleLocks(time.Nanosecond)
	if c.LockCount() != 0 {
		t.Errorf("LockCount after cleanup = %d, want 0", c.LockCount())
	}
}
