// Package account coordinates trade mutations with account balance updates
// and risk status evaluation, one serialized cycle per account.
package account

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracker-core/internal/events"
	"tracker-core/internal/ledger"
	"tracker-core/internal/monitor"
	"tracker-core/internal/risk"
	"tracker-core/pkg/db"
)

// Coordinator runs every mutation that can move an account's balance or
// status. Each cycle takes the account's lock, mutates inside a transaction,
// re-aggregates the ledger, evaluates risk, and conditionally persists a
// status transition — all atomically.
type Coordinator struct {
	db      *db.Database
	bus     *events.Bus
	locks   *lockRegistry
	loc     *time.Location
	now     func() time.Time
	metrics *monitor.SystemMetrics
}

// New creates a Coordinator. loc defines the calendar-day boundary for daily
// loss tracking.
func New(database *db.Database, bus *events.Bus, loc *time.Location) *Coordinator {
	if loc == nil {
		loc = time.Local
	}
	return &Coordinator{
		db:    database,
		bus:   bus,
		locks: newLockRegistry(),
		loc:   loc,
		now:   time.Now,
	}
}

// TradeInput carries the user-supplied fields of a trade. Derived fields
// (profit/loss, ROI) are computed here, never trusted from the client.
type TradeInput struct {
	AccountID  string
	Symbol     string
	EntryPrice float64
	ExitPrice  float64
	EntryDate  time.Time
	ExitDate   *time.Time
	Quantity   float64
	Side       string
	Notes      string
	Emotion    string
}

// Stats is the evaluated snapshot returned by ComputeStats.
type Stats struct {
	Account *db.Account
	Summary ledger.Summary
	Metrics *risk.Metrics
}

// SetMetrics attaches evaluation instrumentation. Optional.
func (c *Coordinator) SetMetrics(m *monitor.SystemMetrics) {
	c.metrics = m
}

// LockCount reports the number of live per-account locks.
func (c *Coordinator) LockCount() int {
	return c.locks.count()
}

// CleanupIdleLocks drops per-account locks idle longer than ttl.
func (c *Coordinator) CleanupIdleLocks(ttl time.Duration) {
	c.locks.cleanupIdle(ttl)
}

// RecordTrade stores a new trade and, when it is attached to an account,
// applies its P&L to the balance and re-evaluates status in the same cycle.
func (c *Coordinator) RecordTrade(ctx context.Context, userID string, in TradeInput) (*db.Trade, error) {
	trade := db.Trade{
		ID:         uuid.NewString(),
		UserID:     userID,
		AccountID:  in.AccountID,
		Symbol:     in.Symbol,
		EntryPrice: in.EntryPrice,
		ExitPrice:  in.ExitPrice,
		EntryDate:  in.EntryDate,
		ExitDate:   in.ExitDate,
		Quantity:   in.Quantity,
		Side:       in.Side,
		Notes:      in.Notes,
		Emotion:    in.Emotion,
	}
	trade.ProfitLoss = ledger.ProfitLoss(in.EntryPrice, in.ExitPrice, in.Quantity, in.Side)
	trade.ROI = ledger.ROI(in.EntryPrice, in.ExitPrice)

	if trade.AccountID == "" {
		// No account attached: plain insert, no evaluation cycle.
		err := c.withTx(ctx, func(tx *sql.Tx) error {
			return db.InsertTradeTx(ctx, tx, trade)
		})
		if err != nil {
			return nil, err
		}
		c.publishTrade(&trade)
		return &trade, nil
	}

	unlock := c.lockAccounts(trade.AccountID)
	defer unlock()

	var change *events.StatusChange
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		if err := db.InsertTradeTx(ctx, tx, trade); err != nil {
			return err
		}
		if _, err := db.AddToAccountBalanceTx(ctx, tx, trade.AccountID, userID, trade.ProfitLoss); err != nil {
			return err
		}
		var err error
		change, err = c.evaluateTx(ctx, tx, trade.AccountID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.publishTrade(&trade)
	c.publishStatusChange(change)
	return &trade, nil
}

// AmendTrade rewrites a trade. Balance corrections are applied as signed
// deltas: the old P&L is backed out of the old account and the new P&L
// applied to the new one, each followed by re-evaluation.
func (c *Coordinator) AmendTrade(ctx context.Context, userID, tradeID string, in TradeInput) (*db.Trade, error) {
	// Read outside any lock just to learn which accounts the cycle touches.
	before, err := c.db.GetTrade(ctx, tradeID, userID)
	if err != nil {
		return nil, err
	}

	unlock := c.lockAccounts(before.AccountID, in.AccountID)
	defer unlock()

	var (
		updated db.Trade
		changes []*events.StatusChange
	)
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		// Re-read under the lock; the row may have moved since the peek.
		old, err := db.GetTradeTx(ctx, tx, tradeID, userID)
		if err != nil {
			return err
		}

		updated = *old
		updated.AccountID = in.AccountID
		updated.Symbol = in.Symbol
		updated.EntryPrice = in.EntryPrice
		updated.ExitPrice = in.ExitPrice
		updated.EntryDate = in.EntryDate
		updated.ExitDate = in.ExitDate
		updated.Quantity = in.Quantity
		updated.Side = in.Side
		updated.Notes = in.Notes
		updated.Emotion = in.Emotion
		updated.ProfitLoss = ledger.ProfitLoss(in.EntryPrice, in.ExitPrice, in.Quantity, in.Side)
		updated.ROI = ledger.ROI(in.EntryPrice, in.ExitPrice)

		if err := db.UpdateTradeTx(ctx, tx, updated); err != nil {
			return err
		}

		if old.AccountID == updated.AccountID {
			if updated.AccountID == "" {
				return nil
			}
			delta := updated.ProfitLoss - old.ProfitLoss
			if _, err := db.AddToAccountBalanceTx(ctx, tx, updated.AccountID, userID, delta); err != nil {
				return err
			}
			ch, err := c.evaluateTx(ctx, tx, updated.AccountID, userID)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
			return nil
		}

		// Account reassignment: correct both sides.
		if old.AccountID != "" {
			if _, err := db.AddToAccountBalanceTx(ctx, tx, old.AccountID, userID, -old.ProfitLoss); err != nil {
				return err
			}
			ch, err := c.evaluateTx(ctx, tx, old.AccountID, userID)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		if updated.AccountID != "" {
			if _, err := db.AddToAccountBalanceTx(ctx, tx, updated.AccountID, userID, updated.ProfitLoss); err != nil {
				return err
			}
			ch, err := c.evaluateTx(ctx, tx, updated.AccountID, userID)
			if err != nil {
				return err
			}
			changes = append(changes, ch)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, ch := range changes {
		c.publishStatusChange(ch)
	}
	return &updated, nil
}

// RemoveTrade deletes a trade and backs its P&L out of the attached account.
func (c *Coordinator) RemoveTrade(ctx context.Context, userID, tradeID string) error {
	before, err := c.db.GetTrade(ctx, tradeID, userID)
	if err != nil {
		return err
	}

	unlock := c.lockAccounts(before.AccountID)
	defer unlock()

	var change *events.StatusChange
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		old, err := db.GetTradeTx(ctx, tx, tradeID, userID)
		if err != nil {
			return err
		}
		if err := db.DeleteTradeTx(ctx, tx, tradeID, userID); err != nil {
			return err
		}
		if old.AccountID == "" {
			return nil
		}
		if _, err := db.AddToAccountBalanceTx(ctx, tx, old.AccountID, userID, -old.ProfitLoss); err != nil {
			return err
		}
		change, err = c.evaluateTx(ctx, tx, old.AccountID, userID)
		return err
	})
	if err != nil {
		return err
	}

	c.publishStatusChange(change)
	return nil
}

// ApplyBalanceAdjustment moves the balance by a signed delta (manual
// correction, payout, top-up) and re-evaluates status.
func (c *Coordinator) ApplyBalanceAdjustment(ctx context.Context, userID, accountID string, delta float64) (*db.Account, error) {
	unlock := c.lockAccounts(accountID)
	defer unlock()

	var (
		after  *db.Account
		change *events.StatusChange
	)
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if _, err = db.AddToAccountBalanceTx(ctx, tx, accountID, userID, delta); err != nil {
			return err
		}
		change, err = c.evaluateTx(ctx, tx, accountID, userID)
		if err != nil {
			return err
		}
		after, err = db.GetAccountTx(ctx, tx, accountID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.publishStatusChange(change)
	return after, nil
}

// ComputeStats evaluates an account read-style. It still takes the lock and
// runs a transaction because a stale persisted status is corrected here too.
func (c *Coordinator) ComputeStats(ctx context.Context, userID, accountID string) (*Stats, error) {
	unlock := c.lockAccounts(accountID)
	defer unlock()

	var (
		stats  Stats
		change *events.StatusChange
	)
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		acct, err := db.GetAccountTx(ctx, tx, accountID, userID)
		if err != nil {
			return err
		}
		trades, err := db.ListAccountTradesTx(ctx, tx, accountID)
		if err != nil {
			return err
		}
		dayStart, dayEnd := ledger.DayWindow(c.now(), c.loc)
		summary := ledger.Aggregate(trades, dayStart, dayEnd)

		metrics, err := risk.Compute(acct, summary)
		if err != nil {
			return err
		}

		next := risk.Evaluate(acct.Status, metrics)
		if next != acct.Status {
			oldStatus := acct.Status
			acct, err = db.UpdateAccountStatusTx(ctx, tx, accountID, userID, next)
			if err != nil {
				return err
			}
			change = c.statusChange(acct, oldStatus, metrics)
		}

		stats = Stats{Account: acct, Summary: summary, Metrics: metrics}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.publishStatusChange(change)
	return &stats, nil
}

// evaluateTx re-aggregates one account's ledger and conditionally writes a
// status transition, all inside the caller's transaction. Returns a non-nil
// StatusChange when the status moved.
func (c *Coordinator) evaluateTx(ctx context.Context, tx *sql.Tx, accountID, userID string) (*events.StatusChange, error) {
	if c.metrics != nil {
		defer monitor.NewTimer(c.metrics.EvaluationLatency).Stop()
		c.metrics.IncrementEvaluations()
	}
	acct, err := db.GetAccountTx(ctx, tx, accountID, userID)
	if err != nil {
		return nil, err
	}
	trades, err := db.ListAccountTradesTx(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd := ledger.DayWindow(c.now(), c.loc)
	summary := ledger.Aggregate(trades, dayStart, dayEnd)

	metrics, err := risk.Compute(acct, summary)
	if err != nil {
		return nil, err
	}

	next := risk.Evaluate(acct.Status, metrics)
	if next == acct.Status {
		return nil, nil
	}

	oldStatus := acct.Status
	acct, err = db.UpdateAccountStatusTx(ctx, tx, accountID, userID, next)
	if err != nil {
		return nil, err
	}
	return c.statusChange(acct, oldStatus, metrics), nil
}

func (c *Coordinator) statusChange(acct *db.Account, oldStatus string, m *risk.Metrics) *events.StatusChange {
	return &events.StatusChange{
		UserID:      acct.UserID,
		AccountID:   acct.ID,
		AccountName: acct.Name,
		OldStatus:   oldStatus,
		NewStatus:   acct.Status,
		Drawdown:    m.CurrentDrawdown,
		DailyPnL:    m.DailyPnL,
		TotalPnL:    m.TotalPnL,
	}
}

// lockAccounts locks the given account ids (empty ids skipped, duplicates
// collapsed) in sorted order so concurrent cycles cannot deadlock.
func (c *Coordinator) lockAccounts(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		l := c.locks.acquire(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		for _, id := range uniq {
			c.locks.release(id)
		}
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (c *Coordinator) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if c.metrics != nil {
		defer monitor.NewTimer(c.metrics.DBLatency).Stop()
	}
	tx, err := c.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (c *Coordinator) publishTrade(t *db.Trade) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.TopicTradeRecorded, events.TradeRecorded{
		UserID:     t.UserID,
		AccountID:  t.AccountID,
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		ProfitLoss: t.ProfitLoss,
	})
}

func (c *Coordinator) publishStatusChange(ch *events.StatusChange) {
	if ch == nil || c.bus == nil {
		return
	}
	log.Printf("account %s status %s -> %s", ch.AccountID, ch.OldStatus, ch.NewStatus)
	if c.metrics != nil {
		c.metrics.IncrementTransitions()
	}
	c.bus.Publish(events.TopicAccountStatusChanged, *ch)
}
