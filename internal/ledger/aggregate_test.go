package ledger

import (
	"testing"
	"time"

	"tracker-core/pkg/db"
)

func TestProfitLoss(t *testing.T) {
	tests := []struct {
		name   string
		entry  float64
		exit   float64
		qty    float64
		side   string
		expect float64
	}{
		{"long win", 100, 110, 2, db.SideBuy, 20},
		{"long loss", 100, 95, 3, db.SideBuy, -15},
		{"short win", 100, 90, 2, db.SideSell, 20},
		{"short loss", 100, 105, 1, db.SideSell, -5},
		{"flat", 100, 100, 5, db.SideBuy, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitLoss(tt.entry, tt.exit, tt.qty, tt.side)
			if got != tt.expect {
				t.Errorf("ProfitLoss = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestROI(t *testing.T) {
	if got := ROI(100, 110); got != 10 {
		t.Errorf("ROI = %v, want 10", got)
	}
	if got := ROI(0, 110); got != 0 {
		t.Errorf("ROI with zero entry = %v, want 0", got)
	}
}

func mkTrade(pl float64, entry time.Time) db.Trade {
	return db.Trade{ProfitLoss: pl, EntryDate: entry}
}

func TestAggregate(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, loc)
	dayStart, dayEnd := DayWindow(now, loc)

	yesterday := now.AddDate(0, 0, -1)
	trades := []db.Trade{
		mkTrade(100, now),
		mkTrade(-40, now),
		mkTrade(0, now), // breakeven: counts in total only
		mkTrade(60, yesterday),
		mkTrade(-200, yesterday),
	}

	s := Aggregate(trades, dayStart, dayEnd)

	if s.TotalTrades != 5 {
		t.Errorf("TotalTrades = %d, want 5", s.TotalTrades)
	}
	if s.WinningTrades != 2 || s.LosingTrades != 2 {
		t.Errorf("wins/losses = %d/%d, want 2/2", s.WinningTrades, s.LosingTrades)
	}
	if s.TotalPnL != -80 {
		t.Errorf("TotalPnL = %v, want -80", s.TotalPnL)
	}
	if s.MaxProfit != 100 {
		t.Errorf("MaxProfit = %v, want 100", s.MaxProfit)
	}
	if s.MaxLoss != -200 {
		t.Errorf("MaxLoss = %v, want -200", s.MaxLoss)
	}
	if s.AvgWin != 80 {
		t.Errorf("AvgWin = %v, want 80", s.AvgWin)
	}
	if s.AvgLoss != -120 {
		t.Errorf("AvgLoss = %v, want -120", s.AvgLoss)
	}
	if s.DailyPnL != 60 {
		t.Errorf("DailyPnL = %v, want 60", s.DailyPnL)
	}
}

func TestAggregateEmpty(t *testing.T) {
	dayStart, dayEnd := DayWindow(time.Now(), time.UTC)
	s := Aggregate(nil, dayStart, dayEnd)
	if s.TotalTrades != 0 || s.TotalPnL != 0 || s.AvgWin != 0 || s.AvgLoss != 0 {
		t.Errorf("empty aggregate not zeroed: %+v", s)
	}
	if s.WinRate() != 0 {
		t.Errorf("WinRate on empty = %v, want 0", s.WinRate())
	}
}

func TestDayWindowHalfOpen(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 23, 59, 0, 0, loc)
	start, end := DayWindow(now, loc)

	midnight := time.Date(2026, 3, 11, 0, 0, 0, 0, loc)
	trades := []db.Trade{
		mkTrade(10, start),                    // inclusive at start
		mkTrade(20, midnight.Add(-time.Nanosecond)), // last instant of day
		mkTrade(40, midnight),                 // excluded: next day
	}
	s := Aggregate(trades, start, end)
	if s.DailyPnL != 30 {
		t.Errorf("DailyPnL = %v, want 30", s.DailyPnL)
	}
}

func TestDayWindowTimezone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 02:00 UTC on Mar 10 is still Mar 9 in New York.
	now := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
	start, _ := DayWindow(now, ny)
	if start.Day() != 9 {
		t.Errorf("day start = %v, want Mar 9 local", start)
	}
}

func TestProfitFactor(t *testing.T) {
	s := Summary{WinningTrades: 2, AvgWin: 50, LosingTrades: 1, AvgLoss: -40}
	if got := s.ProfitFactor(); got != 2.5 {
		t.Errorf("ProfitFactor = %v, want 2.5", got)
	}
	noLoss := Summary{WinningTrades: 2, AvgWin: 50}
	if got := noLoss.ProfitFactor(); got != 100 {
		t.Errorf("ProfitFactor without losses = %v, want 100", got)
	}
}
