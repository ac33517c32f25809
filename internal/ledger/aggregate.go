// Package ledger holds the pure trade math: per-trade derived figures and the
// fold that turns an account's trade history into summary numbers.
package ledger

import (
	"time"

	"tracker-core/pkg/db"
)

// ProfitLoss derives the realized P&L of a closed trade. A SELL (short)
// inverts the price move.
func ProfitLoss(entryPrice, exitPrice, quantity float64, side string) float64 {
	pl := (exitPrice - entryPrice) * quantity
	if side == db.SideSell {
		pl = -pl
	}
	return pl
}

// ROI derives the percentage return on the entry price. Zero entry yields
// zero rather than dividing.
func ROI(entryPrice, exitPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	return (exitPrice - entryPrice) / entryPrice * 100
}

// Summary is the aggregate over one account's trade history.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	MaxProfit     float64
	MaxLoss       float64
	AvgWin        float64
	AvgLoss       float64
	DailyPnL      float64
}

// Aggregate folds trades into a Summary. DailyPnL sums trades whose entry
// date falls in the half-open window [dayStart, dayEnd). Breakeven trades
// count neither as wins nor losses.
func Aggregate(trades []db.Trade, dayStart, dayEnd time.Time) Summary {
	var (
		s       Summary
		winSum  float64
		lossSum float64
	)
	s.TotalTrades = len(trades)

	for _, t := range trades {
		s.TotalPnL += t.ProfitLoss

		switch {
		case t.ProfitLoss > 0:
			s.WinningTrades++
			winSum += t.ProfitLoss
			if t.ProfitLoss > s.MaxProfit {
				s.MaxProfit = t.ProfitLoss
			}
		case t.ProfitLoss < 0:
			s.LosingTrades++
			lossSum += t.ProfitLoss
			if t.ProfitLoss < s.MaxLoss {
				s.MaxLoss = t.ProfitLoss
			}
		}

		if !t.EntryDate.Before(dayStart) && t.EntryDate.Before(dayEnd) {
			s.DailyPnL += t.ProfitLoss
		}
	}

	if s.WinningTrades > 0 {
		s.AvgWin = winSum / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = lossSum / float64(s.LosingTrades)
	}
	return s
}

// WinRate is the fraction of trades that won, 0 when there are none.
func (s Summary) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades)
}

// ProfitFactor is gross wins over gross losses. With no losses it returns
// the gross win sum so a loss-free history still ranks high.
func (s Summary) ProfitFactor() float64 {
	grossWin := s.AvgWin * float64(s.WinningTrades)
	grossLoss := -s.AvgLoss * float64(s.LosingTrades)
	if grossLoss == 0 {
		return grossWin
	}
	return grossWin / grossLoss
}

// DayWindow returns the half-open [start, end) bounds of the calendar day
// containing now in the given location.
func DayWindow(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
