// Package risk evaluates account health against configured limits and decides
// status transitions.
package risk

import (
	"errors"

	"tracker-core/internal/ledger"
	"tracker-core/pkg/db"
)

// ErrInvalidConfiguration is returned when an account's risk inputs cannot
// be evaluated (non-positive initial balance).
var ErrInvalidConfiguration = errors.New("invalid risk configuration")

// Metrics is the full evaluated risk picture of one account.
type Metrics struct {
	CurrentDrawdown   float64 // initial - current, signed; negative means profit
	DrawdownPercent   float64
	DailyPnL          float64
	DailyLimit        float64
	DailyRemaining    float64
	TotalPnL          float64
	ProfitTarget      float64
	ProfitProgress    float64 // percent of target reached, 0 when no target
	BalancePercent    float64 // current as percent of initial
	MaxDrawdownLimit  float64
	MaxLossLimit      float64
	DrawdownBreached  bool
	DailyLossBreached bool
	TargetReached     bool
}

// Compute derives risk metrics from an account and its trade summary.
// Limits set to zero are disabled and never breach.
func Compute(a *db.Account, s ledger.Summary) (*Metrics, error) {
	if a.InitialBalance <= 0 {
		return nil, ErrInvalidConfiguration
	}

	m := &Metrics{
		CurrentDrawdown:  a.InitialBalance - a.CurrentBalance,
		DailyPnL:         s.DailyPnL,
		DailyLimit:       a.DailyLossLimit,
		TotalPnL:         s.TotalPnL,
		ProfitTarget:     a.ProfitTarget,
		MaxDrawdownLimit: a.MaxDrawdown,
		MaxLossLimit:     a.MaxLossLimit,
		BalancePercent:   a.CurrentBalance / a.InitialBalance * 100,
	}
	m.DrawdownPercent = m.CurrentDrawdown / a.InitialBalance * 100

	if a.DailyLossLimit > 0 {
		m.DailyRemaining = a.DailyLossLimit + s.DailyPnL
		if m.DailyRemaining < 0 {
			m.DailyRemaining = 0
		}
		m.DailyLossBreached = s.DailyPnL <= -a.DailyLossLimit
	}

	m.DrawdownBreached = (a.MaxDrawdown > 0 && m.CurrentDrawdown >= a.MaxDrawdown) ||
		(a.MaxLossLimit > 0 && m.CurrentDrawdown >= a.MaxLossLimit)

	if a.ProfitTarget > 0 {
		m.ProfitProgress = s.TotalPnL / a.ProfitTarget * 100
		m.TargetReached = s.TotalPnL >= a.ProfitTarget
	}

	return m, nil
}

// Breached reports whether any configured loss limit is violated.
func (m *Metrics) Breached() bool {
	return m.DrawdownBreached || m.DailyLossBreached
}
