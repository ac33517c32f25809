package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tracker-core/internal/risk"
	"tracker-core/pkg/db"
)

type accountRequest struct {
	Name           string     `json:"name"`
	PropFirm       string     `json:"prop_firm"`
	AccountType    string     `json:"account_type"`
	Stage          string     `json:"stage"`
	InitialBalance float64    `json:"initial_balance"`
	CurrentBalance *float64   `json:"current_balance"`
	ProfitTarget   float64    `json:"profit_target"`
	DailyLossLimit float64    `json:"daily_loss_limit"`
	MaxLossLimit   float64    `json:"max_loss_limit"`
	MaxDrawdown    float64    `json:"max_drawdown"`
	PricePaid      float64    `json:"price_paid"`
	Leverage       float64    `json:"leverage"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
}

func (r *accountRequest) validate(c *gin.Context) bool {
	if r.Name == "" {
		badRequest(c, "MISSING_NAME", "account name is required")
		return false
	}
	if r.InitialBalance <= 0 {
		badRequest(c, "INVALID_INITIAL_BALANCE", "initial_balance must be positive")
		return false
	}
	if r.ProfitTarget < 0 || r.DailyLossLimit < 0 || r.MaxLossLimit < 0 || r.MaxDrawdown < 0 {
		badRequest(c, "INVALID_LIMIT", "risk limits cannot be negative")
		return false
	}
	if r.Status != "" && !risk.ValidStatus(r.Status) {
		badRequest(c, "INVALID_STATUS", "unknown account status")
		return false
	}
	return true
}

func (s *Server) listAccounts(c *gin.Context) {
	accounts, err := s.DB.ListAccountsByUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if accounts == nil {
		accounts = []db.Account{}
	}
	c.JSON(http.StatusOK, accounts)
}

func (s *Server) createAccount(c *gin.Context) {
	var req accountRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if !req.validate(c) {
		return
	}

	current := req.InitialBalance
	if req.CurrentBalance != nil {
		current = *req.CurrentBalance
	}
	status := req.Status
	if status == "" {
		status = risk.StatusActive
	}

	a := db.Account{
		ID:             uuid.NewString(),
		UserID:         CurrentUserID(c),
		Name:           req.Name,
		PropFirm:       req.PropFirm,
		AccountType:    req.AccountType,
		Stage:          req.Stage,
		InitialBalance: req.InitialBalance,
		CurrentBalance: current,
		ProfitTarget:   req.ProfitTarget,
		DailyLossLimit: req.DailyLossLimit,
		MaxLossLimit:   req.MaxLossLimit,
		MaxDrawdown:    req.MaxDrawdown,
		PricePaid:      req.PricePaid,
		Leverage:       req.Leverage,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Status:         status,
		Notes:          req.Notes,
	}
	if err := s.DB.CreateAccount(c.Request.Context(), a); err != nil {
		respondError(c, err)
		return
	}

	created, err := s.DB.GetAccount(c.Request.Context(), a.ID, a.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) getAccount(c *gin.Context) {
	a, err := s.DB.GetAccount(c.Request.Context(), c.Param("id"), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) updateAccount(c *gin.Context) {
	userID := CurrentUserID(c)
	existing, err := s.DB.GetAccount(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	var req accountRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if !req.validate(c) {
		return
	}

	existing.Name = req.Name
	existing.PropFirm = req.PropFirm
	existing.AccountType = req.AccountType
	existing.Stage = req.Stage
	existing.InitialBalance = req.InitialBalance
	if req.CurrentBalance != nil {
		existing.CurrentBalance = *req.CurrentBalance
	}
	existing.ProfitTarget = req.ProfitTarget
	existing.DailyLossLimit = req.DailyLossLimit
	existing.MaxLossLimit = req.MaxLossLimit
	existing.MaxDrawdown = req.MaxDrawdown
	existing.PricePaid = req.PricePaid
	existing.Leverage = req.Leverage
	existing.StartDate = req.StartDate
	existing.EndDate = req.EndDate
	if req.Status != "" {
		existing.Status = req.Status
	}
	existing.Notes = req.Notes

	updated, err := s.DB.UpdateAccount(c.Request.Context(), *existing)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteAccount(c *gin.Context) {
	if err := s.DB.DeleteAccount(c.Request.Context(), c.Param("id"), CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// getAccountStats runs a full evaluation cycle and returns the snapshot. A
// stale persisted status is corrected as a side effect.
func (s *Server) getAccountStats(c *gin.Context) {
	stats, err := s.Coordinator.ComputeStats(c.Request.Context(), CurrentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	a := stats.Account
	sum := stats.Summary
	m := stats.Metrics

	c.JSON(http.StatusOK, gin.H{
		"account": a,
		"stats": gin.H{
			"total_trades":   sum.TotalTrades,
			"winning_trades": sum.WinningTrades,
			"losing_trades":  sum.LosingTrades,
			"win_rate":       round2(sum.WinRate() * 100),
			"total_pnl":      round2(sum.TotalPnL),
			"avg_win":        round2(sum.AvgWin),
			"avg_loss":       round2(sum.AvgLoss),
			"max_profit":     round2(sum.MaxProfit),
			"max_loss":       round2(sum.MaxLoss),
			"profit_factor":  round2(sum.ProfitFactor()),
		},
		"drawdown": gin.H{
			"current":        round2(m.CurrentDrawdown),
			"percent":        round2(m.DrawdownPercent),
			"max_allowed":    round2(m.MaxDrawdownLimit),
			"max_loss_limit": round2(m.MaxLossLimit),
			"breached":       m.DrawdownBreached,
		},
		"daily": gin.H{
			"pnl":       round2(m.DailyPnL),
			"limit":     round2(m.DailyLimit),
			"remaining": round2(m.DailyRemaining),
			"breached":  m.DailyLossBreached,
		},
		"profit": gin.H{
			"target":           round2(m.ProfitTarget),
			"progress_percent": round2(m.ProfitProgress),
			"reached":          m.TargetReached,
		},
		"balance": gin.H{
			"initial": round2(a.InitialBalance),
			"current": round2(a.CurrentBalance),
			"percent": round2(m.BalancePercent),
		},
	})
}

// updateAccountBalance applies a manual balance correction. The client sends
// either a signed delta or an absolute new balance.
func (s *Server) updateAccountBalance(c *gin.Context) {
	var req struct {
		Delta      *float64 `json:"delta"`
		NewBalance *float64 `json:"new_balance"`
	}
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if req.Delta == nil && req.NewBalance == nil {
		badRequest(c, "MISSING_AMOUNT", "delta or new_balance is required")
		return
	}

	userID := CurrentUserID(c)
	accountID := c.Param("id")

	delta := 0.0
	if req.Delta != nil {
		delta = *req.Delta
	} else {
		current, err := s.DB.GetAccount(c.Request.Context(), accountID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		delta = *req.NewBalance - current.CurrentBalance
	}

	a, err := s.Coordinator.ApplyBalanceAdjustment(c.Request.Context(), userID, accountID, delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
