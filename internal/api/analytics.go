package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker-core/pkg/db"
)

func (s *Server) getPerformance(c *gin.Context) {
	stats, err := s.DB.GetPerformanceStats(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	winRate := 0.0
	if stats.TotalTrades > 0 {
		winRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"total_trades":   stats.TotalTrades,
		"winning_trades": stats.WinningTrades,
		"losing_trades":  stats.LosingTrades,
		"win_rate":       round2(winRate),
		"total_pnl":      round2(stats.TotalPnL),
		"average_roi":    round2(stats.AverageROI),
		"max_profit":     round2(stats.MaxProfit),
		"max_loss":       round2(stats.MaxLoss),
		"avg_win":        round2(stats.AvgWin),
		"avg_loss":       round2(stats.AvgLoss),
	})
}

func (s *Server) getEquityCurve(c *gin.Context) {
	points, err := s.DB.GetEquityCurve(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if points == nil {
		points = []db.EquityPoint{}
	}
	for i := range points {
		points[i].CumulativeProfit = round2(points[i].CumulativeProfit)
	}
	c.JSON(http.StatusOK, points)
}

func (s *Server) getStatsBySymbol(c *gin.Context) {
	stats, err := s.DB.GetStatsBySymbol(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		stats = []db.SymbolStats{}
	}
	for i := range stats {
		stats[i].TotalProfit = round2(stats[i].TotalProfit)
		stats[i].AvgROI = round2(stats[i].AvgROI)
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) getMonthlyStats(c *gin.Context) {
	stats, err := s.DB.GetMonthlyStats(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		stats = []db.MonthlyStats{}
	}
	for i := range stats {
		stats[i].MonthlyProfit = round2(stats[i].MonthlyProfit)
		stats[i].AvgROI = round2(stats[i].AvgROI)
	}
	c.JSON(http.StatusOK, stats)
}
