package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tracker-core/internal/account"
	"tracker-core/pkg/db"
)

type tradeRequest struct {
	AccountID  string     `json:"account_id"`
	Symbol     string     `json:"symbol"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	EntryDate  time.Time  `json:"entry_date"`
	ExitDate   *time.Time `json:"exit_date"`
	Quantity   float64    `json:"quantity"`
	Side       string     `json:"side"`
	Notes      string     `json:"notes"`
	Emotion    string     `json:"emotion"`
}

func (r *tradeRequest) validate() (string, string) {
	if r.Symbol == "" {
		return "MISSING_SYMBOL", "symbol is required"
	}
	if r.EntryPrice <= 0 || r.ExitPrice <= 0 {
		return "INVALID_PRICE", "entry_price and exit_price must be positive"
	}
	if r.Quantity <= 0 {
		return "INVALID_QUANTITY", "quantity must be positive"
	}
	if r.Side != db.SideBuy && r.Side != db.SideSell {
		return "INVALID_SIDE", "side must be BUY or SELL"
	}
	if r.EntryDate.IsZero() {
		return "MISSING_ENTRY_DATE", "entry_date is required"
	}
	return "", ""
}

func (r *tradeRequest) input() account.TradeInput {
	return account.TradeInput{
		AccountID:  r.AccountID,
		Symbol:     r.Symbol,
		EntryPrice: r.EntryPrice,
		ExitPrice:  r.ExitPrice,
		EntryDate:  r.EntryDate,
		ExitDate:   r.ExitDate,
		Quantity:   r.Quantity,
		Side:       r.Side,
		Notes:      r.Notes,
		Emotion:    r.Emotion,
	}
}

func (s *Server) listTrades(c *gin.Context) {
	trades, err := s.DB.ListTradesByUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if trades == nil {
		trades = []db.Trade{}
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) getTrade(c *gin.Context) {
	t, err := s.DB.GetTrade(c.Request.Context(), c.Param("id"), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) createTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if code, msg := req.validate(); code != "" {
		badRequest(c, code, msg)
		return
	}

	t, err := s.Coordinator.RecordTrade(c.Request.Context(), CurrentUserID(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.IncrementTrades()
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTrade(c *gin.Context) {
	var req tradeRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if code, msg := req.validate(); code != "" {
		badRequest(c, code, msg)
		return
	}

	t, err := s.Coordinator.AmendTrade(c.Request.Context(), CurrentUserID(c), c.Param("id"), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTrade(c *gin.Context) {
	if err := s.Coordinator.RemoveTrade(c.Request.Context(), CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// importTrades bulk-records trades. Rows are processed independently: a bad
// row is reported and skipped, not the whole batch.
func (s *Server) importTrades(c *gin.Context) {
	var req struct {
		Trades []tradeRequest `json:"trades"`
	}
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if len(req.Trades) == 0 {
		badRequest(c, "EMPTY_IMPORT", "no trades to import")
		return
	}

	userID := CurrentUserID(c)
	imported := 0
	var failures []gin.H
	for i, row := range req.Trades {
		if code, msg := row.validate(); code != "" {
			failures = append(failures, gin.H{"index": i, "code": code, "error": msg})
			continue
		}
		if _, err := s.Coordinator.RecordTrade(c.Request.Context(), userID, row.input()); err != nil {
			failures = append(failures, gin.H{"index": i, "code": "IMPORT_FAILED", "error": fmt.Sprintf("%v", err)})
			continue
		}
		imported++
		if s.Metrics != nil {
			s.Metrics.IncrementTrades()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": imported,
		"failed":   len(failures),
		"errors":   failures,
	})
}
