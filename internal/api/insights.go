package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker-core/internal/insight"
	"tracker-core/pkg/db"
)

func (s *Server) listInsights(c *gin.Context) {
	insights, err := s.DB.ListInsights(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if insights == nil {
		insights = []db.Insight{}
	}
	c.JSON(http.StatusOK, insights)
}

// generateInsights recomputes the caller's insights on demand instead of
// waiting for the next scheduler pass.
func (s *Server) generateInsights(c *gin.Context) {
	insights, err := s.Insights.GenerateForUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if s.Metrics != nil {
		for range insights {
			s.Metrics.IncrementInsights()
		}
	}
	if insights == nil {
		insights = []db.Insight{}
	}
	c.JSON(http.StatusOK, gin.H{"generated": len(insights), "insights": insights})
}

func (s *Server) getSuggestions(c *gin.Context) {
	suggestions, err := s.Insights.SuggestForUser(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []insight.Suggestion{}
	}
	c.JSON(http.StatusOK, suggestions)
}

func (s *Server) getAnalysis(c *gin.Context) {
	summary, err := s.Analysis.Get(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
