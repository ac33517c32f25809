package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tracker-core/pkg/db"
)

type diaryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Emotion string `json:"emotion"`
	TradeID string `json:"trade_id"`
}

func (s *Server) listDiaryEntries(c *gin.Context) {
	entries, err := s.DB.ListDiaryEntries(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []db.DiaryEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) getDiaryEntry(c *gin.Context) {
	e, err := s.DB.GetDiaryEntry(c.Request.Context(), c.Param("id"), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) createDiaryEntry(c *gin.Context) {
	var req diaryRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if req.Title == "" {
		badRequest(c, "MISSING_TITLE", "title is required")
		return
	}

	userID := CurrentUserID(c)
	if req.TradeID != "" {
		// A linked trade must exist and belong to the user.
		if _, err := s.DB.GetTrade(c.Request.Context(), req.TradeID, userID); err != nil {
			respondError(c, err)
			return
		}
	}

	e := db.DiaryEntry{
		ID:      uuid.NewString(),
		UserID:  userID,
		Title:   req.Title,
		Content: req.Content,
		Emotion: req.Emotion,
		TradeID: req.TradeID,
	}
	if err := s.DB.CreateDiaryEntry(c.Request.Context(), e); err != nil {
		respondError(c, err)
		return
	}

	created, err := s.DB.GetDiaryEntry(c.Request.Context(), e.ID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) updateDiaryEntry(c *gin.Context) {
	var req diaryRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if req.Title == "" {
		badRequest(c, "MISSING_TITLE", "title is required")
		return
	}

	e := db.DiaryEntry{
		ID:      c.Param("id"),
		UserID:  CurrentUserID(c),
		Title:   req.Title,
		Content: req.Content,
		Emotion: req.Emotion,
		TradeID: req.TradeID,
	}
	updated, err := s.DB.UpdateDiaryEntry(c.Request.Context(), e)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteDiaryEntry(c *gin.Context) {
	if err := s.DB.DeleteDiaryEntry(c.Request.Context(), c.Param("id"), CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
