package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker-core/internal/risk"
	"tracker-core/pkg/db"
)

// respondError maps engine errors onto the JSON error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NOT_FOUND",
			"error": "record not found",
		})
	case errors.Is(err, risk.ErrInvalidConfiguration):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":  "INVALID_CONFIGURATION",
			"error": "account risk configuration cannot be evaluated",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
	}
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": code, "error": msg})
}

// round2 rounds to two decimals at the presentation boundary; stored values
// stay full precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
