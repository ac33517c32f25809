package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// maskKey hides all but the last four characters of a broker key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.DB.GetUserSettings(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	masked := ""
	if settings.BrokerAPIKey != "" && s.Encryptor != nil {
		plain, err := s.Encryptor.Open(settings.BrokerAPIKey)
		if err == nil {
			masked = maskKey(plain)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"trading_style":   settings.TradingStyle,
		"risk_percentage": settings.RiskPercentage,
		"daily_loss_limit": settings.DailyLossLimit,
		"trading_hours":   settings.TradingHours,
		"broker_api_key":  masked,
	})
}

func (s *Server) updateSettings(c *gin.Context) {
	var req struct {
		TradingStyle   string   `json:"trading_style"`
		RiskPercentage *float64 `json:"risk_percentage"`
		DailyLossLimit *float64 `json:"daily_loss_limit"`
		TradingHours   string   `json:"trading_hours"`
		BrokerAPIKey   *string  `json:"broker_api_key"`
	}
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "INVALID_PAYLOAD", "invalid request payload")
		return
	}
	if req.RiskPercentage != nil && (*req.RiskPercentage < 0 || *req.RiskPercentage > 100) {
		badRequest(c, "INVALID_RISK_PERCENTAGE", "risk_percentage must be between 0 and 100")
		return
	}

	userID := CurrentUserID(c)
	settings, err := s.DB.GetUserSettings(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if req.TradingStyle != "" {
		settings.TradingStyle = req.TradingStyle
	}
	if req.RiskPercentage != nil {
		settings.RiskPercentage = *req.RiskPercentage
	}
	if req.DailyLossLimit != nil {
		settings.DailyLossLimit = *req.DailyLossLimit
	}
	if req.TradingHours != "" {
		settings.TradingHours = req.TradingHours
	}
	if req.BrokerAPIKey != nil {
		if *req.BrokerAPIKey == "" {
			settings.BrokerAPIKey = ""
		} else if s.Encryptor != nil {
			sealed, err := s.Encryptor.Seal(*req.BrokerAPIKey)
			if err != nil {
				respondError(c, err)
				return
			}
			settings.BrokerAPIKey = sealed
			settings.KeyVersion = s.Encryptor.Version()
		} else {
			badRequest(c, "ENCRYPTION_UNAVAILABLE", "broker key storage is not configured")
			return
		}
	}
	settings.UserID = userID

	if err := s.DB.UpsertUserSettings(c.Request.Context(), *settings); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
