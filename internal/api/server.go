// Package api exposes the HTTP surface: auth, accounts, trades, analytics,
// diary, settings, insights and the websocket feed.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tracker-core/internal/account"
	"tracker-core/internal/analysis"
	"tracker-core/internal/events"
	"tracker-core/internal/insight"
	"tracker-core/internal/monitor"
	"tracker-core/pkg/config"
	"tracker-core/pkg/crypto"
	"tracker-core/pkg/db"
)

// Server wires HTTP endpoints around the coordinator and event bus.
type Server struct {
	Router      *gin.Engine
	Bus         *events.Bus
	DB          *db.Database
	Coordinator *account.Coordinator
	Insights    *insight.Generator
	Analysis    *analysis.Client
	Metrics     *monitor.SystemMetrics
	Encryptor   *crypto.Encryptor
	JWTSecret   string
	TokenTTL    time.Duration
	Loc         *time.Location
}

// Deps bundles the server's collaborators.
type Deps struct {
	Bus         *events.Bus
	DB          *db.Database
	Coordinator *account.Coordinator
	Insights    *insight.Generator
	Analysis    *analysis.Client
	Metrics     *monitor.SystemMetrics
	Encryptor   *crypto.Encryptor
	Config      *config.Config
}

// NewServer builds the router with the full middleware stack and all routes.
func NewServer(d Deps) *Server {
	r := gin.New()

	// Middleware stack (order matters!)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger(d.Metrics))
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:      r,
		Bus:         d.Bus,
		DB:          d.DB,
		Coordinator: d.Coordinator,
		Insights:    d.Insights,
		Analysis:    d.Analysis,
		Metrics:     d.Metrics,
		Encryptor:   d.Encryptor,
		JWTSecret:   d.Config.JWTSecret,
		TokenTTL:    d.Config.TokenTTL,
		Loc:         d.Config.Location(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api/v1")
	{
		api.GET("/metrics", s.getMetrics)

		// Auth endpoints (no auth required)
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.registerUser)
			auth.POST("/login", s.loginUser)
		}

		// Protected API
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/accounts", s.listAccounts)
			protected.POST("/accounts", s.createAccount)
			protected.GET("/accounts/:id", s.getAccount)
			protected.PUT("/accounts/:id", s.updateAccount)
			protected.DELETE("/accounts/:id", s.deleteAccount)
			protected.GET("/accounts/:id/stats", s.getAccountStats)
			protected.POST("/accounts/:id/update-balance", s.updateAccountBalance)

			protected.GET("/trades", s.listTrades)
			protected.POST("/trades", s.createTrade)
			protected.GET("/trades/:id", s.getTrade)
			protected.PUT("/trades/:id", s.updateTrade)
			protected.DELETE("/trades/:id", s.deleteTrade)
			protected.POST("/trades/import", s.importTrades)

			protected.GET("/analytics/performance", s.getPerformance)
			protected.GET("/analytics/equity-curve", s.getEquityCurve)
			protected.GET("/analytics/by-symbol", s.getStatsBySymbol)
			protected.GET("/analytics/monthly", s.getMonthlyStats)

			protected.GET("/diary", s.listDiaryEntries)
			protected.POST("/diary", s.createDiaryEntry)
			protected.GET("/diary/:id", s.getDiaryEntry)
			protected.PUT("/diary/:id", s.updateDiaryEntry)
			protected.DELETE("/diary/:id", s.deleteDiaryEntry)

			protected.GET("/settings", s.getSettings)
			protected.PUT("/settings", s.updateSettings)

			protected.GET("/insights", s.listInsights)
			protected.POST("/insights/generate", s.generateInsights)
			protected.GET("/insights/suggestions", s.getSuggestions)
			protected.GET("/analysis/:symbol", s.getAnalysis)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	return s.Router.Run(addr)
}
