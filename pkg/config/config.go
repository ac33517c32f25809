package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the tracker core.
type Config struct {
	Port string

	// Database
	DBPath string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Settings encryption (broker API keys at rest)
	SettingsEncKey string

	// Reference clock for "today" aggregation windows.
	Timezone string

	// Insight engine
	InsightRulesPath    string
	InsightInterval     time.Duration
	InsightRetentionAge time.Duration

	// External technical-analysis API
	AnalysisAPIURL   string
	AnalysisAPIKey   string
	AnalysisInterval time.Duration

	// Idle per-account lock reclamation age.
	LockTTL time.Duration
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Database path: prefer DB_PATH, then DATABASE_PATH for backward compatibility.
	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = getEnv("DATABASE_PATH", "./data/tracker.db")
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		DBPath:              dbPath,
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		TokenTTL:            getEnvDuration("TOKEN_TTL", 72*time.Hour),
		SettingsEncKey:      os.Getenv("SETTINGS_ENC_KEY"),
		Timezone:            getEnv("TIMEZONE", "Local"),
		InsightRulesPath:    os.Getenv("INSIGHT_RULES_PATH"),
		InsightInterval:     getEnvDuration("INSIGHT_INTERVAL", 24*time.Hour),
		InsightRetentionAge: getEnvDuration("INSIGHT_RETENTION_AGE", 30*24*time.Hour),
		AnalysisAPIURL:      getEnv("ANALYSIS_API_URL", ""),
		AnalysisAPIKey:      os.Getenv("ANALYSIS_API_KEY"),
		AnalysisInterval:    getEnvDuration("ANALYSIS_INTERVAL", 4*time.Hour),
		LockTTL:             getEnvDuration("LOCK_TTL", 30*time.Minute),
	}, nil
}

// Location resolves the configured timezone. Falls back to the server's local
// zone when the name does not resolve, so aggregation still has one clock.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
