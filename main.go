package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tracker-core/internal/account"
	"tracker-core/internal/analysis"
	"tracker-core/internal/api"
	"tracker-core/internal/events"
	"tracker-core/internal/insight"
	"tracker-core/internal/monitor"
	"tracker-core/internal/scheduler"
	"tracker-core/pkg/config"
	"tracker-core/pkg/crypto"
	"tracker-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("starting tracker-core on port %s", cfg.Port)
	log.Printf("using database at %s", cfg.DBPath)

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("failed to apply migrations: %v", err)
	}

	sysMetrics := monitor.NewSystemMetrics()

	var encryptor *crypto.Encryptor
	if cfg.SettingsEncKey != "" {
		encryptor, err = crypto.NewEncryptor(cfg.SettingsEncKey, 1)
		if err != nil {
			log.Fatalf("failed to init encryptor: %v", err)
		}
	} else {
		log.Println("SETTINGS_ENC_KEY not set; broker key storage disabled")
	}

	loc := cfg.Location()
	coordinator := account.New(database, bus, loc)
	coordinator.SetMetrics(sysMetrics)

	thresholds, err := insight.LoadThresholds(cfg.InsightRulesPath)
	if err != nil {
		log.Printf("failed to load insight rules, using defaults: %v", err)
	}
	generator := insight.NewGenerator(database, thresholds, bus)

	analyzer := analysis.NewClient(cfg.AnalysisAPIURL, cfg.AnalysisAPIKey, cfg.AnalysisInterval)
	if cfg.AnalysisAPIURL == "" {
		log.Println("ANALYSIS_API_URL not set; serving simulated analysis")
	}

	// Background loops
	sched := scheduler.New(scheduler.Config{
		InsightInterval:  cfg.InsightInterval,
		RetentionAge:     cfg.InsightRetentionAge,
		AnalysisInterval: cfg.AnalysisInterval,
		LockTTL:          cfg.LockTTL,
	}, database, generator, analyzer, coordinator, sysMetrics)
	sched.Start()
	defer sched.Stop()
	log.Println("background scheduler started")

	// API
	server := api.NewServer(api.Deps{
		Bus:         bus,
		DB:          database,
		Coordinator: coordinator,
		Insights:    generator,
		Analysis:    analyzer,
		Metrics:     sysMetrics,
		Encryptor:   encryptor,
		Config:      cfg,
	})
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}
