// Package scheduler runs the background loops: insight regeneration, stale
// insight pruning, analysis cache refresh and lock housekeeping.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"tracker-core/internal/account"
	"tracker-core/internal/analysis"
	"tracker-core/internal/insight"
	"tracker-core/internal/monitor"
	"tracker-core/pkg/db"
)

// Config holds the loop intervals. Zero intervals disable their loop.
type Config struct {
	InsightInterval  time.Duration
	RetentionAge     time.Duration
	AnalysisInterval time.Duration
	LockTTL          time.Duration
}

// Scheduler owns the background goroutines.
type Scheduler struct {
	cfg         Config
	db          *db.Database
	insights    *insight.Generator
	analysis    *analysis.Client
	coordinator *account.Coordinator
	metrics     *monitor.SystemMetrics

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a Scheduler.
func New(cfg Config, database *db.Database, gen *insight.Generator, an *analysis.Client, coord *account.Coordinator, metrics *monitor.SystemMetrics) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		db:          database,
		insights:    gen,
		analysis:    an,
		coordinator: coord,
		metrics:     metrics,
	}
}

// Start launches the enabled loops. Call Stop to shut them down.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.cfg.InsightInterval > 0 && s.insights != nil {
		s.loop(ctx, s.cfg.InsightInterval, s.runInsights)
	}
	if s.cfg.RetentionAge > 0 {
		// Prune hourly regardless of the retention window size.
		s.loop(ctx, time.Hour, s.pruneInsights)
	}
	if s.cfg.AnalysisInterval > 0 && s.analysis != nil {
		s.loop(ctx, s.cfg.AnalysisInterval, s.refreshAnalysis)
	}
	if s.cfg.LockTTL > 0 && s.coordinator != nil {
		s.loop(ctx, s.cfg.LockTTL, s.cleanupLocks)
	}
}

// Stop cancels all loops and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

func (s *Scheduler) runInsights(ctx context.Context) {
	n := s.insights.GenerateForAllUsers(ctx)
	if n > 0 {
		log.Printf("scheduler: generated %d insights", n)
	}
	if s.metrics != nil {
		for i := 0; i < n; i++ {
			s.metrics.IncrementInsights()
		}
	}
}

func (s *Scheduler) pruneInsights(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.RetentionAge)
	n, err := s.db.DeleteInsightsOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("scheduler: prune insights: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: pruned %d stale insights", n)
	}
}

func (s *Scheduler) refreshAnalysis(ctx context.Context) {
	userIDs, err := s.db.ListUserIDs(ctx)
	if err != nil {
		log.Printf("scheduler: list users: %v", err)
		return
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, userID := range userIDs {
		syms, err := s.db.ListTradedSymbols(ctx, userID)
		if err != nil {
			log.Printf("scheduler: symbols for user %s: %v", userID, err)
			continue
		}
		for _, sym := range syms {
			if !seen[sym] {
				seen[sym] = true
				symbols = append(symbols, sym)
			}
		}
	}

	if dropped := s.analysis.Prune(symbols); dropped > 0 {
		log.Printf("scheduler: evicted %d untraded symbols from analysis cache", dropped)
	}
	if len(symbols) == 0 {
		return
	}
	n := s.analysis.Refresh(ctx, symbols)
	log.Printf("scheduler: refreshed analysis for %d/%d symbols", n, len(symbols))
}

func (s *Scheduler) cleanupLocks(_ context.Context) {
	s.coordinator.CleanupIdleLocks(s.cfg.LockTTL)
	if s.metrics != nil {
		s.metrics.SetAccountLocks(s.coordinator.LockCount())
	}
}
