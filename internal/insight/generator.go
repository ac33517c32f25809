package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"tracker-core/internal/events"
	"tracker-core/pkg/db"
)

// Insight type values.
const (
	TypeWarning  = "warning"
	TypePositive = "positive"
)

// Generator regenerates a user's insights from their aggregate statistics.
type Generator struct {
	db         *db.Database
	thresholds Thresholds
	bus        *events.Bus
}

// NewGenerator creates a Generator.
func NewGenerator(database *db.Database, thresholds Thresholds, bus *events.Bus) *Generator {
	return &Generator{db: database, thresholds: thresholds, bus: bus}
}

// GenerateForUser recomputes and replaces a user's insights. Users with too
// few trades get none.
func (g *Generator) GenerateForUser(ctx context.Context, userID string) ([]db.Insight, error) {
	stats, err := g.db.GetPerformanceStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	insights := g.evaluate(userID, stats)

	if err := g.db.DeleteInsightsForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear insights: %w", err)
	}
	for _, in := range insights {
		if err := g.db.InsertInsight(ctx, in); err != nil {
			return nil, fmt.Errorf("store insight: %w", err)
		}
	}

	if g.bus != nil && len(insights) > 0 {
		g.bus.Publish(events.TopicInsightsGenerated, map[string]any{
			"user_id": userID,
			"count":   len(insights),
		})
	}
	return insights, nil
}

// GenerateForAllUsers runs generation for every user; per-user failures are
// logged and skipped.
func (g *Generator) GenerateForAllUsers(ctx context.Context) int {
	userIDs, err := g.db.ListUserIDs(ctx)
	if err != nil {
		log.Printf("insight generation: list users: %v", err)
		return 0
	}

	total := 0
	for _, userID := range userIDs {
		insights, err := g.GenerateForUser(ctx, userID)
		if err != nil {
			log.Printf("insight generation for user %s: %v", userID, err)
			continue
		}
		total += len(insights)
	}
	return total
}

func (g *Generator) evaluate(userID string, s *db.PerformanceStats) []db.Insight {
	t := g.thresholds
	if s.TotalTrades < t.MinTrades {
		return nil
	}

	winRate := float64(s.WinningTrades) / float64(s.TotalTrades)
	grossWin := s.AvgWin * float64(s.WinningTrades)
	grossLoss := -s.AvgLoss * float64(s.LosingTrades)
	profitFactor := grossWin
	if grossLoss > 0 {
		profitFactor = grossWin / grossLoss
	}

	var insights []db.Insight
	add := func(kind, message string, data map[string]any) {
		payload, _ := json.Marshal(data)
		insights = append(insights, db.Insight{
			ID:      uuid.NewString(),
			UserID:  userID,
			Type:    kind,
			Message: message,
			Data:    string(payload),
		})
	}

	if winRate < t.LowWinRate {
		add(TypeWarning,
			fmt.Sprintf("Your win rate is %.1f%%. Review your entry criteria before taking the next trade.", winRate*100),
			map[string]any{"win_rate": winRate, "total_trades": s.TotalTrades})
	}

	if profitFactor < t.LowProfitFactor {
		add(TypeWarning,
			fmt.Sprintf("Your profit factor is %.2f. Winners are not covering losers; consider tightening stops.", profitFactor),
			map[string]any{"profit_factor": profitFactor})
	}

	if s.AvgLoss < 0 && s.MaxLoss < s.AvgLoss*t.LargeLossRatio {
		add(TypeWarning,
			fmt.Sprintf("Your largest loss (%.2f) is far beyond your average loss (%.2f). One trade is doing outsized damage.", s.MaxLoss, s.AvgLoss),
			map[string]any{"max_loss": s.MaxLoss, "avg_loss": s.AvgLoss})
	}

	if winRate > t.GoodWinRate && profitFactor > t.GoodProfitFactor {
		add(TypePositive,
			fmt.Sprintf("Strong edge: %.1f%% win rate with a %.2f profit factor. Keep executing the same plan.", winRate*100, profitFactor),
			map[string]any{"win_rate": winRate, "profit_factor": profitFactor})
	}

	return insights
}

// Suggestion is one actionable recommendation for the suggestions endpoint.
type Suggestion struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// SuggestForUser derives recommendations from settings plus aggregate stats.
func (g *Generator) SuggestForUser(ctx context.Context, userID string) ([]Suggestion, error) {
	stats, err := g.db.GetPerformanceStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := g.db.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []Suggestion
	if settings.RiskPercentage > 2 {
		out = append(out, Suggestion{
			Category: "risk",
			Message:  fmt.Sprintf("You risk %.1f%% per trade. Most funded traders stay at or below 2%%.", settings.RiskPercentage),
		})
	}
	if stats.TotalTrades >= g.thresholds.MinTrades && stats.AvgLoss < 0 && stats.AvgWin > 0 && stats.AvgWin < -stats.AvgLoss {
		out = append(out, Suggestion{
			Category: "reward",
			Message:  "Your average win is smaller than your average loss. Aim for setups with at least 1:1 reward to risk.",
		})
	}
	if stats.TotalTrades == 0 {
		out = append(out, Suggestion{
			Category: "journal",
			Message:  "Log your first trades to unlock performance insights.",
		})
	}
	return out, nil
}
