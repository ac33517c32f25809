// Package analysis fetches technical-analysis summaries for traded symbols
// from an external service, with a local simulator when none is configured.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/go-resty/resty/v2"

	"tracker-core/pkg/cache"
)

// Recommendation values returned for a symbol.
const (
	RecommendStrongBuy  = "STRONG_BUY"
	RecommendBuy        = "BUY"
	RecommendNeutral    = "NEUTRAL"
	RecommendSell       = "SELL"
	RecommendStrongSell = "STRONG_SELL"
)

// Summary is the analysis snapshot for one symbol.
type Summary struct {
	Symbol         string    `json:"symbol"`
	Recommendation string    `json:"recommendation"`
	Score          float64   `json:"score"` // -1 (strong sell) .. 1 (strong buy)
	BuySignals     int       `json:"buy_signals"`
	SellSignals    int       `json:"sell_signals"`
	NeutralSignals int       `json:"neutral_signals"`
	UpdatedAt      time.Time `json:"updated_at"`
	Simulated      bool      `json:"simulated"`
}

// Client fetches and caches per-symbol analysis. When no base URL is set it
// falls back to a deterministic simulator so the endpoint keeps working
// offline.
type Client struct {
	http     *resty.Client
	apiKey   string
	cacheTTL time.Duration
	cache    *cache.Sharded
}

// NewClient creates a Client. An empty baseURL enables simulator mode.
func NewClient(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	var http *resty.Client
	if baseURL != "" {
		http = resty.New()
		http.SetBaseURL(baseURL)
		http.SetTimeout(15 * time.Second)
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Client{
		http:     http,
		apiKey:   apiKey,
		cacheTTL: cacheTTL,
		cache:    cache.NewSharded(),
	}
}

// Get returns the analysis for a symbol, serving from cache while fresh.
func (c *Client) Get(ctx context.Context, symbol string) (*Summary, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is empty")
	}

	var cached *Summary
	if v, age, ok := c.cache.GetWithAge(symbol); ok {
		cached = v.(*Summary)
		if age < c.cacheTTL {
			return cached, nil
		}
	}

	var (
		s   *Summary
		err error
	)
	if c.http == nil {
		s = simulate(symbol)
	} else {
		s, err = c.fetch(ctx, symbol)
		if err != nil {
			// Serve stale on upstream failure rather than erroring out.
			if cached != nil {
				return cached, nil
			}
			return nil, err
		}
	}

	c.cache.Set(symbol, s)
	return s, nil
}

// Refresh re-fetches a set of symbols, returning how many succeeded.
func (c *Client) Refresh(ctx context.Context, symbols []string) int {
	ok := 0
	for _, sym := range symbols {
		c.cache.Delete(sym)
		if _, err := c.Get(ctx, sym); err == nil {
			ok++
		}
	}
	return ok
}

// Prune evicts cached symbols nobody trades anymore, returning how many were
// dropped.
func (c *Client) Prune(active []string) int {
	return c.cache.Keep(active)
}

// CacheStats exposes cache occupancy for the metrics endpoint.
func (c *Client) CacheStats() cache.Stats {
	return c.cache.Snapshot()
}

func (c *Client) fetch(ctx context.Context, symbol string) (*Summary, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		Get("/analysis")
	if err != nil {
		return nil, fmt.Errorf("fetch analysis for %s: %w", symbol, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("analysis API error %d: %s", resp.StatusCode(), resp.String())
	}

	var s Summary
	if err := json.Unmarshal(resp.Body(), &s); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	s.Symbol = symbol
	s.UpdatedAt = time.Now()
	return &s, nil
}

// simulate derives a stable pseudo-analysis from the symbol name so repeated
// calls in a session agree with each other.
func simulate(symbol string) *Summary {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	seed := h.Sum32()

	buy := int(seed % 12)
	sell := int((seed / 12) % 12)
	neutral := int((seed / 144) % 6)
	total := buy + sell + neutral
	if total == 0 {
		neutral, total = 1, 1
	}

	score := float64(buy-sell) / float64(total)
	rec := RecommendNeutral
	switch {
	case score >= 0.5:
		rec = RecommendStrongBuy
	case score >= 0.1:
		rec = RecommendBuy
	case score <= -0.5:
		rec = RecommendStrongSell
	case score <= -0.1:
		rec = RecommendSell
	}

	return &Summary{
		Symbol:         symbol,
		Recommendation: rec,
		Score:          score,
		BuySignals:     buy,
		SellSignals:    sell,
		NeutralSignals: neutral,
		UpdatedAt:      time.Now(),
		Simulated:      true,
	}
}
