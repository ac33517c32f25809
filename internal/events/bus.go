// Package events carries in-process notifications from the engine to
// listeners (the websocket feed, the monitor).
package events

import (
	"sync"
)

// Topic enumerates the notification streams.
type Topic string

const (
	TopicAccountStatusChanged Topic = "account.status_changed"
	TopicAccountBreachWarning Topic = "account.breach_warning"
	TopicTradeRecorded        Topic = "trade.recorded"
	TopicInsightsGenerated    Topic = "insights.generated"
)

// StatusChange is the payload published on TopicAccountStatusChanged.
type StatusChange struct {
	UserID      string  `json:"user_id"`
	AccountID   string  `json:"account_id"`
	AccountName string  `json:"account_name"`
	OldStatus   string  `json:"old_status"`
	NewStatus   string  `json:"new_status"`
	Drawdown    float64 `json:"drawdown"`
	DailyPnL    float64 `json:"daily_pnl"`
	TotalPnL    float64 `json:"total_pnl"`
}

// TradeRecorded is the payload published on TopicTradeRecorded.
type TradeRecorded struct {
	UserID     string  `json:"user_id"`
	AccountID  string  `json:"account_id,omitempty"`
	TradeID    string  `json:"trade_id"`
	Symbol     string  `json:"symbol"`
	ProfitLoss float64 `json:"profit_loss"`
}

// Bus is a lightweight pub/sub broker using channels.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan any
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan any)}
}

// Subscribe registers a listener for a topic and returns the channel and an
// unsubscribe function.
func (b *Bus) Subscribe(t Topic, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[t] = append(b.subs[t], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[t]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the payload out to subscribers without blocking.
func (b *Bus) Publish(t Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[t] {
		select {
		case ch <- payload:
		default:
			// drop if subscriber is slow; keep broker non-blocking
		}
	}
}
