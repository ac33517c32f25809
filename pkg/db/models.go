package db

import "time"

// Trade side values stored in the trades table.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// User represents an application user.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Account is a tracked trading account with its configured risk limits.
type Account struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	PropFirm       string     `json:"prop_firm"`
	AccountType    string     `json:"account_type"`
	Stage          string     `json:"stage"`
	InitialBalance float64    `json:"initial_balance"`
	CurrentBalance float64    `json:"current_balance"`
	ProfitTarget   float64    `json:"profit_target"`
	DailyLossLimit float64    `json:"daily_loss_limit"`
	MaxLossLimit   float64    `json:"max_loss_limit"`
	MaxDrawdown    float64    `json:"max_drawdown"`
	PricePaid      float64    `json:"price_paid"`
	Leverage       float64    `json:"leverage"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Status         string     `json:"status"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Trade is a closed round-trip trade. ProfitLoss and ROI are derived at write
// time and stored; price edits recompute both.
type Trade struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	AccountID  string     `json:"account_id,omitempty"` // empty means no account attached
	Symbol     string     `json:"symbol"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	EntryDate  time.Time  `json:"entry_date"`
	ExitDate   *time.Time `json:"exit_date,omitempty"`
	Quantity   float64    `json:"quantity"`
	Side       string     `json:"side"`
	ProfitLoss float64    `json:"profit_loss"`
	ROI        float64    `json:"roi"`
	Notes      string     `json:"notes"`
	Emotion    string     `json:"emotion"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DiaryEntry is a free-form journal note, optionally linked to a trade.
type DiaryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion"`
	TradeID   string    `json:"trade_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Insight is a generated rule-to-message observation about a user's trading.
type Insight struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"` // warning | positive
	Message   string    `json:"message"`
	Data      string    `json:"data"` // JSON payload backing the message
	CreatedAt time.Time `json:"created_at"`
}

// UserSettings holds per-user preferences. BrokerAPIKey is stored encrypted.
type UserSettings struct {
	UserID         string    `json:"user_id"`
	TradingStyle   string    `json:"trading_style"`
	RiskPercentage float64   `json:"risk_percentage"`
	DailyLossLimit float64   `json:"daily_loss_limit"`
	TradingHours   string    `json:"trading_hours"`
	BrokerAPIKey   string    `json:"-"`
	KeyVersion     int       `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}
