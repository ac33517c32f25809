// Package insight turns a user's trading history into rule-based
// observations: warnings on weak statistics, encouragement on strong ones.
package insight

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds configures the rule engine. Zero values fall back to defaults.
type Thresholds struct {
	MinTrades        int     `yaml:"min_trades"`
	LowWinRate       float64 `yaml:"low_win_rate"`
	LowProfitFactor  float64 `yaml:"low_profit_factor"`
	GoodWinRate      float64 `yaml:"good_win_rate"`
	GoodProfitFactor float64 `yaml:"good_profit_factor"`
	LargeLossRatio   float64 `yaml:"large_loss_ratio"`
}

// rulesFile is the top-level YAML structure.
type rulesFile struct {
	Insights Thresholds `yaml:"insights"`
}

// DefaultThresholds returns the built-in rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTrades:        5,
		LowWinRate:       0.45,
		LowProfitFactor:  1.5,
		GoodWinRate:      0.55,
		GoodProfitFactor: 2.0,
		LargeLossRatio:   3.0,
	}
}

// LoadThresholds reads rule thresholds from a YAML file, filling unset
// fields from defaults. A missing path returns pure defaults.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, err
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return t, err
	}

	o := file.Insights
	if o.MinTrades > 0 {
		t.MinTrades = o.MinTrades
	}
	if o.LowWinRate > 0 {
		t.LowWinRate = o.LowWinRate
	}
	if o.LowProfitFactor > 0 {
		t.LowProfitFactor = o.LowProfitFactor
	}
	if o.GoodWinRate > 0 {
		t.GoodWinRate = o.GoodWinRate
	}
	if o.GoodProfitFactor > 0 {
		t.GoodProfitFactor = o.GoodProfitFactor
	}
	if o.LargeLossRatio > 0 {
		t.LargeLossRatio = o.LargeLossRatio
	}
	return t, nil
}
