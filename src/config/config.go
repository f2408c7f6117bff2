package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"newsbacktest/src/model"
)

// Reference price the scheduler uses for entries, exits, and daily marks.
const (
	ReferenceClose = "close"
	ReferenceOpen  = "open"
)

// ConfigurationError is fatal at startup: the backtest is unrunnable.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Detail)
}

// StrategyConfig is the full strategy parameterization, loaded from a JSON
// file. Unknown keys are rejected; every recognized option is validated
// eagerly before the first trading day.
type StrategyConfig struct {
	Name                 string                              `json:"name"`
	StartingCash         decimal.Decimal                     `json:"starting_cash"`
	TradeSizeInDollars   decimal.Decimal                     `json:"trade_size_in_dollars"`
	HoldingPeriodDays    int                                 `json:"holding_period_days"`
	SignalWindowSize     int                                 `json:"signal_window_size"`
	SignalGeqBound       *decimal.Decimal                    `json:"signal_geq_bound,omitempty"`
	SignalLeqBound       *decimal.Decimal                    `json:"signal_leq_bound,omitempty"`
	MinAvgDailyVolume    decimal.Decimal                     `json:"min_avg_daily_volume"`
	MaxAvgDailyVolume    decimal.Decimal                     `json:"max_avg_daily_volume"`
	BlacklistedSymbols   []string                            `json:"blacklisted_symbols"`
	DoShort              bool                                `json:"do_short"`
	ShortAdjFraction     decimal.Decimal                     `json:"short_adj_fraction"`
	DoHedge              bool                                `json:"do_hedge"`
	IndexSymbol          string                              `json:"index_symbol"`
	DoScaleTradeToETFVol bool                                `json:"do_scale_trade_to_etf_vol"`
	DoIntraday           bool                                `json:"do_intraday"`
	AllowStacking        bool                                `json:"allow_stacking"`
	ReferencePrice       string                              `json:"reference_price"`
	ScoreMap             map[model.Sentiment]decimal.Decimal `json:"score_map,omitempty"`
}

// DefaultScoreMap maps the classifier categories onto the bounded score
// range. N/A never produces a signal and is deliberately absent.
func DefaultScoreMap() map[model.Sentiment]decimal.Decimal {
	return map[model.Sentiment]decimal.Decimal{
		model.SentimentExtremelyPositive: decimal.NewFromInt(3),
		model.SentimentVeryPositive:      decimal.NewFromInt(2),
		model.SentimentPositive:          decimal.NewFromInt(1),
		model.SentimentNeutral:           decimal.NewFromInt(0),
		model.SentimentNegative:          decimal.NewFromInt(-3),
	}
}

// Load reads and validates a strategy config file.
func Load(path string) (*StrategyConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open strategy config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var cfg StrategyConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigurationError{Field: path, Detail: err.Error()}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills the optional knobs the way the reference strategy ran.
func (c *StrategyConfig) ApplyDefaults() {
	if c.ReferencePrice == "" {
		c.ReferencePrice = ReferenceClose
	}
	if c.ShortAdjFraction.IsZero() {
		c.ShortAdjFraction = decimal.NewFromFloat(0.5)
	}
	if c.SignalWindowSize == 0 {
		c.SignalWindowSize = 10
	}
	if len(c.ScoreMap) == 0 {
		c.ScoreMap = DefaultScoreMap()
	}
}

// Validate enforces every startup invariant. The first violation found is
// returned as a ConfigurationError.
func (c *StrategyConfig) Validate() error {
	if !c.StartingCash.IsPositive() {
		return &ConfigurationError{Field: "starting_cash", Detail: "must be > 0"}
	}
	if !c.TradeSizeInDollars.IsPositive() {
		return &ConfigurationError{Field: "trade_size_in_dollars", Detail: "must be > 0"}
	}
	if c.HoldingPeriodDays < 1 {
		return &ConfigurationError{Field: "holding_period_days", Detail: "must be >= 1 trading day"}
	}
	if c.SignalWindowSize < 2 {
		return &ConfigurationError{Field: "signal_window_size", Detail: "must be >= 2"}
	}
	if c.SignalGeqBound == nil && c.SignalLeqBound == nil {
		return &ConfigurationError{Field: "signal_geq_bound", Detail: "at least one signal bound must be set"}
	}
	if c.SignalGeqBound != nil && c.SignalLeqBound != nil &&
		c.SignalLeqBound.GreaterThanOrEqual(*c.SignalGeqBound) {
		return &ConfigurationError{Field: "signal_leq_bound", Detail: "must be below signal_geq_bound"}
	}
	if c.MinAvgDailyVolume.GreaterThan(c.MaxAvgDailyVolume) {
		return &ConfigurationError{Field: "min_avg_daily_volume", Detail: "must not exceed max_avg_daily_volume"}
	}
	if c.MinAvgDailyVolume.IsNegative() {
		return &ConfigurationError{Field: "min_avg_daily_volume", Detail: "must be >= 0"}
	}
	if c.DoShort && !c.ShortAdjFraction.IsPositive() {
		return &ConfigurationError{Field: "short_adj_fraction", Detail: "must be > 0 when do_short is enabled"}
	}
	if (c.DoHedge || c.DoScaleTradeToETFVol) && c.IndexSymbol == "" {
		return &ConfigurationError{Field: "index_symbol", Detail: "required when do_hedge or do_scale_trade_to_etf_vol is enabled"}
	}
	switch c.ReferencePrice {
	case ReferenceClose, ReferenceOpen:
	default:
		return &ConfigurationError{Field: "reference_price", Detail: "must be \"close\" or \"open\""}
	}
	for sentiment := range c.ScoreMap {
		if !sentiment.Valid() || sentiment == model.SentimentNA {
			return &ConfigurationError{Field: "score_map", Detail: fmt.Sprintf("unknown sentiment category %q", sentiment)}
		}
	}
	return nil
}

// Blacklisted reports whether a symbol is excluded from primary entries.
func (c *StrategyConfig) Blacklisted(symbol string) bool {
	for _, s := range c.BlacklistedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}
