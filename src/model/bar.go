package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one daily OHLCV row for a symbol. Dates are normalized to
// midnight UTC; (symbol, date) is unique.
type Bar struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Symbol        string          `json:"symbol" gorm:"type:varchar(20);not null;uniqueIndex:ux_daily_bars_symbol_date,priority:1"`
	Date          time.Time       `json:"date"   gorm:"not null;uniqueIndex:ux_daily_bars_symbol_date,priority:2;index:idx_daily_bars_date"`
	Open          decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High          decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low           decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close         decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume        decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
	VWAP          decimal.Decimal `json:"vwap"   gorm:"type:double precision"`
	NTransactions int64           `json:"n_transactions"`
}

func (Bar) TableName() string {
	return "daily_bars"
}

// Day truncates a timestamp to its UTC trading date, the canonical key
// used by the bar and signal tables.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
