package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLScopePortfolio is the Scope value for portfolio-level records;
// symbol-level records carry the symbol itself.
const PnLScopePortfolio = "portfolio"

// PnLRecord is one append-only daily PnL row. NewTradePnL covers positions
// opened today, PositionalPnL the day-over-day move of carried positions
// (including today's closes), mirroring the NewTrade/Positional split of the
// result rows downstream tooling consumes.
type PnLRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	RunID         string          `gorm:"type:varchar(36);not null;index" json:"run_id"`
	Date          time.Time       `gorm:"not null;index" json:"date"`
	Scope         string          `gorm:"type:varchar(20);not null" json:"scope"`
	NewTradePnL   decimal.Decimal `gorm:"type:double precision;not null" json:"new_trade_pnl"`
	PositionalPnL decimal.Decimal `gorm:"type:double precision;not null" json:"positional_pnl"`
	RealizedPnL   decimal.Decimal `gorm:"type:double precision;not null" json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `gorm:"type:double precision;not null" json:"unrealized_pnl"`
	CashBalance   decimal.Decimal `gorm:"type:double precision;not null" json:"cash_balance"`
	Annotations   string          `gorm:"type:text" json:"annotations,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (PnLRecord) TableName() string {
	return "pnl_records"
}
