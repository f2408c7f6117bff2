package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// Exit reasons recorded on a close. Expired is the normal holding-period
// exit; delisted and missing_bar are forced closes from data-quality
// conditions. A hedge leg always records primary_closed, since its lifecycle
// is bound to the primary regardless of why the primary closed.
const (
	ExitReasonExpired       = "expired"
	ExitReasonDelisted      = "delisted"
	ExitReasonMissingBar    = "missing_bar"
	ExitReasonPrimaryClosed = "primary_closed"
)

// Position is one open or closed position in the ledger. Quantity is signed:
// positive long, negative short. DollarSize is the absolute cash reservation
// taken at entry and released at close.
type Position struct {
	Symbol          string
	EntryDate       time.Time
	EntryPrice      decimal.Decimal
	Quantity        int64
	DollarSize      decimal.Decimal
	HoldingDaysLeft int
	Status          string

	// Set when the position closes.
	ExitDate    *time.Time
	ExitPrice   *decimal.Decimal
	ExitReason  string
	RealizedPnL decimal.Decimal
}

// Long reports the position direction.
func (p *Position) Long() bool { return p.Quantity > 0 }

// UnrealizedPnL marks the position against the given price.
func (p *Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	return mark.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))
}

// HedgeLink pairs a primary position with its offsetting hedge leg in the
// index ETF. The hedge lifecycle is bound to the primary: both legs close in
// the same scheduler tick.
type HedgeLink struct {
	PrimarySymbol string
	Hedge         *Position
	Ratio         decimal.Decimal
}

// PositionRecord is the persisted daily view of one position.
type PositionRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	RunID      string          `gorm:"type:varchar(36);not null;index" json:"run_id"`
	Date       time.Time       `gorm:"not null;index" json:"date"`
	Symbol     string          `gorm:"type:varchar(20);not null" json:"symbol"`
	AvgPrice   decimal.Decimal `gorm:"type:double precision;not null" json:"avg_price"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	Status     string          `gorm:"size:20;not null" json:"status"`
	ExitReason string          `gorm:"size:20" json:"exit_reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (PositionRecord) TableName() string {
	return "position_records"
}
