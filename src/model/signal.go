package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a normalized, per-(symbol, date) sentiment score. At most one
// signal exists per pair; duplicate releases on the same day resolve
// last-write-wins in arrival order.
type Signal struct {
	Symbol   string
	Date     time.Time
	Score    decimal.Decimal
	Headline string
}
