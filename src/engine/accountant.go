package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"newsbacktest/src/data"
	"newsbacktest/src/model"
)

// DailySnapshot is one day's reconciled PnL view plus the per-symbol
// position rows to persist. Totals are recomputed from the ledger every
// tick, never accumulated incrementally.
type DailySnapshot struct {
	Date          time.Time
	NewTradePnL   decimal.Decimal
	PositionalPnL decimal.Decimal
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	CashBalance   decimal.Decimal
	Positions     []model.PositionRecord
}

// Accountant is a read-only projection over the ledger and current prices.
// It never mutates ledger state.
type Accountant struct {
	provider *data.Provider
	refPrice string
}

func NewAccountant(provider *data.Provider, refPrice string) *Accountant {
	return &Accountant{provider: provider, refPrice: refPrice}
}

// Snapshot computes the daily PnL split for the given date. prev is the
// previous trading day, used as the mark baseline for carried positions.
//
// NewTradePnL covers positions opened today (entry to today's mark).
// PositionalPnL covers the day-over-day move of everything else, including
// positions that closed today.
func (a *Accountant) Snapshot(date, prev time.Time, ledger *Ledger) DailySnapshot {
	date = model.Day(date)
	snap := DailySnapshot{
		Date:          date,
		NewTradePnL:   decimal.Zero,
		PositionalPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		CashBalance:   ledger.Cash(),
	}

	for _, p := range ledger.OpenPositions() {
		mark := a.mark(p.Symbol, date, p.EntryPrice)
		snap.UnrealizedPnL = snap.UnrealizedPnL.Add(p.UnrealizedPnL(mark))

		if p.EntryDate.Equal(date) {
			snap.NewTradePnL = snap.NewTradePnL.Add(p.UnrealizedPnL(mark))
		} else {
			baseline := a.mark(p.Symbol, prev, p.EntryPrice)
			snap.PositionalPnL = snap.PositionalPnL.Add(
				mark.Sub(baseline).Mul(decimal.NewFromInt(p.Quantity)))
		}

		snap.Positions = append(snap.Positions, model.PositionRecord{
			Date:     date,
			Symbol:   p.Symbol,
			AvgPrice: p.EntryPrice,
			Quantity: p.Quantity,
			Status:   p.Status,
		})
	}

	for _, p := range ledger.ClosedOn(date) {
		snap.RealizedPnL = snap.RealizedPnL.Add(p.RealizedPnL)

		baseline := p.EntryPrice
		if p.EntryDate.Before(date) {
			baseline = a.mark(p.Symbol, prev, p.EntryPrice)
		}
		snap.PositionalPnL = snap.PositionalPnL.Add(
			p.ExitPrice.Sub(baseline).Mul(decimal.NewFromInt(p.Quantity)))

		snap.Positions = append(snap.Positions, model.PositionRecord{
			Date:       date,
			Symbol:     p.Symbol,
			AvgPrice:   p.EntryPrice,
			Quantity:   p.Quantity,
			Status:     p.Status,
			ExitReason: p.ExitReason,
		})
	}

	return snap
}

// mark returns the last known reference price on or before date, falling
// back to the given price when the symbol has no bars at all by then.
func (a *Accountant) mark(symbol string, date time.Time, fallback decimal.Decimal) decimal.Decimal {
	bar, ok := a.provider.LastKnown(symbol, date)
	if !ok {
		return fallback
	}
	return ReferencePrice(bar, a.refPrice)
}
