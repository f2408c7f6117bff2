package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"newsbacktest/src/model"
)

// Ledger is the authoritative in-memory state of the account and every open
// and closed position. It is owned exclusively by the scheduler for the
// duration of a run; all mutation goes through Open, Advance, and Close.
type Ledger struct {
	startingCash  decimal.Decimal
	cash          decimal.Decimal
	allowStacking bool

	primaries map[string][]*model.Position
	hedges    map[*model.Position]*model.HedgeLink
	closed    []*model.Position
}

func NewLedger(startingCash decimal.Decimal, allowStacking bool) *Ledger {
	return &Ledger{
		startingCash:  startingCash,
		cash:          startingCash,
		allowStacking: allowStacking,
		primaries:     make(map[string][]*model.Position),
		hedges:        make(map[*model.Position]*model.HedgeLink),
	}
}

func (l *Ledger) Cash() decimal.Decimal         { return l.cash }
func (l *Ledger) StartingCash() decimal.Decimal { return l.startingCash }

// HasOpen reports whether the symbol holds an OPEN primary position. Hedge
// legs live outside the per-symbol slots: their lifecycle belongs to their
// primary, so they never block a primary entry.
func (l *Ledger) HasOpen(symbol string) bool {
	return len(l.primaries[symbol]) > 0
}

// AvailableCash is cash not reserved by open positions. Reservations are
// taken at Open and released at Close, so cash itself is the free amount.
func (l *Ledger) AvailableCash() decimal.Decimal { return l.cash }

// ReservedDollars sums the dollar size of every open position, hedge legs
// included.
func (l *Ledger) ReservedDollars() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range l.OpenPositions() {
		sum = sum.Add(p.DollarSize)
	}
	return sum
}

// OpenPositions returns every open position (primaries and hedge legs) in a
// stable (symbol, entry date) order.
func (l *Ledger) OpenPositions() []*model.Position {
	var out []*model.Position
	for _, slot := range l.primaries {
		out = append(out, slot...)
	}
	for _, link := range l.hedges {
		out = append(out, link.Hedge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].EntryDate.Before(out[j].EntryDate)
	})
	return out
}

// ClosedPositions returns the append-only closed history.
func (l *Ledger) ClosedPositions() []*model.Position { return l.closed }

// ClosedOn returns positions whose close committed on the given date.
func (l *Ledger) ClosedOn(date time.Time) []*model.Position {
	date = model.Day(date)
	var out []*model.Position
	for _, p := range l.closed {
		if p.ExitDate != nil && p.ExitDate.Equal(date) {
			out = append(out, p)
		}
	}
	return out
}

// HedgeFor returns the hedge link bound to the given primary, if any.
func (l *Ledger) HedgeFor(primary *model.Position) (*model.HedgeLink, bool) {
	link, ok := l.hedges[primary]
	return link, ok
}

// Open commits a sized entry, reserving cash for the primary and its
// optional hedge leg atomically. The symbol slot rule and the cash floor are
// both enforced here even though the sizer checks first: the ledger is the
// authority.
func (l *Ledger) Open(p *model.Position, hedge *model.Position, ratio decimal.Decimal) error {
	if l.HasOpen(p.Symbol) && !l.allowStacking {
		return &SizingError{Symbol: p.Symbol, Err: ErrOpenPositionExists}
	}

	reservation := p.DollarSize
	if hedge != nil {
		reservation = reservation.Add(hedge.DollarSize)
	}
	if reservation.GreaterThan(l.cash) {
		return &SizingError{Symbol: p.Symbol, Err: ErrInsufficientCash}
	}

	l.cash = l.cash.Sub(reservation)
	p.Status = model.PositionStatusOpen
	l.primaries[p.Symbol] = append(l.primaries[p.Symbol], p)

	if hedge != nil {
		hedge.Status = model.PositionStatusOpen
		l.hedges[p] = &model.HedgeLink{
			PrimarySymbol: p.Symbol,
			Hedge:         hedge,
			Ratio:         ratio,
		}
	}
	return nil
}

// Advance decrements every open position's holding clock by one trading day
// and returns the primaries that have reached zero, in stable order. The
// clock counts trading days elapsed, not bars seen: a symbol with a data gap
// still ages.
func (l *Ledger) Advance() []*model.Position {
	var expired []*model.Position
	for _, p := range l.OpenPositions() {
		p.HoldingDaysLeft--
	}
	for _, slot := range l.primaries {
		for _, p := range slot {
			if p.HoldingDaysLeft <= 0 {
				expired = append(expired, p)
			}
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].Symbol != expired[j].Symbol {
			return expired[i].Symbol < expired[j].Symbol
		}
		return expired[i].EntryDate.Before(expired[j].EntryDate)
	})
	return expired
}

// Close commits exactly one close event: realized PnL is credited, the cash
// reservation released, and the position moved to closed history. A second
// close of the same position is an InvariantViolation - the status guard
// keeps cash from ever being double-credited, and the attempt itself means
// the scheduler is corrupted.
func (l *Ledger) Close(p *model.Position, exitDate time.Time, exitPrice decimal.Decimal, reason string) error {
	if p.Status == model.PositionStatusClosed {
		return &InvariantViolation{
			Date:   exitDate,
			Symbol: p.Symbol,
			Detail: "close of an already-closed position",
		}
	}

	exitDate = model.Day(exitDate)
	realized := exitPrice.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))

	p.Status = model.PositionStatusClosed
	p.ExitDate = &exitDate
	p.ExitPrice = &exitPrice
	p.ExitReason = reason
	p.RealizedPnL = realized

	l.cash = l.cash.Add(p.DollarSize).Add(realized)
	l.removeOpen(p)
	l.closed = append(l.closed, p)

	if l.cash.IsNegative() {
		return &InvariantViolation{
			Date:   exitDate,
			Symbol: p.Symbol,
			Detail: "negative cash after committed close",
		}
	}
	return nil
}

func (l *Ledger) removeOpen(p *model.Position) {
	slot := l.primaries[p.Symbol]
	for i, q := range slot {
		if q == p {
			l.primaries[p.Symbol] = append(slot[:i], slot[i+1:]...)
			if len(l.primaries[p.Symbol]) == 0 {
				delete(l.primaries, p.Symbol)
			}
			return
		}
	}
	// Not a primary: detach it from whichever hedge link holds it.
	for primary, link := range l.hedges {
		if link.Hedge == p {
			delete(l.hedges, primary)
			return
		}
	}
}
