package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"newsbacktest/src/calendar"
	"newsbacktest/src/config"
	"newsbacktest/src/data"
	"newsbacktest/src/model"
)

// DayResult is one committed trading day: the accountant's snapshot plus the
// structured skip/forced-close annotations accumulated during the tick.
type DayResult struct {
	Snapshot    DailySnapshot
	Annotations []string
}

// Sink receives each committed day. A sink error aborts the run between
// days, leaving the ledger in the last fully committed state.
type Sink interface {
	RecordDay(DayResult) error
}

// Scheduler drives the daily loop. Per trading day, in fixed order: advance
// holding clocks and close expirations, force-close on data-quality signals,
// evaluate entries, snapshot. Symbols are always processed in lexicographic
// order so identical inputs replay to byte-identical output.
type Scheduler struct {
	cfg        *config.StrategyConfig
	provider   *data.Provider
	ledger     *Ledger
	sizer      *Sizer
	accountant *Accountant
	log        *logrus.Entry
}

func NewScheduler(cfg *config.StrategyConfig, provider *data.Provider, log *logrus.Entry) *Scheduler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		cfg:        cfg,
		provider:   provider,
		ledger:     NewLedger(cfg.StartingCash, cfg.AllowStacking),
		sizer:      NewSizer(cfg, provider),
		accountant: NewAccountant(provider, cfg.ReferencePrice),
		log:        log,
	}
}

// Ledger exposes the run's ledger for read-only inspection after Run
// returns.
func (s *Scheduler) Ledger() *Ledger { return s.ledger }

// Run executes the backtest over every trading day in [start, end].
// Cancellation is coarse: the context is only checked between days, because
// each day is atomic.
func (s *Scheduler) Run(ctx context.Context, start, end time.Time, sink Sink) error {
	days := calendar.TradingDays(start, end)
	if len(days) == 0 {
		return &config.ConfigurationError{Field: "start/end", Detail: "no trading days in range"}
	}

	prev := calendar.Previous(days[0])
	for _, day := range days {
		select {
		case <-ctx.Done():
			s.log.WithField("date", day.Format("2006-01-02")).Warn("run canceled between trading days")
			return ctx.Err()
		default:
		}

		result, err := s.processDay(day, prev)
		if err != nil {
			return err
		}
		if err := sink.RecordDay(result); err != nil {
			return fmt.Errorf("record day %s: %w", day.Format("2006-01-02"), err)
		}
		prev = day
	}
	return nil
}

func (s *Scheduler) processDay(day, prev time.Time) (DayResult, error) {
	var annotations []string
	note := func(format string, args ...any) {
		annotations = append(annotations, fmt.Sprintf(format, args...))
	}

	// 1. Advance holding clocks; close positions whose window elapsed.
	// Exits run before entries so a symbol closing today can re-enter today.
	for _, p := range s.ledger.Advance() {
		if err := s.closeWithHedge(p, day, note); err != nil {
			return DayResult{}, err
		}
	}

	// 2. Forced closes: a symbol with no bar today and none ever again is
	// delisted and closes at its last known price.
	for _, p := range s.openPrimaries() {
		if _, ok := s.provider.Bar(p.Symbol, day); ok {
			continue
		}
		if s.provider.HasBarAfter(p.Symbol, day) {
			continue
		}
		if err := s.forceClose(p, day, model.ExitReasonDelisted, note); err != nil {
			return DayResult{}, err
		}
	}

	// 3. Entries from today's signals.
	for _, sig := range s.provider.SignalsOn(day) {
		if err := s.tryEnter(sig, day, note); err != nil {
			return DayResult{}, err
		}
	}

	// 4. Snapshot.
	snap := s.accountant.Snapshot(day, prev, s.ledger)
	return DayResult{Snapshot: snap, Annotations: annotations}, nil
}

func (s *Scheduler) tryEnter(sig model.Signal, day time.Time, note func(string, ...any)) error {
	if s.cfg.Blacklisted(sig.Symbol) {
		return nil
	}
	direction := s.sizer.Direction(sig.Score)
	if direction == 0 {
		return nil
	}
	if s.ledger.HasOpen(sig.Symbol) && !s.cfg.AllowStacking {
		note("skip entry %s: open position exists", sig.Symbol)
		return nil
	}

	bar, ok := s.provider.Bar(sig.Symbol, day)
	if !ok {
		note("skip entry %s: no bar on signal date", sig.Symbol)
		return nil
	}
	entryPrice := ReferencePrice(bar, s.cfg.ReferencePrice)

	sized, err := s.sizer.Size(sig, day, direction, entryPrice, s.ledger.AvailableCash())
	if err != nil {
		if recoverable(err) {
			note("skip entry %s: %v", sig.Symbol, err)
			s.log.WithError(err).WithFields(logrus.Fields{
				"symbol": sig.Symbol,
				"date":   day.Format("2006-01-02"),
			}).Info("entry dropped")
			return nil
		}
		return err
	}

	if err := s.ledger.Open(sized.Primary, sized.Hedge, sized.Ratio); err != nil {
		if recoverable(err) {
			note("skip entry %s: %v", sig.Symbol, err)
			return nil
		}
		return err
	}

	s.log.WithFields(logrus.Fields{
		"symbol":   sig.Symbol,
		"date":     day.Format("2006-01-02"),
		"quantity": sized.Primary.Quantity,
		"dollars":  sized.Primary.DollarSize.String(),
		"hedged":   sized.Hedge != nil,
		"headline": sig.Headline,
	}).Info("position opened")
	return nil
}

// closeWithHedge closes an expired primary and, in the same tick, any hedge
// leg bound to it.
func (s *Scheduler) closeWithHedge(p *model.Position, day time.Time, note func(string, ...any)) error {
	reason := model.ExitReasonExpired
	price, ok := s.exitPrice(p.Symbol, day)
	if !ok {
		return &DataQualityError{Symbol: p.Symbol, Date: day, Detail: "no price ever observed for open position"}
	}
	if _, hasBar := s.provider.Bar(p.Symbol, day); !hasBar {
		reason = model.ExitReasonMissingBar
		note("forced close %s: expired with no bar, using last known price", p.Symbol)
	}

	if err := s.ledger.Close(p, day, price, reason); err != nil {
		return err
	}
	s.logClose(p, day)

	if link, ok := s.ledger.HedgeFor(p); ok {
		hedgePrice, ok := s.exitPrice(link.Hedge.Symbol, day)
		if !ok {
			return &DataQualityError{Symbol: link.Hedge.Symbol, Date: day, Detail: "no price for hedge close"}
		}
		if err := s.ledger.Close(link.Hedge, day, hedgePrice, model.ExitReasonPrimaryClosed); err != nil {
			return err
		}
		s.logClose(link.Hedge, day)
	}
	return nil
}

func (s *Scheduler) forceClose(p *model.Position, day time.Time, reason string, note func(string, ...any)) error {
	price, ok := s.exitPrice(p.Symbol, day)
	if !ok {
		return &DataQualityError{Symbol: p.Symbol, Date: day, Detail: "no price ever observed for open position"}
	}
	note("forced close %s: %s", p.Symbol, reason)

	if err := s.ledger.Close(p, day, price, reason); err != nil {
		return err
	}
	s.logClose(p, day)

	if link, ok := s.ledger.HedgeFor(p); ok {
		hedgePrice, ok := s.exitPrice(link.Hedge.Symbol, day)
		if !ok {
			return &DataQualityError{Symbol: link.Hedge.Symbol, Date: day, Detail: "no price for hedge close"}
		}
		if err := s.ledger.Close(link.Hedge, day, hedgePrice, model.ExitReasonPrimaryClosed); err != nil {
			return err
		}
		s.logClose(link.Hedge, day)
	}
	return nil
}

// exitPrice is today's reference price, or the last known one when today's
// bar is missing.
func (s *Scheduler) exitPrice(symbol string, day time.Time) (price decimal.Decimal, ok bool) {
	if bar, has := s.provider.Bar(symbol, day); has {
		return ReferencePrice(bar, s.cfg.ReferencePrice), true
	}
	bar, has := s.provider.LastKnown(symbol, day)
	if !has {
		return decimal.Zero, false
	}
	return ReferencePrice(bar, s.cfg.ReferencePrice), true
}

// openPrimaries returns open primary positions in stable symbol order,
// excluding hedge legs.
func (s *Scheduler) openPrimaries() []*model.Position {
	var out []*model.Position
	for _, p := range s.ledger.OpenPositions() {
		if s.isPrimary(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Scheduler) isPrimary(p *model.Position) bool {
	for _, q := range s.ledger.primaries[p.Symbol] {
		if q == p {
			return true
		}
	}
	return false
}

func (s *Scheduler) logClose(p *model.Position, day time.Time) {
	s.log.WithFields(logrus.Fields{
		"symbol":   p.Symbol,
		"date":     day.Format("2006-01-02"),
		"quantity": p.Quantity,
		"realized": p.RealizedPnL.String(),
		"reason":   p.ExitReason,
	}).Info("position closed")
}

// recoverable reports whether an error is absorbed at the tick level: sizing
// drops and data-quality skips continue the run, everything else aborts.
func recoverable(err error) bool {
	var sizingErr *SizingError
	var dataErr *DataQualityError
	return errors.As(err, &sizingErr) || errors.As(err, &dataErr)
}
