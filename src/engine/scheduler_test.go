package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	logger "github.com/sirupsen/logrus"

	"newsbacktest/src/config"
	"newsbacktest/src/data"
	"newsbacktest/src/model"
)

type collectSink struct {
	days []DayResult
}

func (c *collectSink) RecordDay(result DayResult) error {
	c.days = append(c.days, result)
	return nil
}

func schedulerConfig() *config.StrategyConfig {
	geq := d("2")
	return &config.StrategyConfig{
		StartingCash:       d("10000"),
		TradeSizeInDollars: d("110"),
		HoldingPeriodDays:  2,
		SignalWindowSize:   2,
		SignalGeqBound:     &geq,
		MinAvgDailyVolume:  d("1000"),
		MaxAvgDailyVolume:  d("1000000000000"),
		ShortAdjFraction:   d("0.5"),
		ReferencePrice:     config.ReferenceClose,
		ScoreMap:           config.DefaultScoreMap(),
	}
}

// Mon Jan 4 through Fri Jan 8 2016, all trading days.
func week() (start, end time.Time) {
	return day(2016, time.January, 4), day(2016, time.January, 8)
}

func quietLog() *logger.Entry {
	l := logger.New()
	l.SetLevel(logger.PanicLevel)
	return logger.NewEntry(l)
}

func TestSchedulerRun_HoldingPeriodRoundTrip(t *testing.T) {
	start, end := week()
	closes := []string{"10", "11", "12", "13", "14"}
	var bars []model.Bar
	for i, c := range closes {
		bars = append(bars, bar("AAA", start.AddDate(0, 0, i), c, "1000000"))
	}
	signals := []model.Signal{{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")}}

	sink := &collectSink{}
	s := NewScheduler(schedulerConfig(), data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.days) != 5 {
		t.Fatalf("expected 5 trading days, got %d", len(sink.days))
	}

	// Tue: entry at 11, 10 shares, 110 reserved.
	tue := sink.days[1].Snapshot
	if !tue.CashBalance.Equal(d("9890")) {
		t.Fatalf("expected 9890 cash after entry, got %s", tue.CashBalance.String())
	}
	if !tue.NewTradePnL.IsZero() {
		t.Fatalf("expected zero entry-day PnL at the entry price, got %s", tue.NewTradePnL.String())
	}
	if len(tue.Positions) != 1 || tue.Positions[0].Status != model.PositionStatusOpen {
		t.Fatalf("unexpected Tuesday positions: %+v", tue.Positions)
	}

	// Wed: carried, (12-11)*10.
	wed := sink.days[2].Snapshot
	if !wed.PositionalPnL.Equal(d("10")) || !wed.UnrealizedPnL.Equal(d("10")) {
		t.Fatalf("unexpected Wednesday PnL: %+v", wed)
	}

	// Thu: second trading day after entry, the 2-day clock expires at 13.
	thu := sink.days[3].Snapshot
	if !thu.RealizedPnL.Equal(d("20")) {
		t.Fatalf("expected 20 realized on expiry, got %s", thu.RealizedPnL.String())
	}
	if !thu.CashBalance.Equal(d("10020")) {
		t.Fatalf("expected 10020 cash after expiry, got %s", thu.CashBalance.String())
	}
	if len(thu.Positions) != 1 || thu.Positions[0].ExitReason != model.ExitReasonExpired {
		t.Fatalf("unexpected Thursday positions: %+v", thu.Positions)
	}

	// Fri: flat.
	fri := sink.days[4].Snapshot
	if len(fri.Positions) != 0 {
		t.Fatalf("expected a flat Friday, got %+v", fri.Positions)
	}
	if !fri.CashBalance.Equal(d("10020")) {
		t.Fatalf("expected cash to carry, got %s", fri.CashBalance.String())
	}
}

func TestSchedulerRun_BlacklistedSymbolNeverTrades(t *testing.T) {
	start, end := week()
	closes := []string{"10", "11", "12", "13", "14"}
	var bars []model.Bar
	for i, c := range closes {
		bars = append(bars, bar("AAA", start.AddDate(0, 0, i), c, "1000000"))
	}
	signals := []model.Signal{{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")}}

	cfg := schedulerConfig()
	cfg.BlacklistedSymbols = []string{"AAA"}

	sink := &collectSink{}
	s := NewScheduler(cfg, data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, dayResult := range sink.days {
		if len(dayResult.Snapshot.Positions) != 0 {
			t.Fatalf("blacklisted symbol must never trade: %+v", dayResult.Snapshot.Positions)
		}
		if len(dayResult.Annotations) != 0 {
			t.Fatalf("blacklist drops are silent, got %v", dayResult.Annotations)
		}
		if !dayResult.Snapshot.CashBalance.Equal(d("10000")) {
			t.Fatalf("cash must not move, got %s", dayResult.Snapshot.CashBalance.String())
		}
	}
}

func TestSchedulerRun_DelistingForcesClose(t *testing.T) {
	start, end := week()
	bars := []model.Bar{
		bar("BBB", start, "20", "1000000"),
		bar("BBB", start.AddDate(0, 0, 1), "21", "1000000"),
	}
	signals := []model.Signal{{Symbol: "BBB", Date: day(2016, time.January, 5), Score: d("3")}}

	cfg := schedulerConfig()
	cfg.TradeSizeInDollars = d("105")

	sink := &collectSink{}
	s := NewScheduler(cfg, data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Wed has no BBB bar and none ever after: forced close at the last
	// known price, flat PnL.
	wed := sink.days[2]
	if len(wed.Snapshot.Positions) != 1 {
		t.Fatalf("expected the forced close row, got %+v", wed.Snapshot.Positions)
	}
	if wed.Snapshot.Positions[0].ExitReason != model.ExitReasonDelisted {
		t.Fatalf("expected a delisted exit, got %q", wed.Snapshot.Positions[0].ExitReason)
	}
	if !wed.Snapshot.RealizedPnL.IsZero() {
		t.Fatalf("expected flat realized PnL, got %s", wed.Snapshot.RealizedPnL.String())
	}
	if !wed.Snapshot.CashBalance.Equal(d("10000")) {
		t.Fatalf("expected the reservation released in full, got %s", wed.Snapshot.CashBalance.String())
	}

	found := false
	for _, note := range wed.Annotations {
		if strings.Contains(note, "delisted") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a delisting annotation, got %v", wed.Annotations)
	}
}

func TestSchedulerRun_OpenSlotSkipsSecondSignal(t *testing.T) {
	start, end := week()
	closes := []string{"10", "11", "12", "13", "14"}
	var bars []model.Bar
	for i, c := range closes {
		bars = append(bars, bar("AAA", start.AddDate(0, 0, i), c, "1000000"))
	}
	signals := []model.Signal{
		{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")},
		{Symbol: "AAA", Date: day(2016, time.January, 6), Score: d("3")},
	}

	sink := &collectSink{}
	s := NewScheduler(schedulerConfig(), data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wed := sink.days[2]
	if len(wed.Snapshot.Positions) != 1 {
		t.Fatalf("expected only the original position, got %+v", wed.Snapshot.Positions)
	}
	if len(wed.Annotations) != 1 || !strings.Contains(wed.Annotations[0], "open position exists") {
		t.Fatalf("expected an open-slot annotation, got %v", wed.Annotations)
	}
}

func TestSchedulerRun_ExitBeforeEntrySameSymbolSameDay(t *testing.T) {
	start, end := week()
	closes := []string{"10", "11", "12", "13", "14"}
	var bars []model.Bar
	for i, c := range closes {
		bars = append(bars, bar("AAA", start.AddDate(0, 0, i), c, "1000000"))
	}
	// Second signal lands on Thursday, the day the first position expires.
	signals := []model.Signal{
		{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")},
		{Symbol: "AAA", Date: day(2016, time.January, 7), Score: d("3")},
	}

	cfg := schedulerConfig()
	cfg.TradeSizeInDollars = d("130")

	sink := &collectSink{}
	s := NewScheduler(cfg, data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	thu := sink.days[3]
	if len(thu.Annotations) != 0 {
		t.Fatalf("re-entry after a same-day exit must not be skipped, got %v", thu.Annotations)
	}
	// One closed row and one freshly opened row.
	var open, closed int
	for _, rec := range thu.Snapshot.Positions {
		switch rec.Status {
		case model.PositionStatusOpen:
			open++
		case model.PositionStatusClosed:
			closed++
		}
	}
	if open != 1 || closed != 1 {
		t.Fatalf("expected one open and one closed row, got %+v", thu.Snapshot.Positions)
	}
}

func TestSchedulerRun_InsufficientCashAnnotates(t *testing.T) {
	start, end := week()
	var bars []model.Bar
	for i, c := range []string{"60", "60", "60", "60", "60"} {
		bars = append(bars, bar("AAA", start.AddDate(0, 0, i), c, "1000000"))
	}
	signals := []model.Signal{{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")}}

	cfg := schedulerConfig()
	cfg.StartingCash = d("50")
	cfg.TradeSizeInDollars = d("50")

	sink := &collectSink{}
	s := NewScheduler(cfg, data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("a dropped entry must not abort the run, got %v", err)
	}

	tue := sink.days[1]
	if len(tue.Annotations) != 1 || !strings.Contains(tue.Annotations[0], "insufficient cash") {
		t.Fatalf("expected an insufficient-cash annotation, got %v", tue.Annotations)
	}
	if len(tue.Snapshot.Positions) != 0 {
		t.Fatalf("expected no position, got %+v", tue.Snapshot.Positions)
	}
}

func TestSchedulerRun_CanceledBetweenDays(t *testing.T) {
	start, end := week()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(schedulerConfig(), data.NewProvider(nil, nil), quietLog())
	if err := s.Run(ctx, start, end, &collectSink{}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func hedgedConfig() *config.StrategyConfig {
	cfg := schedulerConfig()
	cfg.DoHedge = true
	cfg.IndexSymbol = "IBB"
	cfg.TradeSizeInDollars = d("500")
	return cfg
}

// Window history where the symbol's returns are exactly twice the index
// returns, so the hedge leg sizes at beta 2.
func hedgedHistory(start time.Time) []model.Bar {
	return []model.Bar{
		bar("AAA", start, "100", "1000000"),
		bar("AAA", start.AddDate(0, 0, 1), "120", "1000000"),
		bar("AAA", start.AddDate(0, 0, 2), "96", "1000000"),
		bar("IBB", start, "100", "1000000"),
		bar("IBB", start.AddDate(0, 0, 1), "110", "1000000"),
		bar("IBB", start.AddDate(0, 0, 2), "99", "1000000"),
	}
}

func TestSchedulerRun_HedgedRoundTrip(t *testing.T) {
	start := day(2016, time.January, 4)
	end := day(2016, time.January, 11)
	bars := append(hedgedHistory(start),
		bar("AAA", day(2016, time.January, 7), "50", "1000000"),
		bar("AAA", day(2016, time.January, 8), "51", "1000000"),
		bar("AAA", day(2016, time.January, 11), "52", "1000000"),
		bar("IBB", day(2016, time.January, 7), "100", "1000000"),
		bar("IBB", day(2016, time.January, 8), "100", "1000000"),
		bar("IBB", day(2016, time.January, 11), "98", "1000000"),
	)
	signals := []model.Signal{{Symbol: "AAA", Date: day(2016, time.January, 7), Score: d("3")}}

	sink := &collectSink{}
	s := NewScheduler(hedgedConfig(), data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.days) != 6 {
		t.Fatalf("expected 6 trading days, got %d", len(sink.days))
	}

	// Thu: 500 primary at 50 plus a beta-2 hedge of 1000 at 100, both reserved.
	thu := sink.days[3].Snapshot
	if !thu.CashBalance.Equal(d("8500")) {
		t.Fatalf("expected 8500 cash after both legs reserve, got %s", thu.CashBalance.String())
	}
	if len(thu.Positions) != 2 {
		t.Fatalf("expected primary and hedge open Thursday, got %+v", thu.Positions)
	}

	closed := s.Ledger().ClosedPositions()
	if len(closed) != 2 {
		t.Fatalf("expected both legs closed, got %d", len(closed))
	}
	var primary, hedge *model.Position
	for _, p := range closed {
		switch p.Symbol {
		case "AAA":
			primary = p
		case "IBB":
			hedge = p
		}
	}
	if primary == nil || hedge == nil {
		t.Fatalf("missing a closed leg: %+v", closed)
	}
	if primary.ExitReason != model.ExitReasonExpired {
		t.Fatalf("expected the primary to expire, got %q", primary.ExitReason)
	}
	if hedge.ExitReason != model.ExitReasonPrimaryClosed {
		t.Fatalf("expected the hedge to close with its primary, got %q", hedge.ExitReason)
	}
	exit := day(2016, time.January, 11)
	if !primary.ExitDate.Equal(exit) || !hedge.ExitDate.Equal(exit) {
		t.Fatalf("expected both legs to exit %s, got %v and %v", exit, primary.ExitDate, hedge.ExitDate)
	}
	if hedge.Quantity != -10 {
		t.Fatalf("expected a -10 share hedge, got %d", hedge.Quantity)
	}

	// 20 realized on each leg, both reservations released.
	final := sink.days[5].Snapshot
	if !final.CashBalance.Equal(d("10040")) {
		t.Fatalf("expected 10040 final cash, got %s", final.CashBalance.String())
	}
	if len(s.Ledger().OpenPositions()) != 0 {
		t.Fatal("expected no open positions after both legs closed")
	}
}

func TestSchedulerRun_DelistedPrimaryClosesHedge(t *testing.T) {
	start, end := week()
	// AAA's last bar is Thursday's entry bar; the index keeps trading.
	bars := append(hedgedHistory(start),
		bar("AAA", day(2016, time.January, 7), "50", "1000000"),
		bar("IBB", day(2016, time.January, 7), "100", "1000000"),
		bar("IBB", day(2016, time.January, 8), "100", "1000000"),
	)
	signals := []model.Signal{{Symbol: "AAA", Date: day(2016, time.January, 7), Score: d("3")}}

	sink := &collectSink{}
	s := NewScheduler(hedgedConfig(), data.NewProvider(bars, signals), quietLog())
	if err := s.Run(context.Background(), start, end, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	closed := s.Ledger().ClosedPositions()
	if len(closed) != 2 {
		t.Fatalf("expected both legs closed, got %d", len(closed))
	}
	var primary, hedge *model.Position
	for _, p := range closed {
		switch p.Symbol {
		case "AAA":
			primary = p
		case "IBB":
			hedge = p
		}
	}
	if primary == nil || hedge == nil {
		t.Fatalf("missing a closed leg: %+v", closed)
	}
	if primary.ExitReason != model.ExitReasonDelisted {
		t.Fatalf("expected a delisted primary, got %q", primary.ExitReason)
	}
	if hedge.ExitReason != model.ExitReasonPrimaryClosed {
		t.Fatalf("expected the hedge to record primary_closed, got %q", hedge.ExitReason)
	}
	fri := day(2016, time.January, 8)
	if !primary.ExitDate.Equal(fri) || !hedge.ExitDate.Equal(fri) {
		t.Fatalf("expected both legs to exit %s, got %v and %v", fri, primary.ExitDate, hedge.ExitDate)
	}

	// Both legs flat at their entry prices, so cash fully recovers.
	final := sink.days[4].Snapshot
	if !final.CashBalance.Equal(d("10000")) {
		t.Fatalf("expected cash back to 10000, got %s", final.CashBalance.String())
	}
	if !strings.Contains(strings.Join(sink.days[4].Annotations, "; "), "delisted") {
		t.Fatalf("expected a delisting annotation, got %v", sink.days[4].Annotations)
	}
}

func TestSchedulerRun_ReplayProducesIdenticalOutput(t *testing.T) {
	start, end := week()
	var bars []model.Bar
	for i := 0; i < 5; i++ {
		bars = append(bars,
			bar("AAA", start.AddDate(0, 0, i), []string{"10", "11", "12", "13", "14"}[i], "1000000"),
			bar("BBB", start.AddDate(0, 0, i), []string{"20", "21", "22", "23", "24"}[i], "1000000"),
		)
	}
	signals := []model.Signal{
		{Symbol: "AAA", Date: day(2016, time.January, 5), Score: d("3")},
		{Symbol: "BBB", Date: day(2016, time.January, 6), Score: d("2")},
	}

	var outputs [][]DayResult
	for i := 0; i < 2; i++ {
		sink := &collectSink{}
		s := NewScheduler(schedulerConfig(), data.NewProvider(bars, signals), quietLog())
		if err := s.Run(context.Background(), start, end, sink); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
		outputs = append(outputs, sink.days)
	}

	if len(outputs[0]) != len(outputs[1]) {
		t.Fatalf("replay produced %d days vs %d", len(outputs[0]), len(outputs[1]))
	}
	for i := range outputs[0] {
		first := fmt.Sprintf("%+v", outputs[0][i])
		second := fmt.Sprintf("%+v", outputs[1][i])
		if first != second {
			t.Fatalf("replay diverged on day %d:\n%s\nvs\n%s", i, first, second)
		}
	}
}
