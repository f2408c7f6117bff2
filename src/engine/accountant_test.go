package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"newsbacktest/src/data"
	"newsbacktest/src/model"
)

func TestAccountantSnapshot_SplitsNewTradeAndPositional(t *testing.T) {
	prev := day(2016, time.January, 5)
	date := day(2016, time.January, 6)

	provider := data.NewProvider([]model.Bar{
		bar("NEW", prev, "98", "1"),
		bar("NEW", date, "105", "1"),
		bar("CAR", prev, "205", "1"),
		bar("CAR", date, "208", "1"),
		bar("CLS", prev, "52", "1"),
		bar("CLS", date, "55", "1"),
	}, nil)

	ledger := NewLedger(d("10000"), false)

	opened := testPosition("NEW", date, "100", 10, 2)
	carried := testPosition("CAR", prev, "200", 5, 3)
	closing := testPosition("CLS", prev, "50", 10, 1)
	for _, p := range []*model.Position{opened, carried, closing} {
		if err := ledger.Open(p, nil, decimal.Zero); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := ledger.Close(closing, date, d("55"), model.ExitReasonExpired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := NewAccountant(provider, "close").Snapshot(date, prev, ledger)

	// opened today: entry 100 to mark 105 on 10 shares
	if !snap.NewTradePnL.Equal(d("50")) {
		t.Fatalf("expected NewTradePnL 50, got %s", snap.NewTradePnL.String())
	}
	// carried: (208-205)*5, plus the closing day move (55-52)*10
	if !snap.PositionalPnL.Equal(d("45")) {
		t.Fatalf("expected PositionalPnL 45, got %s", snap.PositionalPnL.String())
	}
	if !snap.RealizedPnL.Equal(d("50")) {
		t.Fatalf("expected RealizedPnL 50, got %s", snap.RealizedPnL.String())
	}
	// open marks: NEW +50, CAR +40
	if !snap.UnrealizedPnL.Equal(d("90")) {
		t.Fatalf("expected UnrealizedPnL 90, got %s", snap.UnrealizedPnL.String())
	}
	// 10000 - 1000 - 1000 - 500 reserved, then 500 + 50 released on close
	if !snap.CashBalance.Equal(d("8050")) {
		t.Fatalf("expected CashBalance 8050, got %s", snap.CashBalance.String())
	}
	if len(snap.Positions) != 3 {
		t.Fatalf("expected 3 position rows, got %d", len(snap.Positions))
	}
}

func TestAccountantSnapshot_SameDayOpenAndClose(t *testing.T) {
	prev := day(2016, time.January, 5)
	date := day(2016, time.January, 6)

	provider := data.NewProvider([]model.Bar{
		bar("AAA", date, "12", "1"),
	}, nil)

	ledger := NewLedger(d("1000"), false)
	p := testPosition("AAA", date, "10", 10, 1)
	if err := ledger.Open(p, nil, decimal.Zero); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ledger.Close(p, date, d("12"), model.ExitReasonDelisted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := NewAccountant(provider, "close").Snapshot(date, prev, ledger)

	// A same-day round trip baselines at the entry price, not a prior mark.
	if !snap.PositionalPnL.Equal(d("20")) {
		t.Fatalf("expected PositionalPnL 20, got %s", snap.PositionalPnL.String())
	}
	if !snap.RealizedPnL.Equal(d("20")) {
		t.Fatalf("expected RealizedPnL 20, got %s", snap.RealizedPnL.String())
	}
	if !snap.UnrealizedPnL.IsZero() {
		t.Fatalf("expected no unrealized PnL, got %s", snap.UnrealizedPnL.String())
	}
	if len(snap.Positions) != 1 || snap.Positions[0].ExitReason != model.ExitReasonDelisted {
		t.Fatalf("unexpected position rows: %+v", snap.Positions)
	}
}
