package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"newsbacktest/src/config"
	"newsbacktest/src/data"
	"newsbacktest/src/model"
)

// Bounds on the volatility-scaling ratio so near-zero symbol volatility
// cannot produce degenerate sizes.
var (
	volScaleFloor = decimal.NewFromFloat(0.1)
	volScaleCap   = decimal.NewFromInt(5)
	betaCap       = decimal.NewFromInt(5)
)

// Sized is one fully computed entry: a primary position and, when hedging is
// enabled, its offsetting index-ETF leg. Both legs reserve cash together.
type Sized struct {
	Primary *model.Position
	Hedge   *model.Position
	Ratio   decimal.Decimal
}

// Sizer turns a qualifying signal into share and dollar amounts. It is
// stateless across days; every call reads only trailing history through the
// provider.
type Sizer struct {
	cfg      *config.StrategyConfig
	provider *data.Provider
}

func NewSizer(cfg *config.StrategyConfig, provider *data.Provider) *Sizer {
	return &Sizer{cfg: cfg, provider: provider}
}

// Direction maps a score onto an entry direction: +1 long, -1 short,
// 0 no entry. Thresholds are inclusive. A short-qualifying score with
// do_short disabled is ignored entirely, not flattened to a long.
func (s *Sizer) Direction(score decimal.Decimal) int {
	if s.cfg.SignalGeqBound != nil && score.GreaterThanOrEqual(*s.cfg.SignalGeqBound) {
		return 1
	}
	if s.cfg.SignalLeqBound != nil && score.LessThanOrEqual(*s.cfg.SignalLeqBound) {
		if s.cfg.DoShort {
			return -1
		}
	}
	return 0
}

// Size computes the entry for a signal executing on date at entryPrice, given
// the account's unreserved cash. Failures are SizingErrors or
// DataQualityErrors; both drop the candidate for the day.
func (s *Sizer) Size(sig model.Signal, date time.Time, direction int, entryPrice, available decimal.Decimal) (*Sized, error) {
	if !entryPrice.IsPositive() {
		return nil, &DataQualityError{Symbol: sig.Symbol, Date: date, Detail: "non-positive entry price"}
	}

	// Liquidity gate first: it takes precedence over signal strength.
	history := s.provider.History(sig.Symbol, date, liquidityWindow)
	avgVol := AvgDollarVolume(history)
	if avgVol.LessThan(s.cfg.MinAvgDailyVolume) || avgVol.GreaterThan(s.cfg.MaxAvgDailyVolume) {
		return nil, &SizingError{Symbol: sig.Symbol, Err: ErrNoVolumeData}
	}

	dollars := s.cfg.TradeSizeInDollars
	if direction < 0 {
		dollars = dollars.Mul(s.cfg.ShortAdjFraction)
	}

	var symbolStats, indexStats WindowStats
	needStats := s.cfg.DoScaleTradeToETFVol || s.cfg.DoHedge
	if needStats {
		var err error
		symbolStats, err = ComputeWindowStats(
			s.provider.History(sig.Symbol, date, s.cfg.SignalWindowSize+1),
			s.cfg.SignalWindowSize,
		)
		if err != nil {
			return nil, err
		}
		indexStats, err = ComputeWindowStats(
			s.provider.History(s.cfg.IndexSymbol, date, s.cfg.SignalWindowSize+1),
			s.cfg.SignalWindowSize,
		)
		if err != nil {
			return nil, err
		}
	}

	if s.cfg.DoScaleTradeToETFVol {
		dollars = dollars.Mul(volScaleRatio(indexStats.Vol, symbolStats.Vol))
	} else {
		// simple_fixed mode caps at available cash instead of rejecting.
		if dollars.GreaterThan(available) {
			dollars = available
		}
	}

	quantity := dollars.Div(entryPrice).IntPart()
	if quantity <= 0 {
		if available.LessThan(entryPrice) {
			return nil, &SizingError{Symbol: sig.Symbol, Err: ErrInsufficientCash}
		}
		return nil, &SizingError{Symbol: sig.Symbol, Err: ErrDegenerateSize}
	}

	dollarSize := decimal.NewFromInt(quantity).Mul(entryPrice)
	primary := &model.Position{
		Symbol:          sig.Symbol,
		EntryDate:       model.Day(date),
		EntryPrice:      entryPrice,
		Quantity:        int64(direction) * quantity,
		DollarSize:      dollarSize,
		HoldingDaysLeft: s.cfg.HoldingPeriodDays,
		Status:          model.PositionStatusOpen,
	}

	sized := &Sized{Primary: primary}
	if s.cfg.DoHedge {
		hedge, ratio, err := s.sizeHedge(primary, date, symbolStats, indexStats)
		if err != nil {
			return nil, err
		}
		sized.Hedge = hedge
		sized.Ratio = ratio
	}

	required := primary.DollarSize
	if sized.Hedge != nil {
		required = required.Add(sized.Hedge.DollarSize)
	}
	if required.GreaterThan(available) {
		return nil, &SizingError{Symbol: sig.Symbol, Err: ErrInsufficientCash}
	}
	return sized, nil
}

// sizeHedge builds the index-ETF leg: beta-sized dollars, sign opposite to
// the primary. A non-positive beta produces no hedge leg at all.
func (s *Sizer) sizeHedge(primary *model.Position, date time.Time, symbolStats, indexStats WindowStats) (*model.Position, decimal.Decimal, error) {
	beta := decimal.NewFromFloat(Beta(symbolStats.Returns, indexStats.Returns))
	if !beta.IsPositive() {
		return nil, decimal.Zero, nil
	}
	if beta.GreaterThan(betaCap) {
		beta = betaCap
	}

	indexBar, ok := s.provider.Bar(s.cfg.IndexSymbol, date)
	if !ok {
		return nil, decimal.Zero, &DataQualityError{
			Symbol: s.cfg.IndexSymbol,
			Date:   date,
			Detail: "no index bar for hedge entry",
		}
	}
	hedgePrice := ReferencePrice(indexBar, s.cfg.ReferencePrice)

	hedgeDollars := primary.DollarSize.Mul(beta)
	hedgeQty := hedgeDollars.Div(hedgePrice).IntPart()
	if hedgeQty <= 0 {
		return nil, decimal.Zero, nil
	}

	sign := int64(-1)
	if !primary.Long() {
		sign = 1
	}
	hedge := &model.Position{
		Symbol:          s.cfg.IndexSymbol,
		EntryDate:       model.Day(date),
		EntryPrice:      hedgePrice,
		Quantity:        sign * hedgeQty,
		DollarSize:      decimal.NewFromInt(hedgeQty).Mul(hedgePrice),
		HoldingDaysLeft: s.cfg.HoldingPeriodDays,
		Status:          model.PositionStatusOpen,
	}
	return hedge, beta, nil
}

// ReferencePrice picks the configured execution/mark price off a bar.
func ReferencePrice(b model.Bar, ref string) decimal.Decimal {
	if ref == config.ReferenceOpen {
		return b.Open
	}
	return b.Close
}

func volScaleRatio(indexVol, symbolVol float64) decimal.Decimal {
	if symbolVol == 0 {
		return volScaleCap
	}
	ratio := decimal.NewFromFloat(indexVol / symbolVol)
	if ratio.LessThan(volScaleFloor) {
		return volScaleFloor
	}
	if ratio.GreaterThan(volScaleCap) {
		return volScaleCap
	}
	return ratio
}
