package engine

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"newsbacktest/src/model"
)

// liquidityWindow is the trailing span used for the average dollar-volume
// gate, independent of the signal window.
const liquidityWindow = 20

// WindowStats holds the trailing-window statistics the sizer consumes for one
// symbol. Statistics are float64: they are ratios fed back into decimal
// sizing after clamping, not monetary amounts.
type WindowStats struct {
	Returns []float64
	Vol     float64
}

// ComputeWindowStats derives close-to-close returns and realized volatility
// over the last `window` returns. It needs window+1 bars.
func ComputeWindowStats(bars []model.Bar, window int) (WindowStats, error) {
	if len(bars) < window+1 {
		sym := ""
		if len(bars) > 0 {
			sym = bars[len(bars)-1].Symbol
		}
		return WindowStats{}, &DataQualityError{
			Symbol: sym,
			Detail: fmt.Sprintf("need %d bars for a %d-day window, have %d", window+1, window, len(bars)),
		}
	}

	bars = bars[len(bars)-(window+1):]
	returns := make([]float64, 0, window)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Close.Float64()
		cur, _ := bars[i].Close.Float64()
		if prev == 0 {
			return WindowStats{}, &DataQualityError{
				Symbol: bars[i].Symbol,
				Date:   bars[i].Date,
				Detail: "zero close in return window",
			}
		}
		returns = append(returns, (cur-prev)/prev)
	}

	return WindowStats{Returns: returns, Vol: stddev(returns)}, nil
}

// Beta is cov(symbol, index) / var(index) over two aligned return series.
// A flat index yields beta 0 rather than a division blow-up.
func Beta(symbolReturns, indexReturns []float64) float64 {
	n := len(symbolReturns)
	if n == 0 || n != len(indexReturns) {
		return 0
	}

	meanS := mean(symbolReturns)
	meanI := mean(indexReturns)

	var cov, varI float64
	for i := 0; i < n; i++ {
		ds := symbolReturns[i] - meanS
		di := indexReturns[i] - meanI
		cov += ds * di
		varI += di * di
	}
	if varI == 0 {
		return 0
	}
	return cov / varI
}

// AvgDollarVolume is the mean of volume x close over the trailing liquidity
// window. Fewer bars than the window still produce an average; zero bars
// produce zero, which the liquidity gate rejects against any positive bound.
func AvgDollarVolume(bars []model.Bar) decimal.Decimal {
	if len(bars) == 0 {
		return decimal.Zero
	}
	if len(bars) > liquidityWindow {
		bars = bars[len(bars)-liquidityWindow:]
	}
	sum := decimal.Zero
	for _, b := range bars {
		sum = sum.Add(b.Volume.Mul(b.Close))
	}
	return sum.Div(decimal.NewFromInt(int64(len(bars))))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
