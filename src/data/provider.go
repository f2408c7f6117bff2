package data

import (
	"sort"
	"time"

	"newsbacktest/src/model"
)

// Provider is the in-memory, randomly addressable (symbol, date) view of the
// backtest window. Everything is loaded up front; the daily loop never does
// I/O. A missing entry means "no data", never a zero price.
type Provider struct {
	bars          map[string][]model.Bar
	signalsByDate map[time.Time][]model.Signal
}

// NewProvider indexes bars and normalized signals for random access. Input
// order does not matter; bars are sorted per symbol by date and duplicate
// (symbol, date) bars keep the last occurrence.
func NewProvider(bars []model.Bar, signals []model.Signal) *Provider {
	p := &Provider{
		bars:          make(map[string][]model.Bar),
		signalsByDate: make(map[time.Time][]model.Signal),
	}

	seen := make(map[string]map[time.Time]int)
	for _, b := range bars {
		b.Date = model.Day(b.Date)
		if seen[b.Symbol] == nil {
			seen[b.Symbol] = make(map[time.Time]int)
		}
		if i, ok := seen[b.Symbol][b.Date]; ok {
			p.bars[b.Symbol][i] = b
			continue
		}
		seen[b.Symbol][b.Date] = len(p.bars[b.Symbol])
		p.bars[b.Symbol] = append(p.bars[b.Symbol], b)
	}
	for sym := range p.bars {
		sort.Slice(p.bars[sym], func(i, j int) bool {
			return p.bars[sym][i].Date.Before(p.bars[sym][j].Date)
		})
	}

	for _, s := range signals {
		d := model.Day(s.Date)
		s.Date = d
		p.signalsByDate[d] = append(p.signalsByDate[d], s)
	}
	for d := range p.signalsByDate {
		sort.Slice(p.signalsByDate[d], func(i, j int) bool {
			return p.signalsByDate[d][i].Symbol < p.signalsByDate[d][j].Symbol
		})
	}

	return p
}

// Bar returns the exact bar for (symbol, date) if one exists.
func (p *Provider) Bar(symbol string, date time.Time) (model.Bar, bool) {
	date = model.Day(date)
	series := p.bars[symbol]
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(date)
	})
	if i < len(series) && series[i].Date.Equal(date) {
		return series[i], true
	}
	return model.Bar{}, false
}

// History returns up to n bars strictly before the given date, oldest first.
// Strictly before: window statistics for a decision on date d may only see
// data observable before d.
func (p *Provider) History(symbol string, before time.Time, n int) []model.Bar {
	before = model.Day(before)
	series := p.bars[symbol]
	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(before)
	})
	start := i - n
	if start < 0 {
		start = 0
	}
	out := make([]model.Bar, i-start)
	copy(out, series[start:i])
	return out
}

// LastKnown returns the most recent bar on or before the given date.
func (p *Provider) LastKnown(symbol string, onOrBefore time.Time) (model.Bar, bool) {
	onOrBefore = model.Day(onOrBefore)
	series := p.bars[symbol]
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Date.After(onOrBefore)
	})
	if i == 0 {
		return model.Bar{}, false
	}
	return series[i-1], true
}

// HasBarAfter reports whether any bar exists strictly after the given date.
// A symbol with no later bars is treated as delisted.
func (p *Provider) HasBarAfter(symbol string, date time.Time) bool {
	series := p.bars[symbol]
	if len(series) == 0 {
		return false
	}
	return series[len(series)-1].Date.After(model.Day(date))
}

// SignalsOn returns the day's normalized signals in symbol order.
func (p *Provider) SignalsOn(date time.Time) []model.Signal {
	return p.signalsByDate[model.Day(date)]
}

// Symbols returns every symbol with bar data, sorted.
func (p *Provider) Symbols() []string {
	syms := make([]string, 0, len(p.bars))
	for s := range p.bars {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
