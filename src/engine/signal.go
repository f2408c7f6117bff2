package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"newsbacktest/src/model"
)

// Normalizer maps classified press releases onto bounded per-(symbol, date)
// scores. It is a pure function over its inputs: no signal is ever produced
// for a release that fails the title filter or carries an unmapped category.
type Normalizer struct {
	scores        map[model.Sentiment]decimal.Decimal
	allowIntraday bool
}

func NewNormalizer(scores map[model.Sentiment]decimal.Decimal, allowIntraday bool) *Normalizer {
	return &Normalizer{scores: scores, allowIntraday: allowIntraday}
}

// Normalize collapses raw news rows into at most one signal per
// (symbol, date). Duplicate rows for a pair resolve last-write-wins in input
// order. Rows whose trading date is not strictly after publication are
// dropped: a score must never be observable before the release exists.
func (n *Normalizer) Normalize(items []model.NewsItem) []model.Signal {
	type key struct {
		symbol string
		date   time.Time
	}
	byKey := make(map[key]model.Signal)

	for _, item := range items {
		if !item.TitleMatched {
			continue
		}
		score, ok := n.scores[item.Sentiment]
		if !ok {
			continue
		}
		date := model.Day(item.Date)
		if !item.PublishedAt.IsZero() && !date.After(model.Day(item.PublishedAt)) {
			continue
		}
		if !n.allowIntraday && publishedDuringSession(item.PublishedAt) {
			continue
		}
		byKey[key{item.Symbol, date}] = model.Signal{
			Symbol:   item.Symbol,
			Date:     date,
			Score:    score,
			Headline: item.Headline,
		}
	}

	signals := make([]model.Signal, 0, len(byKey))
	for _, s := range byKey {
		signals = append(signals, s)
	}
	sort.Slice(signals, func(i, j int) bool {
		if !signals[i].Date.Equal(signals[j].Date) {
			return signals[i].Date.Before(signals[j].Date)
		}
		return signals[i].Symbol < signals[j].Symbol
	})
	return signals
}

// publishedDuringSession reports whether a release hit the wire during NYSE
// trading hours (9-16 Eastern). Releases during the session are excluded
// unless the strategy explicitly opts into intraday sources.
func publishedDuringSession(published time.Time) bool {
	if published.IsZero() {
		return false
	}
	et := published
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		et = published.In(loc)
	}
	hour := et.Hour()
	return hour >= 9 && hour <= 16
}
