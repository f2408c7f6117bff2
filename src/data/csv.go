package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"newsbacktest/src/calendar"
	"newsbacktest/src/model"
)

// LoadBarsCSV reads daily bars from a CSV file with a header row:
//
//	symbol,date,open,high,low,close,volume,vwap,n_transactions
//
// vwap and n_transactions may be empty. Dates are YYYY-MM-DD.
func LoadBarsCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	col, err := indexColumns(header, []string{"symbol", "date", "open", "high", "low", "close", "volume"})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var bars []model.Bar
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++

		date, err := time.Parse("2006-01-02", row[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		bar := model.Bar{
			Symbol: strings.ToUpper(row[col["symbol"]]),
			Date:   model.Day(date),
		}
		for field, dst := range map[string]*decimal.Decimal{
			"open":   &bar.Open,
			"high":   &bar.High,
			"low":    &bar.Low,
			"close":  &bar.Close,
			"volume": &bar.Volume,
		} {
			*dst, err = decimal.NewFromString(row[col[field]])
			if err != nil {
				return nil, fmt.Errorf("%s line %d, %s: %w", path, line, field, err)
			}
		}
		if idx, ok := col["vwap"]; ok && row[idx] != "" {
			bar.VWAP, err = decimal.NewFromString(row[idx])
			if err != nil {
				return nil, fmt.Errorf("%s line %d, vwap: %w", path, line, err)
			}
		}
		if idx, ok := col["n_transactions"]; ok && row[idx] != "" {
			bar.NTransactions, err = strconv.ParseInt(row[idx], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d, n_transactions: %w", path, line, err)
			}
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// LoadNewsCSV reads classified press releases from a CSV file with header:
//
//	symbol,date,published_at,sentiment,title_matched,headline
//
// date is the actionable trading date (YYYY-MM-DD); published_at is an
// RFC 3339 timestamp. Rows with an unknown sentiment category are rejected.
func LoadNewsCSV(path string) ([]model.NewsItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	col, err := indexColumns(header, []string{"symbol", "date", "published_at", "sentiment", "title_matched"})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var items []model.NewsItem
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++

		date, err := time.Parse("2006-01-02", row[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		publishedAt, err := time.Parse(time.RFC3339, row[col["published_at"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		matched, err := strconv.ParseBool(row[col["title_matched"]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		if !calendar.IsTradingDay(date) {
			logger.WithFields(logger.Fields{
				"symbol": strings.ToUpper(row[col["symbol"]]),
				"date":   date.Format("2006-01-02"),
			}).Warn("News row dated on a non-trading day, no scheduler tick will consult it")
		}

		sentiment := model.Sentiment(strings.ToUpper(row[col["sentiment"]]))
		if !sentiment.Valid() {
			return nil, fmt.Errorf("%s line %d: unknown sentiment %q", path, line, row[col["sentiment"]])
		}

		item := model.NewsItem{
			Symbol:       strings.ToUpper(row[col["symbol"]]),
			Date:         model.Day(date),
			Sentiment:    sentiment,
			TitleMatched: matched,
			PublishedAt:  publishedAt,
		}
		if idx, ok := col["headline"]; ok {
			item.Headline = row[idx]
		}

		items = append(items, item)
	}

	return items, nil
}

func indexColumns(header, required []string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}
