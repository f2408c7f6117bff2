// REST CLIENT FOR POLYGON DAILY AGGREGATES
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"newsbacktest/src/model"
)

const (
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	aggsPageLimit = 50000
)

type PolygonClient struct {
	apiKey  string
	baseURL string
	http    *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewPolygonClient(apiKey, baseURL string) *PolygonClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = "https://api.polygon.io"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &PolygonClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    httpClient,
	}
}

type polygonAgg struct {
	Timestamp    int64   `json:"t"`
	Open         float64 `json:"o"`
	High         float64 `json:"h"`
	Low          float64 `json:"l"`
	Close        float64 `json:"c"`
	Volume       float64 `json:"v"`
	VWAP         float64 `json:"vw"`
	Transactions int64   `json:"n"`
}

type polygonAggsResponse struct {
	Ticker       string       `json:"ticker"`
	ResultsCount int          `json:"resultsCount"`
	Results      []polygonAgg `json:"results"`
	Status       string       `json:"status"`
	NextURL      string       `json:"next_url"`
}

// DailyBars downloads adjusted daily aggregates for one symbol between
// from and to inclusive, following pagination until exhausted.
func (c *PolygonClient) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

	bars := make([]model.Bar, 0, 256)

	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"adjusted": "true",
			"sort":     "asc",
			"limit":    fmt.Sprintf("%d", aggsPageLimit),
			"apiKey":   c.apiKey,
		}).
		SetResult(&polygonAggsResponse{})

	for {
		resp, err := req.Get(path)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != 200 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.String())
		}

		parsed, ok := resp.Result().(*polygonAggsResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected aggregates payload for %s", symbol)
		}

		for _, agg := range parsed.Results {
			bars = append(bars, aggToBar(symbol, agg))
		}

		if parsed.NextURL == "" {
			break
		}

		// next_url is absolute and already carries the cursor; the key
		// must be re-attached on every page.
		req = c.http.R().
			SetContext(ctx).
			SetQueryParam("apiKey", c.apiKey).
			SetResult(&polygonAggsResponse{})
		path = parsed.NextURL
	}

	return bars, nil
}

func aggToBar(symbol string, agg polygonAgg) model.Bar {
	return model.Bar{
		Symbol:        symbol,
		Date:          model.Day(time.UnixMilli(agg.Timestamp).UTC()),
		Open:          decimal.NewFromFloat(agg.Open),
		High:          decimal.NewFromFloat(agg.High),
		Low:           decimal.NewFromFloat(agg.Low),
		Close:         decimal.NewFromFloat(agg.Close),
		Volume:        decimal.NewFromFloat(agg.Volume),
		VWAP:          decimal.NewFromFloat(agg.VWAP),
		NTransactions: agg.Transactions,
	}
}
