// Package marketdata fetches daily OHLCV series and split events from a
// Yahoo-style chart API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultConcurrency    = 8
	// The upstream enforces a shared rate limit across the whole run.
	defaultRequestsPerSecond = 4
)

// Client is an HTTP client for the chart API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	concurrency int
}

// NewClient creates a new chart API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
		concurrency: defaultConcurrency,
	}
}

// FetchDaily fetches daily bars for a batch of symbols over [start, end].
// Symbols with no data in the window are absent from the result. Per-symbol
// failures are logged and the symbol skipped; the call as a whole fails only
// when the context is cancelled.
func (c *Client) FetchDaily(ctx context.Context, symbols []string, start, end time.Time) (map[string]Series, error) {
	result := make(map[string]Series, len(symbols))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			series, err := c.fetchSymbol(ctx, symbol, start, end)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithField("symbol", symbol).Warnf("fetch failed, skipping symbol: %v", err)
				return nil
			}
			if len(series) == 0 {
				return nil
			}

			mu.Lock()
			result[symbol] = series
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchSymbol(ctx context.Context, symbol string, start, end time.Time) (Series, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// period2 is exclusive; extend by a day so the end date is included.
	params.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "splits")
	params.Set("includeAdjustedClose", "true")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "stocksync/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("API error %s: %s", cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, nil
	}

	return parseResult(cr.Chart.Result[0]), nil
}

// parseResult converts one chart result into a chronologically sorted Series.
func parseResult(res chartResult) Series {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	quote := res.Indicators.Quote[0]

	var adjClose []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adjClose = res.Indicators.AdjClose[0].AdjClose
	}

	splitsByDate := make(map[string]float64, len(res.Events.Splits))
	for _, ev := range res.Events.Splits {
		if ev.Denominator == 0 {
			continue
		}
		day := time.Unix(ev.Date, 0).UTC().Format("2006-01-02")
		splitsByDate[day] = ev.Numerator / ev.Denominator
	}

	series := make(Series, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		t := time.Unix(ts, 0).UTC()
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

		bar := Bar{
			Date:       date,
			Open:       deref(quote.Open, i),
			High:       deref(quote.High, i),
			Low:        deref(quote.Low, i),
			Close:      deref(quote.Close, i),
			AdjClose:   deref(adjClose, i),
			Volume:     deref(quote.Volume, i),
			SplitRatio: 1,
		}
		if ratio, ok := splitsByDate[date.Format("2006-01-02")]; ok && ratio > 0 {
			bar.SplitRatio = ratio
		}
		series = append(series, bar)
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series
}

func deref(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}
