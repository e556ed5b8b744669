package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func chartJSON(timestamps []int64, closes []any, splits string) string {
	ts := ""
	closesJSON := ""
	for i, t := range timestamps {
		if i > 0 {
			ts += ","
			closesJSON += ","
		}
		ts += fmt.Sprintf("%d", t)
		closesJSON += fmt.Sprintf("%v", closes[i])
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"timestamp": [%s],
				"indicators": {
					"quote": [{
						"open": [%s], "high": [%s], "low": [%s],
						"close": [%s], "volume": [%s]
					}],
					"adjclose": [{"adjclose": [%s]}]
				},
				"events": {"splits": {%s}}
			}],
			"error": null
		}
	}`, ts, closesJSON, closesJSON, closesJSON, closesJSON, closesJSON, closesJSON, splits)
}

func unixDay(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC).Unix()
}

func TestFetchDailyParsesBars(t *testing.T) {
	day1 := unixDay(2024, 3, 11)
	day2 := unixDay(2024, 3, 12)
	splits := fmt.Sprintf(`"%d": {"date": %d, "numerator": 2, "denominator": 1, "splitRatio": "2:1"}`, day2, day2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON([]int64{day1, day2}, []any{100.5, 50.25}, splits))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.FetchDaily(context.Background(), []string{"7984.T"}, time.Unix(day1, 0), time.Unix(day2, 0))
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}

	series, ok := result["7984.T"]
	if !ok {
		t.Fatal("expected series for 7984.T")
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(series))
	}

	if series[0].Close != 100.5 {
		t.Errorf("bar 0 close = %v, want 100.5", series[0].Close)
	}
	if series[0].SplitRatio != 1 {
		t.Errorf("bar 0 split ratio = %v, want 1", series[0].SplitRatio)
	}
	if series[1].SplitRatio != 2 {
		t.Errorf("bar 1 split ratio = %v, want 2", series[1].SplitRatio)
	}
	wantDate := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !series[0].Date.Equal(wantDate) {
		t.Errorf("bar 0 date = %v, want %v", series[0].Date, wantDate)
	}
}

func TestFetchDailyNullFieldsBecomeNaN(t *testing.T) {
	day1 := unixDay(2024, 3, 11)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON([]int64{day1}, []any{"null"}, ""))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.FetchDaily(context.Background(), []string{"1.T"}, time.Unix(day1, 0), time.Unix(day1, 0))
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}

	series := result["1.T"]
	if len(series) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(series))
	}
	if !math.IsNaN(series[0].Close) {
		t.Errorf("close = %v, want NaN for null field", series[0].Close)
	}
}

func TestFetchDailySkipsFailingSymbols(t *testing.T) {
	day1 := unixDay(2024, 3, 11)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v8/finance/chart/BAD.T" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chartJSON([]int64{day1}, []any{10.0}, ""))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.FetchDaily(context.Background(), []string{"GOOD.T", "BAD.T"}, time.Unix(day1, 0), time.Unix(day1, 0))
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}

	if _, ok := result["GOOD.T"]; !ok {
		t.Error("expected GOOD.T in result")
	}
	if _, ok := result["BAD.T"]; ok {
		t.Error("BAD.T should be absent after per-symbol failure")
	}
}

func TestFetchDailyNotFoundSymbolAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.FetchDaily(context.Background(), []string{"NONE.T"}, time.Now().AddDate(0, 0, -5), time.Now())
	if err != nil {
		t.Fatalf("FetchDaily failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result for unknown symbol, got %d entries", len(result))
	}
}
