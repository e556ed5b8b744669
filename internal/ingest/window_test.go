package ingest

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeWatermark struct {
	latest *time.Time
	err    error
}

func (f *fakeWatermark) LatestTradeDate(ctx context.Context, table string) (*time.Time, error) {
	return f.latest, f.err
}

var testEpoch = day(2015, 1, 1)

func TestResolveWindowIncremental(t *testing.T) {
	latest := day(2024, 6, 1)
	now := day(2024, 6, 10)

	w := ResolveWindow(context.Background(), &fakeWatermark{latest: &latest}, "stockdata", now, testEpoch)

	if !w.Start.Equal(day(2024, 6, 2)) {
		t.Errorf("start = %v, want 2024-06-02", w.Start)
	}
	if !w.End.Equal(now) {
		t.Errorf("end = %v, want %v", w.End, now)
	}
	if w.Empty() {
		t.Error("window should not be empty")
	}
}

func TestResolveWindowAbsentTable(t *testing.T) {
	w := ResolveWindow(context.Background(), &fakeWatermark{}, "stockdata", day(2024, 6, 10), testEpoch)

	if !w.Start.Equal(testEpoch) {
		t.Errorf("start = %v, want epoch %v", w.Start, testEpoch)
	}
}

func TestResolveWindowFailsOpenOnError(t *testing.T) {
	wm := &fakeWatermark{err: errors.New("connection refused")}
	w := ResolveWindow(context.Background(), wm, "stockdata", day(2024, 6, 10), testEpoch)

	if !w.Start.Equal(testEpoch) {
		t.Errorf("start = %v, want epoch %v on watermark error", w.Start, testEpoch)
	}
}

func TestResolveWindowUpToDate(t *testing.T) {
	// Latest stored date is today: start lands on tomorrow, window empty.
	latest := day(2024, 6, 10)
	w := ResolveWindow(context.Background(), &fakeWatermark{latest: &latest}, "stockdata", day(2024, 6, 10), testEpoch)

	if !w.Empty() {
		t.Errorf("window [%v, %v] should be empty", w.Start, w.End)
	}
}
