package ingest

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Watermark reports the latest stored trade date for a table, or nil when
// the table is absent or empty.
type Watermark interface {
	LatestTradeDate(ctx context.Context, table string) (*time.Time, error)
}

// Window is the fetch window for one ingestion run. Computed once per run,
// immutable thereafter.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether there is nothing to fetch.
func (w Window) Empty() bool {
	return w.Start.After(w.End)
}

// ResolveWindow derives the fetch window from stored state: the day after the
// latest stored date, or the historical epoch when the table is absent or
// empty. A watermark read failure degrades to full-history mode rather than
// aborting the run; re-fetching too much beats silently skipping updates.
func ResolveWindow(ctx context.Context, wm Watermark, table string, now, epoch time.Time) Window {
	end := midnight(now)

	latest, err := wm.LatestTradeDate(ctx, table)
	if err != nil {
		log.WithField("table", table).Warnf("failed to read latest stored date, running in full-history mode: %v", err)
		return Window{Start: epoch, End: end}
	}
	if latest == nil {
		log.WithField("table", table).Info("table absent or empty, running in full-history mode")
		return Window{Start: epoch, End: end}
	}

	start := midnight(*latest).AddDate(0, 0, 1)
	log.WithField("table", table).Infof("latest stored date is %s, fetching from %s",
		latest.Format("2006-01-02"), start.Format("2006-01-02"))
	return Window{Start: start, End: end}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
