package ingest

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/mtanaka-dev/stocksync/internal/catalog"
	"github.com/mtanaka-dev/stocksync/internal/marketdata"
	"github.com/mtanaka-dev/stocksync/internal/models"
)

// Fetcher fetches daily series for a batch of symbols over a window.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbols []string, start, end time.Time) (map[string]marketdata.Series, error)
}

// Writer merges a batch of canonical rows into the target table.
type Writer interface {
	Upsert(ctx context.Context, table string, rows []models.StockRow) error
}

// BatchResult is the typed outcome of one ticker batch. Per-batch failures
// never abort the run; the orchestrator records them and continues.
type BatchResult struct {
	Index       int
	Symbols     int
	Fetched     int // symbols that returned data
	RowsWritten int
	FetchErr    error
	UpsertErr   error
}

// Summary aggregates a whole run.
type Summary struct {
	Window      Window
	Batches     int
	RowsWritten int
	Elapsed     time.Duration
	NoOp        bool
}

// Runner sequences the ingestion pipeline: resolve the fetch window once,
// then for each ticker batch fetch, reconstruct, normalize, and upsert, with
// a fixed delay between batches to respect the upstream rate limit. Batches
// run strictly sequentially.
type Runner struct {
	Entries   []catalog.Entry
	Fetcher   Fetcher
	Watermark Watermark
	Writer    Writer

	Table      string
	Suffix     string
	ChunkSize  int
	BatchDelay time.Duration
	Epoch      time.Time

	// now is swapped in tests.
	now func() time.Time
}

// Run executes one ingestion run to completion.
func (r *Runner) Run(ctx context.Context) ([]BatchResult, Summary) {
	started := time.Now()
	if r.now == nil {
		r.now = time.Now
	}

	window := ResolveWindow(ctx, r.Watermark, r.Table, r.now().UTC(), r.Epoch)
	if window.Empty() {
		log.Info("database is already up to date, nothing to fetch")
		return nil, Summary{Window: window, NoOp: true, Elapsed: time.Since(started)}
	}
	log.Infof("target period: %s to %s",
		window.Start.Format("2006-01-02"), window.End.Format("2006-01-02"))

	names := catalog.NamesByCode(r.Entries)
	chunks := chunkEntries(r.Entries, r.ChunkSize)

	var results []BatchResult
	total := 0
	for i, chunk := range chunks {
		log.Infof("processing batch %d/%d (%d tickers)", i+1, len(chunks), len(chunk))

		res := r.runBatch(ctx, i, chunk, window, names)
		results = append(results, res)
		total += res.RowsWritten

		if i < len(chunks)-1 {
			time.Sleep(r.BatchDelay)
		}
	}

	summary := Summary{
		Window:      window,
		Batches:     len(chunks),
		RowsWritten: total,
		Elapsed:     time.Since(started),
	}
	log.Infof("all batches processed: %d rows written in %s", total, summary.Elapsed.Round(time.Millisecond))
	return results, summary
}

func (r *Runner) runBatch(ctx context.Context, index int, chunk []catalog.Entry, window Window, names map[string]string) BatchResult {
	res := BatchResult{Index: index, Symbols: len(chunk)}

	symbols := make([]string, len(chunk))
	for i, e := range chunk {
		symbols[i] = e.Symbol(r.Suffix)
	}

	series, err := r.Fetcher.FetchDaily(ctx, symbols, window.Start, window.End)
	if err != nil {
		// Degrade to an empty batch; remaining batches are independent.
		log.WithField("batch", index+1).Errorf("fetch failed, skipping batch: %v", err)
		res.FetchErr = err
		return res
	}
	res.Fetched = len(series)
	if len(series) == 0 {
		log.WithField("batch", index+1).Info("no data fetched for this batch, skipping")
		return res
	}

	incremental := window.Start.After(r.Epoch)
	var rows []models.StockRow
	for _, symbol := range symbols {
		s, ok := series[symbol]
		if !ok {
			continue
		}
		bars, sawSplit := Reconstruct(s)
		if sawSplit && incremental {
			// A split before the window start cannot be seen here, so
			// rows stored from earlier runs may carry a stale unadjusted
			// reconstruction for this ticker.
			log.WithField("symbol", symbol).Warn(
				"split event in incremental window; stored history for this ticker may need a full-history reload")
		}
		rows = append(rows, Normalize(symbol, bars, names, r.Suffix)...)
	}
	if len(rows) == 0 {
		log.WithField("batch", index+1).Info("no rows after processing, skipping upsert")
		return res
	}

	if err := r.Writer.Upsert(ctx, r.Table, rows); err != nil {
		log.WithField("batch", index+1).Errorf("upsert failed, continuing with next batch: %v", err)
		res.UpsertErr = err
		return res
	}
	res.RowsWritten = len(rows)
	return res
}

func chunkEntries(entries []catalog.Entry, size int) [][]catalog.Entry {
	if size <= 0 {
		size = len(entries)
	}
	var chunks [][]catalog.Entry
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[start:end])
	}
	return chunks
}
