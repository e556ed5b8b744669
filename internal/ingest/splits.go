package ingest

import (
	"math"

	"github.com/mtanaka-dev/stocksync/internal/marketdata"
)

// PriceBar is one daily record after split reconstruction, carrying both the
// feed's adjusted prices and the reconstructed unadjusted prices.
type PriceBar struct {
	Bar    marketdata.Bar
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Factor float64
}

// Reconstruct derives unadjusted OHLC from a chronologically ordered
// split-adjusted series. The factor for a row is the product of all split
// ratios occurring strictly after that row's date, so the most recent rows
// have factor 1 and earlier rows are scaled back up to their pre-split
// levels. Rows without a close price are dropped; a row with no close is not
// a valid trading record.
//
// The returned flag reports whether any split event was present in the
// series. Callers fetching an incremental window use it to detect that
// stored history may predate the split and need reconciliation.
func Reconstruct(series marketdata.Series) ([]PriceBar, bool) {
	if len(series) == 0 {
		return nil, false
	}

	// Backward scan: factor accumulates ratios of strictly later rows.
	// The split day itself already trades at the post-split price, so its
	// own ratio applies only to rows before it.
	factors := make([]float64, len(series))
	factor := 1.0
	sawSplit := false
	for i := len(series) - 1; i >= 0; i-- {
		factors[i] = factor
		ratio := series[i].SplitRatio
		if ratio > 0 && ratio != 1 {
			sawSplit = true
			factor *= ratio
		}
	}

	bars := make([]PriceBar, 0, len(series))
	for i, b := range series {
		if math.IsNaN(b.Close) {
			continue
		}
		bars = append(bars, PriceBar{
			Bar:    b,
			Open:   b.Open * factors[i],
			High:   b.High * factors[i],
			Low:    b.Low * factors[i],
			Close:  b.Close * factors[i],
			Factor: factors[i],
		})
	}
	return bars, sawSplit
}
