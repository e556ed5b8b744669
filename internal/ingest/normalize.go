package ingest

import (
	"math"
	"strings"

	"github.com/mtanaka-dev/stocksync/internal/models"
)

// Normalize assembles canonical rows from reconstructed bars: prices rounded
// to 2 decimal places, volume validated as a 64-bit integer, the venue suffix
// stripped from the symbol, and the company name joined from the catalog.
// Rows with a missing price field or an invalid volume are dropped; an
// unmatched security code gets an empty company name rather than failing the
// batch.
func Normalize(symbol string, bars []PriceBar, names map[string]string, suffix string) []models.StockRow {
	code := SecurityCode(symbol, suffix)
	name := names[code]

	rows := make([]models.StockRow, 0, len(bars))
	for _, b := range bars {
		row := models.StockRow{
			SecurityCode: code,
			CompanyName:  name,
			TradeDate:    b.Bar.Date,
			Open:         round2(b.Open),
			High:         round2(b.High),
			Low:          round2(b.Low),
			Close:        round2(b.Close),
			OpenAdj:      round2(b.Bar.Open),
			HighAdj:      round2(b.Bar.High),
			LowAdj:       round2(b.Bar.Low),
			CloseAdj:     round2(b.Bar.Close),
		}
		if hasNaNPrice(row) {
			continue
		}

		volume, ok := integralVolume(b.Bar.Volume)
		if !ok {
			continue
		}
		row.Volume = volume

		rows = append(rows, row)
	}
	return rows
}

// SecurityCode strips the venue suffix from a feed symbol.
func SecurityCode(symbol, suffix string) string {
	if suffix != "" {
		return strings.TrimSuffix(symbol, suffix)
	}
	return symbol
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func hasNaNPrice(r models.StockRow) bool {
	for _, v := range []float64{r.Open, r.High, r.Low, r.Close, r.OpenAdj, r.HighAdj, r.LowAdj, r.CloseAdj} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// integralVolume casts a feed volume to int64. Fractional, NaN, or negative
// volumes are invalid.
func integralVolume(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	if v != math.Trunc(v) {
		return 0, false
	}
	return int64(v), true
}
