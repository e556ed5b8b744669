package marketdata

import "time"

// chartResponse mirrors the chart API JSON envelope.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
	Events struct {
		Splits map[string]splitEvent `json:"splits"`
	} `json:"events"`
}

type splitEvent struct {
	Date        int64   `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	SplitRatio  string  `json:"splitRatio"`
}

// Bar is one parsed daily record for a symbol. The OHLC fields carry the
// feed's split-adjusted prices; AdjClose is additionally dividend-adjusted.
// Missing numeric fields are NaN. SplitRatio is 1 on non-split days.
type Bar struct {
	Date       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	AdjClose   float64
	Volume     float64
	SplitRatio float64
}

// Series is a chronologically ordered daily series for one symbol.
type Series []Bar
