package models

import "time"

// StockRow is one persisted daily record for a security. Unadjusted prices
// are reconstructed from the feed's split-adjusted series; adjusted prices
// are stored as delivered. (SecurityCode, TradeDate) is the primary key.
type StockRow struct {
	SecurityCode string
	CompanyName  string
	TradeDate    time.Time
	Open         float64
	High         float64
	Low          float64
	Close        float64
	OpenAdj      float64
	HighAdj      float64
	LowAdj       float64
	CloseAdj     float64
	Volume       int64
}
