package model

import "time"

// Observation is one closing price on one trading date.
// TradeDate is always an 8-digit YYYYMMDD string.
type Observation struct {
	TradeDate string  `json:"trade_date" db:"trade_date"`
	Close     float64 `json:"close" db:"close"`
}

// Series is an instrument's observations in ascending date order
type Series []Observation

// Closes returns the closing prices in series order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, o := range s {
		closes[i] = o.Close
	}
	return closes
}

// DateRange is an inclusive range of YYYYMMDD trading dates
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IsTradeDate reports whether s is a valid YYYYMMDD calendar date
func IsTradeDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}
