package model

import "encoding/json"

// NormalizedSuffix is appended to an instrument key for its normalized column
const NormalizedSuffix = "_norm"

// MergedRow holds every instrument's value on one trading date.
// A key missing from Close or Normalized means the instrument has no value
// on that date.
type MergedRow struct {
	TradeDate  string
	Close      map[string]float64
	Normalized map[string]float64
}

// NewMergedRow creates an empty row for the given date
func NewMergedRow(tradeDate string) MergedRow {
	return MergedRow{
		TradeDate:  tradeDate,
		Close:      make(map[string]float64),
		Normalized: make(map[string]float64),
	}
}

// Clone returns a deep copy of the row
func (r MergedRow) Clone() MergedRow {
	out := MergedRow{
		TradeDate:  r.TradeDate,
		Close:      make(map[string]float64, len(r.Close)),
		Normalized: make(map[string]float64, len(r.Normalized)),
	}
	for k, v := range r.Close {
		out.Close[k] = v
	}
	for k, v := range r.Normalized {
		out.Normalized[k] = v
	}
	return out
}

// MarshalJSON flattens the row into the wire shape:
// trade_date, date, <key> and <key>_norm, with absent values omitted.
func (r MergedRow) MarshalJSON() ([]byte, error) {
	obj := make(map[string]interface{}, 2+len(r.Close)+len(r.Normalized))
	obj["trade_date"] = r.TradeDate
	obj["date"] = FormatTradeDate(r.TradeDate)
	for k, v := range r.Close {
		obj[k] = v
	}
	for k, v := range r.Normalized {
		obj[k+NormalizedSuffix] = v
	}
	return json.Marshal(obj)
}

// MergedTable is a sequence of rows strictly ascending by trade date
type MergedTable []MergedRow

// Prices returns the raw closes for key in table order, skipping rows without a value
func (t MergedTable) Prices(key string) []float64 {
	var prices []float64
	for _, row := range t {
		if v, ok := row.Close[key]; ok {
			prices = append(prices, v)
		}
	}
	return prices
}

// Series rebuilds the instrument's own series from the table
func (t MergedTable) Series(key string) Series {
	var s Series
	for _, row := range t {
		if v, ok := row.Close[key]; ok {
			s = append(s, Observation{TradeDate: row.TradeDate, Close: v})
		}
	}
	return s
}

// Dates returns the trade dates of all rows
func (t MergedTable) Dates() []string {
	dates := make([]string, len(t))
	for i, row := range t {
		dates[i] = row.TradeDate
	}
	return dates
}

// FormatTradeDate converts YYYYMMDD to YYYY-MM-DD; other inputs are returned as-is
func FormatTradeDate(d string) string {
	if len(d) != 8 {
		return d
	}
	return d[0:4] + "-" + d[4:6] + "-" + d[6:8]
}
