package model

import "math"

// MetricBundle holds the performance statistics of one instrument at full precision.
// Returns, volatility, drawdown and win rate are fractions (0.05 == 5%).
// A nil SharpeRatio or SortinoRatio means the ratio is undefined because
// volatility is zero.
type MetricBundle struct {
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          *float64
	MaxDrawdown          float64
	CalmarRatio          float64
	SortinoRatio         *float64
	WinRate              float64
}

// MetricReport is the presentation form of a MetricBundle
type MetricReport struct {
	AnnualizedReturn     float64  `json:"annualizedReturn"`
	AnnualizedVolatility float64  `json:"annualizedVolatility"`
	SharpeRatio          *float64 `json:"sharpeRatio"`
	MaxDrawdown          float64  `json:"maxDrawdown"`
	CalmarRatio          float64  `json:"calmarRatio"`
	SortinoRatio         *float64 `json:"sortinoRatio"`
	WinRate              float64  `json:"winRate"`
}

// Report rounds the bundle for output: percentages to 2 decimals, ratios to 3
func (b MetricBundle) Report() MetricReport {
	return MetricReport{
		AnnualizedReturn:     RoundTo(b.AnnualizedReturn*100, 2),
		AnnualizedVolatility: RoundTo(b.AnnualizedVolatility*100, 2),
		SharpeRatio:          roundPtr(b.SharpeRatio, 3),
		MaxDrawdown:          RoundTo(b.MaxDrawdown*100, 2),
		CalmarRatio:          RoundTo(b.CalmarRatio, 3),
		SortinoRatio:         roundPtr(b.SortinoRatio, 3),
		WinRate:              RoundTo(b.WinRate*100, 2),
	}
}

// RoundTo rounds x half away from zero to the given number of decimals
func RoundTo(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

func roundPtr(v *float64, decimals int) *float64 {
	if v == nil {
		return nil
	}
	r := RoundTo(*v, decimals)
	return &r
}
