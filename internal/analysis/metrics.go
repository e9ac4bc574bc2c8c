package analysis

import (
	"fmt"
	"math"

	"github.com/yourorg/index-compare/internal/model"
)

const (
	// TradingDaysPerYear is the annualization factor for daily data
	TradingDaysPerYear = 252

	// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino
	RiskFreeRate = 0.03
)

// DailyReturns computes simple returns between consecutive prices.
// Pairs whose previous price is not positive, or where either price is not
// finite, are skipped.
func DailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev <= 0 || !isFinite(prev) || !isFinite(cur) {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	return returns
}

// MaxDrawdown returns the largest decline from a running peak as a positive
// fraction, computed in a single forward pass
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	maxDD := 0.0
	peak := prices[0]
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - p) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ComputeMetrics calculates the performance statistics of a chronological
// price sequence with gaps already removed.
// It returns ErrInsufficientData when there are fewer than two prices or no
// usable return, and ErrNonFiniteMetric when a statistic overflows.
func ComputeMetrics(prices []float64) (model.MetricBundle, error) {
	n := len(prices)
	if n < 2 {
		return model.MetricBundle{}, fmt.Errorf("%d price(s): %w", n, ErrInsufficientData)
	}
	first, last := prices[0], prices[n-1]
	if first <= 0 || !isFinite(first) || !isFinite(last) {
		return model.MetricBundle{}, fmt.Errorf("first price %v: %w", first, ErrInsufficientData)
	}

	returns := DailyReturns(prices)
	if len(returns) == 0 {
		return model.MetricBundle{}, fmt.Errorf("no valid returns: %w", ErrInsufficientData)
	}

	totalReturn := (last - first) / first
	annualizedReturn := math.Pow(1+totalReturn, TradingDaysPerYear/float64(n)) - 1

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	annualizedVolatility := math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear)

	maxDrawdown := MaxDrawdown(prices)

	calmar := 0.0
	if maxDrawdown > 0 {
		calmar = annualizedReturn / maxDrawdown
	}

	wins := 0
	var downSquares float64
	downCount := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
		if r < 0 {
			downSquares += r * r
			downCount++
		}
	}
	winRate := float64(wins) / float64(len(returns))

	excess := annualizedReturn - RiskFreeRate

	var sharpe, sortino *float64
	if annualizedVolatility > 0 {
		s := excess / annualizedVolatility
		sharpe = &s

		so := 0.0
		if downCount > 0 {
			downside := math.Sqrt(downSquares/float64(downCount)) * math.Sqrt(TradingDaysPerYear)
			if downside > 0 {
				so = excess / downside
			}
		}
		sortino = &so
	}

	bundle := model.MetricBundle{
		AnnualizedReturn:     annualizedReturn,
		AnnualizedVolatility: annualizedVolatility,
		SharpeRatio:          sharpe,
		MaxDrawdown:          maxDrawdown,
		CalmarRatio:          calmar,
		SortinoRatio:         sortino,
		WinRate:              winRate,
	}
	if err := checkFinite(bundle); err != nil {
		return model.MetricBundle{}, err
	}
	return bundle, nil
}

func checkFinite(b model.MetricBundle) error {
	values := map[string]float64{
		"annualizedReturn":     b.AnnualizedReturn,
		"annualizedVolatility": b.AnnualizedVolatility,
		"maxDrawdown":          b.MaxDrawdown,
		"calmarRatio":          b.CalmarRatio,
		"winRate":              b.WinRate,
	}
	if b.SharpeRatio != nil {
		values["sharpeRatio"] = *b.SharpeRatio
	}
	if b.SortinoRatio != nil {
		values["sortinoRatio"] = *b.SortinoRatio
	}
	for name, v := range values {
		if !isFinite(v) {
			return fmt.Errorf("%s is %v: %w", name, v, ErrNonFiniteMetric)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
