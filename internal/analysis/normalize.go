package analysis

import (
	"fmt"
	"math"

	"github.com/yourorg/index-compare/internal/model"
)

// NormalizationBase returns the first raw value of key in table order
func NormalizationBase(table model.MergedTable, key string) (float64, error) {
	for _, row := range table {
		v, ok := row.Close[key]
		if !ok {
			continue
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%s on %s: %v: %w", key, row.TradeDate, v, ErrInvalidBase)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%s: %w", key, ErrNoObservations)
}

// Normalize returns a copy of table where every raw close is accompanied by
// its value rebased to 100 at the instrument's first observation, rounded to
// two decimals. Instruments without observations or with an invalid base get
// no normalized values at all. The input table is not modified.
func Normalize(table model.MergedTable, keys []string) model.MergedTable {
	out := make(model.MergedTable, len(table))
	for i, row := range table {
		out[i] = row.Clone()
	}

	for _, key := range keys {
		base, err := NormalizationBase(table, key)
		if err != nil {
			continue
		}
		for i := range out {
			if raw, ok := out[i].Close[key]; ok {
				out[i].Normalized[key] = model.RoundTo(raw/base*100, 2)
			}
		}
	}

	return out
}
