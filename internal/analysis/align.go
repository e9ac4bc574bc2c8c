// Package analysis merges per-instrument price series into one table,
// rebases them to a common starting point and computes performance metrics.
// Everything here is pure and synchronous.
package analysis

import (
	"sort"

	"github.com/yourorg/index-compare/internal/model"
)

// Align merges the series of every instrument into a table keyed by trade date.
// A row exists for each date on which at least one instrument has a close; the
// rows are sorted ascending by date string, which is chronological for YYYYMMDD.
// Instruments without observations leave no trace in the table.
func Align(seriesByInstrument map[string]model.Series) model.MergedTable {
	rows := make(map[string]*model.MergedRow)

	for key, series := range seriesByInstrument {
		for _, obs := range series {
			row, ok := rows[obs.TradeDate]
			if !ok {
				r := model.NewMergedRow(obs.TradeDate)
				row = &r
				rows[obs.TradeDate] = row
			}
			row.Close[key] = obs.Close
		}
	}

	table := make(model.MergedTable, 0, len(rows))
	for _, row := range rows {
		table = append(table, *row)
	}
	sort.Slice(table, func(i, j int) bool {
		return table[i].TradeDate < table[j].TradeDate
	})

	return table
}
