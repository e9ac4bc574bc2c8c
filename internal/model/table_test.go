package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergedRowMarshalJSON(t *testing.T) {
	row := NewMergedRow("20240102")
	row.Close["csi500"] = 5123.45
	row.Normalized["csi500"] = 100
	row.Close["csi1000"] = 6001

	raw, err := json.Marshal(row)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, map[string]interface{}{
		"trade_date":  "20240102",
		"date":        "2024-01-02",
		"csi500":      5123.45,
		"csi500_norm": 100.0,
		"csi1000":     6001.0,
	}, got)
}

func TestMergedRowCloneIsDeep(t *testing.T) {
	row := NewMergedRow("20240102")
	row.Close["a"] = 1

	clone := row.Clone()
	clone.Close["a"] = 2
	clone.Normalized["a"] = 100

	assert.Equal(t, 1.0, row.Close["a"])
	assert.Empty(t, row.Normalized)
}

func TestMergedTableColumns(t *testing.T) {
	a := NewMergedRow("20240102")
	a.Close["x"] = 10
	b := NewMergedRow("20240103")
	b.Close["y"] = 5
	c := NewMergedRow("20240104")
	c.Close["x"] = 11
	c.Close["y"] = 6
	table := MergedTable{a, b, c}

	assert.Equal(t, []float64{10, 11}, table.Prices("x"))
	assert.Equal(t, Series{{TradeDate: "20240103", Close: 5}, {TradeDate: "20240104", Close: 6}}, table.Series("y"))
	assert.Nil(t, table.Prices("z"))
	assert.Equal(t, []string{"20240102", "20240103", "20240104"}, table.Dates())
}

func TestFormatTradeDate(t *testing.T) {
	assert.Equal(t, "2022-07-22", FormatTradeDate("20220722"))
	assert.Equal(t, "2022-07", FormatTradeDate("2022-07"))
	assert.Equal(t, "", FormatTradeDate(""))
}

func TestIsTradeDate(t *testing.T) {
	assert.True(t, IsTradeDate("20240229"))
	assert.False(t, IsTradeDate("20230229"))
	assert.False(t, IsTradeDate("2024-01-01"))
	assert.False(t, IsTradeDate(""))
}
