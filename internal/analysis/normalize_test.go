package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/index-compare/internal/model"
)

func TestNormalizeSingleInstrument(t *testing.T) {
	raw := series(
		"20240102", 5123.45,
		"20240103", 5201.1,
		"20240104", 4987.02,
		"20240105", 5333.33,
	)
	table := Normalize(Align(map[string]model.Series{"csi500": raw}), []string{"csi500"})
	require.Len(t, table, len(raw))

	assert.Equal(t, 100.00, table[0].Normalized["csi500"])
	for i, obs := range raw {
		want := model.RoundTo(obs.Close/raw[0].Close*100, 2)
		assert.Equal(t, want, table[i].Normalized["csi500"], obs.TradeDate)
	}
}

func TestNormalizeUsesFirstPresentValue(t *testing.T) {
	table := Align(map[string]model.Series{
		"a": series("20240102", 10.0, "20240103", 11.0, "20240104", 12.0),
		"b": series("20240103", 50.0, "20240104", 25.0),
	})

	out := Normalize(table, []string{"a", "b"})

	_, ok := out[0].Normalized["b"]
	assert.False(t, ok)
	assert.Equal(t, 100.0, out[1].Normalized["b"])
	assert.Equal(t, 50.0, out[2].Normalized["b"])
	assert.Equal(t, 120.0, out[2].Normalized["a"])
}

func TestNormalizeSkipsInvalidBase(t *testing.T) {
	tests := []struct {
		name string
		base float64
		err  error
	}{
		{name: "zero", base: 0, err: ErrInvalidBase},
		{name: "negative", base: -3, err: ErrInvalidBase},
		{name: "nan", base: math.NaN(), err: ErrInvalidBase},
		{name: "inf", base: math.Inf(1), err: ErrInvalidBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Align(map[string]model.Series{
				"bad":  series("20240102", tt.base, "20240103", 10.0),
				"good": series("20240102", 4.0, "20240103", 5.0),
			})

			_, err := NormalizationBase(table, "bad")
			assert.ErrorIs(t, err, tt.err)

			out := Normalize(table, []string{"bad", "good"})
			for _, row := range out {
				_, ok := row.Normalized["bad"]
				assert.False(t, ok)
			}
			assert.Equal(t, 125.0, out[1].Normalized["good"])
		})
	}
}

func TestNormalizeUnknownKey(t *testing.T) {
	table := Align(map[string]model.Series{"a": series("20240102", 1.0)})

	_, err := NormalizationBase(table, "missing")
	assert.ErrorIs(t, err, ErrNoObservations)

	out := Normalize(table, []string{"missing"})
	assert.Empty(t, out[0].Normalized)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	table := Align(map[string]model.Series{"a": series("20240102", 2.0, "20240103", 3.0)})

	out := Normalize(table, []string{"a"})

	for _, row := range table {
		assert.Empty(t, row.Normalized)
	}
	assert.Equal(t, 150.0, out[1].Normalized["a"])
}

func TestRoundTripReproducesSeries(t *testing.T) {
	input := map[string]model.Series{
		"a": series("20240102", 3.14159, "20240104", 2.71828, "20240105", 1.41421),
		"b": series("20240103", 100.0, "20240104", 101.5),
		"c": nil,
	}

	out := Normalize(Align(input), []string{"a", "b", "c"})

	assert.Equal(t, input["a"], out.Series("a"))
	assert.Equal(t, input["b"], out.Series("b"))
	assert.Empty(t, out.Series("c"))
}
