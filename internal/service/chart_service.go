package service

import (
	"errors"
	"math"

	"github.com/vicanso/go-charts/v2"

	"github.com/yourorg/index-compare/internal/model"
)

// ErrNothingToChart is returned when no instrument has normalized values
var ErrNothingToChart = errors.New("no normalized series to chart")

// ChartService renders comparisons as PNG line charts
type ChartService struct {
	width  int
	height int
}

// NewChartService creates a new chart service
func NewChartService(width, height int) *ChartService {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 576
	}
	return &ChartService{width: width, height: height}
}

// Render draws the normalized series of a comparison, one line per instrument.
// The image needs a value on every date: dates before an instrument's first
// observation are drawn at the base of 100 and later gaps repeat the previous
// value. The comparison itself is not changed.
func (s *ChartService) Render(c *model.Comparison) ([]byte, error) {
	var (
		names  []string
		values [][]float64
	)
	yMin, yMax := math.Inf(1), math.Inf(-1)

	for _, inst := range c.Instruments {
		line, ok := filledColumn(c.Table, inst.Key)
		if !ok {
			continue
		}
		for _, v := range line {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
		names = append(names, inst.Key)
		values = append(values, line)
	}
	if len(values) == 0 {
		return nil, ErrNothingToChart
	}

	xLabels := make([]string, len(c.Table))
	for i, row := range c.Table {
		xLabels[i] = model.FormatTradeDate(row.TradeDate)
	}

	pad := (yMax - yMin) * 0.05
	if pad == 0 {
		pad = 1
	}
	lo, hi := yMin-pad, yMax+pad

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Index comparison", model.FormatTradeDate(c.Range.Start)+" ~ "+model.FormatTradeDate(c.Range.End)+", normalized to 100"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels, BoundaryGap: charts.FalseFlag(), SplitNumber: 8}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &lo, Max: &hi, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(s.width),
		charts.HeightOptionFunc(s.height),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

// filledColumn returns the normalized values of key on every table row
func filledColumn(table model.MergedTable, key string) ([]float64, bool) {
	line := make([]float64, len(table))
	seen := false
	last := 100.0
	for i, row := range table {
		if v, ok := row.Normalized[key]; ok {
			last = v
			seen = true
		}
		line[i] = last
	}
	return line, seen
}
