package model

import "time"

// CompareRequest describes one comparison request after query parsing.
// Empty dates and keys are filled with defaults by the service.
type CompareRequest struct {
	StartDate string
	EndDate   string
	Keys      []string
}

// Comparison is the assembled result of one comparison run
type Comparison struct {
	Instruments []Instrument
	Range       DateRange
	Table       MergedTable
	Metrics     map[string]MetricBundle
}

// CompareResponse is the JSON payload of GET /api/index-compare
type CompareResponse struct {
	Success            bool                    `json:"success"`
	Data               MergedTable             `json:"data"`
	Count              int                     `json:"count"`
	Indices            []InstrumentInfo        `json:"indices"`
	PerformanceMetrics map[string]MetricReport `json:"performanceMetrics"`
	StartDate          string                  `json:"startDate"`
	EndDate            string                  `json:"endDate"`
}

// NewCompareResponse converts a comparison into its wire payload
func NewCompareResponse(c *Comparison) CompareResponse {
	data := c.Table
	if data == nil {
		data = MergedTable{}
	}
	indices := make([]InstrumentInfo, len(c.Instruments))
	for i, inst := range c.Instruments {
		indices[i] = inst.Info()
	}
	metrics := make(map[string]MetricReport, len(c.Metrics))
	for key, bundle := range c.Metrics {
		metrics[key] = bundle.Report()
	}
	return CompareResponse{
		Success:            true,
		Data:               data,
		Count:              len(data),
		Indices:            indices,
		PerformanceMetrics: metrics,
		StartDate:          c.Range.Start,
		EndDate:            c.Range.End,
	}
}

// ComparisonEvent is published after a comparison has been computed
type ComparisonEvent struct {
	StartDate   string                  `json:"start_date"`
	EndDate     string                  `json:"end_date"`
	Instruments []string                `json:"instruments"`
	Rows        int                     `json:"rows"`
	Metrics     map[string]MetricReport `json:"metrics"`
	ComputedAt  time.Time               `json:"computed_at"`
}

// ChartSnapshot describes a stored chart image
type ChartSnapshot struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	StoragePath string    `json:"storage_path"`
	StorageType string    `json:"storage_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}
