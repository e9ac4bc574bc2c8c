package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/index-compare/internal/analysis"
	"github.com/yourorg/index-compare/internal/events"
	"github.com/yourorg/index-compare/internal/model"
)

var (
	// ErrUnknownInstrument is returned when a requested key is not configured
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrInvalidRange is returned for malformed or reversed date ranges
	ErrInvalidRange = errors.New("invalid date range")
)

// marketLocation is used when the configured time zone cannot be loaded
var marketLocation = time.FixedZone("CST", 8*60*60)

// CompareOptions holds request defaults of a comparison
type CompareOptions struct {
	DefaultStartDate     string
	Location             *time.Location
	MaxConcurrentFetches int
}

// LoadLocation resolves a time zone name, falling back to UTC+8
func LoadLocation(name string) *time.Location {
	if name == "" {
		return marketLocation
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return marketLocation
	}
	return loc
}

// CompareService assembles index comparisons
type CompareService struct {
	source      SeriesSource
	instruments []model.Instrument
	byKey       map[string]model.Instrument
	opts        CompareOptions
	publisher   events.Publisher
	now         func() time.Time
	logger      *zap.Logger
}

// NewCompareService creates a new compare service over the given instrument list
func NewCompareService(
	source SeriesSource,
	instruments []model.Instrument,
	opts CompareOptions,
	publisher events.Publisher,
	logger *zap.Logger,
) *CompareService {
	if opts.Location == nil {
		opts.Location = marketLocation
	}
	if opts.MaxConcurrentFetches <= 0 {
		opts.MaxConcurrentFetches = len(instruments)
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	byKey := make(map[string]model.Instrument, len(instruments))
	for _, inst := range instruments {
		byKey[inst.Key] = inst
	}

	return &CompareService{
		source:      source,
		instruments: instruments,
		byKey:       byKey,
		opts:        opts,
		publisher:   publisher,
		now:         time.Now,
		logger:      logger,
	}
}

// Instruments returns the configured instruments
func (s *CompareService) Instruments() []model.Instrument {
	return s.instruments
}

// Resolve maps requested keys to instruments in request order.
// No keys selects every configured instrument.
func (s *CompareService) Resolve(keys []string) ([]model.Instrument, error) {
	var selected []model.Instrument
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			continue
		}
		inst, ok := s.byKey[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, key)
		}
		seen[key] = true
		selected = append(selected, inst)
	}
	if len(selected) == 0 {
		return s.instruments, nil
	}
	return selected, nil
}

// ResolveRange fills missing bounds: the end defaults to today in the market
// time zone, the start to the configured default or else the latest launch
// date of the selected instruments, so every instrument exists for the whole
// window
func (s *CompareService) ResolveRange(req model.CompareRequest, instruments []model.Instrument) (model.DateRange, error) {
	end := req.EndDate
	if end == "" {
		end = s.now().In(s.opts.Location).Format("20060102")
	}

	start := req.StartDate
	if start == "" {
		start = s.opts.DefaultStartDate
	}
	if start == "" {
		for _, inst := range instruments {
			if inst.LaunchDate > start {
				start = inst.LaunchDate
			}
		}
	}
	if start == "" {
		t, _ := time.ParseInLocation("20060102", end, s.opts.Location)
		start = t.AddDate(-1, 0, 0).Format("20060102")
	}

	if !model.IsTradeDate(start) || !model.IsTradeDate(end) {
		return model.DateRange{}, fmt.Errorf("%w: %s-%s", ErrInvalidRange, start, end)
	}
	if start > end {
		return model.DateRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return model.DateRange{Start: start, End: end}, nil
}

// Compare fetches the selected instruments concurrently, merges and
// normalizes their series and computes per-instrument metrics.
// A failing fetch degrades the comparison instead of failing it.
func (s *CompareService) Compare(ctx context.Context, req model.CompareRequest) (*model.Comparison, error) {
	instruments, err := s.Resolve(req.Keys)
	if err != nil {
		return nil, err
	}
	rng, err := s.ResolveRange(req, instruments)
	if err != nil {
		return nil, err
	}

	seriesByKey := s.fetchAll(ctx, instruments, rng)
	keys := model.Keys(instruments)

	table := analysis.Align(seriesByKey)
	for _, key := range keys {
		if _, err := analysis.NormalizationBase(table, key); err != nil {
			if errors.Is(err, analysis.ErrInvalidBase) {
				s.logger.Warn("Skipping normalization", zap.String("instrument", key), zap.Error(err))
			} else {
				s.logger.Info("No observations in window", zap.String("instrument", key))
			}
		}
	}
	table = analysis.Normalize(table, keys)

	metrics := make(map[string]model.MetricBundle, len(keys))
	for _, key := range keys {
		bundle, err := analysis.ComputeMetrics(table.Prices(key))
		if err != nil {
			s.logger.Info("Metrics unavailable", zap.String("instrument", key), zap.Error(err))
			continue
		}
		metrics[key] = bundle
	}

	comparison := &model.Comparison{
		Instruments: instruments,
		Range:       rng,
		Table:       table,
		Metrics:     metrics,
	}
	s.publish(ctx, comparison)
	return comparison, nil
}

func (s *CompareService) fetchAll(ctx context.Context, instruments []model.Instrument, rng model.DateRange) map[string]model.Series {
	results := make([]model.Series, len(instruments))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxConcurrentFetches)
	for i, inst := range instruments {
		i, inst := i, inst
		g.Go(func() error {
			series, err := s.source.FetchSeries(ctx, inst, rng.Start, rng.End)
			if err != nil {
				s.logger.Error("Failed to fetch series",
					zap.String("instrument", inst.Key),
					zap.String("tsCode", inst.SourceID),
					zap.Error(err))
				return nil
			}
			results[i] = series
			return nil
		})
	}
	_ = g.Wait()

	seriesByKey := make(map[string]model.Series, len(instruments))
	for i, inst := range instruments {
		seriesByKey[inst.Key] = results[i]
	}
	return seriesByKey
}

func (s *CompareService) publish(ctx context.Context, c *model.Comparison) {
	reports := make(map[string]model.MetricReport, len(c.Metrics))
	for key, bundle := range c.Metrics {
		reports[key] = bundle.Report()
	}
	event := model.ComparisonEvent{
		StartDate:   c.Range.Start,
		EndDate:     c.Range.End,
		Instruments: model.Keys(c.Instruments),
		Rows:        len(c.Table),
		Metrics:     reports,
		ComputedAt:  s.now(),
	}
	if err := s.publisher.PublishComparison(ctx, event); err != nil {
		s.logger.Warn("Failed to publish comparison event", zap.Error(err))
	}
}
