package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

// SeriesSource provides the closing price series of an instrument.
// Implementations return observations ascending by date, de-duplicated,
// with positive prices. An empty series is a valid result.
type SeriesSource interface {
	FetchSeries(ctx context.Context, inst model.Instrument, startDate, endDate string) (model.Series, error)
}

// ObservationStore persists fetched observations
type ObservationStore interface {
	ListRange(ctx context.Context, sourceID, startDate, endDate string) (model.Series, error)
	Upsert(ctx context.Context, sourceID string, series model.Series) error
}

// FallbackSource writes fetched series through to a store and serves the
// stored observations when the primary source fails
type FallbackSource struct {
	primary SeriesSource
	store   ObservationStore
	logger  *zap.Logger
}

// NewFallbackSource creates a new fallback source
func NewFallbackSource(primary SeriesSource, store ObservationStore, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{
		primary: primary,
		store:   store,
		logger:  logger,
	}
}

// FetchSeries implements SeriesSource
func (s *FallbackSource) FetchSeries(ctx context.Context, inst model.Instrument, startDate, endDate string) (model.Series, error) {
	series, err := s.primary.FetchSeries(ctx, inst, startDate, endDate)
	if err == nil {
		if len(series) > 0 {
			if werr := s.store.Upsert(ctx, inst.SourceID, series); werr != nil {
				s.logger.Warn("Failed to store fetched observations",
					zap.String("instrument", inst.Key),
					zap.Error(werr))
			}
		}
		return series, nil
	}

	stored, serr := s.store.ListRange(ctx, inst.SourceID, startDate, endDate)
	if serr != nil {
		s.logger.Error("Failed to read stored observations",
			zap.String("instrument", inst.Key),
			zap.Error(serr))
		return nil, err
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("no stored observations for %s: %w", inst.Key, err)
	}

	s.logger.Warn("Upstream fetch failed, serving stored observations",
		zap.String("instrument", inst.Key),
		zap.Int("count", len(stored)),
		zap.Error(err))
	return stored, nil
}
