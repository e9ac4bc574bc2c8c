package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/index-compare/internal/model"
)

// ObservationWriter stores observations and reports how far storage reaches
type ObservationWriter interface {
	Upsert(ctx context.Context, sourceID string, series model.Series) error
	LatestDate(ctx context.Context, sourceID string) (string, error)
}

// SyncService copies recent upstream observations into the observation store
type SyncService struct {
	source       SeriesSource
	store        ObservationWriter
	instruments  []model.Instrument
	lookbackDays int
	concurrency  int
	location     *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(
	source SeriesSource,
	store ObservationWriter,
	instruments []model.Instrument,
	lookbackDays, concurrency int,
	location *time.Location,
	logger *zap.Logger,
) *SyncService {
	if lookbackDays <= 0 {
		lookbackDays = 10
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if location == nil {
		location = marketLocation
	}
	return &SyncService{
		source:       source,
		store:        store,
		instruments:  instruments,
		lookbackDays: lookbackDays,
		concurrency:  concurrency,
		location:     location,
		now:          time.Now,
		logger:       logger,
	}
}

// SyncRecent fetches every instrument from where its stored history ends
// (or its launch date when nothing is stored), but never less than the last
// lookbackDays, and upserts the result. It returns the number of stored
// observations per instrument key and the joined errors of failed instruments.
func (s *SyncService) SyncRecent(ctx context.Context) (map[string]int, error) {
	today := s.now().In(s.location)
	end := today.Format("20060102")
	lookbackStart := today.AddDate(0, 0, -s.lookbackDays).Format("20060102")

	var (
		mu     sync.Mutex
		counts = make(map[string]int, len(s.instruments))
	)
	errs := make([]error, len(s.instruments))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, inst := range s.instruments {
		i, inst := i, inst
		g.Go(func() error {
			start, err := s.startDate(ctx, inst, lookbackStart)
			if err != nil {
				errs[i] = err
				return nil
			}

			series, err := s.source.FetchSeries(ctx, inst, start, end)
			if err != nil {
				errs[i] = fmt.Errorf("fetch %s: %w", inst.Key, err)
				return nil
			}
			if err := s.store.Upsert(ctx, inst.SourceID, series); err != nil {
				errs[i] = fmt.Errorf("store %s: %w", inst.Key, err)
				return nil
			}

			mu.Lock()
			counts[inst.Key] = len(series)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error("Observation sync finished with errors", zap.Error(err))
	} else {
		s.logger.Info("Observation sync finished", zap.Any("counts", counts))
	}
	return counts, err
}

func (s *SyncService) startDate(ctx context.Context, inst model.Instrument, lookbackStart string) (string, error) {
	latest, err := s.store.LatestDate(ctx, inst.SourceID)
	if err != nil {
		return "", fmt.Errorf("latest date of %s: %w", inst.Key, err)
	}
	if latest == "" {
		if inst.LaunchDate != "" {
			return inst.LaunchDate, nil
		}
		return lookbackStart, nil
	}
	if latest < lookbackStart {
		return latest, nil
	}
	return lookbackStart, nil
}
