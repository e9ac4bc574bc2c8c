package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

// ErrNoNAVData is returned when the upstream has no NAV records for a request
var ErrNoNAVData = errors.New("no NAV data returned")

// NAVSource provides fund net asset value records
type NAVSource interface {
	FetchFundNAV(ctx context.Context, tsCode, startDate, endDate string) ([]model.FundNAV, error)
}

// NAVService serves fund NAV history
type NAVService struct {
	source        NAVSource
	defaultTSCode string
	defaultStart  string
	location      *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

// NewNAVService creates a new NAV service
func NewNAVService(source NAVSource, defaultTSCode, defaultStart string, location *time.Location, logger *zap.Logger) *NAVService {
	if location == nil {
		location = marketLocation
	}
	return &NAVService{
		source:        source,
		defaultTSCode: defaultTSCode,
		defaultStart:  defaultStart,
		location:      location,
		now:           time.Now,
		logger:        logger,
	}
}

// GetNAV returns NAV records ordered by announcement date
func (s *NAVService) GetNAV(ctx context.Context, tsCode, startDate, endDate string) ([]model.FundNAV, error) {
	if tsCode == "" {
		tsCode = s.defaultTSCode
	}
	if startDate == "" {
		startDate = s.defaultStart
	}
	if endDate == "" {
		endDate = s.now().In(s.location).Format("20060102")
	}
	if startDate > endDate {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, startDate, endDate)
	}

	navs, err := s.source.FetchFundNAV(ctx, tsCode, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(navs) == 0 {
		s.logger.Info("No NAV records",
			zap.String("tsCode", tsCode),
			zap.String("start", startDate),
			zap.String("end", endDate))
		return nil, ErrNoNAVData
	}
	return navs, nil
}
