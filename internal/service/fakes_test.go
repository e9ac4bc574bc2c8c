package service

import (
	"context"
	"errors"
	"sync"

	"github.com/yourorg/index-compare/internal/model"
)

var errUpstream = errors.New("upstream unavailable")

type fetchCall struct {
	Key   string
	Start string
	End   string
}

type fakeSource struct {
	mu     sync.Mutex
	series map[string]model.Series
	fail   map[string]bool
	calls  []fetchCall
}

func (f *fakeSource) FetchSeries(_ context.Context, inst model.Instrument, start, end string) (model.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{Key: inst.Key, Start: start, End: end})
	if f.fail[inst.Key] {
		return nil, errUpstream
	}
	return f.series[inst.Key], nil
}

type fakeStore struct {
	mu      sync.Mutex
	data    map[string]model.Series
	latest  map[string]string
	readErr error
	writes  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]model.Series{}, latest: map[string]string{}, writes: map[string]int{}}
}

func (f *fakeStore) ListRange(_ context.Context, sourceID, _, _ string) (model.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.data[sourceID], nil
}

func (f *fakeStore) Upsert(_ context.Context, sourceID string, series model.Series) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[sourceID] = series
	f.writes[sourceID]++
	return nil
}

func (f *fakeStore) LatestDate(_ context.Context, sourceID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest[sourceID], nil
}

type fakePublisher struct {
	events []model.ComparisonEvent
	err    error
}

func (p *fakePublisher) PublishComparison(_ context.Context, event model.ComparisonEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func obs(pairs ...interface{}) model.Series {
	var s model.Series
	for i := 0; i+1 < len(pairs); i += 2 {
		s = append(s, model.Observation{TradeDate: pairs[i].(string), Close: pairs[i+1].(float64)})
	}
	return s
}
