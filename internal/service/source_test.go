package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/index-compare/internal/model"
)

func TestFallbackSourceWritesThrough(t *testing.T) {
	inst := testInstruments[0]
	series := obs("20240102", 1.0, "20240103", 2.0)
	store := newFakeStore()
	src := NewFallbackSource(&fakeSource{series: map[string]model.Series{inst.Key: series}}, store, zap.NewNop())

	got, err := src.FetchSeries(context.Background(), inst, "20240101", "20240131")
	require.NoError(t, err)
	assert.Equal(t, series, got)
	assert.Equal(t, series, store.data[inst.SourceID])
}

func TestFallbackSourceSkipsEmptyWrites(t *testing.T) {
	inst := testInstruments[0]
	store := newFakeStore()
	src := NewFallbackSource(&fakeSource{}, store, zap.NewNop())

	got, err := src.FetchSeries(context.Background(), inst, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, store.writes[inst.SourceID])
}

func TestFallbackSourceServesStoredOnFailure(t *testing.T) {
	inst := testInstruments[1]
	stored := obs("20240102", 6000.0)
	store := newFakeStore()
	store.data[inst.SourceID] = stored
	src := NewFallbackSource(&fakeSource{fail: map[string]bool{inst.Key: true}}, store, zap.NewNop())

	got, err := src.FetchSeries(context.Background(), inst, "", "")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestFallbackSourceFailsWithoutStoredData(t *testing.T) {
	inst := testInstruments[1]
	failing := &fakeSource{fail: map[string]bool{inst.Key: true}}

	_, err := NewFallbackSource(failing, newFakeStore(), zap.NewNop()).FetchSeries(context.Background(), inst, "", "")
	assert.ErrorIs(t, err, errUpstream)

	broken := newFakeStore()
	broken.readErr = errors.New("db down")
	_, err = NewFallbackSource(failing, broken, zap.NewNop()).FetchSeries(context.Background(), inst, "", "")
	assert.ErrorIs(t, err, errUpstream)
}
