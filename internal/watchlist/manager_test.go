package watchlist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
)

type mapSource struct {
	snaps map[string]*model.StockSnapshot
	calls int
}

func (s *mapSource) Snapshot(_ context.Context, id string) (*model.StockSnapshot, error) {
	s.calls++
	snap, ok := s.snaps[id]
	if !ok {
		return nil, fmt.Errorf("no fundamentals for %s", id)
	}
	cp := *snap
	return &cp, nil
}

type flatQuotes struct{}

func (flatQuotes) HistoricQuote(context.Context, string, time.Time) (float64, error) {
	return 100, nil
}

func (flatQuotes) LastQuarterlyRelease(snap *model.StockSnapshot, today time.Time) (time.Time, error) {
	d, ok := snap.LastQuarterlyRelease(today)
	if !ok {
		return time.Time{}, fmt.Errorf("no quarterly figures for %s", snap.ID())
	}
	return d, nil
}

func snapshot(isin string, capType model.CapType, roe float64) *model.StockSnapshot {
	year := time.Now().Year()
	return &model.StockSnapshot{
		Name:        "Stock " + isin,
		ISIN:        isin,
		Symbol:      isin + ".DE",
		CapType:     capType,
		Quote:       100,
		ROE:         model.YearlyFigures{year - 1: roe},
		EquityRatio: model.YearlyFigures{year - 1: 30},
	}
}

func newTestManager(t *testing.T, dir string, src *mapSource, ids ...string) *Manager {
	t.Helper()
	m, err := NewManager(ids, dir, src, flatQuotes{}, nil, zerolog.Nop())
	require.NoError(t, err)
	return m
}

func TestEvaluateCommitsAndPersistsHistory(t *testing.T) {
	dir := t.TempDir()
	src := &mapSource{snaps: map[string]*model.StockSnapshot{
		"DE0007164600": snapshot("DE0007164600", model.CapLarge, 25),
	}}
	m := newTestManager(t, dir, src, "DE0007164600")

	out, err := m.Evaluate(context.Background(), "DE0007164600", false)
	require.NoError(t, err)
	assert.True(t, out.Committed)
	assert.False(t, out.Skipped)
	assert.Equal(t, 2, out.Result.Score())
	assert.Equal(t, model.RecommendationSell, out.Recommendation)

	h, err := LoadHistory(filepath.Join(dir, "DE0007164600.json"))
	require.NoError(t, err)
	require.Len(t, h.Results, 1)
	assert.Equal(t, model.CapLarge, h.CapType)
	assert.Equal(t, 2, h.Results[0].Score())
	assert.Equal(t, out.Result.ID, h.Results[0].ID)
}

func TestEvaluateSkipsRecentUnlessForced(t *testing.T) {
	src := &mapSource{snaps: map[string]*model.StockSnapshot{
		"DE0007164600": snapshot("DE0007164600", model.CapLarge, 25),
	}}
	m := newTestManager(t, t.TempDir(), src, "DE0007164600")
	ctx := context.Background()

	first, err := m.Evaluate(ctx, "DE0007164600", false)
	require.NoError(t, err)

	out, err := m.Evaluate(ctx, "DE0007164600", false)
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Same(t, first.Result, out.Result)
	assert.Equal(t, 1, src.calls)

	out, err = m.Evaluate(ctx, "DE0007164600", true)
	require.NoError(t, err)
	assert.False(t, out.Skipped)
	assert.False(t, out.Committed, "unchanged score within a week is suppressed")
	assert.Equal(t, 2, src.calls)

	src.snaps["DE0007164600"] = snapshot("DE0007164600", model.CapLarge, 5)
	out, err = m.Evaluate(ctx, "DE0007164600", true)
	require.NoError(t, err)
	assert.True(t, out.Committed)
	assert.Equal(t, 0, out.Result.Score())
	require.NotNil(t, out.Previous)
	assert.Equal(t, model.RecommendationSell, out.Recommendation)

	hist, err := m.History("DE0007164600")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestManagerReloadsHistory(t *testing.T) {
	dir := t.TempDir()
	src := &mapSource{snaps: map[string]*model.StockSnapshot{
		"DE000A0D9PT0": snapshot("DE000A0D9PT0", model.CapMid, 25),
	}}
	m := newTestManager(t, dir, src, "DE000A0D9PT0")
	_, err := m.Evaluate(context.Background(), "DE000A0D9PT0", false)
	require.NoError(t, err)

	reloaded := newTestManager(t, dir, src, "DE000A0D9PT0")
	s, err := reloaded.Summary("DE000A0D9PT0")
	require.NoError(t, err)
	require.NotNil(t, s.Latest)
	assert.Equal(t, "Stock DE000A0D9PT0", s.Name)
	assert.Equal(t, model.CapMid, s.CapType)
	assert.Equal(t, model.RecommendationSell, s.Recommendation)

	out, err := reloaded.Evaluate(context.Background(), "DE000A0D9PT0", false)
	require.NoError(t, err)
	assert.True(t, out.Skipped, "stored result is still fresh")
}

func TestEvaluateUnknownStock(t *testing.T) {
	m := newTestManager(t, t.TempDir(), &mapSource{})
	_, err := m.Evaluate(context.Background(), "DE0000000000", false)
	assert.ErrorIs(t, err, ErrNotWatched)

	_, err = m.Summary("DE0000000000")
	assert.ErrorIs(t, err, ErrNotWatched)
}

func TestEvaluateAllCollectsErrors(t *testing.T) {
	src := &mapSource{snaps: map[string]*model.StockSnapshot{
		"A": snapshot("A", model.CapSmall, 25),
		"C": snapshot("C", model.CapUnknown, 25),
	}}
	m := newTestManager(t, t.TempDir(), src, "A", "B", "C")

	outcomes, err := m.EvaluateAll(context.Background(), false)
	require.Error(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "A", outcomes[0].ISIN)

	summaries := m.Summaries()
	require.Len(t, summaries, 3)
	assert.NotNil(t, summaries[0].Latest)
	assert.Nil(t, summaries[1].Latest)
	assert.Equal(t, model.RecommendationNone, summaries[1].Recommendation)
}

func TestLoadHistoryMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	h, err := LoadHistory(filepath.Join(dir, "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, h.Results)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadHistory(bad)
	assert.Error(t, err)

	_, err = NewManager([]string{"bad"}, dir, &mapSource{}, flatQuotes{}, nil, zerolog.Nop())
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotWatched))
}
