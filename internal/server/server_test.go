package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockSentinel/internal/model"
	"StockSentinel/internal/recorder"
	"StockSentinel/internal/watchlist"
)

const sap = "DE0007164600"

type fakeWatchlist struct {
	results []*model.EvaluationResult
	evalErr error
	forced  *bool
}

func (f *fakeWatchlist) IDs() []string { return []string{sap} }

func (f *fakeWatchlist) check(id string) error {
	if id != sap {
		return fmt.Errorf("%w: %s", watchlist.ErrNotWatched, id)
	}
	return nil
}

func (f *fakeWatchlist) Summary(id string) (watchlist.Summary, error) {
	if err := f.check(id); err != nil {
		return watchlist.Summary{}, err
	}
	s := watchlist.Summary{ISIN: sap, Name: "SAP SE", CapType: model.CapLarge, Recommendation: model.RecommendationNone}
	if n := len(f.results); n > 0 {
		s.Latest = f.results[n-1]
		s.Recommendation = model.RecommendationSell
	}
	return s, nil
}

func (f *fakeWatchlist) History(id string) ([]*model.EvaluationResult, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	return f.results, nil
}

func (f *fakeWatchlist) Evaluate(_ context.Context, id string, force bool) (*watchlist.Outcome, error) {
	if err := f.check(id); err != nil {
		return nil, err
	}
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	f.forced = &force
	r := &model.EvaluationResult{ID: "r2", ISIN: sap, Timestamp: time.Now(), ROE: model.NewRating(1, 21)}
	f.results = append(f.results, r)
	return &watchlist.Outcome{ISIN: sap, Result: r, Committed: true}, nil
}

type fakeScores struct{}

func (fakeScores) ScoreHistory(_ context.Context, isin string) ([]recorder.PointsRow, error) {
	return []recorder.PointsRow{{ResultID: "r1", ISIN: isin, Score: 3}}, nil
}

func newTestServer(wl *fakeWatchlist, scores ScoreStore) http.Handler {
	return New(Config{Addr: ":0", Log: zerolog.Nop(), Watchlist: wl, Scores: scores}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakeWatchlist{}, nil), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["stocks"])
}

func TestListAndGetStock(t *testing.T) {
	wl := &fakeWatchlist{results: []*model.EvaluationResult{
		{ID: "r1", Timestamp: time.Now(), ROE: model.NewRating(-1, 5)},
	}}
	h := newTestServer(wl, nil)

	rec := do(t, h, http.MethodGet, "/api/stocks")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []stockView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "SAP SE", list[0].Name)
	assert.Equal(t, model.CapLarge, list[0].CapType)
	require.NotNil(t, list[0].Latest)
	assert.Equal(t, -1, list[0].Latest.Score)
	assert.Len(t, list[0].Latest.Criteria, 13)
	assert.Nil(t, list[0].Previous)

	rec = do(t, h, http.MethodGet, "/api/stocks/"+sap)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendation":"SELL"`)

	rec = do(t, h, http.MethodGet, "/api/stocks/XX")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory(t *testing.T) {
	wl := &fakeWatchlist{results: []*model.EvaluationResult{{ID: "r1"}, {ID: "r2"}}}
	rec := do(t, newTestServer(wl, nil), http.MethodGet, "/api/stocks/"+sap+"/history")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []resultView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "r2", out[1].ID)
}

func TestScores(t *testing.T) {
	rec := do(t, newTestServer(&fakeWatchlist{}, nil), http.MethodGet, "/api/stocks/"+sap+"/scores")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = do(t, newTestServer(&fakeWatchlist{}, fakeScores{}), http.MethodGet, "/api/stocks/"+sap+"/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []scoreView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Score)
}

func TestEvaluate(t *testing.T) {
	wl := &fakeWatchlist{}
	h := newTestServer(wl, nil)

	rec := do(t, h, http.MethodPost, "/api/stocks/"+sap+"/evaluate?force=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, wl.forced)
	assert.True(t, *wl.forced)

	var out evaluateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Committed)
	require.NotNil(t, out.Latest)
	assert.Equal(t, 1, out.Latest.Score)

	rec = do(t, h, http.MethodPost, "/api/stocks/"+sap+"/evaluate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, *wl.forced)

	rec = do(t, h, http.MethodPost, "/api/stocks/"+sap+"/evaluate?force=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/stocks/"+sap+"/evaluate")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEvaluateUpstreamError(t *testing.T) {
	wl := &fakeWatchlist{evalErr: errors.New("snapshot: provider down")}
	rec := do(t, newTestServer(wl, nil), http.MethodPost, "/api/stocks/"+sap+"/evaluate")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider down")
}
